package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-please-rotate"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		UserID:   uuid.New(),
		TenantID: "tenant-1",
		Role:     RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	verifier := NewVerifier(testSecret)
	claims := validClaims()

	actor, err := verifier.Verify(signToken(t, testSecret, claims))
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, actor.UserID)
	assert.Equal(t, "tenant-1", actor.TenantID)
	assert.Equal(t, RoleCustomer, actor.Role)
}

func TestVerifyRejections(t *testing.T) {
	verifier := NewVerifier(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, "other-secret", validClaims())},
		{"garbage", "not.a.token"},
		{"expired", signToken(t, testSecret, func() Claims {
			c := validClaims()
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			return c
		}())},
		{"missing tenant", signToken(t, testSecret, func() Claims {
			c := validClaims()
			c.TenantID = ""
			return c
		}())},
		{"nil user", signToken(t, testSecret, func() Claims {
			c := validClaims()
			c.UserID = uuid.Nil
			return c
		}())},
		{"unknown role", signToken(t, testSecret, func() Claims {
			c := validClaims()
			c.Role = "superuser"
			return c
		}())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRoleCapabilities(t *testing.T) {
	customer := Actor{Role: RoleCustomer}
	assert.True(t, customer.Can(CapDeposit))
	assert.True(t, customer.Can(CapTransfer))
	assert.False(t, customer.Can(CapHoldPlace))
	assert.False(t, customer.Can(CapReverse))
	assert.False(t, customer.Can(CapAccountManage))

	teller := Actor{Role: RoleTeller}
	assert.True(t, teller.Can(CapHoldPlace))
	assert.True(t, teller.Can(CapHoldRelease))
	assert.False(t, teller.Can(CapReverse))
	assert.False(t, teller.Can(CapInterest))

	admin := Actor{Role: RoleAdmin}
	assert.True(t, admin.Can(CapReverse))
	assert.True(t, admin.Can(CapInterest))
	assert.True(t, admin.Can(CapAccountManage))

	unknown := Actor{Role: "auditor"}
	assert.False(t, unknown.Can(CapDeposit))
}
