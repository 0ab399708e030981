package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the coarse access level carried in the token
type Role string

const (
	RoleCustomer Role = "customer"
	RoleTeller   Role = "teller"
	RoleAdmin    Role = "admin"
)

// Capability is a fine-grained permission checked per operation
type Capability string

const (
	CapAccountOpen    Capability = "account:open"
	CapAccountClose   Capability = "account:close"
	CapAccountManage  Capability = "account:manage"
	CapDeposit        Capability = "ledger:deposit"
	CapWithdraw       Capability = "ledger:withdraw"
	CapTransfer       Capability = "transfer:create"
	CapTransferCancel Capability = "transfer:cancel"
	CapConvert        Capability = "currency:convert"
	CapSchedule       Capability = "schedule:manage"
	CapHoldPlace      Capability = "hold:place"
	CapHoldRelease    Capability = "hold:release"
	CapReverse        Capability = "ledger:reverse"
	CapInterest       Capability = "ledger:interest"
)

// roleCapabilities is the closed capability grant per role
var roleCapabilities = map[Role]map[Capability]bool{
	RoleCustomer: {
		CapAccountOpen:    true,
		CapAccountClose:   true,
		CapDeposit:        true,
		CapWithdraw:       true,
		CapTransfer:       true,
		CapTransferCancel: true,
		CapConvert:        true,
		CapSchedule:       true,
	},
	RoleTeller: {
		CapAccountOpen:    true,
		CapAccountClose:   true,
		CapDeposit:        true,
		CapWithdraw:       true,
		CapTransfer:       true,
		CapTransferCancel: true,
		CapConvert:        true,
		CapSchedule:       true,
		CapHoldPlace:      true,
		CapHoldRelease:    true,
	},
	RoleAdmin: {
		CapAccountOpen:    true,
		CapAccountClose:   true,
		CapAccountManage:  true,
		CapDeposit:        true,
		CapWithdraw:       true,
		CapTransfer:       true,
		CapTransferCancel: true,
		CapConvert:        true,
		CapSchedule:       true,
		CapHoldPlace:      true,
		CapHoldRelease:    true,
		CapReverse:        true,
		CapInterest:       true,
	},
}

// Actor is the authenticated caller extracted from a verified token
type Actor struct {
	UserID   uuid.UUID
	TenantID string
	Role     Role
}

// Can reports whether the actor holds the capability
func (a Actor) Can(cap Capability) bool {
	return roleCapabilities[a.Role][cap]
}

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrForbidden    = errors.New("operation not permitted")
)

// Claims is the token payload issued by the identity service. This service
// only verifies tokens, it never issues them.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID string    `json:"tenant_id"`
	Role     Role      `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates JWTs signed by the identity service
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the shared HMAC secret
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the token and returns the actor
func (v *Verifier) Verify(tokenString string) (*Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == uuid.Nil || claims.TenantID == "" {
		return nil, ErrInvalidToken
	}
	if _, ok := roleCapabilities[claims.Role]; !ok {
		return nil, ErrInvalidToken
	}
	return &Actor{UserID: claims.UserID, TenantID: claims.TenantID, Role: claims.Role}, nil
}
