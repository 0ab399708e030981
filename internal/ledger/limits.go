package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjordbank/core/internal/model"
)

// consumeLimit enforces and advances the usage counter for one operation on
// one account. The counter row is the single source of truth; it is locked,
// rolled over lazily when its period has expired, then consumed in the same
// transaction as the balance change it guards.
func (e *Engine) consumeLimit(ctx context.Context, tx Tx, account *model.Account, op model.LimitOperation, limitAmount, amount decimal.Decimal) error {
	now := e.now()

	limit, err := tx.LimitForUpdate(ctx, account.ID, op, model.LimitPeriodDaily)
	if err != nil {
		return fmt.Errorf("failed to load limit counter: %w", err)
	}

	if limit == nil {
		if amount.GreaterThan(limitAmount) {
			return model.ErrDailyLimitExceeded
		}
		limit = &model.TransactionLimit{
			ID:                 uuid.New(),
			Scope:              model.LimitScopeAccount,
			AccountID:          &account.ID,
			TenantID:           account.TenantID,
			Operation:          op,
			Period:             model.LimitPeriodDaily,
			LimitAmount:        limitAmount,
			Currency:           account.Currency,
			CurrentPeriodUsage: amount,
			PeriodStart:        now,
			Active:             true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.CreateLimit(ctx, limit); err != nil {
			return fmt.Errorf("failed to create limit counter: %w", err)
		}
		return nil
	}

	if !limit.Active {
		return nil
	}

	if limit.PeriodExpired(now) {
		limit.CurrentPeriodUsage = decimal.Zero
		limit.PeriodStart = now
	}

	// The configured ceiling may have changed since the row was created
	limit.LimitAmount = limitAmount

	if limit.WouldExceed(amount) {
		return model.ErrDailyLimitExceeded
	}

	limit.CurrentPeriodUsage = limit.CurrentPeriodUsage.Add(amount)
	limit.UpdatedAt = now
	if err := tx.SaveLimit(ctx, limit); err != nil {
		return fmt.Errorf("failed to update limit counter: %w", err)
	}
	return nil
}
