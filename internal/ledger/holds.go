package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjordbank/core/internal/model"
)

// PlaceHold reserves part of an account's available balance. The ledger
// balance is untouched; only AvailableBalance drops. Holds cannot dip into
// overdraft.
func (e *Engine) PlaceHold(ctx context.Context, tenantID string, req model.CreateHoldRequest) (*model.AccountHold, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, model.ErrInvalidAmount
	}

	var hold *model.AccountHold
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		account, err := e.lockActiveAccount(ctx, tx, req.AccountID, tenantID)
		if err != nil {
			return err
		}
		if account.AvailableBalance.LessThan(req.Amount) {
			return model.ErrInsufficientFunds
		}

		account.AvailableBalance = account.AvailableBalance.Sub(req.Amount)
		if err := tx.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to update available balance: %w", err)
		}

		hold = &model.AccountHold{
			ID:        uuid.New(),
			AccountID: account.ID,
			TenantID:  tenantID,
			Amount:    req.Amount,
			HoldType:  req.HoldType,
			Reason:    req.Reason,
			ExpiresAt: req.ExpiresAt,
			Active:    true,
			CreatedAt: e.now(),
		}
		return tx.CreateHold(ctx, hold)
	})
	if err != nil {
		return nil, err
	}
	return hold, nil
}

// ReleaseHold returns held funds to the available balance. Release happens
// at most once: a hold that is already released is returned unchanged, so
// the expiry sweep and an explicit release cannot double-credit.
// An empty tenantID skips the tenant check for system callers.
func (e *Engine) ReleaseHold(ctx context.Context, tenantID string, holdID uuid.UUID) (*model.AccountHold, error) {
	var hold *model.AccountHold
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		h, err := tx.HoldForUpdate(ctx, holdID)
		if err != nil {
			return err
		}
		if tenantID != "" && h.TenantID != tenantID {
			return model.ErrHoldNotFound
		}
		hold = h
		if !h.Active {
			return nil
		}

		account, err := tx.AccountForUpdate(ctx, h.AccountID)
		if err != nil {
			return err
		}
		account.AvailableBalance = account.AvailableBalance.Add(h.Amount)
		if err := tx.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to restore available balance: %w", err)
		}

		now := e.now()
		h.Active = false
		h.ReleasedAt = &now
		return tx.SaveHold(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	return hold, nil
}

// ReleaseExpiredHolds sweeps holds past their expiry and releases each one.
// Returns the number released.
func (e *Engine) ReleaseExpiredHolds(ctx context.Context, now time.Time, batch int) (int, error) {
	holds, err := e.store.ListExpiredHolds(ctx, now, batch)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, h := range holds {
		if _, err := e.ReleaseHold(ctx, "", h.ID); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}
