package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fjordbank/core/internal/model"
)

// CreateSchedule registers a recurring internal transfer. Both accounts must
// be active, same-tenant and same-currency at creation time.
func (e *Engine) CreateSchedule(ctx context.Context, tenantID string, userID uuid.UUID, req model.CreateScheduleRequest) (*model.ScheduledTransaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var sched *model.ScheduledTransaction
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		from, to, err := e.lockAccountPair(ctx, tx, req.AccountID, req.DestinationID)
		if err != nil {
			return err
		}
		if from.TenantID != tenantID || to.TenantID != tenantID {
			return model.ErrAccountNotFound
		}
		if !from.IsActive() || !to.IsActive() {
			return model.ErrAccountInactive
		}
		if from.Currency != to.Currency {
			return model.ErrCurrencyMismatch
		}

		now := e.now()
		sched = &model.ScheduledTransaction{
			ID:            uuid.New(),
			AccountID:     from.ID,
			DestinationID: to.ID,
			UserID:        userID,
			TenantID:      tenantID,
			Amount:        req.Amount,
			Currency:      from.Currency,
			Description:   req.Description,
			Frequency:     req.Frequency,
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			NextExecution: req.StartDate,
			Status:        model.ScheduleStatusActive,
			MaxExecutions: req.MaxExecutions,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return tx.CreateSchedule(ctx, sched)
	})
	if err != nil {
		return nil, err
	}
	return sched, nil
}

// ExecuteScheduled runs one due schedule. The schedule row is locked first,
// so concurrent scheduler passes cannot double-execute: whoever loses the
// race finds the schedule no longer due and returns without executing.
//
// Outcomes:
//   - executed: transfer legs written, counters advanced
//   - miss: insufficient funds on a recurring schedule advances
//     NextExecution without executing and without failing the schedule
//   - finished: an active schedule past its end date or execution cap
//     moves to completed without executing
//   - deactivated: an inactive account permanently cancels the schedule
func (e *Engine) ExecuteScheduled(ctx context.Context, scheduleID uuid.UUID) (bool, error) {
	var (
		executed    *model.ScheduledTransaction
		deactivated *model.ScheduledTransaction
		reason      string
	)

	err := e.store.WithinTx(ctx, func(tx Tx) error {
		sched, err := tx.ScheduleForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		now := e.now()
		if !sched.ShouldExecute(now) {
			// An active schedule with nothing left to run is finished,
			// not due. Without this it would stay in the due list forever.
			if sched.Status == model.ScheduleStatusActive && sched.Exhausted(now) {
				sched.Status = model.ScheduleStatusCompleted
				sched.UpdatedAt = now
				return tx.SaveSchedule(ctx, sched)
			}
			return nil
		}

		from, to, err := e.lockAccountPair(ctx, tx, sched.AccountID, sched.DestinationID)
		if err != nil {
			return err
		}

		deactivate := func(why string) error {
			sched.Status = model.ScheduleStatusCancelled
			sched.UpdatedAt = now
			deactivated, reason = sched, why
			return tx.SaveSchedule(ctx, sched)
		}

		if !from.IsActive() || !to.IsActive() {
			return deactivate("account is not active")
		}
		if from.Currency != to.Currency {
			return deactivate("account currencies no longer match")
		}

		if !from.CanCover(sched.Amount) {
			// A missed run is not a failure. Recurring schedules skip to
			// the next occurrence; a one-shot has no next occurrence.
			next, ok := sched.NextAfter()
			if !ok {
				return deactivate("insufficient funds")
			}
			sched.NextExecution = next
			sched.UpdatedAt = now
			return tx.SaveSchedule(ctx, sched)
		}

		description := sched.Description
		if description == "" {
			description = "scheduled transfer"
		}
		transfer := &model.Transfer{
			ID:              uuid.New(),
			ReferenceNumber: model.GenerateTransferRef(),
			TenantID:        sched.TenantID,
			FromAccountID:   from.ID,
			ToAccountID:     &to.ID,
			Type:            model.TransferTypeInternal,
			Amount:          sched.Amount,
			Currency:        sched.Currency,
			Status:          model.TransferStatusCompleted,
			Description:     description,
			ProcessedAt:     &now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.CreateTransfer(ctx, transfer); err != nil {
			return fmt.Errorf("failed to create transfer: %w", err)
		}
		debit, credit, err := e.writeTransferLegs(ctx, tx, transfer, from, to, sched.UserID, sched.Amount, description)
		if err != nil {
			return err
		}
		transfer.DebitTransaction = &debit.ID
		transfer.CreditTransaction = &credit.ID
		if err := tx.SaveTransfer(ctx, transfer); err != nil {
			return err
		}

		sched.LastExecution = &now
		sched.ExecutionCount++
		sched.UpdatedAt = now

		next, ok := sched.NextAfter()
		switch {
		case !ok:
			sched.Status = model.ScheduleStatusCompleted
		case sched.MaxExecutions != nil && sched.ExecutionCount >= *sched.MaxExecutions:
			sched.Status = model.ScheduleStatusCompleted
		case sched.EndDate != nil && next.After(*sched.EndDate):
			sched.Status = model.ScheduleStatusCompleted
			sched.NextExecution = next
		default:
			sched.NextExecution = next
		}
		executed = sched
		return tx.SaveSchedule(ctx, sched)
	})
	if err != nil {
		return false, err
	}

	if executed != nil {
		e.notifier.ScheduleExecuted(ctx, executed)
		return true, nil
	}
	if deactivated != nil {
		e.notifier.ScheduleDeactivated(ctx, deactivated, reason)
	}
	return false, nil
}

// PauseSchedule suspends an active schedule
func (e *Engine) PauseSchedule(ctx context.Context, tenantID string, scheduleID uuid.UUID) (*model.ScheduledTransaction, error) {
	return e.updateScheduleStatus(ctx, tenantID, scheduleID, model.ScheduleStatusActive, model.ScheduleStatusPaused)
}

// ResumeSchedule reactivates a paused schedule
func (e *Engine) ResumeSchedule(ctx context.Context, tenantID string, scheduleID uuid.UUID) (*model.ScheduledTransaction, error) {
	return e.updateScheduleStatus(ctx, tenantID, scheduleID, model.ScheduleStatusPaused, model.ScheduleStatusActive)
}

// CancelSchedule permanently cancels an active or paused schedule
func (e *Engine) CancelSchedule(ctx context.Context, tenantID string, scheduleID uuid.UUID) (*model.ScheduledTransaction, error) {
	var sched *model.ScheduledTransaction
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		s, err := tx.ScheduleForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		if s.TenantID != tenantID {
			return model.ErrScheduleNotFound
		}
		if s.Status != model.ScheduleStatusActive && s.Status != model.ScheduleStatusPaused {
			return model.ErrInvalidStateChange
		}
		s.Status = model.ScheduleStatusCancelled
		s.UpdatedAt = e.now()
		sched = s
		return tx.SaveSchedule(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return sched, nil
}

func (e *Engine) updateScheduleStatus(ctx context.Context, tenantID string, scheduleID uuid.UUID, from, to model.ScheduleStatus) (*model.ScheduledTransaction, error) {
	var sched *model.ScheduledTransaction
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		s, err := tx.ScheduleForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		if s.TenantID != tenantID {
			return model.ErrScheduleNotFound
		}
		if s.Status != from {
			return model.ErrInvalidStateChange
		}
		s.Status = to
		s.UpdatedAt = e.now()
		sched = s
		return tx.SaveSchedule(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return sched, nil
}
