package notify

import (
	"context"
	"log"

	"github.com/fjordbank/core/internal/model"
)

// Notifier receives ledger lifecycle events. Implementations must not block;
// delivery is best-effort and never affects transaction outcomes.
type Notifier interface {
	TransferCompleted(ctx context.Context, transfer *model.Transfer)
	TransferFailed(ctx context.Context, transfer *model.Transfer, reason string)
	ScheduleExecuted(ctx context.Context, schedule *model.ScheduledTransaction)
	ScheduleDeactivated(ctx context.Context, schedule *model.ScheduledTransaction, reason string)
}

// LogNotifier writes events to the process log
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) TransferCompleted(_ context.Context, t *model.Transfer) {
	log.Printf("[NOTIFY] transfer %s completed: %s %s", t.ReferenceNumber, t.Amount, t.Currency)
}

func (n *LogNotifier) TransferFailed(_ context.Context, t *model.Transfer, reason string) {
	log.Printf("[NOTIFY] transfer %s failed: %s", t.ReferenceNumber, reason)
}

func (n *LogNotifier) ScheduleExecuted(_ context.Context, s *model.ScheduledTransaction) {
	log.Printf("[NOTIFY] schedule %s executed (count=%d)", s.ID, s.ExecutionCount)
}

func (n *LogNotifier) ScheduleDeactivated(_ context.Context, s *model.ScheduledTransaction, reason string) {
	log.Printf("[NOTIFY] schedule %s deactivated: %s", s.ID, reason)
}
