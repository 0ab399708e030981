package job

import (
	"context"
	"log"
	"time"

	"github.com/fjordbank/core/internal/ledger"
)

const batchSize = 100

// Scheduler periodically runs due scheduled transactions and releases
// expired holds. Execution is safe to run from multiple processes: each
// schedule is locked and re-checked before executing.
type Scheduler struct {
	engine   *ledger.Engine
	store    ledger.Store
	interval time.Duration
	stopCh   chan struct{}
}

// NewScheduler creates a scheduler that wakes every interval
func NewScheduler(engine *ledger.Engine, store ledger.Store, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the scheduling loop until Stop() or context cancellation
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("[SCHEDULER] started, interval %s", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[SCHEDULER] stopping: context cancelled")
			return
		case <-s.stopCh:
			log.Println("[SCHEDULER] stopping: stop signal")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop signals the scheduler to stop
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// RunOnce executes one pass over due schedules and expired holds
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := time.Now()

	due, err := s.store.ListDueSchedules(ctx, now, batchSize)
	if err != nil {
		log.Printf("[SCHEDULER] failed to list due schedules: %v", err)
	} else {
		for _, sched := range due {
			executed, err := s.engine.ExecuteScheduled(ctx, sched.ID)
			if err != nil {
				log.Printf("[SCHEDULER] schedule %s execution error: %v", sched.ID, err)
				continue
			}
			if executed {
				log.Printf("[SCHEDULER] schedule %s executed", sched.ID)
			}
		}
	}

	released, err := s.engine.ReleaseExpiredHolds(ctx, now, batchSize)
	if err != nil {
		log.Printf("[SCHEDULER] failed to release expired holds: %v", err)
	} else if released > 0 {
		log.Printf("[SCHEDULER] released %d expired holds", released)
	}
}
