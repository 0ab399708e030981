package ledger

import "time"

// SetNow overrides the engine clock in tests
func (e *Engine) SetNow(f func() time.Time) {
	e.now = f
}
