package battle

import (
	"sync"
	"time"
)

// TurnTimer fires a callback when a player's turn runs out. Each Arm
// replaces the previous deadline; a superseded callback never runs.
// It is safe for concurrent use.
type TurnTimer struct {
	mu      sync.Mutex
	timeout time.Duration
	timer   *time.Timer
	gen     uint64
}

// NewTurnTimer creates a stopped timer with the given turn timeout.
//
// Precondition: timeout > 0.
func NewTurnTimer(timeout time.Duration) *TurnTimer {
	return &TurnTimer{timeout: timeout}
}

// Timeout returns the configured turn timeout.
func (tt *TurnTimer) Timeout() time.Duration { return tt.timeout }

// Arm cancels any pending deadline and schedules onFire after the timeout.
// onFire is called in a separate goroutine.
//
// Precondition: onFire must not be nil.
// Postcondition: onFire runs once after the timeout unless Arm or Stop is
// called first.
func (tt *TurnTimer) Arm(onFire func()) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if tt.timer != nil {
		tt.timer.Stop()
	}
	tt.gen++
	gen := tt.gen
	tt.timer = time.AfterFunc(tt.timeout, func() {
		tt.mu.Lock()
		live := tt.gen == gen
		tt.mu.Unlock()
		if live {
			onFire()
		}
	})
}

// Stop prevents any pending callback from firing. Safe to call multiple
// times.
//
// Postcondition: no callback armed before Stop runs after Stop returns.
func (tt *TurnTimer) Stop() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.gen++
	if tt.timer != nil {
		tt.timer.Stop()
		tt.timer = nil
	}
}
