package battle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
)

func TestTurnTimer_Fires(t *testing.T) {
	var called atomic.Int32
	tt := battle.NewTurnTimer(20 * time.Millisecond)
	tt.Arm(func() { called.Add(1) })
	assert.Eventually(t, func() bool { return called.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTurnTimer_Stop_PreventsCallback(t *testing.T) {
	var called atomic.Int32
	tt := battle.NewTurnTimer(30 * time.Millisecond)
	tt.Arm(func() { called.Add(1) })
	tt.Stop()
	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, called.Load())
}

func TestTurnTimer_Arm_SupersedesPrevious(t *testing.T) {
	var first, second atomic.Int32
	tt := battle.NewTurnTimer(40 * time.Millisecond)
	tt.Arm(func() { first.Add(1) })
	time.Sleep(10 * time.Millisecond)
	tt.Arm(func() { second.Add(1) })
	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, first.Load())
}

func TestTurnTimer_StopIdempotent(t *testing.T) {
	tt := battle.NewTurnTimer(50 * time.Millisecond)
	tt.Stop()
	tt.Arm(func() {})
	tt.Stop()
	tt.Stop()
	assert.Equal(t, 50*time.Millisecond, tt.Timeout())
}
