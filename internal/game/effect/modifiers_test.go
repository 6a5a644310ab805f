package effect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

func TestFold_NoEffects_Zero(t *testing.T) {
	s := effect.NewActiveSet()
	assert.Equal(t, 0, effect.AttackModifier(s))
	assert.Equal(t, 0, effect.DefenseModifier(s))
	assert.Equal(t, 0, effect.SpeedModifier(s))
}

func TestFold_UpAndDownCancel(t *testing.T) {
	s := effect.NewActiveSet()
	_, _ = s.Apply(&effect.Def{ID: "battle_cry", Type: effect.AttackUp, Magnitude: 5, Duration: 3}, "a")
	_, _ = s.Apply(&effect.Def{ID: "weaken", Type: effect.AttackDown, Magnitude: 3, Duration: 3}, "b")
	assert.Equal(t, 2, effect.AttackModifier(s))
}

func TestFold_StackableAddsUp(t *testing.T) {
	s := effect.NewActiveSet()
	def := &effect.Def{ID: "rally", Type: effect.DefenseUp, Magnitude: 2, Duration: 3, Stackable: true}
	_, _ = s.Apply(def, "a")
	_, _ = s.Apply(def, "a")
	assert.Equal(t, 4, effect.DefenseModifier(s))
}

func TestIsStunned(t *testing.T) {
	s := effect.NewActiveSet()
	assert.False(t, effect.IsStunned(s))
	_, _ = s.Apply(&effect.Def{ID: "stun", Type: effect.Stun, Duration: 1}, "a")
	assert.True(t, effect.IsStunned(s))
}
