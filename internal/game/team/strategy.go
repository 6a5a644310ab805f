package team

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// Strategy selects the passive buff a team grants its members.
type Strategy string

const (
	Aggressive Strategy = "Aggressive"
	Defensive  Strategy = "Defensive"
	Supportive Strategy = "Supportive"
	Balanced   Strategy = "Balanced"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	_, ok := strategyBuffs[s]
	return ok
}

// ParseStrategy returns the Strategy named by name; empty means Balanced.
func ParseStrategy(name string) (Strategy, error) {
	if name == "" {
		return Balanced, nil
	}
	s := Strategy(name)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// Buffs returns the permanent effects the strategy applies to each member.
func (s Strategy) Buffs() []*effect.Def {
	return strategyBuffs[s]
}

var strategyBuffs = map[Strategy][]*effect.Def{
	Aggressive: {
		{ID: "team_aggressive", Name: "Aggressive stance", Type: effect.AttackUp, Magnitude: 5, Duration: effect.Permanent},
	},
	Defensive: {
		{ID: "team_defensive", Name: "Defensive stance", Type: effect.DefenseUp, Magnitude: 5, Duration: effect.Permanent},
	},
	Supportive: {
		{ID: "team_supportive", Name: "Supportive stance", Type: effect.SpeedUp, Magnitude: 3, Duration: effect.Permanent},
	},
	Balanced: {
		{ID: "team_balanced_attack", Name: "Balanced stance (attack)", Type: effect.AttackUp, Magnitude: 2, Duration: effect.Permanent},
		{ID: "team_balanced_defense", Name: "Balanced stance (defense)", Type: effect.DefenseUp, Magnitude: 2, Duration: effect.Permanent},
	},
}
