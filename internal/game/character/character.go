// Package character defines the combat data model: the shared Character core
// and the Player and Enemy kinds built around it.
package character

import (
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// Kind distinguishes players from enemies.
type Kind string

const (
	KindPlayer Kind = "Player"
	KindEnemy  Kind = "Enemy"
)

// Combatant is implemented by every character kind. It exposes the shared
// core the resolver operates on.
type Combatant interface {
	Base() *Character
}

// Character holds the state shared by players and enemies.
//
// Invariant: 0 <= Health <= MaxHealth.
type Character struct {
	ID        string
	Name      string
	Kind      Kind
	Health    int
	MaxHealth int
	Attack    int
	Defense   int
	Speed     int
	// BonusDefense is a flat, non-expiring defense bonus (defend, invasion buff).
	BonusDefense int
	Effects      *effect.ActiveSet
	// TauntedBy is the id of the character this one is compelled to attack.
	TauntedBy string
	Fled      bool
}

func newCharacter(id, name string, kind Kind, health, attack, defense, speed int) Character {
	return Character{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Health:    health,
		MaxHealth: health,
		Attack:    attack,
		Defense:   defense,
		Speed:     speed,
		Effects:   effect.NewActiveSet(),
	}
}

// Base returns c itself.
func (c *Character) Base() *Character { return c }

// IsAlive reports whether Health is above zero.
func (c *Character) IsAlive() bool { return c.Health > 0 }

// CanAct reports whether the character is alive and still on the field.
func (c *Character) CanAct() bool { return c.IsAlive() && !c.Fled }

// ModifiedAttack folds attack buffs and debuffs into the base stat.
//
// Postcondition: result >= 1.
func (c *Character) ModifiedAttack() int {
	return max(1, c.Attack+effect.AttackModifier(c.Effects))
}

// ModifiedDefense folds defense buffs, debuffs and BonusDefense into the base stat.
//
// Postcondition: result >= 0.
func (c *Character) ModifiedDefense() int {
	return max(0, c.Defense+c.BonusDefense+effect.DefenseModifier(c.Effects))
}

// ModifiedSpeed folds speed buffs and debuffs into the base stat.
//
// Postcondition: result >= 1.
func (c *Character) ModifiedSpeed() int {
	return max(1, c.Speed+effect.SpeedModifier(c.Effects))
}

// TakeDamage subtracts amount from Health, clamping at zero.
// Returns the damage actually dealt.
func (c *Character) TakeDamage(amount int) int {
	if amount <= 0 || c.Health == 0 {
		return 0
	}
	dealt := min(amount, c.Health)
	c.Health -= dealt
	return dealt
}

// Heal adds amount to Health, capped at MaxHealth. Dead characters are not healed.
// Returns the healing actually applied.
func (c *Character) Heal(amount int) int {
	if amount <= 0 || !c.IsAlive() {
		return 0
	}
	healed := min(amount, c.MaxHealth-c.Health)
	c.Health += healed
	return healed
}

// IsStunned reports whether a stun effect is active.
func (c *Character) IsStunned() bool { return effect.IsStunned(c.Effects) }

// ApplyStatusEffect applies def on behalf of sourceID. A taunt also points
// TauntedBy at the source.
//
// Precondition: def must not be nil.
func (c *Character) ApplyStatusEffect(def *effect.Def, sourceID string) (*effect.Active, error) {
	a, err := c.Effects.Apply(def, sourceID)
	if err != nil {
		return nil, err
	}
	if def.Type == effect.Taunt {
		c.TauntedBy = sourceID
	}
	return a, nil
}

// ProcessStatusEffects runs one tick of every active effect: damage over
// time, healing over time, duration countdown and expiry.
//
// Postcondition: Health stays within [0, MaxHealth]; an expired taunt clears
// TauntedBy only when it still points at that taunt's source.
func (c *Character) ProcessStatusEffects() effect.TickResult {
	res := c.Effects.Tick()
	c.TakeDamage(res.Damage)
	c.Heal(res.Healing)
	c.releaseTaunts(res.Expired)
	return res
}

// ClearStatusEffect removes every active instance of id.
func (c *Character) ClearStatusEffect(id string) {
	c.releaseTaunts(c.Effects.Remove(id))
}

// ClearEffectsFromSource removes every effect applied by sourceID.
func (c *Character) ClearEffectsFromSource(sourceID string) {
	c.releaseTaunts(c.Effects.RemoveBySource(sourceID))
}

func (c *Character) releaseTaunts(removed []*effect.Active) {
	for _, a := range removed {
		if a.Def.Type == effect.Taunt && c.TauntedBy == a.SourceID {
			c.TauntedBy = ""
		}
	}
}
