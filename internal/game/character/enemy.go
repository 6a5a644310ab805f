package character

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// Behavior is an enemy's decision archetype.
type Behavior string

const (
	Aggressive Behavior = "Aggressive"
	Defensive  Behavior = "Defensive"
	Smart      Behavior = "Smart"
	Coward     Behavior = "Coward"
	Random     Behavior = "Random"
)

// ParseBehavior returns the Behavior named by s.
func ParseBehavior(s string) (Behavior, error) {
	switch b := Behavior(s); b {
	case Aggressive, Defensive, Smart, Coward, Random:
		return b, nil
	}
	return "", fmt.Errorf("unknown behavior %q", s)
}

// Enemy is a server-controlled character cloned from a template.
type Enemy struct {
	Character
	TemplateID  string
	Behavior    Behavior
	Resistances map[skill.Element]float64
	ExpReward   int
	GoldReward  int
	Skills      []*skill.Skill
	// AIScript names a Lua hook that overrides Behavior when it returns a valid choice.
	AIScript string
}

// NewEnemy builds an enemy at full health.
func NewEnemy(id, name string, health, attack, defense, speed int) *Enemy {
	return &Enemy{
		Character: newCharacter(id, name, KindEnemy, health, attack, defense, speed),
		Behavior:  Aggressive,
	}
}

// Resistance returns the resistance to element, or zero when none is listed.
func (e *Enemy) Resistance(element skill.Element) float64 {
	if e.Resistances == nil {
		return 0
	}
	return e.Resistances[element]
}

// SkillByID returns the enemy's own instance of the skill.
func (e *Enemy) SkillByID(id string) (*skill.Skill, bool) {
	for _, s := range e.Skills {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// TickCooldowns decrements every skill cooldown by one.
func (e *Enemy) TickCooldowns() {
	for _, s := range e.Skills {
		s.TickCooldown()
	}
}
