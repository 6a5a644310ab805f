package character

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// Class is a player's combat role.
type Class string

const (
	Warrior Class = "Warrior"
	Mage    Class = "Mage"
	Healer  Class = "Healer"
)

// ErrUnknownClass is returned for a class name with no preset.
var ErrUnknownClass = errors.New("unknown class")

// ParseClass returns the Class named by s.
func ParseClass(s string) (Class, error) {
	switch c := Class(s); c {
	case Warrior, Mage, Healer:
		return c, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownClass, s)
}

// ClassPreset is the level 1 stat line and starting kit for a class.
type ClassPreset struct {
	Health  int
	Attack  int
	Defense int
	Speed   int
	Mana    int
	Skills  []string
}

// Presets holds the starting preset for every class.
var Presets = map[Class]ClassPreset{
	Warrior: {Health: 120, Attack: 25, Defense: 20, Speed: 10, Mana: 50, Skills: []string{"power_strike", "battle_cry", "provoke", "cleave"}},
	Mage:    {Health: 80, Attack: 15, Defense: 8, Speed: 12, Mana: 100, Skills: []string{"fireball", "blizzard", "chain_lightning", "arcane_weaken"}},
	Healer:  {Health: 90, Attack: 12, Defense: 12, Speed: 11, Mana: 120, Skills: []string{"heal", "group_heal", "smite", "renew"}},
}

// Stats are per-session battle statistics.
type Stats struct {
	Wins        int
	Losses      int
	DamageDealt int
	HealingDone int
	Kills       int
}

// Player is a client-controlled character.
type Player struct {
	Character
	Class      Class
	Level      int
	Experience int
	Gold       int
	Mana       int
	MaxMana    int
	Skills     []*skill.Skill
	Items      map[string]int
	TeamID     string
	OwnerID    string
	Stats      Stats
}

// NewPlayer builds a level 1 player of class from its preset, cloning the
// class starting skills out of skills.
//
// Precondition: id and name must be non-empty.
// Postcondition: Returns a player at full health and mana, or an error when
// the class is unknown or a starting skill is missing from skills.
func NewPlayer(id, name string, class Class, skills *skill.Registry) (*Player, error) {
	preset, ok := Presets[class]
	if !ok {
		return nil, fmt.Errorf("unknown class %q", class)
	}
	learned, err := skills.Instantiate(preset.Skills...)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", class, err)
	}
	return &Player{
		Character: newCharacter(id, name, KindPlayer, preset.Health, preset.Attack, preset.Defense, preset.Speed),
		Class:     class,
		Level:     1,
		Mana:      preset.Mana,
		MaxMana:   preset.Mana,
		Skills:    learned,
		Items:     StartingItems(),
	}, nil
}

// SkillByID returns the player's own instance of the skill.
func (p *Player) SkillByID(id string) (*skill.Skill, bool) {
	for _, s := range p.Skills {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// TickCooldowns decrements every skill cooldown by one.
func (p *Player) TickCooldowns() {
	for _, s := range p.Skills {
		s.TickCooldown()
	}
}

// RestoreMana adds amount, capped at MaxMana. Returns the mana restored.
func (p *Player) RestoreMana(amount int) int {
	if amount <= 0 {
		return 0
	}
	restored := min(amount, p.MaxMana-p.Mana)
	p.Mana += restored
	return restored
}

// ExperienceToLevel is the experience needed to advance from level.
func ExperienceToLevel(level int) int { return level * 100 }

// GainExperience adds exp and applies every level up it pays for.
//
// Postcondition: Experience < ExperienceToLevel(Level). Returns the number of
// levels gained.
func (p *Player) GainExperience(exp int) int {
	if exp <= 0 {
		return 0
	}
	p.Experience += exp
	gained := 0
	for p.Experience >= ExperienceToLevel(p.Level) {
		p.Experience -= ExperienceToLevel(p.Level)
		p.Level++
		p.MaxHealth += 10
		p.Attack += 2
		p.Defense++
		p.MaxMana += 5
		if p.IsAlive() {
			p.Health = min(p.Health+10, p.MaxHealth)
		}
		p.Mana = min(p.Mana+5, p.MaxMana)
		gained++
	}
	return gained
}
