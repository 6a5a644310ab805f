// Package skill defines learnable combat skills and the registry they are
// loaded into.
package skill

import (
	"fmt"
)

// TargetType selects which characters a skill resolves against.
type TargetType string

const (
	TargetSelf       TargetType = "Self"
	TargetSingle     TargetType = "Single"
	TargetAllEnemies TargetType = "AllEnemies"
	TargetAllAllies  TargetType = "AllAllies"
	TargetArea       TargetType = "Area"
	TargetRandom     TargetType = "Random"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetSelf, TargetSingle, TargetAllEnemies, TargetAllAllies, TargetArea, TargetRandom:
		return true
	}
	return false
}

// Offensive reports whether the target type selects opponents of the caster.
func (t TargetType) Offensive() bool {
	return t == TargetAllEnemies || t == TargetArea || t == TargetRandom
}

// Element tags a skill's damage for resistance lookups.
type Element string

const (
	ElementNone      Element = "none"
	ElementPhysical  Element = "physical"
	ElementFire      Element = "fire"
	ElementIce       Element = "ice"
	ElementLightning Element = "lightning"
	ElementHoly      Element = "holy"
	ElementDark      Element = "dark"
)

// Valid reports whether e is a known element.
func (e Element) Valid() bool {
	switch e {
	case ElementNone, ElementPhysical, ElementFire, ElementIce, ElementLightning, ElementHoly, ElementDark:
		return true
	}
	return false
}

// Skill is one learned ability. Cooldown is the live counter and belongs to
// the owning character; skills are cloned before being handed to a character.
type Skill struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Damage      int        `yaml:"damage"`
	Healing     int        `yaml:"healing"`
	ManaCost    int        `yaml:"mana_cost"`
	Cooldown    int        `yaml:"cooldown"`
	MaxCooldown int        `yaml:"max_cooldown"`
	TargetType  TargetType `yaml:"target"`
	Effects     []string   `yaml:"effects"`
	Element     Element    `yaml:"element"`
}

// Validate checks that the skill satisfies basic invariants.
//
// Precondition: s must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, every magnitude is
// non-negative, and TargetType and Element are known. An empty Element is
// normalised to ElementNone.
func (s *Skill) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill: id must not be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("skill %q: name must not be empty", s.ID)
	}
	if s.Damage < 0 || s.Healing < 0 || s.ManaCost < 0 {
		return fmt.Errorf("skill %q: damage, healing and mana_cost must be >= 0", s.ID)
	}
	if s.Cooldown < 0 || s.MaxCooldown < 0 {
		return fmt.Errorf("skill %q: cooldowns must be >= 0", s.ID)
	}
	if !s.TargetType.Valid() {
		return fmt.Errorf("skill %q: unknown target type %q", s.ID, s.TargetType)
	}
	if s.Element == "" {
		s.Element = ElementNone
	}
	if !s.Element.Valid() {
		return fmt.Errorf("skill %q: unknown element %q", s.ID, s.Element)
	}
	return nil
}

// Ready reports whether the skill is off cooldown.
func (s *Skill) Ready() bool { return s.Cooldown == 0 }

// StartCooldown puts the skill on cooldown after use: MaxCooldown when set,
// otherwise the configured Cooldown value is kept.
func (s *Skill) StartCooldown() {
	if s.MaxCooldown > 0 {
		s.Cooldown = s.MaxCooldown
	}
}

// TickCooldown decrements the cooldown counter, never below zero.
func (s *Skill) TickCooldown() {
	if s.Cooldown > 0 {
		s.Cooldown--
	}
}

// Clone returns an independent copy of the skill.
func (s *Skill) Clone() *Skill {
	cp := *s
	if s.Effects != nil {
		cp.Effects = append([]string(nil), s.Effects...)
	}
	return &cp
}
