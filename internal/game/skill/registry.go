package skill

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// Registry holds skill prototypes keyed by ID. Prototypes are never handed
// out directly; Instantiate returns clones.
type Registry struct {
	skills map[string]*Skill
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]*Skill)}
}

// Register adds s, overwriting any existing entry with the same ID.
//
// Precondition: s must pass Validate.
func (r *Registry) Register(s *Skill) {
	r.skills[s.ID] = s
}

// Get returns the prototype for id.
func (r *Registry) Get(id string) (*Skill, bool) {
	s, ok := r.skills[id]
	return s, ok
}

// Instantiate returns fresh clones of the named skills in the given order.
//
// Postcondition: Returns an error naming the first unknown id.
func (r *Registry) Instantiate(ids ...string) ([]*Skill, error) {
	out := make([]*Skill, 0, len(ids))
	for _, id := range ids {
		s, ok := r.skills[id]
		if !ok {
			return nil, fmt.Errorf("skill %q not found", id)
		}
		out = append(out, s.Clone())
	}
	return out, nil
}

// All returns every prototype sorted by ID.
func (r *Registry) All() []*Skill {
	out := make([]*Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CheckEffects verifies every effect id referenced by a skill exists in effects.
func (r *Registry) CheckEffects(effects *effect.Registry) error {
	for _, s := range r.All() {
		for _, id := range s.Effects {
			if _, ok := effects.Get(id); !ok {
				return fmt.Errorf("skill %q: unknown effect %q", s.ID, id)
			}
		}
	}
	return nil
}

// LoadSkillFromBytes parses and validates a single skill.
func LoadSkillFromBytes(data []byte) (*Skill, error) {
	var s Skill
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing skill YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadDirectory reads every *.yaml file in dir into a new Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Registry or the first load error.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading skill dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		s, err := LoadSkillFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		reg.Register(s)
	}
	return reg, nil
}

// DefaultRegistry returns the built-in skill set.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, s := range []*Skill{
		// warrior
		{ID: "power_strike", Name: "Power Strike", Damage: 30, ManaCost: 15, MaxCooldown: 2, TargetType: TargetSingle, Element: ElementPhysical},
		{ID: "battle_cry", Name: "Battle Cry", ManaCost: 10, MaxCooldown: 3, TargetType: TargetSelf, Effects: []string{"battle_cry"}, Element: ElementNone},
		{ID: "provoke", Name: "Provoke", ManaCost: 5, MaxCooldown: 3, TargetType: TargetSingle, Effects: []string{"taunt"}, Element: ElementNone},
		{ID: "cleave", Name: "Cleave", Damage: 20, ManaCost: 20, MaxCooldown: 3, TargetType: TargetArea, Effects: []string{"bleed"}, Element: ElementPhysical},
		// mage
		{ID: "fireball", Name: "Fireball", Damage: 55, ManaCost: 30, MaxCooldown: 2, TargetType: TargetSingle, Element: ElementFire},
		{ID: "blizzard", Name: "Blizzard", Damage: 25, ManaCost: 40, MaxCooldown: 3, TargetType: TargetAllEnemies, Effects: []string{"slow"}, Element: ElementIce},
		{ID: "chain_lightning", Name: "Chain Lightning", Damage: 35, ManaCost: 35, MaxCooldown: 3, TargetType: TargetArea, Element: ElementLightning},
		{ID: "arcane_weaken", Name: "Arcane Weakness", ManaCost: 15, MaxCooldown: 2, TargetType: TargetSingle, Effects: []string{"weaken", "armor_break"}, Element: ElementDark},
		// healer
		{ID: "heal", Name: "Heal", Healing: 40, ManaCost: 20, MaxCooldown: 1, TargetType: TargetSingle, Element: ElementHoly},
		{ID: "group_heal", Name: "Group Heal", Healing: 20, ManaCost: 35, MaxCooldown: 3, TargetType: TargetAllAllies, Element: ElementHoly},
		{ID: "smite", Name: "Smite", Damage: 25, ManaCost: 15, MaxCooldown: 1, TargetType: TargetSingle, Element: ElementHoly},
		{ID: "renew", Name: "Renew", ManaCost: 15, MaxCooldown: 2, TargetType: TargetSingle, Effects: []string{"regeneration"}, Element: ElementHoly},
		// enemy
		{ID: "poison_bite", Name: "Poison Bite", Damage: 10, MaxCooldown: 2, TargetType: TargetSingle, Effects: []string{"poison"}, Element: ElementPhysical},
		{ID: "rend", Name: "Rend", Damage: 12, MaxCooldown: 2, TargetType: TargetSingle, Effects: []string{"bleed"}, Element: ElementPhysical},
		{ID: "frost_breath", Name: "Frost Breath", Damage: 18, MaxCooldown: 3, TargetType: TargetAllEnemies, Effects: []string{"slow"}, Element: ElementIce},
		{ID: "dark_bolt", Name: "Dark Bolt", Damage: 22, MaxCooldown: 1, TargetType: TargetRandom, Element: ElementDark},
		{ID: "war_stomp", Name: "War Stomp", Damage: 8, MaxCooldown: 4, TargetType: TargetArea, Effects: []string{"stun"}, Element: ElementPhysical},
		{ID: "dark_mend", Name: "Dark Mend", Healing: 15, MaxCooldown: 2, TargetType: TargetAllAllies, Element: ElementDark},
		{ID: "harden", Name: "Harden", MaxCooldown: 3, TargetType: TargetSelf, Effects: []string{"stone_skin"}, Element: ElementNone},
	} {
		reg.Register(s)
	}
	return reg
}
