// Package effect implements timed status effects: immutable definitions loaded
// from YAML and the per-character set of active instances.
package effect

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Type classifies what an effect does to its bearer.
type Type string

const (
	AttackUp     Type = "attack_up"
	AttackDown   Type = "attack_down"
	DefenseUp    Type = "defense_up"
	DefenseDown  Type = "defense_down"
	SpeedUp      Type = "speed_up"
	SpeedDown    Type = "speed_down"
	Poison       Type = "poison"
	Bleed        Type = "bleed"
	Regeneration Type = "regeneration"
	Stun         Type = "stun"
	Taunt        Type = "taunt"
)

// Valid reports whether t is a known effect type.
func (t Type) Valid() bool {
	switch t {
	case AttackUp, AttackDown, DefenseUp, DefenseDown, SpeedUp, SpeedDown,
		Poison, Bleed, Regeneration, Stun, Taunt:
		return true
	}
	return false
}

// Permanent is the Duration value for effects that never expire on their own.
const Permanent = -1

// Def is the static definition of a status effect.
// A Def is never mutated after it has been registered.
type Def struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        Type   `yaml:"type"`
	Magnitude   int    `yaml:"magnitude"`
	Duration    int    `yaml:"duration"` // turns; -1 = permanent
	Stackable   bool   `yaml:"stackable"`
}

// Validate checks the definition's invariants.
//
// Postcondition: Returns nil iff ID is non-empty, Type is known, Magnitude >= 0,
// and Duration is positive or Permanent.
func (d *Def) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("effect: id must not be empty")
	}
	if !d.Type.Valid() {
		return fmt.Errorf("effect %q: unknown type %q", d.ID, d.Type)
	}
	if d.Magnitude < 0 {
		return fmt.Errorf("effect %q: magnitude must be >= 0", d.ID)
	}
	if d.Duration == 0 || d.Duration < Permanent {
		return fmt.Errorf("effect %q: duration must be > 0 or -1", d.ID)
	}
	return nil
}

// Registry holds all known Defs keyed by ID.
// It is read-only once loading has finished and may then be shared freely.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register adds def, overwriting any existing entry with the same ID.
//
// Precondition: def must not be nil and must pass Validate.
func (r *Registry) Register(def *Def) {
	r.defs[def.ID] = def
}

// Get returns the Def for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns every registered Def sorted by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int { return len(r.defs) }

// LoadDirectory reads every *.yaml file in dir, parses each as a Def with
// unknown fields rejected, and returns a populated Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
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
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}

// DefaultRegistry returns the built-in effect set used when no content
// directory is configured.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, d := range []*Def{
		{ID: "poison", Name: "Poison", Type: Poison, Magnitude: 5, Duration: 3},
		{ID: "bleed", Name: "Bleed", Type: Bleed, Magnitude: 3, Duration: 3, Stackable: true},
		{ID: "regeneration", Name: "Regeneration", Type: Regeneration, Magnitude: 8, Duration: 3},
		{ID: "battle_cry", Name: "Battle Cry", Type: AttackUp, Magnitude: 5, Duration: 3},
		{ID: "weaken", Name: "Weaken", Type: AttackDown, Magnitude: 4, Duration: 2},
		{ID: "stone_skin", Name: "Stone Skin", Type: DefenseUp, Magnitude: 5, Duration: 3},
		{ID: "armor_break", Name: "Armor Break", Type: DefenseDown, Magnitude: 5, Duration: 2},
		{ID: "haste", Name: "Haste", Type: SpeedUp, Magnitude: 3, Duration: 3},
		{ID: "slow", Name: "Slow", Type: SpeedDown, Magnitude: 3, Duration: 2},
		{ID: "stun", Name: "Stun", Type: Stun, Duration: 1},
		{ID: "taunt", Name: "Taunt", Type: Taunt, Duration: 2},
	} {
		reg.Register(d)
	}
	return reg
}
