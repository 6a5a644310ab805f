// Package npc provides enemy template definitions and the catalogue they are
// spawned from.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// Template defines a reusable enemy archetype loaded from YAML.
// Templates are immutable once loaded; battles receive clones.
type Template struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	MaxHealth   int                `yaml:"max_health"`
	Attack      int                `yaml:"attack"`
	Defense     int                `yaml:"defense"`
	Speed       int                `yaml:"speed"`
	Behavior    string             `yaml:"behavior"`
	Resistances map[string]float64 `yaml:"resistances"`
	ExpReward   int                `yaml:"exp_reward"`
	GoldReward  int                `yaml:"gold_reward"`
	Skills      []string           `yaml:"skills"`
	// AIScript names a Lua hook function; empty = archetype behaviour only.
	AIScript string `yaml:"ai_script"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHealth >= 1,
// Attack and Speed >= 1, Defense >= 0, rewards >= 0, Behavior is known (empty
// defaults to Aggressive), and every resistance names a known element with a
// value in [-1, 1].
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	if t.MaxHealth < 1 {
		return fmt.Errorf("npc template %q: max_health must be >= 1", t.ID)
	}
	if t.Attack < 1 || t.Speed < 1 {
		return fmt.Errorf("npc template %q: attack and speed must be >= 1", t.ID)
	}
	if t.Defense < 0 {
		return fmt.Errorf("npc template %q: defense must be >= 0", t.ID)
	}
	if t.ExpReward < 0 || t.GoldReward < 0 {
		return fmt.Errorf("npc template %q: rewards must be >= 0", t.ID)
	}
	if t.Behavior == "" {
		t.Behavior = string(character.Aggressive)
	}
	if _, err := character.ParseBehavior(t.Behavior); err != nil {
		return fmt.Errorf("npc template %q: %w", t.ID, err)
	}
	for elem, r := range t.Resistances {
		if !skill.Element(elem).Valid() {
			return fmt.Errorf("npc template %q: unknown resistance element %q", t.ID, elem)
		}
		if r < -1 || r > 1 {
			return fmt.Errorf("npc template %q: resistance %q must be within [-1, 1]", t.ID, elem)
		}
	}
	return nil
}

// LoadTemplateFromBytes parses a single enemy template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
