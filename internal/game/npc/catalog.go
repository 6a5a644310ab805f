package npc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// ErrTemplateNotFound is returned when a template id is not in the catalogue.
var ErrTemplateNotFound = errors.New("enemy template not found")

// Catalog indexes enemy templates by id and spawns enemies from them.
// It is read-only after construction.
type Catalog struct {
	templates map[string]*Template
	skills    *skill.Registry
}

// NewCatalog builds a catalogue over templates, resolving template skill ids
// through skills.
//
// Postcondition: Returns an error when two templates share an id or a
// template references an unknown skill.
func NewCatalog(templates []*Template, skills *skill.Registry) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]*Template, len(templates)), skills: skills}
	for _, t := range templates {
		if _, dup := c.templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate enemy template %q", t.ID)
		}
		for _, id := range t.Skills {
			if _, ok := skills.Get(id); !ok {
				return nil, fmt.Errorf("enemy template %q: unknown skill %q", t.ID, id)
			}
		}
		c.templates[t.ID] = t
	}
	return c, nil
}

// Get returns the template for id.
func (c *Catalog) Get(id string) (*Template, bool) {
	t, ok := c.templates[id]
	return t, ok
}

// IDs returns every template id in sorted order.
func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(c.templates))
	for id := range c.templates {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Spawn clones the template into a live enemy with the given instance id.
//
// Postcondition: The enemy is at full health with its own skill instances
// and resistance map; mutating it never affects the template.
func (c *Catalog) Spawn(templateID, instanceID string) (*character.Enemy, error) {
	t, ok := c.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, templateID)
	}
	skills, err := c.skills.Instantiate(t.Skills...)
	if err != nil {
		return nil, fmt.Errorf("spawning %q: %w", templateID, err)
	}
	e := character.NewEnemy(instanceID, t.Name, t.MaxHealth, t.Attack, t.Defense, t.Speed)
	e.TemplateID = t.ID
	e.Behavior = character.Behavior(t.Behavior)
	e.ExpReward = t.ExpReward
	e.GoldReward = t.GoldReward
	e.Skills = skills
	e.AIScript = t.AIScript
	if len(t.Resistances) > 0 {
		e.Resistances = make(map[skill.Element]float64, len(t.Resistances))
		for elem, r := range t.Resistances {
			e.Resistances[skill.Element(elem)] = r
		}
	}
	return e, nil
}

// DefaultTemplates returns the built-in enemy roster.
func DefaultTemplates() []*Template {
	return []*Template{
		{ID: "goblin", Name: "Goblin", MaxHealth: 60, Attack: 18, Defense: 6, Speed: 13, Behavior: "Aggressive", ExpReward: 40, GoldReward: 15, Skills: []string{"poison_bite"}},
		{ID: "orc", Name: "Orc Brute", MaxHealth: 140, Attack: 24, Defense: 14, Speed: 8, Behavior: "Defensive", ExpReward: 80, GoldReward: 30, Skills: []string{"rend", "war_stomp"}},
		{ID: "wolf", Name: "Dire Wolf", MaxHealth: 70, Attack: 20, Defense: 5, Speed: 16, Behavior: "Coward", ExpReward: 35, GoldReward: 5, Skills: []string{"rend"}},
		{ID: "cultist", Name: "Dark Cultist", MaxHealth: 85, Attack: 16, Defense: 8, Speed: 11, Behavior: "Smart", ExpReward: 70, GoldReward: 40, Skills: []string{"dark_bolt", "dark_mend"}, Resistances: map[string]float64{"dark": 0.5, "holy": -0.5}},
		{ID: "fire_imp", Name: "Fire Imp", MaxHealth: 55, Attack: 17, Defense: 7, Speed: 14, Behavior: "Random", ExpReward: 45, GoldReward: 20, Skills: []string{"dark_bolt"}, Resistances: map[string]float64{"fire": 0.75, "ice": -0.25}},
		{ID: "frost_wyrm", Name: "Frost Wyrm", MaxHealth: 220, Attack: 28, Defense: 16, Speed: 9, Behavior: "Smart", ExpReward: 200, GoldReward: 120, Skills: []string{"frost_breath", "harden"}, Resistances: map[string]float64{"ice": 0.9, "fire": -0.5}},
	}
}
