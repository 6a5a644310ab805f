// Package npc_test contains completeness tests for the shipped content tree.
package npc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

const contentRoot = "../../../content"

func loadContent(t *testing.T) (*effect.Registry, *skill.Registry, []*npc.Template) {
	t.Helper()
	effects, err := effect.LoadDirectory(contentRoot + "/effects")
	require.NoError(t, err, "content/effects should load without error")
	skills, err := skill.LoadDirectory(contentRoot + "/skills")
	require.NoError(t, err, "content/skills should load without error")
	templates, err := npc.LoadTemplates(contentRoot + "/enemies")
	require.NoError(t, err, "content/enemies should load without error")
	return effects, skills, templates
}

// TestContent_CatalogBuilds verifies every enemy skill reference resolves.
func TestContent_CatalogBuilds(t *testing.T) {
	_, skills, templates := loadContent(t)
	require.NotEmpty(t, templates)
	c, err := npc.NewCatalog(templates, skills)
	require.NoError(t, err)
	for _, id := range c.IDs() {
		e, err := c.Spawn(id, "x-"+id)
		require.NoError(t, err)
		assert.True(t, e.IsAlive())
	}
}

// TestContent_SkillEffectsResolve verifies every effect a skill applies is defined.
func TestContent_SkillEffectsResolve(t *testing.T) {
	effects, skills, _ := loadContent(t)
	for _, s := range skills.All() {
		for _, id := range s.Effects {
			_, ok := effects.Get(id)
			assert.True(t, ok, "skill %q applies unknown effect %q", s.ID, id)
		}
	}
}

// TestContent_ClassSkillsResolve verifies every class preset skill is defined.
func TestContent_ClassSkillsResolve(t *testing.T) {
	_, skills, _ := loadContent(t)
	for class, preset := range character.Presets {
		for _, id := range preset.Skills {
			_, ok := skills.Get(id)
			assert.True(t, ok, "class %s starts with unknown skill %q", class, id)
		}
	}
}

// TestContent_MatchesBuiltins verifies the content tree and the built-in
// defaults define the same ids.
func TestContent_MatchesBuiltins(t *testing.T) {
	effects, skills, templates := loadContent(t)

	ids := func(n int, at func(int) string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = at(i)
		}
		return out
	}

	de, le := effect.DefaultRegistry().All(), effects.All()
	assert.ElementsMatch(t,
		ids(len(de), func(i int) string { return de[i].ID }),
		ids(len(le), func(i int) string { return le[i].ID }))

	ds, ls := skill.DefaultRegistry().All(), skills.All()
	assert.ElementsMatch(t,
		ids(len(ds), func(i int) string { return ds[i].ID }),
		ids(len(ls), func(i int) string { return ls[i].ID }))

	dt := npc.DefaultTemplates()
	assert.ElementsMatch(t,
		ids(len(dt), func(i int) string { return dt[i].ID }),
		ids(len(templates), func(i int) string { return templates[i].ID }))
}
