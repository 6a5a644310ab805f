package skill_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

func TestSkill_StartCooldown_UsesMax(t *testing.T) {
	s := &skill.Skill{ID: "fireball", MaxCooldown: 2}
	require.True(t, s.Ready())
	s.StartCooldown()
	assert.Equal(t, 2, s.Cooldown)
	assert.False(t, s.Ready())
	s.TickCooldown()
	s.TickCooldown()
	s.TickCooldown()
	assert.Equal(t, 0, s.Cooldown)
}

func TestSkill_StartCooldown_NoMaxKeepsCooldown(t *testing.T) {
	s := &skill.Skill{ID: "jab"}
	s.StartCooldown()
	assert.True(t, s.Ready())
}

func TestSkill_Clone_Independent(t *testing.T) {
	s := &skill.Skill{ID: "cleave", Effects: []string{"bleed"}}
	cp := s.Clone()
	cp.Cooldown = 3
	cp.Effects[0] = "poison"
	assert.Equal(t, 0, s.Cooldown)
	assert.Equal(t, "bleed", s.Effects[0])
}

func TestSkill_Validate(t *testing.T) {
	valid := &skill.Skill{ID: "x", Name: "X", TargetType: skill.TargetSingle}
	require.NoError(t, valid.Validate())
	assert.Equal(t, skill.ElementNone, valid.Element)

	assert.Error(t, (&skill.Skill{Name: "X", TargetType: skill.TargetSelf}).Validate())
	assert.Error(t, (&skill.Skill{ID: "x", Name: "X", TargetType: "Everyone"}).Validate())
	assert.Error(t, (&skill.Skill{ID: "x", Name: "X", TargetType: skill.TargetSelf, Damage: -1}).Validate())
	assert.Error(t, (&skill.Skill{ID: "x", Name: "X", TargetType: skill.TargetSelf, Element: "wind"}).Validate())
}

func TestRegistry_Instantiate_ClonesPrototype(t *testing.T) {
	reg := skill.DefaultRegistry()
	a, err := reg.Instantiate("fireball")
	require.NoError(t, err)
	b, err := reg.Instantiate("fireball")
	require.NoError(t, err)
	a[0].StartCooldown()
	assert.Equal(t, 0, b[0].Cooldown)
	proto, _ := reg.Get("fireball")
	assert.Equal(t, 0, proto.Cooldown)
}

func TestRegistry_Instantiate_Unknown(t *testing.T) {
	_, err := skill.DefaultRegistry().Instantiate("fireball", "meteor")
	assert.ErrorContains(t, err, "meteor")
}

func TestDefaultRegistry_EffectsResolve(t *testing.T) {
	reg := skill.DefaultRegistry()
	require.NoError(t, reg.CheckEffects(effect.DefaultRegistry()))
	for _, s := range reg.All() {
		assert.NoError(t, s.Validate(), s.ID)
	}
}

func TestCheckEffects_Unknown(t *testing.T) {
	reg := skill.NewRegistry()
	reg.Register(&skill.Skill{ID: "hex", Name: "Hex", TargetType: skill.TargetSingle, Effects: []string{"curse"}})
	assert.Error(t, reg.CheckEffects(effect.DefaultRegistry()))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fireball.yaml"), []byte(`
id: fireball
name: Fireball
damage: 55
mana_cost: 30
max_cooldown: 2
target: Single
element: fire
`), 0644))
	reg, err := skill.LoadDirectory(dir)
	require.NoError(t, err)
	s, ok := reg.Get("fireball")
	require.True(t, ok)
	assert.Equal(t, skill.ElementFire, s.Element)
	assert.Equal(t, 30, s.ManaCost)
}

func TestLoadSkillFromBytes_RejectsUnknownField(t *testing.T) {
	_, err := skill.LoadSkillFromBytes([]byte("id: x\nname: X\ntarget: Self\nrange: 4\n"))
	assert.Error(t, err)
}

func TestPropertySkill_CooldownNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := &skill.Skill{ID: "s", MaxCooldown: rapid.IntRange(0, 5).Draw(rt, "max")}
		ops := rapid.SliceOf(rapid.Bool()).Draw(rt, "ops")
		for _, use := range ops {
			if use && s.Ready() {
				s.StartCooldown()
			} else {
				s.TickCooldown()
			}
			if s.Cooldown < 0 || s.Cooldown > s.MaxCooldown {
				rt.Fatalf("cooldown out of range: %d (max %d)", s.Cooldown, s.MaxCooldown)
			}
		}
	})
}
