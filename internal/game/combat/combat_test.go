package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

func newPlayer(t *testing.T, id, team string, class character.Class) *character.Player {
	t.Helper()
	p, err := character.NewPlayer(id, id, class, skill.DefaultRegistry())
	require.NoError(t, err)
	p.TeamID = team
	return p
}

func pveField(t *testing.T) (*combat.Field, *character.Player, *character.Player, []*character.Enemy) {
	t.Helper()
	w := newPlayer(t, "w", "t1", character.Warrior)
	m := newPlayer(t, "m", "t1", character.Mage)
	enemies := []*character.Enemy{
		character.NewEnemy("e1", "Goblin A", 60, 18, 6, 13),
		character.NewEnemy("e2", "Goblin B", 60, 18, 6, 13),
		character.NewEnemy("e3", "Goblin C", 60, 18, 6, 13),
		character.NewEnemy("e4", "Goblin D", 60, 18, 6, 13),
	}
	f := &combat.Field{Sides: []combat.Side{{TeamID: "t1", Players: []*character.Player{w, m}}}, Enemies: enemies}
	return f, w, m, enemies
}

func TestResolveAttack_WarriorsTradeFive(t *testing.T) {
	a := newPlayer(t, "a", "t1", character.Warrior)
	b := newPlayer(t, "b", "t2", character.Warrior)
	require.Equal(t, 25, a.Attack)
	require.Equal(t, 20, b.Defense)

	r := combat.ResolveAttack(a, b)
	assert.Equal(t, 5, r.Damage)
	assert.Equal(t, b.MaxHealth-5, b.Health)

	r = combat.ResolveAttack(b, a)
	assert.Equal(t, 5, r.Damage)
	assert.Equal(t, a.MaxHealth-5, a.Health)
	assert.Equal(t, 5, a.Stats.DamageDealt)
}

func TestResolveAttack_KillCredited(t *testing.T) {
	w := newPlayer(t, "w", "t1", character.Warrior)
	e := character.NewEnemy("e1", "Rat", 3, 1, 0, 1)
	r := combat.ResolveAttack(w, e)
	assert.True(t, r.Killed)
	assert.Equal(t, 3, r.Damage)
	assert.Equal(t, 1, w.Stats.Kills)
}

func TestResolveSkill_MageFireball(t *testing.T) {
	m := newPlayer(t, "m", "t1", character.Mage)
	e := character.NewEnemy("e1", "Orc", 200, 20, 10, 8)
	fireball, ok := m.SkillByID("fireball")
	require.True(t, ok)
	require.Equal(t, 100, m.Mana)

	results, err := combat.ResolveSkill(m, fireball, []character.Combatant{e}, effect.DefaultRegistry())
	require.NoError(t, err)
	require.Len(t, results, 1)

	want := max(1, 55+m.ModifiedAttack()/2-10)
	assert.Equal(t, 70, m.Mana)
	assert.Equal(t, fireball.MaxCooldown, fireball.Cooldown)
	assert.Equal(t, 200-want, e.Health)
	assert.Equal(t, want, results[0].Damage)
}

func TestResolveSkill_OnCooldown_NoMutation(t *testing.T) {
	m := newPlayer(t, "m", "t1", character.Mage)
	e := character.NewEnemy("e1", "Orc", 200, 20, 10, 8)
	fireball, _ := m.SkillByID("fireball")
	fireball.Cooldown = 1

	_, err := combat.ResolveSkill(m, fireball, []character.Combatant{e}, effect.DefaultRegistry())
	assert.ErrorIs(t, err, combat.ErrSkillOnCooldown)
	assert.Equal(t, 100, m.Mana)
	assert.Equal(t, 200, e.Health)
}

func TestResolveSkill_InsufficientMana_NoMutation(t *testing.T) {
	m := newPlayer(t, "m", "t1", character.Mage)
	e := character.NewEnemy("e1", "Orc", 200, 20, 10, 8)
	fireball, _ := m.SkillByID("fireball")
	m.Mana = 10

	_, err := combat.ResolveSkill(m, fireball, []character.Combatant{e}, effect.DefaultRegistry())
	assert.ErrorIs(t, err, combat.ErrInsufficientMana)
	assert.Equal(t, 10, m.Mana)
	assert.True(t, fireball.Ready())
	assert.Equal(t, 200, e.Health)
}

func TestResolveSkill_Resistance(t *testing.T) {
	m := newPlayer(t, "m", "t1", character.Mage)
	e := character.NewEnemy("e1", "Imp", 500, 10, 0, 8)
	e.Resistances = map[skill.Element]float64{skill.ElementFire: 0.5}
	fireball, _ := m.SkillByID("fireball")

	_, err := combat.ResolveSkill(m, fireball, []character.Combatant{e}, effect.DefaultRegistry())
	require.NoError(t, err)
	full := 55 + m.ModifiedAttack()/2
	assert.Equal(t, 500-full/2, e.Health)
}

func TestResolveSkill_HealCappedAndEffectsApplied(t *testing.T) {
	h := newPlayer(t, "h", "t1", character.Healer)
	w := newPlayer(t, "w", "t1", character.Warrior)
	w.Health = w.MaxHealth - 10
	heal, _ := h.SkillByID("heal")

	results, err := combat.ResolveSkill(h, heal, []character.Combatant{w}, effect.DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, 10, results[0].Healing)
	assert.Equal(t, w.MaxHealth, w.Health)
	assert.Equal(t, 10, h.Stats.HealingDone)

	renew, _ := h.SkillByID("renew")
	results, err = combat.ResolveSkill(h, renew, []character.Combatant{w}, effect.DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, []string{"regeneration"}, results[0].Effects)
	assert.True(t, w.Effects.Has("regeneration"))
}

func TestResolveSkill_TauntSetsBackReference(t *testing.T) {
	w := newPlayer(t, "w", "t1", character.Warrior)
	e := character.NewEnemy("e1", "Orc", 200, 20, 10, 8)
	provoke, _ := w.SkillByID("provoke")
	_, err := combat.ResolveSkill(w, provoke, []character.Combatant{e}, effect.DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, "w", e.TauntedBy)
}

func TestResolveTargets_Self(t *testing.T) {
	f, w, _, _ := pveField(t)
	cry, _ := w.SkillByID("battle_cry")
	targets, err := combat.ResolveTargets(f, w, cry, "", dice.NewSequenceSource(0))
	require.NoError(t, err)
	assert.Equal(t, []character.Combatant{w}, targets)
}

func TestResolveTargets_SingleMustBeAlive(t *testing.T) {
	f, w, _, enemies := pveField(t)
	strike, _ := w.SkillByID("power_strike")
	enemies[1].Health = 0
	_, err := combat.ResolveTargets(f, w, strike, "e2", dice.NewSequenceSource(0))
	assert.ErrorIs(t, err, combat.ErrInvalidTarget)
	_, err = combat.ResolveTargets(f, w, strike, "ghost", dice.NewSequenceSource(0))
	assert.ErrorIs(t, err, combat.ErrInvalidTarget)
}

func TestResolveTargets_AllEnemiesAndAllies(t *testing.T) {
	f, w, m, enemies := pveField(t)
	enemies[3].Health = 0
	blizzard, _ := m.SkillByID("blizzard")
	targets, err := combat.ResolveTargets(f, m, blizzard, "", dice.NewSequenceSource(0))
	require.NoError(t, err)
	assert.Len(t, targets, 3)

	h := newPlayer(t, "h", "t1", character.Healer)
	f.Sides[0].Players = append(f.Sides[0].Players, h)
	group, _ := h.SkillByID("group_heal")
	targets, err = combat.ResolveTargets(f, h, group, "", dice.NewSequenceSource(0))
	require.NoError(t, err)
	assert.ElementsMatch(t, []character.Combatant{w, m, h}, targets)
}

func TestResolveTargets_EnemyAlliesExcludeSelf(t *testing.T) {
	f, _, _, enemies := pveField(t)
	mend := &skill.Skill{ID: "dark_mend", Name: "Dark Mend", Healing: 15, TargetType: skill.TargetAllAllies}
	targets, err := combat.ResolveTargets(f, enemies[0], mend, "", dice.NewSequenceSource(0))
	require.NoError(t, err)
	assert.Len(t, targets, 3)
	for _, tg := range targets {
		assert.NotEqual(t, "e1", tg.Base().ID)
	}
}

func TestResolveTargets_AreaNeighbours(t *testing.T) {
	f, w, _, _ := pveField(t)
	cleave, _ := w.SkillByID("cleave")

	targets, err := combat.ResolveTargets(f, w, cleave, "e2", dice.NewSequenceSource(0))
	require.NoError(t, err)
	ids := make([]string, 0, len(targets))
	for _, tg := range targets {
		ids = append(ids, tg.Base().ID)
	}
	assert.Equal(t, []string{"e1", "e2", "e3"}, ids)

	targets, err = combat.ResolveTargets(f, w, cleave, "", dice.NewSequenceSource(0))
	require.NoError(t, err)
	assert.Len(t, targets, 2)
	assert.Equal(t, "e1", targets[0].Base().ID)
}

func TestResolveTargets_RandomUsesSource(t *testing.T) {
	f, _, _, enemies := pveField(t)
	bolt := &skill.Skill{ID: "dark_bolt", Name: "Dark Bolt", Damage: 10, TargetType: skill.TargetRandom}
	targets, err := combat.ResolveTargets(f, enemies[0], bolt, "", dice.NewSequenceSource(1))
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "m", targets[0].Base().ID)
}

func TestOpponents_PvP(t *testing.T) {
	a := newPlayer(t, "a", "t1", character.Warrior)
	b := newPlayer(t, "b", "t2", character.Warrior)
	c := newPlayer(t, "c", "t1", character.Mage)
	f := &combat.Field{PvP: true, Sides: []combat.Side{
		{TeamID: "t1", Players: []*character.Player{a, c}},
		{TeamID: "t2", Players: []*character.Player{b}},
	}}
	assert.Equal(t, []character.Combatant{b}, f.Opponents(a))
	assert.ElementsMatch(t, []character.Combatant{a, c}, f.Allies(a))
}

func TestRedirectForTaunt(t *testing.T) {
	f, w, m, enemies := pveField(t)
	enemies[0].TauntedBy = "w"
	assert.Equal(t, w.ID, combat.RedirectForTaunt(f, enemies[0], m).Base().ID)
	w.Health = 0
	assert.Equal(t, m.ID, combat.RedirectForTaunt(f, enemies[0], m).Base().ID)
}

func TestResolveDefend_Permanent(t *testing.T) {
	w := newPlayer(t, "w", "t1", character.Warrior)
	combat.ResolveDefend(w)
	assert.Equal(t, 25, w.ModifiedDefense())
	combat.ResolveDefend(w)
	assert.Equal(t, 30, w.ModifiedDefense())
}

func TestResolveFlee(t *testing.T) {
	w := newPlayer(t, "w", "t1", character.Warrior)
	_, err := combat.ResolveFlee(w, true)
	assert.ErrorIs(t, err, combat.ErrFleeInPvP)
	assert.False(t, w.Fled)

	_, err = combat.ResolveFlee(w, false)
	require.NoError(t, err)
	assert.True(t, w.Fled)
	assert.False(t, w.CanAct())
}

func TestResolveItem(t *testing.T) {
	m := newPlayer(t, "m", "t1", character.Mage)
	m.Health = 10
	m.Mana = 0
	r, err := combat.ResolveItem(m, "health_potion", m)
	require.NoError(t, err)
	assert.Equal(t, 50, r.Healing)
	assert.Equal(t, 1, m.Items["health_potion"])

	r, err = combat.ResolveItem(m, "mana_potion", m)
	require.NoError(t, err)
	assert.Equal(t, 40, r.Mana)

	_, err = combat.ResolveItem(m, "mana_potion", m)
	assert.ErrorIs(t, err, combat.ErrNoItem)
	_, err = combat.ResolveItem(m, "phoenix_down", m)
	assert.ErrorIs(t, err, combat.ErrUnknownItem)
}

func TestTurnOrder_SortedAndStable(t *testing.T) {
	f, w, m, enemies := pveField(t)
	order := combat.TurnOrder(f)
	require.Len(t, order, 6)
	for i := 0; i < 4; i++ {
		assert.Equal(t, enemies[i].ID, order[i].Base().ID)
	}
	assert.Equal(t, m.ID, order[4].Base().ID)
	assert.Equal(t, w.ID, order[5].Base().ID)
}

func TestTurnOrder_SkipsDeadAndFled(t *testing.T) {
	f, w, _, enemies := pveField(t)
	w.Fled = true
	enemies[0].Health = 0
	order := combat.TurnOrder(f)
	assert.Len(t, order, 4)
	for _, c := range order {
		assert.NotEqual(t, "w", c.Base().ID)
		assert.NotEqual(t, "e1", c.Base().ID)
	}
}

func TestCheckBattleEnd_PvE(t *testing.T) {
	f, w, m, enemies := pveField(t)
	assert.False(t, combat.CheckBattleEnd(f).Over)

	for _, e := range enemies {
		e.Health = 0
	}
	out := combat.CheckBattleEnd(f)
	assert.True(t, out.Over)
	assert.Equal(t, "t1", out.WinnerTeamID)

	enemies[0].Health = 5
	w.Health = 0
	m.Fled = true
	out = combat.CheckBattleEnd(f)
	assert.True(t, out.Over)
	assert.Empty(t, out.WinnerTeamID)
}

func TestCheckBattleEnd_PvP(t *testing.T) {
	a := newPlayer(t, "a", "t1", character.Warrior)
	b := newPlayer(t, "b", "t2", character.Warrior)
	f := &combat.Field{PvP: true, Sides: []combat.Side{
		{TeamID: "t1", Players: []*character.Player{a}},
		{TeamID: "t2", Players: []*character.Player{b}},
	}}
	assert.False(t, combat.CheckBattleEnd(f).Over)
	b.Health = 0
	assert.Equal(t, combat.Outcome{Over: true, WinnerTeamID: "t1"}, combat.CheckBattleEnd(f))
	a.Health = 0
	assert.Equal(t, combat.Outcome{Over: true}, combat.CheckBattleEnd(f))
}

func TestPropertyDamage_AtLeastOne(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		atk := rapid.IntRange(1, 200).Draw(rt, "atk")
		def := rapid.IntRange(0, 400).Draw(rt, "def")
		base := rapid.IntRange(0, 200).Draw(rt, "base")
		res := rapid.Float64Range(-1, 1).Draw(rt, "res")
		assert.GreaterOrEqual(rt, combat.AttackDamage(atk, def), 1)
		assert.GreaterOrEqual(rt, combat.SkillDamage(base, atk, def, res), 1)
	})
}

func TestPropertyTurnOrder_PermutationSortedBySpeed(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "enemies")
		f := &combat.Field{}
		alive := 0
		for i := 0; i < n; i++ {
			hp := rapid.IntRange(0, 10).Draw(rt, "hp")
			e := character.NewEnemy(string(rune('a'+i)), "E", max(hp, 1), 1, 0, rapid.IntRange(1, 20).Draw(rt, "spd"))
			e.Health = hp
			if hp > 0 {
				alive++
			}
			f.Enemies = append(f.Enemies, e)
		}
		order := combat.TurnOrder(f)
		if len(order) != alive {
			rt.Fatalf("order has %d entries, want %d", len(order), alive)
		}
		seen := map[string]bool{}
		for i, c := range order {
			if seen[c.Base().ID] {
				rt.Fatalf("duplicate %s", c.Base().ID)
			}
			seen[c.Base().ID] = true
			if i > 0 && order[i-1].Base().ModifiedSpeed() < c.Base().ModifiedSpeed() {
				rt.Fatalf("speed increases at %d", i)
			}
		}
	})
}
