package team_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/game/team"
)

func player(t require.TestingT, id string, class character.Class) *character.Player {
	p, err := character.NewPlayer(id, id, class, skill.DefaultRegistry())
	require.NoError(t, err)
	return p
}

func TestAddPlayer_FifthRejected(t *testing.T) {
	tm := team.New("t1", "Red", team.Balanced)
	for i := 0; i < team.MaxPlayers; i++ {
		require.NoError(t, tm.AddPlayer(player(t, fmt.Sprintf("p%d", i), character.Warrior)))
	}
	err := tm.AddPlayer(player(t, "p5", character.Mage))
	assert.ErrorIs(t, err, team.ErrTeamFull)
	assert.Equal(t, team.MaxPlayers, tm.Size())
}

func TestAddPlayer_Duplicate(t *testing.T) {
	tm := team.New("t1", "Red", team.Balanced)
	p := player(t, "p1", character.Warrior)
	require.NoError(t, tm.AddPlayer(p))
	assert.ErrorIs(t, tm.AddPlayer(p), team.ErrDuplicatePlayer)
	assert.Equal(t, 1, tm.Size())
}

func TestAddPlayer_AppliesStrategyOnce(t *testing.T) {
	tm := team.New("t1", "Red", team.Aggressive)
	p := player(t, "p1", character.Warrior)
	require.NoError(t, tm.AddPlayer(p))
	assert.Equal(t, "t1", p.TeamID)
	assert.Equal(t, 30, p.ModifiedAttack())
	assert.Equal(t, 1, p.Effects.Count("team_aggressive"))
}

func TestAddPlayer_SynergyWhenBalanced(t *testing.T) {
	tm := team.New("t1", "Red", team.Defensive)
	w := player(t, "w", character.Warrior)
	m := player(t, "m", character.Mage)
	h := player(t, "h", character.Healer)
	require.NoError(t, tm.AddPlayer(w))
	require.NoError(t, tm.AddPlayer(m))
	assert.False(t, w.Effects.Has("team_synergy_attack"))
	require.NoError(t, tm.AddPlayer(h))
	assert.True(t, tm.IsBalanced())
	for _, p := range []*character.Player{w, m, h} {
		assert.Equal(t, 1, p.Effects.Count("team_synergy_attack"), p.ID)
	}

	require.NoError(t, tm.AddPlayer(player(t, "w2", character.Warrior)))
	assert.Equal(t, 1, w.Effects.Count("team_synergy_attack"))
}

func TestSetStrategy_ReplacesTeamEffects(t *testing.T) {
	tm := team.New("t1", "Red", team.Aggressive)
	p := player(t, "p1", character.Warrior)
	require.NoError(t, tm.AddPlayer(p))

	require.NoError(t, tm.SetStrategy(team.Defensive))
	assert.False(t, p.Effects.Has("team_aggressive"))
	assert.True(t, p.Effects.Has("team_defensive"))
	assert.Equal(t, 25, p.ModifiedAttack())
	assert.Equal(t, 25, p.ModifiedDefense())

	assert.ErrorIs(t, tm.SetStrategy("Reckless"), team.ErrUnknownStrategy)
	assert.Equal(t, team.Defensive, tm.Strategy)
}

func TestRemovePlayer_StripsBuffsAndSynergy(t *testing.T) {
	tm := team.New("t1", "Red", team.Balanced)
	w := player(t, "w", character.Warrior)
	m := player(t, "m", character.Mage)
	h := player(t, "h", character.Healer)
	for _, p := range []*character.Player{w, m, h} {
		require.NoError(t, tm.AddPlayer(p))
	}
	removed, err := tm.RemovePlayer("h")
	require.NoError(t, err)
	assert.Equal(t, 0, removed.Effects.Len())
	assert.Equal(t, "", removed.TeamID)
	assert.False(t, w.Effects.Has("team_synergy_attack"))
	assert.True(t, w.Effects.Has("team_balanced_attack"))

	_, err = tm.RemovePlayer("h")
	assert.ErrorIs(t, err, team.ErrPlayerNotFound)
}

func TestAssign(t *testing.T) {
	assert.Equal(t, -1, team.Assign(nil, character.Warrior))

	red := team.New("t1", "Red", team.Balanced)
	require.NoError(t, red.AddPlayer(player(t, "w", character.Warrior)))
	assert.Equal(t, 0, team.Assign([]*team.Team{red}, character.Mage))
	assert.Equal(t, -1, team.Assign([]*team.Team{red}, character.Warrior))

	blue := team.New("t2", "Blue", team.Balanced)
	assert.Equal(t, 1, team.Assign([]*team.Team{red, blue}, character.Mage))
	require.NoError(t, blue.AddPlayer(player(t, "m", character.Mage)))
	assert.Equal(t, 0, team.Assign([]*team.Team{red, blue}, character.Warrior))
}

func TestParseStrategy(t *testing.T) {
	s, err := team.ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, team.Balanced, s)
	_, err = team.ParseStrategy("Sneaky")
	assert.ErrorIs(t, err, team.ErrUnknownStrategy)
}

func TestPropertyTeam_NeverExceedsMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tm := team.New("t", "T", team.Balanced)
		n := rapid.IntRange(0, 12).Draw(rt, "adds")
		classes := []character.Class{character.Warrior, character.Mage, character.Healer}
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("p%d", rapid.IntRange(0, 6).Draw(rt, "id"))
			_ = tm.AddPlayer(player(rt, id, rapid.SampledFrom(classes).Draw(rt, "class")))
			if tm.Size() > team.MaxPlayers {
				rt.Fatalf("team size %d exceeds max", tm.Size())
			}
			seen := map[string]bool{}
			for _, p := range tm.Players {
				if seen[p.ID] {
					rt.Fatalf("duplicate player %s", p.ID)
				}
				seen[p.ID] = true
			}
		}
	})
}
