package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

func finishedSnapshot(id string, finished time.Time) battle.Snapshot {
	started := finished.Add(-3 * time.Minute)
	return battle.Snapshot{
		ID:           id,
		RoomCode:     "04217",
		State:        battle.Finished,
		PvP:          true,
		CurrentTurn:  7,
		WinnerTeamID: "t1",
		CreatedAt:    started,
		FinishedAt:   &finished,
		Teams: []battle.TeamView{
			{ID: "t1", Name: "Red", Players: []battle.CombatantView{
				{ID: "p1", Name: "Aria", Class: character.Warrior, Level: 2, Stats: &character.Stats{DamageDealt: 140, Kills: 1, Wins: 1}},
				{ID: "p2", Name: "Bram", Class: character.Healer, Level: 1, Stats: &character.Stats{HealingDone: 60, Wins: 1}},
			}},
			{ID: "t2", Name: "Blue", Players: []battle.CombatantView{
				{ID: "p3", Name: "Cael", Class: character.Mage, Level: 1, Stats: &character.Stats{DamageDealt: 30, Losses: 1}},
				{ID: "p4", Name: "Dov", Class: character.Mage, Level: 1, Fled: true},
			}},
		},
	}
}

func TestResultFromSnapshot(t *testing.T) {
	res, err := postgres.ResultFromSnapshot(finishedSnapshot("b1", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "b1", res.BattleID)
	assert.Equal(t, 7, res.Turns)
	assert.True(t, res.PvP)
	require.Len(t, res.Participants, 4)

	outcomes := map[string]string{}
	for _, p := range res.Participants {
		outcomes[p.PlayerID] = p.Outcome
	}
	assert.Equal(t, map[string]string{
		"p1": postgres.OutcomeWon,
		"p2": postgres.OutcomeWon,
		"p3": postgres.OutcomeLost,
		"p4": postgres.OutcomeFled,
	}, outcomes)
	assert.Equal(t, 140, res.Participants[0].DamageDealt)
	assert.Equal(t, 60, res.Participants[1].HealingDone)
	assert.Zero(t, res.Participants[3].DamageDealt, "nil stats record zeros")
}

func TestResultFromSnapshot_RejectsUnfinished(t *testing.T) {
	snap := finishedSnapshot("b1", time.Now())
	snap.State = battle.InProgress
	_, err := postgres.ResultFromSnapshot(snap)
	assert.ErrorIs(t, err, postgres.ErrNotFinished)
}

// Property: every player appears once and only winners' teammates who did not flee win.
func TestPropertyResultFromSnapshot_Outcomes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		teams := rapid.IntRange(1, 4).Draw(rt, "teams")
		winner := rapid.IntRange(-1, teams-1).Draw(rt, "winner")
		now := time.Now()
		snap := battle.Snapshot{ID: "b", State: battle.Finished, CreatedAt: now, FinishedAt: &now}
		if winner >= 0 {
			snap.WinnerTeamID = fmt.Sprintf("t%d", winner)
		}
		total := 0
		for i := 0; i < teams; i++ {
			tv := battle.TeamView{ID: fmt.Sprintf("t%d", i)}
			n := rapid.IntRange(1, 4).Draw(rt, "players")
			for j := 0; j < n; j++ {
				tv.Players = append(tv.Players, battle.CombatantView{
					ID:    fmt.Sprintf("p%d-%d", i, j),
					Class: character.Warrior,
					Fled:  rapid.Bool().Draw(rt, "fled"),
				})
				total++
			}
			snap.Teams = append(snap.Teams, tv)
		}

		res, err := postgres.ResultFromSnapshot(snap)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if len(res.Participants) != total {
			rt.Fatalf("got %d participants, want %d", len(res.Participants), total)
		}
		for _, p := range res.Participants {
			want := postgres.OutcomeLost
			switch {
			case fledIn(snap, p.PlayerID):
				want = postgres.OutcomeFled
			case p.TeamID == snap.WinnerTeamID:
				want = postgres.OutcomeWon
			}
			if p.Outcome != want {
				rt.Fatalf("player %s: outcome %s, want %s", p.PlayerID, p.Outcome, want)
			}
		}
	})
}

func fledIn(snap battle.Snapshot, id string) bool {
	for _, tv := range snap.Teams {
		for _, p := range tv.Players {
			if p.ID == id {
				return p.Fled
			}
		}
	}
	return false
}

func setupResults(t *testing.T) *postgres.ResultRepository {
	t.Helper()
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return postgres.NewResultRepository(pc.RawPool)
}

func TestResultRepository_Integration(t *testing.T) {
	repo := setupResults(t)
	ctx := context.Background()
	finished := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("record and load", func(t *testing.T) {
		require.NoError(t, repo.RecordBattle(ctx, finishedSnapshot("battle-a", finished)))
		got, err := repo.Get(ctx, "battle-a")
		require.NoError(t, err)
		assert.Equal(t, "04217", got.RoomCode)
		assert.Equal(t, "t1", got.WinnerTeamID)
		assert.Equal(t, 7, got.Turns)
		assert.WithinDuration(t, finished, got.FinishedAt, time.Millisecond)
		require.Len(t, got.Participants, 4)
		assert.Equal(t, "p1", got.Participants[0].PlayerID)
		assert.Equal(t, postgres.OutcomeFled, got.Participants[3].Outcome)
	})

	t.Run("recording twice keeps the first result", func(t *testing.T) {
		snap := finishedSnapshot("battle-a", finished)
		snap.CurrentTurn = 99
		require.NoError(t, repo.RecordBattle(ctx, snap))
		got, err := repo.Get(ctx, "battle-a")
		require.NoError(t, err)
		assert.Equal(t, 7, got.Turns)
		assert.Len(t, got.Participants, 4)
	})

	t.Run("no winner", func(t *testing.T) {
		snap := finishedSnapshot("battle-b", finished.Add(time.Minute))
		snap.WinnerTeamID = ""
		require.NoError(t, repo.RecordBattle(ctx, snap))
		got, err := repo.Get(ctx, "battle-b")
		require.NoError(t, err)
		assert.Empty(t, got.WinnerTeamID)
	})

	t.Run("recent is newest first", func(t *testing.T) {
		recent, err := repo.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "battle-b", recent[0].BattleID)
		assert.Equal(t, "battle-a", recent[1].BattleID)

		one, err := repo.Recent(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, one, 1)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.Get(ctx, "nope")
		assert.ErrorIs(t, err, postgres.ErrResultNotFound)
	})

	t.Run("unfinished is rejected", func(t *testing.T) {
		snap := finishedSnapshot("battle-c", finished)
		snap.State = battle.Cancelled
		assert.ErrorIs(t, repo.RecordBattle(ctx, snap), postgres.ErrNotFinished)
	})
}

func TestPool_SchemaAndWatch_Integration(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	ctx := context.Background()

	err := pc.Pool.CheckSchema(ctx)
	require.ErrorIs(t, err, postgres.ErrSchemaMissing)
	assert.Contains(t, err.Error(), "battle_results")

	pc.ApplyMigrations(t)
	require.NoError(t, pc.Pool.CheckSchema(ctx))
	require.NoError(t, pc.Pool.Health(ctx, time.Second))

	watchCtx, cancel := context.WithCancel(ctx)
	reports := make(chan bool, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pc.Pool.Watch(watchCtx, 20*time.Millisecond, func(healthy bool, err error) {
			assert.NoError(t, err)
			select {
			case reports <- healthy:
			default:
			}
		})
	}()
	for i := 0; i < 2; i++ {
		select {
		case healthy := <-reports:
			assert.True(t, healthy)
		case <-time.After(5 * time.Second):
			t.Fatal("no health report")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop with its context")
	}
}
