package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
)

// Outcomes recorded per participant.
const (
	OutcomeWon  = "won"
	OutcomeLost = "lost"
	OutcomeFled = "fled"
)

// ErrNotFinished is returned when recording a battle that has not finished.
var ErrNotFinished = errors.New("battle has not finished")

// ErrResultNotFound is returned when a battle id has no recorded result.
var ErrResultNotFound = errors.New("battle result not found")

// BattleResult is one recorded battle.
type BattleResult struct {
	BattleID     string
	RoomCode     string
	PvP          bool
	Invaded      bool
	WinnerTeamID string
	Turns        int
	StartedAt    time.Time
	FinishedAt   time.Time
	Participants []Participant
}

// Participant is one player's line in a recorded battle.
type Participant struct {
	PlayerID    string
	TeamID      string
	Name        string
	Class       string
	Level       int
	DamageDealt int
	HealingDone int
	Kills       int
	Outcome     string
}

// ResultRepository stores finished battles. It is an audit sink; live
// battles are never loaded from it.
type ResultRepository struct {
	db *pgxpool.Pool
}

// NewResultRepository creates a ResultRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewResultRepository(db *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: db}
}

// ResultFromSnapshot flattens a finished battle into its recorded form.
//
// Postcondition: returns ErrNotFinished unless snap.State is Finished.
func ResultFromSnapshot(snap battle.Snapshot) (BattleResult, error) {
	if snap.State != battle.Finished {
		return BattleResult{}, fmt.Errorf("battle %s is %s: %w", snap.ID, snap.State, ErrNotFinished)
	}
	res := BattleResult{
		BattleID:     snap.ID,
		RoomCode:     snap.RoomCode,
		PvP:          snap.PvP,
		Invaded:      snap.Invaded,
		WinnerTeamID: snap.WinnerTeamID,
		Turns:        snap.CurrentTurn,
		StartedAt:    snap.CreatedAt,
		FinishedAt:   snap.CreatedAt,
	}
	if snap.FinishedAt != nil {
		res.FinishedAt = *snap.FinishedAt
	}
	for _, tv := range snap.Teams {
		for _, p := range tv.Players {
			part := Participant{
				PlayerID: p.ID,
				TeamID:   tv.ID,
				Name:     p.Name,
				Class:    string(p.Class),
				Level:    p.Level,
				Outcome:  OutcomeLost,
			}
			if p.Stats != nil {
				part.DamageDealt = p.Stats.DamageDealt
				part.HealingDone = p.Stats.HealingDone
				part.Kills = p.Stats.Kills
			}
			switch {
			case p.Fled:
				part.Outcome = OutcomeFled
			case tv.ID == snap.WinnerTeamID:
				part.Outcome = OutcomeWon
			}
			res.Participants = append(res.Participants, part)
		}
	}
	return res, nil
}

// RecordBattle stores a finished battle and its participants in one
// transaction. Recording the same battle twice is a no-op.
//
// Precondition: snap.State is battle.Finished.
func (r *ResultRepository) RecordBattle(ctx context.Context, snap battle.Snapshot) error {
	res, err := ResultFromSnapshot(snap)
	if err != nil {
		return err
	}
	return r.Save(ctx, res)
}

// Save stores res in one transaction. An existing result for the same
// battle is kept.
func (r *ResultRepository) Save(ctx context.Context, res BattleResult) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var winner *string
		if res.WinnerTeamID != "" {
			winner = &res.WinnerTeamID
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO battle_results
			   (battle_id, room_code, pvp, invaded, winner_team_id, turns, started_at, finished_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (battle_id) DO NOTHING`,
			res.BattleID, res.RoomCode, res.PvP, res.Invaded, winner, res.Turns, res.StartedAt, res.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting battle result: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, p := range res.Participants {
			batch.Queue(
				`INSERT INTO battle_participants
				   (battle_id, player_id, team_id, name, class, level, damage_dealt, healing_done, kills, outcome)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				res.BattleID, p.PlayerID, p.TeamID, p.Name, p.Class, p.Level,
				p.DamageDealt, p.HealingDone, p.Kills, p.Outcome,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting participants: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording battle %s: %w", res.BattleID, err)
	}
	return nil
}

// Get loads one recorded battle with its participants ordered by team.
//
// Postcondition: Returns ErrResultNotFound when nothing was recorded for battleID.
func (r *ResultRepository) Get(ctx context.Context, battleID string) (BattleResult, error) {
	var (
		res    BattleResult
		winner *string
	)
	err := r.db.QueryRow(ctx,
		`SELECT battle_id, room_code, pvp, invaded, winner_team_id, turns, started_at, finished_at
		 FROM battle_results WHERE battle_id = $1`,
		battleID,
	).Scan(&res.BattleID, &res.RoomCode, &res.PvP, &res.Invaded, &winner, &res.Turns, &res.StartedAt, &res.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BattleResult{}, ErrResultNotFound
	}
	if err != nil {
		return BattleResult{}, fmt.Errorf("querying battle result: %w", err)
	}
	if winner != nil {
		res.WinnerTeamID = *winner
	}

	rows, err := r.db.Query(ctx,
		`SELECT player_id, team_id, name, class, level, damage_dealt, healing_done, kills, outcome
		 FROM battle_participants WHERE battle_id = $1
		 ORDER BY team_id, player_id`,
		battleID,
	)
	if err != nil {
		return BattleResult{}, fmt.Errorf("querying participants: %w", err)
	}
	parts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Participant, error) {
		var p Participant
		err := row.Scan(&p.PlayerID, &p.TeamID, &p.Name, &p.Class, &p.Level,
			&p.DamageDealt, &p.HealingDone, &p.Kills, &p.Outcome)
		return p, err
	})
	if err != nil {
		return BattleResult{}, fmt.Errorf("scanning participants: %w", err)
	}
	res.Participants = parts
	return res, nil
}

// Recent returns up to limit recorded battles, newest first, without
// participants.
func (r *ResultRepository) Recent(ctx context.Context, limit int) ([]BattleResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT battle_id, room_code, pvp, invaded, COALESCE(winner_team_id, ''), turns, started_at, finished_at
		 FROM battle_results
		 ORDER BY finished_at DESC, battle_id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent results: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (BattleResult, error) {
		var res BattleResult
		err := row.Scan(&res.BattleID, &res.RoomCode, &res.PvP, &res.Invaded, &res.WinnerTeamID,
			&res.Turns, &res.StartedAt, &res.FinishedAt)
		return res, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning recent results: %w", err)
	}
	return out, nil
}
