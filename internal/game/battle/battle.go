// Package battle implements the Battle aggregate: roster composition, the
// battle state machine, turn progression and invasion. Every exported method
// is serialised by the battle's own mutex.
package battle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/game/team"
)

// State is a battle's lifecycle state.
type State string

const (
	Waiting     State = "Waiting"
	Preparation State = "Preparation"
	InProgress  State = "InProgress"
	Finished    State = "Finished"
	Cancelled   State = "Cancelled"
)

// state machine events
const (
	evPrepare   = "prepare"
	evUnprepare = "unprepare"
	evStart     = "start"
	evFinish    = "finish"
	evCancel    = "cancel"
)

// MaxTeams is the most teams one battle holds.
const MaxTeams = 4

// maxInvasionTeams bounds the team count at which invasion is still allowed.
const maxInvasionTeams = 3

// logLimit is the number of recent results kept for snapshots.
const logLimit = 20

var (
	// ErrNotYourTurn is returned when an actor other than the current one acts.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrNotOwner is returned when a client acts for a character it does not control.
	ErrNotOwner = errors.New("character not controlled by this client")
	// ErrInvalidState is returned when an operation is not allowed in the current state.
	ErrInvalidState = errors.New("operation not allowed in current battle state")
	// ErrBattleFull is returned when a battle already has MaxTeams teams.
	ErrBattleFull = errors.New("battle is full")
	// ErrTeamNotFound is returned for an unknown team id.
	ErrTeamNotFound = errors.New("team not found")
	// ErrAlreadyJoined is returned when a client joins a battle it already has a player in.
	ErrAlreadyJoined = errors.New("client already joined this battle")
	// ErrNotParticipant is returned when a client has no player in the battle.
	ErrNotParticipant = errors.New("client is not a participant")
	// ErrCannotInvade is returned when the battle does not accept an invading team.
	ErrCannotInvade = errors.New("battle cannot be invaded")
	// ErrNotEnoughCombatants is returned when starting a battle that cannot be fought.
	ErrNotEnoughCombatants = errors.New("not enough combatants to start")
	// ErrUnknownSkill is returned when an actor does not know the requested skill.
	ErrUnknownSkill = errors.New("unknown skill")
)

// Planner chooses the action of an enemy whose turn it is.
type Planner interface {
	Choose(f *combat.Field, e *character.Enemy) combat.Action
}

// Config carries a battle's settings and collaborators.
type Config struct {
	ID            string
	RoomCode      string
	PvP           bool
	AllowInvasion bool
	Effects       *effect.Registry
	Skills        *skill.Registry
	Planner       Planner
	Source        dice.Source
	Logger        *zap.Logger
	// NewID generates player and team ids.
	NewID func() string
	// Now is the clock; nil uses time.Now.
	Now func() time.Time
}

// Battle is one authoritative encounter.
type Battle struct {
	mu sync.Mutex

	id            string
	roomCode      string
	pvp           bool
	allowInvasion bool
	invaded       bool

	machine      *fsm.FSM
	teams        []*team.Team
	enemies      []*character.Enemy
	order        []string
	currentIndex int
	currentTurn  int
	winnerTeamID string
	// owners maps player id to the controlling client id.
	owners map[string]string
	log    []combat.Result

	createdAt  time.Time
	finishedAt time.Time

	effects *effect.Registry
	skills  *skill.Registry
	planner Planner
	src     dice.Source
	logger  *zap.Logger
	newID   func() string
	now     func() time.Time
}

// New creates a battle in the Waiting state.
//
// Precondition: cfg.ID, cfg.Effects, cfg.Skills, cfg.Planner, cfg.Source,
// cfg.Logger and cfg.NewID are set.
func New(cfg Config) *Battle {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	b := &Battle{
		id:            cfg.ID,
		roomCode:      cfg.RoomCode,
		pvp:           cfg.PvP,
		allowInvasion: cfg.AllowInvasion,
		owners:        make(map[string]string),
		effects:       cfg.Effects,
		skills:        cfg.Skills,
		planner:       cfg.Planner,
		src:           cfg.Source,
		logger:        cfg.Logger.With(zap.String("battle_id", cfg.ID)),
		newID:         cfg.NewID,
		now:           now,
	}
	b.createdAt = now()
	b.machine = fsm.NewFSM(
		string(Waiting),
		fsm.Events{
			{Name: evPrepare, Src: []string{string(Waiting)}, Dst: string(Preparation)},
			{Name: evUnprepare, Src: []string{string(Preparation)}, Dst: string(Waiting)},
			{Name: evStart, Src: []string{string(Waiting), string(Preparation)}, Dst: string(InProgress)},
			{Name: evFinish, Src: []string{string(InProgress)}, Dst: string(Finished)},
			{Name: evCancel, Src: []string{string(Waiting), string(Preparation), string(InProgress)}, Dst: string(Cancelled)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				b.logger.Debug("battle state changed",
					zap.String("from", e.Src),
					zap.String("to", e.Dst),
				)
			},
		},
	)
	return b
}

// ID returns the battle id.
func (b *Battle) ID() string { return b.id }

// RoomCode returns the room code.
func (b *Battle) RoomCode() string { return b.roomCode }

// State returns the current state.
func (b *Battle) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state()
}

func (b *Battle) state() State { return State(b.machine.Current()) }

func (b *Battle) preBattle() bool {
	s := b.state()
	return s == Waiting || s == Preparation
}

// fire triggers a state machine event.
//
// Precondition: the caller has checked the event is legal.
func (b *Battle) fire(event string) error {
	if err := b.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("%w: %s from %s", ErrInvalidState, event, b.state())
	}
	return nil
}

// field builds the resolver's view over the battle's characters.
func (b *Battle) field() *combat.Field {
	f := &combat.Field{PvP: b.pvp, Enemies: b.enemies}
	for _, t := range b.teams {
		f.Sides = append(f.Sides, combat.Side{TeamID: t.ID, Players: t.Players})
	}
	return f
}

func (b *Battle) findTeam(id string) (*team.Team, bool) {
	for _, t := range b.teams {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

func (b *Battle) findPlayer(id string) (*character.Player, bool) {
	for _, t := range b.teams {
		if p, ok := t.Player(id); ok {
			return p, true
		}
	}
	return nil, false
}

// clientPlayers returns the players clientID controls.
func (b *Battle) clientPlayers(clientID string) []*character.Player {
	var out []*character.Player
	for _, t := range b.teams {
		for _, p := range t.Players {
			if b.owners[p.ID] == clientID {
				out = append(out, p)
			}
		}
	}
	return out
}

// ownsTeamMember reports whether clientID controls a player on t.
func (b *Battle) ownsTeamMember(clientID string, t *team.Team) bool {
	for _, p := range t.Players {
		if b.owners[p.ID] == clientID {
			return true
		}
	}
	return false
}

func (b *Battle) record(results ...combat.Result) {
	b.log = append(b.log, results...)
	if over := len(b.log) - logLimit; over > 0 {
		b.log = append([]combat.Result(nil), b.log[over:]...)
	}
}

// Participants returns the ids of every client controlling a player, in
// roster order.
func (b *Battle) Participants() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, t := range b.teams {
		for _, p := range t.Players {
			c := b.owners[p.ID]
			if c != "" && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
