// Package team implements player teams: roster limits, auto-assignment and
// strategy buffs.
package team

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// MaxPlayers is the roster limit of one team.
const MaxPlayers = 4

var (
	// ErrTeamFull is returned when adding a player to a full team.
	ErrTeamFull = errors.New("team is full")
	// ErrDuplicatePlayer is returned when a player id is already on the team.
	ErrDuplicatePlayer = errors.New("player already on team")
	// ErrPlayerNotFound is returned when a player id is not on the team.
	ErrPlayerNotFound = errors.New("player not on team")
	// ErrUnknownStrategy is returned for an unrecognised strategy name.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Position is a team's location on the meta-game map.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Team is an ordered roster of up to MaxPlayers players.
//
// Invariant: len(Players) <= MaxPlayers and player ids are unique.
type Team struct {
	ID       string
	Name     string
	Players  []*character.Player
	Strategy Strategy
	Ready    bool
	Position Position
	// Invader marks a team that joined an in-progress battle.
	Invader bool
}

// New creates an empty team.
func New(id, name string, strategy Strategy) *Team {
	if strategy == "" {
		strategy = Balanced
	}
	return &Team{ID: id, Name: name, Strategy: strategy}
}

// Source is the effect source id used for every buff the team applies.
func (t *Team) Source() string { return "team:" + t.ID }

// Player returns the member with id.
func (t *Team) Player(id string) (*character.Player, bool) {
	for _, p := range t.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Size returns the number of members.
func (t *Team) Size() int { return len(t.Players) }

// IsFull reports whether the roster is at MaxPlayers.
func (t *Team) IsFull() bool { return len(t.Players) >= MaxPlayers }

// HasClass reports whether any member has class c.
func (t *Team) HasClass(c character.Class) bool {
	for _, p := range t.Players {
		if p.Class == c {
			return true
		}
	}
	return false
}

// IsBalanced reports whether the team fields a Warrior, a Mage and a Healer.
func (t *Team) IsBalanced() bool {
	return t.HasClass(character.Warrior) && t.HasClass(character.Mage) && t.HasClass(character.Healer)
}

// Standing reports whether any member is alive and has not fled.
func (t *Team) Standing() bool {
	for _, p := range t.Players {
		if p.CanAct() {
			return true
		}
	}
	return false
}

// TotalHealth sums the current health of every member.
func (t *Team) TotalHealth() int {
	total := 0
	for _, p := range t.Players {
		total += p.Health
	}
	return total
}

// AddPlayer appends p to the roster, assigns it to the team and applies the
// team's strategy buff. Completing a Warrior/Mage/Healer line-up applies the
// synergy buff to every member.
//
// Postcondition: on error the roster is unchanged.
func (t *Team) AddPlayer(p *character.Player) error {
	if _, dup := t.Player(p.ID); dup {
		return fmt.Errorf("%w: %q", ErrDuplicatePlayer, p.ID)
	}
	if t.IsFull() {
		return fmt.Errorf("%w: %s has %d players", ErrTeamFull, t.Name, MaxPlayers)
	}
	t.Players = append(t.Players, p)
	p.TeamID = t.ID
	t.applyBuffs(p)
	if t.IsBalanced() {
		for _, m := range t.Players {
			t.applySynergy(m)
		}
	}
	return nil
}

// RemovePlayer drops the member with id and strips every team-sourced
// effect from it. Remaining members lose the synergy buff if the line-up is
// no longer balanced.
func (t *Team) RemovePlayer(id string) (*character.Player, error) {
	for i, p := range t.Players {
		if p.ID != id {
			continue
		}
		t.Players = append(t.Players[:i], t.Players[i+1:]...)
		p.ClearEffectsFromSource(t.Source())
		p.TeamID = ""
		if !t.IsBalanced() {
			t.reapply()
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, id)
}

// SetStrategy switches the team strategy, removing every team-sourced effect
// before applying the new set.
func (t *Team) SetStrategy(s Strategy) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	t.Strategy = s
	t.reapply()
	return nil
}

func (t *Team) reapply() {
	balanced := t.IsBalanced()
	for _, p := range t.Players {
		p.ClearEffectsFromSource(t.Source())
		t.applyBuffs(p)
		if balanced {
			t.applySynergy(p)
		}
	}
}

func (t *Team) applyBuffs(p *character.Player) {
	for _, def := range t.Strategy.Buffs() {
		_, _ = p.ApplyStatusEffect(def, t.Source())
	}
}

func (t *Team) applySynergy(p *character.Player) {
	for _, def := range synergyBuffs {
		_, _ = p.ApplyStatusEffect(def, t.Source())
	}
}

// Assign picks the team a joining player of class should go to when no team
// was named. It returns the index into teams, or -1 when a new team should be
// created.
//
// With two or more teams the least populated non-full team wins (first on a
// tie). With exactly one team the player joins it unless it is full or
// already has that class. With no teams a new team is created.
func Assign(teams []*Team, class character.Class) int {
	switch len(teams) {
	case 0:
		return -1
	case 1:
		if teams[0].IsFull() || teams[0].HasClass(class) {
			return -1
		}
		return 0
	}
	best := -1
	for i, t := range teams {
		if t.IsFull() {
			continue
		}
		if best < 0 || t.Size() < teams[best].Size() {
			best = i
		}
	}
	return best
}

var synergyBuffs = []*effect.Def{
	{ID: "team_synergy_attack", Name: "Synergy (attack)", Type: effect.AttackUp, Magnitude: 3, Duration: effect.Permanent},
	{ID: "team_synergy_defense", Name: "Synergy (defense)", Type: effect.DefenseUp, Magnitude: 3, Duration: effect.Permanent},
	{ID: "team_synergy_speed", Name: "Synergy (speed)", Type: effect.SpeedUp, Magnitude: 2, Duration: effect.Permanent},
}
