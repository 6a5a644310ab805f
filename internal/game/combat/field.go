// Package combat implements the stateless combat rules: turn order, target
// resolution, damage and healing formulas, and battle-end detection.
package combat

import (
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/character"
)

// Side is one team's players as seen by the resolver.
type Side struct {
	TeamID  string
	Players []*character.Player
}

// Field is the resolver's view of one battle: the player sides in team order
// followed by the enemy roster.
// It holds pointers into the battle's own characters; the resolver mutates
// them in place.
type Field struct {
	PvP     bool
	Sides   []Side
	Enemies []*character.Enemy
}

// All returns every combatant: players in team then join order, then enemies
// in roster order.
func (f *Field) All() []character.Combatant {
	var out []character.Combatant
	for _, s := range f.Sides {
		for _, p := range s.Players {
			out = append(out, p)
		}
	}
	for _, e := range f.Enemies {
		out = append(out, e)
	}
	return out
}

// Find returns the combatant with id, or nil.
func (f *Field) Find(id string) character.Combatant {
	for _, c := range f.All() {
		if c.Base().ID == id {
			return c
		}
	}
	return nil
}

// sideOf returns the team id of a player, or "" for enemies.
func sideOf(c character.Combatant) string {
	if p, ok := c.(*character.Player); ok {
		return p.TeamID
	}
	return ""
}

// Allies returns the living characters fighting alongside actor. For a player
// these are the living players of its own team, itself included; for an
// enemy they are the other living enemies.
func (f *Field) Allies(actor character.Combatant) []character.Combatant {
	var out []character.Combatant
	if _, ok := actor.(*character.Enemy); ok {
		for _, e := range f.Enemies {
			if e.ID != actor.Base().ID && e.CanAct() {
				out = append(out, e)
			}
		}
		return out
	}
	team := sideOf(actor)
	for _, s := range f.Sides {
		if s.TeamID != team {
			continue
		}
		for _, p := range s.Players {
			if p.CanAct() {
				out = append(out, p)
			}
		}
	}
	return out
}

// Opponents returns the living characters actor fights against. Enemies
// oppose every player. A player opposes the enemy roster and, in PvP, the
// players of every other team.
func (f *Field) Opponents(actor character.Combatant) []character.Combatant {
	var out []character.Combatant
	if _, ok := actor.(*character.Enemy); ok {
		for _, s := range f.Sides {
			for _, p := range s.Players {
				if p.CanAct() {
					out = append(out, p)
				}
			}
		}
		return out
	}
	if f.PvP {
		team := sideOf(actor)
		for _, s := range f.Sides {
			if s.TeamID == team {
				continue
			}
			for _, p := range s.Players {
				if p.CanAct() {
					out = append(out, p)
				}
			}
		}
	}
	for _, e := range f.Enemies {
		if e.CanAct() {
			out = append(out, e)
		}
	}
	return out
}

// IsOpponent reports whether target is on a side opposing actor.
func (f *Field) IsOpponent(actor, target character.Combatant) bool {
	for _, c := range f.Opponents(actor) {
		if c.Base().ID == target.Base().ID {
			return true
		}
	}
	return false
}

// TurnOrder returns every living, non-fled combatant sorted by descending
// modified speed. Ties keep the order of All.
//
// Postcondition: the result is a permutation of the acting combatants and
// ModifiedSpeed is non-increasing along it.
func TurnOrder(f *Field) []character.Combatant {
	var order []character.Combatant
	for _, c := range f.All() {
		if c.Base().CanAct() {
			order = append(order, c)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Base().ModifiedSpeed() > order[j].Base().ModifiedSpeed()
	})
	return order
}
