package combat

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

var (
	// ErrInvalidTarget is returned when a target id is unknown or the target is down.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrNoTargets is returned when a skill resolves to an empty target list.
	ErrNoTargets = errors.New("no valid targets")
)

// ResolveTargets returns the characters sk acts on when actor casts it with
// the optional chosen targetID.
//
// Self → actor. Single → targetID, which must be alive. AllEnemies and
// AllAllies → Opponents and Allies. Area → the chosen opponent (or the
// first living one) plus its immediate neighbours among the living
// opponents. Random → one random living opponent drawn from src.
//
// Postcondition: Returns a non-empty list or an error wrapping ErrInvalidTarget
// or ErrNoTargets.
func ResolveTargets(f *Field, actor character.Combatant, sk *skill.Skill, targetID string, src dice.Source) ([]character.Combatant, error) {
	var targets []character.Combatant
	switch sk.TargetType {
	case skill.TargetSelf:
		targets = []character.Combatant{actor}
	case skill.TargetSingle:
		t, err := singleTarget(f, targetID)
		if err != nil {
			return nil, err
		}
		targets = []character.Combatant{t}
	case skill.TargetAllEnemies:
		targets = f.Opponents(actor)
	case skill.TargetAllAllies:
		targets = f.Allies(actor)
	case skill.TargetArea:
		targets = areaTargets(f.Opponents(actor), targetID)
	case skill.TargetRandom:
		opp := f.Opponents(actor)
		if i := dice.Pick(src, len(opp)); i >= 0 {
			targets = []character.Combatant{opp[i]}
		}
	default:
		return nil, fmt.Errorf("skill %q: unsupported target type %q", sk.ID, sk.TargetType)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("skill %q: %w", sk.ID, ErrNoTargets)
	}
	return targets, nil
}

func singleTarget(f *Field, id string) (character.Combatant, error) {
	t := f.Find(id)
	if t == nil || !t.Base().CanAct() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, id)
	}
	return t, nil
}

func areaTargets(opponents []character.Combatant, chosen string) []character.Combatant {
	if len(opponents) == 0 {
		return nil
	}
	center := 0
	for i, c := range opponents {
		if c.Base().ID == chosen {
			center = i
			break
		}
	}
	lo := max(0, center-1)
	hi := min(len(opponents)-1, center+1)
	return append([]character.Combatant(nil), opponents[lo:hi+1]...)
}

// RedirectForTaunt returns the character actor must attack instead of target:
// its taunter when that character is still fighting on an opposing side,
// otherwise target itself.
func RedirectForTaunt(f *Field, actor, target character.Combatant) character.Combatant {
	by := actor.Base().TauntedBy
	if by == "" || by == target.Base().ID {
		return target
	}
	taunter := f.Find(by)
	if taunter == nil || !taunter.Base().CanAct() || !f.IsOpponent(actor, taunter) {
		return target
	}
	return taunter
}
