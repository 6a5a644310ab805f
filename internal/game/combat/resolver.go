package combat

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

var (
	// ErrSkillOnCooldown is returned when a skill is used before its cooldown ends.
	ErrSkillOnCooldown = errors.New("skill on cooldown")
	// ErrInsufficientMana is returned when a player cannot pay a skill's mana cost.
	ErrInsufficientMana = errors.New("insufficient mana")
	// ErrFleeInPvP is returned when a character tries to flee a PvP battle.
	ErrFleeInPvP = errors.New("cannot flee a PvP battle")
	// ErrUnknownItem is returned for an item id missing from the catalogue.
	ErrUnknownItem = errors.New("unknown item")
	// ErrNoItem is returned when the player holds none of the item.
	ErrNoItem = errors.New("item not in inventory")
)

// DefendBonus is the flat defense granted by Defend.
const DefendBonus = 5

// Result describes the effect of one action on one target.
type Result struct {
	ActorID  string   `json:"actorId"`
	Action   string   `json:"action"`
	TargetID string   `json:"targetId,omitempty"`
	SkillID  string   `json:"skillId,omitempty"`
	ItemID   string   `json:"itemId,omitempty"`
	Damage   int      `json:"damage,omitempty"`
	Healing  int      `json:"healing,omitempty"`
	Mana     int      `json:"mana,omitempty"`
	Effects  []string `json:"effects,omitempty"`
	Killed   bool     `json:"killed,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// AttackDamage is the damage of a basic attack.
//
// Postcondition: result >= 1.
func AttackDamage(attack, defense int) int {
	return max(1, attack-defense)
}

// SkillDamage is the damage of a skill hit, reduced by the target's
// resistance to the skill element.
//
// Postcondition: result >= 1.
func SkillDamage(base, attack, defense int, resistance float64) int {
	dmg := max(1, base+attack/2-defense)
	if resistance != 0 {
		dmg = int(float64(dmg) * (1 - resistance))
	}
	return max(1, dmg)
}

func resistanceOf(target character.Combatant, element skill.Element) float64 {
	if e, ok := target.(*character.Enemy); ok {
		return e.Resistance(element)
	}
	return 0
}

func creditDamage(actor character.Combatant, dealt int, killed bool) {
	if p, ok := actor.(*character.Player); ok {
		p.Stats.DamageDealt += dealt
		if killed {
			p.Stats.Kills++
		}
	}
}

func creditHealing(actor character.Combatant, healed int) {
	if p, ok := actor.(*character.Player); ok {
		p.Stats.HealingDone += healed
	}
}

// ResolveAttack applies a basic attack from attacker to target.
//
// Precondition: both characters are alive.
// Postcondition: target health drops by AttackDamage, clamped at zero.
func ResolveAttack(attacker, target character.Combatant) Result {
	a, t := attacker.Base(), target.Base()
	dealt := t.TakeDamage(AttackDamage(a.ModifiedAttack(), t.ModifiedDefense()))
	killed := !t.IsAlive()
	creditDamage(attacker, dealt, killed)
	return Result{ActorID: a.ID, Action: "Attack", TargetID: t.ID, Damage: dealt, Killed: killed}
}

// ResolveSkill casts sk from caster on targets.
//
// Precondition: targets come from ResolveTargets.
// Postcondition: on error nothing is mutated. On success the caster's mana is
// spent (players only), the skill is on cooldown, and every target has taken
// damage, received healing and gained the listed effects.
func ResolveSkill(caster character.Combatant, sk *skill.Skill, targets []character.Combatant, effects *effect.Registry) ([]Result, error) {
	if !sk.Ready() {
		return nil, fmt.Errorf("%w: %s has %d turns left", ErrSkillOnCooldown, sk.Name, sk.Cooldown)
	}
	p, isPlayer := caster.(*character.Player)
	if isPlayer && p.Mana < sk.ManaCost {
		return nil, fmt.Errorf("%w: %s needs %d, have %d", ErrInsufficientMana, sk.Name, sk.ManaCost, p.Mana)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("skill %q: %w", sk.ID, ErrNoTargets)
	}
	if isPlayer {
		p.Mana -= sk.ManaCost
	}
	sk.StartCooldown()

	c := caster.Base()
	results := make([]Result, 0, len(targets))
	for _, target := range targets {
		t := target.Base()
		r := Result{ActorID: c.ID, Action: "Skill", SkillID: sk.ID, TargetID: t.ID}
		if sk.Damage > 0 {
			dmg := SkillDamage(sk.Damage, c.ModifiedAttack(), t.ModifiedDefense(), resistanceOf(target, sk.Element))
			r.Damage = t.TakeDamage(dmg)
			r.Killed = !t.IsAlive()
			creditDamage(caster, r.Damage, r.Killed)
		}
		if sk.Healing > 0 {
			r.Healing = t.Heal(sk.Healing)
			creditHealing(caster, r.Healing)
		}
		if t.IsAlive() {
			for _, id := range sk.Effects {
				def, ok := effects.Get(id)
				if !ok {
					continue
				}
				if _, err := t.ApplyStatusEffect(def, c.ID); err == nil {
					r.Effects = append(r.Effects, id)
				}
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// ResolveDefend grants actor DefendBonus flat defense for the rest of the battle.
func ResolveDefend(actor character.Combatant) Result {
	c := actor.Base()
	c.BonusDefense += DefendBonus
	return Result{ActorID: c.ID, Action: "Defend", Message: fmt.Sprintf("%s braces (+%d defense)", c.Name, DefendBonus)}
}

// ResolveFlee marks actor as fled. Fleeing a PvP battle is not allowed.
//
// Postcondition: on success actor.CanAct() is false.
func ResolveFlee(actor character.Combatant, pvp bool) (Result, error) {
	if pvp {
		return Result{}, ErrFleeInPvP
	}
	c := actor.Base()
	c.Fled = true
	return Result{ActorID: c.ID, Action: "Flee", Message: fmt.Sprintf("%s fled the battle", c.Name)}, nil
}

// ResolvePass records a skipped turn.
func ResolvePass(actor character.Combatant, reason string) Result {
	return Result{ActorID: actor.Base().ID, Action: "Pass", Message: reason}
}

// ResolveItem consumes one itemID from user's inventory on target.
//
// Postcondition: on error nothing is mutated.
func ResolveItem(user *character.Player, itemID string, target character.Combatant) (Result, error) {
	item, ok := character.Items[itemID]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	if user.Items[itemID] <= 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoItem, item.Name)
	}
	t := target.Base()
	if !t.CanAct() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidTarget, t.ID)
	}
	user.Items[itemID]--
	r := Result{ActorID: user.ID, Action: "Item", ItemID: itemID, TargetID: t.ID}
	r.Healing = t.Heal(item.Healing)
	creditHealing(user, r.Healing)
	if tp, ok := target.(*character.Player); ok {
		r.Mana = tp.RestoreMana(item.Mana)
	}
	return r, nil
}
