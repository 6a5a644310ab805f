// Package ai chooses actions for enemies: a fixed archetype per behaviour,
// optionally overridden by a Lua hook.
package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// ScriptDecider is the interface required by the Planner to evaluate Lua hooks.
type ScriptDecider interface {
	// Decide calls hook and returns nil when it has no usable answer.
	Decide(hook string, self scripting.CombatantInfo, allies, opponents []scripting.CombatantInfo) *scripting.Decision
}

// Health thresholds, in percent of max health, that switch archetype behaviour.
const (
	defensiveThreshold = 50
	smartHealThreshold = 40
	cowardThreshold    = 30
)

// Planner picks enemy actions. It is safe for concurrent use when its
// dice source and decider are.
type Planner struct {
	src     dice.Source
	scripts ScriptDecider
	logger  *zap.Logger
}

// NewPlanner constructs a Planner. scripts may be nil to disable Lua hooks.
//
// Precondition: src and logger must not be nil.
func NewPlanner(src dice.Source, scripts ScriptDecider, logger *zap.Logger) *Planner {
	return &Planner{src: src, scripts: scripts, logger: logger}
}

// Choose returns the action e takes this turn.
//
// Precondition: e is the current actor in f and can act.
// Postcondition: the returned action is legal for e in f: targets are living
// opponents or allies and skills are off cooldown.
func (p *Planner) Choose(f *combat.Field, e *character.Enemy) combat.Action {
	if e.AIScript != "" && p.scripts != nil {
		if a, ok := p.fromScript(f, e); ok {
			return a
		}
	}
	opponents := f.Opponents(e)
	if len(opponents) == 0 {
		return combat.Pass{}
	}
	switch e.Behavior {
	case character.Defensive:
		return p.defensive(f, e, opponents)
	case character.Smart:
		return p.smart(f, e, opponents)
	case character.Coward:
		return p.coward(e, opponents)
	case character.Random:
		return p.random(e, opponents)
	default:
		return p.aggressive(e, opponents)
	}
}

func (p *Planner) aggressive(e *character.Enemy, opponents []character.Combatant) combat.Action {
	target := weakest(opponents)
	if sk := strongestDamage(e, nil); sk != nil {
		return combat.UseSkill{SkillID: sk.ID, TargetID: target.Base().ID}
	}
	return combat.Attack{TargetID: target.Base().ID}
}

func (p *Planner) defensive(f *combat.Field, e *character.Enemy, opponents []character.Combatant) combat.Action {
	if healthPercent(e.Base()) < defensiveThreshold {
		return combat.Defend{}
	}
	for _, sk := range e.Skills {
		if sk.Ready() && sk.TargetType == skill.TargetSelf && !selfBuffActive(e, sk) {
			return combat.UseSkill{SkillID: sk.ID}
		}
	}
	target := weakest(opponents)
	if sk := strongestDamage(e, func(s *skill.Skill) bool { return s.TargetType != skill.TargetRandom }); sk != nil {
		return combat.UseSkill{SkillID: sk.ID, TargetID: target.Base().ID}
	}
	return combat.Attack{TargetID: target.Base().ID}
}

func (p *Planner) smart(f *combat.Field, e *character.Enemy, opponents []character.Combatant) combat.Action {
	for _, sk := range e.Skills {
		if !sk.Ready() || sk.Healing == 0 {
			continue
		}
		var hurt []character.Combatant
		if sk.TargetType == skill.TargetSelf {
			hurt = []character.Combatant{e}
		} else {
			hurt = f.Allies(e)
		}
		for _, a := range hurt {
			if healthPercent(a.Base()) < smartHealThreshold {
				return combat.UseSkill{SkillID: sk.ID, TargetID: a.Base().ID}
			}
		}
	}
	if len(opponents) >= 2 {
		aoe := strongestDamage(e, func(s *skill.Skill) bool {
			return s.TargetType == skill.TargetAllEnemies || s.TargetType == skill.TargetArea
		})
		if aoe != nil {
			return combat.UseSkill{SkillID: aoe.ID, TargetID: weakest(opponents).Base().ID}
		}
	}
	target := mostVulnerable(opponents)
	if sk := strongestDamage(e, func(s *skill.Skill) bool { return s.TargetType == skill.TargetSingle }); sk != nil {
		return combat.UseSkill{SkillID: sk.ID, TargetID: target.Base().ID}
	}
	return combat.Attack{TargetID: target.Base().ID}
}

// coward cannot flee, so it turtles when badly hurt and otherwise picks on
// the weakest opponent.
func (p *Planner) coward(e *character.Enemy, opponents []character.Combatant) combat.Action {
	if healthPercent(e.Base()) < cowardThreshold {
		return combat.Defend{}
	}
	return combat.Attack{TargetID: weakest(opponents).Base().ID}
}

func (p *Planner) random(e *character.Enemy, opponents []character.Combatant) combat.Action {
	target := opponents[dice.Pick(p.src, len(opponents))].Base().ID
	var ready []*skill.Skill
	for _, sk := range e.Skills {
		if sk.Ready() {
			ready = append(ready, sk)
		}
	}
	switch p.src.Intn(3) {
	case 0:
		if len(ready) > 0 {
			sk := ready[dice.Pick(p.src, len(ready))]
			return combat.UseSkill{SkillID: sk.ID, TargetID: target}
		}
	case 1:
		return combat.Defend{}
	}
	return combat.Attack{TargetID: target}
}

func healthPercent(c *character.Character) int {
	if c.MaxHealth == 0 {
		return 0
	}
	return c.Health * 100 / c.MaxHealth
}

func weakest(cs []character.Combatant) character.Combatant {
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Base().Health < best.Base().Health {
			best = c
		}
	}
	return best
}

// mostVulnerable ranks by effective health: current health plus modified defense.
func mostVulnerable(cs []character.Combatant) character.Combatant {
	score := func(c character.Combatant) int { return c.Base().Health + c.Base().ModifiedDefense() }
	best := cs[0]
	for _, c := range cs[1:] {
		if score(c) < score(best) {
			best = c
		}
	}
	return best
}

func strongestDamage(e *character.Enemy, keep func(*skill.Skill) bool) *skill.Skill {
	var best *skill.Skill
	for _, sk := range e.Skills {
		if !sk.Ready() || sk.Damage == 0 || (keep != nil && !keep(sk)) {
			continue
		}
		if best == nil || sk.Damage > best.Damage {
			best = sk
		}
	}
	return best
}

func selfBuffActive(e *character.Enemy, sk *skill.Skill) bool {
	for _, id := range sk.Effects {
		if !e.Effects.Has(id) {
			return false
		}
	}
	return true
}
