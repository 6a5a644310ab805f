package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// Info snapshots c for a Lua hook.
func Info(c character.Combatant) scripting.CombatantInfo {
	b := c.Base()
	info := scripting.CombatantInfo{
		ID:        b.ID,
		Name:      b.Name,
		Health:    b.Health,
		MaxHealth: b.MaxHealth,
		Attack:    b.ModifiedAttack(),
		Defense:   b.ModifiedDefense(),
		Speed:     b.ModifiedSpeed(),
	}
	for _, a := range b.Effects.All() {
		info.Effects = append(info.Effects, a.Def.ID)
	}
	switch v := c.(type) {
	case *character.Enemy:
		for _, s := range v.Skills {
			if s.Ready() {
				info.Skills = append(info.Skills, s.ID)
			}
		}
	case *character.Player:
		for _, s := range v.Skills {
			info.Skills = append(info.Skills, s.ID)
		}
	}
	return info
}

func infos(cs []character.Combatant) []scripting.CombatantInfo {
	out := make([]scripting.CombatantInfo, 0, len(cs))
	for _, c := range cs {
		out = append(out, Info(c))
	}
	return out
}

// fromScript asks e's Lua hook for an action and validates the answer.
func (p *Planner) fromScript(f *combat.Field, e *character.Enemy) (combat.Action, bool) {
	allies := f.Allies(e)
	opponents := f.Opponents(e)
	d := p.scripts.Decide(e.AIScript, Info(e), infos(allies), infos(opponents))
	if d == nil {
		return nil, false
	}
	a, ok := validate(d, e, allies, opponents)
	if !ok {
		p.logger.Warn("ai: script returned an illegal action",
			zap.String("enemy", e.ID),
			zap.String("hook", e.AIScript),
			zap.String("action", d.Action),
			zap.String("target", d.Target),
			zap.String("skill", d.Skill),
		)
	}
	return a, ok
}

func contains(cs []character.Combatant, id string) bool {
	for _, c := range cs {
		if c.Base().ID == id {
			return true
		}
	}
	return false
}

func validate(d *scripting.Decision, e *character.Enemy, allies, opponents []character.Combatant) (combat.Action, bool) {
	typ, err := combat.ParseActionType(d.Action)
	if err != nil {
		return nil, false
	}
	switch typ {
	case combat.ActionAttack:
		if !contains(opponents, d.Target) {
			return nil, false
		}
		return combat.Attack{TargetID: d.Target}, true
	case combat.ActionSkill:
		sk, ok := e.SkillByID(d.Skill)
		if !ok || !sk.Ready() {
			return nil, false
		}
		if d.Target != "" && d.Target != e.ID && !contains(opponents, d.Target) && !contains(allies, d.Target) {
			return nil, false
		}
		return combat.UseSkill{SkillID: sk.ID, TargetID: d.Target}, true
	case combat.ActionDefend:
		return combat.Defend{}, true
	case combat.ActionPass:
		return combat.Pass{}, true
	}
	return nil, false
}
