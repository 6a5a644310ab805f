package protocol

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// ActionPayload is the wire form of a combat action.
type ActionPayload struct {
	Type     string `json:"type"`
	TargetID string `json:"targetId,omitempty"`
	SkillID  string `json:"skillId,omitempty"`
	ItemID   string `json:"itemId,omitempty"`
}

// ToAction converts the payload into a combat action.
//
// Postcondition: errors wrap ErrMalformed.
func (p ActionPayload) ToAction() (combat.Action, error) {
	t, err := combat.ParseActionType(p.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch t {
	case combat.ActionAttack:
		if p.TargetID == "" {
			return nil, fmt.Errorf("%w: Attack needs targetId", ErrMalformed)
		}
		return combat.Attack{TargetID: p.TargetID}, nil
	case combat.ActionSkill:
		if p.SkillID == "" {
			return nil, fmt.Errorf("%w: Skill needs skillId", ErrMalformed)
		}
		return combat.UseSkill{SkillID: p.SkillID, TargetID: p.TargetID}, nil
	case combat.ActionItem:
		if p.ItemID == "" {
			return nil, fmt.Errorf("%w: Item needs itemId", ErrMalformed)
		}
		return combat.UseItem{ItemID: p.ItemID, TargetID: p.TargetID}, nil
	case combat.ActionDefend:
		return combat.Defend{}, nil
	case combat.ActionFlee:
		return combat.Flee{}, nil
	default:
		return combat.Pass{}, nil
	}
}

// FromAction converts a combat action into its wire form.
func FromAction(a combat.Action) ActionPayload {
	p := ActionPayload{Type: string(a.Type())}
	switch v := a.(type) {
	case combat.Attack:
		p.TargetID = v.TargetID
	case combat.UseSkill:
		p.SkillID = v.SkillID
		p.TargetID = v.TargetID
	case combat.UseItem:
		p.ItemID = v.ItemID
		p.TargetID = v.TargetID
	}
	return p
}
