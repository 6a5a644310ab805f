package combat

import "fmt"

// ActionType identifies what a combatant does on its turn.
type ActionType string

const (
	ActionAttack ActionType = "Attack"
	ActionSkill  ActionType = "Skill"
	ActionItem   ActionType = "Item"
	ActionPass   ActionType = "Pass"
	ActionDefend ActionType = "Defend"
	ActionFlee   ActionType = "Flee"
)

// ParseActionType returns the ActionType named by s.
func ParseActionType(s string) (ActionType, error) {
	switch t := ActionType(s); t {
	case ActionAttack, ActionSkill, ActionItem, ActionPass, ActionDefend, ActionFlee:
		return t, nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

// Action is one turn's intent. Each variant carries only the fields it needs.
type Action interface {
	Type() ActionType
	isAction()
}

// Attack is a basic attack on TargetID.
type Attack struct{ TargetID string }

// UseSkill casts SkillID; TargetID is required for Single and optional for Area.
type UseSkill struct {
	SkillID  string
	TargetID string
}

// UseItem consumes ItemID on TargetID (the user when empty).
type UseItem struct {
	ItemID   string
	TargetID string
}

// Pass skips the turn.
type Pass struct{}

// Defend raises defense for the rest of the battle.
type Defend struct{}

// Flee leaves a PvE battle.
type Flee struct{}

func (Attack) Type() ActionType   { return ActionAttack }
func (UseSkill) Type() ActionType { return ActionSkill }
func (UseItem) Type() ActionType  { return ActionItem }
func (Pass) Type() ActionType     { return ActionPass }
func (Defend) Type() ActionType   { return ActionDefend }
func (Flee) Type() ActionType     { return ActionFlee }

func (Attack) isAction()   {}
func (UseSkill) isAction() {}
func (UseItem) isAction()  {}
func (Pass) isAction()     {}
func (Defend) isAction()   {}
func (Flee) isAction()     {}
