package protocol

// Code is a machine-readable failure reason carried by failed responses.
type Code string

// Category groups codes by how a failure arose.
type Category string

const (
	Validation Category = "validation"
	Lookup     Category = "lookup"
	Protocol   Category = "protocol"
	Transport  Category = "transport"
	Internal   Category = "internal"
)

const (
	CodeNotYourTurn         Code = "NOT_YOUR_TURN"
	CodeNotOwner            Code = "NOT_OWNER"
	CodeInvalidTarget       Code = "INVALID_TARGET"
	CodeInsufficientMana    Code = "INSUFFICIENT_MANA"
	CodeSkillOnCooldown     Code = "SKILL_ON_COOLDOWN"
	CodeInvalidAction       Code = "INVALID_ACTION"
	CodeTeamFull            Code = "TEAM_FULL"
	CodeAlreadyJoined       Code = "ALREADY_JOINED"
	CodeBattleFull          Code = "BATTLE_FULL"
	CodeInvalidState        Code = "INVALID_STATE"
	CodeCannotInvade        Code = "CANNOT_INVADE"
	CodeNotEnoughCombatants Code = "NOT_ENOUGH_COMBATANTS"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"

	CodeBattleNotFound Code = "BATTLE_NOT_FOUND"
	CodeTeamNotFound   Code = "TEAM_NOT_FOUND"
	CodePlayerNotFound Code = "PLAYER_NOT_FOUND"
	CodeNotInBattle    Code = "NOT_IN_BATTLE"

	CodeUnknownRequest Code = "UNKNOWN_REQUEST"
	CodeMalformed      Code = "MALFORMED"
	CodeRateLimited    Code = "RATE_LIMITED"

	CodeTimeout Code = "TIMEOUT"

	CodeInternal Code = "INTERNAL"
)

var categories = map[Code]Category{
	CodeNotYourTurn:         Validation,
	CodeNotOwner:            Validation,
	CodeInvalidTarget:       Validation,
	CodeInsufficientMana:    Validation,
	CodeSkillOnCooldown:     Validation,
	CodeInvalidAction:       Validation,
	CodeTeamFull:            Validation,
	CodeAlreadyJoined:       Validation,
	CodeBattleFull:          Validation,
	CodeInvalidState:        Validation,
	CodeCannotInvade:        Validation,
	CodeNotEnoughCombatants: Validation,
	CodeInvalidArgument:     Validation,
	CodeBattleNotFound:      Lookup,
	CodeTeamNotFound:        Lookup,
	CodePlayerNotFound:      Lookup,
	CodeNotInBattle:         Lookup,
	CodeUnknownRequest:      Protocol,
	CodeMalformed:           Protocol,
	CodeRateLimited:         Protocol,
	CodeTimeout:             Transport,
	CodeInternal:            Internal,
}

// Category returns the code's failure category. Unknown codes are Internal.
func (c Code) Category() Category {
	if cat, ok := categories[c]; ok {
		return cat
	}
	return Internal
}
