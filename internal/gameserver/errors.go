package gameserver

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/game/team"
	"github.com/cory-johannsen/skirmish/internal/protocol"
	"github.com/cory-johannsen/skirmish/internal/registry"
)

var (
	// errNotInBattle is returned when a request needs the client's battle and it has none.
	errNotInBattle = errors.New("not in a battle")
	// errInvalidArgument is returned for missing or out-of-range request fields.
	errInvalidArgument = errors.New("invalid argument")
)

// codes maps sentinel errors to failure codes. Order matters: the first
// match wins.
var codes = []struct {
	err  error
	code protocol.Code
}{
	{protocol.ErrMalformed, protocol.CodeMalformed},
	{protocol.ErrUnknownRequest, protocol.CodeUnknownRequest},

	{battle.ErrNotYourTurn, protocol.CodeNotYourTurn},
	{battle.ErrNotOwner, protocol.CodeNotOwner},
	{battle.ErrInvalidState, protocol.CodeInvalidState},
	{battle.ErrBattleFull, protocol.CodeBattleFull},
	{battle.ErrAlreadyJoined, protocol.CodeAlreadyJoined},
	{registry.ErrAlreadyInBattle, protocol.CodeAlreadyJoined},
	{battle.ErrCannotInvade, protocol.CodeCannotInvade},
	{battle.ErrNotEnoughCombatants, protocol.CodeNotEnoughCombatants},
	{battle.ErrUnknownSkill, protocol.CodeInvalidAction},
	{combat.ErrInvalidTarget, protocol.CodeInvalidTarget},
	{combat.ErrNoTargets, protocol.CodeInvalidTarget},
	{combat.ErrInsufficientMana, protocol.CodeInsufficientMana},
	{combat.ErrSkillOnCooldown, protocol.CodeSkillOnCooldown},
	{combat.ErrFleeInPvP, protocol.CodeInvalidAction},
	{combat.ErrUnknownItem, protocol.CodeInvalidAction},
	{combat.ErrNoItem, protocol.CodeInvalidAction},
	{team.ErrTeamFull, protocol.CodeTeamFull},
	{team.ErrDuplicatePlayer, protocol.CodeAlreadyJoined},
	{team.ErrUnknownStrategy, protocol.CodeInvalidArgument},
	{character.ErrUnknownClass, protocol.CodeInvalidArgument},
	{npc.ErrTemplateNotFound, protocol.CodeInvalidArgument},
	{errInvalidArgument, protocol.CodeInvalidArgument},

	{registry.ErrBattleNotFound, protocol.CodeBattleNotFound},
	{battle.ErrTeamNotFound, protocol.CodeTeamNotFound},
	{team.ErrPlayerNotFound, protocol.CodePlayerNotFound},
	{battle.ErrNotParticipant, protocol.CodeNotInBattle},
	{errNotInBattle, protocol.CodeNotInBattle},
}

// codeFor returns the failure code for err; unrecognised errors are INTERNAL.
func codeFor(err error) protocol.Code {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return protocol.CodeInternal
}

// fail converts err into a failed response for req.
func (s *Server) fail(req protocol.Request, err error) protocol.Response {
	code := codeFor(err)
	msg := err.Error()
	if code == protocol.CodeInternal {
		s.logger.Error("request failed",
			zap.String("request_type", string(req.RequestType)),
			zap.Error(err),
		)
		msg = "internal error"
	}
	return protocol.Failure(req, code, msg)
}
