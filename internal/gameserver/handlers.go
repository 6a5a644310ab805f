package gameserver

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/team"
	"github.com/cory-johannsen/skirmish/internal/protocol"
)

// dispatch routes req to its handler. A panicking handler is converted
// into an INTERNAL failure.
func (s *Server) dispatch(clientID string, req protocol.Request) (resp protocol.Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic",
				zap.String("client_id", clientID),
				zap.String("request_type", string(req.RequestType)),
				zap.Any("recover", r),
				zap.String("stack", string(debug.Stack())),
			)
			resp = protocol.Failure(req, protocol.CodeInternal, "internal error")
		}
	}()

	var err error
	switch req.RequestType {
	case protocol.CreateBattle:
		resp, err = s.handleCreateBattle(clientID, req)
	case protocol.JoinBattle:
		resp, err = s.handleJoinBattle(clientID, req)
	case protocol.CreateTeam:
		resp, err = s.handleCreateTeam(clientID, req)
	case protocol.SetTeamReady:
		resp, err = s.handleSetTeamReady(clientID, req)
	case protocol.SetTeamStrategy:
		resp, err = s.handleSetTeamStrategy(clientID, req)
	case protocol.MoveTeam:
		resp, err = s.handleMoveTeam(clientID, req)
	case protocol.StartBattle:
		resp, err = s.handleStartBattle(clientID, req)
	case protocol.ExecuteAction:
		resp, err = s.handleExecuteAction(clientID, req)
	case protocol.InvadeBattle:
		resp, err = s.handleInvadeBattle(clientID, req)
	case protocol.GetBattleState:
		resp, err = s.handleGetBattleState(clientID, req)
	case protocol.LeaveBattle:
		resp, err = s.handleLeaveBattle(clientID, req)
	case protocol.ListBattles:
		resp = protocol.Success(req)
		resp.Battles = s.registry.List()
	case protocol.Ping:
		resp = protocol.Success(req)
		resp.Message = "pong"
	default:
		err = fmt.Errorf("%w: %q", protocol.ErrUnknownRequest, req.RequestType)
	}
	if err != nil {
		s.logger.Debug("request rejected",
			zap.String("client_id", clientID),
			zap.String("request_type", string(req.RequestType)),
			zap.Error(err),
		)
		return s.fail(req, err)
	}
	s.logger.Debug("request handled",
		zap.String("client_id", clientID),
		zap.String("request_type", string(req.RequestType)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp
}

// battleFor resolves the battle a request addresses: an explicit id or room
// code, else the battle the client is in.
func (s *Server) battleFor(clientID string, req protocol.Request) (*battle.Battle, error) {
	if req.BattleID != "" || req.RoomCode != "" {
		return s.registry.Lookup(req.BattleID, req.RoomCode)
	}
	if b, ok := s.registry.BattleOf(clientID); ok {
		return b, nil
	}
	return nil, errNotInBattle
}

// reply builds the requester's response for a mutation and publishes the
// update to everyone else.
func (s *Server) reply(clientID string, req protocol.Request, b *battle.Battle, u battle.Update) protocol.Response {
	resp := protocol.Success(req).WithSnapshot(u.Snapshot)
	resp.PlayerID = u.PlayerID
	resp.TeamID = u.TeamID
	resp.Results = u.Results
	s.publish(b, u, clientID)
	return resp
}

// maxPlayerNameLength matches the battle_participants.name column.
const maxPlayerNameLength = 64

// checkPlayerName rejects a missing name when required and any name the
// history store cannot hold.
func checkPlayerName(name string, required bool) error {
	if name == "" {
		if required {
			return fmt.Errorf("%w: playerName is required", errInvalidArgument)
		}
		return nil
	}
	if utf8.RuneCountInString(name) > maxPlayerNameLength {
		return fmt.Errorf("%w: playerName longer than %d characters", errInvalidArgument, maxPlayerNameLength)
	}
	return nil
}

func (s *Server) handleCreateBattle(clientID string, req protocol.Request) (protocol.Response, error) {
	if err := checkPlayerName(req.PlayerName, false); err != nil {
		return protocol.Response{}, err
	}
	var class character.Class
	if req.PlayerName != "" {
		c, err := character.ParseClass(req.Class)
		if err != nil {
			return protocol.Response{}, err
		}
		class = c
	}
	if cur, ok := s.registry.BattleOf(clientID); ok && !over(cur.State()) {
		return protocol.Response{}, fmt.Errorf("creating battle: %w", errAlreadyInBattle(cur))
	}

	enemies := req.Enemies
	if req.PvP {
		enemies = nil
	} else if len(enemies) == 0 {
		enemies = s.defaultEnemies
	}

	b, err := s.registry.Create(func(id, code string) (*battle.Battle, error) {
		b := battle.New(battle.Config{
			ID:            id,
			RoomCode:      code,
			PvP:           req.PvP,
			AllowInvasion: req.AllowInvasion,
			Effects:       s.effects,
			Skills:        s.skills,
			Planner:       s.planner,
			Source:        s.src,
			Logger:        s.logger,
			NewID:         s.newID,
		})
		for _, tid := range enemies {
			e, err := s.catalog.Spawn(tid, s.newID())
			if err != nil {
				return nil, err
			}
			if err := b.AddEnemy(e); err != nil {
				return nil, err
			}
		}
		return b, nil
	})
	if err != nil {
		return protocol.Response{}, err
	}
	s.logger.Info("battle created",
		zap.String("client_id", clientID),
		zap.String("battle_id", b.ID()),
		zap.String("room_code", b.RoomCode()),
		zap.Bool("pvp", req.PvP),
		zap.Strings("enemies", enemies),
	)

	if err := s.registry.Bind(clientID, b.ID()); err != nil {
		s.registry.Remove(b.ID())
		return protocol.Response{}, err
	}
	if req.PlayerName == "" {
		return protocol.Success(req).WithSnapshot(b.Snapshot()), nil
	}
	u, err := b.Join(clientID, req.PlayerName, class, "")
	if err != nil {
		s.registry.Remove(b.ID())
		return protocol.Response{}, err
	}
	return s.reply(clientID, req, b, u), nil
}

func (s *Server) handleJoinBattle(clientID string, req protocol.Request) (protocol.Response, error) {
	if err := checkPlayerName(req.PlayerName, true); err != nil {
		return protocol.Response{}, err
	}
	class, err := character.ParseClass(req.Class)
	if err != nil {
		return protocol.Response{}, err
	}
	b, err := s.registry.Lookup(req.BattleID, req.RoomCode)
	if err != nil {
		return protocol.Response{}, err
	}
	if cur, ok := s.registry.BattleOf(clientID); ok && cur.ID() != b.ID() && !over(cur.State()) {
		return protocol.Response{}, errAlreadyInBattle(cur)
	}
	u, err := b.Join(clientID, req.PlayerName, class, req.TeamID)
	if err != nil {
		return protocol.Response{}, err
	}
	if err := s.registry.Bind(clientID, b.ID()); err != nil {
		_, _ = b.Leave(clientID)
		return protocol.Response{}, err
	}
	return s.reply(clientID, req, b, u), nil
}

func (s *Server) handleCreateTeam(clientID string, req protocol.Request) (protocol.Response, error) {
	strategy, err := team.ParseStrategy(req.Strategy)
	if err != nil {
		return protocol.Response{}, err
	}
	b, err := s.battleFor(clientID, req)
	if err != nil {
		return protocol.Response{}, err
	}
	u, err := b.CreateTeam(req.TeamName, strategy)
	if err != nil {
		return protocol.Response{}, err
	}
	return s.reply(clientID, req, b, u), nil
}

func (s *Server) handleSetTeamReady(clientID string, req protocol.Request) (protocol.Response, error) {
	b, err := s.battleFor(clientID, req)
	if err != nil {
		return protocol.Response{}, err
	}
	u, err := b.SetTeamReady(clientID, req.TeamID, req.Ready)
	if err != nil {
		return protocol.Response{}, err
	}
	return s.reply(clientID, req, b, u), nil
}

func (s *Server) handleSetTeamStrategy(clientID string, req protocol.Request) (protocol.Response, error) {
	if req.Strategy == "" {
		return protocol.Response{}, fmt.Errorf("%w: strategy is required", errInvalidArgument)
	}
	strategy, err := team.ParseStrategy(req.Strategy)
	if err != nil {
		return protocol.Response{}, err
	}
	b, err := s.battleFor(clientID, req)
	if err != nil {
		return protocol.Response{}, err
	}
	u, err := b.SetTeamStrategy(clientID, req.TeamID, strategy)
	if err != nil {
		return protocol.Response{}, err
	}
	return s.reply(clientID, req, b, u), nil
}

func (s *Server) handleMoveTeam(clientID string, req protocol.Request) (protocol.Response, error) {
	if req.Position == nil {
		return protocol.Response{}, fmt.Errorf("%w: position is required", errInvalidArgument)
	}
	b, err := s.battleFor(clientID, req)
	if err != nil {
		return protocol.Response{}, err
	}
	u, err := b.MoveTeam(clientID, req.TeamID, *req.Position)
	if err != nil {
		return protocol.Response{}, err
	}
	return s.reply(clientID, req, b, u), nil
}

func (s *Server) handleStartBattle(clientID string, req protocol.Request) (protocol.Response, error) {
	b, err := s.battleFor(clientID, req)
	if err != nil {
		return protocol.Response{}, err
	}
	u, err := b.Start(clientID)
	if err != nil {
		return protocol.Response{}, err
	}
	return s.reply(clientID, req, b, u), nil
}

func (s *Server) handleExecuteAction(clientID string, req protocol.Request) (protocol.Response, error) {
	if req.Action == nil {
		return protocol.Response{}, fmt.Errorf("%w: action is required", protocol.ErrMalformed)
	}
	action, err := req.Action.ToAction()
	if err != nil {
		return protocol.Response{}, err
	}
	b, err := s.battleFor(clientID, req)
	if err != nil {
		return protocol.Response{}, err
	}
	u, err := b.ProcessAction(clientID, req.ActorID, action)
	if err != nil {
		return protocol.Response{}, err
	}
	return s.reply(clientID, req, b, u), nil
}

func (s *Server) handleInvadeBattle(clientID string, req protocol.Request) (protocol.Response, error) {
	if err := checkPlayerName(req.PlayerName, true); err != nil {
		return protocol.Response{}, err
	}
	class, err := character.ParseClass(req.Class)
	if err != nil {
		return protocol.Response{}, err
	}
	strategy, err := team.ParseStrategy(req.Strategy)
	if err != nil {
		return protocol.Response{}, err
	}
	b, err := s.registry.Lookup(req.BattleID, req.RoomCode)
	if err != nil {
		return protocol.Response{}, err
	}
	if cur, ok := s.registry.BattleOf(clientID); ok && cur.ID() != b.ID() && !over(cur.State()) {
		return protocol.Response{}, errAlreadyInBattle(cur)
	}
	u, err := b.Invade(clientID, req.TeamName, req.PlayerName, class, strategy)
	if err != nil {
		return protocol.Response{}, err
	}
	if err := s.registry.Bind(clientID, b.ID()); err != nil {
		_, _ = b.Leave(clientID)
		return protocol.Response{}, err
	}
	s.logger.Info("battle invaded",
		zap.String("client_id", clientID),
		zap.String("battle_id", b.ID()),
		zap.String("team_id", u.TeamID),
	)
	return s.reply(clientID, req, b, u), nil
}

func (s *Server) handleGetBattleState(clientID string, req protocol.Request) (protocol.Response, error) {
	b, err := s.battleFor(clientID, req)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.Success(req).WithSnapshot(b.Snapshot()), nil
}

func (s *Server) handleLeaveBattle(clientID string, req protocol.Request) (protocol.Response, error) {
	b, err := s.battleFor(clientID, req)
	if err != nil {
		return protocol.Response{}, err
	}
	u, err := b.Leave(clientID)
	if err != nil {
		// A client that created a battle without joining it is only bound.
		cur, bound := s.registry.BattleOf(clientID)
		if !errors.Is(err, battle.ErrNotParticipant) || !bound || cur.ID() != b.ID() {
			return protocol.Response{}, err
		}
		s.registry.Unbind(clientID)
		resp := protocol.Success(req).WithSnapshot(b.Snapshot())
		s.discardIfAbandoned(b)
		return resp, nil
	}
	s.registry.Unbind(clientID)
	resp := s.reply(clientID, req, b, u)
	s.discardIfAbandoned(b)
	return resp, nil
}

func errAlreadyInBattle(cur *battle.Battle) error {
	return fmt.Errorf("%w: room %s", battle.ErrAlreadyJoined, cur.RoomCode())
}

func over(st battle.State) bool {
	return st == battle.Finished || st == battle.Cancelled
}
