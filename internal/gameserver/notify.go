package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/protocol"
)

// recordTimeout bounds one result-history write.
const recordTimeout = 5 * time.Second

// publish broadcasts u to every participant of b except skip, then keeps
// the turn timer and result history in step with the new state.
func (s *Server) publish(b *battle.Battle, u battle.Update, skip string) {
	clients := audience(b.Participants(), s.registry.Clients(b.ID()))
	if failed := s.sessions.Broadcast(clients, skip, protocol.Update(u.Snapshot, u.Results)); len(failed) > 0 {
		s.logger.Warn("broadcast incomplete",
			zap.String("battle_id", b.ID()),
			zap.Strings("client_ids", failed),
		)
	}

	switch u.Snapshot.State {
	case battle.InProgress:
		s.armTimer(b)
	case battle.Finished:
		s.stopTimer(b.ID())
		s.record(u.Snapshot)
	case battle.Cancelled:
		s.stopTimer(b.ID())
	}
}

// armTimer restarts b's turn timer for the actor now due, or stops it when
// an enemy or nobody is due.
func (s *Server) armTimer(b *battle.Battle) {
	if s.turnTimeout <= 0 {
		return
	}
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.stopped {
		return
	}

	tt, ok := s.timers[b.ID()]
	if !ok {
		tt = battle.NewTurnTimer(s.turnTimeout)
		s.timers[b.ID()] = tt
	}
	turn, index, waiting := b.TurnKey()
	if !waiting {
		tt.Stop()
		return
	}
	tt.Arm(func() {
		s.timerMu.Lock()
		if s.stopped {
			s.timerMu.Unlock()
			return
		}
		s.expiring.Add(1)
		s.timerMu.Unlock()
		defer s.expiring.Done()

		u, ok := b.AutoPass(turn, index)
		if !ok {
			return
		}
		s.logger.Info("turn timed out",
			zap.String("battle_id", b.ID()),
			zap.Int("turn", turn),
			zap.Int("index", index),
		)
		s.publish(b, u, "")
	})
}

func (s *Server) stopTimer(battleID string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if tt, ok := s.timers[battleID]; ok {
		tt.Stop()
		delete(s.timers, battleID)
	}
}

// record stores a finished battle once, in the background.
func (s *Server) record(snap battle.Snapshot) {
	if s.recorder == nil {
		return
	}
	s.timerMu.Lock()
	if s.recorded[snap.ID] {
		s.timerMu.Unlock()
		return
	}
	s.recorded[snap.ID] = true
	s.timerMu.Unlock()

	s.recordWG.Add(1)
	go func() {
		defer s.recordWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.recorder.RecordBattle(ctx, snap); err != nil {
			s.logger.Warn("recording battle result",
				zap.String("battle_id", snap.ID),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("battle result recorded",
			zap.String("battle_id", snap.ID),
			zap.String("winner_team_id", snap.WinnerTeamID),
		)
	}()
}

// disconnect removes a vanished client from its battle.
func (s *Server) disconnect(clientID string) {
	b, ok := s.registry.BattleOf(clientID)
	s.registry.Unbind(clientID)
	if !ok {
		return
	}
	u, err := b.Leave(clientID)
	if err == nil {
		s.publish(b, u, clientID)
	}
	s.discardIfAbandoned(b)
}

// discardIfAbandoned drops b from the registry once nobody is left in it,
// cancelling it when it had not finished. A battle someone joined in the
// meantime is kept.
func (s *Server) discardIfAbandoned(b *battle.Battle) {
	if _, ok := s.registry.RemoveAbandoned(b.ID()); !ok {
		return
	}
	if b.State() != battle.Finished {
		if err := b.Cancel(); err != nil {
			s.logger.Debug("cancelling abandoned battle", zap.String("battle_id", b.ID()), zap.Error(err))
		}
	}
	s.stopTimer(b.ID())
	s.timerMu.Lock()
	delete(s.recorded, b.ID())
	s.timerMu.Unlock()
	s.logger.Info("abandoned battle discarded", zap.String("battle_id", b.ID()))
}

// audience merges battle participants with clients bound to the battle
// without a character.
func audience(participants, bound []string) []string {
	seen := make(map[string]bool, len(participants)+len(bound))
	out := make([]string, 0, len(participants)+len(bound))
	for _, ids := range [][]string{participants, bound} {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
