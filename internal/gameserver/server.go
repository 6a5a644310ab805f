// Package gameserver routes decoded client requests to battles, answers the
// requester and broadcasts battle updates to the other participants.
package gameserver

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/protocol"
	"github.com/cory-johannsen/skirmish/internal/registry"
)

// ResultRecorder stores the outcome of finished battles.
//
// Precondition: snap.State is battle.Finished.
// Postcondition: Returns nil on success or a non-nil error on failure.
type ResultRecorder interface {
	RecordBattle(ctx context.Context, snap battle.Snapshot) error
}

// Deps carries the collaborators of a Server.
type Deps struct {
	Registry *registry.Registry
	Sessions *session.Manager
	Catalog  *npc.Catalog
	Effects  *effect.Registry
	Skills   *skill.Registry
	Planner  battle.Planner
	Source   dice.Source
	// Recorder may be nil to disable result history.
	Recorder ResultRecorder
	// NewID issues player, team and enemy instance ids.
	NewID func() string
	// TurnTimeout auto-passes an idle player's turn; 0 disables.
	TurnTimeout time.Duration
	// DefaultEnemies are spawned for PvE battles created without an enemy list.
	DefaultEnemies []string
	Logger         *zap.Logger
}

// Server is the request router shared by every transport.
type Server struct {
	registry       *registry.Registry
	sessions       *session.Manager
	catalog        *npc.Catalog
	effects        *effect.Registry
	skills         *skill.Registry
	planner        battle.Planner
	src            dice.Source
	recorder       ResultRecorder
	newID          func() string
	turnTimeout    time.Duration
	defaultEnemies []string
	logger         *zap.Logger

	// timerMu guards timers and recorded, and serialises reading a battle's
	// turn key with arming its timer.
	timerMu  sync.Mutex
	timers   map[string]*battle.TurnTimer
	recorded map[string]bool
	stopped  bool

	expiring sync.WaitGroup
	recordWG sync.WaitGroup
}

// NewServer creates a Server.
//
// Precondition: every field of d except Recorder, TurnTimeout and
// DefaultEnemies is set.
// Postcondition: Returns a Server ready to accept connections.
func NewServer(d Deps) *Server {
	return &Server{
		registry:       d.Registry,
		sessions:       d.Sessions,
		catalog:        d.Catalog,
		effects:        d.Effects,
		skills:         d.Skills,
		planner:        d.Planner,
		src:            d.Source,
		recorder:       d.Recorder,
		newID:          d.NewID,
		turnTimeout:    d.TurnTimeout,
		defaultEnemies: d.DefaultEnemies,
		logger:         d.Logger,
		timers:         make(map[string]*battle.TurnTimer),
		recorded:       make(map[string]bool),
	}
}

// ServeConn runs one client connection: a writer goroutine drains the
// session outbox while this goroutine reads and handles requests.
//
// Postcondition: the client has left its battle and its session is closed.
// Returns nil when the client disconnected normally.
func (s *Server) ServeConn(ctx context.Context, conn session.Conn, transport string) error {
	sess := s.sessions.Open(conn.RemoteAddr(), transport)
	logger := s.logger.With(
		zap.String("client_id", sess.ID),
		zap.String("transport", transport),
	)
	logger.Info("session opened", zap.String("remote_addr", sess.RemoteAddr))

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		if err := sess.Pump(conn); err != nil {
			logger.Debug("writer stopped", zap.Error(err))
			_ = conn.Close()
		}
	}()

	err := s.readLoop(ctx, sess, conn)

	s.disconnect(sess.ID)
	if cerr := s.sessions.Close(sess.ID); cerr != nil {
		logger.Warn("closing session", zap.Error(cerr))
	}
	<-pumpDone
	logger.Info("session closed", zap.Duration("connected", time.Since(sess.ConnectedAt)))

	if err == nil || errors.Is(err, io.EOF) || ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) readLoop(ctx context.Context, sess *session.Session, conn session.Conn) error {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		resp := s.Handle(sess.ID, data)
		if err := sess.Send(resp); err != nil {
			if errors.Is(err, session.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// Handle decodes and serves one message from clientID and returns the
// response for the requester. Updates for other participants are queued
// on their sessions before it returns.
func (s *Server) Handle(clientID string, data []byte) protocol.Response {
	req, err := protocol.Decode(data)
	if err != nil {
		s.logger.Debug("rejecting request", zap.String("client_id", clientID), zap.Error(err))
		return s.fail(req, err)
	}
	if sess, ok := s.sessions.Get(clientID); ok && !sess.Allow() {
		return protocol.Failure(req, protocol.CodeRateLimited, "too many requests")
	}
	return s.dispatch(clientID, req)
}

// Wait blocks until in-flight result recordings finish.
func (s *Server) Wait() {
	s.recordWG.Wait()
}

// Stop halts every turn timer and waits for expiries already running.
// Battles are left as they are.
func (s *Server) Stop() {
	s.timerMu.Lock()
	s.stopped = true
	for _, tt := range s.timers {
		tt.Stop()
	}
	s.timerMu.Unlock()
	s.expiring.Wait()
	s.Wait()
}
