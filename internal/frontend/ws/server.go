package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/session"
)

// Handler serves one connected client until it disconnects or ctx ends.
type Handler interface {
	ServeConn(ctx context.Context, conn session.Conn, transport string) error
}

// Lister reports the battles currently hosted.
type Lister interface {
	List() []battle.Summary
}

// Server hosts GET /ws, GET /battles and GET /healthz.
type Server struct {
	http      config.HTTPConfig
	transport config.TransportConfig
	handler   Handler
	lister    Lister
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	engine    *gin.Engine

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	conns    sync.WaitGroup
}

// NewServer builds the gin engine and upgrader.
// httpCfg.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins.
//
// Precondition: handler, lister and logger must be non-nil.
func NewServer(httpCfg config.HTTPConfig, transportCfg config.TransportConfig, handler Handler, lister Lister, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		http:      httpCfg,
		transport: transportCfg,
		handler:   handler,
		lister:    lister,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	allowed := httpCfg.AllowedOrigins
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.healthz)
	r.GET("/battles", s.battles)
	r.GET("/ws", s.serveWS)
	s.engine = r
	return s
}

// Engine exposes the router for in-process tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) battles(c *gin.Context) {
	list := s.lister.List()
	if list == nil {
		list = []battle.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"battles": list})
}

func (s *Server) serveWS(c *gin.Context) {
	raw, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	s.conns.Add(1)
	defer s.conns.Done()

	conn := NewConn(raw, int64(s.transport.MaxMessageBytes), s.transport.ReadTimeout, s.transport.WriteTimeout)
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go s.keepAlive(ctx, conn)

	start := time.Now()
	addr := conn.RemoteAddr()
	s.logger.Info("client connected", zap.String("remote_addr", addr), zap.String("transport", Transport))
	err = s.handler.ServeConn(ctx, conn, Transport)
	if err != nil && websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseNormalClosure,
		websocket.CloseNoStatusReceived) {
		s.logger.Warn("ws unexpected close", zap.String("remote_addr", addr), zap.Error(err))
	}
	s.logger.Info("session ended",
		zap.String("remote_addr", addr),
		zap.Duration("duration", time.Since(start)),
	)
}

// keepAlive pings at a fraction of the read timeout, ending when a ping
// cannot be written, and closes the socket when the server shuts down.
// Pongs do not count as activity.
func (s *Server) keepAlive(ctx context.Context, conn *Conn) {
	period := s.transport.ReadTimeout * 9 / 10
	if period <= 0 {
		period = 30 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		}
	}
}

// Start listens and serves until Stop is called.
//
// Postcondition: Returns nil after a graceful Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.http.Addr(), err)
	}
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	s.mu.Lock()
	s.listener = ln
	s.srv = srv
	s.mu.Unlock()

	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// Stop shuts the HTTP server down and closes every WebSocket session.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	s.cancel()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}
	s.conns.Wait()
	s.logger.Info("http server stopped")
}

// Addr returns the listening address, or empty string before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
