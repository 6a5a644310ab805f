// Package server runs the battle server's long-lived services: it starts
// them together and stops them in reverse order on a signal, a failure or
// context cancellation.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service represents a long-running component that can be started and stopped.
type Service interface {
	// Start runs the service and blocks until it is stopped or fails.
	Start() error
	// Stop gracefully stops the service.
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle manages the startup and shutdown of multiple services.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration

	mu       sync.Mutex
	services []namedService
	onStop   []func()
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a Lifecycle. Each service gets stopTimeout to stop
// before shutdown moves on; zero waits indefinitely.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger, stopTimeout time.Duration) *Lifecycle {
	return &Lifecycle{logger: logger, stopTimeout: stopTimeout}
}

// Add registers a named service. Services start in the order they are added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// OnStop registers fn to run after every service has stopped.
func (l *Lifecycle) OnStop(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStop = append(l.onStop, fn)
}

// Run starts all services and blocks until SIGINT or SIGTERM, the first
// service failure, or ctx is done.
//
// Postcondition: all services are stopped when Run returns; the error is
// the first service failure, if any.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown(services)
	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return runErr
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		l.stop(services[i])
	}
	l.mu.Lock()
	hooks := append([]func(){}, l.onStop...)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
}

// stop stops one service, giving up after stopTimeout.
func (l *Lifecycle) stop(ns namedService) {
	svcStart := time.Now()
	l.logger.Info("stopping service", zap.String("service", ns.name))
	done := make(chan struct{})
	go func() {
		ns.service.Stop()
		close(done)
	}()
	if l.stopTimeout <= 0 {
		<-done
	} else {
		select {
		case <-done:
		case <-time.After(l.stopTimeout):
			l.logger.Warn("service did not stop in time",
				zap.String("service", ns.name),
				zap.Duration("timeout", l.stopTimeout),
			)
			return
		}
	}
	l.logger.Info("service stopped",
		zap.String("service", ns.name),
		zap.Duration("elapsed", time.Since(svcStart)),
	)
}
