// Package postgres keeps the battle history: finished battles and their
// participants, stored in PostgreSQL through pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// ErrSchemaMissing is returned by CheckSchema when the history tables have
// not been migrated.
var ErrSchemaMissing = errors.New("battle history schema missing")

// historyTables are the tables ResultRepository reads and writes.
var historyTables = []string{"battle_results", "battle_participants"}

// Pool is the connection pool behind the battle history. The game server
// records into it when a battle finishes and the health service watches it.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the history database described by cfg.
//
// Precondition: cfg.Enabled is set and its connection fields are filled.
// Postcondition: Returns a pool that answered a ping, or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing history database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening history pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reaching history database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Pool{pool: pool}, nil
}

// CheckSchema confirms the history tables exist, so a server started
// against an unmigrated database fails before its first battle ends.
//
// Postcondition: Returns an error wrapping ErrSchemaMissing naming the first
// absent table.
func (p *Pool) CheckSchema(ctx context.Context) error {
	for _, table := range historyTables {
		var present bool
		if err := p.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&present); err != nil {
			return fmt.Errorf("looking up %s: %w", table, err)
		}
		if !present {
			return fmt.Errorf("%w: table %s (run the migrate command)", ErrSchemaMissing, table)
		}
	}
	return nil
}

// Health pings the history database, giving up after timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Watch reports the history database's health every interval until ctx
// ends. The first check runs immediately; each ping gets half an interval.
func (p *Pool) Watch(ctx context.Context, interval time.Duration, report func(healthy bool, err error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		err := p.Health(ctx, interval/2)
		if ctx.Err() != nil {
			return
		}
		report(err == nil, err)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close releases the pool. Recording after Close fails.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the pgx pool ResultRepository runs its queries on.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
