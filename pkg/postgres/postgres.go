// Package postgres opens a pooled sqlx connection to PostgreSQL over the pgx driver
// and applies schema migrations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultConnMaxLifetime = 30 * time.Minute
	defaultMaxIdleConns    = 5
	defaultMaxOpenConns    = 25
	defaultConnectAttempts = 5
	defaultConnectBackoff  = time.Second
	defaultPingTimeout     = 5 * time.Second
)

type options struct {
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
	maxIdleConns    int
	maxOpenConns    int
	connectAttempts int
	connectBackoff  time.Duration
	pingTimeout     time.Duration
}

type Option func(*options)

func WithConnMaxIdleTime(d time.Duration) Option {
	return func(o *options) {
		o.connMaxIdleTime = d
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *options) {
		o.connMaxLifetime = d
	}
}

func WithMaxIdleConns(n int) Option {
	return func(o *options) {
		o.maxIdleConns = n
	}
}

func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		o.maxOpenConns = n
	}
}

// WithConnectRetry makes New ping the database up to attempts times, waiting backoff
// between tries, before giving up.
func WithConnectRetry(attempts int, backoff time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.connectAttempts = attempts
		}
		if backoff >= 0 {
			o.connectBackoff = backoff
		}
	}
}

func newOptions(opts ...Option) options {
	o := options{
		connMaxIdleTime: defaultConnMaxIdleTime,
		connMaxLifetime: defaultConnMaxLifetime,
		maxIdleConns:    defaultMaxIdleConns,
		maxOpenConns:    defaultMaxOpenConns,
		connectAttempts: defaultConnectAttempts,
		connectBackoff:  defaultConnectBackoff,
		pingTimeout:     defaultPingTimeout,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func (o options) apply(db *sqlx.DB) {
	db.SetConnMaxIdleTime(o.connMaxIdleTime)
	db.SetConnMaxLifetime(o.connMaxLifetime)
	db.SetMaxIdleConns(o.maxIdleConns)
	db.SetMaxOpenConns(o.maxOpenConns)
}

// New opens a connection pool for dsn and waits until the database answers a ping.
func New(ctx context.Context, dsn string, opts ...Option) (*sqlx.DB, error) {
	const op = "postgres.New"

	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database: %w", op, err)
	}

	o := newOptions(opts...)
	o.apply(db)

	if err := waitForDB(ctx, db, o); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	return db, nil
}

func waitForDB(ctx context.Context, db *sqlx.DB, o options) error {
	var err error

	for attempt := 1; attempt <= o.connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, o.pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()

		if err == nil {
			return nil
		}

		if attempt == o.connectAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.connectBackoff):
		}
	}

	return fmt.Errorf("database unreachable after %d attempts: %w", o.connectAttempts, err)
}
