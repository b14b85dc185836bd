// Package sqlpool owns the process-wide database connection pool and runs
// validated statements on it. Exactly one Pool is opened at startup and
// shared by every request; a connection is checked out for a single
// statement and always returned.
package sqlpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
)

const (
	DriverPostgres = "pgx"
	DriverDuckDB   = "duckdb"
)

var ErrPoolExhausted = errors.New("connection pool exhausted")

type Config struct {
	Driver   string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	// Path is the DuckDB database file; empty means in-memory.
	Path string

	Options
}

// Options bound the pool. AcquireTimeout of zero waits for a free
// connection until the caller's context ends.
type Options struct {
	MinConns         int
	MaxConns         int
	AcquireTimeout   time.Duration
	StatementTimeout time.Duration
	ConnMaxIdleTime  time.Duration
	ConnMaxLifetime  time.Duration
}

type Pool struct {
	db               *sql.DB
	minConns         int
	maxConns         int
	acquireTimeout   time.Duration
	statementTimeout time.Duration
	// native routes reads through pgx directly instead of database/sql.
	native bool
}

type Stats struct {
	MaxConns     int
	Open         int
	InUse        int
	Idle         int
	WaitCount    int64
	WaitDuration time.Duration
}

// Available is the number of connections a caller could check out without
// waiting.
func (s Stats) Available() int {
	return s.MaxConns - s.InUse
}

func Open(ctx context.Context, cfg Config) (*Pool, error) {
	if err := cfg.Options.validate(); err != nil {
		return nil, err
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		db, err = openPostgres(cfg)
	case DriverDuckDB:
		db, err = sql.Open(DriverDuckDB, cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", cfg.Driver, err)
	}

	pool, err := New(db, cfg.Options)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	pool.native = cfg.Driver == DriverPostgres

	warmCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.warm(warmCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return pool, nil
}

// New wraps an already opened database handle. Callers own nothing else:
// the returned Pool closes db on Close.
func New(db *sql.DB, opts Options) (*Pool, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxConns)
	db.SetMaxIdleConns(opts.MaxConns)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return &Pool{
		db:               db,
		minConns:         opts.MinConns,
		maxConns:         opts.MaxConns,
		acquireTimeout:   opts.AcquireTimeout,
		statementTimeout: opts.StatementTimeout,
	}, nil
}

func (o Options) validate() error {
	if o.MinConns < 1 {
		return fmt.Errorf("min connections must be at least 1, got %d", o.MinConns)
	}
	if o.MaxConns < o.MinConns {
		return fmt.Errorf("max connections (%d) must be >= min connections (%d)", o.MaxConns, o.MinConns)
	}
	if o.AcquireTimeout < 0 {
		return fmt.Errorf("acquire timeout must not be negative")
	}
	return nil
}

// Acquire checks out one connection, blocking while MaxConns are in use.
// The caller must Close the connection to return it.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no connection available after %s", ErrPoolExhausted, p.acquireTimeout)
		}
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

func (p *Pool) Stats() Stats {
	s := p.db.Stats()
	return Stats{
		MaxConns:     p.maxConns,
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration,
	}
}

func (p *Pool) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return nil
}

// DB exposes the handle for metrics collectors and fixtures.
func (p *Pool) DB() *sql.DB {
	return p.db
}

func (p *Pool) Close() error {
	return p.db.Close()
}

// warm opens MinConns connections up front so the first requests do not pay
// for connection setup. They stay idle because MaxIdleConns == MaxConns.
func (p *Pool) warm(ctx context.Context) error {
	conns := make([]*sql.Conn, 0, p.minConns)
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()
	for i := 0; i < p.minConns; i++ {
		conn, err := p.db.Conn(ctx)
		if err != nil {
			return fmt.Errorf("open connection %d/%d: %w", i+1, p.minConns, err)
		}
		conns = append(conns, conn)
		if err := conn.PingContext(ctx); err != nil {
			return fmt.Errorf("ping connection %d/%d: %w", i+1, p.minConns, err)
		}
	}
	return nil
}

func openPostgres(cfg Config) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection config: %w", err)
	}
	return stdlib.OpenDB(*connConfig), nil
}

func postgresDSN(cfg Config) string {
	parts := []string{
		"host=" + quoteDSNValue(cfg.Host),
		"port=" + strconv.Itoa(cfg.Port),
		"dbname=" + quoteDSNValue(cfg.Database),
		"user=" + quoteDSNValue(cfg.User),
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(cfg.Password))
	}
	if cfg.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteDSNValue(cfg.SSLMode))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}
