// Package store implements the Remote Store Adapter: a pooled SQL
// connection to the external relational store the Exporter writes
// batches of outcomes to.
package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nightwatch/monitor/pkg/monitorerr"
	"github.com/nightwatch/monitor/pkg/probe"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS monitoring (
	id                    BIGSERIAL PRIMARY KEY,
	url                   TEXT NOT NULL,
	method                TEXT NOT NULL,
	request_timestamp     TIMESTAMPTZ NOT NULL,
	regex_check_required  BOOLEAN NOT NULL,
	contains_regex        BOOLEAN NOT NULL,
	contains_exception    BOOLEAN NOT NULL,
	status_code           INTEGER NULL,
	response_timestamp    TIMESTAMPTZ NULL,
	regex                 TEXT NULL,
	exception             TEXT NULL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertStatement = `
INSERT INTO monitoring
	(url, method, request_timestamp, regex_check_required, contains_regex,
	 contains_exception, status_code, response_timestamp, regex, exception)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Adapter is the contract the Exporter depends on. The concrete store
// implementation is swappable so tests can substitute a fake without a
// live database.
type Adapter interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Create(ctx context.Context, batch []probe.Outcome) error
}

// SQLStore is the Adapter implementation backed by *sqlx.DB, reached via
// the pgx stdlib driver against the DSN named by DATABASE_URI.
type SQLStore struct {
	dsn string

	mu sync.RWMutex
	db *sqlx.DB
}

// New returns an SQLStore pointed at dsn. It does not connect; call
// Connect before use.
func New(dsn string) *SQLStore {
	return &SQLStore{dsn: dsn}
}

// Connect is idempotent: it establishes a pool (if not already
// established) and runs the idempotent table-creation statement.
func (s *SQLStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sqlx.Open("pgx", s.dsn)
	if err != nil {
		return classifyError(err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return classifyError(err)
	}

	if _, err := db.ExecContext(ctx, createTableStatement); err != nil {
		_ = db.Close()
		return fmt.Errorf("initializing monitoring table: %w", err)
	}

	s.db = db
	return nil
}

// Disconnect releases all pooled connections. Safe to call when not
// connected.
func (s *SQLStore) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Reconnect forcibly tears down the current pool and rebuilds it. Used by
// the Exporter after a connection-class error from Create.
func (s *SQLStore) Reconnect(ctx context.Context) error {
	if err := s.Disconnect(); err != nil {
		return err
	}
	return s.Connect(ctx)
}

// Create inserts every row of batch inside one transaction: either all
// rows are durably written, or the call fails and the caller may retry the
// same batch.
func (s *SQLStore) Create(ctx context.Context, batch []probe.Outcome) error {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	if db == nil {
		return monitorerr.ErrNotConnected
	}
	if len(batch) == 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return classifyError(err)
	}

	for _, outcome := range batch {
		row := outcome.AsRow()
		if _, err := tx.ExecContext(ctx, insertStatement, row[:]...); err != nil {
			_ = tx.Rollback()
			return classifyError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classifyError(err)
	}
	return nil
}

// classifyError distinguishes connection-class failures (network, TLS,
// DNS, timeout, driver-reported connection loss) from everything else, so
// the Exporter can decide between reconnect and fatal.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &monitorerr.ConnError{Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is "Connection Exception" in the SQL standard.
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return &monitorerr.ConnError{Err: err}
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &monitorerr.ConnError{Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &monitorerr.ConnError{Err: err}
	}

	return err
}
