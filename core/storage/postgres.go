package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"log/slog"

	"helpcenterbot/core/config"
	"helpcenterbot/core/helpcenter"
	"helpcenterbot/core/logger"
)

// The document lives in a single-row table so reads and writes stay as
// simple as the file driver while gaining real durability guarantees.
const stateRowID = 1

// PostgresStore persists the state document as one jsonb row.
type PostgresStore struct {
	db *sqlx.DB
}

// Connect opens the database connection, configures the pool, and verifies
// connectivity.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	took := time.Since(start)
	if err != nil {
		logger.ST.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("host", cfg.Host),
			slog.String("port", cfg.Port),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.ST.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return db, nil
}

// NewPostgresStore wraps an open connection as a document store.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load reads the document row. A missing row is a normal first run; a
// corrupted document is logged and replaced with defaults.
func (p *PostgresStore) Load() *helpcenter.State {
	var raw []byte
	err := p.db.Get(&raw, `SELECT document FROM bot_state WHERE id = $1`, stateRowID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.ST.Warn("state row unreadable, starting fresh",
				slog.String("event", "store.load"),
				slog.String("err", err.Error()),
			)
		} else {
			logger.ST.Info("no state row, starting fresh",
				slog.String("event", "store.load"),
			)
		}
		return helpcenter.DefaultState()
	}

	st := helpcenter.DefaultState()
	if err := json.Unmarshal(raw, st); err != nil {
		logger.ST.Warn("state row corrupted, starting fresh",
			slog.String("event", "store.load"),
			slog.String("err", err.Error()),
		)
		return helpcenter.DefaultState()
	}

	logger.ST.Info("state loaded",
		slog.String("event", "store.load"),
		slog.Int("bytes", len(raw)),
	)
	return st
}

// Save upserts the document row.
func (p *PostgresStore) Save(st *helpcenter.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(
		`INSERT INTO bot_state (id, document, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()`,
		stateRowID, data,
	)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	logger.ST.Debug("state saved",
		slog.String("event", "store.save"),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// WaitForPostgres tries to connect to the DB until it is ready or timeout
// is reached.
func WaitForPostgres(dsn string, timeout time.Duration) error {
	start := time.Now()
	var lastErr error
	for {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				_ = db.Close()
				return nil
			}
			_ = db.Close()
		}
		lastErr = err
		if time.Since(start) > timeout {
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		}
		time.Sleep(2 * time.Second)
	}
}
