package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"termin/internal/logging"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the durable booking record store backed by sqlite. It also
// carries the subscriber registry feeding live change subscriptions.
type DB struct {
	db  *sql.DB
	log zerolog.Logger

	mu          sync.Mutex
	subscribers map[int64]*subscriber
	nextSubID   int64
}

// NewDB opens (creating if needed) the sqlite database at path.
// Use ":memory:" for throwaway test stores.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dsn := path + "?_busy_timeout=5000"
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise get its own blank
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	log := logging.Component(logger, "database")
	log.Info().Str("path", path).Msg("database initialized")

	return &DB{
		db:          db,
		log:         log,
		subscribers: make(map[int64]*subscriber),
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            barber_id TEXT NOT NULL DEFAULT '',
            barber_name TEXT NOT NULL DEFAULT '',
            service_id TEXT NOT NULL DEFAULT '',
            service_name TEXT NOT NULL DEFAULT '',
            service_price TEXT NOT NULL DEFAULT '',
            user_id TEXT NOT NULL DEFAULT '',
            user_name TEXT NOT NULL DEFAULT '',
            user_phone TEXT NOT NULL DEFAULT '',
            user_email TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            manual_block INTEGER NOT NULL DEFAULT 0,
            cancellation_reason TEXT NOT NULL DEFAULT '',
            cancelled_at DATETIME,
            created_at DATETIME NOT NULL,
            last_updated DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT '',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date_barber ON bookings(date, barber_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) Close() error {
	db.closeSubscribers()
	return db.db.Close()
}
