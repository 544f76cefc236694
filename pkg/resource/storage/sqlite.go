package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/gstchain/gstio/pkg/resource"
)

// SQLiteBackend stores ledger checkpoints in a SQLite database.
//
// The backend uses a write-ahead log (WAL) for better concurrent read
// performance while the node is the sole writer.
type SQLiteBackend struct {
	db        *sql.DB
	dbPath    string
	mu        sync.Mutex
	closeOnce sync.Once
}

// Config configures the SQLite backend.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteBackend opens (creating if necessary) the checkpoint database.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(Config{DBPath: dbPath})
}

// NewSQLiteBackendWithConfig opens the checkpoint database with custom
// configuration.
func NewSQLiteBackendWithConfig(cfg Config) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{db: db, dbPath: cfg.DBPath}
	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return backend, nil
}

func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resource_limits (
		owner TEXT NOT NULL PRIMARY KEY,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resource_usage (
		owner TEXT NOT NULL PRIMARY KEY,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resource_prepaid (
		owner TEXT NOT NULL PRIMARY KEY,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resource_globals (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		state TEXT NOT NULL,
		config TEXT NOT NULL,
		prepaid_active INTEGER NOT NULL,
		saved_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save checkpoints the ledger, replacing any previous checkpoint in a
// single transaction.
func (s *SQLiteBackend) Save(ctx context.Context, l *resource.Ledger) error {
	if l == nil {
		return fmt.Errorf("ledger cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkpoint: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"resource_limits", "resource_usage", "resource_prepaid"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, row := range l.LimitsRows() {
		if err := insertOwnerRow(ctx, tx, "resource_limits", string(row.Owner), row); err != nil {
			return err
		}
	}
	for _, row := range l.UsageRows() {
		if err := insertOwnerRow(ctx, tx, "resource_usage", string(row.Owner), row); err != nil {
			return err
		}
	}
	for _, row := range l.PrepaidRows() {
		if err := insertOwnerRow(ctx, tx, "resource_prepaid", string(row.Owner), row); err != nil {
			return err
		}
	}

	stateJSON, err := json.Marshal(l.State())
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	configJSON, err := json.Marshal(l.Config())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	active := 0
	if l.PrepaidActivated() {
		active = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resource_globals (id, state, config, prepaid_active, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			config = excluded.config,
			prepaid_active = excluded.prepaid_active,
			saved_at = excluded.saved_at
	`, string(stateJSON), string(configJSON), active, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save globals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

func insertOwnerRow(ctx context.Context, tx *sql.Tx, table, owner string, row any) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal %s row for %q: %w", table, owner, err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO "+table+" (owner, payload) VALUES (?, ?)", owner, string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert %s row for %q: %w", table, owner, err)
	}
	return nil
}

// Load reconstructs the most recent checkpoint. The bool reports whether a
// checkpoint existed; a fresh database yields (nil, false, nil).
func (s *SQLiteBackend) Load(ctx context.Context) (*resource.Ledger, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		stateJSON  string
		configJSON string
		active     int
		savedAt    int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT state, config, prepaid_active, saved_at FROM resource_globals WHERE id = 1").
		Scan(&stateJSON, &configJSON, &active, &savedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load globals: %w", err)
	}

	l := resource.EmptyLedger()

	if err := json.Unmarshal([]byte(stateJSON), l.State()); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if err := json.Unmarshal([]byte(configJSON), l.Config()); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	l.SetPrepaidActivation(active != 0)

	if err := loadOwnerRows(ctx, s.db, "resource_limits", func(payload []byte) error {
		var row resource.LimitsRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return err
		}
		l.RestoreLimitsRow(row)
		return nil
	}); err != nil {
		return nil, false, err
	}

	if err := loadOwnerRows(ctx, s.db, "resource_usage", func(payload []byte) error {
		var row resource.UsageRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return err
		}
		l.RestoreUsageRow(row)
		return nil
	}); err != nil {
		return nil, false, err
	}

	if err := loadOwnerRows(ctx, s.db, "resource_prepaid", func(payload []byte) error {
		var row resource.PrepaidRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return err
		}
		l.RestorePrepaidRow(row)
		return nil
	}); err != nil {
		return nil, false, err
	}

	return l, true, nil
}

func loadOwnerRows(ctx context.Context, db *sql.DB, table string, apply func(payload []byte) error) error {
	rows, err := db.QueryContext(ctx, "SELECT payload FROM "+table+" ORDER BY owner")
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		if err := apply([]byte(payload)); err != nil {
			return fmt.Errorf("failed to decode %s row: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s: %w", table, err)
	}
	return nil
}

// Close checkpoints the WAL and closes the database. Close is idempotent.
func (s *SQLiteBackend) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})
	return closeErr
}
