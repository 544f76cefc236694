package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/gstchain/gstio/pkg/chain"
)

// RecorderConfig contains configuration for the history recorder.
type RecorderConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Recorder persists per-block usage rows. It implements
// chain.UsageRecorder.
type Recorder struct {
	db        *sql.DB
	logger    *slog.Logger
	closeOnce sync.Once
}

const schema = `
CREATE TABLE IF NOT EXISTS block_usage (
	id TEXT NOT NULL PRIMARY KEY,
	block_num INTEGER NOT NULL,
	cpu_usage INTEGER NOT NULL,
	net_usage INTEGER NOT NULL,
	virtual_cpu_limit INTEGER NOT NULL,
	virtual_net_limit INTEGER NOT NULL,
	finalized_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_block_usage_block_num ON block_usage(block_num);
CREATE INDEX IF NOT EXISTS idx_block_usage_finalized_at ON block_usage(finalized_at);
`

// NewRecorder opens (creating if necessary) the history database.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("history db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	r := &Recorder{
		db:     db,
		logger: slog.Default().With("component", "history.recorder"),
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	r.logger.Info("history recorder initialized", "path", cfg.Path)
	return r, nil
}

// RecordBlockUsage inserts one row for a finalized block.
func (r *Recorder) RecordBlockUsage(ctx context.Context, usage chain.BlockUsage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO block_usage (
			id, block_num, cpu_usage, net_usage,
			virtual_cpu_limit, virtual_net_limit, finalized_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.New().String(),
		usage.BlockNum,
		int64(usage.CPUUsage),
		int64(usage.NetUsage),
		int64(usage.VirtualCPULimit),
		int64(usage.VirtualNetLimit),
		usage.FinalizedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record block usage: %w", err)
	}
	return nil
}

// RecentUsage returns up to limit rows, newest block first.
func (r *Recorder) RecentUsage(ctx context.Context, limit int) ([]chain.BlockUsage, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT block_num, cpu_usage, net_usage,
		       virtual_cpu_limit, virtual_net_limit, finalized_at
		FROM block_usage
		ORDER BY block_num DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query block usage: %w", err)
	}
	defer rows.Close()

	var out []chain.BlockUsage
	for rows.Next() {
		var (
			usage                                chain.BlockUsage
			cpu, net, virtCPU, virtNet, unixTime int64
		)
		if err := rows.Scan(&usage.BlockNum, &cpu, &net, &virtCPU, &virtNet, &unixTime); err != nil {
			return nil, fmt.Errorf("failed to scan block usage row: %w", err)
		}
		usage.CPUUsage = uint64(cpu)
		usage.NetUsage = uint64(net)
		usage.VirtualCPULimit = uint64(virtCPU)
		usage.VirtualNetLimit = uint64(virtNet)
		usage.FinalizedAt = time.Unix(unixTime, 0).UTC()
		out = append(out, usage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating block usage rows: %w", err)
	}
	return out, nil
}

// Count returns the number of stored rows.
func (r *Recorder) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM block_usage").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count block usage rows: %w", err)
	}
	return n, nil
}

// DeleteBefore removes rows finalized before the cutoff and reports how
// many were deleted.
func (r *Recorder) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM block_usage WHERE finalized_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete block usage rows: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return deleted, nil
}

// Close closes the history database. Close is idempotent.
func (r *Recorder) Close() error {
	var closeErr error
	r.closeOnce.Do(func() {
		closeErr = r.db.Close()
	})
	return closeErr
}
