package recorder

import (
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder journals cycle outcomes to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	log *zap.Logger
	mu  sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL mode so dashboards can read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			seq         INTEGER NOT NULL,
			sort_order  TEXT,
			records     INTEGER,
			failures    INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON refresh_cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS asset_failures (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			asset_id  TEXT,
			reason    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON asset_failures(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(rec *CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO refresh_cycles
		(timestamp, seq, sort_order, records, failures, duration_ms, error)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.Seq, rec.Order, rec.Records, rec.Failures,
		rec.Duration.Milliseconds(), rec.Err,
	)
	return err
}

func (r *SQLiteRecorder) RecordAssetFailure(evt *AssetFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO asset_failures (timestamp, asset_id, reason)
		VALUES (?,?,?)`,
		time.Now().Unix(), evt.AssetID, evt.Reason,
	)
	return err
}

// Prune drops journal rows older than the given time.
func (r *SQLiteRecorder) Prune(olderThan time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := olderThan.Unix()
	if _, err := r.db.Exec(`DELETE FROM refresh_cycles WHERE timestamp < ?`, cutoff); err != nil {
		return err
	}
	_, err := r.db.Exec(`DELETE FROM asset_failures WHERE timestamp < ?`, cutoff)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
