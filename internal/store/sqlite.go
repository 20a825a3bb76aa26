package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/psicoflow/internal/domain"
	"github.com/ashureev/psicoflow/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	recordRetries   = 3
	recordBaseDelay = 50 * time.Millisecond
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.Mutex // serializes writers to keep SQLITE_BUSY rare
}

// NewSQLite opens (creating if needed) the journal database at dbPath.
func NewSQLite(dbPath string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS deliveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		delivered INTEGER NOT NULL,
		phq9_score INTEGER NOT NULL,
		gad7_score INTEGER NOT NULL,
		urgency TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deliveries_created ON deliveries(created_at);
	CREATE INDEX IF NOT EXISTS idx_deliveries_submission ON deliveries(submission_id);
	`
	if _, err := j.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record implements Journal, retrying on SQLite conflicts.
func (j *SQLiteJournal) Record(ctx context.Context, rec domain.DeliveryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	err := shared.RetryOnConflict(ctx, recordRetries, recordBaseDelay, func() error {
		return j.recordOnce(ctx, rec)
	})
	if err != nil {
		return fmt.Errorf("record delivery %s: %w", rec.SubmissionID, err)
	}
	return nil
}

func (j *SQLiteJournal) recordOnce(ctx context.Context, rec domain.DeliveryRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	query := `
		INSERT INTO deliveries (submission_id, user_id, delivered, phq9_score, gad7_score, urgency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, query,
		rec.SubmissionID, rec.UserID, rec.Delivered,
		rec.PHQ9Score, rec.GAD7Score, string(rec.Urgency),
		rec.CreatedAt.Unix(),
	)
	return err
}

// Stats implements Journal.
func (j *SQLiteJournal) Stats(ctx context.Context) (domain.DeliveryStats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(delivered), 0) FROM deliveries`

	var stats domain.DeliveryStats
	if err := j.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Delivered); err != nil {
		return domain.DeliveryStats{}, fmt.Errorf("query delivery stats: %w", err)
	}
	stats.Failed = stats.Total - stats.Delivered
	return stats, nil
}

// Prune implements Journal.
func (j *SQLiteJournal) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	threshold := time.Now().Add(-retention).Unix()
	result, err := j.db.ExecContext(ctx, `DELETE FROM deliveries WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return result.RowsAffected()
}

// Ping implements Journal.
func (j *SQLiteJournal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Close implements Journal.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
