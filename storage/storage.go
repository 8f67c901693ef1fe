package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"linkedin-easyapply/jobs"
)

// Database is the SQLite attempt log
type Database struct {
	db     *sql.DB
	logger *logrus.Logger
}

// AttemptRecord is one persisted application attempt
type AttemptRecord struct {
	ID         int       `json:"id"`
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	Company    string    `json:"company"`
	ListingURL string    `json:"listing_url"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunStats aggregates the attempt log for the status command
type RunStats struct {
	Total     int `json:"total"`
	Submitted int `json:"submitted"`
	Skipped   int `json:"skipped"`
	Aborted   int `json:"aborted"`
}

// NewDatabase opens the attempt log, creating the file and schema as needed
func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{
		db:     db,
		logger: logger,
	}

	if err := database.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	logger.Info("Database initialized successfully")
	return database, nil
}

func (d *Database) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL,
			title TEXT,
			company TEXT,
			listing_url TEXT,
			outcome TEXT NOT NULL,
			reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_external_id ON attempts(external_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// RecordAttempt appends one attempt to the log
func (d *Database) RecordAttempt(attempt jobs.Attempt) error {
	query := `INSERT INTO attempts (external_id, title, company, listing_url, outcome, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := d.db.Exec(query,
		attempt.Posting.ExternalID,
		attempt.Posting.Title,
		attempt.Posting.Company,
		attempt.Posting.ListingURL,
		string(attempt.Outcome),
		attempt.Reason,
		attempt.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	d.logger.WithFields(logrus.Fields{
		"posting": attempt.Posting.ExternalID,
		"outcome": string(attempt.Outcome),
	}).Debug("Attempt recorded")
	return nil
}

// RecentAttempts returns the newest attempts, most recent first
func (d *Database) RecentAttempts(limit int) ([]AttemptRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.Query(
		`SELECT id, external_id, title, company, listing_url, outcome, reason, created_at
		 FROM attempts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var records []AttemptRecord
	for rows.Next() {
		var rec AttemptRecord
		if err := rows.Scan(&rec.ID, &rec.ExternalID, &rec.Title, &rec.Company,
			&rec.ListingURL, &rec.Outcome, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats aggregates the attempt log by outcome
func (d *Database) Stats() (RunStats, error) {
	var stats RunStats

	rows, err := d.db.Query(`SELECT outcome, COUNT(*) FROM attempts GROUP BY outcome`)
	if err != nil {
		return stats, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return stats, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats.Total += count
		switch jobs.Outcome(outcome) {
		case jobs.OutcomeSubmitted:
			stats.Submitted += count
		case jobs.OutcomeSkipped:
			stats.Skipped += count
		case jobs.OutcomeAborted:
			stats.Aborted += count
		}
	}
	return stats, rows.Err()
}

// Close closes the underlying database handle
func (d *Database) Close() error {
	return d.db.Close()
}
