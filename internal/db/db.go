// Package db persists detector sessions and their detections to SQLite so
// that a level history survives process restarts and can be queried by the
// HTTP API.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Detection kinds recorded per emitted mean sweep.
const (
	KindMain       = "main"
	KindMinor      = "minor"
	KindFirstAbove = "first_above"
)

// Detection is one persisted detection row.
type Detection struct {
	SessionID  string    `json:"session_id"`
	SweepIndex int64     `json:"sweep_index"`
	Kind       string    `json:"kind"`
	DistanceM  float64   `json:"distance_m"`
	Amplitude  float64   `json:"amplitude"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewDB opens (creating if needed) the SQLite database at path and applies
// any pending schema migrations.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// StartSession inserts a new session row and returns its generated ID. The
// configuration is stored as JSON for later reference alongside the
// detections it produced.
func (db *DB) StartSession(configJSON string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, config, started_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		id, configJSON,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return id, nil
}

// RecordDetection persists one detection from an emitted mean sweep.
func (db *DB) RecordDetection(sessionID string, sweepIndex int, kind string, distanceM, amplitude float64) error {
	_, err := db.Exec(
		`INSERT INTO detections (session_id, sweep_index, kind, distance_m, amplitude)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, sweepIndex, kind, distanceM, amplitude,
	)
	return err
}

// RecentDetections returns up to limit detections, newest first.
func (db *DB) RecentDetections(limit int) ([]Detection, error) {
	rows, err := db.Query(
		`SELECT session_id, sweep_index, kind, distance_m, amplitude, timestamp
		 FROM detections ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []Detection
	for rows.Next() {
		var d Detection
		if err := rows.Scan(&d.SessionID, &d.SweepIndex, &d.Kind, &d.DistanceM, &d.Amplitude, &d.Timestamp); err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}
	return detections, rows.Err()
}

// SessionDetectionCount returns the number of detections recorded for a
// session, broken down by kind.
func (db *DB) SessionDetectionCount(sessionID string) (map[string]int, error) {
	rows, err := db.Query(
		`SELECT kind, COUNT(*) FROM detections WHERE session_id = ? GROUP BY kind`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
