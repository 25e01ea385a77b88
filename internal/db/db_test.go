package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "level_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDBAppliesMigrations(t *testing.T) {
	db := newTestDB(t)

	// both tables exist and are queryable
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n))
	assert.Equal(t, 0, n)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM detections`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level_test.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// reopening re-runs migrateUp against an up-to-date schema
	db, err = NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestStartSessionAndRecordDetections(t *testing.T) {
	db := newTestDB(t)

	sessionID, err := db.StartSession(`{"nbr_average":5}`)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	require.NoError(t, db.RecordDetection(sessionID, 4, KindMain, 0.35, 2400))
	require.NoError(t, db.RecordDetection(sessionID, 4, KindMinor, 0.52, 1900))
	require.NoError(t, db.RecordDetection(sessionID, 9, KindMain, 0.35, 2300))
	require.NoError(t, db.RecordDetection(sessionID, 9, KindFirstAbove, 0.34, 1850))

	counts, err := db.SessionDetectionCount(sessionID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{KindMain: 2, KindMinor: 1, KindFirstAbove: 1}, counts)
}

func TestRecentDetectionsNewestFirst(t *testing.T) {
	db := newTestDB(t)

	sessionID, err := db.StartSession(`{}`)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.RecordDetection(sessionID, i, KindMain, 0.3+float64(i)*0.01, 2000))
	}

	detections, err := db.RecentDetections(3)
	require.NoError(t, err)
	require.Len(t, detections, 3)
	assert.Equal(t, int64(4), detections[0].SweepIndex)
	assert.Equal(t, int64(2), detections[2].SweepIndex)
	assert.InDelta(t, 0.34, detections[0].DistanceM, 1e-9)
}

func TestRecentDetectionsEmpty(t *testing.T) {
	db := newTestDB(t)

	detections, err := db.RecentDetections(10)
	require.NoError(t, err)
	assert.Empty(t, detections)
}
