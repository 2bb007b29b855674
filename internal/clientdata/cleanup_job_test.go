package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	job := NewCleanupJob(NewRepository(setupTestDB(t)), zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	job := NewCleanupJob(NewRepository(db), zerolog.Nop())

	now := time.Now()
	insertExpiredAndFresh(t, db, TableQuote, "symbol", now.Add(-time.Hour).Unix(), now.Add(time.Hour).Unix())
	insertExpiredAndFresh(t, db, TableHistory, "series", now.Add(-time.Hour).Unix(), now.Add(time.Hour).Unix())

	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT (SELECT COUNT(*) FROM yahoo_quote) + (SELECT COUNT(*) FROM yahoo_history)",
	).Scan(&count))
	assert.Equal(t, 2, count)

	var key string
	require.NoError(t, db.QueryRow("SELECT symbol FROM yahoo_quote").Scan(&key))
	assert.Equal(t, "fresh", key)
}

func TestCleanupJobRun_NothingToDelete(t *testing.T) {
	job := NewCleanupJob(NewRepository(setupTestDB(t)), zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestCleanupJobRun_MissingTableFails(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Error(t, job.Run())
}

func insertExpiredAndFresh(t *testing.T, db *sql.DB, table, keyCol string, expiredAt, freshAt int64) {
	t.Helper()
	_, err := db.Exec("INSERT INTO "+table+" ("+keyCol+", data, expires_at) VALUES (?, ?, ?)", "expired", `{}`, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO "+table+" ("+keyCol+", data, expires_at) VALUES (?, ?, ?)", "fresh", `{}`, freshAt)
	require.NoError(t, err)
}
