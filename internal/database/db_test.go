package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndMigrate(t *testing.T) {
	tests := []struct {
		name   string
		tables []string
	}{
		{NameSessions, []string{"sessions"}},
		{NameClientData, []string{"yahoo_quote", "yahoo_history"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := New(Config{
				Path:    filepath.Join(t.TempDir(), "nested", tt.name+".db"),
				Profile: ProfileCache,
				Name:    tt.name,
			})
			require.NoError(t, err)
			defer db.Close()

			require.NoError(t, db.Migrate())
			// schemas are idempotent
			require.NoError(t, db.Migrate())

			for _, table := range tt.tables {
				var name string
				err := db.Conn().QueryRow(
					"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
				).Scan(&name)
				require.NoError(t, err, table)
			}

			assert.NoError(t, db.QuickCheck(context.Background()))
			res, err := db.Checkpoint(context.Background(), "")
			require.NoError(t, err)
			assert.False(t, res.Busy)
			_, err = db.Checkpoint(context.Background(), "BOGUS")
			assert.Error(t, err)
			assert.Equal(t, tt.name, db.Name())
		})
	}
}

func TestMigrateUnknownName(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "unknown"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
}

func TestBuildConnectionString(t *testing.T) {
	s := buildConnectionString("file::memory:?cache=shared", ProfileCache)
	assert.Contains(t, s, "?cache=shared&_pragma=journal_mode(WAL)")
	assert.Contains(t, s, "synchronous(OFF)")

	s = buildConnectionString("/tmp/a.db", ProfileStandard)
	assert.Contains(t, s, "/tmp/a.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, s, "synchronous(NORMAL)")
	assert.Contains(t, s, "auto_vacuum(INCREMENTAL)")
	assert.True(t, strings.HasSuffix(s, "&_pragma=cache_size(-16000)"))
}

func TestUnknownProfileFallsBackToStandard(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Profile: "turbo", Name: "x"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.profile)
	assert.Equal(t, 10, db.Conn().Stats().MaxOpenConnections)
}
