// Package testing holds fixtures, fakes and database helpers shared by the
// tickerdash tests.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/tickerdash/internal/database"
)

// NewTestDB opens a migrated database named name in the test's temp dir.
// Names without a schema give an empty database. It is closed when the test
// finishes.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("failed to open test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database %s: %v", name, err)
	}
	return db
}
