package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/tickerdash/internal/config"
	"github.com/aristath/tickerdash/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the sessions and client data databases and
// applies their schemas.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// sessions.db - dashboard caches and data bundles
	sessionsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, database.NameSessions+".db"),
		Profile: database.ProfileStandard,
		Name:    database.NameSessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sessions database: %w", err)
	}
	container.SessionsDB = sessionsDB

	// client_data.db - upstream responses, safe to lose
	clientDataDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, database.NameClientData+".db"),
		Profile: database.ProfileCache,
		Name:    database.NameClientData,
	})
	if err != nil {
		sessionsDB.Close()
		return nil, fmt.Errorf("failed to initialize client data database: %w", err)
	}
	container.ClientDataDB = clientDataDB

	for _, db := range []*database.DB{sessionsDB, clientDataDB} {
		if err := db.Migrate(); err != nil {
			sessionsDB.Close()
			clientDataDB.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	log.Info().
		Str("data_dir", cfg.DataDir).
		Msg("Databases initialized")

	return container, nil
}
