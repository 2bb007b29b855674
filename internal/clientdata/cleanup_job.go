package clientdata

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

const cleanupTimeout = time.Minute

// CleanupJob purges expired upstream responses. A table that fails does not
// stop the others from being purged.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates the client_data_cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}

func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	var errs []error
	purged := zerolog.Dict()
	var total int64
	for _, table := range AllTables {
		n, err := j.repo.DeleteExpired(ctx, table)
		if err != nil {
			j.log.Error().Err(err).Str("table", table).Msg("Failed to purge expired responses")
			errs = append(errs, err)
			continue
		}
		purged.Int64(table, n)
		total += n
	}

	ev := j.log.Debug()
	if total > 0 {
		ev = j.log.Info()
	}
	ev.Dict("purged", purged).Int64("total", total).Msg("Client data cleanup finished")

	return errors.Join(errs...)
}
