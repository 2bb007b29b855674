package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const sweepTimeout = time.Minute

// SweepJob evicts idle sessions and drops expired stored slots.
type SweepJob struct {
	manager *Manager
	log     zerolog.Logger
}

// NewSweepJob creates a session sweep job.
func NewSweepJob(manager *Manager, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		manager: manager,
		log:     log.With().Str("job", "session_sweep").Logger(),
	}
}

// Run executes the sweep.
func (j *SweepJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := j.manager.SweepExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Session sweep failed")
		return err
	}
	j.log.Debug().Int("evicted", n).Int("active", j.manager.Active()).Msg("Session sweep completed")
	return nil
}

// Name returns the job name.
func (j *SweepJob) Name() string {
	return "session_sweep"
}
