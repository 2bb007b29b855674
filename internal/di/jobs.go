package di

import (
	"fmt"

	"github.com/aristath/tickerdash/internal/clientdata"
	"github.com/aristath/tickerdash/internal/config"
	"github.com/aristath/tickerdash/internal/scheduler"
	"github.com/aristath/tickerdash/internal/session"
	"github.com/rs/zerolog"
)

// Maintenance schedules that are not configurable.
const (
	checkDatabasesSchedule = "0 15 * * * *"   // hourly
	walCheckpointSchedule  = "0 */30 * * * *" // every 30 minutes
)

// RegisterJobs creates the background jobs and registers them with the
// container's scheduler.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.Scheduler == nil {
		return nil, fmt.Errorf("scheduler not initialized")
	}

	dbs := container.Databases()
	instances := &JobInstances{
		ClientDataCleanup:   clientdata.NewCleanupJob(container.ClientDataRepo, log),
		SessionSweep:        session.NewSweepJob(container.SessionManager, log),
		CheckDatabases:      scheduler.NewCheckDatabasesJob(dbs, log),
		CheckWALCheckpoints: scheduler.NewCheckWALCheckpointsJob(dbs, log),
	}

	registrations := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.Schedule.ClientDataCleanup, instances.ClientDataCleanup},
		{cfg.Schedule.SessionSweep, instances.SessionSweep},
		{checkDatabasesSchedule, instances.CheckDatabases},
		{walCheckpointSchedule, instances.CheckWALCheckpoints},
	}
	for _, reg := range registrations {
		if err := container.Scheduler.AddJob(reg.schedule, reg.job); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", reg.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(registrations)).Msg("Jobs registered")
	return instances, nil
}
