// Package di provides dependency injection wiring and initialization.
package di

import (
	"errors"

	"github.com/aristath/tickerdash/internal/clientdata"
	"github.com/aristath/tickerdash/internal/clients/yahoo"
	"github.com/aristath/tickerdash/internal/database"
	"github.com/aristath/tickerdash/internal/events"
	"github.com/aristath/tickerdash/internal/modules/charts"
	"github.com/aristath/tickerdash/internal/modules/marketdata"
	"github.com/aristath/tickerdash/internal/modules/risk"
	"github.com/aristath/tickerdash/internal/scheduler"
	"github.com/aristath/tickerdash/internal/session"
)

// Container holds all dependencies for the application. It is created by
// Wire and handed to the HTTP server.
type Container struct {
	// Databases
	SessionsDB   *database.DB // Persisted dashboard sessions (sqlite backend)
	ClientDataDB *database.DB // TTL cache of upstream responses

	// Clients and repositories
	ClientDataRepo *clientdata.Repository
	YahooClient    *yahoo.Client

	// Services
	MarketData     *marketdata.Service
	Risk           *risk.Service
	Charts         *charts.Service
	EventBus       *events.Bus
	SessionStore   session.Store
	SessionManager *session.Manager
	Hub            *session.Hub
	Scheduler      *scheduler.Scheduler
}

// JobInstances holds the registered background jobs so they can be
// triggered by name.
type JobInstances struct {
	ClientDataCleanup   scheduler.Job
	SessionSweep        scheduler.Job
	CheckDatabases      scheduler.Job
	CheckWALCheckpoints scheduler.Job
}

// Databases returns the open databases keyed by name.
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB)
	if c.SessionsDB != nil {
		dbs[c.SessionsDB.Name()] = c.SessionsDB
	}
	if c.ClientDataDB != nil {
		dbs[c.ClientDataDB.Name()] = c.ClientDataDB
	}
	return dbs
}

// Close releases the session store and the databases.
func (c *Container) Close() error {
	var errs []error
	if closer, ok := c.SessionStore.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	for _, db := range []*database.DB{c.SessionsDB, c.ClientDataDB} {
		if db != nil {
			errs = append(errs, db.Close())
		}
	}
	return errors.Join(errs...)
}
