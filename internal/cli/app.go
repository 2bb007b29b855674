// Package cli implements the tickerctl subcommands. Every command works on
// one named session backed by a local sqlite file, so the frontier cache
// and merged data survive between invocations.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/aristath/tickerdash/internal/database"
	"github.com/aristath/tickerdash/internal/gateway"
	"github.com/aristath/tickerdash/internal/session"
	"github.com/aristath/tickerdash/pkg/logger"
)

// Options are the flags shared by every command.
type Options struct {
	Server    string
	DB        string
	Session   string
	Ephemeral bool
	TTL       time.Duration
	Timeout   time.Duration
	LogLevel  string

	// Out receives command output. Diagnostics go to stderr.
	Out io.Writer
}

// NewOptions returns options with defaults applied.
func NewOptions() *Options {
	return &Options{
		Server:   "http://localhost:8001",
		DB:       defaultDBPath(),
		Session:  "default",
		TTL:      30 * 24 * time.Hour,
		Timeout:  gateway.DefaultTimeout,
		LogLevel: "warn",
		Out:      os.Stdout,
	}
}

// Register binds the shared flags to fs.
func (o *Options) Register(fs *flag.FlagSet) {
	fs.StringVar(&o.Server, "server", o.Server, "Base URL of the tickerdash server.")
	fs.StringVar(&o.DB, "db", o.DB, "Path to the local session database.")
	fs.StringVar(&o.Session, "session", o.Session, "Name of the session to work on.")
	fs.BoolVar(&o.Ephemeral, "ephemeral", o.Ephemeral, "Keep the session in memory only; nothing is read or written on disk.")
	fs.DurationVar(&o.TTL, "ttl", o.TTL, "How long an untouched session is kept.")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Request timeout against the server.")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Diagnostic log level (debug, info, warn, error).")
}

// Commands returns every tickerctl subcommand sharing opts.
func Commands(opts *Options) []subcommands.Command {
	return []subcommands.Command{
		&addCmd{opts: opts},
		&removeCmd{opts: opts},
		&clearCmd{opts: opts},
		&listCmd{opts: opts},
		&frontierCmd{opts: opts},
		&tableCmd{opts: opts},
		&riskCmd{opts: opts},
		&mctrCmd{opts: opts},
		&pingCmd{opts: opts},
	}
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tickerctl.db"
	}
	return filepath.Join(dir, "tickerdash", "tickerctl.db")
}

func (o *Options) logger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(logger.ParseLevel(o.LogLevel)).
		With().
		Timestamp().
		Logger()
}

func (o *Options) client(log zerolog.Logger) *gateway.Client {
	return gateway.NewClient(o.Server, o.Timeout, log)
}

// open restores the named session. The returned func releases the store.
func (o *Options) open(ctx context.Context) (*session.Controller, func(), error) {
	log := o.logger()

	var (
		store   session.Store
		release = func() {}
	)
	if o.Ephemeral {
		store = session.NewMemoryStore(o.TTL)
	} else {
		db, err := database.New(database.Config{
			Path:    o.DB,
			Profile: database.ProfileStandard,
			Name:    database.NameSessions,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate session database: %w", err)
		}
		store = session.NewSQLiteStore(db, o.TTL, log)
		release = func() { db.Close() }
	}

	c := session.NewController(o.Session, o.client(log), store, log)
	c.Init(ctx)
	return c, release, nil
}

// withSession runs fn against the restored session and maps its error to
// an exit status.
func (o *Options) withSession(ctx context.Context, fn func(c *session.Controller) error) subcommands.ExitStatus {
	c, release, err := o.open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer release()

	if err := fn(c); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (o *Options) printJSON(v interface{}) error {
	enc := json.NewEncoder(o.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
