package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/tickerdash/internal/database"
	testutil "github.com/aristath/tickerdash/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	panic bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

func TestAddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 */10 * * * *", &countingJob{name: "a"}))
	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "b"}))
	assert.ElementsMatch(t, []string{"a", "b"}, s.Jobs())

	err := s.AddJob("@every 1h", &countingJob{name: "a"})
	assert.ErrorContains(t, err, "already registered")

	err = s.AddJob("not a schedule", &countingJob{name: "c"})
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "a", err: errors.New("failed")}

	assert.EqualError(t, s.RunNow(job), "failed")
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestRunByName(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "a"}
	require.NoError(t, s.AddJob("@every 1h", job))

	require.NoError(t, s.RunByName("a"))
	assert.Equal(t, int32(1), job.runs.Load())

	assert.ErrorIs(t, s.RunByName("nope"), ErrJobNotFound)
}

func TestScheduledRunSurvivesPanics(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "p", panic: true}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}

func TestDatabaseJobs(t *testing.T) {
	dbs := map[string]*database.DB{
		database.NameSessions:   testutil.NewTestDB(t, database.NameSessions),
		database.NameClientData: testutil.NewTestDB(t, database.NameClientData),
		"missing":               nil,
	}

	check := NewCheckDatabasesJob(dbs, zerolog.Nop())
	assert.Equal(t, "check_databases", check.Name())
	assert.NoError(t, check.Run())

	wal := NewCheckWALCheckpointsJob(dbs, zerolog.Nop())
	assert.Equal(t, "check_wal_checkpoints", wal.Name())
	assert.NoError(t, wal.Run())
}
