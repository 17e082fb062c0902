package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"currency-converter/pkg/logger"
)

func TestScheduler_AddJob(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob("@every 5m", NewJob("sweep", func() error { return nil })))
	require.NoError(t, s.AddJob("*/5 * * * *", NewJob("sweep-cron", func() error { return nil })))
	assert.Equal(t, 2, len(s.cron.Entries()))

	assert.Error(t, s.AddJob("not a schedule", NewJob("broken", func() error { return nil })))
	assert.Equal(t, 2, len(s.cron.Entries()))
}

func TestNewJob(t *testing.T) {
	runs := 0
	job := NewJob("sweep", func() error {
		runs++
		return nil
	})
	require.NoError(t, job.Run())
	assert.Equal(t, 1, runs)
	assert.Equal(t, "sweep", job.Name())

	failing := NewJob("failing", func() error { return errors.New("boom") })
	assert.EqualError(t, failing.Run(), "boom")
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(logger.NewNop())
	require.NoError(t, s.AddJob("@every 1h", NewJob("idle", func() error { return nil })))

	s.Start()
	s.Stop()
}
