package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentor-match/internal/model"
)

type fakeOptimizer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeOptimizer) Optimize(_ context.Context) error {
	f.calls.Add(1)
	return f.err
}

type fakeCounter map[model.MatchStatus]int64

func (f fakeCounter) CountByStatus(_ context.Context) (map[model.MatchStatus]int64, error) {
	return f, nil
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler("@every 1h", &fakeOptimizer{}, fakeCounter{}, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.Equal(t, []string{JobOptimize, JobMatchStats}, s.Jobs())
	assert.NotNil(t, s.NextRun(JobOptimize))
	assert.Nil(t, s.NextRun("missing"))

	// second start is a no-op
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Empty(t, s.Jobs())
	s.Stop()
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler("not a cron spec", &fakeOptimizer{}, fakeCounter{}, zerolog.Nop())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
	assert.False(t, s.IsRunning())
}

func TestScheduler_Trigger(t *testing.T) {
	var buf bytes.Buffer
	opt := &fakeOptimizer{}
	counts := fakeCounter{model.MatchStatusPending: 3, model.MatchStatusAccepted: 1}
	s := NewScheduler("@every 1h", opt, counts, zerolog.New(&buf))
	ctx := context.Background()

	require.NoError(t, s.Trigger(ctx, JobOptimize))
	assert.Equal(t, int32(1), opt.calls.Load())

	require.NoError(t, s.Trigger(ctx, JobMatchStats))
	assert.Contains(t, buf.String(), `"pending":3`)
	assert.Contains(t, buf.String(), `"accepted":1`)
	assert.Contains(t, buf.String(), `"cancelled":0`)

	err := s.Trigger(ctx, "vacuum")
	assert.ErrorContains(t, err, "unknown job")

	opt.err = errors.New("database is locked")
	err = s.Trigger(ctx, JobOptimize)
	assert.ErrorContains(t, err, "db-optimize: database is locked")
}
