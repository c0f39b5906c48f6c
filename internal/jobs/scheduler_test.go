package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diewo77/go-rentals/internal/logging"
	"github.com/stretchr/testify/require"
)

type countingReconciler struct {
	runs atomic.Int32
	err  error
}

func (c *countingReconciler) ReconcileAvailability(context.Context) ([]uint, error) {
	c.runs.Add(1)
	return []uint{1}, c.err
}

func TestScheduleReconcileRunsRepeatedly(t *testing.T) {
	s, err := NewScheduler(logging.Discard())
	require.NoError(t, err)
	r := &countingReconciler{}
	require.NoError(t, s.ScheduleReconcile(context.Background(), r, 20*time.Millisecond))

	s.Start()
	defer func() { require.NoError(t, s.Stop()) }()

	require.Eventually(t, func() bool { return r.runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduleReconcileSurvivesErrors(t *testing.T) {
	s, err := NewScheduler(logging.Discard())
	require.NoError(t, err)
	r := &countingReconciler{err: errors.New("db down")}
	require.NoError(t, s.ScheduleReconcile(context.Background(), r, 20*time.Millisecond))

	s.Start()
	defer func() { require.NoError(t, s.Stop()) }()

	require.Eventually(t, func() bool { return r.runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduleReconcileRejectsZeroInterval(t *testing.T) {
	s, err := NewScheduler(logging.Discard())
	require.NoError(t, err)
	defer func() { _ = s.Stop() }()
	require.Error(t, s.ScheduleReconcile(context.Background(), &countingReconciler{}, 0))
}
