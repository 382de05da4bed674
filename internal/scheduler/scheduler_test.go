package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpiredQuests(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep without deadline")
	}
	return 2, c.err
}

func TestAddSweepRejectsBadSchedule(t *testing.T) {
	s := New(nil)
	defer s.Stop()
	err := s.AddSweep("every now and then", &countingSweeper{})
	assert.ErrorContains(t, err, "every now and then")
}

func TestRunSweep(t *testing.T) {
	s := New(nil)
	defer s.Stop()
	sw := &countingSweeper{}
	s.RunSweep(sw)
	assert.EqualValues(t, 1, sw.calls.Load())

	failing := &countingSweeper{err: errors.New("db down")}
	s.RunSweep(failing)
	assert.EqualValues(t, 1, failing.calls.Load())
}

func TestScheduledSweepFires(t *testing.T) {
	s := New(nil)
	sw := &countingSweeper{}
	require.NoError(t, s.AddSweep("@every 1s", sw))
	s.Start()
	assert.Eventually(t, func() bool { return sw.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}
