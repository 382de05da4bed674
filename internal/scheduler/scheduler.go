// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = time.Minute

// Sweeper retires expired quests.
type Sweeper interface {
	SweepExpiredQuests(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
	ctx  context.Context
	stop context.CancelFunc
}

func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	cl := cronLogger{log.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log:  log,
		ctx:  ctx,
		stop: cancel,
	}
}

// AddSweep registers the quest-expiry sweep. schedule accepts five-field cron
// expressions and descriptors such as "@every 1h".
func (s *Scheduler) AddSweep(schedule string, sw Sweeper) error {
	_, err := s.cron.AddFunc(schedule, func() { s.RunSweep(sw) })
	if err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return nil
}

// RunSweep runs one sweep synchronously.
func (s *Scheduler) RunSweep(sw Sweeper) {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()
	n, err := sw.SweepExpiredQuests(ctx)
	if err != nil {
		s.log.Error("quest sweep failed", zap.Error(err))
		return
	}
	s.log.Debug("quest sweep finished", zap.Int64("deactivated", n))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	s.stop()
	<-done.Done()
}

type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
