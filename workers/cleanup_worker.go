// workers/cleanup_worker.go
package workers

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper drops tournaments that have been idle longer than ttl.
type Sweeper interface {
	Sweep(ttl time.Duration) int
}

// CleanupWorker sweeps stale tournaments on a fixed interval.
type CleanupWorker struct {
	sweeper  Sweeper
	ttl      time.Duration
	interval time.Duration
	sched    gocron.Scheduler
	log      *slog.Logger
}

func NewCleanupWorker(s Sweeper, ttl, interval time.Duration, log *slog.Logger) (*CleanupWorker, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &CleanupWorker{sweeper: s, ttl: ttl, interval: interval, sched: sched, log: log}, nil
}

func (w *CleanupWorker) Start() error {
	_, err := w.sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.RunOnce() }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	w.sched.Start()
	w.log.Info("cleanup_worker_started", "interval", w.interval, "ttl", w.ttl)
	return nil
}

// RunOnce sweeps now and returns how many tournaments were dropped.
func (w *CleanupWorker) RunOnce() int {
	n := w.sweeper.Sweep(w.ttl)
	if n > 0 {
		w.log.Info("stale_tournaments_removed", "count", n)
	}
	return n
}

func (w *CleanupWorker) Stop() error {
	return w.sched.Shutdown()
}
