// workers/archive_worker.go
package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"rps-arena/models"
)

const (
	archiveTimeout = 10 * time.Second
	drainTimeout   = 15 * time.Second
)

// Archiver persists a replay somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, r models.Replay) error
}

// ArchiveWorker drains autosaved replays into an Archiver with a bounded
// number of concurrent writes. Enqueue never blocks the match flow.
type ArchiveWorker struct {
	archiver Archiver
	queue    chan models.Replay
	workers  int
	log      *slog.Logger
	done     chan struct{}

	archived atomic.Int64
	failed   atomic.Int64
}

func NewArchiveWorker(a Archiver, workers, queueSize int, log *slog.Logger) *ArchiveWorker {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &ArchiveWorker{
		archiver: a,
		queue:    make(chan models.Replay, queueSize),
		workers:  workers,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Enqueue reports false when the queue is full and the replay was dropped.
func (w *ArchiveWorker) Enqueue(r models.Replay) bool {
	select {
	case w.queue <- r:
		return true
	default:
		return false
	}
}

// Start runs until ctx is cancelled, then archives whatever is still queued.
func (w *ArchiveWorker) Start(ctx context.Context) {
	w.log.Info("archive_worker_started", "workers", w.workers, "queue", cap(w.queue))
	go w.run(ctx)
}

// Wait blocks until the worker has drained after cancellation.
func (w *ArchiveWorker) Wait() { <-w.done }

func (w *ArchiveWorker) run(ctx context.Context) {
	defer close(w.done)
	p := pool.New().WithMaxGoroutines(w.workers)
	// Writes already started finish even after shutdown begins.
	writeCtx := context.WithoutCancel(ctx)

	for {
		select {
		case r := <-w.queue:
			p.Go(func() { w.archive(writeCtx, r) })
		case <-ctx.Done():
			p.Wait()
			w.drain()
			w.log.Info("archive_worker_stopped",
				"archived", w.archived.Load(),
				"failed", w.failed.Load(),
			)
			return
		}
	}
}

func (w *ArchiveWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	p := pool.New().WithMaxGoroutines(w.workers)
	for {
		select {
		case r := <-w.queue:
			p.Go(func() { w.archive(ctx, r) })
		default:
			p.Wait()
			return
		}
	}
}

func (w *ArchiveWorker) archive(parent context.Context, r models.Replay) {
	ctx, cancel := context.WithTimeout(parent, archiveTimeout)
	defer cancel()
	if err := w.archiver.Archive(ctx, r); err != nil {
		w.failed.Add(1)
		w.log.Error("replay_archive_failed", "replay_id", r.ID, "err", err)
		return
	}
	w.archived.Add(1)
	w.log.Debug("replay_archived", "replay_id", r.ID)
}

// Stats returns how many replays were archived and how many failed.
func (w *ArchiveWorker) Stats() (archived, failed int64) {
	return w.archived.Load(), w.failed.Load()
}
