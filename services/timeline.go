// services/timeline.go
package services

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Scheduler runs delayed callbacks grouped under a key so a whole group can
// be cancelled at once.
type Scheduler interface {
	After(key string, d time.Duration, fn func())
	Cancel(key string)
}

// Timeline schedules one-shot gocron jobs tagged with the owning session or
// tournament ID.
type Timeline struct {
	s   gocron.Scheduler
	log *slog.Logger
}

func NewTimeline(log *slog.Logger) (*Timeline, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	s.Start()
	return &Timeline{s: s, log: log}, nil
}

// After runs fn once, d from now. Each job also carries a unique tag so it
// can drop itself from the scheduler once it has run.
func (t *Timeline) After(key string, d time.Duration, fn func()) {
	self := uuid.NewString()
	start := gocron.OneTimeJobStartImmediately()
	if d > 0 {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(d))
	}
	_, err := t.s.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(func() {
			defer func() { go t.s.RemoveByTags(self) }()
			fn()
		}),
		gocron.WithTags(key, self),
	)
	if err != nil {
		t.log.Error("timeline_schedule_failed", "key", key, "delay", d, "err", err)
	}
}

// Cancel drops every pending job scheduled under key.
func (t *Timeline) Cancel(key string) {
	t.s.RemoveByTags(key)
}

func (t *Timeline) Shutdown() error {
	return t.s.Shutdown()
}
