package services

import (
	"testing"
	"time"
)

func TestTimelineRunsAndCancels(t *testing.T) {
	tl, err := NewTimeline(quietLogger())
	if err != nil {
		t.Fatalf("new timeline: %v", err)
	}
	defer tl.Shutdown()

	fired := make(chan string, 4)
	tl.After("game-1", 0, func() { fired <- "now" })
	tl.After("game-1", 20*time.Millisecond, func() { fired <- "soon" })
	tl.After("game-2", time.Hour, func() { fired <- "cancelled" })
	tl.Cancel("game-2")

	got := map[string]bool{}
	deadline := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case name := <-fired:
			got[name] = true
		case <-deadline:
			t.Fatalf("jobs did not fire, got %v", got)
		}
	}
	if got["cancelled"] {
		t.Fatal("cancelled job ran")
	}
}
