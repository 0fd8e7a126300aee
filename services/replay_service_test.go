package services

import (
	"fmt"
	"testing"
	"time"

	"rps-arena/models"
)

func finishedGame(id string, p1Score, p2Score int, rounds ...models.RoundRecord) models.GameSession {
	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Second)
	return models.GameSession{
		ID:           id,
		Player1:      models.PlayerSlot{ID: "a", Name: "Alice", Score: p1Score},
		Player2:      models.PlayerSlot{ID: "b", Score: p2Score, IsAI: true},
		WinCondition: models.BestOf3,
		History:      rounds,
		State:        models.GameFinished,
		StartedAt:    start,
		FinishedAt:   &end,
	}
}

func TestReplayCreateFillsNamesAndDuration(t *testing.T) {
	s := NewReplayService(10)
	r := s.CreateReplay(finishedGame("g1", 2, 0), ReplayMeta{TournamentID: "t1", MatchID: "m1"})

	if r.Player1.Name != "Alice" || r.Player2.Name != "Player 2" {
		t.Fatalf("unexpected names %q / %q", r.Player1.Name, r.Player2.Name)
	}
	if r.Winner != models.SlotPlayer1 || r.Duration != 45000 {
		t.Fatalf("unexpected winner %q or duration %d", r.Winner, r.Duration)
	}
	if !r.Player2.IsAI || r.TournamentID != "t1" || r.MatchID != "m1" {
		t.Fatalf("metadata not copied: %+v", r)
	}

	named := s.CreateReplay(finishedGame("g2", 0, 0), ReplayMeta{Player1Name: "Host"})
	if named.Player1.Name != "Host" || named.Winner != models.ResultTie {
		t.Fatalf("meta name or tie not applied: %+v", named)
	}
}

func TestReplayEvictsOldest(t *testing.T) {
	s := NewReplayService(3)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	var ids []string
	for i := range 4 {
		now = now.Add(time.Second)
		ids = append(ids, s.CreateReplay(finishedGame(fmt.Sprintf("g%d", i), 1, 0), ReplayMeta{}).ID)
	}

	if s.Count() != 3 {
		t.Fatalf("expected 3 replays after eviction, got %d", s.Count())
	}
	if _, err := s.GetReplay(ids[0]); !IsNotFound(err) {
		t.Fatalf("oldest replay should be evicted, got %v", err)
	}
	recent := s.GetRecentReplays(2)
	if len(recent) != 2 || recent[0].ID != ids[3] || recent[1].ID != ids[2] {
		t.Fatalf("expected newest first, got %v", recent)
	}
}

func TestReplaySameTimestampOrdersByInsertion(t *testing.T) {
	s := NewReplayService(2)
	fixed := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	first := s.CreateReplay(finishedGame("g1", 1, 0), ReplayMeta{})
	second := s.CreateReplay(finishedGame("g2", 1, 0), ReplayMeta{})
	third := s.CreateReplay(finishedGame("g3", 1, 0), ReplayMeta{})

	if _, err := s.GetReplay(first.ID); !IsNotFound(err) {
		t.Fatal("first replay should be evicted on a timestamp tie")
	}
	recent := s.GetRecentReplays(0)
	if len(recent) != 2 || recent[0].ID != third.ID || recent[1].ID != second.ID {
		t.Fatalf("unexpected order: %v", recent)
	}
}

func TestReplayTournamentFilter(t *testing.T) {
	s := NewReplayService(10)
	s.CreateReplay(finishedGame("g1", 1, 0), ReplayMeta{TournamentID: "t1"})
	s.CreateReplay(finishedGame("g2", 1, 0), ReplayMeta{})
	s.CreateReplay(finishedGame("g3", 1, 0), ReplayMeta{TournamentID: "t1"})

	if got := s.GetTournamentReplays("t1"); len(got) != 2 {
		t.Fatalf("expected 2 tournament replays, got %d", len(got))
	}
	if got := s.GetTournamentReplays("t2"); len(got) != 0 {
		t.Fatalf("expected none for another tournament, got %d", len(got))
	}
}

func TestReplayPlaybackAndStats(t *testing.T) {
	s := NewReplayService(10)
	r := s.CreateReplay(finishedGame("g1", 2, 1,
		models.RoundRecord{Round: 1, Player1Move: models.Rock, Player2Move: models.Scissors, Winner: models.SlotPlayer1},
		models.RoundRecord{Round: 2, Player1Move: models.Rock, Player2Move: models.Paper, Winner: models.SlotPlayer2},
		models.RoundRecord{Round: 3, Player1Move: models.Scissors, Player2Move: models.Paper, Winner: models.SlotPlayer1},
	), ReplayMeta{})

	pb, err := s.GetPlaybackData(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pb.Rounds) != 3 || pb.Rounds[1].Winner != models.SlotPlayer2 {
		t.Fatalf("unexpected playback rounds: %+v", pb.Rounds)
	}

	st, err := s.GetReplayStats(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalRounds != 3 || st.Player1.Moves[models.Rock] != 2 || st.Player2.Moves[models.Paper] != 2 {
		t.Fatalf("unexpected move counts: %+v", st)
	}
	if st.Player1.Moves[models.Paper] != 0 {
		t.Fatal("unused moves should be counted as zero")
	}
	if st.Player1.WinRate < 0.66 || st.Player1.WinRate > 0.67 {
		t.Fatalf("expected win rate 2/3, got %f", st.Player1.WinRate)
	}

	empty := s.CreateReplay(finishedGame("g2", 0, 0), ReplayMeta{})
	st, _ = s.GetReplayStats(empty.ID)
	if st.Player1.WinRate != 0 || st.Player2.WinRate != 0 {
		t.Fatal("win rate should be zero with no rounds")
	}

	s.DeleteReplay(r.ID)
	if _, err := s.GetPlaybackData(r.ID); !IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
