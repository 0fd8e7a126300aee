package services

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rps-arena/models"
)

func newTestTournaments(opts ...TournamentOption) *TournamentService {
	s := NewTournamentService(append([]TournamentOption{
		WithShuffle(func(int, func(i, j int)) {}),
	}, opts...)...)
	s.newID = sequentialIDs("id")
	return s
}

// openTournament creates a tournament hosted by p1 and joins p2..pn.
func openTournament(t *testing.T, s *TournamentService, n int, patch models.SettingsPatch) string {
	t.Helper()
	tour := s.CreateTournament("p1", "Player 1")
	if _, err := s.UpdateSettings(tour.ID, "p1", patch); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	for _, p := range entrants(n)[1:] {
		if _, err := s.JoinTournament(tour.ID, p.ID, p.Name); err != nil {
			t.Fatalf("join %s: %v", p.ID, err)
		}
	}
	return tour.ID
}

func playMatch(t *testing.T, s *TournamentService, tid string, m models.Match, winner string) *models.Tournament {
	t.Helper()
	if _, err := s.MarkMatchInProgress(tid, m.ID, "game-"+m.ID); err != nil {
		t.Fatalf("mark %s in progress: %v", m.ID, err)
	}
	tour, err := s.RecordMatchResult(tid, m.ID, winner)
	if err != nil {
		t.Fatalf("record %s: %v", m.ID, err)
	}
	return tour
}

func TestTournamentSingleEliminationFlow(t *testing.T) {
	s := newTestTournaments()
	tid := openTournament(t, s, 4, models.SettingsPatch{AIFill: ptr(false), Seeding: ptr(models.SeedingManual)})

	tour, err := s.StartTournament(tid, "p1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if tour.State != models.TournamentInProgress {
		t.Fatalf("expected in_progress, got %s", tour.State)
	}

	next, _ := s.GetNextMatches(tid)
	if len(next) != 2 {
		t.Fatalf("expected 2 semifinals, got %d", len(next))
	}
	playMatch(t, s, tid, next[0], "p1")
	tour = playMatch(t, s, tid, next[1], "p4")
	if tour.State != models.TournamentInProgress {
		t.Fatal("tournament finished before the final")
	}

	next, _ = s.GetNextMatches(tid)
	if len(next) != 1 || next[0].Round != 2 {
		t.Fatalf("expected the final, got %+v", next)
	}
	if next[0].Player1.ID != "p1" || next[0].Player2.ID != "p4" {
		t.Fatalf("unexpected finalists: %s vs %s", next[0].Player1.ID, next[0].Player2.ID)
	}
	tour = playMatch(t, s, tid, next[0], "p4")

	if tour.State != models.TournamentFinished || tour.Champion != "p4" || tour.FinishedAt == nil {
		t.Fatalf("expected p4 champion, got state %s champion %q", tour.State, tour.Champion)
	}
	if len(tour.CompletedMatches) != 3 {
		t.Fatalf("expected 3 completed matches, got %d", len(tour.CompletedMatches))
	}
}

func TestTournamentDoubleEliminationRoutesLosers(t *testing.T) {
	s := newTestTournaments()
	tid := openTournament(t, s, 4, models.SettingsPatch{
		AIFill:          ptr(false),
		Seeding:         ptr(models.SeedingManual),
		EliminationType: ptr(models.DoubleElimination),
	})
	if _, err := s.StartTournament(tid, "p1"); err != nil {
		t.Fatal(err)
	}

	next, _ := s.GetNextMatches(tid)
	playMatch(t, s, tid, next[0], "p1")
	tour := playMatch(t, s, tid, next[1], "p3")

	losers := tour.Bracket.LosersBracket[0]
	if len(losers) != 1 || !losers[0].Has("p2") || !losers[0].Has("p4") {
		t.Fatalf("first-round losers should meet in losers round 1: %+v", losers)
	}

	next, _ = s.GetNextMatches(tid)
	if len(next) != 2 || next[0].Bracket != models.WinnersBracket || next[1].Bracket != models.LosersBracket {
		t.Fatalf("expected winners final then losers match, got %+v", next)
	}
	playMatch(t, s, tid, next[1], "p2")
	tour = playMatch(t, s, tid, next[0], "p3")

	if got := tour.Bracket.LosersBracket[1][0]; got == nil || got.Player1.ID != "p2" {
		t.Fatalf("losers winner should advance: %+v", got)
	}
	if tour.State != models.TournamentFinished || tour.Champion != "p3" {
		t.Fatalf("expected p3 champion, got %s %q", tour.State, tour.Champion)
	}
}

func TestTournamentDoubleEliminationEightPlayers(t *testing.T) {
	s := newTestTournaments()
	tid := openTournament(t, s, 8, models.SettingsPatch{
		MaxPlayers:      ptr(8),
		AIFill:          ptr(false),
		Seeding:         ptr(models.SeedingManual),
		EliminationType: ptr(models.DoubleElimination),
	})
	if _, err := s.StartTournament(tid, "p1"); err != nil {
		t.Fatal(err)
	}

	// Player 1 takes every match, so p2 climbs out of the first losers round
	// while two winners-bracket drop-ins already hold the next match.
	var tour *models.Tournament
	for played := 0; ; played++ {
		if played > 20 {
			t.Fatal("tournament did not finish")
		}
		next, _ := s.GetNextMatches(tid)
		if len(next) == 0 {
			break
		}
		tour = playMatch(t, s, tid, next[0], next[0].Player1.ID)
	}

	if tour.State != models.TournamentFinished || tour.Champion != "p1" {
		t.Fatalf("expected p1 champion, got %s %q", tour.State, tour.Champion)
	}
	for r, round := range tour.Bracket.LosersBracket {
		for _, m := range round {
			if m != nil && m.Status != models.MatchCompleted {
				t.Fatalf("losers round %d left unsettled: %+v", r+1, m)
			}
		}
	}
	last := tour.Bracket.LosersBracket[3]
	if len(last) != 1 || !last[0].Has("p2") || !last[0].Has("p3") {
		t.Fatalf("losers winner should reach the last losers round: %+v", last)
	}
	if len(tour.CompletedMatches) != 13 {
		t.Fatalf("expected 13 completed matches, got %d", len(tour.CompletedMatches))
	}
}

func TestTournamentMarkInProgressOnce(t *testing.T) {
	s := newTestTournaments()
	tid := openTournament(t, s, 4, models.SettingsPatch{AIFill: ptr(false)})
	if _, err := s.StartTournament(tid, "p1"); err != nil {
		t.Fatal(err)
	}
	next, _ := s.GetNextMatches(tid)
	m := next[0]

	var wg sync.WaitGroup
	var won atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.MarkMatchInProgress(tid, m.ID, fmt.Sprintf("g%d", i)); err == nil {
				won.Add(1)
			} else if !IsStateConflict(err) {
				t.Errorf("expected conflict for a losing claim, got %v", err)
			}
		}(i)
	}
	wg.Wait()
	if won.Load() != 1 {
		t.Fatalf("expected exactly one claim to win, got %d", won.Load())
	}
}

func TestTournamentSeedingShuffle(t *testing.T) {
	for _, tc := range []struct {
		seeding models.Seeding
		want    bool
	}{
		{models.SeedingRandom, true},
		{models.SeedingManual, false},
	} {
		called := false
		s := newTestTournaments(WithShuffle(func(n int, swap func(i, j int)) {
			called = true
			swap(0, n-1)
		}))
		tid := openTournament(t, s, 4, models.SettingsPatch{AIFill: ptr(false), Seeding: ptr(tc.seeding)})
		tour, err := s.StartTournament(tid, "p1")
		if err != nil {
			t.Fatal(err)
		}
		if called != tc.want {
			t.Fatalf("%s seeding: expected shuffle called %v, got %v", tc.seeding, tc.want, called)
		}
		first := tour.Bracket.WinnersBracket[0][0].Player1.ID
		if tc.want && first != "p4" {
			t.Fatalf("expected the shuffled order in the bracket, got %s first", first)
		}
		if !tc.want && first != "p1" {
			t.Fatalf("expected join order in the bracket, got %s first", first)
		}
	}
}

func TestTournamentAIFill(t *testing.T) {
	cases := []struct {
		humans, maxPlayers, want int
	}{
		{humans: 3, maxPlayers: 8, want: 4},
		{humans: 5, maxPlayers: 8, want: 8},
		{humans: 2, maxPlayers: 4, want: 4},
	}
	for _, tc := range cases {
		s := newTestTournaments()
		tid := openTournament(t, s, tc.humans, models.SettingsPatch{MaxPlayers: ptr(tc.maxPlayers)})
		tour, err := s.StartTournament(tid, "p1")
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if len(tour.Players) != tc.want {
			t.Fatalf("%d humans: expected %d players, got %d", tc.humans, tc.want, len(tour.Players))
		}
		bots := 0
		for _, p := range tour.Players {
			if p.IsAI {
				bots++
				if !strings.HasPrefix(p.ID, "ai_") || !strings.HasPrefix(p.Name, "AI Bot ") {
					t.Fatalf("unexpected bot identity %+v", p)
				}
			}
		}
		if bots != tc.want-tc.humans {
			t.Fatalf("expected %d bots, got %d", tc.want-tc.humans, bots)
		}
	}
}

func TestTournamentStartErrors(t *testing.T) {
	s := newTestTournaments()
	tid := openTournament(t, s, 1, models.SettingsPatch{AIFill: ptr(false)})

	if _, err := s.StartTournament(tid, "p2"); !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := s.StartTournament(tid, "p1"); !IsStateConflict(err) {
		t.Fatalf("expected conflict with a single player, got %v", err)
	}
	if _, err := s.StartTournament("nope", "p1"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTournamentJoinRules(t *testing.T) {
	s := newTestTournaments()
	tid := openTournament(t, s, 4, models.SettingsPatch{MaxPlayers: ptr(4)})

	if _, err := s.JoinTournament(tid, "p5", "Player 5"); !IsStateConflict(err) {
		t.Fatalf("expected full tournament, got %v", err)
	}
	if _, err := s.JoinTournament(tid, "p2", "Player 2"); !IsStateConflict(err) {
		t.Fatalf("expected duplicate join conflict, got %v", err)
	}

	tour, _ := s.LeaveWaitingRoom(tid, "p3")
	if len(tour.Players) != 3 {
		t.Fatalf("expected 3 players after leave, got %d", len(tour.Players))
	}
	tour, _ = s.LeaveWaitingRoom(tid, "p1")
	if len(tour.Players) != 3 {
		t.Fatal("host should not be removed from the waiting room")
	}

	if _, err := s.StartTournament(tid, "p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.JoinTournament(tid, "p9", "Late"); !IsStateConflict(err) {
		t.Fatalf("expected conflict after start, got %v", err)
	}
}

func TestTournamentUpdateSettingsErrors(t *testing.T) {
	s := newTestTournaments()
	tid := openTournament(t, s, 5, models.SettingsPatch{})

	if _, err := s.UpdateSettings(tid, "p2", models.SettingsPatch{}); !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := s.UpdateSettings(tid, "p1", models.SettingsPatch{MaxPlayers: ptr(12)}); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := s.UpdateSettings(tid, "p1", models.SettingsPatch{MaxPlayers: ptr(4)}); !IsValidation(err) {
		t.Fatalf("expected validation error below the joined count, got %v", err)
	}
	if _, err := s.StartTournament(tid, "p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateSettings(tid, "p1", models.SettingsPatch{ChatEnabled: ptr(false)}); !IsStateConflict(err) {
		t.Fatalf("expected conflict after start, got %v", err)
	}
}

func TestTournamentRecordResultErrors(t *testing.T) {
	s := newTestTournaments()
	tid := openTournament(t, s, 4, models.SettingsPatch{AIFill: ptr(false)})
	if _, err := s.StartTournament(tid, "p1"); err != nil {
		t.Fatal(err)
	}
	next, _ := s.GetNextMatches(tid)
	m := next[0]

	if _, err := s.RecordMatchResult(tid, "missing", "p1"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.RecordMatchResult(tid, m.ID, "p9"); !IsValidation(err) {
		t.Fatalf("expected validation error for outsider, got %v", err)
	}
	playMatch(t, s, tid, m, m.Player1.ID)
	if _, err := s.RecordMatchResult(tid, m.ID, m.Player1.ID); !IsStateConflict(err) {
		t.Fatalf("expected conflict on completed match, got %v", err)
	}
	if _, err := s.MarkMatchInProgress(tid, m.ID, "g"); !IsStateConflict(err) {
		t.Fatalf("expected conflict marking a completed match, got %v", err)
	}
}

func TestTournamentReopenMatch(t *testing.T) {
	s := newTestTournaments()
	tid := openTournament(t, s, 4, models.SettingsPatch{AIFill: ptr(false)})
	if _, err := s.StartTournament(tid, "p1"); err != nil {
		t.Fatal(err)
	}
	next, _ := s.GetNextMatches(tid)

	if err := s.ReopenMatch(tid, next[0].ID); !IsStateConflict(err) {
		t.Fatalf("expected conflict reopening a pending match, got %v", err)
	}
	if _, err := s.MarkMatchInProgress(tid, next[0].ID, "g1"); err != nil {
		t.Fatal(err)
	}
	if err := s.ReopenMatch(tid, next[0].ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again, _ := s.GetNextMatches(tid)
	if len(again) != 2 || again[0].GameID != "" {
		t.Fatalf("expected the match playable again, got %+v", again)
	}
}

func TestTournamentChatAndSpectators(t *testing.T) {
	s := newTestTournaments()
	tid := openTournament(t, s, 2, models.SettingsPatch{})

	if _, err := s.AddChatMessage(tid, "p1", "Player 1", "   "); !IsValidation(err) {
		t.Fatalf("expected validation error for blank chat, got %v", err)
	}
	if _, err := s.AddChatMessage(tid, "p1", "Player 1", strings.Repeat("x", 501)); !IsValidation(err) {
		t.Fatalf("expected validation error for long chat, got %v", err)
	}
	entry, err := s.AddChatMessage(tid, "p1", "Player 1", "  gl hf ")
	if err != nil || entry.Message != "gl hf" {
		t.Fatalf("unexpected chat entry %+v, %v", entry, err)
	}

	if _, err := s.UpdateSettings(tid, "p1", models.SettingsPatch{ChatEnabled: ptr(false)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddChatMessage(tid, "p2", "Player 2", "hi"); !IsStateConflict(err) {
		t.Fatalf("expected conflict with chat disabled, got %v", err)
	}

	s.AddSpectator(tid, "v1", "Viewer")
	tour, _ := s.AddSpectator(tid, "v1", "Viewer")
	if len(tour.Spectators) != 1 {
		t.Fatalf("spectators should be unique, got %d", len(tour.Spectators))
	}
	_ = s.RemoveSpectator(tid, "v1")
	_ = s.RemoveSpectator(tid, "v1")
	tour, _ = s.Get(tid)
	if len(tour.Spectators) != 0 || len(tour.Chat) != 1 {
		t.Fatalf("unexpected tournament state: %+v", tour)
	}
}

func TestTournamentSweepStale(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newTestTournaments(WithClock(func() time.Time { return now }))

	old := s.CreateTournament("h1", "Old")
	now = now.Add(2 * time.Hour)
	fresh := s.CreateTournament("h2", "Fresh")

	removed := s.SweepStale(time.Hour)
	if len(removed) != 1 || removed[0] != old.ID {
		t.Fatalf("expected only the old waiting room swept, got %v", removed)
	}
	if _, err := s.Get(fresh.ID); err != nil {
		t.Fatalf("fresh tournament was swept: %v", err)
	}
	if s.Count() != 1 {
		t.Fatalf("expected 1 tournament left, got %d", s.Count())
	}
}
