package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rps-arena/models"
	"rps-arena/services"
)

func sampleReplay(id, tournamentID string, at time.Time) models.Replay {
	return models.Replay{
		ID:      id,
		GameID:  "game-" + id,
		Player1: models.ReplayPlayer{ID: "a", Name: "Alice", FinalScore: 2},
		Player2: models.ReplayPlayer{ID: "ai_1", Name: "AI", FinalScore: 1, IsAI: true},
		Moves: []models.RoundRecord{
			{Round: 1, Player1Move: models.Rock, Player2Move: models.Scissors, Winner: models.SlotPlayer1, Result: models.ResultPlayer1Wins, Timestamp: at},
			{Round: 2, Player1Move: models.Rock, Player2Move: models.Paper, Winner: models.SlotPlayer2, Result: models.ResultPlayer2Wins, Timestamp: at},
			{Round: 3, Player1Move: models.Paper, Player2Move: models.Rock, Winner: models.SlotPlayer1, Result: models.ResultPlayer1Wins, Timestamp: at},
		},
		WinCondition: models.BestOf3,
		Winner:       models.SlotPlayer1,
		Duration:     12500,
		Timestamp:    at,
		TournamentID: tournamentID,
	}
}

func openTestStore(t *testing.T) *ReplayStore {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "replays.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := NewReplayStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestReplayStoreArchiveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 4, 2, 18, 30, 0, 0, time.UTC)

	r := sampleReplay("r1", "", at)
	if err := store.Archive(ctx, r); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := store.Archive(ctx, r); err != nil {
		t.Fatalf("archiving twice should be a no-op: %v", err)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}

	got, err := store.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.GameID != r.GameID || got.Winner != r.Winner || got.Duration != r.Duration {
		t.Fatalf("unexpected replay %+v", got)
	}
	if len(got.Moves) != 3 || got.Moves[1].Player2Move != models.Paper {
		t.Fatalf("rounds not restored: %+v", got.Moves)
	}
	if !got.Player2.IsAI || got.TournamentID != "" {
		t.Fatalf("player or tournament fields lost: %+v", got)
	}

	if _, err := store.Get(ctx, "missing"); !services.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReplayStoreListByTournament(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 2, 18, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		if err := store.Archive(ctx, sampleReplay(id, "t1", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Archive(ctx, sampleReplay("casual", "", base)); err != nil {
		t.Fatal(err)
	}

	list, err := store.ListByTournament(ctx, "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != "r3" || list[2].ID != "r1" {
		t.Fatalf("expected newest first, got %v", list)
	}
	if list[0].TournamentID != "t1" {
		t.Fatal("tournament id not restored")
	}
}
