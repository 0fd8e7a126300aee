// services/replay_service.go
package services

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"rps-arena/models"
)

const (
	DefaultReplayCapacity = 1000
	defaultRecentReplays  = 10
)

// ReplayMeta overrides names and links a replay to a tournament match.
type ReplayMeta struct {
	Player1Name  string
	Player2Name  string
	TournamentID string
	MatchID      string
}

// ReplayService is a bounded in-memory cache of finished games. Once it holds
// more than its capacity the oldest replays are evicted.
type ReplayService struct {
	mu       sync.RWMutex
	replays  map[string]*replayEntry
	capacity int
	seq      uint64

	newID func() string
	now   func() time.Time
}

// seq breaks ties between replays created within the same clock tick.
type replayEntry struct {
	replay models.Replay
	seq    uint64
}

func NewReplayService(capacity int) *ReplayService {
	if capacity <= 0 {
		capacity = DefaultReplayCapacity
	}
	return &ReplayService{
		replays:  make(map[string]*replayEntry),
		capacity: capacity,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// CreateReplay summarises a finished session and stores it.
func (s *ReplayService) CreateReplay(g models.GameSession, meta ReplayMeta) models.Replay {
	now := s.now()
	end := now
	if g.FinishedAt != nil {
		end = *g.FinishedAt
	}

	r := models.Replay{
		ID:     s.newID(),
		GameID: g.ID,
		Player1: models.ReplayPlayer{
			ID:         g.Player1.ID,
			Name:       firstNonEmpty(meta.Player1Name, g.Player1.Name, "Player 1"),
			FinalScore: g.Player1.Score,
			IsAI:       g.Player1.IsAI,
		},
		Player2: models.ReplayPlayer{
			ID:         g.Player2.ID,
			Name:       firstNonEmpty(meta.Player2Name, g.Player2.Name, "Player 2"),
			FinalScore: g.Player2.Score,
			IsAI:       g.Player2.IsAI,
		},
		Moves:        append([]models.RoundRecord(nil), g.History...),
		WinCondition: g.WinCondition,
		Winner:       g.Winner(),
		Duration:     end.Sub(g.StartedAt).Milliseconds(),
		Timestamp:    now,
		TournamentID: firstNonEmpty(meta.TournamentID, g.TournamentID),
		MatchID:      firstNonEmpty(meta.MatchID, g.MatchID),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.replays[r.ID] = &replayEntry{replay: r, seq: s.seq}
	if len(s.replays) > s.capacity {
		s.evictLocked()
	}
	return r
}

// evictLocked keeps only the most recent capacity replays.
func (s *ReplayService) evictLocked() {
	entries := s.sortedLocked(nil)
	for _, e := range entries[s.capacity:] {
		delete(s.replays, e.replay.ID)
	}
}

// sortedLocked returns entries matching keep, newest first.
func (s *ReplayService) sortedLocked(keep func(models.Replay) bool) []*replayEntry {
	out := make([]*replayEntry, 0, len(s.replays))
	for _, e := range s.replays {
		if keep == nil || keep(e.replay) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *replayEntry) int {
		if c := b.replay.Timestamp.Compare(a.replay.Timestamp); c != 0 {
			return c
		}
		switch {
		case a.seq > b.seq:
			return -1
		case a.seq < b.seq:
			return 1
		}
		return 0
	})
	return out
}

func (s *ReplayService) GetReplay(id string) (models.Replay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.replays[id]
	if !ok {
		return models.Replay{}, notFound("replay", id)
	}
	return e.replay, nil
}

// GetTournamentReplays lists a tournament's replays, newest first.
func (s *ReplayService) GetTournamentReplays(tournamentID string) []models.Replay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return replaysOf(s.sortedLocked(func(r models.Replay) bool {
		return r.TournamentID == tournamentID
	}))
}

// GetRecentReplays lists up to limit replays, newest first.
func (s *ReplayService) GetRecentReplays(limit int) []models.Replay {
	if limit <= 0 {
		limit = defaultRecentReplays
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.sortedLocked(nil)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return replaysOf(entries)
}

// GetPlaybackData projects a replay into its round-by-round view.
func (s *ReplayService) GetPlaybackData(id string) (models.Playback, error) {
	r, err := s.GetReplay(id)
	if err != nil {
		return models.Playback{}, err
	}
	rounds := make([]models.PlaybackRound, 0, len(r.Moves))
	for _, m := range r.Moves {
		rounds = append(rounds, models.PlaybackRound{
			Round:       m.Round,
			Player1Move: m.Player1Move,
			Player2Move: m.Player2Move,
			Winner:      m.Winner,
			Timestamp:   m.Timestamp,
		})
	}
	return models.Playback{
		ID:       r.ID,
		Player1:  r.Player1,
		Player2:  r.Player2,
		Rounds:   rounds,
		Winner:   r.Winner,
		Duration: r.Duration,
	}, nil
}

// GetReplayStats counts each player's moves. Win rate is rounds won over rounds
// played, zero when no round was played.
func (s *ReplayService) GetReplayStats(id string) (models.ReplayStats, error) {
	r, err := s.GetReplay(id)
	if err != nil {
		return models.ReplayStats{}, err
	}
	p1 := models.PlayerReplayStats{ReplayPlayer: r.Player1, Moves: emptyMoveCounts()}
	p2 := models.PlayerReplayStats{ReplayPlayer: r.Player2, Moves: emptyMoveCounts()}
	for _, m := range r.Moves {
		p1.Moves[m.Player1Move]++
		p2.Moves[m.Player2Move]++
	}
	if n := len(r.Moves); n > 0 {
		p1.WinRate = float64(r.Player1.FinalScore) / float64(n)
		p2.WinRate = float64(r.Player2.FinalScore) / float64(n)
	}
	return models.ReplayStats{
		TotalRounds: len(r.Moves),
		Player1:     p1,
		Player2:     p2,
		Duration:    r.Duration,
	}, nil
}

func (s *ReplayService) DeleteReplay(id string) {
	s.mu.Lock()
	delete(s.replays, id)
	s.mu.Unlock()
}

func (s *ReplayService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.replays)
}

func emptyMoveCounts() map[models.Move]int {
	counts := make(map[models.Move]int, len(models.Moves))
	for _, m := range models.Moves {
		counts[m] = 0
	}
	return counts
}

func replaysOf(entries []*replayEntry) []models.Replay {
	out := make([]models.Replay, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.replay)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
