// services/tournament_service.go
package services

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"rps-arena/models"
)

const maxChatMessageRunes = 500

// TournamentService owns every tournament and its bracket. Each tournament is
// mutated under its own lock.
type TournamentService struct {
	mu          sync.RWMutex
	tournaments map[string]*tournamentEntry

	newID   func() string
	shuffle func(n int, swap func(i, j int))
	now     func() time.Time
}

type tournamentEntry struct {
	mu sync.Mutex
	t  *models.Tournament
}

type TournamentOption func(*TournamentService)

// WithShuffle replaces the Fisher-Yates shuffle used for random seeding.
func WithShuffle(fn func(n int, swap func(i, j int))) TournamentOption {
	return func(s *TournamentService) { s.shuffle = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TournamentOption {
	return func(s *TournamentService) { s.now = now }
}

func NewTournamentService(opts ...TournamentOption) *TournamentService {
	s := &TournamentService{
		tournaments: make(map[string]*tournamentEntry),
		newID:       uuid.NewString,
		shuffle:     rand.Shuffle,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// with runs fn under the tournament's lock.
func (s *TournamentService) with(id string, fn func(t *models.Tournament) error) error {
	s.mu.RLock()
	e, ok := s.tournaments[id]
	s.mu.RUnlock()
	if !ok {
		return notFound("tournament", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.t)
}

// CreateTournament opens a waiting room with the host as the only player.
func (s *TournamentService) CreateTournament(hostID, hostName string) *models.Tournament {
	t := &models.Tournament{
		ID:               s.newID(),
		HostID:           hostID,
		State:            models.TournamentWaitingRoom,
		Settings:         models.DefaultTournamentSettings(),
		Players:          []models.Participant{{ID: hostID, Name: hostName}},
		CompletedMatches: []models.Match{},
		Spectators:       []models.Spectator{},
		Chat:             []models.ChatEntry{},
		CreatedAt:        s.now(),
	}

	s.mu.Lock()
	s.tournaments[t.ID] = &tournamentEntry{t: t}
	s.mu.Unlock()
	return t.Clone()
}

// Get returns a snapshot of the tournament.
func (s *TournamentService) Get(id string) (*models.Tournament, error) {
	var out *models.Tournament
	err := s.with(id, func(t *models.Tournament) error {
		out = t.Clone()
		return nil
	})
	return out, err
}

// JoinTournament appends a player in join order.
func (s *TournamentService) JoinTournament(id, playerID, name string) (*models.Tournament, error) {
	var out *models.Tournament
	err := s.with(id, func(t *models.Tournament) error {
		if t.State != models.TournamentWaitingRoom {
			return conflict("tournament already started")
		}
		if len(t.Players) >= t.Settings.MaxPlayers {
			return conflict("tournament is full")
		}
		if _, exists := t.Player(playerID); exists {
			return conflict("already in tournament")
		}
		t.Players = append(t.Players, models.Participant{ID: playerID, Name: name})
		out = t.Clone()
		return nil
	})
	return out, err
}

// LeaveWaitingRoom drops a non-host player before the bracket is built.
func (s *TournamentService) LeaveWaitingRoom(id, playerID string) (*models.Tournament, error) {
	var out *models.Tournament
	err := s.with(id, func(t *models.Tournament) error {
		if t.State != models.TournamentWaitingRoom || playerID == t.HostID {
			out = t.Clone()
			return nil
		}
		kept := t.Players[:0]
		for _, p := range t.Players {
			if p.ID != playerID {
				kept = append(kept, p)
			}
		}
		t.Players = kept
		out = t.Clone()
		return nil
	})
	return out, err
}

// UpdateSettings merges a validated patch. Host only, waiting room only.
func (s *TournamentService) UpdateSettings(id, requesterID string, patch models.SettingsPatch) (*models.Tournament, error) {
	var out *models.Tournament
	err := s.with(id, func(t *models.Tournament) error {
		if t.HostID != requesterID {
			return &AuthorizationError{Action: "update settings"}
		}
		if t.State != models.TournamentWaitingRoom {
			return conflict("cannot update settings after tournament starts")
		}
		if err := patch.Validate(); err != nil {
			if fe, ok := err.(*models.FieldError); ok {
				return invalid(fe.Field, fe.Reason)
			}
			return invalid("settings", err.Error())
		}
		next := patch.Apply(t.Settings)
		if next.MaxPlayers < len(t.Players) {
			return invalid("maxPlayers", "fewer than the players already joined")
		}
		t.Settings = next
		out = t.Clone()
		return nil
	})
	return out, err
}

// StartTournament fills with AI if enabled, seeds, builds the bracket and
// moves the tournament in progress.
func (s *TournamentService) StartTournament(id, requesterID string) (*models.Tournament, error) {
	var out *models.Tournament
	err := s.with(id, func(t *models.Tournament) error {
		if t.HostID != requesterID {
			return &AuthorizationError{Action: "start the tournament"}
		}
		if t.State != models.TournamentWaitingRoom {
			return conflict("tournament already started")
		}
		if t.Settings.AIFill {
			s.fillWithAI(t)
		}
		if len(t.Players) < 2 {
			return conflict("at least two players are needed to start")
		}

		seeded := append([]models.Participant(nil), t.Players...)
		if t.Settings.Seeding == models.SeedingRandom {
			s.shuffle(len(seeded), func(i, j int) { seeded[i], seeded[j] = seeded[j], seeded[i] })
		}
		t.Bracket = buildBracket(seeded, t.Settings.EliminationType, s.newID)
		t.State = models.TournamentInProgress
		out = t.Clone()
		return nil
	})
	return out, err
}

func (s *TournamentService) fillWithAI(t *models.Tournament) {
	target := min(bracketSize(len(t.Players)), t.Settings.MaxPlayers)
	bots := 0
	for _, p := range t.Players {
		if p.IsAI {
			bots++
		}
	}
	for len(t.Players) < target {
		bots++
		t.Players = append(t.Players, models.Participant{
			ID:   "ai_" + s.newID(),
			Name: aiName(bots),
			IsAI: true,
		})
	}
}

// GetNextMatches lists the matches that can be played now.
func (s *TournamentService) GetNextMatches(id string) ([]models.Match, error) {
	var out []models.Match
	err := s.with(id, func(t *models.Tournament) error {
		for _, m := range playableMatches(t.Bracket) {
			out = append(out, *m)
		}
		return nil
	})
	return out, err
}

// MarkMatchInProgress attaches a game session to a playable match.
func (s *TournamentService) MarkMatchInProgress(id, matchID, gameID string) (models.Match, error) {
	var out models.Match
	err := s.with(id, func(t *models.Tournament) error {
		ref, ok := findMatch(t.Bracket, matchID)
		if !ok {
			return notFound("match", matchID)
		}
		if !ref.match.Playable() {
			return conflict("match %s is not ready to play", matchID)
		}
		ref.match.Status = models.MatchInProgress
		ref.match.GameID = gameID
		out = *ref.match
		return nil
	})
	return out, err
}

// ReopenMatch puts an in-progress match back to pending so it can be
// replayed, used when a game ends level.
func (s *TournamentService) ReopenMatch(id, matchID string) error {
	return s.with(id, func(t *models.Tournament) error {
		ref, ok := findMatch(t.Bracket, matchID)
		if !ok {
			return notFound("match", matchID)
		}
		if ref.match.Status != models.MatchInProgress {
			return conflict("match %s is not in progress", matchID)
		}
		ref.match.Status = models.MatchPending
		ref.match.GameID = ""
		return nil
	})
}

// RecordMatchResult completes a match, advances the winner, routes the loser
// in double elimination and re-evaluates tournament completion.
func (s *TournamentService) RecordMatchResult(id, matchID, winnerID string) (*models.Tournament, error) {
	var out *models.Tournament
	err := s.with(id, func(t *models.Tournament) error {
		ref, ok := findMatch(t.Bracket, matchID)
		if !ok {
			return notFound("match", matchID)
		}
		m := ref.match
		if m.Status == models.MatchCompleted {
			return conflict("match %s already completed", matchID)
		}
		if m.Player1 == nil || m.Player2 == nil {
			return conflict("match %s is still waiting for players", matchID)
		}

		var winner, loser *models.Participant
		switch winnerID {
		case m.Player1.ID:
			winner, loser = m.Player1, m.Player2
		case m.Player2.ID:
			winner, loser = m.Player2, m.Player1
		default:
			return invalid("winner", "not a participant of this match")
		}

		m.Winner = winnerID
		m.Status = models.MatchCompleted
		t.CompletedMatches = append(t.CompletedMatches, *m)

		switch ref.side {
		case models.WinnersBracket:
			advanceWinner(t.Bracket.WinnersBracket, models.WinnersBracket, ref.roundIndex, ref.matchIndex, winner, s.newID)
			if t.Settings.EliminationType == models.DoubleElimination && t.Bracket.LosersBracket != nil {
				sendToLosersBracket(t.Bracket, loser, ref.roundIndex, s.newID)
			}
		case models.LosersBracket:
			advanceWinner(t.Bracket.LosersBracket, models.LosersBracket, ref.roundIndex, ref.matchIndex, winner, s.newID)
		}

		s.checkComplete(t)
		out = t.Clone()
		return nil
	})
	return out, err
}

// checkComplete finishes the tournament once nothing is playable or running.
// A losers match left with one entrant is first settled as a walkover, which
// may make a later match playable.
func (s *TournamentService) checkComplete(t *models.Tournament) {
	for {
		if len(playableMatches(t.Bracket)) > 0 || anyInProgress(t.Bracket) {
			return
		}
		ref, ok := strandedLosersMatch(t.Bracket)
		if !ok {
			break
		}
		m := ref.match
		entrant := m.Player1
		if entrant == nil {
			entrant = m.Player2
		}
		m.Bye = true
		m.Status = models.MatchCompleted
		m.Winner = entrant.ID
		t.CompletedMatches = append(t.CompletedMatches, *m)
		advanceWinner(t.Bracket.LosersBracket, models.LosersBracket, ref.roundIndex, ref.matchIndex, entrant, s.newID)
	}
	now := s.now()
	t.State = models.TournamentFinished
	t.FinishedAt = &now
	t.Champion = champion(t.Bracket)
}

// AddSpectator is idempotent.
func (s *TournamentService) AddSpectator(id, spectatorID, name string) (*models.Tournament, error) {
	var out *models.Tournament
	err := s.with(id, func(t *models.Tournament) error {
		for _, sp := range t.Spectators {
			if sp.ID == spectatorID {
				out = t.Clone()
				return nil
			}
		}
		t.Spectators = append(t.Spectators, models.Spectator{ID: spectatorID, Name: name})
		out = t.Clone()
		return nil
	})
	return out, err
}

// RemoveSpectator is idempotent.
func (s *TournamentService) RemoveSpectator(id, spectatorID string) error {
	return s.with(id, func(t *models.Tournament) error {
		kept := t.Spectators[:0]
		for _, sp := range t.Spectators {
			if sp.ID != spectatorID {
				kept = append(kept, sp)
			}
		}
		t.Spectators = kept
		return nil
	})
}

// AddChatMessage appends to the chat log when chat is enabled.
func (s *TournamentService) AddChatMessage(id, userID, userName, text string) (models.ChatEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatEntry{}, invalid("message", "must not be empty")
	}
	if utf8.RuneCountInString(text) > maxChatMessageRunes {
		return models.ChatEntry{}, invalid("message", "too long")
	}

	var entry models.ChatEntry
	err := s.with(id, func(t *models.Tournament) error {
		if !t.Settings.ChatEnabled {
			return conflict("chat is disabled")
		}
		entry = models.ChatEntry{
			ID:        s.newID(),
			UserID:    userID,
			UserName:  userName,
			Message:   text,
			Timestamp: s.now(),
		}
		t.Chat = append(t.Chat, entry)
		return nil
	})
	return entry, err
}

func (s *TournamentService) DeleteTournament(id string) {
	s.mu.Lock()
	delete(s.tournaments, id)
	s.mu.Unlock()
}

// SweepStale deletes tournaments that finished more than olderThan ago and
// waiting rooms that were opened more than olderThan ago and never started.
func (s *TournamentService) SweepStale(olderThan time.Duration) []string {
	cutoff := s.now().Add(-olderThan)

	s.mu.RLock()
	ids := make([]string, 0, len(s.tournaments))
	for id := range s.tournaments {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var removed []string
	for _, id := range ids {
		stale := false
		_ = s.with(id, func(t *models.Tournament) error {
			switch t.State {
			case models.TournamentFinished:
				stale = t.FinishedAt != nil && t.FinishedAt.Before(cutoff)
			case models.TournamentWaitingRoom:
				stale = t.CreatedAt.Before(cutoff)
			}
			return nil
		})
		if stale {
			s.DeleteTournament(id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Count is the number of tournaments held.
func (s *TournamentService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tournaments)
}
