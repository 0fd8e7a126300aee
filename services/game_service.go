// services/game_service.go
package services

import (
	"sync"
	"time"

	"rps-arena/models"
)

// MoveResult is what a submitted move led to.
type MoveResult struct {
	Waiting    bool                `json:"waiting"`
	Round      *models.RoundRecord `json:"round,omitempty"`
	GameOver   bool                `json:"gameOver"`
	GameWinner string              `json:"gameWinner,omitempty"` // player1 | player2 | tie
	Session    models.GameSession  `json:"session"`
}

// GameService owns every live game session. Each session has its own lock;
// the table lock only guards lookup, insert and delete.
type GameService struct {
	mu       sync.RWMutex
	sessions map[string]*gameEntry
	now      func() time.Time
}

type gameEntry struct {
	mu      sync.Mutex
	session *models.GameSession
	deleted bool
}

func NewGameService() *GameService {
	return &GameService{
		sessions: make(map[string]*gameEntry),
		now:      time.Now,
	}
}

// SessionOptions links a session to a tournament match.
type SessionOptions struct {
	TournamentID string
	MatchID      string
}

// CreateSession starts a match at round 1 with both scores at zero.
func (s *GameService) CreateSession(id string, p1, p2 models.PlayerSlot, isAIOpponent bool, wc models.WinCondition, opts ...SessionOptions) (models.GameSession, error) {
	if id == "" {
		return models.GameSession{}, invalid("session", "id is required")
	}
	p1.Move, p2.Move = nil, nil
	p1.Score, p2.Score = 0, 0
	if isAIOpponent {
		p2.IsAI = true
	}

	session := &models.GameSession{
		ID:           id,
		Player1:      p1,
		Player2:      p2,
		WinCondition: wc,
		MaxRounds:    wc.MaxRounds(),
		CurrentRound: 1,
		State:        models.GameAwaitingMoves,
		StartedAt:    s.now(),
	}
	for _, o := range opts {
		session.TournamentID = o.TournamentID
		session.MatchID = o.MatchID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[id]; exists {
		return models.GameSession{}, conflict("game %s already exists", id)
	}
	s.sessions[id] = &gameEntry{session: session}
	return session.Clone(), nil
}

func (s *GameService) entry(id string) (*gameEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

// Get returns a snapshot of the session.
func (s *GameService) Get(id string) (models.GameSession, error) {
	e, ok := s.entry(id)
	if !ok {
		return models.GameSession{}, notFound("game", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// SubmitMove sets playerID's pending move and resolves the round once both
// sides have moved. A second move before resolution replaces the first.
func (s *GameService) SubmitMove(sessionID, playerID, rawMove string) (MoveResult, error) {
	e, ok := s.entry(sessionID)
	if !ok {
		return MoveResult{}, notFound("game", sessionID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return MoveResult{}, notFound("game", sessionID)
	}

	g := e.session
	if g.State == models.GameFinished {
		return MoveResult{}, conflict("game %s is already finished", sessionID)
	}
	move, ok := models.ParseMove(rawMove)
	if !ok {
		return MoveResult{}, invalid("move", "must be rock, paper or scissors")
	}
	_, slot := g.Slot(playerID)
	if slot == nil {
		return MoveResult{}, notFound("player in game", playerID)
	}
	slot.Move = &move
	g.State = models.GameAwaitingMoves

	if !g.Player1.HasMove() || !g.Player2.HasMove() {
		return MoveResult{Waiting: true, Session: g.Clone()}, nil
	}
	return s.resolveRound(g), nil
}

// resolveRound must be called with the entry lock held and both moves set.
func (s *GameService) resolveRound(g *models.GameSession) MoveResult {
	p1, p2 := *g.Player1.Move, *g.Player2.Move

	record := models.RoundRecord{
		Round:       g.CurrentRound,
		Player1Move: p1,
		Player2Move: p2,
		Result:      models.ResultTie,
		Timestamp:   s.now(),
	}
	switch models.Resolve(p1, p2) {
	case models.AWins:
		g.Player1.Score++
		record.Winner = models.SlotPlayer1
		record.Result = models.ResultPlayer1Wins
	case models.BWins:
		g.Player2.Score++
		record.Winner = models.SlotPlayer2
		record.Result = models.ResultPlayer2Wins
	}
	g.History = append(g.History, record)

	g.Player1.Move = nil
	g.Player2.Move = nil

	result := MoveResult{Round: &record}
	if gameOver(g) {
		finished := s.now()
		g.State = models.GameFinished
		g.FinishedAt = &finished
		result.GameOver = true
		result.GameWinner = g.Winner()
	} else {
		g.CurrentRound++
		g.State = models.GameResolved
	}
	result.Session = g.Clone()
	return result
}

func gameOver(g *models.GameSession) bool {
	need := g.WinCondition.RoundsToWin()
	if g.Player1.Score >= need || g.Player2.Score >= need {
		return true
	}
	return g.CurrentRound >= g.MaxRounds
}

// Stats summarises the session. Duration is frozen once the game finishes.
func (s *GameService) Stats(id string) (models.GameStats, error) {
	g, err := s.Get(id)
	if err != nil {
		return models.GameStats{}, err
	}
	return statsFor(g, s.now()), nil
}

func statsFor(g models.GameSession, now time.Time) models.GameStats {
	end := now
	if g.FinishedAt != nil {
		end = *g.FinishedAt
	}
	return models.GameStats{
		TotalRounds:  len(g.History),
		Player1Score: g.Player1.Score,
		Player2Score: g.Player2.Score,
		Winner:       g.Winner(),
		Duration:     end.Sub(g.StartedAt).Milliseconds(),
		History:      g.History,
	}
}

// DeleteSession discards the session. It reports whether anything was removed,
// so concurrent teardown paths can tell which one won.
func (s *GameService) DeleteSession(id string) bool {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	return true
}

// Count is the number of live sessions.
func (s *GameService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
