// models/game.go
package models

import "time"

// GameMode is how a player asked to be matched.
type GameMode string

const (
	ModeQuickMatch GameMode = "quickmatch"
	ModeAI         GameMode = "ai"
	ModeTournament GameMode = "tournament"
)

// WinCondition is a best-of-N rule.
type WinCondition string

const (
	BestOf1 WinCondition = "best_of_1"
	BestOf3 WinCondition = "best_of_3"
	BestOf5 WinCondition = "best_of_5"
)

// MaxRounds returns N for best-of-N. Unknown values play a single round.
func (w WinCondition) MaxRounds() int {
	switch w {
	case BestOf3:
		return 3
	case BestOf5:
		return 5
	default:
		return 1
	}
}

// RoundsToWin is the majority threshold, ceil(N/2).
func (w WinCondition) RoundsToWin() int {
	return (w.MaxRounds() + 1) / 2
}

type GameState string

const (
	GameAwaitingMoves GameState = "awaiting_moves"
	GameResolved      GameState = "resolved"
	GameFinished      GameState = "finished"
)

// Slot labels used in round records and match results.
const (
	SlotPlayer1       = "player1"
	SlotPlayer2       = "player2"
	ResultTie         = "tie"
	ResultPlayer1Wins = "player1_wins"
	ResultPlayer2Wins = "player2_wins"
)

// PlayerSlot is one side of a game session.
type PlayerSlot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Move  *Move  `json:"-"`
	Score int    `json:"score"`
	IsAI  bool   `json:"isAI"`
}

// HasMove reports whether the slot has a pending move for the current round.
func (p PlayerSlot) HasMove() bool {
	return p.Move != nil
}

// RoundRecord is one resolved exchange.
type RoundRecord struct {
	Round       int       `json:"round"`
	Player1Move Move      `json:"player1Move"`
	Player2Move Move      `json:"player2Move"`
	Winner      string    `json:"winner,omitempty"` // player1 | player2 | "" on tie
	Result      string    `json:"result"`           // tie | player1_wins | player2_wins
	Timestamp   time.Time `json:"timestamp"`
}

// GameSession is a single best-of-N match between two slots.
type GameSession struct {
	ID           string        `json:"id"`
	Player1      PlayerSlot    `json:"player1"`
	Player2      PlayerSlot    `json:"player2"`
	WinCondition WinCondition  `json:"winCondition"`
	MaxRounds    int           `json:"maxRounds"`
	CurrentRound int           `json:"currentRound"`
	History      []RoundRecord `json:"history"`
	State        GameState     `json:"state"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   *time.Time    `json:"finishedAt,omitempty"`

	// Set when the session plays a tournament match.
	TournamentID string `json:"tournamentId,omitempty"`
	MatchID      string `json:"matchId,omitempty"`
}

// Slot returns the slot label and a pointer to the slot held by playerID.
func (g *GameSession) Slot(playerID string) (string, *PlayerSlot) {
	switch playerID {
	case g.Player1.ID:
		return SlotPlayer1, &g.Player1
	case g.Player2.ID:
		return SlotPlayer2, &g.Player2
	}
	return "", nil
}

// Opponent returns the slot facing playerID.
func (g *GameSession) Opponent(playerID string) *PlayerSlot {
	switch playerID {
	case g.Player1.ID:
		return &g.Player2
	case g.Player2.ID:
		return &g.Player1
	}
	return nil
}

// Winner compares the scores: player1, player2 or tie.
func (g *GameSession) Winner() string {
	switch {
	case g.Player1.Score > g.Player2.Score:
		return SlotPlayer1
	case g.Player2.Score > g.Player1.Score:
		return SlotPlayer2
	}
	return ResultTie
}

// WinnerID resolves Winner to a player identifier, empty on a tie.
func (g *GameSession) WinnerID() string {
	switch g.Winner() {
	case SlotPlayer1:
		return g.Player1.ID
	case SlotPlayer2:
		return g.Player2.ID
	}
	return ""
}

// Clone returns a deep copy safe to hand outside the owning lock.
func (g *GameSession) Clone() GameSession {
	c := *g
	c.Player1.Move = cloneMove(g.Player1.Move)
	c.Player2.Move = cloneMove(g.Player2.Move)
	c.History = append([]RoundRecord(nil), g.History...)
	if g.FinishedAt != nil {
		t := *g.FinishedAt
		c.FinishedAt = &t
	}
	return c
}

func cloneMove(m *Move) *Move {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}

// GameStats summarises a session.
type GameStats struct {
	TotalRounds  int           `json:"totalRounds"`
	Player1Score int           `json:"player1Score"`
	Player2Score int           `json:"player2Score"`
	Winner       string        `json:"winner"`
	Duration     int64         `json:"duration"` // milliseconds
	History      []RoundRecord `json:"history"`
}
