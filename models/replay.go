// models/replay.go
package models

import "time"

type ReplayPlayer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FinalScore int    `json:"finalScore"`
	IsAI       bool   `json:"isAI"`
}

// Replay is the summary kept for a finished game session. Treat as immutable.
type Replay struct {
	ID           string        `json:"id"`
	GameID       string        `json:"gameId"`
	Player1      ReplayPlayer  `json:"player1"`
	Player2      ReplayPlayer  `json:"player2"`
	Moves        []RoundRecord `json:"moves"`
	WinCondition WinCondition  `json:"winCondition"`
	Winner       string        `json:"winner"`
	Duration     int64         `json:"duration"` // milliseconds
	Timestamp    time.Time     `json:"timestamp"`
	TournamentID string        `json:"tournamentId,omitempty"`
	MatchID      string        `json:"matchId,omitempty"`
}

type PlaybackRound struct {
	Round       int       `json:"round"`
	Player1Move Move      `json:"player1Move"`
	Player2Move Move      `json:"player2Move"`
	Winner      string    `json:"winner,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Playback is the round-by-round projection sent to a viewer.
type Playback struct {
	ID       string          `json:"id"`
	Player1  ReplayPlayer    `json:"player1"`
	Player2  ReplayPlayer    `json:"player2"`
	Rounds   []PlaybackRound `json:"rounds"`
	Winner   string          `json:"winner"`
	Duration int64           `json:"duration"`
}

type PlayerReplayStats struct {
	ReplayPlayer
	Moves   map[Move]int `json:"moves"`
	WinRate float64      `json:"winRate"`
}

type ReplayStats struct {
	TotalRounds int               `json:"totalRounds"`
	Player1     PlayerReplayStats `json:"player1"`
	Player2     PlayerReplayStats `json:"player2"`
	Duration    int64             `json:"duration"`
}
