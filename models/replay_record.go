// models/replay_record.go
package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ReplayRecord is the archived row for a replay.
type ReplayRecord struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	GameID       string    `json:"game_id" gorm:"index;not null"`
	TournamentID *string   `json:"tournament_id,omitempty" gorm:"index"` // nil = casual match
	MatchID      *string   `json:"match_id,omitempty"`
	Player1ID    string    `json:"player1_id" gorm:"index;not null"`
	Player1Name  string    `json:"player1_name"`
	Player1Score int       `json:"player1_score"`
	Player1IsAI  bool      `json:"player1_is_ai"`
	Player2ID    string    `json:"player2_id" gorm:"index;not null"`
	Player2Name  string    `json:"player2_name"`
	Player2Score int       `json:"player2_score"`
	Player2IsAI  bool      `json:"player2_is_ai"`
	WinCondition string    `json:"win_condition" gorm:"type:varchar(16)"`
	Winner       string    `json:"winner" gorm:"type:varchar(16);check:winner IN ('player1','player2','tie')"`
	DurationMS   int64     `json:"duration_ms" gorm:"default:0"`
	Rounds       string    `json:"rounds" gorm:"type:text"` // JSON encoded []RoundRecord
	PlayedAt     time.Time `json:"played_at" gorm:"index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// NewReplayRecord flattens a replay into its archived row.
func NewReplayRecord(r Replay) (ReplayRecord, error) {
	rounds, err := json.Marshal(r.Moves)
	if err != nil {
		return ReplayRecord{}, fmt.Errorf("encode rounds: %w", err)
	}
	rec := ReplayRecord{
		ID:           r.ID,
		GameID:       r.GameID,
		Player1ID:    r.Player1.ID,
		Player1Name:  r.Player1.Name,
		Player1Score: r.Player1.FinalScore,
		Player1IsAI:  r.Player1.IsAI,
		Player2ID:    r.Player2.ID,
		Player2Name:  r.Player2.Name,
		Player2Score: r.Player2.FinalScore,
		Player2IsAI:  r.Player2.IsAI,
		WinCondition: string(r.WinCondition),
		Winner:       r.Winner,
		DurationMS:   r.Duration,
		Rounds:       string(rounds),
		PlayedAt:     r.Timestamp,
	}
	if r.TournamentID != "" {
		rec.TournamentID = &r.TournamentID
	}
	if r.MatchID != "" {
		rec.MatchID = &r.MatchID
	}
	return rec, nil
}

// Replay rebuilds the replay the row was archived from.
func (rec ReplayRecord) Replay() (Replay, error) {
	var moves []RoundRecord
	if rec.Rounds != "" {
		if err := json.Unmarshal([]byte(rec.Rounds), &moves); err != nil {
			return Replay{}, fmt.Errorf("decode rounds of replay %s: %w", rec.ID, err)
		}
	}
	r := Replay{
		ID:     rec.ID,
		GameID: rec.GameID,
		Player1: ReplayPlayer{
			ID:         rec.Player1ID,
			Name:       rec.Player1Name,
			FinalScore: rec.Player1Score,
			IsAI:       rec.Player1IsAI,
		},
		Player2: ReplayPlayer{
			ID:         rec.Player2ID,
			Name:       rec.Player2Name,
			FinalScore: rec.Player2Score,
			IsAI:       rec.Player2IsAI,
		},
		Moves:        moves,
		WinCondition: WinCondition(rec.WinCondition),
		Winner:       rec.Winner,
		Duration:     rec.DurationMS,
		Timestamp:    rec.PlayedAt,
	}
	if rec.TournamentID != nil {
		r.TournamentID = *rec.TournamentID
	}
	if rec.MatchID != nil {
		r.MatchID = *rec.MatchID
	}
	return r, nil
}
