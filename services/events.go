// services/events.go
package services

import "rps-arena/models"

// Outbound event types.
const (
	EventConnected         = "connected"
	EventGameState         = "game_state"
	EventWaitingRoomUpdate = "waiting_room_update"
	EventTournamentStarted = "tournament_started"
	EventCountdown         = "countdown"
	EventReveal            = "reveal"
	EventMatchComplete     = "match_complete"
	EventTournamentUpdate  = "tournament_update"
	EventChatMessage       = "chat_message"
	EventReaction          = "reaction"
	EventReplayData        = "replay_data"
	EventError             = "error"
)

// Event is one outbound message addressed to a connection or a room.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ConnectedPayload greets a new stream. Token goes back in X-Connection-ID and
// in ?conn= to resume.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	Token        string `json:"token"`
}

type GameStatePayload struct {
	GameID       string          `json:"gameId,omitempty"`
	Mode         models.GameMode `json:"mode,omitempty"`
	State        string          `json:"state"`
	Message      string          `json:"message,omitempty"`
	Opponent     string          `json:"opponent,omitempty"`
	Player1      string          `json:"player1,omitempty"`
	Player2      string          `json:"player2,omitempty"`
	Round        int             `json:"round,omitempty"`
	TournamentID string          `json:"tournamentId,omitempty"`
	MatchID      string          `json:"matchId,omitempty"`
}

type WaitingRoomPayload struct {
	TournamentID string                    `json:"tournamentId"`
	Players      []models.Participant      `json:"players"`
	IsHost       bool                      `json:"isHost"`
	Settings     models.TournamentSettings `json:"settings"`
}

type TournamentStartedPayload struct {
	Bracket  *models.Bracket           `json:"bracket"`
	Settings models.TournamentSettings `json:"settings"`
}

type CountdownPayload struct {
	Count int `json:"count"`
}

type RevealPayload struct {
	Round       int         `json:"round"`
	Player1Move models.Move `json:"player1Move"`
	Player2Move models.Move `json:"player2Move"`
	Winner      string      `json:"winner,omitempty"`
	Result      string      `json:"result"`
}

type MatchCompletePayload struct {
	Winner string           `json:"winner"`
	Stats  models.GameStats `json:"stats"`
}

type TournamentUpdatePayload struct {
	Bracket      *models.Bracket        `json:"bracket"`
	State        models.TournamentState `json:"state"`
	CurrentMatch *models.Match          `json:"currentMatch,omitempty"`
	Champion     string                 `json:"champion,omitempty"`
}

type ReactionPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Emoji    string `json:"emoji"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func errorEvent(msg string) Event {
	return Event{Type: EventError, Data: ErrorPayload{Message: msg}}
}
