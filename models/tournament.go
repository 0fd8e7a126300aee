// models/tournament.go
package models

import "time"

type TournamentState string

const (
	TournamentWaitingRoom TournamentState = "waiting_room"
	TournamentInProgress  TournamentState = "in_progress"
	TournamentFinished    TournamentState = "finished"
)

type EliminationType string

const (
	SingleElimination EliminationType = "single"
	DoubleElimination EliminationType = "double"
)

type Seeding string

const (
	SeedingRandom Seeding = "random"
	SeedingManual Seeding = "manual"
)

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
)

type BracketSide string

const (
	WinnersBracket BracketSide = "winners"
	LosersBracket  BracketSide = "losers"
)

// Participant is a bracket entrant. Humans use their connection ID.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IsAI bool   `json:"isAI"`
}

// Match is one bracket slot. Player1/Player2 stay nil until populated.
type Match struct {
	ID      string       `json:"id"`
	Round   int          `json:"round"`
	Bracket BracketSide  `json:"bracket"`
	Player1 *Participant `json:"player1"`
	Player2 *Participant `json:"player2"`
	Winner  string       `json:"winner,omitempty"`
	GameID  string       `json:"gameId,omitempty"`
	Status  MatchStatus  `json:"status"`
	Bye     bool         `json:"bye,omitempty"`
}

// Playable reports whether both entrants are known and the match has not begun.
func (m *Match) Playable() bool {
	return m != nil && m.Status == MatchPending && m.Player1 != nil && m.Player2 != nil
}

// Has reports whether participantID occupies either slot.
func (m *Match) Has(participantID string) bool {
	return (m.Player1 != nil && m.Player1.ID == participantID) ||
		(m.Player2 != nil && m.Player2.ID == participantID)
}

// Bracket holds both elimination trees. Round slices may contain nil
// placeholders for matches whose entrants are not yet known.
type Bracket struct {
	Type           EliminationType `json:"type"`
	WinnersBracket [][]*Match      `json:"winnersBracket"`
	LosersBracket  [][]*Match      `json:"losersBracket"`
}

// Clone deep-copies the match structs. Participants are immutable and shared.
func (b *Bracket) Clone() *Bracket {
	if b == nil {
		return nil
	}
	return &Bracket{
		Type:           b.Type,
		WinnersBracket: cloneRounds(b.WinnersBracket),
		LosersBracket:  cloneRounds(b.LosersBracket),
	}
}

func cloneRounds(rounds [][]*Match) [][]*Match {
	if rounds == nil {
		return nil
	}
	out := make([][]*Match, len(rounds))
	for i, round := range rounds {
		out[i] = make([]*Match, len(round))
		for j, m := range round {
			if m == nil {
				continue
			}
			c := *m
			out[i][j] = &c
		}
	}
	return out
}

type ChatEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Spectator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tournament is a bracketed competition run from a waiting room.
type Tournament struct {
	ID               string             `json:"id"`
	HostID           string             `json:"hostId"`
	State            TournamentState    `json:"state"`
	Settings         TournamentSettings `json:"settings"`
	Players          []Participant      `json:"players"`
	Bracket          *Bracket           `json:"bracket"`
	CompletedMatches []Match            `json:"completedMatches"`
	Spectators       []Spectator        `json:"spectators"`
	Chat             []ChatEntry        `json:"chatHistory"`
	Champion         string             `json:"champion,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	FinishedAt       *time.Time         `json:"finishedAt,omitempty"`
}

// Player looks up a joined participant by ID.
func (t *Tournament) Player(id string) (Participant, bool) {
	for _, p := range t.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// Clone returns a deep copy for use outside the tournament's lock.
func (t *Tournament) Clone() *Tournament {
	c := *t
	c.Players = append([]Participant(nil), t.Players...)
	c.Bracket = t.Bracket.Clone()
	c.CompletedMatches = append([]Match(nil), t.CompletedMatches...)
	c.Spectators = append([]Spectator(nil), t.Spectators...)
	c.Chat = append([]ChatEntry(nil), t.Chat...)
	if t.Settings.MoveTimer != nil {
		v := *t.Settings.MoveTimer
		c.Settings.MoveTimer = &v
	}
	if t.FinishedAt != nil {
		f := *t.FinishedAt
		c.FinishedAt = &f
	}
	return &c
}
