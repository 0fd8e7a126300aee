// services/bracket.go
package services

import (
	"fmt"

	"rps-arena/models"
)

// Supported bracket sizes.
var bracketSizes = []int{4, 8, 16}

// bracketSize is the smallest supported size that fits n entrants.
func bracketSize(n int) int {
	for _, size := range bracketSizes {
		if n <= size {
			return size
		}
	}
	return bracketSizes[len(bracketSizes)-1]
}

func log2(n int) int {
	r := 0
	for n > 1 {
		n >>= 1
		r++
	}
	return r
}

// buildBracket pairs players in order into first-round matches and lays out
// empty placeholders for every later round. When players does not fill the
// bracket, the first size-n matches get a single entrant (a bye) and are
// completed immediately.
func buildBracket(players []models.Participant, elimination models.EliminationType, newID func() string) *models.Bracket {
	size := bracketSize(len(players))
	rounds := log2(size)
	byes := size - len(players)

	b := &models.Bracket{
		Type:           elimination,
		WinnersBracket: make([][]*models.Match, rounds),
	}

	first := make([]*models.Match, 0, size/2)
	next := 0
	for i := 0; i < size/2; i++ {
		m := &models.Match{
			ID:      newID(),
			Round:   1,
			Bracket: models.WinnersBracket,
			Status:  models.MatchPending,
		}
		m.Player1 = participantAt(players, next)
		next++
		if i >= byes {
			m.Player2 = participantAt(players, next)
			next++
		}
		first = append(first, m)
	}
	b.WinnersBracket[0] = first

	matches := size / 2
	for r := 1; r < rounds; r++ {
		matches /= 2
		b.WinnersBracket[r] = make([]*models.Match, matches)
	}

	if elimination == models.DoubleElimination {
		b.LosersBracket = make([][]*models.Match, 2*(rounds-1))
		for r := range b.LosersBracket {
			b.LosersBracket[r] = []*models.Match{}
		}
	}

	for i, m := range first {
		if m.Player1 != nil && m.Player2 == nil {
			m.Bye = true
			m.Status = models.MatchCompleted
			m.Winner = m.Player1.ID
			advanceWinner(b.WinnersBracket, models.WinnersBracket, 0, i, m.Player1, newID)
		}
	}
	return b
}

func participantAt(players []models.Participant, i int) *models.Participant {
	if i >= len(players) {
		return nil
	}
	p := players[i]
	return &p
}

// matchRef locates a match inside a bracket.
type matchRef struct {
	match      *models.Match
	side       models.BracketSide
	roundIndex int
	matchIndex int
}

func findMatch(b *models.Bracket, matchID string) (matchRef, bool) {
	if b == nil {
		return matchRef{}, false
	}
	search := func(rounds [][]*models.Match, side models.BracketSide) (matchRef, bool) {
		for r, round := range rounds {
			for i, m := range round {
				if m != nil && m.ID == matchID {
					return matchRef{match: m, side: side, roundIndex: r, matchIndex: i}, true
				}
			}
		}
		return matchRef{}, false
	}
	if ref, ok := search(b.WinnersBracket, models.WinnersBracket); ok {
		return ref, true
	}
	return search(b.LosersBracket, models.LosersBracket)
}

// advanceWinner moves p into round roundIndex+1 at matchIndex/2, creating the
// match on first touch. Even indices feed player1, odd feed player2. Losers
// rounds also take drop-ins from the winners bracket, so a full target spills
// over to the first open match of the round, or a new one.
func advanceWinner(rounds [][]*models.Match, side models.BracketSide, roundIndex, matchIndex int, p *models.Participant, newID func() string) {
	nextRound := roundIndex + 1
	if nextRound >= len(rounds) {
		return
	}
	nextIndex := matchIndex / 2
	for len(rounds[nextRound]) <= nextIndex {
		rounds[nextRound] = append(rounds[nextRound], nil)
	}

	next := rounds[nextRound][nextIndex]
	if next == nil {
		next = &models.Match{
			ID:      newID(),
			Round:   nextRound + 1,
			Bracket: side,
			Status:  models.MatchPending,
		}
		rounds[nextRound][nextIndex] = next
	}
	if placeBySlot(next, p, matchIndex%2 == 0) {
		return
	}
	for _, m := range rounds[nextRound] {
		if m != nil && m.Status == models.MatchPending && placeBySlot(m, p, true) {
			return
		}
	}
	rounds[nextRound] = append(rounds[nextRound], &models.Match{
		ID:      newID(),
		Round:   nextRound + 1,
		Bracket: side,
		Player1: p,
		Status:  models.MatchPending,
	})
}

// placeBySlot fills the preferred slot, or the other one if it is taken. It
// reports false when both are taken.
func placeBySlot(m *models.Match, p *models.Participant, preferFirst bool) bool {
	switch {
	case preferFirst && m.Player1 == nil:
		m.Player1 = p
	case !preferFirst && m.Player2 == nil:
		m.Player2 = p
	case m.Player1 == nil:
		m.Player1 = p
	case m.Player2 == nil:
		m.Player2 = p
	default:
		return false
	}
	return true
}

// sendToLosersBracket routes a winners-bracket loser to losers round
// 2*winnersRound. Past the end of the losers bracket the player is out.
func sendToLosersBracket(b *models.Bracket, p *models.Participant, winnersRound int, newID func() string) bool {
	losersRound := winnersRound * 2
	if losersRound >= len(b.LosersBracket) {
		return false
	}
	for _, m := range b.LosersBracket[losersRound] {
		if m == nil {
			continue
		}
		if m.Player1 == nil {
			m.Player1 = p
			return true
		}
		if m.Player2 == nil {
			m.Player2 = p
			return true
		}
	}
	b.LosersBracket[losersRound] = append(b.LosersBracket[losersRound], &models.Match{
		ID:      newID(),
		Round:   losersRound + 1,
		Bracket: models.LosersBracket,
		Player1: p,
		Status:  models.MatchPending,
	})
	return true
}

// playableMatches lists every pending match with both entrants, winners first.
func playableMatches(b *models.Bracket) []*models.Match {
	if b == nil {
		return nil
	}
	var out []*models.Match
	for _, rounds := range [][][]*models.Match{b.WinnersBracket, b.LosersBracket} {
		for _, round := range rounds {
			for _, m := range round {
				if m.Playable() {
					out = append(out, m)
				}
			}
		}
	}
	return out
}

// strandedLosersMatch finds the first pending losers match holding a single
// entrant. Once nothing else can run, no opponent will ever arrive for it.
func strandedLosersMatch(b *models.Bracket) (matchRef, bool) {
	for r, round := range b.LosersBracket {
		for i, m := range round {
			if m == nil || m.Status != models.MatchPending {
				continue
			}
			if (m.Player1 == nil) != (m.Player2 == nil) {
				return matchRef{match: m, side: models.LosersBracket, roundIndex: r, matchIndex: i}, true
			}
		}
	}
	return matchRef{}, false
}

func anyInProgress(b *models.Bracket) bool {
	for _, rounds := range [][][]*models.Match{b.WinnersBracket, b.LosersBracket} {
		for _, round := range rounds {
			for _, m := range round {
				if m != nil && m.Status == models.MatchInProgress {
					return true
				}
			}
		}
	}
	return false
}

// champion is the winner of the final winners-bracket match, if decided.
func champion(b *models.Bracket) string {
	if b == nil || len(b.WinnersBracket) == 0 {
		return ""
	}
	final := b.WinnersBracket[len(b.WinnersBracket)-1]
	if len(final) == 0 || final[0] == nil {
		return ""
	}
	return final[0].Winner
}

// aiName is the display name of the n-th synthetic entrant.
func aiName(n int) string {
	return fmt.Sprintf("AI Bot %d", n)
}
