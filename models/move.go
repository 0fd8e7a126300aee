// models/move.go
package models

// Move is one of the three hand shapes.
type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
)

// Moves lists every move in enumeration order. Prediction tie-breaks rely on it.
var Moves = [...]Move{Rock, Paper, Scissors}

// beats maps a move to the move it defeats.
var beats = map[Move]Move{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// counters maps a move to the move that defeats it.
var counters = map[Move]Move{
	Rock:     Paper,
	Paper:    Scissors,
	Scissors: Rock,
}

// ParseMove accepts the exact lowercase wire form of a move.
func ParseMove(s string) (Move, bool) {
	m := Move(s)
	if !m.Valid() {
		return "", false
	}
	return m, true
}

func (m Move) Valid() bool {
	_, ok := beats[m]
	return ok
}

// Beats reports whether m defeats other.
func (m Move) Beats(other Move) bool {
	return beats[m] == other
}

// Index returns the position of m in Moves, or -1.
func (m Move) Index() int {
	for i, mv := range Moves {
		if mv == m {
			return i
		}
	}
	return -1
}

// Counter returns the move that beats m.
func Counter(m Move) Move {
	return counters[m]
}

// Outcome is the result of a single exchange, seen from the first move's side.
type Outcome int

const (
	Tie Outcome = iota
	AWins
	BWins
)

func (o Outcome) String() string {
	switch o {
	case AWins:
		return "a_wins"
	case BWins:
		return "b_wins"
	default:
		return "tie"
	}
}

// Resolve applies the beats table to a pair of moves.
func Resolve(a, b Move) Outcome {
	switch {
	case a == b:
		return Tie
	case a.Beats(b):
		return AWins
	default:
		return BWins
	}
}
