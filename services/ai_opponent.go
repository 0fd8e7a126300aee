// services/ai_opponent.go
package services

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"rps-arena/models"
)

const (
	DefaultAIHistorySize = 50

	minPredictionHistory = 3
	confidenceThreshold  = 0.4

	frequencyWeight = 0.3
	bigramWeight    = 0.4
	trigramWeight   = 0.3
)

// uniformFallback is used when a context has never been observed.
var uniformFallback = [3]float64{0.33, 0.33, 0.34}

// Prediction is the expected next move of an opponent.
type Prediction struct {
	Move       models.Move `json:"move"`
	Confidence float64     `json:"confidence"`
}

// Thinking is the display-only view of what the AI expects.
type Thinking struct {
	Status        string      `json:"status"` // learning | analyzing
	Message       string      `json:"message"`
	Confidence    int         `json:"confidence"` // percent
	PredictedMove models.Move `json:"predictedMove,omitempty"`
	CounterMove   models.Move `json:"counterMove,omitempty"`
}

// AIOpponent learns each human opponent's habits from a sliding window of
// their moves and plays the counter to the most likely next move.
type AIOpponent struct {
	mu         sync.RWMutex
	histories  map[string][]models.Move
	maxHistory int

	rngMu sync.Mutex
	rng   *rand.Rand // nil uses the global source
}

type AIOption func(*AIOpponent)

// WithHistorySize changes the per-opponent window.
func WithHistorySize(n int) AIOption {
	return func(a *AIOpponent) {
		if n > 0 {
			a.maxHistory = n
		}
	}
}

// WithRand pins the random source, for tests.
func WithRand(r *rand.Rand) AIOption {
	return func(a *AIOpponent) { a.rng = r }
}

func NewAIOpponent(opts ...AIOption) *AIOpponent {
	a := &AIOpponent{
		histories:  make(map[string][]models.Move),
		maxHistory: DefaultAIHistorySize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RecordMove appends to the opponent's history, evicting the oldest entry
// once the window is full.
func (a *AIOpponent) RecordMove(opponentID string, move models.Move) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := append(a.histories[opponentID], move)
	if len(h) > a.maxHistory {
		h = append([]models.Move(nil), h[len(h)-a.maxHistory:]...)
	}
	a.histories[opponentID] = h
}

// GetMove picks the AI's next move against opponentID.
func (a *AIOpponent) GetMove(opponentID string) models.Move {
	history := a.history(opponentID)
	if len(history) < minPredictionHistory {
		return a.RandomMove()
	}

	p := predictNextMove(history)
	if p.Confidence < confidenceThreshold {
		return a.RandomMove()
	}
	return models.Counter(p.Move)
}

// GetThinking reports the current prediction without touching any state.
func (a *AIOpponent) GetThinking(opponentID string) Thinking {
	history := a.history(opponentID)
	if len(history) < minPredictionHistory {
		return Thinking{Status: "learning", Message: "Observing patterns..."}
	}

	p := predictNextMove(history)
	counter := models.Counter(p.Move)
	return Thinking{
		Status:        "analyzing",
		Message:       fmt.Sprintf("Predicting %s, playing %s", p.Move, counter),
		Confidence:    int(math.Round(p.Confidence * 100)),
		PredictedMove: p.Move,
		CounterMove:   counter,
	}
}

// ClearHistory forgets everything learned about opponentID.
func (a *AIOpponent) ClearHistory(opponentID string) {
	a.mu.Lock()
	delete(a.histories, opponentID)
	a.mu.Unlock()
}

// HistoryLen is the number of moves currently remembered for opponentID.
func (a *AIOpponent) HistoryLen(opponentID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.histories[opponentID])
}

// RandomMove draws uniformly from the three moves.
func (a *AIOpponent) RandomMove() models.Move {
	if a.rng == nil {
		return models.Moves[rand.IntN(len(models.Moves))]
	}
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return models.Moves[a.rng.IntN(len(models.Moves))]
}

func (a *AIOpponent) history(opponentID string) []models.Move {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.Move(nil), a.histories[opponentID]...)
}

// predictNextMove blends frequency, bigram and trigram statistics. The first
// move to reach the top score wins ties, in Moves order.
func predictNextMove(history []models.Move) Prediction {
	var scores [3]float64

	for i, p := range frequency(history) {
		scores[i] += p * frequencyWeight
	}
	if len(history) >= 2 {
		for i, p := range bigram(history) {
			scores[i] += p * bigramWeight
		}
	}
	if len(history) >= 3 {
		for i, p := range trigram(history) {
			scores[i] += p * trigramWeight
		}
	}

	best := Prediction{Move: models.Rock}
	for i, m := range models.Moves {
		if scores[i] > best.Confidence {
			best = Prediction{Move: m, Confidence: scores[i]}
		}
	}
	return best
}

func frequency(history []models.Move) [3]float64 {
	var counts [3]float64
	for _, m := range history {
		if i := m.Index(); i >= 0 {
			counts[i]++
		}
	}
	total := float64(len(history))
	for i := range counts {
		counts[i] /= total
	}
	return counts
}

// bigram: what followed the last move, historically.
func bigram(history []models.Move) [3]float64 {
	last := history[len(history)-1]
	var counts [3]float64
	total := 0.0
	for i := 0; i < len(history)-1; i++ {
		if history[i] != last {
			continue
		}
		if j := history[i+1].Index(); j >= 0 {
			counts[j]++
			total++
		}
	}
	return normalize(counts, total)
}

// trigram: what followed the last two moves, historically.
func trigram(history []models.Move) [3]float64 {
	n := len(history)
	a, b := history[n-2], history[n-1]
	var counts [3]float64
	total := 0.0
	for i := 0; i < n-2; i++ {
		if history[i] != a || history[i+1] != b {
			continue
		}
		if j := history[i+2].Index(); j >= 0 {
			counts[j]++
			total++
		}
	}
	return normalize(counts, total)
}

func normalize(counts [3]float64, total float64) [3]float64 {
	if total == 0 {
		return uniformFallback
	}
	for i := range counts {
		counts[i] /= total
	}
	return counts
}
