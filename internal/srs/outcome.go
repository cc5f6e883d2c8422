package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/syh52/lexicon-srs/internal/models"
)

// Outcome is the learner's three-way answer to a card.
type Outcome string

const (
	OutcomeKnow    Outcome = "know"
	OutcomeHint    Outcome = "hint"
	OutcomeUnknown Outcome = "unknown"
)

var (
	ErrUnknownOutcome   = errors.New("unknown answer outcome")
	ErrUnknownAlgorithm = errors.New("unknown scheduling algorithm")
)

// ParseOutcome validates a raw answer choice at the caller boundary.
// The schedulers themselves assume a well-formed outcome.
func ParseOutcome(raw string) (Outcome, error) {
	switch o := Outcome(raw); o {
	case OutcomeKnow, OutcomeHint, OutcomeUnknown:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, raw)
	}
}

// Quality is the classic 0-5 SM-2 recall quality scale.
type Quality int

// The three-way UI maps onto the scale as know=5, hint=3, unknown=1.
// Values 2 and 4 are valid for the formula but unused by this mapping.
var qualityByOutcome = map[Outcome]Quality{
	OutcomeKnow:    5,
	OutcomeHint:    3,
	OutcomeUnknown: 1,
}

// QualityForOutcome maps an answer to its SM-2 quality value.
func QualityForOutcome(o Outcome) (Quality, error) {
	q, ok := qualityByOutcome[o]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOutcome, o)
	}
	return q, nil
}

// ratingByOutcome maps the three-way UI onto the four-way FSRS scale.
var ratingByOutcome = map[Outcome]Rating{
	OutcomeKnow:    RatingGood,
	OutcomeHint:    RatingHard,
	OutcomeUnknown: RatingAgain,
}

// RatingForOutcome maps an answer to its FSRS rating.
func RatingForOutcome(o Outcome) (Rating, error) {
	r, ok := ratingByOutcome[o]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOutcome, o)
	}
	return r, nil
}

// Scheduler is the capability both algorithms implement. Implementations
// are pure: they return an updated copy and never touch shared state.
type Scheduler interface {
	ProcessOutcome(card models.MemoryCard, outcome Outcome, now time.Time) (models.MemoryCard, error)
}

// Dispatcher routes cards to the scheduler named by their algorithm tag.
type Dispatcher struct {
	sm2  *SM2Scheduler
	fsrs *FSRSScheduler
}

func NewDispatcher(sm2 *SM2Scheduler, fsrs *FSRSScheduler) *Dispatcher {
	return &Dispatcher{sm2: sm2, fsrs: fsrs}
}

// ForAlgorithm returns the scheduler matching the persisted algorithm tag.
func (d *Dispatcher) ForAlgorithm(algorithm models.Algorithm) (Scheduler, error) {
	switch algorithm {
	case models.AlgorithmSM2:
		return d.sm2, nil
	case models.AlgorithmFSRS:
		return d.fsrs, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

// NewCard seeds a fresh card for the given algorithm.
func (d *Dispatcher) NewCard(algorithm models.Algorithm, userID int64, wordbookID, wordID string, now time.Time) (models.MemoryCard, error) {
	switch algorithm {
	case models.AlgorithmSM2:
		return d.sm2.NewCard(userID, wordbookID, wordID, now), nil
	case models.AlgorithmFSRS:
		return d.fsrs.InitCard(userID, wordbookID, wordID, now), nil
	default:
		return models.MemoryCard{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}
