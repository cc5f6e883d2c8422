package srs

import (
	"math"
	"math/rand"
	"time"

	"github.com/syh52/lexicon-srs/internal/models"
)

// Rating is the four-way FSRS recall grade.
type Rating int

const (
	RatingAgain Rating = iota + 1
	RatingHard
	RatingGood
	RatingEasy
)

// FSRSScheduler implements the FSRS forgetting-curve update rule.
// decay and factor are derived once from the weight vector:
// decay = -w[20], factor = 0.9^(1/decay) - 1, so that
// R(t=S) = 0.9 on the power curve R = (1 + factor*t/S)^decay.
type FSRSScheduler struct {
	params FSRSParams
	decay  float64
	factor float64
	rng    *rand.Rand
}

// NewFSRSScheduler builds a scheduler from params. The rand source is
// only consumed by interval fuzzing; pass a seeded one in tests, or nil
// for a time-seeded default.
func NewFSRSScheduler(params FSRSParams, rng *rand.Rand) *FSRSScheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	decay := -params.Weights[20]
	return &FSRSScheduler{
		params: params,
		decay:  decay,
		factor: math.Pow(0.9, 1.0/decay) - 1.0,
		rng:    rng,
	}
}

// InitCard seeds a brand-new FSRS card. Difficulty and stability start
// from a reference Good rating; the card is due immediately.
func (f *FSRSScheduler) InitCard(userID int64, wordbookID, wordID string, now time.Time) models.MemoryCard {
	return models.MemoryCard{
		UserID:         userID,
		WordID:         wordID,
		WordbookID:     wordbookID,
		Algorithm:      models.AlgorithmFSRS,
		Status:         models.StatusNew,
		Difficulty:     clampDifficulty(f.initDifficulty(RatingGood)),
		Stability:      f.initStability(RatingGood),
		Retrievability: 1,
		NextReview:     now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Schedule applies one review and returns the next card state.
func (f *FSRSScheduler) Schedule(card models.MemoryCard, rating Rating, now time.Time) models.MemoryCard {
	return f.schedule(card, rating, now, f.params.EnableFuzz)
}

func (f *FSRSScheduler) schedule(card models.MemoryCard, rating Rating, now time.Time, fuzz bool) models.MemoryCard {
	card.Algorithm = models.AlgorithmFSRS
	if card.Stability <= 0 {
		card.Difficulty = clampDifficulty(f.initDifficulty(RatingGood))
		card.Stability = f.initStability(RatingGood)
		card.Retrievability = 1
	}

	elapsedDays := now.Sub(card.NextReview).Hours() / 24
	if elapsedDays < 0 {
		elapsedDays = 0
	}

	wasStatus := card.Status
	if wasStatus == models.StatusReview {
		card.Retrievability = f.Retrievability(elapsedDays, card.Stability)
	}

	difficulty := card.Difficulty
	stability := card.Stability
	retrievability := card.Retrievability

	// FSRS counts every review, not just the success streak.
	card.Repetitions++

	var scheduledDays int
	if rating == RatingAgain {
		card.Lapses++
		if wasStatus == models.StatusNew {
			card.Status = models.StatusLearning
		} else {
			card.Status = models.StatusRelearning
		}
		card.Stability = f.nextForgetStability(difficulty, stability, retrievability)
		scheduledDays = 1
	} else {
		if wasStatus == models.StatusNew {
			card.Status = models.StatusLearning
		} else {
			card.Status = models.StatusReview
		}
		if wasStatus == models.StatusReview {
			card.Stability = f.nextRecallStability(difficulty, stability, retrievability, rating)
		} else {
			card.Stability = f.shortTermStability(stability, rating)
		}
		scheduledDays = f.nextInterval(card.Stability)
	}
	card.Difficulty = f.nextDifficulty(difficulty, rating)

	if fuzz {
		scheduledDays = f.fuzzInterval(scheduledDays)
	}

	card.IntervalDays = scheduledDays
	card.NextReview = now.AddDate(0, 0, scheduledDays)

	reviewedAt := now
	card.LastReview = &reviewedAt
	card.UpdatedAt = now

	return card
}

// NextStates is the preview of all four possible review outcomes.
type NextStates struct {
	Again models.MemoryCard
	Hard  models.MemoryCard
	Good  models.MemoryCard
	Easy  models.MemoryCard
}

// GetNextStates previews each rating without committing anything.
// Fuzz is suppressed so the preview is deterministic.
func (f *FSRSScheduler) GetNextStates(card models.MemoryCard, now time.Time) NextStates {
	return NextStates{
		Again: f.schedule(card, RatingAgain, now, false),
		Hard:  f.schedule(card, RatingHard, now, false),
		Good:  f.schedule(card, RatingGood, now, false),
		Easy:  f.schedule(card, RatingEasy, now, false),
	}
}

// RatingAdvice reports what one rating choice would produce.
type RatingAdvice struct {
	Rating       Rating
	IntervalDays int
	Stability    float64
	Due          time.Time
}

// StudyAdvice summarizes all four rating previews for a card.
type StudyAdvice struct {
	Difficulty      float64
	DifficultyLabel string
	Again           RatingAdvice
	Hard            RatingAdvice
	Good            RatingAdvice
	Easy            RatingAdvice
}

// GetStudyAdvice is a read-only convenience over GetNextStates.
func (f *FSRSScheduler) GetStudyAdvice(card models.MemoryCard, now time.Time) StudyAdvice {
	states := f.GetNextStates(card, now)
	advice := func(rating Rating, c models.MemoryCard) RatingAdvice {
		return RatingAdvice{
			Rating:       rating,
			IntervalDays: c.IntervalDays,
			Stability:    c.Stability,
			Due:          c.NextReview,
		}
	}
	return StudyAdvice{
		Difficulty:      card.Difficulty,
		DifficultyLabel: DifficultyLabel(card.Difficulty),
		Again:           advice(RatingAgain, states.Again),
		Hard:            advice(RatingHard, states.Hard),
		Good:            advice(RatingGood, states.Good),
		Easy:            advice(RatingEasy, states.Easy),
	}
}

// DifficultyLabel buckets the numeric difficulty for display.
func DifficultyLabel(difficulty float64) string {
	switch {
	case difficulty <= 3:
		return "easy"
	case difficulty <= 5:
		return "medium"
	case difficulty <= 7:
		return "hard"
	default:
		return "very hard"
	}
}

// ProcessOutcome implements Scheduler over the three-way answer.
func (f *FSRSScheduler) ProcessOutcome(card models.MemoryCard, outcome Outcome, now time.Time) (models.MemoryCard, error) {
	rating, err := RatingForOutcome(outcome)
	if err != nil {
		return models.MemoryCard{}, err
	}
	return f.Schedule(card, rating, now), nil
}

// Retrievability evaluates the power-law forgetting curve
// R = (1 + factor*t/S)^decay. Non-positive stability yields 0 so a
// malformed record cannot put NaN into persisted state.
func (f *FSRSScheduler) Retrievability(elapsedDays, stability float64) float64 {
	if stability <= 0 {
		return 0
	}
	return math.Pow(1+f.factor*elapsedDays/stability, f.decay)
}

// initStability returns S0(G) = w[G-1].
func (f *FSRSScheduler) initStability(rating Rating) float64 {
	return clampStability(f.params.Weights[rating-1])
}

// initDifficulty returns D0(G) = w[4] - e^(w[5]*(G-1)) + 1, unclamped.
func (f *FSRSScheduler) initDifficulty(rating Rating) float64 {
	return f.params.Weights[4] - math.Exp(f.params.Weights[5]*float64(rating-1)) + 1
}

// nextDifficulty applies linear damping toward the [1,10] boundary and
// mean reversion toward D0(Easy), then clamps.
func (f *FSRSScheduler) nextDifficulty(difficulty float64, rating Rating) float64 {
	w := f.params.Weights
	deltaD := -w[6] * (float64(rating) - 3)
	damped := difficulty + deltaD*(10-difficulty)/9
	reverted := w[7]*f.initDifficulty(RatingEasy) + (1-w[7])*damped
	return clampDifficulty(reverted)
}

// nextRecallStability is the full recall-stability formula, with the
// hard-rating penalty w[15] and easy-rating bonus w[16].
func (f *FSRSScheduler) nextRecallStability(d, s, r float64, rating Rating) float64 {
	w := f.params.Weights
	hardPenalty := 1.0
	if rating == RatingHard {
		hardPenalty = w[15]
	}
	easyBonus := 1.0
	if rating == RatingEasy {
		easyBonus = w[16]
	}
	grow := math.Exp(w[8]) *
		(11 - d) *
		math.Pow(s, -w[9]) *
		(math.Exp((1-r)*w[10]) - 1) *
		hardPenalty * easyBonus
	return clampStability(s * (1 + grow))
}

// nextForgetStability is the post-lapse stability, bounded above by
// s/e^(w[17]*w[18]) so a lapse can never increase stability.
func (f *FSRSScheduler) nextForgetStability(d, s, r float64) float64 {
	w := f.params.Weights
	long := w[11] *
		math.Pow(d, -w[12]) *
		(math.Pow(s+1, w[13]) - 1) *
		math.Exp((1-r)*w[14])
	short := s / math.Exp(w[17]*w[18])
	return clampStability(math.Min(long, short))
}

// shortTermStability grows stability for cards still in the learning
// phase: S' = S * e^(w[17]*(G-3+w[18])), floored at no shrink for
// Good and Easy.
func (f *FSRSScheduler) shortTermStability(s float64, rating Rating) float64 {
	w := f.params.Weights
	sInc := math.Exp(w[17] * (float64(rating) - 3 + w[18]))
	if rating >= RatingGood && sInc < 1 {
		sInc = 1
	}
	return clampStability(s * sInc)
}

// nextInterval inverts the forgetting curve at the target retention:
// I = S/factor * (retention^(1/decay) - 1), clamped to [1, maximum].
func (f *FSRSScheduler) nextInterval(stability float64) int {
	ivl := stability / f.factor * (math.Pow(f.params.RequestRetention, 1.0/f.decay) - 1)
	days := int(math.Round(ivl))
	if days < 1 {
		days = 1
	}
	if days > f.params.MaximumInterval {
		days = f.params.MaximumInterval
	}
	return days
}

// fuzzInterval spreads intervals of 2.5 days and up across roughly
// ±5% so reviews do not cluster on identical dates.
func (f *FSRSScheduler) fuzzInterval(days int) int {
	if float64(days) < 2.5 {
		return days
	}
	fuzzed := int(math.Round(float64(days) * (0.95 + 0.1*f.rng.Float64())))
	if fuzzed < 1 {
		fuzzed = 1
	}
	if fuzzed > f.params.MaximumInterval {
		fuzzed = f.params.MaximumInterval
	}
	return fuzzed
}

// FSRSCardFromRecord adapts a stored record for FSRS processing,
// seeding (from the default weights) the FSRS fields a card scheduled
// by another algorithm would lack.
func FSRSCardFromRecord(card models.MemoryCard) models.MemoryCard {
	card.Algorithm = models.AlgorithmFSRS
	if card.Stability <= 0 {
		w := DefaultWeights
		card.Stability = clampStability(w[RatingGood-1])
		card.Difficulty = clampDifficulty(w[4] - math.Exp(w[5]*float64(RatingGood-1)) + 1)
		card.Retrievability = 1
	}
	return card
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}

func clampStability(s float64) float64 {
	return math.Max(s, 0.001)
}
