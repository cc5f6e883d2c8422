package srs

import (
	"math"
	"time"

	"github.com/syh52/lexicon-srs/internal/models"
)

const (
	// MinEasinessFactor is the SM-2 floor: interval growth never stalls.
	MinEasinessFactor = 1.3
	// DefaultEasinessFactor is the SM-2 starting easiness for new cards.
	DefaultEasinessFactor = 2.5
)

// SM2Scheduler implements the classic SuperMemo-2 update rule.
// It is stateless; every method is a pure function over its arguments.
type SM2Scheduler struct{}

func NewSM2Scheduler() *SM2Scheduler {
	return &SM2Scheduler{}
}

// NewCard seeds a brand-new SM-2 card, due immediately.
func (s *SM2Scheduler) NewCard(userID int64, wordbookID, wordID string, now time.Time) models.MemoryCard {
	return models.MemoryCard{
		UserID:         userID,
		WordID:         wordID,
		WordbookID:     wordbookID,
		Algorithm:      models.AlgorithmSM2,
		Status:         models.StatusNew,
		EasinessFactor: DefaultEasinessFactor,
		NextReview:     now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ProcessReview applies one review to the card and returns the next state.
//
// On success (quality >= 3) the easiness factor moves by the canonical
// SM-2 delta and the interval follows the 1, 6, round(prev*EF) ladder,
// where the multiplicative step uses the easiness factor as it stood
// before this review. On failure the repetition streak and interval
// reset; the easiness factor is deliberately left untouched, which
// diverges from textbook SM-2 (textbook also penalizes EF on a lapse).
func (s *SM2Scheduler) ProcessReview(card models.MemoryCard, quality Quality, now time.Time) models.MemoryCard {
	if quality >= 3 {
		card.Repetitions++

		prevEF := card.EasinessFactor
		q := float64(quality)
		ef := prevEF + (0.1 - (5-q)*(0.08+(5-q)*0.02))
		if ef < MinEasinessFactor {
			ef = MinEasinessFactor
		}
		card.EasinessFactor = ef

		switch card.Repetitions {
		case 1:
			card.IntervalDays = 1
		case 2:
			card.IntervalDays = 6
		default:
			card.IntervalDays = int(math.Round(float64(card.IntervalDays) * prevEF))
		}
	} else {
		card.Repetitions = 0
		card.IntervalDays = 1
	}

	card.NextReview = now.AddDate(0, 0, card.IntervalDays)
	card.Status = statusForRepetitions(card.Repetitions)

	reviewedAt := now
	card.LastReview = &reviewedAt
	card.UpdatedAt = now

	return card
}

// ProcessOutcome implements Scheduler over the three-way answer.
func (s *SM2Scheduler) ProcessOutcome(card models.MemoryCard, outcome Outcome, now time.Time) (models.MemoryCard, error) {
	quality, err := QualityForOutcome(outcome)
	if err != nil {
		return models.MemoryCard{}, err
	}
	return s.ProcessReview(SM2CardFromRecord(card), quality, now), nil
}

// statusForRepetitions derives the card status from the success streak.
// Thresholds are fixed: 0 new, 1-2 learning, 3-5 review, 6+ mastered.
func statusForRepetitions(repetitions int) models.CardStatus {
	switch {
	case repetitions <= 0:
		return models.StatusNew
	case repetitions <= 2:
		return models.StatusLearning
	case repetitions <= 5:
		return models.StatusReview
	default:
		return models.StatusMastered
	}
}

// SM2CardFromRecord adapts a stored record for SM-2 processing, seeding
// the SM-2 fields a card scheduled by another algorithm would lack.
func SM2CardFromRecord(card models.MemoryCard) models.MemoryCard {
	card.Algorithm = models.AlgorithmSM2
	if card.EasinessFactor < MinEasinessFactor {
		card.EasinessFactor = DefaultEasinessFactor
	}
	return card
}
