package planner

import (
	"math/rand"
	"sort"
	"time"

	"github.com/syh52/lexicon-srs/internal/models"
	"github.com/syh52/lexicon-srs/pkg/utils"
)

// Priority scoring. The overdue base guarantees overdue items outrank
// everything else regardless of their sub-scores; new items get a
// random spread so the roster order varies between days.
const (
	priorityOverdueBase = 1000.0
	priorityReviewBase  = 500.0
	priorityNewBase     = 100.0
	priorityNewSpread   = 50.0
)

type candidate struct {
	wordID   string
	priority float64
}

// Generator builds the bounded daily work queue from a learner's
// roster. The rand source only feeds new-item shuffling; pass a seeded
// one in tests, or nil for a time-seeded default.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// GeneratePlan classifies the roster, scores and sorts it, and selects
// up to the daily budget. It is deterministic for a fixed roster,
// settings, date and rand source; idempotency across calls for the
// same day is the caller's responsibility.
//
// Selection fills in three passes: due items (overdue first, they
// always score higher) up to DailyReviewWords, new items up to
// DailyNewWords, then extra new items until DailyTarget is met or the
// roster runs out. Review work is never starved by the new-item quota.
func (g *Generator) GeneratePlan(userID int64, wordbookID string, roster []models.RosterItem, settings models.StudySettings, now time.Time) models.DailyPlan {
	day := utils.StartOfDay(now)

	var due, fresh []candidate
	for _, item := range roster {
		card := item.Card
		if card == nil || card.LastReview == nil {
			fresh = append(fresh, candidate{
				wordID:   item.WordID,
				priority: priorityNewBase + g.rng.Float64()*priorityNewSpread,
			})
			continue
		}
		if card.Status == models.StatusMastered {
			continue
		}

		overdueDays := utils.DaysBetweenDates(card.NextReview, day)
		switch {
		case overdueDays > 1:
			due = append(due, candidate{
				wordID:   item.WordID,
				priority: priorityOverdueBase + float64(overdueDays)*10 + float64(card.Lapses)*0.2,
			})
		case overdueDays >= 0:
			// Due today, or up to one day late.
			daysSinceReview := utils.DaysBetweenDates(*card.LastReview, day)
			due = append(due, candidate{
				wordID:   item.WordID,
				priority: priorityReviewBase + float64(daysSinceReview)*5 + float64(card.Lapses)*0.1,
			})
		}
		// Cards due in the future have no place in today's plan.
	}

	sortByPriority(due)
	sortByPriority(fresh)

	target := settings.DailyTarget
	planned := make(models.WordIDList, 0, target)

	reviewCount := 0
	for _, c := range due {
		if len(planned) >= target || reviewCount >= settings.DailyReviewWords {
			break
		}
		planned = append(planned, c.wordID)
		reviewCount++
	}

	newCount := 0
	for _, c := range fresh {
		if len(planned) >= target || newCount >= settings.DailyNewWords {
			break
		}
		planned = append(planned, c.wordID)
		newCount++
	}

	// Leftover capacity keeps pulling new items past the quota.
	for _, c := range fresh[newCount:] {
		if len(planned) >= target {
			break
		}
		planned = append(planned, c.wordID)
		newCount++
	}

	return models.DailyPlan{
		UserID:         userID,
		WordbookID:     wordbookID,
		PlanDate:       day,
		PlannedWords:   planned,
		CompletedWords: models.WordIDList{},
		TotalCount:     len(planned),
		NewCount:       newCount,
		ReviewCount:    reviewCount,
		CurrentIndex:   0,
		IsCompleted:    false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// sortByPriority orders candidates descending. Ties keep an arbitrary
// order; nothing downstream relies on stability between equals.
func sortByPriority(cs []candidate) {
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].priority > cs[j].priority
	})
}
