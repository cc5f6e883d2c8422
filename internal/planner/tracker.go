package planner

import (
	"slices"
	"time"

	"github.com/syh52/lexicon-srs/internal/models"
	"github.com/syh52/lexicon-srs/internal/srs"
)

// RecordAnswer applies one answered item to the plan and returns the
// updated copy; the input plan is not mutated.
//
// A word joins the completion set only once, so double-submitting the
// same answer cannot inflate the completed count or flip a finished
// plan back open. The answer tally and study time still accumulate on
// a re-answer. Only "know" counts toward accuracy; a hinted recall is
// treated as a miss.
func RecordAnswer(plan models.DailyPlan, wordID string, outcome srs.Outcome, timeSpent time.Duration, now time.Time) models.DailyPlan {
	plan.PlannedWords = slices.Clone(plan.PlannedWords)
	plan.CompletedWords = slices.Clone(plan.CompletedWords)

	if !plan.HasCompleted(wordID) {
		plan.CompletedWords = append(plan.CompletedWords, wordID)
	}

	if plan.CurrentIndex < len(plan.PlannedWords)-1 {
		plan.CurrentIndex++
	}

	if outcome == srs.OutcomeKnow {
		plan.Stats.KnownCount++
	} else {
		plan.Stats.UnknownCount++
	}
	plan.Stats.StudyTimeSec += int64(timeSpent.Seconds())
	if answered := plan.Stats.KnownCount + plan.Stats.UnknownCount; answered > 0 {
		plan.Stats.Accuracy = float64(plan.Stats.KnownCount) / float64(answered) * 100
	}

	// One-way transition: once a plan completes it stays completed.
	if !plan.IsCompleted && plan.CompletedCount() >= plan.TotalCount {
		plan.IsCompleted = true
		completedAt := now
		plan.CompletedAt = &completedAt
	}

	plan.UpdatedAt = now
	return plan
}
