package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/syh52/lexicon-srs/internal/models"
)

const planColumns = `id, user_id, wordbook_id, plan_date, planned_words, completed_words, total_count,
	new_count, review_count, current_index, stats, is_completed, completed_at, created_at, updated_at`

// CreateDailyPlan inserts the plan; a concurrent creation for the same
// learner, wordbook and date wins silently and the caller re-reads.
func (r *Postgres) CreateDailyPlan(ctx context.Context, plan *models.DailyPlan) error {
	query := r.psql.Insert("daily_plans").
		Columns("user_id", "wordbook_id", "plan_date", "planned_words", "completed_words", "total_count",
			"new_count", "review_count", "current_index", "stats", "is_completed", "completed_at", "created_at", "updated_at").
		Values(plan.UserID, plan.WordbookID, plan.PlanDate, plan.PlannedWords, plan.CompletedWords, plan.TotalCount,
			plan.NewCount, plan.ReviewCount, plan.CurrentIndex, plan.Stats, plan.IsCompleted, plan.CompletedAt, plan.CreatedAt, plan.UpdatedAt).
		Suffix("ON CONFLICT (user_id, wordbook_id, plan_date) DO NOTHING")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d, wordbook_id: %s): %w", plan.UserID, plan.WordbookID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("create daily plan (user_id: %d, wordbook_id: %s, date: %s): %w",
			plan.UserID, plan.WordbookID, plan.PlanDate.Format("2006-01-02"), err)
	}
	return nil
}

func (r *Postgres) GetDailyPlan(ctx context.Context, userID int64, wordbookID string, date time.Time) (*models.DailyPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM daily_plans
		WHERE user_id = $1 AND wordbook_id = $2 AND plan_date = $3
	`

	return r.getPlan(ctx, query, userID, wordbookID, date)
}

// GetDailyPlanForUpdate locks the plan row for the rest of the
// transaction, serializing concurrent answer submissions.
func (r *Postgres) GetDailyPlanForUpdate(ctx context.Context, userID int64, wordbookID string, date time.Time) (*models.DailyPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM daily_plans
		WHERE user_id = $1 AND wordbook_id = $2 AND plan_date = $3
		FOR UPDATE
	`

	return r.getPlan(ctx, query, userID, wordbookID, date)
}

func (r *Postgres) getPlan(ctx context.Context, query string, userID int64, wordbookID string, date time.Time) (*models.DailyPlan, error) {
	var plan models.DailyPlan
	err := r.GetContext(ctx, &plan, query, userID, wordbookID, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get daily plan (user_id: %d, wordbook_id: %s, date: %s): %w",
			userID, wordbookID, date.Format("2006-01-02"), models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get daily plan (user_id: %d, wordbook_id: %s, date: %s): %w",
			userID, wordbookID, date.Format("2006-01-02"), err)
	}

	return &plan, nil
}

func (r *Postgres) UpdateDailyPlan(ctx context.Context, plan *models.DailyPlan) error {
	query := r.psql.Update("daily_plans").
		Set("completed_words", plan.CompletedWords).
		Set("current_index", plan.CurrentIndex).
		Set("stats", plan.Stats).
		Set("is_completed", plan.IsCompleted).
		Set("completed_at", plan.CompletedAt).
		Set("updated_at", plan.UpdatedAt).
		Where("id = ?", plan.ID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (plan_id: %d): %w", plan.ID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update daily plan (plan_id: %d, user_id: %d): %w", plan.ID, plan.UserID, err)
	}
	return nil
}
