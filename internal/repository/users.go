package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/syh52/lexicon-srs/internal/models"
)

func (r *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	query := r.psql.Insert("users").
		Columns("telegram_id", "username", "algorithm", "daily_new_words", "daily_review_words", "daily_target", "reminder_hour", "timezone", "created_at").
		Values(user.TelegramID, user.Username, user.Algorithm, user.DailyNewWords, user.DailyReviewWords, user.DailyTarget, user.ReminderHour, user.Timezone, user.CreatedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (telegram_id: %d): %w", user.TelegramID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("create user (telegram_id: %d, username: %s): %w", user.TelegramID, user.Username, err)
	}
	return nil
}

func (r *Postgres) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `
		SELECT telegram_id, username, algorithm, daily_new_words, daily_review_words, daily_target, reminder_hour, timezone, created_at
		FROM users WHERE telegram_id = $1
	`

	var user models.User
	err := r.GetContext(ctx, &user, query, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	return &user, nil
}

func (r *Postgres) UserExists(ctx context.Context, telegramID int64) (bool, error) {
	query := r.psql.Select("COUNT(*)").From("users").Where("telegram_id = ?", telegramID)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("build SQL query (telegram_id: %d): %w", telegramID, err)
	}

	var count int
	err = r.QueryRowxContext(ctx, sql, args...).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check user exists (telegram_id: %d): %w", telegramID, err)
	}
	return count > 0, nil
}

func (r *Postgres) UpdateStudySettings(ctx context.Context, telegramID int64, settings models.StudySettings) error {
	query := r.psql.Update("users").
		Set("daily_new_words", settings.DailyNewWords).
		Set("daily_review_words", settings.DailyReviewWords).
		Set("daily_target", settings.DailyTarget).
		Where("telegram_id = ?", telegramID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (telegram_id: %d): %w", telegramID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update study settings (telegram_id: %d): %w", telegramID, err)
	}
	return nil
}

func (r *Postgres) UpdateAlgorithm(ctx context.Context, telegramID int64, algorithm models.Algorithm) error {
	query := r.psql.Update("users").
		Set("algorithm", algorithm).
		Where("telegram_id = ?", telegramID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (telegram_id: %d): %w", telegramID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update algorithm (telegram_id: %d, algorithm: %s): %w", telegramID, algorithm, err)
	}
	return nil
}

func (r *Postgres) UpdateReminderHour(ctx context.Context, telegramID int64, hour int) error {
	query := r.psql.Update("users").
		Set("reminder_hour", hour).
		Where("telegram_id = ?", telegramID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (telegram_id: %d): %w", telegramID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update reminder hour (telegram_id: %d, hour: %d): %w", telegramID, hour, err)
	}
	return nil
}

func (r *Postgres) GetUsersByReminderHour(ctx context.Context, hour int) ([]*models.User, error) {
	query := `
		SELECT telegram_id, username, algorithm, daily_new_words, daily_review_words, daily_target, reminder_hour, timezone, created_at
		FROM users WHERE reminder_hour = $1
	`

	var users []*models.User
	err := r.SelectContext(ctx, &users, query, hour)
	if err != nil {
		return nil, fmt.Errorf("get users by reminder hour (hour: %d): %w", hour, err)
	}

	return users, nil
}
