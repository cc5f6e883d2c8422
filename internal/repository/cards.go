package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/syh52/lexicon-srs/internal/models"
)

const cardColumns = `user_id, word_id, wordbook_id, algorithm, status, repetitions, easiness_factor,
	difficulty, stability, retrievability, interval_days, lapses, next_review, last_review, created_at, updated_at`

func (r *Postgres) GetMemoryCard(ctx context.Context, userID int64, wordID string) (*models.MemoryCard, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM memory_cards
		WHERE user_id = $1 AND word_id = $2
	`

	var card models.MemoryCard
	err := r.GetContext(ctx, &card, query, userID, wordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get memory card (user_id: %d, word_id: %s): %w", userID, wordID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get memory card (user_id: %d, word_id: %s): %w", userID, wordID, err)
	}

	return &card, nil
}

// UpsertMemoryCard writes the full next card record; the scheduler
// never emits partial patches.
func (r *Postgres) UpsertMemoryCard(ctx context.Context, card *models.MemoryCard) error {
	query := r.psql.Insert("memory_cards").
		Columns("user_id", "word_id", "wordbook_id", "algorithm", "status", "repetitions", "easiness_factor",
			"difficulty", "stability", "retrievability", "interval_days", "lapses", "next_review", "last_review", "created_at", "updated_at").
		Values(card.UserID, card.WordID, card.WordbookID, card.Algorithm, card.Status, card.Repetitions, card.EasinessFactor,
			card.Difficulty, card.Stability, card.Retrievability, card.IntervalDays, card.Lapses, card.NextReview, card.LastReview, card.CreatedAt, card.UpdatedAt).
		Suffix(`ON CONFLICT (user_id, word_id) DO UPDATE SET
			algorithm = EXCLUDED.algorithm,
			status = EXCLUDED.status,
			repetitions = EXCLUDED.repetitions,
			easiness_factor = EXCLUDED.easiness_factor,
			difficulty = EXCLUDED.difficulty,
			stability = EXCLUDED.stability,
			retrievability = EXCLUDED.retrievability,
			interval_days = EXCLUDED.interval_days,
			lapses = EXCLUDED.lapses,
			next_review = EXCLUDED.next_review,
			last_review = EXCLUDED.last_review,
			updated_at = EXCLUDED.updated_at`)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d, word_id: %s): %w", card.UserID, card.WordID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("upsert memory card (user_id: %d, word_id: %s): %w", card.UserID, card.WordID, err)
	}
	return nil
}

func (r *Postgres) CountCardsByStatus(ctx context.Context, userID int64, wordbookID string) (map[models.CardStatus]int, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM memory_cards
		WHERE user_id = $1 AND wordbook_id = $2
		GROUP BY status
	`

	rows, err := r.QueryxContext(ctx, query, userID, wordbookID)
	if err != nil {
		return nil, fmt.Errorf("count cards by status (user_id: %d, wordbook_id: %s): %w", userID, wordbookID, err)
	}
	defer rows.Close()

	counts := make(map[models.CardStatus]int)
	for rows.Next() {
		var status models.CardStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count (user_id: %d): %w", userID, err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts (user_id: %d): %w", userID, err)
	}

	return counts, nil
}

func (r *Postgres) CountDueCards(ctx context.Context, userID int64, now time.Time) (int, error) {
	query := r.psql.Select("COUNT(*)").
		From("memory_cards").
		Where("user_id = ?", userID).
		Where("next_review <= ?", now).
		Where("status <> ?", models.StatusMastered)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	var count int
	err = r.QueryRowxContext(ctx, sql, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count due cards (user_id: %d): %w", userID, err)
	}
	return count, nil
}
