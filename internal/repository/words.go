package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/syh52/lexicon-srs/internal/models"
)

func (r *Postgres) ListWordbooks(ctx context.Context) ([]*models.Wordbook, error) {
	query := `SELECT id, name, description, created_at FROM wordbooks ORDER BY name`

	var wordbooks []*models.Wordbook
	err := r.SelectContext(ctx, &wordbooks, query)
	if err != nil {
		return nil, fmt.Errorf("list wordbooks: %w", err)
	}

	return wordbooks, nil
}

func (r *Postgres) GetWordbook(ctx context.Context, wordbookID string) (*models.Wordbook, error) {
	query := `SELECT id, name, description, created_at FROM wordbooks WHERE id = $1`

	var wordbook models.Wordbook
	err := r.GetContext(ctx, &wordbook, query, wordbookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get wordbook (wordbook_id: %s): %w", wordbookID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get wordbook (wordbook_id: %s): %w", wordbookID, err)
	}

	return &wordbook, nil
}

func (r *Postgres) GetWord(ctx context.Context, wordID string) (*models.Word, error) {
	query := `SELECT id, wordbook_id, text, phonetic, translation, example, created_at FROM words WHERE id = $1`

	var word models.Word
	err := r.GetContext(ctx, &word, query, wordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get word (word_id: %s): %w", wordID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get word (word_id: %s): %w", wordID, err)
	}

	return &word, nil
}

// rosterRow flattens the word/card left join; card columns are null
// for words the learner has never reviewed.
type rosterRow struct {
	WordID         string           `db:"word_id"`
	CardUserID     sql.NullInt64    `db:"card_user_id"`
	Algorithm      sql.NullString   `db:"algorithm"`
	Status         sql.NullString   `db:"status"`
	Repetitions    sql.NullInt64    `db:"repetitions"`
	EasinessFactor sql.NullFloat64  `db:"easiness_factor"`
	Difficulty     sql.NullFloat64  `db:"difficulty"`
	Stability      sql.NullFloat64  `db:"stability"`
	Retrievability sql.NullFloat64  `db:"retrievability"`
	IntervalDays   sql.NullInt64    `db:"interval_days"`
	Lapses         sql.NullInt64    `db:"lapses"`
	NextReview     sql.NullTime     `db:"next_review"`
	LastReview     sql.NullTime     `db:"last_review"`
	CreatedAt      sql.NullTime     `db:"created_at"`
	UpdatedAt      sql.NullTime     `db:"updated_at"`
}

func (r *Postgres) GetRoster(ctx context.Context, userID int64, wordbookID string) ([]models.RosterItem, error) {
	query := `
		SELECT w.id AS word_id,
		       c.user_id AS card_user_id, c.algorithm, c.status, c.repetitions,
		       c.easiness_factor, c.difficulty, c.stability, c.retrievability,
		       c.interval_days, c.lapses, c.next_review, c.last_review,
		       c.created_at, c.updated_at
		FROM words w
		LEFT JOIN memory_cards c ON c.word_id = w.id AND c.user_id = $1
		WHERE w.wordbook_id = $2
		ORDER BY w.id
	`

	var rows []rosterRow
	err := r.SelectContext(ctx, &rows, query, userID, wordbookID)
	if err != nil {
		return nil, fmt.Errorf("get roster (user_id: %d, wordbook_id: %s): %w", userID, wordbookID, err)
	}

	roster := make([]models.RosterItem, 0, len(rows))
	for _, row := range rows {
		item := models.RosterItem{WordID: row.WordID}
		if row.CardUserID.Valid {
			card := models.MemoryCard{
				UserID:         row.CardUserID.Int64,
				WordID:         row.WordID,
				WordbookID:     wordbookID,
				Algorithm:      models.Algorithm(row.Algorithm.String),
				Status:         models.CardStatus(row.Status.String),
				Repetitions:    int(row.Repetitions.Int64),
				EasinessFactor: row.EasinessFactor.Float64,
				Difficulty:     row.Difficulty.Float64,
				Stability:      row.Stability.Float64,
				Retrievability: row.Retrievability.Float64,
				IntervalDays:   int(row.IntervalDays.Int64),
				Lapses:         int(row.Lapses.Int64),
				NextReview:     row.NextReview.Time,
				CreatedAt:      row.CreatedAt.Time,
				UpdatedAt:      row.UpdatedAt.Time,
			}
			if row.LastReview.Valid {
				lastReview := row.LastReview.Time
				card.LastReview = &lastReview
			}
			item.Card = &card
		}
		roster = append(roster, item)
	}

	return roster, nil
}
