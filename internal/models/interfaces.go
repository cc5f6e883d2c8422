package models

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, telegramID int64) (*User, error)
	UserExists(ctx context.Context, telegramID int64) (bool, error)
	UpdateStudySettings(ctx context.Context, telegramID int64, settings StudySettings) error
	UpdateAlgorithm(ctx context.Context, telegramID int64, algorithm Algorithm) error
	UpdateReminderHour(ctx context.Context, telegramID int64, hour int) error
	GetUsersByReminderHour(ctx context.Context, hour int) ([]*User, error)
	RunInTx(ctx context.Context, fn func(Repository) error) error

	ListWordbooks(ctx context.Context) ([]*Wordbook, error)
	GetWordbook(ctx context.Context, wordbookID string) (*Wordbook, error)
	GetWord(ctx context.Context, wordID string) (*Word, error)
	GetRoster(ctx context.Context, userID int64, wordbookID string) ([]RosterItem, error)

	GetMemoryCard(ctx context.Context, userID int64, wordID string) (*MemoryCard, error)
	UpsertMemoryCard(ctx context.Context, card *MemoryCard) error
	CountCardsByStatus(ctx context.Context, userID int64, wordbookID string) (map[CardStatus]int, error)
	CountDueCards(ctx context.Context, userID int64, now time.Time) (int, error)

	CreateDailyPlan(ctx context.Context, plan *DailyPlan) error
	GetDailyPlan(ctx context.Context, userID int64, wordbookID string, date time.Time) (*DailyPlan, error)
	GetDailyPlanForUpdate(ctx context.Context, userID int64, wordbookID string, date time.Time) (*DailyPlan, error)
	UpdateDailyPlan(ctx context.Context, plan *DailyPlan) error
}
