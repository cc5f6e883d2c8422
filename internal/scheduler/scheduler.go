package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/syh52/lexicon-srs/internal/models"
	"go.uber.org/zap"
)

// Notifier delivers a reminder to a single user.
type Notifier interface {
	SendReminder(userID int64, dueCount int) error
}

type Service interface {
	UsersForReminder(ctx context.Context, hour int) ([]*models.User, error)
	DueCardCount(ctx context.Context, userID int64, now time.Time) (int, error)
}

// Scheduler runs the hourly reminder sweep. Every user stores a
// preferred hour (UTC); the sweep picks up everyone whose hour just
// arrived and pings those with cards actually due.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Service
	notifier  Notifier
}

func New(service Service, notifier Notifier) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		notifier:  notifier,
	}
}

func (s *Scheduler) Start() {
	if _, err := s.scheduler.Every(1).Hour().Do(s.sendReminders); err != nil {
		zap.S().Error("schedule reminder job", zap.Error(err))
		return
	}
	// Plans are created lazily and past plans stay untouched, so the
	// rollover job only marks the boundary in the log.
	if _, err := s.scheduler.Every(1).Day().At("00:00").Do(s.logRollover); err != nil {
		zap.S().Error("schedule rollover job", zap.Error(err))
		return
	}
	s.scheduler.StartAsync()
	zap.S().Info("reminder scheduler started")
}

func (s *Scheduler) logRollover() {
	zap.S().Info("study day rolled over", zap.String("date", time.Now().UTC().Format("2006-01-02")))
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) sendReminders() {
	ctx := context.Background()
	now := time.Now().UTC()

	users, err := s.service.UsersForReminder(ctx, now.Hour())
	if err != nil {
		zap.S().Error("get users for reminder", zap.Error(err), zap.Int("hour", now.Hour()))
		return
	}

	for _, user := range users {
		dueCount, err := s.service.DueCardCount(ctx, user.TelegramID, now)
		if err != nil {
			zap.S().Error("count due cards", zap.Error(err), zap.Int64("telegram_id", user.TelegramID))
			continue
		}
		if dueCount == 0 {
			continue
		}

		if err := s.notifier.SendReminder(user.TelegramID, dueCount); err != nil {
			zap.S().Error("send reminder", zap.Error(err), zap.Int64("telegram_id", user.TelegramID))
		}
	}
}
