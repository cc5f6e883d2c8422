package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syh52/lexicon-srs/internal/models"
	"github.com/syh52/lexicon-srs/internal/planner"
	"github.com/syh52/lexicon-srs/internal/srs"
	"github.com/syh52/lexicon-srs/pkg/utils"
	"go.uber.org/zap"
)

// ErrNoActivePlan is returned when an answer arrives without a plan
// having been opened for the day.
var ErrNoActivePlan = errors.New("no active plan for today")

type Service struct {
	repo       models.Repository
	sm2        *srs.SM2Scheduler
	fsrs       *srs.FSRSScheduler
	schedulers *srs.Dispatcher
	generator  *planner.Generator
}

func NewService(repo models.Repository, sm2 *srs.SM2Scheduler, fsrs *srs.FSRSScheduler, generator *planner.Generator) *Service {
	return &Service{
		repo:       repo,
		sm2:        sm2,
		fsrs:       fsrs,
		schedulers: srs.NewDispatcher(sm2, fsrs),
		generator:  generator,
	}
}

func (s *Service) RegisterUser(ctx context.Context, telegramID int64, username string) error {
	exists, err := s.repo.UserExists(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("check user exists (telegram_id: %d): %w", telegramID, err)
	}

	if exists {
		return nil
	}

	user := &models.User{
		TelegramID:       telegramID,
		Username:         username,
		Algorithm:        models.AlgorithmSM2,
		DailyNewWords:    models.DefaultDailyNewWords,
		DailyReviewWords: models.DefaultDailyReviewWords,
		DailyTarget:      models.DefaultDailyTarget,
		ReminderHour:     9,
		CreatedAt:        time.Now(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user (telegram_id: %d, username: %s): %w", telegramID, username, err)
	}

	return nil
}

func (s *Service) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.repo.GetUser(ctx, telegramID)
}

func (s *Service) UserExists(ctx context.Context, telegramID int64) (bool, error) {
	return s.repo.UserExists(ctx, telegramID)
}

func (s *Service) UpdateStudySettings(ctx context.Context, telegramID int64, settings models.StudySettings) error {
	if settings.DailyNewWords < 0 || settings.DailyReviewWords < 0 || settings.DailyTarget < 1 {
		return fmt.Errorf("invalid study settings (new: %d, review: %d, target: %d)",
			settings.DailyNewWords, settings.DailyReviewWords, settings.DailyTarget)
	}
	return s.repo.UpdateStudySettings(ctx, telegramID, settings)
}

func (s *Service) UpdateAlgorithm(ctx context.Context, telegramID int64, raw string) error {
	algorithm := models.Algorithm(raw)
	if algorithm != models.AlgorithmSM2 && algorithm != models.AlgorithmFSRS {
		return fmt.Errorf("%w: %q", srs.ErrUnknownAlgorithm, raw)
	}
	return s.repo.UpdateAlgorithm(ctx, telegramID, algorithm)
}

func (s *Service) UpdateReminderHour(ctx context.Context, telegramID int64, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("invalid reminder hour: %d", hour)
	}
	return s.repo.UpdateReminderHour(ctx, telegramID, hour)
}

func (s *Service) ListWordbooks(ctx context.Context) ([]*models.Wordbook, error) {
	return s.repo.ListWordbooks(ctx)
}

func (s *Service) GetWord(ctx context.Context, wordID string) (*models.Word, error) {
	return s.repo.GetWord(ctx, wordID)
}

// GetDailyPlan returns today's plan for the wordbook, generating it on
// first call of the day. Creation is idempotent: an existing plan is
// returned unchanged, and a racing creation loses to ON CONFLICT and
// re-reads the winner.
func (s *Service) GetDailyPlan(ctx context.Context, userID int64, wordbookID string, now time.Time) (*models.DailyPlan, error) {
	date := utils.StartOfDay(now)

	plan, err := s.repo.GetDailyPlan(ctx, userID, wordbookID, date)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for plan (telegram_id: %d): %w", userID, err)
	}

	roster, err := s.repo.GetRoster(ctx, userID, wordbookID)
	if err != nil {
		return nil, fmt.Errorf("get roster for plan (telegram_id: %d, wordbook_id: %s): %w", userID, wordbookID, err)
	}

	generated := s.generator.GeneratePlan(userID, wordbookID, roster, user.Settings(), now)
	if err := s.repo.CreateDailyPlan(ctx, &generated); err != nil {
		return nil, err
	}

	zap.S().Info("daily plan created",
		zap.Int64("telegram_id", userID),
		zap.String("wordbook_id", wordbookID),
		zap.Int("total", generated.TotalCount),
		zap.Int("new", generated.NewCount),
		zap.Int("review", generated.ReviewCount))

	return s.repo.GetDailyPlan(ctx, userID, wordbookID, date)
}

// SubmitAnswer runs one answered card through the scheduler and the
// session tracker inside a single transaction. The plan row is locked
// for the duration, so concurrent submissions for the same plan
// serialize instead of losing updates.
func (s *Service) SubmitAnswer(ctx context.Context, userID int64, wordbookID, wordID string, outcome srs.Outcome, timeSpent time.Duration, now time.Time) (*models.DailyPlan, *models.MemoryCard, error) {
	date := utils.StartOfDay(now)

	var (
		updatedPlan models.DailyPlan
		updatedCard models.MemoryCard
	)

	err := s.repo.RunInTx(ctx, func(tx models.Repository) error {
		plan, err := tx.GetDailyPlanForUpdate(ctx, userID, wordbookID, date)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("submit answer (telegram_id: %d, wordbook_id: %s): %w", userID, wordbookID, ErrNoActivePlan)
		}
		if err != nil {
			return err
		}

		card, err := tx.GetMemoryCard(ctx, userID, wordID)
		if errors.Is(err, models.ErrNotFound) {
			user, userErr := tx.GetUser(ctx, userID)
			if userErr != nil {
				return fmt.Errorf("get user for new card (telegram_id: %d): %w", userID, userErr)
			}
			fresh, newErr := s.schedulers.NewCard(user.Algorithm, userID, wordbookID, wordID, now)
			if newErr != nil {
				return newErr
			}
			card = &fresh
		} else if err != nil {
			return err
		}

		scheduler, err := s.schedulers.ForAlgorithm(card.Algorithm)
		if err != nil {
			return err
		}

		next, err := scheduler.ProcessOutcome(*card, outcome, now)
		if err != nil {
			return err
		}
		if err := tx.UpsertMemoryCard(ctx, &next); err != nil {
			return err
		}

		nextPlan := planner.RecordAnswer(*plan, wordID, outcome, timeSpent, now)
		if err := tx.UpdateDailyPlan(ctx, &nextPlan); err != nil {
			return err
		}

		updatedPlan = nextPlan
		updatedCard = next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return &updatedPlan, &updatedCard, nil
}

// GetStudyAdvice previews all four FSRS ratings for the card without
// committing anything.
func (s *Service) GetStudyAdvice(ctx context.Context, userID int64, wordID string, now time.Time) (*srs.StudyAdvice, error) {
	card, err := s.repo.GetMemoryCard(ctx, userID, wordID)
	if err != nil {
		return nil, err
	}

	advice := s.fsrs.GetStudyAdvice(srs.FSRSCardFromRecord(*card), now)
	return &advice, nil
}

// StudyStats is the /stats view: today's plan progress plus the
// learner's card status breakdown.
type StudyStats struct {
	Plan         *models.DailyPlan
	StatusCounts map[models.CardStatus]int
	DueCount     int
}

func (s *Service) GetStudyStats(ctx context.Context, userID int64, wordbookID string, now time.Time) (*StudyStats, error) {
	stats := &StudyStats{}

	plan, err := s.repo.GetDailyPlan(ctx, userID, wordbookID, utils.StartOfDay(now))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	stats.Plan = plan

	counts, err := s.repo.CountCardsByStatus(ctx, userID, wordbookID)
	if err != nil {
		return nil, err
	}
	stats.StatusCounts = counts

	due, err := s.repo.CountDueCards(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	stats.DueCount = due

	return stats, nil
}

// UsersForReminder lists users whose reminder hour matches.
func (s *Service) UsersForReminder(ctx context.Context, hour int) ([]*models.User, error) {
	return s.repo.GetUsersByReminderHour(ctx, hour)
}

// DueCardCount reports how many cards await review right now.
func (s *Service) DueCardCount(ctx context.Context, userID int64, now time.Time) (int, error) {
	return s.repo.CountDueCards(ctx, userID, now)
}
