package service

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syh52/lexicon-srs/internal/models"
	"github.com/syh52/lexicon-srs/internal/planner"
	"github.com/syh52/lexicon-srs/internal/srs"
	"github.com/syh52/lexicon-srs/pkg/utils"
)

// fakeRepo is an in-memory Repository. Transactions are a plain
// callback; single-goroutine tests need no locking.
type fakeRepo struct {
	users     map[int64]*models.User
	wordbooks []*models.Wordbook
	words     map[string]*models.Word
	cards     map[string]*models.MemoryCard // userID|wordID
	plans     map[string]*models.DailyPlan  // userID|wordbookID|date

	createPlanCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users: map[int64]*models.User{},
		words: map[string]*models.Word{},
		cards: map[string]*models.MemoryCard{},
		plans: map[string]*models.DailyPlan{},
	}
}

func cardKey(userID int64, wordID string) string {
	return fmt.Sprintf("%d|%s", userID, wordID)
}

func planKey(userID int64, wordbookID string, date time.Time) string {
	return fmt.Sprintf("%d|%s|%s", userID, wordbookID, date.Format("2006-01-02"))
}

func (f *fakeRepo) CreateUser(_ context.Context, user *models.User) error {
	f.users[user.TelegramID] = user
	return nil
}

func (f *fakeRepo) GetUser(_ context.Context, telegramID int64) (*models.User, error) {
	user, ok := f.users[telegramID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepo) UserExists(_ context.Context, telegramID int64) (bool, error) {
	_, ok := f.users[telegramID]
	return ok, nil
}

func (f *fakeRepo) UpdateStudySettings(_ context.Context, telegramID int64, settings models.StudySettings) error {
	user, ok := f.users[telegramID]
	if !ok {
		return models.ErrNotFound
	}
	user.DailyNewWords = settings.DailyNewWords
	user.DailyReviewWords = settings.DailyReviewWords
	user.DailyTarget = settings.DailyTarget
	return nil
}

func (f *fakeRepo) UpdateAlgorithm(_ context.Context, telegramID int64, algorithm models.Algorithm) error {
	user, ok := f.users[telegramID]
	if !ok {
		return models.ErrNotFound
	}
	user.Algorithm = algorithm
	return nil
}

func (f *fakeRepo) UpdateReminderHour(_ context.Context, telegramID int64, hour int) error {
	user, ok := f.users[telegramID]
	if !ok {
		return models.ErrNotFound
	}
	user.ReminderHour = hour
	return nil
}

func (f *fakeRepo) GetUsersByReminderHour(_ context.Context, hour int) ([]*models.User, error) {
	var out []*models.User
	for _, user := range f.users {
		if user.ReminderHour == hour {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeRepo) RunInTx(_ context.Context, fn func(models.Repository) error) error {
	return fn(f)
}

func (f *fakeRepo) ListWordbooks(_ context.Context) ([]*models.Wordbook, error) {
	return f.wordbooks, nil
}

func (f *fakeRepo) GetWordbook(_ context.Context, wordbookID string) (*models.Wordbook, error) {
	for _, wb := range f.wordbooks {
		if wb.ID == wordbookID {
			return wb, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepo) GetWord(_ context.Context, wordID string) (*models.Word, error) {
	word, ok := f.words[wordID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return word, nil
}

func (f *fakeRepo) GetRoster(_ context.Context, userID int64, wordbookID string) ([]models.RosterItem, error) {
	var roster []models.RosterItem
	for _, word := range f.words {
		if word.WordbookID != wordbookID {
			continue
		}
		item := models.RosterItem{WordID: word.ID}
		if card, ok := f.cards[cardKey(userID, word.ID)]; ok {
			c := *card
			item.Card = &c
		}
		roster = append(roster, item)
	}
	return roster, nil
}

func (f *fakeRepo) GetMemoryCard(_ context.Context, userID int64, wordID string) (*models.MemoryCard, error) {
	card, ok := f.cards[cardKey(userID, wordID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *card
	return &c, nil
}

func (f *fakeRepo) UpsertMemoryCard(_ context.Context, card *models.MemoryCard) error {
	c := *card
	f.cards[cardKey(card.UserID, card.WordID)] = &c
	return nil
}

func (f *fakeRepo) CountCardsByStatus(_ context.Context, userID int64, wordbookID string) (map[models.CardStatus]int, error) {
	counts := map[models.CardStatus]int{}
	for _, card := range f.cards {
		if card.UserID == userID && card.WordbookID == wordbookID {
			counts[card.Status]++
		}
	}
	return counts, nil
}

func (f *fakeRepo) CountDueCards(_ context.Context, userID int64, now time.Time) (int, error) {
	due := 0
	for _, card := range f.cards {
		if card.UserID == userID && card.Status != models.StatusMastered && !card.NextReview.After(now) {
			due++
		}
	}
	return due, nil
}

func (f *fakeRepo) CreateDailyPlan(_ context.Context, plan *models.DailyPlan) error {
	f.createPlanCalls++
	key := planKey(plan.UserID, plan.WordbookID, plan.PlanDate)
	if _, ok := f.plans[key]; ok {
		// Same conflict semantics as the real store: first writer wins.
		return nil
	}
	p := *plan
	p.ID = int64(len(f.plans) + 1)
	f.plans[key] = &p
	return nil
}

func (f *fakeRepo) GetDailyPlan(_ context.Context, userID int64, wordbookID string, date time.Time) (*models.DailyPlan, error) {
	plan, ok := f.plans[planKey(userID, wordbookID, date)]
	if !ok {
		return nil, models.ErrNotFound
	}
	p := *plan
	return &p, nil
}

func (f *fakeRepo) GetDailyPlanForUpdate(ctx context.Context, userID int64, wordbookID string, date time.Time) (*models.DailyPlan, error) {
	return f.GetDailyPlan(ctx, userID, wordbookID, date)
}

func (f *fakeRepo) UpdateDailyPlan(_ context.Context, plan *models.DailyPlan) error {
	for key, existing := range f.plans {
		if existing.ID == plan.ID {
			p := *plan
			f.plans[key] = &p
			return nil
		}
	}
	return models.ErrNotFound
}

func newTestService(repo models.Repository) *Service {
	rng := rand.New(rand.NewSource(1))
	return NewService(repo,
		srs.NewSM2Scheduler(),
		srs.NewFSRSScheduler(srs.DefaultFSRSParams(), rng),
		planner.NewGenerator(rng),
	)
}

func seedLearner(repo *fakeRepo, algorithm models.Algorithm, wordIDs ...string) {
	repo.users[42] = &models.User{
		TelegramID:       42,
		Algorithm:        algorithm,
		DailyNewWords:    10,
		DailyReviewWords: 20,
		DailyTarget:      30,
		ReminderHour:     9,
	}
	repo.wordbooks = []*models.Wordbook{{ID: "starter", Name: "Starter"}}
	for _, id := range wordIDs {
		repo.words[id] = &models.Word{ID: id, WordbookID: "starter", Text: id}
	}
}

func TestRegisterUserIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RegisterUser(ctx, 42, "dana"))

	user, err := svc.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.AlgorithmSM2, user.Algorithm)
	assert.Equal(t, models.DefaultDailyNewWords, user.DailyNewWords)
	assert.Equal(t, 9, user.ReminderHour)

	// Second registration leaves the existing profile alone.
	user.DailyTarget = 50
	require.NoError(t, svc.RegisterUser(ctx, 42, "dana"))
	user, err = svc.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 50, user.DailyTarget)
}

func TestUpdateSettingsValidation(t *testing.T) {
	repo := newFakeRepo()
	seedLearner(repo, models.AlgorithmSM2)
	svc := newTestService(repo)
	ctx := context.Background()

	assert.Error(t, svc.UpdateStudySettings(ctx, 42, models.StudySettings{DailyNewWords: -1, DailyReviewWords: 5, DailyTarget: 5}))
	assert.Error(t, svc.UpdateStudySettings(ctx, 42, models.StudySettings{DailyNewWords: 5, DailyReviewWords: 5, DailyTarget: 0}))
	assert.NoError(t, svc.UpdateStudySettings(ctx, 42, models.StudySettings{DailyNewWords: 5, DailyReviewWords: 5, DailyTarget: 10}))

	assert.ErrorIs(t, svc.UpdateAlgorithm(ctx, 42, "leitner"), srs.ErrUnknownAlgorithm)
	assert.NoError(t, svc.UpdateAlgorithm(ctx, 42, "fsrs"))

	assert.Error(t, svc.UpdateReminderHour(ctx, 42, 24))
	assert.NoError(t, svc.UpdateReminderHour(ctx, 42, 7))
}

func TestGetDailyPlanCreatesOncePerDay(t *testing.T) {
	repo := newFakeRepo()
	seedLearner(repo, models.AlgorithmSM2, "w1", "w2", "w3")
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	first, err := svc.GetDailyPlan(ctx, 42, "starter", now)
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalCount)
	assert.Equal(t, 3, first.NewCount)
	assert.True(t, first.PlanDate.Equal(utils.StartOfDay(now)))

	// A later call the same day returns the stored plan unchanged.
	second, err := svc.GetDailyPlan(ctx, 42, "starter", now.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.PlannedWords, second.PlannedWords)
	assert.Equal(t, 1, repo.createPlanCalls)
}

func TestSubmitAnswerRequiresPlan(t *testing.T) {
	repo := newFakeRepo()
	seedLearner(repo, models.AlgorithmSM2, "w1")
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, _, err := svc.SubmitAnswer(ctx, 42, "starter", "w1", srs.OutcomeKnow, time.Second, now)
	assert.ErrorIs(t, err, ErrNoActivePlan)
}

func TestSubmitAnswerCreatesCardAndAdvancesPlan(t *testing.T) {
	repo := newFakeRepo()
	seedLearner(repo, models.AlgorithmSM2, "w1", "w2")
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	plan, err := svc.GetDailyPlan(ctx, 42, "starter", now)
	require.NoError(t, err)
	wordID := plan.CurrentWordID()

	updatedPlan, card, err := svc.SubmitAnswer(ctx, 42, "starter", wordID, srs.OutcomeKnow, 3*time.Second, now)
	require.NoError(t, err)

	assert.Equal(t, 1, updatedPlan.CompletedCount())
	assert.Equal(t, 1, updatedPlan.Stats.KnownCount)

	assert.Equal(t, models.AlgorithmSM2, card.Algorithm)
	assert.Equal(t, 1, card.Repetitions)
	assert.Equal(t, 1, card.IntervalDays)
	assert.Equal(t, models.StatusLearning, card.Status)

	// The card and plan both persisted.
	stored, err := repo.GetMemoryCard(ctx, 42, wordID)
	require.NoError(t, err)
	assert.Equal(t, card.Repetitions, stored.Repetitions)

	storedPlan, err := repo.GetDailyPlan(ctx, 42, "starter", utils.StartOfDay(now))
	require.NoError(t, err)
	assert.Equal(t, 1, storedPlan.CompletedCount())
}

func TestSubmitAnswerUsesUserAlgorithmForNewCards(t *testing.T) {
	repo := newFakeRepo()
	seedLearner(repo, models.AlgorithmFSRS, "w1")
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.GetDailyPlan(ctx, 42, "starter", now)
	require.NoError(t, err)

	_, card, err := svc.SubmitAnswer(ctx, 42, "starter", "w1", srs.OutcomeKnow, time.Second, now)
	require.NoError(t, err)
	assert.Equal(t, models.AlgorithmFSRS, card.Algorithm)
	assert.Greater(t, card.Stability, 0.0)
}

func TestSubmitAnswerKeepsCardAlgorithm(t *testing.T) {
	// Switching the profile to FSRS must not reschedule cards already
	// tracked by SM-2.
	repo := newFakeRepo()
	seedLearner(repo, models.AlgorithmFSRS, "w1")
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	existing := srs.NewSM2Scheduler().NewCard(42, "starter", "w1", now.AddDate(0, 0, -1))
	require.NoError(t, repo.UpsertMemoryCard(ctx, &existing))

	_, err := svc.GetDailyPlan(ctx, 42, "starter", now)
	require.NoError(t, err)

	_, card, err := svc.SubmitAnswer(ctx, 42, "starter", "w1", srs.OutcomeKnow, time.Second, now)
	require.NoError(t, err)
	assert.Equal(t, models.AlgorithmSM2, card.Algorithm)
	assert.Equal(t, 1, card.Repetitions)
}

func TestSubmitAnswerCompletesSession(t *testing.T) {
	repo := newFakeRepo()
	seedLearner(repo, models.AlgorithmSM2, "w1")
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.GetDailyPlan(ctx, 42, "starter", now)
	require.NoError(t, err)

	plan, _, err := svc.SubmitAnswer(ctx, 42, "starter", "w1", srs.OutcomeUnknown, time.Second, now)
	require.NoError(t, err)
	assert.True(t, plan.IsCompleted)
	require.NotNil(t, plan.CompletedAt)
	assert.InDelta(t, 0.0, plan.Stats.Accuracy, 1e-9)
}

func TestGetStudyStats(t *testing.T) {
	repo := newFakeRepo()
	seedLearner(repo, models.AlgorithmSM2, "w1", "w2")
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.GetDailyPlan(ctx, 42, "starter", now)
	require.NoError(t, err)
	_, _, err = svc.SubmitAnswer(ctx, 42, "starter", "w1", srs.OutcomeKnow, time.Second, now)
	require.NoError(t, err)

	stats, err := svc.GetStudyStats(ctx, 42, "starter", now)
	require.NoError(t, err)
	require.NotNil(t, stats.Plan)
	assert.Equal(t, 1, stats.Plan.CompletedCount())
	assert.Equal(t, 1, stats.StatusCounts[models.StatusLearning])
	assert.Equal(t, 0, stats.DueCount)
}

func TestGetStudyAdvice(t *testing.T) {
	repo := newFakeRepo()
	seedLearner(repo, models.AlgorithmFSRS, "w1")
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	card := srs.NewFSRSScheduler(srs.DefaultFSRSParams(), rand.New(rand.NewSource(1))).
		InitCard(42, "starter", "w1", now.AddDate(0, 0, -3))
	require.NoError(t, repo.UpsertMemoryCard(ctx, &card))

	advice, err := svc.GetStudyAdvice(ctx, 42, "w1", now)
	require.NoError(t, err)
	assert.Equal(t, srs.DifficultyLabel(card.Difficulty), advice.DifficultyLabel)
	assert.Equal(t, 1, advice.Again.IntervalDays)
	assert.GreaterOrEqual(t, advice.Easy.IntervalDays, advice.Good.IntervalDays)
	assert.GreaterOrEqual(t, advice.Good.IntervalDays, advice.Hard.IntervalDays)

	_, err = svc.GetStudyAdvice(ctx, 42, "missing", now)
	assert.Error(t, err)
}

func TestGetStudyStatsWithoutPlan(t *testing.T) {
	repo := newFakeRepo()
	seedLearner(repo, models.AlgorithmSM2)
	svc := newTestService(repo)

	stats, err := svc.GetStudyStats(context.Background(), 42, "starter", time.Now())
	require.NoError(t, err)
	assert.Nil(t, stats.Plan)
	assert.Equal(t, 0, stats.DueCount)
}
