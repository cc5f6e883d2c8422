package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/syh52/lexicon-srs/internal/models"
	"github.com/syh52/lexicon-srs/internal/service"
	"github.com/syh52/lexicon-srs/internal/srs"
	"go.uber.org/zap"
)

type Service interface {
	RegisterUser(ctx context.Context, telegramID int64, username string) error
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	UserExists(ctx context.Context, telegramID int64) (bool, error)
	UpdateStudySettings(ctx context.Context, telegramID int64, settings models.StudySettings) error
	UpdateAlgorithm(ctx context.Context, telegramID int64, raw string) error
	UpdateReminderHour(ctx context.Context, telegramID int64, hour int) error

	ListWordbooks(ctx context.Context) ([]*models.Wordbook, error)
	GetWord(ctx context.Context, wordID string) (*models.Word, error)
	GetDailyPlan(ctx context.Context, userID int64, wordbookID string, now time.Time) (*models.DailyPlan, error)
	SubmitAnswer(ctx context.Context, userID int64, wordbookID, wordID string, outcome srs.Outcome, timeSpent time.Duration, now time.Time) (*models.DailyPlan, *models.MemoryCard, error)
	GetStudyStats(ctx context.Context, userID int64, wordbookID string, now time.Time) (*service.StudyStats, error)
}

type TelegramHandler struct {
	api     *tgbotapi.BotAPI
	service Service

	mu       sync.Mutex
	promptAt map[int64]time.Time // chat -> when the current card was shown
}

func NewTelegramHandler(token string, service Service) (*TelegramHandler, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	return &TelegramHandler{
		api:      api,
		service:  service,
		promptAt: make(map[int64]time.Time),
	}, nil
}

func (h *TelegramHandler) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.api.GetUpdatesChan(u)

	zap.S().Info("bot started")

	for update := range updates {
		if update.Message == nil && update.CallbackQuery == nil {
			continue
		}

		h.handleUpdate(update)
	}
}

func (h *TelegramHandler) handleUpdate(update tgbotapi.Update) {
	ctx := context.Background()

	if update.Message != nil && update.Message.IsCommand() {
		if update.Message.From == nil {
			zap.S().Warn("received command from nil user")
			return
		}
		h.handleCommand(ctx, update)
	} else if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

func (h *TelegramHandler) handleCommand(ctx context.Context, update tgbotapi.Update) {
	switch update.Message.Command() {
	case "start":
		h.handleStart(ctx, update)
	case "study":
		h.handleStudy(ctx, update)
	case "stats":
		h.handleStats(ctx, update)
	case "settings":
		h.handleSettings(ctx, update)
	case "set_daily":
		h.handleSetDaily(ctx, update)
	case "algorithm":
		h.handleAlgorithm(ctx, update)
	case "reminder":
		h.handleReminder(ctx, update)
	case "help":
		h.handleHelp(update)
	default:
		h.sendMessage(update.Message.Chat.ID, "Unknown command. Use /help")
	}
}

func (h *TelegramHandler) handleStart(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if err := h.service.RegisterUser(ctx, userID, update.Message.From.UserName); err != nil {
		zap.S().Error("register user", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	text := "👋 Welcome! I schedule your vocabulary reviews so each word comes back right before you would forget it.\n\n" +
		"/study — start today's session\n" +
		"/stats — your progress\n" +
		"/help — all commands"
	h.sendMessage(chatID, text)
}

func (h *TelegramHandler) handleStudy(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !h.requireUser(ctx, userID, chatID) {
		return
	}

	wordbooks, err := h.service.ListWordbooks(ctx)
	if err != nil {
		zap.S().Error("list wordbooks", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	if len(wordbooks) == 0 {
		h.sendMessage(chatID, "No wordbooks available yet.")
		return
	}

	if len(wordbooks) == 1 {
		h.startSession(ctx, chatID, userID, wordbooks[0].ID)
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, wb := range wordbooks {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(wb.Name, "study|"+wb.ID),
		))
	}
	h.sendMessageWithKeyboard(chatID, "Pick a wordbook:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (h *TelegramHandler) startSession(ctx context.Context, chatID, userID int64, wordbookID string) {
	plan, err := h.service.GetDailyPlan(ctx, userID, wordbookID, time.Now())
	if err != nil {
		zap.S().Error("get daily plan", zap.Error(err), zap.Int64("telegram_id", userID), zap.String("wordbook_id", wordbookID))
		h.sendMessage(chatID, "Could not prepare today's plan. Try again later.")
		return
	}

	h.sendCurrentCard(ctx, chatID, userID, wordbookID, plan)
}

func (h *TelegramHandler) sendCurrentCard(ctx context.Context, chatID, userID int64, wordbookID string, plan *models.DailyPlan) {
	if plan.TotalCount == 0 {
		h.sendMessage(chatID, "🎉 Nothing scheduled for today. Come back tomorrow!")
		return
	}

	if plan.IsCompleted {
		h.sendMessage(chatID, h.formatSessionSummary(plan))
		return
	}

	wordID := plan.CurrentWordID()
	if wordID == "" {
		h.sendMessage(chatID, h.formatSessionSummary(plan))
		return
	}

	word, err := h.service.GetWord(ctx, wordID)
	if err != nil {
		zap.S().Error("get word", zap.Error(err), zap.Int64("telegram_id", userID), zap.String("word_id", wordID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	text := fmt.Sprintf("📖 <b>%s</b>", escapeHTML(word.Text))
	if word.Phonetic != "" {
		text += fmt.Sprintf("\n<i>%s</i>", escapeHTML(word.Phonetic))
	}
	text += fmt.Sprintf("\n\n%d of %d", plan.CompletedCount()+1, plan.TotalCount)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Know", answerCallback(srs.OutcomeKnow, wordbookID, wordID)),
			tgbotapi.NewInlineKeyboardButtonData("💡 Hint", answerCallback(srs.OutcomeHint, wordbookID, wordID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Forgot", answerCallback(srs.OutcomeUnknown, wordbookID, wordID)),
		),
	)

	h.mu.Lock()
	h.promptAt[chatID] = time.Now()
	h.mu.Unlock()

	h.sendMessageWithKeyboard(chatID, text, keyboard)
}

func answerCallback(outcome srs.Outcome, wordbookID, wordID string) string {
	return strings.Join([]string{"ans", string(outcome), wordbookID, wordID}, "|")
}

func (h *TelegramHandler) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Acknowledge immediately so the button stops spinning.
	if _, err := h.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		zap.S().Warn("answer callback query", zap.Error(err))
	}

	parts := strings.Split(callback.Data, "|")
	switch parts[0] {
	case "study":
		if len(parts) == 2 {
			h.startSession(ctx, callback.Message.Chat.ID, callback.From.ID, parts[1])
		}
	case "ans":
		if len(parts) == 4 {
			h.handleAnswer(ctx, callback, parts[1], parts[2], parts[3])
		}
	default:
		zap.S().Warn("unknown callback format", zap.String("data", callback.Data))
	}
}

func (h *TelegramHandler) handleAnswer(ctx context.Context, callback *tgbotapi.CallbackQuery, rawOutcome, wordbookID, wordID string) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	// The three buttons are the only accepted answers; anything else
	// is rejected here, before it reaches the scheduler.
	outcome, err := srs.ParseOutcome(rawOutcome)
	if err != nil {
		zap.S().Warn("invalid answer outcome", zap.String("data", callback.Data), zap.Int64("telegram_id", userID))
		return
	}

	now := time.Now()

	h.mu.Lock()
	shownAt, ok := h.promptAt[chatID]
	h.mu.Unlock()
	var timeSpent time.Duration
	if ok && now.After(shownAt) {
		timeSpent = now.Sub(shownAt)
	}

	plan, card, err := h.service.SubmitAnswer(ctx, userID, wordbookID, wordID, outcome, timeSpent, now)
	if err != nil {
		if errors.Is(err, service.ErrNoActivePlan) {
			h.sendMessage(chatID, "No session open for today. Use /study to start one.")
			return
		}
		zap.S().Error("submit answer", zap.Error(err), zap.Int64("telegram_id", userID), zap.String("word_id", wordID))
		h.sendMessage(chatID, "Could not record the answer. Try again.")
		return
	}

	word, err := h.service.GetWord(ctx, wordID)
	if err != nil {
		zap.S().Error("get word after answer", zap.Error(err), zap.String("word_id", wordID))
	} else {
		h.sendMessage(chatID, h.formatAnswerResult(word, outcome, card))
	}

	h.sendCurrentCard(ctx, chatID, userID, wordbookID, plan)
}

func (h *TelegramHandler) formatAnswerResult(word *models.Word, outcome srs.Outcome, card *models.MemoryCard) string {
	var mark string
	switch outcome {
	case srs.OutcomeKnow:
		mark = "✅"
	case srs.OutcomeHint:
		mark = "💡"
	default:
		mark = "❌"
	}

	text := fmt.Sprintf("%s <b>%s</b> — %s", mark, escapeHTML(word.Text), escapeHTML(word.Translation))
	if word.Example != "" {
		text += fmt.Sprintf("\n<i>%s</i>", escapeHTML(word.Example))
	}

	if card.IntervalDays == 1 {
		text += "\n\nNext review tomorrow."
	} else {
		text += fmt.Sprintf("\n\nNext review in %d days.", card.IntervalDays)
	}
	return text
}

func (h *TelegramHandler) formatSessionSummary(plan *models.DailyPlan) string {
	stats := plan.Stats
	return fmt.Sprintf("🏁 Session complete!\n\n"+
		"Words: %d (new %d, review %d)\n"+
		"Known: %d · Missed: %d\n"+
		"Accuracy: %.0f%%\n"+
		"Time: %s",
		plan.TotalCount, plan.NewCount, plan.ReviewCount,
		stats.KnownCount, stats.UnknownCount,
		stats.Accuracy,
		(time.Duration(stats.StudyTimeSec) * time.Second).String())
}

func (h *TelegramHandler) handleStats(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !h.requireUser(ctx, userID, chatID) {
		return
	}

	wordbooks, err := h.service.ListWordbooks(ctx)
	if err != nil || len(wordbooks) == 0 {
		if err != nil {
			zap.S().Error("list wordbooks", zap.Error(err), zap.Int64("telegram_id", userID))
		}
		h.sendMessage(chatID, "No stats available yet.")
		return
	}

	stats, err := h.service.GetStudyStats(ctx, userID, wordbooks[0].ID, time.Now())
	if err != nil {
		zap.S().Error("get study stats", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return
	}

	var b strings.Builder
	b.WriteString("📊 <b>Your progress</b>\n\n")
	if stats.Plan != nil {
		b.WriteString(fmt.Sprintf("Today: %d/%d answered", stats.Plan.CompletedCount(), stats.Plan.TotalCount))
		if stats.Plan.IsCompleted {
			b.WriteString(" ✅")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Today: no session yet, use /study\n")
	}
	b.WriteString(fmt.Sprintf("Due now: %d\n\n", stats.DueCount))

	for _, status := range []models.CardStatus{models.StatusNew, models.StatusLearning, models.StatusReview, models.StatusRelearning, models.StatusMastered} {
		if count := stats.StatusCounts[status]; count > 0 {
			b.WriteString(fmt.Sprintf("%s: %d\n", status, count))
		}
	}

	h.sendMessage(chatID, b.String())
}

func (h *TelegramHandler) handleSettings(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	user, err := h.service.GetUser(ctx, userID)
	if err != nil {
		zap.S().Error("get user", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, "Register first with /start")
		return
	}

	text := fmt.Sprintf("⚙️ <b>Settings</b>\n\n"+
		"Algorithm: %s\n"+
		"New words per day: %d\n"+
		"Reviews per day: %d\n"+
		"Daily target: %d\n"+
		"Reminder hour: %02d:00\n\n"+
		"/set_daily <code>new review target</code>\n"+
		"/algorithm <code>sm2|fsrs</code>\n"+
		"/reminder <code>hour</code>",
		user.Algorithm, user.DailyNewWords, user.DailyReviewWords, user.DailyTarget, user.ReminderHour)
	h.sendMessage(chatID, text)
}

func (h *TelegramHandler) handleSetDaily(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) != 4 {
		h.sendMessage(chatID, "Usage: /set_daily <new> <review> <target>\n\nFor example: /set_daily 10 20 30")
		return
	}

	values := make([]int, 3)
	for i, part := range parts[1:] {
		v, err := strconv.Atoi(part)
		if err != nil {
			h.sendMessage(chatID, "All three values must be numbers.")
			return
		}
		values[i] = v
	}

	settings := models.StudySettings{DailyNewWords: values[0], DailyReviewWords: values[1], DailyTarget: values[2]}
	if err := h.service.UpdateStudySettings(ctx, userID, settings); err != nil {
		zap.S().Error("update study settings", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, "Could not save settings. Check the values and try again.")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Daily limits set: %d new, %d reviews, %d total.", values[0], values[1], values[2]))
}

func (h *TelegramHandler) handleAlgorithm(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) != 2 {
		h.sendMessage(chatID, "Usage: /algorithm sm2 or /algorithm fsrs\n\nApplies to words you start learning from now on.")
		return
	}

	if err := h.service.UpdateAlgorithm(ctx, userID, parts[1]); err != nil {
		if errors.Is(err, srs.ErrUnknownAlgorithm) {
			h.sendMessage(chatID, "Unknown algorithm. Available: sm2, fsrs")
			return
		}
		zap.S().Error("update algorithm", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, "Could not save the setting. Try again later.")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Scheduling algorithm set to %s.", parts[1]))
}

func (h *TelegramHandler) handleReminder(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) != 2 {
		h.sendMessage(chatID, "Usage: /reminder <hour>\n\nFor example: /reminder 9 for a daily nudge at 09:00 UTC.")
		return
	}

	hour, err := strconv.Atoi(parts[1])
	if err != nil || hour < 0 || hour > 23 {
		h.sendMessage(chatID, "The hour must be a number from 0 to 23.")
		return
	}

	if err := h.service.UpdateReminderHour(ctx, userID, hour); err != nil {
		zap.S().Error("update reminder hour", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, "Could not save the setting. Try again later.")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Daily reminder set for %02d:00 UTC.", hour))
}

func (h *TelegramHandler) handleHelp(update tgbotapi.Update) {
	text := "Commands:\n\n" +
		"/study — start or continue today's session\n" +
		"/stats — progress and card counts\n" +
		"/settings — current preferences\n" +
		"/set_daily — daily word limits\n" +
		"/algorithm — sm2 or fsrs scheduling\n" +
		"/reminder — daily reminder hour"
	h.sendMessage(update.Message.Chat.ID, text)
}

// SendReminder implements the reminder scheduler's notifier.
func (h *TelegramHandler) SendReminder(userID int64, dueCount int) error {
	word := "words"
	if dueCount == 1 {
		word = "word"
	}
	msg := tgbotapi.NewMessage(userID, fmt.Sprintf("🔔 You have %d %s due for review today.\nUse /study to start.", dueCount, word))
	if _, err := h.api.Send(msg); err != nil {
		return fmt.Errorf("send reminder (telegram_id: %d): %w", userID, err)
	}
	return nil
}

func (h *TelegramHandler) requireUser(ctx context.Context, userID, chatID int64) bool {
	exists, err := h.service.UserExists(ctx, userID)
	if err != nil {
		zap.S().Error("check user exists", zap.Error(err), zap.Int64("telegram_id", userID))
		h.sendMessage(chatID, "Something went wrong. Try again later.")
		return false
	}
	if !exists {
		h.sendMessage(chatID, "Register first with /start")
		return false
	}
	return true
}

func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}

func (h *TelegramHandler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.api.Send(msg); err != nil {
		zap.S().Error("send message", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (h *TelegramHandler) sendMessageWithKeyboard(chatID int64, text string, keyboard interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := h.api.Send(msg); err != nil {
		zap.S().Error("send message with keyboard", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}
