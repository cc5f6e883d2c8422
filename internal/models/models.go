package models

import "time"

// Algorithm identifies which scheduler produced a card's state.
type Algorithm string

const (
	AlgorithmSM2  Algorithm = "sm2"
	AlgorithmFSRS Algorithm = "fsrs"
)

// CardStatus is always derived from the rest of the card, never set directly.
type CardStatus string

const (
	StatusNew        CardStatus = "new"
	StatusLearning   CardStatus = "learning"
	StatusReview     CardStatus = "review"
	StatusRelearning CardStatus = "relearning"
	StatusMastered   CardStatus = "mastered"
)

type User struct {
	TelegramID       int64     `db:"telegram_id"`
	Username         string    `db:"username"`
	Algorithm        Algorithm `db:"algorithm"`
	DailyNewWords    int       `db:"daily_new_words"`
	DailyReviewWords int       `db:"daily_review_words"`
	DailyTarget      int       `db:"daily_target"`
	ReminderHour     int       `db:"reminder_hour"`
	Timezone         string    `db:"timezone"`
	CreatedAt        time.Time `db:"created_at"`
}

// StudySettings is the slice of user preferences the plan generator reads.
type StudySettings struct {
	DailyNewWords    int
	DailyReviewWords int
	DailyTarget      int
}

const (
	DefaultDailyNewWords    = 10
	DefaultDailyReviewWords = 20
	DefaultDailyTarget      = 30
)

func (u *User) Settings() StudySettings {
	return StudySettings{
		DailyNewWords:    u.DailyNewWords,
		DailyReviewWords: u.DailyReviewWords,
		DailyTarget:      u.DailyTarget,
	}
}

type Wordbook struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

type Word struct {
	ID          string    `db:"id"`
	WordbookID  string    `db:"wordbook_id"`
	Text        string    `db:"text"`
	Phonetic    string    `db:"phonetic"`
	Translation string    `db:"translation"`
	Example     string    `db:"example"`
	CreatedAt   time.Time `db:"created_at"`
}

// MemoryCard is the per-learner, per-word scheduling state. SM-2 cards use
// Repetitions/EasinessFactor, FSRS cards use Difficulty/Stability/
// Retrievability; Repetitions counts consecutive successes for SM-2 and
// total reviews for FSRS.
type MemoryCard struct {
	UserID         int64      `db:"user_id"`
	WordID         string     `db:"word_id"`
	WordbookID     string     `db:"wordbook_id"`
	Algorithm      Algorithm  `db:"algorithm"`
	Status         CardStatus `db:"status"`
	Repetitions    int        `db:"repetitions"`
	EasinessFactor float64    `db:"easiness_factor"`
	Difficulty     float64    `db:"difficulty"`
	Stability      float64    `db:"stability"`
	Retrievability float64    `db:"retrievability"`
	IntervalDays   int        `db:"interval_days"`
	Lapses         int        `db:"lapses"`
	NextReview     time.Time  `db:"next_review"`
	LastReview     *time.Time `db:"last_review"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// RosterItem pairs a word with the learner's card for it.
// Card is nil when the learner has never reviewed the word.
type RosterItem struct {
	WordID string
	Card   *MemoryCard
}

// PlanStats is the running answer tally of a daily plan.
type PlanStats struct {
	KnownCount   int     `json:"known_count"`
	UnknownCount int     `json:"unknown_count"`
	StudyTimeSec int64   `json:"study_time_sec"`
	Accuracy     float64 `json:"accuracy"`
}

// DailyPlan is the bounded work queue for one learner, wordbook and date.
// PlannedWords is consumption order; counts are frozen at creation.
type DailyPlan struct {
	ID             int64      `db:"id"`
	UserID         int64      `db:"user_id"`
	WordbookID     string     `db:"wordbook_id"`
	PlanDate       time.Time  `db:"plan_date"`
	PlannedWords   WordIDList `db:"planned_words"`
	CompletedWords WordIDList `db:"completed_words"`
	TotalCount     int        `db:"total_count"`
	NewCount       int        `db:"new_count"`
	ReviewCount    int        `db:"review_count"`
	CurrentIndex   int        `db:"current_index"`
	Stats          PlanStats  `db:"stats"`
	IsCompleted    bool       `db:"is_completed"`
	CompletedAt    *time.Time `db:"completed_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// CompletedCount reports how many distinct planned words were answered.
func (p *DailyPlan) CompletedCount() int {
	return len(p.CompletedWords)
}

// HasCompleted reports whether the word was already answered in this plan.
func (p *DailyPlan) HasCompleted(wordID string) bool {
	for _, id := range p.CompletedWords {
		if id == wordID {
			return true
		}
	}
	return false
}

// CurrentWordID returns the next word to present, or "" when the plan
// is empty or exhausted.
func (p *DailyPlan) CurrentWordID() string {
	if p.CurrentIndex < 0 || p.CurrentIndex >= len(p.PlannedWords) {
		return ""
	}
	return p.PlannedWords[p.CurrentIndex]
}
