package srs

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syh52/lexicon-srs/internal/models"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		raw     string
		want    Outcome
		wantErr bool
	}{
		{raw: "know", want: OutcomeKnow},
		{raw: "hint", want: OutcomeHint},
		{raw: "unknown", want: OutcomeUnknown},
		{raw: "Know", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "again", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseOutcome(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownOutcome)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQualityForOutcome(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    Quality
	}{
		{OutcomeKnow, 5},
		{OutcomeHint, 3},
		{OutcomeUnknown, 1},
	}

	for _, tt := range tests {
		got, err := QualityForOutcome(tt.outcome)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := QualityForOutcome(Outcome("maybe"))
	assert.ErrorIs(t, err, ErrUnknownOutcome)
}

func TestRatingForOutcome(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    Rating
	}{
		{OutcomeKnow, RatingGood},
		{OutcomeHint, RatingHard},
		{OutcomeUnknown, RatingAgain},
	}

	for _, tt := range tests {
		got, err := RatingForOutcome(tt.outcome)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := RatingForOutcome(Outcome("maybe"))
	assert.ErrorIs(t, err, ErrUnknownOutcome)
}

func TestDispatcher(t *testing.T) {
	sm2 := NewSM2Scheduler()
	fsrs := NewFSRSScheduler(DefaultFSRSParams(), rand.New(rand.NewSource(1)))
	d := NewDispatcher(sm2, fsrs)

	got, err := d.ForAlgorithm(models.AlgorithmSM2)
	require.NoError(t, err)
	assert.Same(t, sm2, got)

	got, err = d.ForAlgorithm(models.AlgorithmFSRS)
	require.NoError(t, err)
	assert.Same(t, fsrs, got)

	_, err = d.ForAlgorithm(models.Algorithm("leitner"))
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestDispatcherNewCard(t *testing.T) {
	d := NewDispatcher(NewSM2Scheduler(), NewFSRSScheduler(DefaultFSRSParams(), rand.New(rand.NewSource(1))))
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	card, err := d.NewCard(models.AlgorithmSM2, 42, "starter", "starter-0001", now)
	require.NoError(t, err)
	assert.Equal(t, models.AlgorithmSM2, card.Algorithm)
	assert.Equal(t, DefaultEasinessFactor, card.EasinessFactor)

	card, err = d.NewCard(models.AlgorithmFSRS, 42, "starter", "starter-0001", now)
	require.NoError(t, err)
	assert.Equal(t, models.AlgorithmFSRS, card.Algorithm)
	assert.Greater(t, card.Stability, 0.0)

	_, err = d.NewCard(models.Algorithm("leitner"), 42, "starter", "starter-0001", now)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}
