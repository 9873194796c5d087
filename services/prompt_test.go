package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"dietica/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFacts(t *testing.T) PromptFacts {
	t.Helper()
	agg, err := NewAggregator(time.UTC)
	require.NoError(t, err)

	day := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	return PromptFacts{
		Name:    "Ayu Lestari",
		Profile: &models.UserProfile{Weight: 70, Height: 175, Gender: "female", ActivityLevel: "moderate"},
		Target:  &models.UserTarget{TargetWeight: 65, DurationWeeks: 10},
		Food: agg.Aggregate(FoodEntries([]models.FoodLog{
			{LoggedAt: day, Name: "oats", Calories: ptr(350.5), Fat: ptr(6), Sodium: ptr(120)},
			{LoggedAt: day.Add(4 * time.Hour), Name: "rice", Calories: ptr(249.5), Fat: ptr(14)},
		})),
	}
}

func TestCompileRecommendationPromptRendersFacts(t *testing.T) {
	f := sampleFacts(t)

	got, err := CompileRecommendationPrompt(f)
	require.NoError(t, err)

	for _, line := range []string{
		"Name: Ayu Lestari",
		"Weight: 70kg",
		"Height: 175cm",
		"BMI: 22.86 (Normal weight)",
		"Gender: female",
		"Medicine: none",
		"Activity levels: moderate",
		"Target Weight: 65kg\nDuration: 10 weeks",
		"Date: 2024-03-10\nCalories: 600kcal; Fat: 20g; Saturated Fat: 0g;",
		"Sodium: 120mg;",
	} {
		assert.Contains(t, got, line)
	}
	assert.Contains(t, got, NoWaterLogsPlaceholder)
	assert.Contains(t, got, NoExerciseLogsPlaceholder)
}

func TestCompileRecommendationPromptIsDeterministic(t *testing.T) {
	f := sampleFacts(t)

	a, err := CompileRecommendationPrompt(f)
	require.NoError(t, err)
	b, err := CompileRecommendationPrompt(f)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompileRecommendationPromptRendersWaterAndExercise(t *testing.T) {
	agg, err := NewAggregator(time.UTC)
	require.NoError(t, err)
	day := time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC)

	f := sampleFacts(t)
	f.Water = agg.Aggregate(WaterEntries([]models.WaterLog{
		{LoggedAt: day, AmountML: 250},
		{LoggedAt: day.Add(time.Hour), AmountML: 500},
	}))
	f.Exercise = agg.Aggregate(ExerciseEntries([]models.ExerciseLog{
		{LoggedAt: day, Name: "Cardio", DurationMinutes: 30},
		{LoggedAt: day.Add(2 * time.Hour), Name: "Yoga", DurationMinutes: 15},
	}))

	got, err := CompileRecommendationPrompt(f)
	require.NoError(t, err)
	assert.Contains(t, got, "Date: 2024-03-11\nWater: 750ml")
	assert.Contains(t, got, "Date: 2024-03-11\nExercise: 45 minutes (Cardio, Yoga)")
	assert.NotContains(t, got, NoWaterLogsPlaceholder)
	assert.NotContains(t, got, NoExerciseLogsPlaceholder)
}

func TestCompilePromptPreconditions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PromptFacts)
		fact   string
	}{
		{"no profile", func(f *PromptFacts) { f.Profile = nil }, "profile"},
		{"no target", func(f *PromptFacts) { f.Target = nil }, "target"},
		{"no food logs", func(f *PromptFacts) { f.Food = nil }, "foodLogs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := sampleFacts(t)
			tt.mutate(&f)

			for _, compile := range []func(PromptFacts) (string, error){CompileRecommendationPrompt, CompileChatInstruction} {
				out, err := compile(f)
				require.Error(t, err)
				assert.Empty(t, out)
				assert.True(t, errors.Is(err, ErrPreconditionMissing))

				var pe *PreconditionError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, tt.fact, pe.Fact)
			}
		})
	}
}

func TestCompileChatInstructionSharesFacts(t *testing.T) {
	f := sampleFacts(t)

	prompt, err := CompileRecommendationPrompt(f)
	require.NoError(t, err)
	chat, err := CompileChatInstruction(f)
	require.NoError(t, err)

	body, err := f.sections()
	require.NoError(t, err)
	assert.True(t, strings.Contains(prompt, body))
	assert.True(t, strings.Contains(chat, body))
	assert.True(t, strings.HasPrefix(chat, "You are a diet and exercise advisor"))
}

func TestBMIUnknownForImplausibleProfile(t *testing.T) {
	f := sampleFacts(t)
	f.Profile.Height = 0

	got, err := CompileRecommendationPrompt(f)
	require.NoError(t, err)
	assert.Contains(t, got, "BMI: unknown")
}
