package services

import (
	"testing"
	"time"

	"dietica/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchedules = Schedules{
	Todo:             "0 23 * * *",
	FoodReminder:     "0 8 * * *",
	ExerciseReminder: "0 17 * * *",
	WaterReminder:    "0 12 * * *",
}

func TestNewSchedulerRegistersJobs(t *testing.T) {
	plus7 := time.FixedZone("UTC+7", 7*60*60)
	s, err := NewScheduler(&BatchJobs{}, plus7, testSchedules, logger.Discard())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	entries := s.Entries()
	require.Len(t, entries, 4)
	for _, e := range entries {
		next := e.Next.In(plus7)
		assert.Zero(t, next.Minute())
		assert.Contains(t, []int{8, 12, 17, 23}, next.Hour())
	}
}

func TestNewSchedulerValidates(t *testing.T) {
	_, err := NewScheduler(&BatchJobs{}, nil, testSchedules, logger.Discard())
	assert.Error(t, err)

	bad := testSchedules
	bad.WaterReminder = "every noon"
	_, err = NewScheduler(&BatchJobs{}, time.UTC, bad, logger.Discard())
	assert.ErrorContains(t, err, "water-reminder")
}
