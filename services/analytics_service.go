package services

import (
	"context"
	"errors"
	"time"

	"dietica/models"
	"dietica/utils"

	"gorm.io/gorm"
)

// AnalyticsService serves the home screen and weekly report. Both are computed
// in the caller's zone, which may differ from the server's configured zone.
type AnalyticsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db, now: time.Now}
}

type TodaySummary struct {
	Date             string  `json:"date"`
	Entries          int     `json:"entries"`
	TotalCalories    float64 `json:"total_calories"`
	TotalCarbs       float64 `json:"total_carbs"`
	TotalProtein     float64 `json:"total_protein"`
	TotalFat         float64 `json:"total_fat"`
	TotalSugar       float64 `json:"total_sugar"`
	TotalSodium      float64 `json:"total_sodium"`
	TotalCholesterol float64 `json:"total_cholesterol"`
	TotalFiber       float64 `json:"total_fiber"`
}

type DayMinutes struct {
	Date    string  `json:"date"`
	Minutes float64 `json:"minutes"`
}

type WeeklyReport struct {
	BMI                  *utils.BMIReading `json:"bmi"`
	AverageWaterML       float64           `json:"average_water_ml"`
	AverageDailyCalories float64           `json:"average_daily_calories"`
	DailyExerciseMinutes []DayMinutes      `json:"daily_exercise_minutes"`
}

func (s *AnalyticsService) foodBetween(ctx context.Context, userID uint, from, to time.Time) ([]models.FoodLog, error) {
	var rows []models.FoodLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND logged_at >= ? AND logged_at < ?", userID, from.UTC(), to.UTC()).
		Order("logged_at ASC").
		Find(&rows).Error
	return rows, dbErr("query food logs", err)
}

// Today sums the food logged since midnight in loc.
func (s *AnalyticsService) Today(ctx context.Context, userID uint, loc *time.Location) (*TodaySummary, error) {
	agg, err := NewAggregator(loc)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	start := agg.DayStart(s.now())
	rows, err := s.foodBetween(ctx, userID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	out := &TodaySummary{Date: start.Format(time.DateOnly)}
	for _, d := range agg.Aggregate(FoodEntries(rows)) {
		m := d.Totals
		out.Entries += d.Entries
		out.TotalCalories += m.Calories
		out.TotalCarbs += m.Carbs
		out.TotalProtein += m.Protein
		out.TotalFat += m.Fat
		out.TotalSugar += m.Sugar
		out.TotalSodium += m.Sodium
		out.TotalCholesterol += m.Cholesterol
		out.TotalFiber += m.Fiber
	}
	return out, nil
}

// Report covers the seven calendar days ending today in loc.
func (s *AnalyticsService) Report(ctx context.Context, userID uint, loc *time.Location) (*WeeklyReport, error) {
	agg, err := NewAggregator(loc)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	today := agg.DayStart(s.now())
	from := today.AddDate(0, 0, -(WindowDays - 1))
	to := today.AddDate(0, 0, 1)
	db := s.db.WithContext(ctx)

	out := &WeeklyReport{DailyExerciseMinutes: make([]DayMinutes, WindowDays)}

	var p models.UserProfile
	switch err := db.Where("user_id = ?", userID).First(&p).Error; {
	case err == nil:
		if bmi, err := utils.ReadBMI(p.Height, p.Weight); err == nil {
			out.BMI = &bmi
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, dbErr("get profile", err)
	}

	var water []models.WaterLog
	if err := db.Where("user_id = ? AND logged_at >= ? AND logged_at < ?", userID, from.UTC(), to.UTC()).Find(&water).Error; err != nil {
		return nil, dbErr("query water logs", err)
	}
	if len(water) > 0 {
		var total float64
		for _, w := range water {
			total += w.AmountML
		}
		out.AverageWaterML = round2(total / float64(len(water)))
	}

	food, err := s.foodBetween(ctx, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	if days := agg.Aggregate(FoodEntries(food)); len(days) > 0 {
		var total float64
		for _, d := range days {
			total += d.Totals.Calories
		}
		out.AverageDailyCalories = round2(total / float64(len(days)))
	}

	var exercise []models.ExerciseLog
	if err := db.Where("user_id = ? AND logged_at >= ? AND logged_at < ?", userID, from.UTC(), to.UTC()).Find(&exercise).Error; err != nil {
		return nil, dbErr("query exercise logs", err)
	}
	byDay := map[string]float64{}
	for _, d := range agg.Aggregate(ExerciseEntries(exercise)) {
		byDay[d.Date.Format(time.DateOnly)] = d.Totals.ExerciseMinutes
	}
	for i := range out.DailyExerciseMinutes {
		key := from.AddDate(0, 0, i).Format(time.DateOnly)
		out.DailyExerciseMinutes[i] = DayMinutes{Date: key, Minutes: byDay[key]}
	}
	return out, nil
}
