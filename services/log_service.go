package services

import (
	"context"
	"strings"
	"time"

	"dietica/models"
	"dietica/utils"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	clockSkew       = 5 * time.Minute
)

type FoodInput struct {
	Name           string     `json:"name" binding:"required"`
	LoggedAt       *time.Time `json:"logged_at"` // defaults to now
	Amount         float64    `json:"amount" binding:"gte=0"`
	ServingType    string     `json:"serving_type"`
	Calories       *float64   `json:"calories" binding:"omitempty,gte=0"`
	Fat            *float64   `json:"fat" binding:"omitempty,gte=0"`
	SaturatedFat   *float64   `json:"saturated_fat" binding:"omitempty,gte=0"`
	UnsaturatedFat *float64   `json:"unsaturated_fat" binding:"omitempty,gte=0"`
	TransFat       *float64   `json:"trans_fat" binding:"omitempty,gte=0"`
	Cholesterol    *float64   `json:"cholesterol" binding:"omitempty,gte=0"`
	Sodium         *float64   `json:"sodium" binding:"omitempty,gte=0"`
	Carbs          *float64   `json:"carbs" binding:"omitempty,gte=0"`
	Protein        *float64   `json:"protein" binding:"omitempty,gte=0"`
	Sugar          *float64   `json:"sugar" binding:"omitempty,gte=0"`
	Fiber          *float64   `json:"fiber" binding:"omitempty,gte=0"`
}

type WaterInput struct {
	AmountML float64    `json:"amount_ml" binding:"required,gt=0"`
	LoggedAt *time.Time `json:"logged_at"`
}

type ExerciseInput struct {
	Name            string     `json:"name" binding:"required"`
	DurationMinutes float64    `json:"duration_minutes"`
	LoggedAt        *time.Time `json:"logged_at"`
}

type FoodLogView struct {
	models.FoodLog
	Findings []utils.Warning `json:"findings"`
}

type Page struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func (p Page) normalize() (offset, limit int) {
	limit = p.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit, limit
}

// LogService owns the user's food, water and exercise records.
type LogService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLogService(db *gorm.DB) *LogService {
	return &LogService{db: db, now: time.Now}
}

// loggedAt resolves the client's timestamp for a new entry. Back-dating is
// allowed for entries logged late; future timestamps are not. Entries keep
// this time for life.
func (s *LogService) loggedAt(t *time.Time) (time.Time, error) {
	now := s.now().UTC()
	if t == nil || t.IsZero() {
		return now, nil
	}
	if t.After(now.Add(clockSkew)) {
		return time.Time{}, invalidf("logged_at must not be in the future")
	}
	return t.UTC(), nil
}

func (in FoodInput) apply(f *models.FoodLog) {
	f.Name = strings.TrimSpace(in.Name)
	f.Amount = in.Amount
	f.ServingType = in.ServingType
	f.Calories = in.Calories
	f.Fat = in.Fat
	f.SaturatedFat = in.SaturatedFat
	f.UnsaturatedFat = in.UnsaturatedFat
	f.TransFat = in.TransFat
	f.Cholesterol = in.Cholesterol
	f.Sodium = in.Sodium
	f.Carbs = in.Carbs
	f.Protein = in.Protein
	f.Sugar = in.Sugar
	f.Fiber = in.Fiber
}

func (s *LogService) assess(ctx context.Context, userID uint, f *models.FoodLog) []utils.Warning {
	var p models.UserProfile
	actx := utils.AssessmentContext{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err == nil {
		actx.AgeYears = utils.AgeOn(p.Birthdate, s.now())
	}
	ws := utils.AssessFoodLog(f, actx)
	f.Warnings = utils.WarningMessages(ws)
	return ws
}

func (s *LogService) CreateFood(ctx context.Context, userID uint, in FoodInput) (*FoodLogView, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalidf("food name is required")
	}
	at, err := s.loggedAt(in.LoggedAt)
	if err != nil {
		return nil, err
	}
	f := models.FoodLog{UserID: userID, LoggedAt: at}
	in.apply(&f)
	ws := s.assess(ctx, userID, &f)
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		return nil, dbErr("create food log", err)
	}
	return &FoodLogView{FoodLog: f, Findings: ws}, nil
}

func (s *LogService) GetFood(ctx context.Context, userID, id uint) (*models.FoodLog, error) {
	var f models.FoodLog
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&f).Error; err != nil {
		return nil, dbErr("get food log", err)
	}
	return &f, nil
}

// ListFood pages through food logs, newest first.
func (s *LogService) ListFood(ctx context.Context, userID uint, p Page) ([]models.FoodLog, error) {
	offset, limit := p.normalize()
	var out []models.FoodLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("logged_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, dbErr("list food logs", err)
	}
	return out, nil
}

func (s *LogService) UpdateFood(ctx context.Context, userID, id uint, in FoodInput) (*FoodLogView, error) {
	f, err := s.GetFood(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	// LoggedAt is fixed at creation; only the contents change.
	in.apply(f)
	ws := s.assess(ctx, userID, f)
	if err := s.db.WithContext(ctx).Save(f).Error; err != nil {
		return nil, dbErr("update food log", err)
	}
	return &FoodLogView{FoodLog: *f, Findings: ws}, nil
}

func (s *LogService) DeleteFood(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.FoodLog{})
	if res.Error != nil {
		return dbErr("delete food log", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *LogService) CreateWater(ctx context.Context, userID uint, in WaterInput) (*models.WaterLog, error) {
	if in.AmountML <= 0 {
		return nil, invalidf("amount_ml must be positive")
	}
	at, err := s.loggedAt(in.LoggedAt)
	if err != nil {
		return nil, err
	}
	w := models.WaterLog{UserID: userID, AmountML: in.AmountML, LoggedAt: at}
	if err := s.db.WithContext(ctx).Create(&w).Error; err != nil {
		return nil, dbErr("create water log", err)
	}
	return &w, nil
}

// ListWater returns the trailing week of water logs, newest first.
func (s *LogService) ListWater(ctx context.Context, userID uint) ([]models.WaterLog, error) {
	w := TrailingWindow(s.now(), WindowDays)
	var out []models.WaterLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND logged_at > ? AND logged_at <= ?", userID, w.Start.UTC(), w.End.UTC()).
		Order("logged_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, dbErr("list water logs", err)
	}
	return out, nil
}

func (s *LogService) CreateExercise(ctx context.Context, userID uint, in ExerciseInput) (*models.ExerciseLog, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalidf("exercise name is required")
	}
	if in.DurationMinutes <= 0 {
		return nil, invalidf("duration must be a positive number")
	}
	at, err := s.loggedAt(in.LoggedAt)
	if err != nil {
		return nil, err
	}
	e := models.ExerciseLog{
		UserID:          userID,
		Name:            strings.TrimSpace(in.Name),
		DurationMinutes: in.DurationMinutes,
		LoggedAt:        at,
	}
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, dbErr("create exercise log", err)
	}
	return &e, nil
}

func (s *LogService) ListExercise(ctx context.Context, userID uint, p Page) ([]models.ExerciseLog, error) {
	offset, limit := p.normalize()
	var out []models.ExerciseLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("logged_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, dbErr("list exercise logs", err)
	}
	return out, nil
}
