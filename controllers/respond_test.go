package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"dietica/config"
	"dietica/logger"
	"dietica/models"
	"dietica/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.PreconditionMissing("foodLogs", ""), http.StatusPreconditionFailed},
		{fmt.Errorf("build: %w", services.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("get profile: %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrUnauthorized, http.StatusUnauthorized},
		{services.ErrTooManyAttempts, http.StatusTooManyRequests},
		{services.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: missing water", services.ErrGenerationFormat), http.StatusBadGateway},
		{&services.TransportError{Op: "gemini", Err: errors.New("refused")}, http.StatusServiceUnavailable},
		{&services.TransportError{Op: "gemini", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, services.GenerateRequest) (string, error) {
	return `{"food":{"title":"a","description":"b"},"exercise":{"title":"c","description":"d"},"water":{"title":"e","description":"f"}}`, nil
}

func newTodoRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(config.AllModels()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	agg, err := services.NewAggregator(time.UTC)
	require.NoError(t, err)
	store := services.NewGormStore(db)
	rec := services.NewRecommendationService(stubGenerator{}, store, logger.Discard())
	todo := services.NewTodoService(store, agg, rec, nil, 24*time.Hour, logger.Discard())
	h := NewTodoController(todo)

	r := gin.New()
	withUser := func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			var uid uint
			_, _ = fmt.Sscan(id, &uid)
			c.Set("userID", uid)
		}
	}
	r.GET("/todo", withUser, h.Current)
	r.POST("/todo/generate", withUser, h.Generate)
	return r, db
}

func TestTodoCurrentMissingProfile(t *testing.T) {
	r, db := newTodoRouter(t)
	u := &models.User{Email: "a@example.com"}
	require.NoError(t, db.Create(u).Error)

	req := httptest.NewRequest(http.MethodGet, "/todo", nil)
	req.Header.Set("X-Test-User", fmt.Sprint(u.ID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "profile", body["fact"])
}

func TestTodoGenerate(t *testing.T) {
	r, db := newTodoRouter(t)
	u := &models.User{Email: "a@example.com"}
	require.NoError(t, db.Create(u).Error)
	require.NoError(t, db.Create(&models.UserProfile{UserID: u.ID, Weight: 60, Height: 165}).Error)
	require.NoError(t, db.Create(&models.UserTarget{UserID: u.ID, TargetWeight: 58, DurationWeeks: 8}).Error)
	kcal := 500.0
	require.NoError(t, db.Create(&models.FoodLog{UserID: u.ID, Name: "rice", Calories: &kcal, LoggedAt: time.Now().UTC().Add(-time.Hour)}).Error)

	req := httptest.NewRequest(http.MethodPost, "/todo/generate", nil)
	req.Header.Set("X-Test-User", fmt.Sprint(u.ID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec models.Recommendation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "a", rec.FoodTitle)
	assert.Equal(t, "f", rec.WaterDescription)
}

func TestTodoRequiresUser(t *testing.T) {
	r, _ := newTodoRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/todo", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
