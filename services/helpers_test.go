package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dietica/config"
	"dietica/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "dietica.db")), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(config.AllModels()...))
	return db
}

func ptr(v float64) *float64 { return &v }

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FirstName: "Ayu", LastName: "Lestari"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProfileAndTarget(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.UserProfile{
		UserID: userID, Weight: 70, Height: 175, Gender: "female", ActivityLevel: "moderate",
	}).Error)
	require.NoError(t, db.Create(&models.UserTarget{
		UserID: userID, CurrentWeight: 70, TargetWeight: 65, DurationWeeks: 10,
	}).Error)
}

const validReply = `{
  "food": {"title": "Balance your plate", "description": "Today Target Calories: 1800 kcal"},
  "exercise": {"title": "Keep moving", "description": "This Week Target Cardio: 2 more sessions"},
  "water": {"title": "Hydrate", "description": "Drink another 5 glasses of water today"}
}`

// fakeGenerator replies with a fixed text and records every request.
type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []GenerateRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	return g.reply, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.reqs)
}
