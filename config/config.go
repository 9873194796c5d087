package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"dietica/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Settings struct {
	Port string

	DBHost, DBUser, DBPassword, DBName, DBPort, DBSSLMode string

	JWTSecret      string
	GoogleClientID string

	// Location is the calendar zone used for day bucketing and cron schedules.
	Location *time.Location

	GeminiAPIKey string
	GeminiModel  string

	TodoConcurrency   int
	NotifyConcurrency int
	DispatchTimeout   time.Duration
	TodoBatchLimit    int
	ActiveWindow      time.Duration
	TodoMaxAge        time.Duration

	TodoSchedule             string
	FoodReminderSchedule     string
	ExerciseReminderSchedule string
	WaterReminderSchedule    string

	AWSRegion     string
	S3Bucket      string
	CloudFrontURL string
	SNSFCMArn     string
	SESSender     string

	FatSecretClientID     string
	FatSecretClientSecret string

	LogLevel string
	LogFile  string

	// DevRoutes mounts the manual push and batch-job triggers under /dev.
	DevRoutes bool
}

// Load reads .env (when present) and the process environment. Every problem is
// reported at once.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds Settings from a lookup function.
func FromEnv(getenv func(string) string) (*Settings, error) {
	p := &parser{getenv: getenv}

	s := &Settings{
		Port:       p.str("PORT", "8080"),
		DBHost:     p.str("DB_HOST", "localhost"),
		DBUser:     p.str("DB_USER", "postgres"),
		DBPassword: p.str("DB_PASSWORD", ""),
		DBName:     p.str("DB_NAME", "dietica"),
		DBPort:     p.str("DB_PORT", "5432"),
		DBSSLMode:  p.str("DB_SSLMODE", "disable"),

		JWTSecret:      p.required("JWT_SECRET"),
		GoogleClientID: p.str("GOOGLE_CLIENT_ID", ""),

		GeminiAPIKey: p.str("GEMINI_API_KEY", ""),
		GeminiModel:  p.str("GEMINI_MODEL", "gemini-1.5-flash"),

		TodoConcurrency:   p.positiveInt("TODO_CONCURRENCY", 3),
		NotifyConcurrency: p.positiveInt("NOTIFY_CONCURRENCY", 10),
		DispatchTimeout:   p.duration("DISPATCH_TIMEOUT", 60*time.Second),
		TodoBatchLimit:    p.positiveInt("TODO_BATCH_LIMIT", 10),
		ActiveWindow:      p.duration("ACTIVE_WINDOW", 72*time.Hour),
		TodoMaxAge:        p.duration("TODO_MAX_AGE", 24*time.Hour),

		TodoSchedule:             p.str("TODO_SCHEDULE", "0 23 * * *"),
		FoodReminderSchedule:     p.str("FOOD_REMINDER_SCHEDULE", "0 23 * * *"),
		ExerciseReminderSchedule: p.str("EXERCISE_REMINDER_SCHEDULE", "0 5 * * *"),
		WaterReminderSchedule:    p.str("WATER_REMINDER_SCHEDULE", "0 12 * * *"),

		AWSRegion:     p.str("AWS_REGION", "ap-south-1"),
		S3Bucket:      p.str("S3_BUCKET", ""),
		CloudFrontURL: p.str("CLOUDFRONT_URL", ""),
		SNSFCMArn:     p.str("SNS_FCM_ARN", ""),
		SESSender:     p.str("SES_EMAIL", ""),

		FatSecretClientID:     p.str("FATSECRET_CLIENT_ID", ""),
		FatSecretClientSecret: p.str("FATSECRET_CLIENT_SECRET", ""),

		LogLevel: p.str("LOG_LEVEL", "info"),
		LogFile:  p.str("LOG_FILE", ""),

		DevRoutes: p.boolean("DEV_ROUTES", false),
	}

	// No fallback to the host zone: bucket boundaries must not depend on where
	// the process happens to run.
	if tz := p.required("APP_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("APP_TIMEZONE: %w", err))
		}
		s.Location = loc
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		s.DBHost, s.DBUser, s.DBPassword, s.DBName, s.DBPort, s.DBSSLMode)
}

// AllModels lists every table the service owns, in migration order.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.UserProfile{},
		&models.UserTarget{},
		&models.FoodLog{},
		&models.WaterLog{},
		&models.ExerciseLog{},
		&models.Recommendation{},
		&models.ChatLog{},
		&models.Notification{},
		&models.UserDevice{},
		&models.OtpCode{},
		&models.FatSecretToken{},
	}
}

func InitDB(s *Settings) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(s.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return db, nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) required(key string) string {
	v := p.getenv(key)
	if v == "" {
		p.errs = append(p.errs, fmt.Errorf("%s is required", key))
	}
	return v
}

func (p *parser) positiveInt(key string, def int) int {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		p.errs = append(p.errs, fmt.Errorf("%s must be a positive integer, got %q", key, v))
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.errs = append(p.errs, fmt.Errorf("%s must be a duration, got %q", key, v))
		return def
	}
	return d
}
