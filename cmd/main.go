package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dietica/config"
	"dietica/controllers"
	"dietica/logger"
	"dietica/routes"
	"dietica/services"
	"dietica/utils"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/charmbracelet/log"
	"google.golang.org/api/idtoken"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", "err", err)
	}
	lg, err := logger.New(logger.Config{Level: settings.LogLevel, File: settings.LogFile})
	if err != nil {
		log.Fatal("logger", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(settings)
	if err != nil {
		lg.Fatal("database", "err", err)
	}
	awsCfg, err := utils.LoadAWSConfig(ctx, settings.AWSRegion)
	if err != nil {
		lg.Fatal("aws", "err", err)
	}

	// pipeline
	store := services.NewGormStore(db)
	agg, err := services.NewAggregator(settings.Location)
	if err != nil {
		lg.Fatal("aggregator", "err", err)
	}
	gemini := services.NewGeminiClient(settings.GeminiAPIKey, settings.GeminiModel)
	recSvc := services.NewRecommendationService(gemini, store, lg.WithPrefix("recommendation"))

	hub := services.NewRealtimeHub()
	notes := services.NewNotificationService(db, hub, lg)
	push := services.NewPushService(db, sns.NewFromConfig(awsCfg), settings.SNSFCMArn, lg.WithPrefix("push"))
	todo := services.NewTodoService(store, agg, recSvc, notes, settings.TodoMaxAge, lg.WithPrefix("todo"))

	todoPool, err := services.NewDispatcher(settings.TodoConcurrency, settings.DispatchTimeout, lg.WithPrefix("todo-batch"))
	if err != nil {
		lg.Fatal("todo dispatcher", "err", err)
	}
	pushPool, err := services.NewDispatcher(settings.NotifyConcurrency, settings.DispatchTimeout, lg.WithPrefix("reminders"))
	if err != nil {
		lg.Fatal("reminder dispatcher", "err", err)
	}
	jobs := services.NewBatchJobs(store, todo, push, notes, todoPool, pushPool, services.BatchJobsConfig{
		ActiveWindow:   settings.ActiveWindow,
		TodoBatchLimit: settings.TodoBatchLimit,
	}, lg.WithPrefix("jobs"))
	sched, err := services.NewScheduler(jobs, settings.Location, services.Schedules{
		Todo:             settings.TodoSchedule,
		FoodReminder:     settings.FoodReminderSchedule,
		ExerciseReminder: settings.ExerciseReminderSchedule,
		WaterReminder:    settings.WaterReminderSchedule,
	}, lg.WithPrefix("scheduler"))
	if err != nil {
		lg.Fatal("scheduler", "err", err)
	}

	// other features
	var google services.IDTokenValidator
	if settings.GoogleClientID != "" {
		v, err := idtoken.NewValidator(ctx)
		if err != nil {
			lg.Fatal("google id token validator", "err", err)
		}
		google = v
	}
	mailer := utils.NewSESMailer(ses.NewFromConfig(awsCfg), settings.SESSender)
	authSvc := services.NewAuthService(db, mailer, google, settings.GoogleClientID, settings.JWTSecret, lg.WithPrefix("auth"))
	images := utils.NewS3Store(s3.NewFromConfig(awsCfg), settings.S3Bucket, settings.CloudFrontURL)
	fatsecret := services.NewFatSecretService(db, settings.FatSecretClientID, settings.FatSecretClientSecret, lg.WithPrefix("fatsecret"))
	rek := services.NewRekognitionService(rekognition.NewFromConfig(awsCfg))

	h := routes.Controllers{
		Auth:          controllers.NewAuthController(authSvc),
		Profile:       controllers.NewProfileController(services.NewProfileService(db, images, lg)),
		Logs:          controllers.NewLogController(services.NewLogService(db)),
		Analytics:     controllers.NewAnalyticsController(services.NewAnalyticsService(db)),
		Food:          controllers.NewFoodController(services.NewFoodService(fatsecret, rek)),
		Todo:          controllers.NewTodoController(todo),
		Chatbot:       controllers.NewChatbotController(services.NewChatbotService(db, todo, gemini, lg.WithPrefix("chatbot"))),
		Device:        controllers.NewDeviceController(push),
		Notifications: controllers.NewNotificationController(notes),
		Realtime:      controllers.NewRealtimeController(hub, lg),
	}
	if settings.DevRoutes {
		h.Dev = controllers.NewDevController(push, jobs)
	}

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           routes.SetupRouter(settings.JWTSecret, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched.Start()
	go func() {
		lg.Info("listening", "addr", srv.Addr, "zone", settings.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server", "err", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", "err", err)
	}
}
