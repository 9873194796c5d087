package routes

import (
	"net/http"

	"dietica/controllers"
	"dietica/middlewares"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Auth          *controllers.AuthController
	Profile       *controllers.ProfileController
	Logs          *controllers.LogController
	Analytics     *controllers.AnalyticsController
	Food          *controllers.FoodController
	Todo          *controllers.TodoController
	Chatbot       *controllers.ChatbotController
	Device        *controllers.DeviceController
	Notifications *controllers.NotificationController
	Realtime      *controllers.RealtimeController
	Dev           *controllers.DevController // nil disables /dev
}

func SetupRouter(jwtSecret string, h Controllers) *gin.Engine {
	r := gin.Default()
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/verify-otp", h.Auth.VerifyOTP)
		auth.POST("/finalize-signup", h.Auth.FinalizeSignup)
		auth.POST("/signin", h.Auth.SignIn)
		auth.POST("/forgot-password", h.Auth.ForgotPassword)
		auth.POST("/reset-password", h.Auth.ResetPassword)
		auth.POST("/google", h.Auth.Google)
	}

	api := r.Group("/")
	api.Use(middlewares.AuthMiddleware(jwtSecret))

	user := api.Group("/user")
	{
		user.GET("/profile", h.Profile.GetProfile)
		user.PUT("/profile", h.Profile.UpdateProfile)
		user.POST("/profile/photo", h.Profile.UploadPhoto)
		user.DELETE("/profile/photo", h.Profile.DeletePhoto)
		user.GET("/target", h.Profile.GetTarget)
		user.PUT("/target", h.Profile.SetTarget)
		user.POST("/devices", h.Device.Register)
		user.POST("/notifications/toggle", h.Device.ToggleNotifications)
		user.GET("/notifications", h.Notifications.List)
	}

	food := api.Group("/food-logs")
	{
		food.GET("", h.Logs.ListFood)
		food.POST("", h.Logs.CreateFood)
		food.GET("/:id", h.Logs.GetFood)
		food.PUT("/:id", h.Logs.UpdateFood)
		food.DELETE("/:id", h.Logs.DeleteFood)
	}
	api.GET("/water-logs", h.Logs.ListWater)
	api.POST("/water-logs", h.Logs.CreateWater)
	api.GET("/exercise-logs", h.Logs.ListExercise)
	api.POST("/exercise-logs", h.Logs.CreateExercise)

	api.GET("/home", h.Analytics.Home)
	api.GET("/report", h.Analytics.Report)

	foods := api.Group("/foods")
	{
		foods.GET("/search", h.Food.Search)
		foods.POST("/recognize", h.Food.Recognize)
		foods.GET("/:id", h.Food.Get)
	}

	todo := api.Group("/todo")
	{
		todo.GET("", h.Todo.Current)
		todo.POST("/generate", h.Todo.Generate)
		todo.GET("/history", h.Todo.History)
	}

	api.GET("/chat", h.Chatbot.History)
	api.POST("/chat", h.Chatbot.Send)

	api.GET("/ws/notifications", h.Realtime.NotificationsWS)

	if h.Dev != nil {
		dev := api.Group("/dev")
		dev.POST("/push-test", h.Dev.PushTest)
		dev.POST("/jobs/:job", h.Dev.RunJob)
	}

	return r
}
