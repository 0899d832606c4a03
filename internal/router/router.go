package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/eduquiz/eduquiz-backend/internal/config"
	"github.com/eduquiz/eduquiz-backend/internal/handler"
	"github.com/eduquiz/eduquiz-backend/internal/middleware"
	"github.com/eduquiz/eduquiz-backend/internal/response"
	"github.com/eduquiz/eduquiz-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Quiz    *handler.QuizHandler
	Attempt *handler.AttemptHandler
	User    *handler.UserHandler
	Media   *handler.MediaHandler
	Extract *handler.ExtractHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to the configured list when set; otherwise allow all so
	// dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	// Uploaded question images, aggressively cached (filenames are UUIDs).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for credential endpoints (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/register", authLimiter.Middleware(), handlers.Auth.Register)

		auth.GET("/me", middleware.RequireStudentJWT(authService), handlers.Auth.Me)
		auth.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.Me)
		auth.POST("/logout", middleware.RequireStudentJWT(authService), handlers.Auth.Logout)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/quizzes", handlers.Attempt.ListQuizzes)
		studentAPI.POST("/quizzes/:quiz_id/attempts", handlers.Attempt.Start)
		studentAPI.GET("/attempts/:attempt_id", handlers.Attempt.State)
		studentAPI.PUT("/attempts/:attempt_id/answers", handlers.Attempt.Answer)
		studentAPI.POST("/attempts/:attempt_id/reset", handlers.Attempt.Reset)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.Attempt.Submit)
		studentAPI.POST("/attempts/:attempt_id/review", handlers.Attempt.Review)
		studentAPI.POST("/attempts/:attempt_id/result", handlers.Attempt.BackToResult)
		studentAPI.DELETE("/attempts/:attempt_id", handlers.Attempt.Exit)
		studentAPI.GET("/results", handlers.Attempt.History)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		// Quiz management
		teacherAPI.GET("/quizzes", handlers.Quiz.List)
		teacherAPI.POST("/quizzes", handlers.Quiz.Create)
		teacherAPI.GET("/quizzes/:quiz_id", handlers.Quiz.Get)
		teacherAPI.PUT("/quizzes/:quiz_id", handlers.Quiz.Update)
		teacherAPI.DELETE("/quizzes/:quiz_id", handlers.Quiz.Delete)
		teacherAPI.POST("/quizzes/:quiz_id/publish", handlers.Quiz.SetPublished)
		teacherAPI.GET("/quizzes/:quiz_id/results", handlers.Quiz.Results)
		teacherAPI.GET("/quizzes/:quiz_id/results/export", handlers.Quiz.ExportResults)

		// Account administration
		teacherAPI.GET("/students", handlers.User.ListStudents)
		teacherAPI.POST("/users", handlers.User.Create)
		teacherAPI.PUT("/users/:user_id", handlers.User.Update)
		teacherAPI.DELETE("/users/:user_id", handlers.User.Delete)
		teacherAPI.POST("/students/:user_id/reset-session", handlers.User.ResetSession)

		// Question images
		teacherAPI.POST("/media", handlers.Media.Upload)

		// AI question import
		teacherAPI.POST("/extract/pdf", handlers.Extract.FromPDF)
		teacherAPI.POST("/extract/generate", handlers.Extract.Generate)

		// Monitoring
		teacherAPI.GET("/system/metrics", handlers.System.Metrics)
	}

	return router
}
