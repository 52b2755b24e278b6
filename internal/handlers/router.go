package handlers

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-board/internal/auth"
	"github.com/justsurfingit/job-board/internal/logging"
	"github.com/justsurfingit/job-board/internal/ratelimit"
	"github.com/justsurfingit/job-board/internal/services"
)

type RouterDeps struct {
	Accounts     *services.AccountService
	Jobs         *services.JobService
	Applications *services.ApplicationService
	Extraction   *services.ExtractionService
	Tokens       *auth.TokenIssuer
	ApplyLimiter *ratelimit.Store
	Log          *slog.Logger

	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(d.Log))

	config := cors.DefaultConfig()
	if len(d.CORSOrigins) == 0 || slices.Contains(d.CORSOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = d.CORSOrigins
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))
	r.Use(RequestTimeout(d.RequestTimeout))

	authHandler := NewAuthHandler(d.Accounts, d.Log)
	jobHandler := NewJobHandler(d.Extraction, d.Jobs, d.Log)
	appHandler := NewApplicationHandler(d.Applications, d.Log)

	r.GET("/health", HealthCheck)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.SignUp)
		authGroup.POST("/login", authHandler.Login)
	}

	protected := r.Group("/", Authenticate(d.Tokens, d.Log))

	jobs := protected.Group("/jobs")
	{
		jobs.POST("", jobHandler.CreateJob)
		jobs.GET("", jobHandler.ListJobs)
		jobs.POST("/extract", jobHandler.ParseJob)
		jobs.GET("/:id", jobHandler.GetJob)
		jobs.PUT("/:id", jobHandler.UpdateJob)
		jobs.DELETE("/:id", jobHandler.DeleteJob)
		jobs.GET("/:id/applications", appHandler.ListForJob)
		jobs.POST("/:id/applications", RateLimitByCaller(d.ApplyLimiter, d.Log), appHandler.Apply)
		jobs.GET("/:id/check-accepted", appHandler.CheckAccepted)
	}

	apps := protected.Group("/applications")
	{
		apps.GET("", appHandler.ListMine)
		apps.PUT("/:id/status", appHandler.UpdateStatus)
	}
	return r
}
