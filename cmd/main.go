package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"recruitment-service/config"
	"recruitment-service/database"
	adminctrl "recruitment-service/internal/controller/admin"
	userctrl "recruitment-service/internal/controller/user"
	"recruitment-service/internal/logger"
	"recruitment-service/internal/model"
	"recruitment-service/internal/notify"
	"recruitment-service/internal/repository"
	"recruitment-service/internal/service"
)

// @title Recruitment Test API
// @version 1.0
// @description Skills-test lifecycle for a recruitment platform: test definitions, timed attempts, deterministic scoring and notification events.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core application components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			NewGinEngine,         // Provides *gin.Engine
			NewNotifier,
			service.SystemClock,
		),

		// Repositories layer
		fx.Provide(
			repository.NewTestRepository,
			repository.NewAttemptRepository,
		),

		// Services layer
		fx.Provide(
			service.NewTestService,
			service.NewResultService,
			service.NewLifecycleService,
		),

		// API controllers layer
		fx.Provide(
			adminctrl.NewAdminController,
			userctrl.NewCandidateController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

// NewNotifier picks the event publisher: AMQP when a broker is configured,
// log-only otherwise.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config) (notify.Notifier, error) {
	if cfg.AMQP.URL == "" {
		log.Warn().Msg("AMQP_URL not set; lifecycle events will only be logged")
		return notify.NewLogNotifier(), nil
	}

	publisher, err := notify.NewAMQPNotifier(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
	log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("AMQP notifier connected")
	return publisher, nil
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	adminCtrl *adminctrl.AdminController,
	candidateCtrl *userctrl.CandidateController,
) {
	adminAPIGroup := router.Group("/api/v1/admin")
	{
		testsAdminGroup := adminAPIGroup.Group("/tests")
		testsAdminGroup.POST("", adminCtrl.CreateTest)
		testsAdminGroup.GET("", adminCtrl.GetAllTests)
		testsAdminGroup.GET("/:test_id", adminCtrl.GetTest)
		testsAdminGroup.PUT("/:test_id", adminCtrl.UpdateTest)
		testsAdminGroup.DELETE("/:test_id", adminCtrl.DeleteTest)

		adminAPIGroup.POST("/assignments", adminCtrl.AssignTest)
		adminAPIGroup.POST("/attempts/:attempt_id/reminder", adminCtrl.SendReminder)
	}

	userAPIGroup := router.Group("/api/v1")
	{
		userAPIGroup.GET("/job-postings/:job_posting_id/test", candidateCtrl.GetTestByJobPosting)
		userAPIGroup.POST("/tests/:test_id/open", candidateCtrl.OpenTest)
		userAPIGroup.POST("/tests/:test_id/submit", candidateCtrl.SubmitTest)
		userAPIGroup.GET("/candidates/:candidate_id/results", candidateCtrl.GetCandidateResults)
		userAPIGroup.GET("/attempts/:attempt_id", candidateCtrl.GetAttemptDetails)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Recruitment test API server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Test{},
		&model.Question{},
		&model.TestAttempt{},
		&model.AttemptAnswer{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
