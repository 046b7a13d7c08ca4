package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/henokg/talentsim/config"
	"github.com/henokg/talentsim/database"
	candidatectrl "github.com/henokg/talentsim/internal/controller/candidate"
	employerctrl "github.com/henokg/talentsim/internal/controller/employer"
	"github.com/henokg/talentsim/internal/controller/middleware"
	"github.com/henokg/talentsim/internal/llm"
	"github.com/henokg/talentsim/internal/logger"
	"github.com/henokg/talentsim/internal/model"
	"github.com/henokg/talentsim/internal/notifier"
	"github.com/henokg/talentsim/internal/repository"
	"github.com/henokg/talentsim/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title TalentSim Assessment API
// @version 1.0
// @description Work-simulation assessment platform: employers author timed simulations, invite candidates, and review AI-scored results.
// @contact.name API Support
// @contact.email support@talentsim.dev
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
			llm.NewGateway,
			notifier.NewLogNotifier,
		),

		fx.Provide(
			repository.NewSimulationRepository,
			repository.NewInvitationRepository,
			repository.NewSessionRepository,
			repository.NewSubmissionRepository,
			repository.NewResultRepository,
		),

		fx.Provide(
			service.NewSimulationService,
			func(
				invitationRepo repository.InvitationRepository,
				simulationRepo repository.SimulationRepository,
				notif notifier.Notifier,
				cfg *config.Config,
			) service.InvitationService {
				return service.NewInvitationService(invitationRepo, simulationRepo, notif, cfg.Invitation.TTL)
			},
			service.NewScoringService,
			service.NewSessionService,
		),

		fx.Provide(
			employerctrl.NewSimulationController,
			employerctrl.NewInvitationController,
			employerctrl.NewResultController,
			candidatectrl.NewSessionController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(StartExpirySweeper),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
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
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-User-Role"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	simulationCtrl *employerctrl.SimulationController,
	invitationCtrl *employerctrl.InvitationController,
	resultCtrl *employerctrl.ResultController,
	sessionCtrl *candidatectrl.SessionController,
) {
	api := router.Group("/api/v1", middleware.Authenticate())

	employer := api.Group("/employer", middleware.RequireRole(model.RoleEmployer))
	{
		simulations := employer.Group("/simulations")
		simulations.POST("", simulationCtrl.CreateSimulation)
		simulations.GET("", simulationCtrl.ListSimulations)
		simulations.POST("/generate-steps", simulationCtrl.GenerateSteps)
		simulations.GET("/:id", simulationCtrl.GetSimulation)
		simulations.PUT("/:id", simulationCtrl.UpdateSimulation)
		simulations.DELETE("/:id", simulationCtrl.DeleteSimulation)
		simulations.POST("/:id/publish", simulationCtrl.PublishSimulation)
		simulations.POST("/:id/invite", invitationCtrl.InviteCandidates)
		simulations.GET("/:id/invitations", invitationCtrl.ListInvitations)
		simulations.GET("/:id/results", resultCtrl.ListResults)

		invitations := employer.Group("/invitations")
		invitations.POST("/:id/resend", invitationCtrl.ResendInvitation)
		invitations.DELETE("/:id", invitationCtrl.DeleteInvitation)

		submissions := employer.Group("/submissions")
		submissions.PATCH("/:id/status", resultCtrl.SetReviewStatus)
		submissions.POST("/:id/feedback", resultCtrl.AttachFeedback)
	}

	candidate := api.Group("/candidate", middleware.RequireRole(model.RoleCandidate))
	{
		candidate.POST("/invitations/accept", sessionCtrl.AcceptInvitation)
		candidate.POST("/invitations/:id/start", sessionCtrl.StartSession)

		sessions := candidate.Group("/sessions")
		sessions.GET("/:id", sessionCtrl.GetSession)
		sessions.POST("/:id/steps/:step_id/submit", sessionCtrl.SubmitStep)
		sessions.POST("/:id/report-cheat", sessionCtrl.ReportViolation)
		sessions.POST("/:id/complete", sessionCtrl.CompleteSession)
		sessions.GET("/:id/result", sessionCtrl.GetResult)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("TalentSim API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
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

// StartExpirySweeper moves overdue invitations to EXPIRED and overdue
// sessions to ABANDONED on a timer. Reads also expire lazily, so the
// sweeper only has to keep listings honest for rows nobody touches.
func StartExpirySweeper(
	lc fx.Lifecycle,
	cfg *config.Config,
	invitationService service.InvitationService,
	sessionService service.SessionService,
) {
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ticker := time.NewTicker(cfg.Invitation.SweepInterval)
			go func() {
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						now := time.Now()
						expired, err := invitationService.ExpireSweep(now)
						if err != nil {
							log.Error().Err(err).Msg("Invitation expiry sweep failed")
						} else if expired > 0 {
							log.Info().Int64("expired", expired).Msg("Invitation expiry sweep completed")
						}
						abandoned, err := sessionService.ExpireSweep(now)
						if err != nil {
							log.Error().Err(err).Msg("Session expiry sweep failed")
						} else if abandoned > 0 {
							log.Info().Int("abandoned", abandoned).Msg("Session expiry sweep completed")
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			return nil
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Simulation{},
		&model.Step{},
		&model.Invitation{},
		&model.AssessmentSession{},
		&model.StepSubmission{},
		&model.IntegrityFlag{},
		&model.Result{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
