package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"mathclash/internal/config"
	"mathclash/internal/database"
	"mathclash/internal/handlers"
	"mathclash/internal/repository"
	"mathclash/internal/service"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	cfg := config.Load()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.WithError(err).Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize repositories
	ledgerRepo := repository.NewLedgerRepository(db)
	stateRepo := repository.NewStateRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.NotifyEmail, cfg.EmailDebug)
	if err != nil {
		logrus.WithError(err).Warn("Email service unavailable, continuing without notifications")
		emailService = nil
	}

	streakService := service.NewStreakService(cfg.MinDailyQuestions)
	milestoneService := service.NewMilestoneService(cfg.Milestones)
	badgeService := service.NewBadgeService(cfg)
	locks := service.NewStudentLocks()

	rewardService := service.NewRewardService(cfg, db, ledgerRepo, stateRepo, badgeRepo, statsRepo,
		streakService, milestoneService, badgeService, emailService, locks)
	evaluationService := service.NewEvaluationService(cfg, db, ledgerRepo, stateRepo, badgeRepo, statsRepo,
		badgeService, milestoneService, emailService, locks)
	reconcileService := service.NewReconcileService(db, ledgerRepo, stateRepo)

	// Initialize handlers
	eventsHandler := handlers.NewEventsHandler(rewardService)
	rewardsHandler := handlers.NewRewardsHandler(rewardService, cfg)
	adminHandler := handlers.NewAdminHandler(rewardService, evaluationService, reconcileService, db, cfg)

	// Routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", adminHandler.Health)

	mux.HandleFunc("POST /students/{id}/events/login", eventsHandler.Login)
	mux.HandleFunc("POST /students/{id}/events/session", eventsHandler.Session)
	mux.HandleFunc("POST /students/{id}/events/attendance", eventsHandler.Attendance)

	mux.HandleFunc("GET /students/{id}/rewards/summary", rewardsHandler.Summary)
	mux.HandleFunc("GET /students/{id}/rewards/badges", rewardsHandler.Badges)
	mux.HandleFunc("POST /students/{id}/rewards/grace-skip", rewardsHandler.GraceSkip)
	mux.HandleFunc("GET /students/{id}/points/log", rewardsHandler.PointsLog)

	mux.HandleFunc("POST /admin/students/{id}/adjustments", adminHandler.Adjust)
	mux.HandleFunc("GET /admin/students/{id}/reconciliation", adminHandler.Reconciliation)
	mux.HandleFunc("POST /admin/students/{id}/rebuild-total", adminHandler.RebuildTotal)
	mux.HandleFunc("POST /admin/rewards/evaluate-monthly", adminHandler.EvaluateMonthly)

	handler := handlers.Logging(mux)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.ServerPort).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Forced shutdown")
	}
}
