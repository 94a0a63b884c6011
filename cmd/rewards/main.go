package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"mathclash/internal/config"
	"mathclash/internal/database"
	"mathclash/internal/models"
	"mathclash/internal/period"
	"mathclash/internal/repository"
	"mathclash/internal/service"
)

func main() {
	// Define subcommands
	evaluateCmd := flag.NewFlagSet("evaluate", flag.ExitOnError)
	reconcileCmd := flag.NewFlagSet("reconcile", flag.ExitOnError)

	// Evaluate flags
	evaluateMonth := evaluateCmd.String("month", "", "Month to evaluate as YYYY-MM (default: previous month)")

	// Reconcile flags
	reconcileStudent := reconcileCmd.Int64("student", 0, "Student ID to reconcile (default: sweep all students)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	ledgerRepo := repository.NewLedgerRepository(db)
	stateRepo := repository.NewStateRepository(db)

	switch os.Args[1] {
	case "evaluate":
		evaluateCmd.Parse(os.Args[2:])
		handleEvaluate(cfg, db, ledgerRepo, stateRepo, *evaluateMonth)

	case "reconcile":
		reconcileCmd.Parse(os.Args[2:])
		reconcileService := service.NewReconcileService(db, ledgerRepo, stateRepo)
		handleReconcile(reconcileService, *reconcileStudent)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleEvaluate(cfg *config.Config, db *database.DB, ledgerRepo *repository.LedgerRepository, stateRepo *repository.StateRepository, monthFlag string) {
	var month period.Month
	if monthFlag == "" {
		month = period.MonthOf(time.Now(), cfg.DefaultLocation()).Prev()
	} else {
		parsed, err := period.ParseMonth(monthFlag)
		if err != nil {
			logrus.WithError(err).Fatal("Invalid -month, expected YYYY-MM")
		}
		month = parsed
	}

	badgeRepo := repository.NewBadgeRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	badgeService := service.NewBadgeService(cfg)
	milestoneService := service.NewMilestoneService(cfg.Milestones)
	locks := service.NewStudentLocks()

	emailService, err := service.NewEmailService(cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.NotifyEmail, cfg.EmailDebug)
	if err != nil {
		logrus.WithError(err).Warn("Email service unavailable, continuing without notifications")
		emailService = nil
	}

	evaluationService := service.NewEvaluationService(cfg, db, ledgerRepo, stateRepo, badgeRepo, statsRepo,
		badgeService, milestoneService, emailService, locks)

	summary, err := evaluationService.RunMonthly(month)
	if err != nil {
		logrus.WithError(err).Fatal("Monthly evaluation failed")
	}

	fmt.Printf("Evaluated %s: %d students, %d badges awarded (run %s)\n",
		summary.Month, summary.StudentsEvaluated, summary.BadgesAwarded, summary.RunID)
}

func handleReconcile(reconcileService *service.ReconcileService, studentID int64) {
	if studentID > 0 {
		report, err := reconcileService.Check(studentID)
		if err != nil {
			logrus.WithError(err).Fatal("Reconciliation failed")
		}
		printReport(*report)
		if !report.Match {
			os.Exit(1)
		}
		return
	}

	reports, err := reconcileService.CheckAll()
	if err != nil {
		logrus.WithError(err).Fatal("Reconciliation sweep failed")
	}

	mismatches := 0
	for _, report := range reports {
		printReport(report)
		if !report.Match {
			mismatches++
		}
	}
	fmt.Printf("Checked %d students, %d mismatches\n", len(reports), mismatches)
	if mismatches > 0 {
		os.Exit(1)
	}
}

func printReport(report models.ReconciliationReport) {
	status := "OK"
	if !report.Match {
		status = "MISMATCH"
	}
	fmt.Printf("student %d: ledger %d, stored %d [%s]\n",
		report.StudentID, report.LedgerSum, report.StoredTotal, status)
}

func printUsage() {
	fmt.Println("MathClash Rewards Admin Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rewards evaluate [options]     Run the monthly badge evaluation")
	fmt.Println("  rewards reconcile [options]    Reconcile stored totals against the ledger")
	fmt.Println()
	fmt.Println("Evaluate Options:")
	fmt.Println("  -month <YYYY-MM>  Month to evaluate (default: previous month)")
	fmt.Println()
	fmt.Println("Reconcile Options:")
	fmt.Println("  -student <id>     Reconcile a single student (default: all students)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Evaluate last month's badges (the first-of-month cron job)")
	fmt.Println("  rewards evaluate")
	fmt.Println("  rewards evaluate -month 2026-03")
	fmt.Println()
	fmt.Println("  # Reconcile every student, exit 1 if any total drifted")
	fmt.Println("  rewards reconcile")
	fmt.Println("  rewards reconcile -student 42")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./mathclash.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  DEFAULT_TIMEZONE Day and month boundaries (default: Asia/Kolkata)")
}
