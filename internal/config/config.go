package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"mathclash/internal/models"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string
	LogLevel       string

	// DefaultTimezone is applied to a student's reward state on first
	// activity; all day-boundary math runs in the student's zone.
	DefaultTimezone string

	PointsPerAttempt  int
	PointsPerCorrect  int
	DailyLoginBonus   int
	MinDailyQuestions int

	GraceSkipCost int

	StreakBonus7     int
	StreakBonus14    int
	StreakBonus21    int
	StreakBonusMonth int

	AccuracyAceMinPct            float64
	AccuracyAceMinQuestions      int
	PerfectPrecisionMinQuestions int
	ComebackMinGain              float64
	ComebackMinQuestions         int

	BronzeMindQuestions int
	SilverMindQuestions int
	GoldMindQuestions   int

	Milestones  []models.Milestone
	BadgePoints map[models.BadgeType]int

	SESRegion    string
	SESFromEmail string
	SESFromName  string
	NotifyEmail  string
	AppBaseURL   string
	EmailDebug   bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./mathclash.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "Asia/Kolkata"),

		PointsPerAttempt:  getEnvInt("POINTS_PER_ATTEMPT", 1),
		PointsPerCorrect:  getEnvInt("POINTS_PER_CORRECT", 5),
		DailyLoginBonus:   getEnvInt("DAILY_LOGIN_BONUS", 10),
		MinDailyQuestions: getEnvInt("MIN_DAILY_QUESTIONS", 15),

		GraceSkipCost: getEnvInt("GRACE_SKIP_COST", 2000),

		StreakBonus7:     getEnvInt("STREAK_BONUS_7", 50),
		StreakBonus14:    getEnvInt("STREAK_BONUS_14", 100),
		StreakBonus21:    getEnvInt("STREAK_BONUS_21", 200),
		StreakBonusMonth: getEnvInt("STREAK_BONUS_MONTH", 500),

		AccuracyAceMinPct:            getEnvFloat("ACCURACY_ACE_MIN_PCT", 90),
		AccuracyAceMinQuestions:      getEnvInt("ACCURACY_ACE_MIN_QUESTIONS", 10),
		PerfectPrecisionMinQuestions: getEnvInt("PERFECT_PRECISION_MIN_QUESTIONS", 5),
		ComebackMinGain:              getEnvFloat("COMEBACK_MIN_GAIN", 20),
		ComebackMinQuestions:         getEnvInt("COMEBACK_MIN_QUESTIONS", 10),

		BronzeMindQuestions: getEnvInt("BRONZE_MIND_QUESTIONS", 500),
		SilverMindQuestions: getEnvInt("SILVER_MIND_QUESTIONS", 2000),
		GoldMindQuestions:   getEnvInt("GOLD_MIND_QUESTIONS", 5000),

		SESRegion:    getEnv("SES_REGION", "ap-south-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "MathClash"),
		NotifyEmail:  getEnv("NOTIFY_EMAIL", ""),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),
		EmailDebug:   getEnvBool("EMAIL_DEBUG", false),
	}

	cfg.Milestones = DefaultMilestones()
	if raw := os.Getenv("REWARD_MILESTONES"); raw != "" {
		var ms []models.Milestone
		if err := json.Unmarshal([]byte(raw), &ms); err != nil {
			logrus.WithError(err).Warn("Ignoring REWARD_MILESTONES: not valid JSON")
		} else if err := ValidateMilestones(ms); err != nil {
			logrus.WithError(err).Warn("Ignoring REWARD_MILESTONES")
		} else {
			cfg.Milestones = ms
		}
	}

	if raw := os.Getenv("REWARD_BADGE_POINTS"); raw != "" {
		overrides := make(map[models.BadgeType]int)
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			logrus.WithError(err).Warn("Ignoring REWARD_BADGE_POINTS: not valid JSON")
		} else {
			cfg.BadgePoints = overrides
		}
	}

	return cfg
}

// DefaultMilestones returns the standard reward ladder: fourteen rungs from
// 1500 to 21000 points in steps of 1500, alternating chocolates with the
// letters of SUPER, a mystery gift at 18000 and the celebration party at
// the top.
func DefaultMilestones() []models.Milestone {
	return []models.Milestone{
		{Threshold: 1500, Kind: models.MilestoneChocolate, Label: "Chocolate"},
		{Threshold: 3000, Kind: models.MilestoneLetter, Label: "S"},
		{Threshold: 4500, Kind: models.MilestoneChocolate, Label: "Chocolate"},
		{Threshold: 6000, Kind: models.MilestoneLetter, Label: "U"},
		{Threshold: 7500, Kind: models.MilestoneChocolate, Label: "Chocolate"},
		{Threshold: 9000, Kind: models.MilestoneLetter, Label: "P"},
		{Threshold: 10500, Kind: models.MilestoneChocolate, Label: "Chocolate"},
		{Threshold: 12000, Kind: models.MilestoneLetter, Label: "E"},
		{Threshold: 13500, Kind: models.MilestoneChocolate, Label: "Chocolate"},
		{Threshold: 15000, Kind: models.MilestoneLetter, Label: "R"},
		{Threshold: 16500, Kind: models.MilestoneChocolate, Label: "Chocolate"},
		{Threshold: 18000, Kind: models.MilestoneMysteryGift, Label: "Mystery Gift"},
		{Threshold: 19500, Kind: models.MilestoneChocolate, Label: "Chocolate"},
		{Threshold: 21000, Kind: models.MilestoneParty, Label: "Celebration Party"},
	}
}

// ValidateMilestones checks that a ladder is non-empty with strictly
// increasing positive thresholds.
func ValidateMilestones(ms []models.Milestone) error {
	if len(ms) == 0 {
		return fmt.Errorf("milestone table is empty")
	}
	prev := 0
	for _, m := range ms {
		if m.Threshold <= prev {
			return fmt.Errorf("milestone thresholds must be strictly increasing: %d after %d", m.Threshold, prev)
		}
		prev = m.Threshold
	}
	return nil
}

// BadgePointsFor returns the point value a badge award carries, preferring a
// configured override over the rule-table default.
func (c *Config) BadgePointsFor(def models.BadgeDef) int {
	if v, ok := c.BadgePoints[def.Type]; ok {
		return v
	}
	return def.Points
}

// DefaultLocation resolves the configured default time zone, falling back to
// UTC if the name does not resolve on this host.
func (c *Config) DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		logrus.WithError(err).Warnf("Unknown DEFAULT_TIMEZONE %q, using UTC", c.DefaultTimezone)
		return time.UTC
	}
	return loc
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
