package service

import (
	"mathclash/internal/config"
	"mathclash/internal/models"
)

// BadgeService evaluates the badge rule table. Monthly rules run over a
// MonthSnapshot assembled by the caller; the evaluator itself never touches
// the database, which keeps every rule a plain predicate.
type BadgeService struct {
	cfg *config.Config
}

// NewBadgeService creates a new badge service
func NewBadgeService(cfg *config.Config) *BadgeService {
	return &BadgeService{cfg: cfg}
}

// EvaluateMonthly returns the monthly badges a snapshot earns. Deduplication
// against badges already held is the store's job, so re-running a month is
// harmless.
func (s *BadgeService) EvaluateMonthly(studentID int64, snapshot *models.MonthSnapshot) []models.BadgeAward {
	var awards []models.BadgeAward
	periodKey := string(snapshot.Month)

	add := func(t models.BadgeType) {
		def, ok := models.BadgeDefFor(t)
		if !ok {
			return
		}
		awards = append(awards, s.buildAward(studentID, def, periodKey))
	}

	stats := snapshot.Stats

	if stats.QuestionsAttempted >= s.cfg.AccuracyAceMinQuestions &&
		stats.Accuracy() >= s.cfg.AccuracyAceMinPct {
		add(models.BadgeAccuracyAce)
	}

	if stats.QuestionsAttempted >= s.cfg.PerfectPrecisionMinQuestions &&
		stats.QuestionsCorrect == stats.QuestionsAttempted {
		add(models.BadgePerfectPrecision)
	}

	if snapshot.PrevStats != nil &&
		stats.QuestionsAttempted >= s.cfg.ComebackMinQuestions &&
		snapshot.PrevStats.QuestionsAttempted >= s.cfg.ComebackMinQuestions &&
		stats.Accuracy()-snapshot.PrevStats.Accuracy() >= s.cfg.ComebackMinGain {
		add(models.BadgeComebackKid)
	}

	if snapshot.DaysInMonth > 0 && stats.QualifyingDays >= snapshot.DaysInMonth {
		add(models.BadgeMonthlyStreak)
	}

	if snapshot.Attendance.ClassesHeld > 0 &&
		snapshot.Attendance.ClassesAttended == snapshot.Attendance.ClassesHeld {
		add(models.BadgeAttendanceChampion)
	}

	if snapshot.Attendance.FullTShirt() {
		add(models.BadgeGoldTShirtStar)
	}

	switch snapshot.LeaderboardRank {
	case 1:
		add(models.BadgeLeaderboardGold)
	case 2:
		add(models.BadgeLeaderboardSilver)
	case 3:
		add(models.BadgeLeaderboardBronze)
	}

	return awards
}

// EvaluateLifetime returns the lifetime badges earned at a given all-time
// attempted-question count. Badges already held fall out at insert time.
func (s *BadgeService) EvaluateLifetime(studentID int64, totalAttempted int) []models.BadgeAward {
	thresholds := []struct {
		badgeType models.BadgeType
		questions int
	}{
		{models.BadgeBronzeMind, s.cfg.BronzeMindQuestions},
		{models.BadgeSilverMind, s.cfg.SilverMindQuestions},
		{models.BadgeGoldMind, s.cfg.GoldMindQuestions},
	}

	var awards []models.BadgeAward
	for _, t := range thresholds {
		if totalAttempted < t.questions {
			continue
		}
		def, ok := models.BadgeDefFor(t.badgeType)
		if !ok {
			continue
		}
		// Lifetime badges carry no period key
		awards = append(awards, s.buildAward(studentID, def, ""))
	}

	return awards
}

func (s *BadgeService) buildAward(studentID int64, def models.BadgeDef, periodKey string) models.BadgeAward {
	return models.BadgeAward{
		StudentID: studentID,
		BadgeType: def.Type,
		BadgeName: def.Name,
		Category:  def.Category,
		Lifetime:  def.Lifetime,
		PeriodKey: periodKey,
		Points:    s.cfg.BadgePointsFor(def),
	}
}
