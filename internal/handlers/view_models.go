package handlers

import (
	"time"

	"mathclash/internal/models"
	"mathclash/internal/service"
)

// Request bodies

type sessionRequest struct {
	EventID            string     `json:"event_id"`
	OperationType      string     `json:"operation_type"`
	QuestionsAttempted int        `json:"questions_attempted"`
	QuestionsCorrect   int        `json:"questions_correct"`
	DurationSeconds    int        `json:"duration_seconds"`
	At                 *time.Time `json:"at"`
}

type attendanceRequest struct {
	Date       string `json:"date"`
	Status     string `json:"status"`
	TshirtWorn bool   `json:"tshirt_worn"`
}

type adjustmentRequest struct {
	Points         int    `json:"points"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Response shapes

type badgeAwardResponse struct {
	BadgeType string    `json:"badge_type"`
	BadgeName string    `json:"badge_name"`
	Category  string    `json:"category"`
	Lifetime  bool      `json:"lifetime"`
	Period    string    `json:"period,omitempty"`
	Points    int       `json:"points"`
	EarnedAt  time.Time `json:"earned_at"`
}

type badgeStatusResponse struct {
	BadgeType string               `json:"badge_type"`
	Name      string               `json:"name"`
	Category  string               `json:"category"`
	Lifetime  bool                 `json:"lifetime"`
	Points    int                  `json:"points"`
	Hint      string               `json:"hint"`
	Earned    bool                 `json:"earned"`
	Awards    []badgeAwardResponse `json:"awards,omitempty"`
}

type unlockedRewardResponse struct {
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	Threshold int    `json:"threshold"`
}

type superProgressResponse struct {
	CurrentLetter      string                   `json:"current_letter"`
	CurrentPoints      int                      `json:"current_points"`
	NextMilestone      int                      `json:"next_milestone"`
	NextMilestoneType  string                   `json:"next_milestone_type"`
	ProgressPercentage float64                  `json:"progress_percentage"`
	UnlockedRewards    []unlockedRewardResponse `json:"unlocked_rewards"`
}

type summaryResponse struct {
	StudentID               int64                 `json:"student_id"`
	TotalPoints             int                   `json:"total_points"`
	CurrentStreak           int                   `json:"current_streak"`
	StreakState             string                `json:"streak_state"`
	LongestStreak           int                   `json:"longest_streak"`
	AttendancePercentage    float64               `json:"attendance_percentage"`
	TotalQuestionsAttempted int                   `json:"total_questions_attempted"`
	TotalQuestionsCorrect   int                   `json:"total_questions_correct"`
	CanUseGraceSkip         bool                  `json:"can_use_grace_skip"`
	GraceSkipReason         string                `json:"grace_skip_reason,omitempty"`
	GraceSkipCost           int                   `json:"grace_skip_cost"`
	SuperProgress           superProgressResponse `json:"super_progress"`
	CurrentBadges           []badgeAwardResponse  `json:"current_badges"`
	MonthlyBadges           []badgeAwardResponse  `json:"monthly_badges"`
	LifetimeBadges          []badgeAwardResponse  `json:"lifetime_badges"`
}

type graceSkipResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	PointsRemaining int    `json:"points_remaining"`
	StreakPreserved int    `json:"streak_preserved"`
}

type ledgerEntryResponse struct {
	ID          int64                  `json:"id"`
	Points      int                    `json:"points"`
	Description string                 `json:"description"`
	SourceType  string                 `json:"source_type"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

type pointsLogResponse struct {
	Logs                []ledgerEntryResponse `json:"logs"`
	TotalEntries        int                   `json:"total_entries"`
	TotalPointsFromLogs int64                 `json:"total_points_from_logs"`
	TotalPointsFromUser int64                 `json:"total_points_from_user"`
	Match               bool                  `json:"match"`
}

type eventResponse struct {
	Duplicate     bool                     `json:"duplicate"`
	PointsAwarded int                      `json:"points_awarded"`
	NewTotal      int                      `json:"new_total"`
	CurrentStreak int                      `json:"current_streak"`
	StreakState   string                   `json:"streak_state,omitempty"`
	BadgesAwarded []badgeAwardResponse     `json:"badges_awarded,omitempty"`
	Unlocked      []unlockedRewardResponse `json:"unlocked_milestones,omitempty"`
}

type reconciliationResponse struct {
	StudentID   int64     `json:"student_id"`
	LedgerSum   int       `json:"ledger_sum"`
	StoredTotal int       `json:"stored_total"`
	Match       bool      `json:"match"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Mapping

func toBadgeAwardResponse(award models.BadgeAward) badgeAwardResponse {
	return badgeAwardResponse{
		BadgeType: string(award.BadgeType),
		BadgeName: award.BadgeName,
		Category:  string(award.Category),
		Lifetime:  award.Lifetime,
		Period:    award.PeriodKey,
		Points:    award.Points,
		EarnedAt:  award.EarnedAt,
	}
}

func toBadgeAwardResponses(awards []models.BadgeAward) []badgeAwardResponse {
	out := make([]badgeAwardResponse, 0, len(awards))
	for _, award := range awards {
		out = append(out, toBadgeAwardResponse(award))
	}
	return out
}

func toUnlockedRewardResponses(rewards []models.UnlockedReward) []unlockedRewardResponse {
	out := make([]unlockedRewardResponse, 0, len(rewards))
	for _, reward := range rewards {
		out = append(out, unlockedRewardResponse{
			Kind:      string(reward.Kind),
			Label:     reward.Label,
			Threshold: reward.Threshold,
		})
	}
	return out
}

func toMilestoneResponses(milestones []models.Milestone) []unlockedRewardResponse {
	out := make([]unlockedRewardResponse, 0, len(milestones))
	for _, m := range milestones {
		out = append(out, unlockedRewardResponse{
			Kind:      string(m.Kind),
			Label:     m.Label,
			Threshold: m.Threshold,
		})
	}
	return out
}

func toSuperProgressResponse(p models.SuperProgress) superProgressResponse {
	return superProgressResponse{
		CurrentLetter:      p.CurrentLetter,
		CurrentPoints:      p.CurrentPoints,
		NextMilestone:      p.NextMilestone,
		NextMilestoneType:  string(p.NextMilestoneKind),
		ProgressPercentage: p.ProgressPercent,
		UnlockedRewards:    toUnlockedRewardResponses(p.UnlockedRewards),
	}
}

func toSummaryResponse(s *service.RewardSummary) summaryResponse {
	return summaryResponse{
		StudentID:               s.StudentID,
		TotalPoints:             s.TotalPoints,
		CurrentStreak:           s.Streak.Current,
		StreakState:             string(s.Streak.State),
		LongestStreak:           s.LongestStreak,
		AttendancePercentage:    s.Attendance.Percentage(),
		TotalQuestionsAttempted: s.TotalAttempted,
		TotalQuestionsCorrect:   s.TotalCorrect,
		CanUseGraceSkip:         s.CanUseGraceSkip,
		GraceSkipReason:         s.GraceSkipReason,
		GraceSkipCost:           s.GraceSkipCost,
		SuperProgress:           toSuperProgressResponse(s.Super),
		CurrentBadges:           toBadgeAwardResponses(s.Badges),
		MonthlyBadges:           toBadgeAwardResponses(s.MonthBadges),
		LifetimeBadges:          toBadgeAwardResponses(s.LifetimeBadges),
	}
}

func toEventResponse(result *service.EventResult) eventResponse {
	return eventResponse{
		Duplicate:     result.Duplicate,
		PointsAwarded: result.PointsAwarded,
		NewTotal:      result.NewTotal,
		CurrentStreak: result.Streak.Current,
		StreakState:   string(result.Streak.State),
		BadgesAwarded: toBadgeAwardResponses(result.BadgesAwarded),
		Unlocked:      toMilestoneResponses(result.Unlocked),
	}
}

func toPointsLogResponse(log *service.PointsLog) pointsLogResponse {
	logs := make([]ledgerEntryResponse, 0, len(log.Entries))
	for _, entry := range log.Entries {
		logs = append(logs, ledgerEntryResponse{
			ID:          entry.ID,
			Points:      entry.Points,
			Description: entry.Description,
			SourceType:  string(entry.SourceType),
			Metadata:    entry.Metadata,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return pointsLogResponse{
		Logs:                logs,
		TotalEntries:        log.TotalEntries,
		TotalPointsFromLogs: log.LedgerSum,
		TotalPointsFromUser: log.StoredTotal,
		Match:               log.Match,
	}
}

func toReconciliationResponse(report *models.ReconciliationReport) reconciliationResponse {
	return reconciliationResponse{
		StudentID:   report.StudentID,
		LedgerSum:   report.LedgerSum,
		StoredTotal: report.StoredTotal,
		Match:       report.Match,
		CheckedAt:   report.CheckedAt,
	}
}
