package models

import "time"

// BadgeType identifies a badge in the closed rule table.
type BadgeType string

const (
	BadgeAccuracyAce        BadgeType = "accuracy_ace"
	BadgePerfectPrecision   BadgeType = "perfect_precision"
	BadgeComebackKid        BadgeType = "comeback_kid"
	BadgeMonthlyStreak      BadgeType = "monthly_streak"
	BadgeAttendanceChampion BadgeType = "attendance_champion"
	BadgeGoldTShirtStar     BadgeType = "gold_tshirt_star"
	BadgeLeaderboardGold    BadgeType = "leaderboard_gold"
	BadgeLeaderboardSilver  BadgeType = "leaderboard_silver"
	BadgeLeaderboardBronze  BadgeType = "leaderboard_bronze"
	BadgeBronzeMind         BadgeType = "bronze_mind"
	BadgeSilverMind         BadgeType = "silver_mind"
	BadgeGoldMind           BadgeType = "gold_mind"
)

// BadgeCategory groups badges for display.
type BadgeCategory string

const (
	CategoryPerformance BadgeCategory = "performance"
	CategoryStreak      BadgeCategory = "streak"
	CategoryAttendance  BadgeCategory = "attendance"
	CategoryLeaderboard BadgeCategory = "leaderboard"
	CategoryLifetime    BadgeCategory = "lifetime"
)

// BadgeDef describes one badge: its identity, display name, category,
// whether it is lifetime (awarded once ever) or monthly (once per calendar
// month), the points it carries, and the hint shown while it is locked.
type BadgeDef struct {
	Type     BadgeType
	Name     string
	Category BadgeCategory
	Lifetime bool
	Points   int
	Hint     string
}

// badgeDefs is the canonical rule table, in display order. Point values are
// defaults and can be overridden through configuration.
var badgeDefs = []BadgeDef{
	{Type: BadgeAccuracyAce, Name: "Accuracy Ace", Category: CategoryPerformance, Points: 100,
		Hint: "Finish a month with 90% accuracy across at least 10 questions"},
	{Type: BadgePerfectPrecision, Name: "Perfect Precision", Category: CategoryPerformance, Points: 150,
		Hint: "Finish a month with 100% accuracy across at least 5 questions"},
	{Type: BadgeComebackKid, Name: "Comeback Kid", Category: CategoryPerformance, Points: 100,
		Hint: "Improve your monthly accuracy by 20 points over last month"},
	{Type: BadgeMonthlyStreak, Name: "Monthly Streak", Category: CategoryStreak, Points: 0,
		Hint: "Practice every single day of a calendar month"},
	{Type: BadgeAttendanceChampion, Name: "Attendance Champion", Category: CategoryAttendance, Points: 100,
		Hint: "Attend every class held in a month"},
	{Type: BadgeGoldTShirtStar, Name: "Gold T-Shirt Star", Category: CategoryAttendance, Points: 50,
		Hint: "Wear your center t-shirt to every class you attend in a month"},
	{Type: BadgeLeaderboardGold, Name: "Leaderboard Gold", Category: CategoryLeaderboard, Points: 300,
		Hint: "Finish the month at #1 on the points leaderboard"},
	{Type: BadgeLeaderboardSilver, Name: "Leaderboard Silver", Category: CategoryLeaderboard, Points: 200,
		Hint: "Finish the month at #2 on the points leaderboard"},
	{Type: BadgeLeaderboardBronze, Name: "Leaderboard Bronze", Category: CategoryLeaderboard, Points: 100,
		Hint: "Finish the month at #3 on the points leaderboard"},
	{Type: BadgeBronzeMind, Name: "Bronze Mind", Category: CategoryLifetime, Lifetime: true, Points: 100,
		Hint: "Attempt 500 questions all time"},
	{Type: BadgeSilverMind, Name: "Silver Mind", Category: CategoryLifetime, Lifetime: true, Points: 250,
		Hint: "Attempt 2000 questions all time"},
	{Type: BadgeGoldMind, Name: "Gold Mind", Category: CategoryLifetime, Lifetime: true, Points: 500,
		Hint: "Attempt 5000 questions all time"},
}

// BadgeDefs returns the rule table in display order.
func BadgeDefs() []BadgeDef {
	defs := make([]BadgeDef, len(badgeDefs))
	copy(defs, badgeDefs)
	return defs
}

// BadgeDefFor looks up a badge definition by type.
func BadgeDefFor(t BadgeType) (BadgeDef, bool) {
	for _, def := range badgeDefs {
		if def.Type == t {
			return def, true
		}
	}
	return BadgeDef{}, false
}

// BadgeAward is one earned badge. Monthly awards carry the period key
// (YYYY-MM) they were earned for; lifetime awards have an empty period key.
// Uniqueness on (student, type, period) is enforced by the store.
type BadgeAward struct {
	ID        int64
	StudentID int64
	BadgeType BadgeType
	BadgeName string
	Category  BadgeCategory
	Lifetime  bool
	PeriodKey string
	Points    int
	EarnedAt  time.Time
}
