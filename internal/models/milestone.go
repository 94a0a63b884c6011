package models

// MilestoneKind classifies what a milestone unlocks.
type MilestoneKind string

const (
	MilestoneChocolate   MilestoneKind = "chocolate"
	MilestoneLetter      MilestoneKind = "letter"
	MilestoneMysteryGift MilestoneKind = "mystery_gift"
	MilestoneParty       MilestoneKind = "party"
)

// Milestone is one rung of the reward ladder. Letter milestones carry the
// SUPER letter in Label; other kinds carry a display label.
type Milestone struct {
	Threshold int
	Kind      MilestoneKind
	Label     string
}

// UnlockedReward is a milestone a student has already crossed.
type UnlockedReward struct {
	Kind      MilestoneKind
	Label     string
	Threshold int
}

// SuperProgress summarizes a student's position on the milestone ladder.
// NextMilestone is zero once the ladder is complete.
type SuperProgress struct {
	CurrentLetter     string
	CurrentPoints     int
	NextMilestone     int
	NextMilestoneKind MilestoneKind
	ProgressPercent   float64
	UnlockedRewards   []UnlockedReward
}
