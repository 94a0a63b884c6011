package service

import (
	"math"

	"mathclash/internal/models"
)

// MilestoneService computes positions on the reward milestone ladder. The
// ladder is fixed at construction and unlocks are a pure function of the
// stored total, so they need no storage of their own.
type MilestoneService struct {
	ladder []models.Milestone
}

// NewMilestoneService creates a milestone service over a validated ladder
func NewMilestoneService(ladder []models.Milestone) *MilestoneService {
	return &MilestoneService{ladder: ladder}
}

// Progress reports where a total stands on the ladder: everything unlocked
// so far, the latest SUPER letter collected, and how far along the student
// is toward the next locked rung.
func (s *MilestoneService) Progress(totalPoints int) models.SuperProgress {
	progress := models.SuperProgress{
		CurrentPoints:   totalPoints,
		UnlockedRewards: []models.UnlockedReward{},
	}

	for _, m := range s.ladder {
		if totalPoints >= m.Threshold {
			progress.UnlockedRewards = append(progress.UnlockedRewards, models.UnlockedReward{
				Kind:      m.Kind,
				Label:     m.Label,
				Threshold: m.Threshold,
			})
			if m.Kind == models.MilestoneLetter {
				progress.CurrentLetter = m.Label
			}
			continue
		}

		progress.NextMilestone = m.Threshold
		progress.NextMilestoneKind = m.Kind
		break
	}

	// Ladder complete
	if progress.NextMilestone == 0 {
		progress.ProgressPercent = 100
		return progress
	}

	pct := float64(totalPoints) / float64(progress.NextMilestone) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	progress.ProgressPercent = math.Round(pct*100) / 100
	return progress
}

// UnlockedBetween lists the milestones crossed when a total moves from prev
// to next. prev is exclusive, next inclusive; a total moving downward
// crosses nothing.
func (s *MilestoneService) UnlockedBetween(prevTotal, newTotal int) []models.Milestone {
	var crossed []models.Milestone
	for _, m := range s.ladder {
		if m.Threshold > prevTotal && m.Threshold <= newTotal {
			crossed = append(crossed, m)
		}
	}
	return crossed
}
