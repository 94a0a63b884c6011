package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"mathclash/internal/config"
	"mathclash/internal/models"
	"mathclash/internal/service"
)

// RewardsHandler serves the student-facing rewards views: the dashboard
// summary, the badge catalog, grace skip redemption and the points log.
type RewardsHandler struct {
	rewards *service.RewardService
	cfg     *config.Config
}

// NewRewardsHandler creates a new rewards handler
func NewRewardsHandler(rewards *service.RewardService, cfg *config.Config) *RewardsHandler {
	return &RewardsHandler{rewards: rewards, cfg: cfg}
}

// Summary handles GET /students/{id}/rewards/summary
func (h *RewardsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Failed to parse student ID", err)
		return
	}

	summary, err := h.rewards.GetSummary(studentID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load summary", "Failed to load reward summary", err)
		return
	}

	respondWithJSON(w, http.StatusOK, toSummaryResponse(summary))
}

// Badges handles GET /students/{id}/rewards/badges. Every badge definition
// is returned, earned or locked, so the client can render the full catalog.
func (h *RewardsHandler) Badges(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Failed to parse student ID", err)
		return
	}

	awards, err := h.rewards.ListBadges(studentID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Rejected badge listing", err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load badges", "Failed to load badges", err)
		return
	}

	byType := make(map[models.BadgeType][]badgeAwardResponse)
	for _, award := range awards {
		byType[award.BadgeType] = append(byType[award.BadgeType], toBadgeAwardResponse(award))
	}

	defs := models.BadgeDefs()
	catalog := make([]badgeStatusResponse, 0, len(defs))
	for _, def := range defs {
		earned := byType[def.Type]
		catalog = append(catalog, badgeStatusResponse{
			BadgeType: string(def.Type),
			Name:      def.Name,
			Category:  string(def.Category),
			Lifetime:  def.Lifetime,
			Points:    h.cfg.BadgePointsFor(def),
			Hint:      def.Hint,
			Earned:    len(earned) > 0,
			Awards:    earned,
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"badges": catalog,
	})
}

// GraceSkip handles POST /students/{id}/rewards/grace-skip
func (h *RewardsHandler) GraceSkip(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Failed to parse student ID", err)
		return
	}

	result, err := h.rewards.RedeemGraceSkip(studentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotEligible), errors.Is(err, service.ErrInsufficientPoints):
			respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": err.Error(),
			})
		case errors.Is(err, service.ErrInvalidEvent):
			respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Rejected grace skip", err)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to redeem grace skip", "Failed to redeem grace skip", err)
		}
		return
	}

	message := fmt.Sprintf("Streak of %d days preserved, %d points spent", result.StreakPreserved, result.PointsSpent)
	if result.AlreadyUsed {
		message = fmt.Sprintf("Grace skip already covered %s", result.MissedDay)
	}

	respondWithJSON(w, http.StatusOK, graceSkipResponse{
		Success:         true,
		Message:         message,
		PointsRemaining: result.NewTotal,
		StreakPreserved: result.StreakPreserved,
	})
}

// PointsLog handles GET /students/{id}/points/log?limit=&offset=
func (h *RewardsHandler) PointsLog(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Failed to parse student ID", err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	log, err := h.rewards.GetPointsLog(studentID, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load points log", "Failed to load points log", err)
		return
	}

	respondWithJSON(w, http.StatusOK, toPointsLogResponse(log))
}
