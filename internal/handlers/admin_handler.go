package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"mathclash/internal/config"
	"mathclash/internal/database"
	"mathclash/internal/period"
	"mathclash/internal/service"
)

// AdminHandler serves the operator surface: manual point adjustments,
// reconciliation, total rebuilds and the monthly badge evaluation trigger.
type AdminHandler struct {
	rewards    *service.RewardService
	evaluation *service.EvaluationService
	reconcile  *service.ReconcileService
	db         *database.DB
	cfg        *config.Config
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(rewards *service.RewardService, evaluation *service.EvaluationService, reconcile *service.ReconcileService, db *database.DB, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		rewards:    rewards,
		evaluation: evaluation,
		reconcile:  reconcile,
		db:         db,
		cfg:        cfg,
	}
}

// Adjust handles POST /admin/students/{id}/adjustments
func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Failed to parse student ID", err)
		return
	}

	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "Failed to decode adjustment", err)
		return
	}

	result, err := h.rewards.ManualAdjustment(studentID, req.Points, req.Description, req.IdempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEvent):
			respondWithError(w, http.StatusBadRequest, "Adjustment needs nonzero points and a description", "Rejected manual adjustment", err)
		case errors.Is(err, service.ErrInsufficientPoints):
			respondWithError(w, http.StatusBadRequest, "Deduction exceeds the student's balance", "Rejected manual adjustment", err)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to apply adjustment", "Failed to apply adjustment", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, toEventResponse(result))
}

// Reconciliation handles GET /admin/students/{id}/reconciliation
func (h *AdminHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Failed to parse student ID", err)
		return
	}

	report, err := h.reconcile.Check(studentID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to reconcile", "Failed to reconcile student total", err)
		return
	}

	respondWithJSON(w, http.StatusOK, toReconciliationResponse(report))
}

// RebuildTotal handles POST /admin/students/{id}/rebuild-total
func (h *AdminHandler) RebuildTotal(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Failed to parse student ID", err)
		return
	}

	result, err := h.rewards.RebuildTotal(studentID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Rejected total rebuild", err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to rebuild total", "Failed to rebuild total", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"student_id":     result.StudentID,
		"previous_total": result.PreviousTotal,
		"ledger_sum":     result.LedgerSum,
		"corrected":      result.Corrected,
	})
}

// EvaluateMonthly handles POST /admin/rewards/evaluate-monthly?month=YYYY-MM.
// Without a month parameter the previous calendar month is evaluated, which
// is what the first-of-month cron wants.
func (h *AdminHandler) EvaluateMonthly(w http.ResponseWriter, r *http.Request) {
	var month period.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := period.ParseMonth(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid month, expected YYYY-MM", "Rejected evaluation request", err)
			return
		}
		month = parsed
	} else {
		month = period.MonthOf(time.Now(), h.cfg.DefaultLocation()).Prev()
	}

	summary, err := h.evaluation.RunMonthly(month)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to run evaluation", "Monthly evaluation failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"month":              summary.Month.String(),
		"students_evaluated": summary.StudentsEvaluated,
		"badges_awarded":     summary.BadgesAwarded,
		"run_id":             summary.RunID,
	})
}

// Health handles GET /healthz
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Database unreachable", "Health check failed", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}
