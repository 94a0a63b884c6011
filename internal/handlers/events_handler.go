package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"mathclash/internal/models"
	"mathclash/internal/period"
	"mathclash/internal/service"
)

// EventsHandler ingests the activity events that feed the points ledger:
// daily logins, completed practice sessions and class attendance marks.
// Every route is safe to retry; replays are answered with the original
// outcome.
type EventsHandler struct {
	rewards *service.RewardService
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(rewards *service.RewardService) *EventsHandler {
	return &EventsHandler{rewards: rewards}
}

// Login handles POST /students/{id}/events/login
func (h *EventsHandler) Login(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Failed to parse student ID", err)
		return
	}

	result, err := h.rewards.RecordDailyLogin(studentID, time.Time{})
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			respondWithError(w, http.StatusBadRequest, "Invalid login event", "Rejected login event", err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to record login", "Failed to record login", err)
		return
	}

	respondWithJSON(w, http.StatusOK, toEventResponse(result))
}

// Session handles POST /students/{id}/events/session
func (h *EventsHandler) Session(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Failed to parse student ID", err)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "Failed to decode session event", err)
		return
	}
	if req.EventID == "" {
		req.EventID = uuid.NewString()
	}

	ev := service.SessionEvent{
		EventID:         req.EventID,
		OperationType:   req.OperationType,
		Attempted:       req.QuestionsAttempted,
		Correct:         req.QuestionsCorrect,
		DurationSeconds: req.DurationSeconds,
	}
	if req.At != nil {
		ev.At = *req.At
	}

	result, err := h.rewards.RecordSession(studentID, ev)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			respondWithError(w, http.StatusBadRequest, "Invalid session event", "Rejected session event", err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to record session", "Failed to record session", err)
		return
	}

	respondWithJSON(w, http.StatusOK, toEventResponse(result))
}

// Attendance handles POST /students/{id}/events/attendance
func (h *EventsHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid student ID", "Failed to parse student ID", err)
		return
	}

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "Failed to decode attendance mark", err)
		return
	}

	day, err := period.ParseDay(req.Date)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", "Rejected attendance mark", err)
		return
	}

	recorded, err := h.rewards.RecordAttendance(studentID, day, models.AttendanceStatus(req.Status), req.TshirtWorn)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			respondWithError(w, http.StatusBadRequest, "Invalid attendance mark", "Rejected attendance mark", err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to record attendance", "Failed to record attendance", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"recorded": recorded,
		"date":     day.String(),
	})
}
