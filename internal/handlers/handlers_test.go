package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"mathclash/internal/config"
	"mathclash/internal/database"
	"mathclash/internal/repository"
	"mathclash/internal/service"
)

func newTestMux(t *testing.T, dbPath string) (*http.ServeMux, *database.DB) {
	t.Helper()

	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cfg := &config.Config{
		DefaultTimezone:              "Asia/Kolkata",
		PointsPerAttempt:             1,
		PointsPerCorrect:             5,
		DailyLoginBonus:              10,
		MinDailyQuestions:            15,
		GraceSkipCost:                2000,
		StreakBonus7:                 50,
		StreakBonus14:                100,
		StreakBonus21:                200,
		StreakBonusMonth:             500,
		AccuracyAceMinPct:            90,
		AccuracyAceMinQuestions:      10,
		PerfectPrecisionMinQuestions: 5,
		ComebackMinGain:              20,
		ComebackMinQuestions:         10,
		BronzeMindQuestions:          500,
		SilverMindQuestions:          2000,
		GoldMindQuestions:            5000,
		Milestones:                   config.DefaultMilestones(),
	}

	ledgerRepo := repository.NewLedgerRepository(db)
	stateRepo := repository.NewStateRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	streaks := service.NewStreakService(cfg.MinDailyQuestions)
	milestones := service.NewMilestoneService(cfg.Milestones)
	badgeEval := service.NewBadgeService(cfg)
	locks := service.NewStudentLocks()

	rewards := service.NewRewardService(cfg, db, ledgerRepo, stateRepo, badgeRepo, statsRepo,
		streaks, milestones, badgeEval, nil, locks)
	evaluation := service.NewEvaluationService(cfg, db, ledgerRepo, stateRepo, badgeRepo, statsRepo,
		badgeEval, milestones, nil, locks)
	reconcile := service.NewReconcileService(db, ledgerRepo, stateRepo)

	eventsHandler := NewEventsHandler(rewards)
	rewardsHandler := NewRewardsHandler(rewards, cfg)
	adminHandler := NewAdminHandler(rewards, evaluation, reconcile, db, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", adminHandler.Health)
	mux.HandleFunc("POST /students/{id}/events/login", eventsHandler.Login)
	mux.HandleFunc("POST /students/{id}/events/session", eventsHandler.Session)
	mux.HandleFunc("POST /students/{id}/events/attendance", eventsHandler.Attendance)
	mux.HandleFunc("GET /students/{id}/rewards/summary", rewardsHandler.Summary)
	mux.HandleFunc("GET /students/{id}/rewards/badges", rewardsHandler.Badges)
	mux.HandleFunc("POST /students/{id}/rewards/grace-skip", rewardsHandler.GraceSkip)
	mux.HandleFunc("GET /students/{id}/points/log", rewardsHandler.PointsLog)
	mux.HandleFunc("POST /admin/students/{id}/adjustments", adminHandler.Adjust)
	mux.HandleFunc("GET /admin/students/{id}/reconciliation", adminHandler.Reconciliation)
	mux.HandleFunc("POST /admin/students/{id}/rebuild-total", adminHandler.RebuildTotal)
	mux.HandleFunc("POST /admin/rewards/evaluate-monthly", adminHandler.EvaluateMonthly)

	return mux, db
}

func doRequest(t *testing.T, mux *http.ServeMux, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response is not JSON: %v (body %q)", err, rec.Body.String())
	}
	return body
}

func sessionAt(t *testing.T, day string) time.Time {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("Failed to load location: %v", err)
	}
	parsed, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		t.Fatalf("Failed to parse day %q: %v", day, err)
	}
	return parsed.Add(15 * time.Hour)
}

func TestHealthEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_health.db")

	rec := doRequest(t, mux, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestSummaryEndpointNewStudent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_summary.db")

	rec := doRequest(t, mux, http.MethodGet, "/students/42/rewards/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["total_points"] != float64(0) {
		t.Errorf("total_points = %v, want 0", body["total_points"])
	}
	if body["streak_state"] != "broken" {
		t.Errorf("streak_state = %v, want broken", body["streak_state"])
	}
	if body["can_use_grace_skip"] != false {
		t.Errorf("can_use_grace_skip = %v, want false", body["can_use_grace_skip"])
	}
	if reason, _ := body["grace_skip_reason"].(string); reason == "" {
		t.Error("grace_skip_reason is empty for an ineligible student")
	}

	progress, ok := body["super_progress"].(map[string]interface{})
	if !ok {
		t.Fatalf("super_progress missing from response: %v", body)
	}
	if progress["next_milestone"] != float64(1500) {
		t.Errorf("next_milestone = %v, want 1500", progress["next_milestone"])
	}
	if progress["next_milestone_type"] != "chocolate" {
		t.Errorf("next_milestone_type = %v, want chocolate", progress["next_milestone_type"])
	}

	badges, ok := body["current_badges"].([]interface{})
	if !ok {
		t.Fatalf("current_badges is not an array: %v", body["current_badges"])
	}
	if len(badges) != 0 {
		t.Errorf("current_badges has %d entries for a new student, want 0", len(badges))
	}
}

func TestSessionEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_session.db")
	at := sessionAt(t, "2026-03-10")

	payload := map[string]interface{}{
		"event_id":            "evt-handler-1",
		"operation_type":      "multiplication",
		"questions_attempted": 20,
		"questions_correct":   16,
		"duration_seconds":    300,
		"at":                  at,
	}

	rec := doRequest(t, mux, http.MethodPost, "/students/1/events/session", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["duplicate"] != false {
		t.Errorf("duplicate = %v, want false", body["duplicate"])
	}
	if body["points_awarded"] != float64(100) {
		t.Errorf("points_awarded = %v, want 100", body["points_awarded"])
	}
	if body["new_total"] != float64(100) {
		t.Errorf("new_total = %v, want 100", body["new_total"])
	}
	if body["current_streak"] != float64(1) {
		t.Errorf("current_streak = %v, want 1", body["current_streak"])
	}

	// Same event ID replays as a no-op
	replay := doRequest(t, mux, http.MethodPost, "/students/1/events/session", payload)
	if replay.Code != http.StatusOK {
		t.Fatalf("replay status = %d, want %d", replay.Code, http.StatusOK)
	}
	replayBody := decodeBody(t, replay)
	if replayBody["duplicate"] != true {
		t.Errorf("replay duplicate = %v, want true", replayBody["duplicate"])
	}
	if replayBody["new_total"] != float64(100) {
		t.Errorf("replay new_total = %v, want 100", replayBody["new_total"])
	}
}

func TestSessionEndpointGeneratesEventID(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_session_genid.db")
	at := sessionAt(t, "2026-03-10")

	payload := map[string]interface{}{
		"operation_type":      "addition",
		"questions_attempted": 10,
		"questions_correct":   8,
		"at":                  at,
	}

	// Without a client event ID each delivery is a fresh event
	first := decodeBody(t, doRequest(t, mux, http.MethodPost, "/students/1/events/session", payload))
	if first["new_total"] != float64(50) {
		t.Errorf("first new_total = %v, want 50", first["new_total"])
	}
	second := decodeBody(t, doRequest(t, mux, http.MethodPost, "/students/1/events/session", payload))
	if second["duplicate"] != false {
		t.Errorf("second post without event_id marked duplicate")
	}
	if second["new_total"] != float64(100) {
		t.Errorf("second new_total = %v, want 100", second["new_total"])
	}
}

func TestSessionEndpointValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_session_invalid.db")

	rec := doRequest(t, mux, http.MethodPost, "/students/1/events/session", map[string]interface{}{
		"event_id":            "evt-bad",
		"questions_attempted": 0,
		"questions_correct":   0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero questions status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doRequest(t, mux, http.MethodPost, "/students/1/events/session", map[string]interface{}{
		"event_id":            "evt-bad-2",
		"questions_attempted": 5,
		"questions_correct":   6,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("correct > attempted status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	req := httptest.NewRequest(http.MethodPost, "/students/1/events/session", bytes.NewBufferString("not json"))
	malformed := httptest.NewRecorder()
	mux.ServeHTTP(malformed, req)
	if malformed.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want %d", malformed.Code, http.StatusBadRequest)
	}

	rec = doRequest(t, mux, http.MethodPost, "/students/abc/events/session", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad student ID status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAttendanceEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_attendance.db")

	payload := map[string]interface{}{
		"date":        "2026-03-05",
		"status":      "present",
		"tshirt_worn": true,
	}

	rec := doRequest(t, mux, http.MethodPost, "/students/1/events/attendance", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["recorded"] != true {
		t.Errorf("recorded = %v, want true", body["recorded"])
	}

	// First mark wins, the replay is not applied
	replay := doRequest(t, mux, http.MethodPost, "/students/1/events/attendance", payload)
	if body := decodeBody(t, replay); body["recorded"] != false {
		t.Errorf("replay recorded = %v, want false", body["recorded"])
	}

	bad := doRequest(t, mux, http.MethodPost, "/students/1/events/attendance", map[string]interface{}{
		"date":   "05-03-2026",
		"status": "present",
	})
	if bad.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want %d", bad.Code, http.StatusBadRequest)
	}

	bad = doRequest(t, mux, http.MethodPost, "/students/1/events/attendance", map[string]interface{}{
		"date":   "2026-03-06",
		"status": "late",
	})
	if bad.Code != http.StatusBadRequest {
		t.Errorf("unknown status code = %d, want %d", bad.Code, http.StatusBadRequest)
	}
}

func TestGraceSkipEndpointNotEligible(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_grace.db")

	rec := doRequest(t, mux, http.MethodPost, "/students/5/rewards/grace-skip", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if message, _ := body["message"].(string); message == "" {
		t.Error("message is empty, want a refusal reason")
	}
}

func TestAdjustmentEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_adjust.db")

	rec := doRequest(t, mux, http.MethodPost, "/admin/students/1/adjustments", map[string]interface{}{
		"points":          1600,
		"description":     "Workshop prize",
		"idempotency_key": "adjust:workshop-handler",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["new_total"] != float64(1600) {
		t.Errorf("new_total = %v, want 1600", body["new_total"])
	}
	unlocked, ok := body["unlocked_milestones"].([]interface{})
	if !ok || len(unlocked) != 1 {
		t.Fatalf("unlocked_milestones = %v, want one entry", body["unlocked_milestones"])
	}
	milestone := unlocked[0].(map[string]interface{})
	if milestone["threshold"] != float64(1500) {
		t.Errorf("unlocked threshold = %v, want 1500", milestone["threshold"])
	}

	overdraw := doRequest(t, mux, http.MethodPost, "/admin/students/1/adjustments", map[string]interface{}{
		"points":      -5000,
		"description": "Typo in award",
	})
	if overdraw.Code != http.StatusBadRequest {
		t.Errorf("overdraw status = %d, want %d", overdraw.Code, http.StatusBadRequest)
	}

	invalid := doRequest(t, mux, http.MethodPost, "/admin/students/1/adjustments", map[string]interface{}{
		"points": 100,
	})
	if invalid.Code != http.StatusBadRequest {
		t.Errorf("missing description status = %d, want %d", invalid.Code, http.StatusBadRequest)
	}
}

func TestPointsLogEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_log.db")
	at := sessionAt(t, "2026-03-10")

	doRequest(t, mux, http.MethodPost, "/students/1/events/session", map[string]interface{}{
		"event_id":            "evt-log-1",
		"questions_attempted": 20,
		"questions_correct":   16,
		"at":                  at,
	})

	rec := doRequest(t, mux, http.MethodGet, "/students/1/points/log?limit=1&offset=0", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}

	body := decodeBody(t, rec)
	logs, ok := body["logs"].([]interface{})
	if !ok || len(logs) != 1 {
		t.Fatalf("logs = %v, want one entry with limit=1", body["logs"])
	}
	newest := logs[0].(map[string]interface{})
	if newest["source_type"] != "question_correct" {
		t.Errorf("newest source_type = %v, want question_correct first", newest["source_type"])
	}
	if body["total_entries"] != float64(2) {
		t.Errorf("total_entries = %v, want 2", body["total_entries"])
	}
	if body["total_points_from_logs"] != float64(100) {
		t.Errorf("total_points_from_logs = %v, want 100", body["total_points_from_logs"])
	}
	if body["total_points_from_user"] != float64(100) {
		t.Errorf("total_points_from_user = %v, want 100", body["total_points_from_user"])
	}
	if body["match"] != true {
		t.Errorf("match = %v, want true", body["match"])
	}
}

func TestBadgeCatalogEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_badges.db")

	rec := doRequest(t, mux, http.MethodGet, "/students/1/rewards/badges", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}

	body := decodeBody(t, rec)
	badges, ok := body["badges"].([]interface{})
	if !ok {
		t.Fatalf("badges missing from response: %v", body)
	}
	if len(badges) != 12 {
		t.Fatalf("catalog has %d badges, want 12", len(badges))
	}

	first := badges[0].(map[string]interface{})
	if first["badge_type"] != "accuracy_ace" {
		t.Errorf("first badge = %v, want accuracy_ace", first["badge_type"])
	}
	for _, raw := range badges {
		badge := raw.(map[string]interface{})
		if badge["earned"] != false {
			t.Errorf("badge %v earned = %v for a new student, want false", badge["badge_type"], badge["earned"])
		}
		if badge["hint"] == "" {
			t.Errorf("badge %v has no hint", badge["badge_type"])
		}
	}
}

func TestReconciliationEndpoints(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, db := newTestMux(t, "test_handlers_reconcile.db")

	doRequest(t, mux, http.MethodPost, "/admin/students/1/adjustments", map[string]interface{}{
		"points":      300,
		"description": "Seed balance",
	})

	rec := doRequest(t, mux, http.MethodGet, "/admin/students/1/reconciliation", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["match"] != true {
		t.Errorf("clean state match = %v, want true", body["match"])
	}

	// Drift the stored total behind the ledger's back
	if _, err := db.Exec("UPDATE student_reward_states SET total_points = 999 WHERE student_id = ?", int64(1)); err != nil {
		t.Fatalf("Failed to corrupt total: %v", err)
	}

	rec = doRequest(t, mux, http.MethodGet, "/admin/students/1/reconciliation", nil)
	body := decodeBody(t, rec)
	if body["match"] != false {
		t.Errorf("drifted match = %v, want false", body["match"])
	}
	if body["stored_total"] != float64(999) {
		t.Errorf("stored_total = %v, want 999", body["stored_total"])
	}
	if body["ledger_sum"] != float64(300) {
		t.Errorf("ledger_sum = %v, want 300", body["ledger_sum"])
	}

	rebuild := doRequest(t, mux, http.MethodPost, "/admin/students/1/rebuild-total", nil)
	if rebuild.Code != http.StatusOK {
		t.Fatalf("rebuild status = %d, want %d", rebuild.Code, http.StatusOK)
	}
	rebuildBody := decodeBody(t, rebuild)
	if rebuildBody["corrected"] != true {
		t.Errorf("corrected = %v, want true", rebuildBody["corrected"])
	}
	if rebuildBody["ledger_sum"] != float64(300) {
		t.Errorf("rebuild ledger_sum = %v, want 300", rebuildBody["ledger_sum"])
	}

	rec = doRequest(t, mux, http.MethodGet, "/admin/students/1/reconciliation", nil)
	if body := decodeBody(t, rec); body["match"] != true {
		t.Errorf("post-rebuild match = %v, want true", body["match"])
	}
}

func TestEvaluateMonthlyEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	mux, _ := newTestMux(t, "test_handlers_evaluate.db")

	rec := doRequest(t, mux, http.MethodPost, "/admin/rewards/evaluate-monthly?month=2026-01", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["month"] != "2026-01" {
		t.Errorf("month = %v, want 2026-01", body["month"])
	}
	if body["students_evaluated"] != float64(0) {
		t.Errorf("students_evaluated = %v, want 0 for an empty month", body["students_evaluated"])
	}
	if runID, _ := body["run_id"].(string); runID == "" {
		t.Error("run_id is empty")
	}

	bad := doRequest(t, mux, http.MethodPost, "/admin/rewards/evaluate-monthly?month=2026-3", nil)
	if bad.Code != http.StatusBadRequest {
		t.Errorf("malformed month status = %d, want %d", bad.Code, http.StatusBadRequest)
	}
}
