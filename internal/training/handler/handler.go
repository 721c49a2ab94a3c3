package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authMiddleware "vras/internal/auth/middleware"
	"vras/internal/training/models"
	"vras/internal/training/service"
	httpError "vras/internal/transport/http/error"
	jsonResponse "vras/internal/transport/http/json"
	"vras/internal/transport/http/request"
	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// TrainingService defines the session and metric operations the handlers
// invoke.
type TrainingService interface {
	ListSessions(ctx context.Context, tenantID id.TenantID) ([]*models.TrainingSession, error)
	GetSession(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) (*models.TrainingSession, error)
	CreateSession(ctx context.Context, tenantID id.TenantID, in service.SessionInput) (*models.TrainingSession, error)
	UpdateSession(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID, in service.SessionInput) (*models.TrainingSession, error)
	DeleteSession(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) error

	ListMetrics(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) ([]*models.PerformanceMetric, error)
	GetMetric(ctx context.Context, tenantID id.TenantID, metricID id.MetricID) (*models.PerformanceMetric, error)
	CreateMetric(ctx context.Context, tenantID id.TenantID, in service.MetricInput) (*models.PerformanceMetric, error)
	UpdateMetric(ctx context.Context, tenantID id.TenantID, metricID id.MetricID, in service.MetricInput) (*models.PerformanceMetric, error)
	DeleteMetric(ctx context.Context, tenantID id.TenantID, metricID id.MetricID) error

	ExportMetricsCSV(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID, w io.Writer) error
	ExportFilename() string
}

type Handler struct {
	service TrainingService
	logger  *slog.Logger
}

func New(svc TrainingService, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// RegisterTenant mounts training sessions and performance metrics; the
// caller mounts the group behind the auth gate.
func (h *Handler) RegisterTenant(r chi.Router) {
	r.Get("/sessions", h.HandleListSessions)
	r.Post("/sessions", h.HandleCreateSession)
	r.Get("/sessions/{id}", h.HandleGetSession)
	r.Put("/sessions/{id}", h.HandleUpdateSession)
	r.Delete("/sessions/{id}", h.HandleDeleteSession)

	r.Get("/performance-metrics", h.HandleListMetrics)
	r.Post("/performance-metrics", h.HandleCreateMetric)
	r.Get("/performance-metrics/export", h.HandleExportMetrics)
	r.Get("/performance-metrics/{id}", h.HandleGetMetric)
	r.Put("/performance-metrics/{id}", h.HandleUpdateMetric)
	r.Delete("/performance-metrics/{id}", h.HandleDeleteMetric)
}

const timestampLayout = "2006-01-02T15:04:05Z07:00"

type SessionRequest struct {
	Name         string  `json:"name" validate:"required,notblank"`
	Kind         string  `json:"kind"`
	ScenarioID   int64   `json:"scenario_id" validate:"min=0"`
	StartAt      string  `json:"start_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndAt        string  `json:"end_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Outcome      string  `json:"outcome" validate:"omitempty,oneof=passed failed incomplete"`
	Score        float64 `json:"score" validate:"min=0"`
	Location     string  `json:"location"`
	Participants []int64 `json:"participants" validate:"dive,min=1"`
	RecordingURL string  `json:"recording_url"`
}

type UpdateSessionRequest struct {
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	ScenarioID   int64   `json:"scenario_id" validate:"min=0"`
	StartAt      string  `json:"start_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndAt        string  `json:"end_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Outcome      string  `json:"outcome" validate:"omitempty,oneof=passed failed incomplete"`
	Score        float64 `json:"score" validate:"min=0"`
	Location     string  `json:"location"`
	Participants []int64 `json:"participants" validate:"omitempty,dive,min=1"`
	RecordingURL string  `json:"recording_url"`
}

type MetricRequest struct {
	SessionID   int64   `json:"session_id" validate:"required,min=1"`
	UserID      int64   `json:"user_id" validate:"required,min=1"`
	Accuracy    float64 `json:"accuracy" validate:"min=0,max=1"`
	ReactionMs  float64 `json:"reaction_ms" validate:"min=0"`
	StressScore float64 `json:"stress_score" validate:"min=0"`
	ShotsFired  int     `json:"shots_fired" validate:"min=0"`
	Hits        int     `json:"hits" validate:"min=0"`
	Notes       string  `json:"notes"`
}

type UpdateMetricRequest struct {
	Accuracy    float64 `json:"accuracy" validate:"min=0,max=1"`
	ReactionMs  float64 `json:"reaction_ms" validate:"min=0"`
	StressScore float64 `json:"stress_score" validate:"min=0"`
	ShotsFired  int     `json:"shots_fired" validate:"min=0"`
	Hits        int     `json:"hits" validate:"min=0"`
	Notes       string  `json:"notes"`
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	sessions, err := h.service.ListSessions(r.Context(), principal)
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Sessions fetched.", map[string]any{"sessions": toSessionResponses(sessions)})
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[SessionRequest](w, r)
	if !ok {
		return
	}
	sess, err := h.service.CreateSession(r.Context(), principal, sessionInput(
		req.Name, req.Kind, req.ScenarioID, req.StartAt, req.EndAt,
		req.Outcome, req.Score, req.Location, req.Participants, req.RecordingURL))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusCreated, "Session created successfully.", toSessionResponse(sess))
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}
	sess, err := h.service.GetSession(r.Context(), principal, id.SessionID(sessionID))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Session fetched.", toSessionResponse(sess))
}

func (h *Handler) HandleUpdateSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[UpdateSessionRequest](w, r)
	if !ok {
		return
	}
	sess, err := h.service.UpdateSession(r.Context(), principal, id.SessionID(sessionID), sessionInput(
		req.Name, req.Kind, req.ScenarioID, req.StartAt, req.EndAt,
		req.Outcome, req.Score, req.Location, req.Participants, req.RecordingURL))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Session updated successfully.", toSessionResponse(sess))
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSession(r.Context(), principal, id.SessionID(sessionID)); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Session deleted successfully.", nil)
}

func (h *Handler) HandleListMetrics(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	sessionID, ok := querySessionID(w, r)
	if !ok {
		return
	}
	metrics, err := h.service.ListMetrics(r.Context(), principal, sessionID)
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Metrics fetched.", map[string]any{"metrics": toMetricResponses(metrics)})
}

func (h *Handler) HandleCreateMetric(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[MetricRequest](w, r)
	if !ok {
		return
	}
	m, err := h.service.CreateMetric(r.Context(), principal, service.MetricInput{
		SessionID:   id.SessionID(req.SessionID),
		UserID:      id.UserID(req.UserID),
		Accuracy:    req.Accuracy,
		ReactionMs:  req.ReactionMs,
		StressScore: req.StressScore,
		ShotsFired:  req.ShotsFired,
		Hits:        req.Hits,
		Notes:       req.Notes,
	})
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusCreated, "Metric created successfully.", toMetricResponse(m))
}

func (h *Handler) HandleGetMetric(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	metricID, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetMetric(r.Context(), principal, id.MetricID(metricID))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Metric fetched.", toMetricResponse(m))
}

func (h *Handler) HandleUpdateMetric(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	metricID, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[UpdateMetricRequest](w, r)
	if !ok {
		return
	}
	m, err := h.service.UpdateMetric(r.Context(), principal, id.MetricID(metricID), service.MetricInput{
		Accuracy:    req.Accuracy,
		ReactionMs:  req.ReactionMs,
		StressScore: req.StressScore,
		ShotsFired:  req.ShotsFired,
		Hits:        req.Hits,
		Notes:       req.Notes,
	})
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Metric updated successfully.", toMetricResponse(m))
}

func (h *Handler) HandleDeleteMetric(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	metricID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteMetric(r.Context(), principal, id.MetricID(metricID)); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Metric deleted successfully.", nil)
}

// HandleExportMetrics streams the tenant's metrics as a CSV download. An
// optional session_id query parameter narrows the export to one session.
func (h *Handler) HandleExportMetrics(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	sessionID, ok := querySessionID(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.service.ExportFilename()))
	if err := h.service.ExportMetricsCSV(r.Context(), principal, sessionID, w); err != nil {
		// headers are out already; log and cut the stream short
		h.logger.Error("metric export failed", slog.String("error", err.Error()))
	}
}

func sessionInput(name, kind string, scenarioID int64, startAt, endAt, outcome string, score float64, location string, participants []int64, recordingURL string) service.SessionInput {
	in := service.SessionInput{
		Name:         name,
		Kind:         kind,
		ScenarioID:   id.ScenarioID(scenarioID),
		Outcome:      outcome,
		Score:        score,
		Location:     location,
		RecordingURL: recordingURL,
	}
	// layouts are validated upstream, Parse cannot fail here
	if startAt != "" {
		in.StartAt, _ = time.Parse(timestampLayout, startAt)
	}
	if endAt != "" {
		end, _ := time.Parse(timestampLayout, endAt)
		in.EndAt = &end
	}
	if participants != nil {
		in.Participants = make([]id.UserID, 0, len(participants))
		for _, userID := range participants {
			in.Participants = append(in.Participants, id.UserID(userID))
		}
	}
	return in
}

func principal(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	user, ok := authMiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return 0, false
	}
	return user.TenantID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw, err := id.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid id."))
		return 0, false
	}
	return raw, true
}

func querySessionID(w http.ResponseWriter, r *http.Request) (id.SessionID, bool) {
	raw := r.URL.Query().Get("session_id")
	if raw == "" {
		return 0, true
	}
	parsed, err := id.ParseID(raw)
	if err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid session_id."))
		return 0, false
	}
	return id.SessionID(parsed), true
}

type SessionResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Kind         string  `json:"kind,omitempty"`
	ScenarioID   int64   `json:"scenario_id,omitempty"`
	StartAt      string  `json:"start_at"`
	EndAt        string  `json:"end_at,omitempty"`
	Outcome      string  `json:"outcome"`
	Score        float64 `json:"score"`
	Location     string  `json:"location,omitempty"`
	Participants []int64 `json:"participants"`
	RecordingURL string  `json:"recording_url,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toSessionResponse(sess *models.TrainingSession) SessionResponse {
	resp := SessionResponse{
		ID:           sess.ID.Int64(),
		Name:         sess.Name,
		Kind:         sess.Kind,
		ScenarioID:   sess.ScenarioID.Int64(),
		StartAt:      sess.StartAt.UTC().Format(time.RFC3339),
		Outcome:      string(sess.Outcome),
		Score:        sess.Score,
		Location:     sess.Location,
		Participants: make([]int64, 0, len(sess.Participants)),
		RecordingURL: sess.RecordingURL,
		CreatedAt:    sess.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    sess.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if sess.EndAt != nil {
		resp.EndAt = sess.EndAt.UTC().Format(time.RFC3339)
	}
	for _, userID := range sess.Participants {
		resp.Participants = append(resp.Participants, userID.Int64())
	}
	return resp
}

func toSessionResponses(sessions []*models.TrainingSession) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionResponse(sess))
	}
	return out
}

type MetricResponse struct {
	ID          int64   `json:"id"`
	SessionID   int64   `json:"session_id"`
	UserID      int64   `json:"user_id"`
	Accuracy    float64 `json:"accuracy"`
	ReactionMs  float64 `json:"reaction_ms"`
	StressScore float64 `json:"stress_score"`
	ShotsFired  int     `json:"shots_fired"`
	Hits        int     `json:"hits"`
	Notes       string  `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toMetricResponse(m *models.PerformanceMetric) MetricResponse {
	return MetricResponse{
		ID:          m.ID.Int64(),
		SessionID:   m.SessionID.Int64(),
		UserID:      m.UserID.Int64(),
		Accuracy:    m.Accuracy,
		ReactionMs:  m.ReactionMs,
		StressScore: m.StressScore,
		ShotsFired:  m.ShotsFired,
		Hits:        m.Hits,
		Notes:       m.Notes,
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toMetricResponses(metrics []*models.PerformanceMetric) []MetricResponse {
	out := make([]MetricResponse, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, toMetricResponse(m))
	}
	return out
}
