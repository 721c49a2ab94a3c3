package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"vras/internal/sentinel"
	"vras/internal/training/models"
	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// TrainingStore defines persistence for sessions and their metrics.
// Error Contract: Find methods return sentinel.ErrNotFound (wrapped).
type TrainingStore interface {
	CreateSession(ctx context.Context, sess *models.TrainingSession) error
	UpdateSession(ctx context.Context, sess *models.TrainingSession) error
	FindSessionByID(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) (*models.TrainingSession, error)
	ListSessions(ctx context.Context, tenantID id.TenantID) ([]*models.TrainingSession, error)
	DeleteSession(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) error

	CreateMetric(ctx context.Context, m *models.PerformanceMetric) error
	UpdateMetric(ctx context.Context, m *models.PerformanceMetric) error
	FindMetricByID(ctx context.Context, tenantID id.TenantID, metricID id.MetricID) (*models.PerformanceMetric, error)
	ListMetrics(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) ([]*models.PerformanceMetric, error)
	DeleteMetric(ctx context.Context, tenantID id.TenantID, metricID id.MetricID) error
}

type Service struct {
	store  TrainingStore
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		svc.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

func NewService(store TrainingStore, opts ...Option) *Service {
	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

type SessionInput struct {
	Name         string
	Kind         string
	ScenarioID   id.ScenarioID
	StartAt      time.Time
	EndAt        *time.Time
	Outcome      string
	Score        float64
	Location     string
	Participants []id.UserID
	RecordingURL string
}

func (svc *Service) ListSessions(ctx context.Context, tenantID id.TenantID) ([]*models.TrainingSession, error) {
	sessions, err := svc.store.ListSessions(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list sessions")
	}
	return sessions, nil
}

func (svc *Service) GetSession(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) (*models.TrainingSession, error) {
	sess, err := svc.store.FindSessionByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "Session not found.", "find session")
	}
	return sess, nil
}

func (svc *Service) CreateSession(ctx context.Context, tenantID id.TenantID, in SessionInput) (*models.TrainingSession, error) {
	startAt := in.StartAt
	if startAt.IsZero() {
		startAt = svc.now()
	}
	sess, err := models.NewTrainingSession(tenantID, in.Name, startAt, svc.now())
	if err != nil {
		return nil, err
	}
	sess.Kind = in.Kind
	sess.ScenarioID = in.ScenarioID
	sess.EndAt = in.EndAt
	if in.Outcome != "" {
		sess.Outcome = models.SessionOutcome(in.Outcome)
	}
	sess.Score = in.Score
	sess.Location = in.Location
	sess.Participants = in.Participants
	sess.RecordingURL = in.RecordingURL

	if err := svc.store.CreateSession(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create session")
	}
	return sess, nil
}

func (svc *Service) UpdateSession(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID, in SessionInput) (*models.TrainingSession, error) {
	sess, err := svc.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		sess.Name = in.Name
	}
	if in.Kind != "" {
		sess.Kind = in.Kind
	}
	if in.ScenarioID != 0 {
		sess.ScenarioID = in.ScenarioID
	}
	if !in.StartAt.IsZero() {
		sess.StartAt = in.StartAt
	}
	if in.EndAt != nil {
		sess.EndAt = in.EndAt
	}
	if in.Outcome != "" {
		sess.Outcome = models.SessionOutcome(in.Outcome)
	}
	if in.Score != 0 {
		sess.Score = in.Score
	}
	if in.Location != "" {
		sess.Location = in.Location
	}
	if in.Participants != nil {
		sess.Participants = in.Participants
	}
	if in.RecordingURL != "" {
		sess.RecordingURL = in.RecordingURL
	}
	sess.UpdatedAt = svc.now()

	if err := svc.store.UpdateSession(ctx, sess); err != nil {
		return nil, notFoundOrInternal(err, "Session not found.", "update session")
	}
	return sess, nil
}

func (svc *Service) DeleteSession(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) error {
	if err := svc.store.DeleteSession(ctx, tenantID, sessionID); err != nil {
		return notFoundOrInternal(err, "Session not found.", "delete session")
	}
	return nil
}

type MetricInput struct {
	SessionID   id.SessionID
	UserID      id.UserID
	Accuracy    float64
	ReactionMs  float64
	StressScore float64
	ShotsFired  int
	Hits        int
	Notes       string
}

// ListMetrics returns the tenant's metrics, optionally filtered to one
// session (sessionID 0 means all).
func (svc *Service) ListMetrics(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) ([]*models.PerformanceMetric, error) {
	metrics, err := svc.store.ListMetrics(ctx, tenantID, sessionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list metrics")
	}
	return metrics, nil
}

func (svc *Service) GetMetric(ctx context.Context, tenantID id.TenantID, metricID id.MetricID) (*models.PerformanceMetric, error) {
	m, err := svc.store.FindMetricByID(ctx, tenantID, metricID)
	if err != nil {
		return nil, notFoundOrInternal(err, "Metric not found.", "find metric")
	}
	return m, nil
}

func (svc *Service) CreateMetric(ctx context.Context, tenantID id.TenantID, in MetricInput) (*models.PerformanceMetric, error) {
	// the session must exist and belong to the tenant
	if _, err := svc.GetSession(ctx, tenantID, in.SessionID); err != nil {
		return nil, err
	}
	m, err := models.NewPerformanceMetric(tenantID, in.SessionID, in.UserID, svc.now())
	if err != nil {
		return nil, err
	}
	m.Accuracy = in.Accuracy
	m.ReactionMs = in.ReactionMs
	m.StressScore = in.StressScore
	m.ShotsFired = in.ShotsFired
	m.Hits = in.Hits
	m.Notes = in.Notes

	if err := svc.store.CreateMetric(ctx, m); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create metric")
	}
	return m, nil
}

func (svc *Service) UpdateMetric(ctx context.Context, tenantID id.TenantID, metricID id.MetricID, in MetricInput) (*models.PerformanceMetric, error) {
	m, err := svc.GetMetric(ctx, tenantID, metricID)
	if err != nil {
		return nil, err
	}
	if in.Accuracy != 0 {
		m.Accuracy = in.Accuracy
	}
	if in.ReactionMs != 0 {
		m.ReactionMs = in.ReactionMs
	}
	if in.StressScore != 0 {
		m.StressScore = in.StressScore
	}
	if in.ShotsFired != 0 {
		m.ShotsFired = in.ShotsFired
	}
	if in.Hits != 0 {
		m.Hits = in.Hits
	}
	if in.Notes != "" {
		m.Notes = in.Notes
	}

	if err := svc.store.UpdateMetric(ctx, m); err != nil {
		return nil, notFoundOrInternal(err, "Metric not found.", "update metric")
	}
	return m, nil
}

func (svc *Service) DeleteMetric(ctx context.Context, tenantID id.TenantID, metricID id.MetricID) error {
	if err := svc.store.DeleteMetric(ctx, tenantID, metricID); err != nil {
		return notFoundOrInternal(err, "Metric not found.", "delete metric")
	}
	return nil
}

var exportHeader = []string{
	"metric_id", "session_id", "session_name", "user_id",
	"accuracy", "reaction_ms", "stress_score", "shots_fired", "hits", "notes", "recorded_at",
}

// ExportMetricsCSV streams the tenant's metrics (optionally filtered to one
// session) as CSV. Session names are resolved so the export is readable
// without a second lookup.
func (svc *Service) ExportMetricsCSV(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID, w io.Writer) error {
	metrics, err := svc.ListMetrics(ctx, tenantID, sessionID)
	if err != nil {
		return err
	}

	names := make(map[id.SessionID]string)
	sessions, err := svc.store.ListSessions(ctx, tenantID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list sessions for export")
	}
	for _, sess := range sessions {
		names[sess.ID] = sess.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "write export header")
	}
	for _, m := range metrics {
		record := []string{
			m.ID.String(),
			m.SessionID.String(),
			names[m.SessionID],
			m.UserID.String(),
			formatFloat(m.Accuracy),
			formatFloat(m.ReactionMs),
			formatFloat(m.StressScore),
			strconv.Itoa(m.ShotsFired),
			strconv.Itoa(m.Hits),
			m.Notes,
			m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "write export row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "flush export")
	}
	return nil
}

// ExportFilename names the download with the export date baked in.
func (svc *Service) ExportFilename() string {
	return fmt.Sprintf("performance-metrics-%s.csv", svc.now().UTC().Format("2006-01-02"))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func notFoundOrInternal(err error, message, op string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, message)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op)
}
