package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vras/internal/sentinel"
	"vras/internal/training/models"
	id "vras/pkg/domain"
)

// PostgresStore persists training sessions and performance metrics in
// PostgreSQL. Participants are kept as a JSONB array of user ids on the
// session row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, tenant_id, name, kind, COALESCE(scenario_id, 0), start_at, end_at,
	outcome, score, location, participants, recording_url, created_at, updated_at`

func (s *PostgresStore) CreateSession(ctx context.Context, sess *models.TrainingSession) error {
	participants, err := json.Marshal(sess.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO training_sessions (tenant_id, name, kind, scenario_id, start_at, end_at,
			outcome, score, location, participants, recording_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id`,
		sess.TenantID.Int64(), sess.Name, sess.Kind, nullScenario(sess.ScenarioID),
		sess.StartAt, sess.EndAt, sess.Outcome, sess.Score, sess.Location,
		participants, sess.RecordingURL, sess.CreatedAt, sess.UpdatedAt)
	var sessionID int64
	if err := row.Scan(&sessionID); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	sess.ID = id.SessionID(sessionID)
	return nil
}

func (s *PostgresStore) UpdateSession(ctx context.Context, sess *models.TrainingSession) error {
	participants, err := json.Marshal(sess.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE training_sessions SET name = $3, kind = $4, scenario_id = $5, start_at = $6,
			end_at = $7, outcome = $8, score = $9, location = $10, participants = $11,
			recording_url = $12, updated_at = $13
		WHERE id = $1 AND tenant_id = $2`,
		sess.ID.Int64(), sess.TenantID.Int64(), sess.Name, sess.Kind, nullScenario(sess.ScenarioID),
		sess.StartAt, sess.EndAt, sess.Outcome, sess.Score, sess.Location,
		participants, sess.RecordingURL, time.Now())
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return checkAffected(res, "session")
}

func (s *PostgresStore) FindSessionByID(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) (*models.TrainingSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM training_sessions WHERE id = $1 AND tenant_id = $2`, sessionID.Int64(), tenantID.Int64())
	return scanSession(row)
}

func (s *PostgresStore) ListSessions(ctx context.Context, tenantID id.TenantID) ([]*models.TrainingSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM training_sessions WHERE tenant_id = $1 ORDER BY id`, tenantID.Int64())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.TrainingSession, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) DeleteSession(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM training_sessions WHERE id = $1 AND tenant_id = $2`, sessionID.Int64(), tenantID.Int64())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return checkAffected(res, "session")
}

const metricColumns = `id, tenant_id, session_id, user_id, accuracy, reaction_ms, stress_score,
	shots_fired, hits, notes, created_at`

func (s *PostgresStore) CreateMetric(ctx context.Context, m *models.PerformanceMetric) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO performance_metrics (tenant_id, session_id, user_id, accuracy, reaction_ms,
			stress_score, shots_fired, hits, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`,
		m.TenantID.Int64(), m.SessionID.Int64(), m.UserID.Int64(), m.Accuracy, m.ReactionMs,
		m.StressScore, m.ShotsFired, m.Hits, m.Notes, m.CreatedAt)
	var metricID int64
	if err := row.Scan(&metricID); err != nil {
		return fmt.Errorf("create metric: %w", err)
	}
	m.ID = id.MetricID(metricID)
	return nil
}

func (s *PostgresStore) UpdateMetric(ctx context.Context, m *models.PerformanceMetric) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE performance_metrics SET accuracy = $3, reaction_ms = $4, stress_score = $5,
			shots_fired = $6, hits = $7, notes = $8
		WHERE id = $1 AND tenant_id = $2`,
		m.ID.Int64(), m.TenantID.Int64(), m.Accuracy, m.ReactionMs, m.StressScore,
		m.ShotsFired, m.Hits, m.Notes)
	if err != nil {
		return fmt.Errorf("update metric: %w", err)
	}
	return checkAffected(res, "metric")
}

func (s *PostgresStore) FindMetricByID(ctx context.Context, tenantID id.TenantID, metricID id.MetricID) (*models.PerformanceMetric, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+metricColumns+`
		FROM performance_metrics WHERE id = $1 AND tenant_id = $2`, metricID.Int64(), tenantID.Int64())
	return scanMetric(row)
}

func (s *PostgresStore) ListMetrics(ctx context.Context, tenantID id.TenantID, sessionID id.SessionID) ([]*models.PerformanceMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+metricColumns+`
		FROM performance_metrics
		WHERE tenant_id = $1 AND ($2 = 0 OR session_id = $2)
		ORDER BY id`, tenantID.Int64(), sessionID.Int64())
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	metrics := make([]*models.PerformanceMetric, 0)
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

func (s *PostgresStore) DeleteMetric(ctx context.Context, tenantID id.TenantID, metricID id.MetricID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM performance_metrics WHERE id = $1 AND tenant_id = $2`, metricID.Int64(), tenantID.Int64())
	if err != nil {
		return fmt.Errorf("delete metric: %w", err)
	}
	return checkAffected(res, "metric")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.TrainingSession, error) {
	var (
		sess         models.TrainingSession
		participants []byte
	)
	err := row.Scan(&sess.ID, &sess.TenantID, &sess.Name, &sess.Kind, &sess.ScenarioID,
		&sess.StartAt, &sess.EndAt, &sess.Outcome, &sess.Score, &sess.Location,
		&participants, &sess.RecordingURL, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &sess.Participants); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
	}
	return &sess, nil
}

func scanMetric(row rowScanner) (*models.PerformanceMetric, error) {
	var m models.PerformanceMetric
	err := row.Scan(&m.ID, &m.TenantID, &m.SessionID, &m.UserID, &m.Accuracy, &m.ReactionMs,
		&m.StressScore, &m.ShotsFired, &m.Hits, &m.Notes, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("metric not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan metric: %w", err)
	}
	return &m, nil
}

func checkAffected(res sql.Result, entity string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s not found: %w", entity, sentinel.ErrNotFound)
	}
	return nil
}

func nullScenario(scenarioID id.ScenarioID) any {
	if scenarioID == 0 {
		return nil
	}
	return scenarioID.Int64()
}
