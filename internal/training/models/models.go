package models

import (
	"time"

	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// SessionOutcome is the coarse result recorded when a training session ends.
type SessionOutcome string

const (
	OutcomePassed     SessionOutcome = "passed"
	OutcomeFailed     SessionOutcome = "failed"
	OutcomeIncomplete SessionOutcome = "incomplete"
)

// TrainingSession is a scheduled or completed range session for a tenant.
type TrainingSession struct {
	ID           id.SessionID
	TenantID     id.TenantID
	Name         string
	Kind         string
	ScenarioID   id.ScenarioID // optional
	StartAt      time.Time
	EndAt        *time.Time
	Outcome      SessionOutcome
	Score        float64
	Location     string
	Participants []id.UserID
	RecordingURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PerformanceMetric is one trainee's numbers for one session.
type PerformanceMetric struct {
	ID          id.MetricID
	TenantID    id.TenantID
	SessionID   id.SessionID
	UserID      id.UserID
	Accuracy    float64 // hit ratio, 0..1
	ReactionMs  float64
	StressScore float64
	ShotsFired  int
	Hits        int
	Notes       string

	CreatedAt time.Time
}

func NewTrainingSession(tenantID id.TenantID, name string, startAt time.Time, now time.Time) (*TrainingSession, error) {
	if tenantID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session must belong to a tenant")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session name cannot be empty")
	}
	return &TrainingSession{
		TenantID:  tenantID,
		Name:      name,
		StartAt:   startAt,
		Outcome:   OutcomeIncomplete,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func NewPerformanceMetric(tenantID id.TenantID, sessionID id.SessionID, userID id.UserID, now time.Time) (*PerformanceMetric, error) {
	if tenantID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "metric must belong to a tenant")
	}
	if sessionID == 0 || userID == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "metric requires a session and a user")
	}
	return &PerformanceMetric{
		TenantID:  tenantID,
		SessionID: sessionID,
		UserID:    userID,
		CreatedAt: now,
	}, nil
}
