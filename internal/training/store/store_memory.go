package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vras/internal/sentinel"
	"vras/internal/training/models"
	id "vras/pkg/domain"
)

// InMemoryStore keeps training sessions and performance metrics in memory for
// tests and dev. Both are tenant-scoped; every lookup takes the tenant so
// cross-tenant reads cannot happen by accident.
type InMemoryStore struct {
	mu          sync.RWMutex
	nextSession int64
	nextMetric  int64
	sessions    map[id.SessionID]*models.TrainingSession
	metrics     map[id.MetricID]*models.PerformanceMetric
}

func New() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[id.SessionID]*models.TrainingSession),
		metrics:  make(map[id.MetricID]*models.PerformanceMetric),
	}
}

func (s *InMemoryStore) CreateSession(_ context.Context, sess *models.TrainingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSession++
	sess.ID = id.SessionID(s.nextSession)
	c := copySession(sess)
	s.sessions[sess.ID] = c
	return nil
}

func (s *InMemoryStore) UpdateSession(_ context.Context, sess *models.TrainingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[sess.ID]
	if !ok || existing.TenantID != sess.TenantID {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *InMemoryStore) FindSessionByID(_ context.Context, tenantID id.TenantID, sessionID id.SessionID) (*models.TrainingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[sessionID]; ok && sess.TenantID == tenantID {
		return copySession(sess), nil
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListSessions(_ context.Context, tenantID id.TenantID) ([]*models.TrainingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*models.TrainingSession, 0)
	for _, sess := range s.sessions {
		if sess.TenantID == tenantID {
			sessions = append(sessions, copySession(sess))
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions, nil
}

func (s *InMemoryStore) DeleteSession(_ context.Context, tenantID id.TenantID, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.TenantID != tenantID {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	delete(s.sessions, sessionID)
	for metricID, m := range s.metrics {
		if m.SessionID == sessionID {
			delete(s.metrics, metricID)
		}
	}
	return nil
}

func (s *InMemoryStore) CreateMetric(_ context.Context, m *models.PerformanceMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMetric++
	m.ID = id.MetricID(s.nextMetric)
	c := *m
	s.metrics[m.ID] = &c
	return nil
}

func (s *InMemoryStore) UpdateMetric(_ context.Context, m *models.PerformanceMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.metrics[m.ID]
	if !ok || existing.TenantID != m.TenantID {
		return fmt.Errorf("metric not found: %w", sentinel.ErrNotFound)
	}
	c := *m
	s.metrics[m.ID] = &c
	return nil
}

func (s *InMemoryStore) FindMetricByID(_ context.Context, tenantID id.TenantID, metricID id.MetricID) (*models.PerformanceMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.metrics[metricID]; ok && m.TenantID == tenantID {
		c := *m
		return &c, nil
	}
	return nil, fmt.Errorf("metric not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListMetrics(_ context.Context, tenantID id.TenantID, sessionID id.SessionID) ([]*models.PerformanceMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metrics := make([]*models.PerformanceMetric, 0)
	for _, m := range s.metrics {
		if m.TenantID != tenantID {
			continue
		}
		if sessionID != 0 && m.SessionID != sessionID {
			continue
		}
		c := *m
		metrics = append(metrics, &c)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].ID < metrics[j].ID })
	return metrics, nil
}

func (s *InMemoryStore) DeleteMetric(_ context.Context, tenantID id.TenantID, metricID id.MetricID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[metricID]
	if !ok || m.TenantID != tenantID {
		return fmt.Errorf("metric not found: %w", sentinel.ErrNotFound)
	}
	delete(s.metrics, metricID)
	return nil
}

func copySession(sess *models.TrainingSession) *models.TrainingSession {
	c := *sess
	if sess.EndAt != nil {
		end := *sess.EndAt
		c.EndAt = &end
	}
	c.Participants = append([]id.UserID(nil), sess.Participants...)
	return &c
}
