package store

import (
	"context"
	"fmt"
	"sync"

	"vras/internal/catalog/models"
	"vras/internal/sentinel"
	id "vras/pkg/domain"
)

// InMemoryStore keeps catalog entries in memory for tests and dev. Weapons
// are platform-global; targets and scenarios are tenant-scoped, and every
// scoped lookup takes the tenant so cross-tenant reads cannot happen by
// accident.
type InMemoryStore struct {
	mu           sync.RWMutex
	nextWeapon   int64
	nextTarget   int64
	nextScenario int64
	weapons      map[id.WeaponID]*models.Weapon
	targets      map[id.TargetID]*models.Target
	scenarios    map[id.ScenarioID]*models.Scenario
}

func New() *InMemoryStore {
	return &InMemoryStore{
		weapons:   make(map[id.WeaponID]*models.Weapon),
		targets:   make(map[id.TargetID]*models.Target),
		scenarios: make(map[id.ScenarioID]*models.Scenario),
	}
}

func (s *InMemoryStore) CreateWeapon(_ context.Context, w *models.Weapon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.weapons {
		if existing.Name == w.Name {
			return fmt.Errorf("weapon name taken: %w", sentinel.ErrAlreadyUsed)
		}
	}
	s.nextWeapon++
	w.ID = id.WeaponID(s.nextWeapon)
	c := *w
	s.weapons[w.ID] = &c
	return nil
}

func (s *InMemoryStore) UpdateWeapon(_ context.Context, w *models.Weapon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.weapons[w.ID]; !ok {
		return fmt.Errorf("weapon not found: %w", sentinel.ErrNotFound)
	}
	c := *w
	s.weapons[w.ID] = &c
	return nil
}

func (s *InMemoryStore) FindWeaponByID(_ context.Context, weaponID id.WeaponID) (*models.Weapon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.weapons[weaponID]; ok {
		c := *w
		return &c, nil
	}
	return nil, fmt.Errorf("weapon not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListWeapons(_ context.Context) ([]*models.Weapon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	weapons := make([]*models.Weapon, 0, len(s.weapons))
	for _, w := range s.weapons {
		c := *w
		weapons = append(weapons, &c)
	}
	return weapons, nil
}

func (s *InMemoryStore) DeleteWeapon(_ context.Context, weaponID id.WeaponID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.weapons[weaponID]; !ok {
		return fmt.Errorf("weapon not found: %w", sentinel.ErrNotFound)
	}
	delete(s.weapons, weaponID)
	return nil
}

func (s *InMemoryStore) CreateTarget(_ context.Context, tg *models.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.targets {
		if existing.TenantID == tg.TenantID && existing.Name == tg.Name {
			return fmt.Errorf("target name taken: %w", sentinel.ErrAlreadyUsed)
		}
	}
	s.nextTarget++
	tg.ID = id.TargetID(s.nextTarget)
	c := *tg
	s.targets[tg.ID] = &c
	return nil
}

func (s *InMemoryStore) UpdateTarget(_ context.Context, tg *models.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.targets[tg.ID]
	if !ok || existing.TenantID != tg.TenantID {
		return fmt.Errorf("target not found: %w", sentinel.ErrNotFound)
	}
	c := *tg
	s.targets[tg.ID] = &c
	return nil
}

func (s *InMemoryStore) FindTargetByID(_ context.Context, tenantID id.TenantID, targetID id.TargetID) (*models.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tg, ok := s.targets[targetID]; ok && tg.TenantID == tenantID {
		c := *tg
		return &c, nil
	}
	return nil, fmt.Errorf("target not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListTargets(_ context.Context, tenantID id.TenantID) ([]*models.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	targets := make([]*models.Target, 0)
	for _, tg := range s.targets {
		if tg.TenantID == tenantID {
			c := *tg
			targets = append(targets, &c)
		}
	}
	return targets, nil
}

func (s *InMemoryStore) DeleteTarget(_ context.Context, tenantID id.TenantID, targetID id.TargetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tg, ok := s.targets[targetID]
	if !ok || tg.TenantID != tenantID {
		return fmt.Errorf("target not found: %w", sentinel.ErrNotFound)
	}
	delete(s.targets, targetID)
	return nil
}

func (s *InMemoryStore) CreateScenario(_ context.Context, sc *models.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.scenarios {
		if existing.TenantID == sc.TenantID && existing.Name == sc.Name {
			return fmt.Errorf("scenario name taken: %w", sentinel.ErrAlreadyUsed)
		}
	}
	s.nextScenario++
	sc.ID = id.ScenarioID(s.nextScenario)
	c := *sc
	s.scenarios[sc.ID] = &c
	return nil
}

func (s *InMemoryStore) UpdateScenario(_ context.Context, sc *models.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.scenarios[sc.ID]
	if !ok || existing.TenantID != sc.TenantID {
		return fmt.Errorf("scenario not found: %w", sentinel.ErrNotFound)
	}
	c := *sc
	s.scenarios[sc.ID] = &c
	return nil
}

func (s *InMemoryStore) FindScenarioByID(_ context.Context, tenantID id.TenantID, scenarioID id.ScenarioID) (*models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.scenarios[scenarioID]; ok && sc.TenantID == tenantID {
		c := *sc
		return &c, nil
	}
	return nil, fmt.Errorf("scenario not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListScenarios(_ context.Context, tenantID id.TenantID) ([]*models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scenarios := make([]*models.Scenario, 0)
	for _, sc := range s.scenarios {
		if sc.TenantID == tenantID {
			c := *sc
			scenarios = append(scenarios, &c)
		}
	}
	return scenarios, nil
}

func (s *InMemoryStore) DeleteScenario(_ context.Context, tenantID id.TenantID, scenarioID id.ScenarioID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scenarios[scenarioID]
	if !ok || sc.TenantID != tenantID {
		return fmt.Errorf("scenario not found: %w", sentinel.ErrNotFound)
	}
	delete(s.scenarios, scenarioID)
	return nil
}
