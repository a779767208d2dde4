// Package store provides storage backends for the usage-limiting and
// restriction engine.
//
// This file implements the in-memory store used by tests and by hosts that
// do not need persistence.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
)

// InMemoryStore is a mutex-guarded map-backed Store.
type InMemoryStore struct {
	mu           sync.RWMutex
	restrictions map[string]models.RestrictionDefinition
	limits       map[string]models.ProgressiveLimit
	milestones   map[string]models.ProgressiveMilestone
	sessions     map[string]models.FocusSession
	usage        map[string]map[string]int64 // package -> day (YYYY-MM-DD) -> millis
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		restrictions: make(map[string]models.RestrictionDefinition),
		limits:       make(map[string]models.ProgressiveLimit),
		milestones:   make(map[string]models.ProgressiveMilestone),
		sessions:     make(map[string]models.FocusSession),
		usage:        make(map[string]map[string]int64),
	}
}

func (s *InMemoryStore) SaveRestriction(def models.RestrictionDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restrictions[def.ID] = def
	return nil
}

func (s *InMemoryStore) GetRestriction(id string) (*models.RestrictionDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.restrictions[id]
	if !ok {
		return nil, nil
	}
	return &def, nil
}

func (s *InMemoryStore) ListRestrictions() ([]models.RestrictionDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := make([]models.RestrictionDefinition, 0, len(s.restrictions))
	for _, def := range s.restrictions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].CreatedAt.Before(defs[j].CreatedAt) })
	return defs, nil
}

func (s *InMemoryStore) DeleteRestriction(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.restrictions, id)
	return nil
}

func (s *InMemoryStore) SaveProgressiveLimit(limit models.ProgressiveLimit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[limit.ID] = limit
	return nil
}

func (s *InMemoryStore) GetProgressiveLimit(id string) (*models.ProgressiveLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit, ok := s.limits[id]
	if !ok {
		return nil, nil
	}
	return &limit, nil
}

func (s *InMemoryStore) GetActiveLimitForPackage(packageName string) (*models.ProgressiveLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, limit := range s.limits {
		if limit.IsActive && limit.PackageName == packageName {
			l := limit
			return &l, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListActiveLimits() ([]models.ProgressiveLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var limits []models.ProgressiveLimit
	for _, limit := range s.limits {
		if limit.IsActive {
			limits = append(limits, limit)
		}
	}
	sort.Slice(limits, func(i, j int) bool { return limits[i].PackageName < limits[j].PackageName })
	return limits, nil
}

func (s *InMemoryStore) SaveMilestone(m models.ProgressiveMilestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.milestones[m.ID] = m
	return nil
}

func (s *InMemoryStore) GetMilestone(id string) (*models.ProgressiveMilestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.milestones[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *InMemoryStore) ListMilestonesForLimit(limitID string) ([]models.ProgressiveMilestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ms []models.ProgressiveMilestone
	for _, m := range s.milestones {
		if m.LimitID == limitID {
			ms = append(ms, m)
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].Percentage < ms[j].Percentage })
	return ms, nil
}

func (s *InMemoryStore) ListUncelebratedMilestones() ([]models.ProgressiveMilestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ms []models.ProgressiveMilestone
	for _, m := range s.milestones {
		if m.IsAchieved && !m.CelebrationShown {
			ms = append(ms, m)
		}
	}
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].LimitID != ms[j].LimitID {
			return ms[i].LimitID < ms[j].LimitID
		}
		return ms[i].Percentage < ms[j].Percentage
	})
	return ms, nil
}

func (s *InMemoryStore) SaveFocusSession(session models.FocusSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *InMemoryStore) GetOpenFocusSession() (*models.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.IsOpen() {
			sess := session
			return &sess, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListFocusSessionsBetween(start, end time.Time) ([]models.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []models.FocusSession
	for _, session := range s.sessions {
		if !session.StartTime.Before(start) && session.StartTime.Before(end) {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartTime.Before(sessions[j].StartTime) })
	return sessions, nil
}

func (s *InMemoryStore) RecordAppUsage(sample models.AppUsageSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := sample.Day.Format(dayFormat)
	if s.usage[sample.PackageName] == nil {
		s.usage[sample.PackageName] = make(map[string]int64)
	}
	s.usage[sample.PackageName][day] = sample.UsageMillis
	return nil
}

func (s *InMemoryStore) AverageUsageLast7Days(packageName string, asOf time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	days := s.usage[packageName]
	if len(days) == 0 {
		return 0, nil
	}
	var total int64
	for i := 1; i <= usageWindowDays; i++ {
		day := asOf.AddDate(0, 0, -i).Format(dayFormat)
		total += days[day]
	}
	return total / usageWindowDays, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
