// Package restriction provides the store-backed restriction manager.
package restriction

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/clock"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/store"
)

// Manager owns the set of restriction definitions and answers blocking
// queries against them. Reads are snapshots of the store; definition
// writes hold writeMu so each read-modify-write is atomic.
type Manager struct {
	store store.Store
	clock clock.Clock

	// writeMu serializes definition mutations.
	writeMu sync.Mutex
}

// NewManager creates a restriction manager backed by st, reading time from clk.
func NewManager(st store.Store, clk clock.Clock) *Manager {
	slog.Debug("Creating restriction Manager")
	return &Manager{store: st, clock: clk}
}

// IsBlocked reports whether packageName is blocked by any restriction active
// right now. A storage failure degrades to "not blocked" (fail open): a
// tracker mistakenly granting access is less harmful than breaking the
// host's foreground-app check. The failure is logged as a warning.
func (m *Manager) IsBlocked(packageName string) bool {
	return m.IsBlockedAt(packageName, m.clock.Now())
}

// IsBlockedAt reports whether packageName is blocked at the given instant.
func (m *Manager) IsBlockedAt(packageName string, at time.Time) bool {
	defs, err := m.store.ListRestrictions()
	if err != nil {
		slog.Warn("Manager IsBlockedAt failing open: restriction lookup failed", "error", err, "package", packageName)
		return false
	}
	for _, def := range defs {
		if !IsActiveAt(def, at) {
			continue
		}
		if def.BlocksPackage(packageName) {
			slog.Debug("Manager IsBlockedAt: package blocked", "package", packageName, "restriction", def.Name)
			return true
		}
	}
	return false
}

// ActiveRestrictions returns the definitions whose windows cover the current
// instant, for display. Pure read, no mutation.
func (m *Manager) ActiveRestrictions() ([]models.RestrictionDefinition, error) {
	return m.ActiveRestrictionsAt(m.clock.Now())
}

// ActiveRestrictionsAt returns the definitions whose windows cover at.
func (m *Manager) ActiveRestrictionsAt(at time.Time) ([]models.RestrictionDefinition, error) {
	defs, err := m.store.ListRestrictions()
	if err != nil {
		slog.Error("Manager ActiveRestrictionsAt list failed", "error", err)
		return nil, err
	}
	var active []models.RestrictionDefinition
	for _, def := range defs {
		if IsActiveAt(def, at) {
			active = append(active, def)
		}
	}
	slog.Debug("Manager ActiveRestrictionsAt", "active", len(active), "total", len(defs))
	return active, nil
}

// ListRestrictions returns every definition, enabled or not.
func (m *Manager) ListRestrictions() ([]models.RestrictionDefinition, error) {
	return m.store.ListRestrictions()
}

// SetEnabled toggles a definition. Idempotent; returns
// models.ErrRestrictionNotFound for an unknown id.
func (m *Manager) SetEnabled(id string, enabled bool) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	def, err := m.store.GetRestriction(id)
	if err != nil {
		slog.Error("Manager SetEnabled lookup failed", "error", err, "id", id)
		return err
	}
	if def == nil {
		slog.Warn("Manager SetEnabled: restriction not found", "id", id)
		return models.ErrRestrictionNotFound
	}
	if def.Enabled == enabled {
		slog.Debug("Manager SetEnabled: no change", "id", id, "enabled", enabled)
		return nil
	}
	def.Enabled = enabled
	def.UpdatedAt = m.clock.Now()
	if err := m.store.SaveRestriction(*def); err != nil {
		slog.Error("Manager SetEnabled save failed", "error", err, "id", id)
		return err
	}
	slog.Info("Manager SetEnabled succeeded", "id", id, "name", def.Name, "enabled", enabled)
	return nil
}

// CreateCustom validates and stores a new user-defined restriction, returning
// its generated id.
func (m *Manager) CreateCustom(req models.CreateRestrictionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		slog.Warn("Manager CreateCustom validation failed", "error", err, "name", req.Name)
		return "", err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	now := m.clock.Now()
	def := models.RestrictionDefinition{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Description:        req.Description,
		Type:               models.RestrictionTypeCustom,
		StartMinute:        req.StartMinute,
		EndMinute:          req.EndMinute,
		BlockedPackages:    req.BlockedPackages,
		ActiveDays:         req.ActiveDays,
		AllowEmergencyApps: req.AllowEmergencyApps,
		Enabled:            true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := m.store.SaveRestriction(def); err != nil {
		slog.Error("Manager CreateCustom save failed", "error", err, "name", req.Name)
		return "", err
	}
	slog.Info("Manager CreateCustom succeeded", "id", def.ID, "name", def.Name)
	return def.ID, nil
}

// SeedPresets stores the built-in bedtime and work-hours definitions if the
// store holds no restrictions yet. Presets start disabled; the user opts in.
func (m *Manager) SeedPresets() error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	existing, err := m.store.ListRestrictions()
	if err != nil {
		slog.Error("Manager SeedPresets list failed", "error", err)
		return err
	}
	if len(existing) > 0 {
		slog.Debug("Manager SeedPresets: restrictions already present", "count", len(existing))
		return nil
	}
	for _, def := range Presets(m.clock.Now()) {
		if err := m.store.SaveRestriction(def); err != nil {
			slog.Error("Manager SeedPresets save failed", "error", err, "name", def.Name)
			return err
		}
	}
	slog.Info("Manager SeedPresets succeeded")
	return nil
}
