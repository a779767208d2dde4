package restriction

import (
	"log/slog"
	"sync"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/notify"
)

// Watcher diffs the active-restriction set between ticks and notifies the
// host when windows open. The host drives Tick from its scheduler (typically
// once a minute); the watcher itself runs no goroutines.
type Watcher struct {
	manager  *Manager
	notifier notify.Notifier

	mu         sync.Mutex
	lastActive map[string]struct{}
}

// NewWatcher creates a watcher over m that reports newly active restrictions to n.
func NewWatcher(m *Manager, n notify.Notifier) *Watcher {
	return &Watcher{
		manager:    m,
		notifier:   n,
		lastActive: make(map[string]struct{}),
	}
}

// Tick recomputes the active set and emits RestrictionBecameActive for
// definitions that were inactive on the previous tick. Lookup failures leave
// the previous snapshot in place so a transient storage error cannot fire a
// spurious batch of notifications on recovery.
func (w *Watcher) Tick() {
	active, err := w.manager.ActiveRestrictions()
	if err != nil {
		slog.Warn("Watcher tick skipped: active restriction lookup failed", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	current := make(map[string]struct{}, len(active))
	var newlyActive []string
	for _, def := range active {
		current[def.ID] = struct{}{}
		if _, seen := w.lastActive[def.ID]; !seen {
			newlyActive = append(newlyActive, def.Name)
		}
	}
	w.lastActive = current

	if len(newlyActive) > 0 {
		slog.Debug("Watcher detected newly active restrictions", "names", newlyActive)
		w.notifier.RestrictionBecameActive(newlyActive)
	}
}

// ActiveIDs returns the ids captured on the last tick, for inspection.
func (w *Watcher) ActiveIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.lastActive))
	for id := range w.lastActive {
		ids = append(ids, id)
	}
	return ids
}
