// Package notify defines the fire-and-forget event interface the engine
// raises toward the hosting application. The core calls these and never
// depends on their result; delivery mechanics belong to the host.
package notify

import "log/slog"

// Notifier receives engine events. Implementations must not block for long
// and must not fail the caller; anything that can go wrong stays inside.
type Notifier interface {
	SessionStarted(durationMinutes int)
	SessionCompleted(durationMillis int64, wasSuccessful bool)
	RestrictionBecameActive(names []string)
}

// SlogNotifier logs every event; useful as a default host binding and in
// development.
type SlogNotifier struct{}

// NewSlogNotifier returns a Notifier that logs events at info level.
func NewSlogNotifier() *SlogNotifier {
	return &SlogNotifier{}
}

func (*SlogNotifier) SessionStarted(durationMinutes int) {
	slog.Info("Focus session started", "durationMinutes", durationMinutes)
}

func (*SlogNotifier) SessionCompleted(durationMillis int64, wasSuccessful bool) {
	slog.Info("Focus session completed", "durationMillis", durationMillis, "successful", wasSuccessful)
}

func (*SlogNotifier) RestrictionBecameActive(names []string) {
	slog.Info("Restrictions became active", "names", names)
}

// RecordingNotifier captures events for test assertions.
type RecordingNotifier struct {
	Started       []int
	Completed     []CompletedEvent
	ActivatedSets [][]string
}

// CompletedEvent is one captured SessionCompleted call.
type CompletedEvent struct {
	DurationMillis int64
	WasSuccessful  bool
}

// NewRecordingNotifier returns an empty recorder.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (r *RecordingNotifier) SessionStarted(durationMinutes int) {
	r.Started = append(r.Started, durationMinutes)
}

func (r *RecordingNotifier) SessionCompleted(durationMillis int64, wasSuccessful bool) {
	r.Completed = append(r.Completed, CompletedEvent{DurationMillis: durationMillis, WasSuccessful: wasSuccessful})
}

func (r *RecordingNotifier) RestrictionBecameActive(names []string) {
	r.ActivatedSets = append(r.ActivatedSets, names)
}
