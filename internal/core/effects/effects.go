// Package effects defines effect types as data structures representing I/O operations.
// Planners in the functional core return effects; the app layer's executor is the only
// place they turn into repository writes, lock releases or log lines.
package effects

// Effect is the base interface for all effects.
type Effect interface {
	// EffectType returns a string identifier for the effect type.
	EffectType() string
}

// LogEffect represents a structured log line.
type LogEffect struct {
	Level   string // "debug", "info", "warn", "error"
	Message string
	Fields  map[string]any
}

func (e LogEffect) EffectType() string { return "log" }

// PersistEffect represents a repository write.
type PersistEffect struct {
	Entity    string // "quotation"
	Operation string // "create"
	Data      any    // quotation.DraftInput for quotation creates
}

func (e PersistEffect) EffectType() string { return "persist" }

// ReleaseLockEffect releases the processing lock Holder took for a product.
// Release is best-effort: a failed release leaves the lock to expire.
type ReleaseLockEffect struct {
	ProductID string
	Holder    string
}

func (e ReleaseLockEffect) EffectType() string { return "release_lock" }

// CompositeEffect holds multiple effects to be executed in sequence.
type CompositeEffect struct {
	Effects []Effect
}

func (e CompositeEffect) EffectType() string { return "composite" }

// NoEffect represents an operation that produces no side effects.
type NoEffect struct{}

func (e NoEffect) EffectType() string { return "none" }
