package game

import (
	"fmt"
	"sync"

	"arena-bot/internal/model"
)

// Registry manages the formats matches may be created with.
// It provides a thread-safe way to register and look up formats by mode and sub-mode.
type Registry struct {
	formats map[string]Format
	order   []string
	mu      sync.RWMutex
}

// NewRegistry creates an empty format registry.
func NewRegistry() *Registry {
	return &Registry{
		formats: make(map[string]Format),
	}
}

// Register adds a format to the registry.
// If the pair is already registered, it will be replaced.
func (r *Registry) Register(f Format) error {
	if f.Mode == "" || f.SubMode == "" {
		return fmt.Errorf("format mode and sub-mode cannot be empty")
	}
	if f.Slots <= 0 || f.TeamSize <= 0 {
		return fmt.Errorf("format %s must have positive slots and team size", f.Key())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.formats[f.Key()]; !ok {
		r.order = append(r.order, f.Key())
	}
	r.formats[f.Key()] = f
	return nil
}

// Get retrieves the format for a pair.
func (r *Registry) Get(mode model.GameMode, sub model.SubMode) (Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[formatKey(mode, sub)]
	return f, ok
}

// AutoSlots returns the fixed capacity of a pair, or 0 when the pair is not hostable.
func (r *Registry) AutoSlots(mode model.GameMode, sub model.SubMode) int {
	f, ok := r.Get(mode, sub)
	if !ok {
		return 0
	}
	return f.Slots
}

// SubModes returns the sub-modes registered for mode in registration order.
func (r *Registry) SubModes(mode model.GameMode) []model.SubMode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subs []model.SubMode
	for _, key := range r.order {
		if f := r.formats[key]; f.Mode == mode {
			subs = append(subs, f.SubMode)
		}
	}
	return subs
}

// List returns all registered formats in registration order.
// The returned slice is a copy, so modifications won't affect the registry.
func (r *Registry) List() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]Format, 0, len(r.order))
	for _, key := range r.order {
		formats = append(formats, r.formats[key])
	}
	return formats
}

// DefaultRegistry holds the built-in slot table.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range builtinFormats {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

// AutoSlots looks the pair up in the default registry.
func AutoSlots(mode model.GameMode, sub model.SubMode) int {
	return DefaultRegistry.AutoSlots(mode, sub)
}

// SubModes lists the default registry's sub-modes for mode.
func SubModes(mode model.GameMode) []model.SubMode {
	return DefaultRegistry.SubModes(mode)
}

// Formats lists the default registry's formats.
func Formats() []Format {
	return DefaultRegistry.List()
}
