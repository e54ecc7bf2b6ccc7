// Package capture holds the run-scoped state an interpreter run accumulates:
// captured text lists and page snapshots.
package capture

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
)

// Store maps capture variable names to ordered text lists for one run.
// Writes overwrite; nothing is ever removed.
type Store struct {
	values map[string][]string
	order  []string // first-creation order of names
	mu     sync.RWMutex
	log    *zap.Logger
}

// NewStore creates an empty capture store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		values: make(map[string][]string),
		log:    logger.Named("capture"),
	}
}

// Put stores a copy of values under name, replacing any previous list.
func (s *Store) Put(name string, values []string) {
	cp := make([]string, len(values))
	copy(cp, values)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.values[name]; !exists {
		s.order = append(s.order, name)
	}
	s.values[name] = cp
	s.log.Debug("Capture stored", zap.String("variable", name), zap.Int("count", len(cp)))
}

// Get returns a copy of the list stored under name.
func (s *Store) Get(name string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[name]
	if !ok {
		return nil, false
	}
	cp := make([]string, len(v))
	copy(cp, v)
	return cp, true
}

// Names lists every variable in the order it was first captured.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of captured variables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Captures returns the store contents as result records.
func (s *Store) Captures() []schemas.Capture {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]schemas.Capture, 0, len(s.order))
	for _, name := range s.order {
		v := s.values[name]
		cp := make([]string, len(v))
		copy(cp, v)
		out = append(out, schemas.Capture{Name: name, Values: cp})
	}
	return out
}
