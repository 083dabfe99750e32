package ruleset

import (
	"sync"
)

// Store holds the active business configuration and supports atomic
// replacement on reload. Readers receive an immutable snapshot pointer;
// Reload builds a fresh Config and swaps the pointer rather than mutating
// in place, so in-flight validations never observe a partial update.
type Store struct {
	mu       sync.RWMutex
	path     string
	cfg      *Config
	onReload func(*Config)
}

// NewStore loads the configuration file and returns a store bound to it.
func NewStore(path string) (*Store, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, cfg: cfg}, nil
}

// NewStoreFromConfig wraps an already-built configuration (used by tests
// and embedders that manage loading themselves). Reload is a no-op for
// such stores.
func NewStoreFromConfig(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

// Config returns the current configuration snapshot.
func (s *Store) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Path returns the backing file path, or "" for in-memory stores.
func (s *Store) Path() string { return s.path }

// OnReload registers a callback invoked with the new snapshot after each
// successful reload.
func (s *Store) OnReload(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = fn
}

// Reload re-reads the backing file and swaps in the new snapshot.
// The previous snapshot stays valid for readers that already hold it.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	cfg, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	callback := s.onReload
	s.mu.Unlock()

	if callback != nil {
		callback(cfg)
	}
	return nil
}
