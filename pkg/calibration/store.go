package calibration

import "sync"

// Store keeps the current Profile for each named channel. Replacement is
// atomic: readers see either the previous profile or the new one in full,
// never a partial update.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewStore creates an empty calibration store.
func NewStore() *Store {
	return &Store{
		profiles: make(map[string]Profile),
	}
}

// Put replaces the profile for a channel.
func (s *Store) Put(channel string, p Profile) {
	s.mu.Lock()
	s.profiles[channel] = p
	s.mu.Unlock()
}

// Get returns the profile for a channel and whether one exists.
func (s *Store) Get(channel string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[channel]
	return p, ok
}

// Channels returns the names of all calibrated channels.
func (s *Store) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	return names
}
