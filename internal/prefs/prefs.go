package prefs

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// state holds the single persisted user preference, keyed by a fixed name.
type state struct {
	DarkMode  bool      `json:"dark_mode"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists user preferences as a JSON file.
type Store struct {
	path string

	mu sync.Mutex
	st state
}

// NewStore loads the preference file. A missing file yields defaults.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &s.st); err != nil {
		return nil, err
	}
	return s, nil
}

// DarkMode reports the persisted dark-mode preference.
func (s *Store) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DarkMode
}

// SetDarkMode persists the dark-mode preference.
func (s *Store) SetDarkMode(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.DarkMode = on
	return s.saveLocked()
}

// ToggleDarkMode flips and persists the dark-mode preference, returning the
// new value.
func (s *Store) ToggleDarkMode() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.DarkMode = !s.st.DarkMode
	return s.st.DarkMode, s.saveLocked()
}

func (s *Store) saveLocked() error {
	s.st.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(s.st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
