package favorites

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrStorageDirRequired = errors.New("storage directory not provided")

// entry records when an account favorited a preset.
type entry struct {
	PresetID string    `json:"presetId"`
	AddedAt  time.Time `json:"addedAt"`
}

// Service tracks which presets each account has favorited.
type Service struct {
	mu   sync.RWMutex
	path string
	// byAccount maps account ID -> preset ID -> entry.
	byAccount map[string]map[string]entry
}

// NewService creates a favorites service storing data inside the provided directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create favorites dir: %w", err)
	}

	svc := &Service{
		path:      filepath.Join(storageDir, "favorites.json"),
		byAccount: make(map[string]map[string]entry),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

// Toggle flips the favorite state of a preset for an account and returns the
// new state.
func (s *Service) Toggle(accountID, presetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.byAccount[accountID]
	if !ok {
		set = make(map[string]entry)
		s.byAccount[accountID] = set
	}

	var favorited bool
	if _, exists := set[presetID]; exists {
		delete(set, presetID)
		favorited = false
	} else {
		set[presetID] = entry{PresetID: presetID, AddedAt: time.Now().UTC()}
		favorited = true
	}

	if err := s.saveLocked(); err != nil {
		return false, err
	}
	return favorited, nil
}

// List returns the preset IDs an account has favorited, newest first.
func (s *Service) List(accountID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.byAccount[accountID]
	entries := make([]entry, 0, len(set))
	for _, e := range set {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].AddedAt.After(entries[j].AddedAt) })

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.PresetID)
	}
	return ids
}

// IsFavorite reports whether an account has favorited a preset.
func (s *Service) IsFavorite(accountID, presetID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byAccount[accountID][presetID]
	return ok
}

// RemovePreset drops a preset from every account's favorites, used when a
// preset is deleted from the catalog.
func (s *Service) RemovePreset(presetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, set := range s.byAccount {
		if _, ok := set[presetID]; ok {
			delete(set, presetID)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.saveLocked()
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open favorites file: %w", err)
	}
	defer file.Close()

	var stored map[string][]entry
	dec := json.NewDecoder(file)
	if err := dec.Decode(&stored); err != nil {
		return fmt.Errorf("decode favorites: %w", err)
	}

	s.byAccount = make(map[string]map[string]entry, len(stored))
	for accountID, entries := range stored {
		set := make(map[string]entry, len(entries))
		for _, e := range entries {
			if strings.TrimSpace(e.PresetID) == "" {
				continue
			}
			set[e.PresetID] = e
		}
		s.byAccount[accountID] = set
	}

	return nil
}

func (s *Service) saveLocked() error {
	stored := make(map[string][]entry, len(s.byAccount))
	for accountID, set := range s.byAccount {
		entries := make([]entry, 0, len(set))
		for _, e := range set {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].AddedAt.Before(entries[j].AddedAt) })
		stored[accountID] = entries
	}

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create favorites temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stored); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode favorites: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync favorites: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close favorites temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace favorites file: %w", err)
	}

	return nil
}
