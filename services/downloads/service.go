package downloads

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

	"github.com/google/uuid"

	"presetwave/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrJobNotFound        = errors.New("download job not found")
)

const (
	// historyLimit caps the per-account history length.
	historyLimit = 200

	// jobTick is how often a running job advances its progress.
	jobTick = 150 * time.Millisecond

	// jobStep is how much progress each tick adds.
	jobStep = 10

	// jobRetention is how long a finished job stays pollable.
	jobRetention = 5 * time.Minute
)

// Service records download history and runs simulated download jobs.
// The original storefront faked progress with client-side timers; here the
// job is a real asynchronous operation whose progress the client polls.
type Service struct {
	mu      sync.RWMutex
	path    string
	history map[string][]models.DownloadRecord
	jobs    map[string]models.DownloadJob
	done    chan struct{}
}

// NewService creates a downloads service storing history inside the provided
// directory. Jobs are in-memory only; they are progress theatre, not state
// worth persisting.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}

	svc := &Service{
		path:    filepath.Join(storageDir, "downloads.json"),
		history: make(map[string][]models.DownloadRecord),
		jobs:    make(map[string]models.DownloadJob),
		done:    make(chan struct{}),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	go svc.cleanupLoop()

	return svc, nil
}

// Close stops the background cleanup loop.
func (s *Service) Close() {
	close(s.done)
}

// Record appends a download to the account's history.
func (s *Service) Record(accountID string, preset models.Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := models.DownloadRecord{
		PresetID:   preset.ID,
		PresetName: preset.Name,
		AccountID:  accountID,
		Time:       time.Now().UTC(),
	}

	records := append(s.history[accountID], record)
	if len(records) > historyLimit {
		records = records[len(records)-historyLimit:]
	}
	s.history[accountID] = records

	return s.saveLocked()
}

// History returns an account's download history, newest first.
func (s *Service) History(accountID string) []models.DownloadRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.history[accountID]
	out := make([]models.DownloadRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out
}

// StartJob begins a simulated download and returns the job in its initial
// state. Progress advances in the background until 100%.
func (s *Service) StartJob(accountID, presetID string) models.DownloadJob {
	job := models.DownloadJob{
		ID:        uuid.NewString(),
		AccountID: accountID,
		PresetID:  presetID,
		Progress:  0,
		Status:    models.DownloadRunning,
		StartedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go s.runJob(job.ID)

	return job
}

// Job returns the current state of a download job. Only the owning account
// may observe it.
func (s *Service) Job(accountID, jobID string) (models.DownloadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok || job.AccountID != accountID {
		return models.DownloadJob{}, ErrJobNotFound
	}
	return job, nil
}

func (s *Service) runJob(jobID string) {
	ticker := time.NewTicker(jobTick)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		job, ok := s.jobs[jobID]
		if !ok {
			s.mu.Unlock()
			return
		}
		job.Progress += jobStep
		if job.Progress >= 100 {
			job.Progress = 100
			job.Status = models.DownloadComplete
		}
		s.jobs[jobID] = job
		s.mu.Unlock()

		if job.Status == models.DownloadComplete {
			return
		}
	}
}

// cleanupLoop evicts finished jobs after the retention window.
func (s *Service) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-jobRetention)
		s.mu.Lock()
		for id, job := range s.jobs {
			if job.Status == models.DownloadComplete && job.StartedAt.Before(cutoff) {
				delete(s.jobs, id)
			}
		}
		s.mu.Unlock()
	}
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open downloads file: %w", err)
	}
	defer file.Close()

	var stored map[string][]models.DownloadRecord
	dec := json.NewDecoder(file)
	if err := dec.Decode(&stored); err != nil {
		return fmt.Errorf("decode downloads: %w", err)
	}

	s.history = make(map[string][]models.DownloadRecord, len(stored))
	for accountID, records := range stored {
		s.history[accountID] = records
	}

	return nil
}

func (s *Service) saveLocked() error {
	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create downloads temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.history); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode downloads: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync downloads: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close downloads temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace downloads file: %w", err)
	}

	return nil
}
