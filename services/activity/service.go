package activity

import (
	"fmt"
	"log"
	"time"

	"presetwave/internal/database"
	"presetwave/models"
)

const (
	// retention is how long activity entries are kept.
	retention = 90 * 24 * time.Hour
)

// Service records marketplace activity for the back-office log. Recording is
// best-effort: a failed insert is logged and swallowed so activity tracking
// can never fail a user-facing request.
type Service struct {
	repo   *database.ActivityRepository
	logger *log.Logger
	done   chan struct{}
}

// NewService creates an activity service over the given repository.
func NewService(repo *database.ActivityRepository, logger *log.Logger) *Service {
	svc := &Service{
		repo:   repo,
		logger: logger,
		done:   make(chan struct{}),
	}
	go svc.pruneLoop()
	return svc
}

// Close stops the background prune loop.
func (s *Service) Close() {
	close(s.done)
}

// Record appends an entry to the activity log.
func (s *Service) Record(actor models.Account, action models.ActivityAction, description, target string) {
	entry := models.ActivityEntry{
		Timestamp:   time.Now().UTC(),
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		Action:      action,
		Description: description,
		Target:      target,
	}
	if err := s.repo.Insert(&entry); err != nil {
		s.logger.Printf("activity: record %s failed: %v", action, err)
	}
}

// RecordSystem appends an entry not tied to a specific account.
func (s *Service) RecordSystem(action models.ActivityAction, description, target string) {
	s.Record(models.Account{ID: "system", Name: "System"}, action, description, target)
}

// List returns activity entries matching the filter, newest first.
func (s *Service) List(f database.ActivityFilter) ([]models.ActivityEntry, int, error) {
	entries, total, err := s.repo.List(f)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	return entries, total, nil
}

// pruneLoop drops entries past the retention window once a day.
func (s *Service) pruneLoop() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		removed, err := s.repo.Prune(time.Now().Add(-retention))
		if err != nil {
			s.logger.Printf("activity: prune failed: %v", err)
			continue
		}
		if removed > 0 {
			s.logger.Printf("activity: pruned %d old entries", removed)
		}
	}
}
