package analytics

import (
	"fmt"
	"log"
	"time"

	"presetwave/internal/database"
	"presetwave/models"
)

// Service aggregates recorded events into back-office dashboards. Event
// recording is best-effort and never fails a user-facing request.
type Service struct {
	events *database.EventRepository
	logger *log.Logger
}

// NewService creates an analytics service over the given event repository.
func NewService(events *database.EventRepository, logger *log.Logger) *Service {
	return &Service{events: events, logger: logger}
}

// TrackPageView records a storefront page view.
func (s *Service) TrackPageView(accountID string) {
	s.track(database.Event{Kind: database.EventPageView, AccountID: accountID})
}

// TrackLogin records a successful sign-in.
func (s *Service) TrackLogin(accountID string) {
	s.track(database.Event{Kind: database.EventLogin, AccountID: accountID})
}

// TrackDownload records a preset download, and for premium presets also a
// purchase with the list price. No payment is processed; the amount exists
// purely so the revenue dashboard has data.
func (s *Service) TrackDownload(accountID string, preset models.Preset) {
	s.track(database.Event{
		Kind:       database.EventDownload,
		AccountID:  accountID,
		PresetID:   preset.ID,
		PresetName: preset.Name,
	})
	if !preset.IsFree() {
		s.track(database.Event{
			Kind:        database.EventPurchase,
			AccountID:   accountID,
			PresetID:    preset.ID,
			PresetName:  preset.Name,
			AmountCents: preset.PriceCents,
		})
	}
}

func (s *Service) track(e database.Event) {
	if err := s.events.Insert(e); err != nil {
		s.logger.Printf("analytics: track %s failed: %v", e.Kind, err)
	}
}

// Overview is the aggregate snapshot shown on the analytics dashboard.
type Overview struct {
	Window         string                 `json:"window"`
	TotalDownloads int64                  `json:"totalDownloads"`
	ActiveUsers    int64                  `json:"activeUsers"`
	RevenueCents   int64                  `json:"revenueCents"`
	ConversionRate float64                `json:"conversionRate"`
	TopPresets     []database.PresetCount `json:"topPresets"`
	DailyDownloads []database.DailyCount  `json:"dailyDownloads"`
}

// Overview aggregates the last windowDays days of events.
func (s *Service) Overview(windowDays int) (Overview, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	downloads, err := s.events.CountSince(database.EventDownload, since)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics overview: %w", err)
	}
	views, err := s.events.CountSince(database.EventPageView, since)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics overview: %w", err)
	}
	active, err := s.events.DistinctAccountsSince(database.EventLogin, since)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics overview: %w", err)
	}
	revenue, err := s.events.RevenueSince(since)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics overview: %w", err)
	}
	top, err := s.events.TopPresetsSince(database.EventDownload, since, 5)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics overview: %w", err)
	}
	daily, err := s.events.DailyCountsSince(database.EventDownload, since)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics overview: %w", err)
	}

	// Conversion: downloads per page view, as a percentage.
	conversion := 0.0
	if views > 0 {
		conversion = float64(downloads) / float64(views) * 100
	}

	return Overview{
		Window:         fmt.Sprintf("%dd", windowDays),
		TotalDownloads: downloads,
		ActiveUsers:    active,
		RevenueCents:   revenue,
		ConversionRate: conversion,
		TopPresets:     top,
		DailyDownloads: daily,
	}, nil
}
