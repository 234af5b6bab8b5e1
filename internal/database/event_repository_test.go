package database

import (
	"testing"
	"time"
)

func TestEventRepository_CountSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db.Connection())

	now := time.Now().UTC()
	events := []Event{
		{Kind: EventDownload, AccountID: "1", PresetID: "p1", PresetName: "Summer Vibes", Timestamp: now},
		{Kind: EventDownload, AccountID: "2", PresetID: "p1", PresetName: "Summer Vibes", Timestamp: now},
		{Kind: EventDownload, AccountID: "1", PresetID: "p2", PresetName: "Moody Portrait", Timestamp: now.Add(-48 * time.Hour)},
		{Kind: EventPageView, AccountID: "", Timestamp: now},
	}
	for _, e := range events {
		if err := repo.Insert(e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	count, err := repo.CountSince(EventDownload, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 recent downloads, got %d", count)
	}

	all, err := repo.CountSince(EventDownload, now.Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if all != 3 {
		t.Errorf("expected 3 downloads in the wide window, got %d", all)
	}
}

func TestEventRepository_DistinctAccountsSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db.Connection())

	now := time.Now().UTC()
	for _, e := range []Event{
		{Kind: EventLogin, AccountID: "1", Timestamp: now},
		{Kind: EventLogin, AccountID: "1", Timestamp: now},
		{Kind: EventLogin, AccountID: "2", Timestamp: now},
		{Kind: EventLogin, AccountID: "", Timestamp: now},
	} {
		if err := repo.Insert(e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	count, err := repo.DistinctAccountsSince(EventLogin, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("distinct accounts: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 distinct accounts, got %d", count)
	}
}

func TestEventRepository_RevenueSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db.Connection())

	now := time.Now().UTC()

	// No purchases yet: revenue is zero, not an error.
	revenue, err := repo.RevenueSince(now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if revenue != 0 {
		t.Errorf("expected zero revenue, got %d", revenue)
	}

	for _, e := range []Event{
		{Kind: EventPurchase, AccountID: "1", PresetID: "p1", AmountCents: 1999, Timestamp: now},
		{Kind: EventPurchase, AccountID: "2", PresetID: "p2", AmountCents: 2499, Timestamp: now},
		{Kind: EventPurchase, AccountID: "2", PresetID: "p1", AmountCents: 1999, Timestamp: now.Add(-48 * time.Hour)},
	} {
		if err := repo.Insert(e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	revenue, err = repo.RevenueSince(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if revenue != 4498 {
		t.Errorf("expected 4498 cents, got %d", revenue)
	}
}

func TestEventRepository_TopPresetsSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db.Connection())

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		repo.Insert(Event{Kind: EventDownload, AccountID: "1", PresetID: "p1", PresetName: "Summer Vibes", Timestamp: now})
	}
	repo.Insert(Event{Kind: EventDownload, AccountID: "1", PresetID: "p2", PresetName: "Moody Portrait", Timestamp: now})

	top, err := repo.TopPresetsSince(EventDownload, now.Add(-time.Hour), 5)
	if err != nil {
		t.Fatalf("top presets: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 presets, got %d", len(top))
	}
	if top[0].PresetName != "Summer Vibes" || top[0].Count != 3 {
		t.Errorf("unexpected leader %+v", top[0])
	}
}

func TestEventRepository_DailyCountsSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db.Connection())

	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)
	repo.Insert(Event{Kind: EventDownload, PresetID: "p1", Timestamp: yesterday})
	repo.Insert(Event{Kind: EventDownload, PresetID: "p1", Timestamp: now})
	repo.Insert(Event{Kind: EventDownload, PresetID: "p2", Timestamp: now})

	daily, err := repo.DailyCountsSince(EventDownload, now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("daily counts: %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(daily))
	}
	if daily[0].Day != yesterday.Format("2006-01-02") {
		t.Errorf("expected ascending days, got %q first", daily[0].Day)
	}
	if daily[1].Count != 2 {
		t.Errorf("expected 2 downloads today, got %d", daily[1].Count)
	}
}
