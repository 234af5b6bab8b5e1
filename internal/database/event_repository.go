package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Event kinds recorded for analytics.
const (
	EventPageView = "page_view"
	EventDownload = "download"
	EventPurchase = "purchase"
	EventLogin    = "login"
)

// Event is a single analytics data point.
type Event struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        string    `json:"kind"`
	AccountID   string    `json:"accountId,omitempty"`
	PresetID    string    `json:"presetId,omitempty"`
	PresetName  string    `json:"presetName,omitempty"`
	AmountCents int       `json:"amountCents,omitempty"`
}

// EventRepository persists analytics events.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates an EventRepository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert records an analytics event.
func (r *EventRepository) Insert(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO events (ts, kind, account_id, preset_id, preset_name, amount_cents)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Timestamp, e.Kind, e.AccountID, e.PresetID, e.PresetName, e.AmountCents,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CountSince returns how many events of a kind occurred since the cutoff.
func (r *EventRepository) CountSince(kind string, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM events WHERE kind = ? AND ts >= ?`, kind, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s events: %w", kind, err)
	}
	return count, nil
}

// DistinctAccountsSince returns how many distinct accounts produced events of
// a kind since the cutoff.
func (r *EventRepository) DistinctAccountsSince(kind string, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(
		`SELECT COUNT(DISTINCT account_id) FROM events WHERE kind = ? AND ts >= ? AND account_id != ''`,
		kind, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count distinct accounts: %w", err)
	}
	return count, nil
}

// RevenueSince sums purchase amounts since the cutoff.
func (r *EventRepository) RevenueSince(since time.Time) (int64, error) {
	var cents sql.NullInt64
	err := r.db.QueryRow(
		`SELECT SUM(amount_cents) FROM events WHERE kind = ? AND ts >= ?`, EventPurchase, since,
	).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("sum revenue: %w", err)
	}
	return cents.Int64, nil
}

// PresetCount pairs a preset with an event count.
type PresetCount struct {
	PresetID   string `json:"presetId"`
	PresetName string `json:"presetName"`
	Count      int64  `json:"count"`
}

// TopPresetsSince returns the presets with the most events of a kind since
// the cutoff.
func (r *EventRepository) TopPresetsSince(kind string, since time.Time, limit int) ([]PresetCount, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Query(
		`SELECT preset_id, preset_name, COUNT(*) AS n
		 FROM events
		 WHERE kind = ? AND ts >= ? AND preset_id != ''
		 GROUP BY preset_id, preset_name
		 ORDER BY n DESC
		 LIMIT ?`,
		kind, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top presets: %w", err)
	}
	defer rows.Close()

	out := make([]PresetCount, 0, limit)
	for rows.Next() {
		var pc PresetCount
		if err := rows.Scan(&pc.PresetID, &pc.PresetName, &pc.Count); err != nil {
			return nil, fmt.Errorf("scan top preset: %w", err)
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top presets: %w", err)
	}

	return out, nil
}

// DailyCount pairs a day (UTC, YYYY-MM-DD) with an event count.
type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// DailyCountsSince buckets events of a kind per UTC day since the cutoff.
func (r *EventRepository) DailyCountsSince(kind string, since time.Time) ([]DailyCount, error) {
	rows, err := r.db.Query(
		`SELECT DATE(ts) AS day, COUNT(*) AS n
		 FROM events
		 WHERE kind = ? AND ts >= ?
		 GROUP BY day
		 ORDER BY day ASC`,
		kind, since,
	)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	defer rows.Close()

	out := make([]DailyCount, 0)
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily counts: %w", err)
	}

	return out, nil
}
