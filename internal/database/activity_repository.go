package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"presetwave/models"
)

// ActivityRepository persists back-office activity log entries.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates an ActivityRepository.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Insert appends an activity entry and fills in its generated ID.
func (r *ActivityRepository) Insert(entry *models.ActivityEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	res, err := r.db.Exec(
		`INSERT INTO activity_log (ts, actor_id, actor_name, action, description, target)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.ActorID, entry.ActorName, string(entry.Action), entry.Description, entry.Target,
	)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("activity entry id: %w", err)
	}
	entry.ID = id

	return nil
}

// ActivityFilter narrows an activity log listing.
type ActivityFilter struct {
	Action models.ActivityAction
	Search string
	Limit  int
	Offset int
}

// List returns activity entries newest first, plus the total match count
// before pagination.
func (r *ActivityRepository) List(f ActivityFilter) ([]models.ActivityEntry, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(f.Action))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(actor_name LIKE ? OR description LIKE ? OR target LIKE ?)")
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern, pattern)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM activity_log"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activity entries: %w", err)
	}

	query := `SELECT id, ts, actor_id, actor_name, action, description, target
	          FROM activity_log` + clause + ` ORDER BY ts DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.ActivityEntry, 0)
	for rows.Next() {
		var e models.ActivityEntry
		var action string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ActorID, &e.ActorName, &action, &e.Description, &e.Target); err != nil {
			return nil, 0, fmt.Errorf("scan activity entry: %w", err)
		}
		e.Action = models.ActivityAction(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate activity entries: %w", err)
	}

	return entries, total, nil
}

// Prune deletes entries older than the cutoff and returns how many were removed.
func (r *ActivityRepository) Prune(olderThan time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM activity_log WHERE ts < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune activity entries: %w", err)
	}
	return res.RowsAffected()
}
