package models

import "time"

// ActivityAction categorizes entries in the back-office activity log.
type ActivityAction string

const (
	ActivityLogin    ActivityAction = "login"
	ActivityDownload ActivityAction = "download"
	ActivityUpload   ActivityAction = "upload"
	ActivityEdit     ActivityAction = "edit"
	ActivityDelete   ActivityAction = "delete"
	ActivityUser     ActivityAction = "user"
)

// ActivityEntry is a single row in the marketplace activity log.
type ActivityEntry struct {
	ID          int64          `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	ActorID     string         `json:"actorId"`
	ActorName   string         `json:"actorName"`
	Action      ActivityAction `json:"action"`
	Description string         `json:"description"`
	// Target names the preset or account the action touched, if any.
	Target string `json:"target,omitempty"`
}
