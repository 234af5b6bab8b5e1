package models

import "time"

// DownloadStatus tracks a simulated download job.
type DownloadStatus string

const (
	DownloadRunning  DownloadStatus = "running"
	DownloadComplete DownloadStatus = "complete"
)

// DownloadJob is an asynchronous download simulation. There is no real file
// delivery; the job advances its progress until completion and is then kept
// around briefly for the client to observe the terminal state.
type DownloadJob struct {
	ID        string         `json:"id"`
	AccountID string         `json:"accountId"`
	PresetID  string         `json:"presetId"`
	Progress  int            `json:"progress"` // 0..100
	Status    DownloadStatus `json:"status"`
	StartedAt time.Time      `json:"startedAt"`
}

// DownloadRecord is one line of a user's download history.
type DownloadRecord struct {
	PresetID   string    `json:"presetId"`
	PresetName string    `json:"presetName"`
	AccountID  string    `json:"accountId"`
	Time       time.Time `json:"time"`
}
