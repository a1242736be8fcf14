package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds the retry loop for a capture task.
const DefaultMaxAttempts = 3

// CaptureTask is one durable unit of queued crawl work. Its ID is immutable
// once created.
type CaptureTask struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Priority    string    `json:"priority"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	SourceType  string    `json:"sourceType"`
	Status      string    `json:"status"`
}

// NewCaptureTask creates a pending task for the given URL.
func NewCaptureTask(url, title, sourceType string) *CaptureTask {
	return &CaptureTask{
		ID:          "task_" + uuid.New().String(),
		URL:         url,
		Title:       title,
		Priority:    "medium",
		ScheduledAt: time.Now(),
		Attempts:    0,
		MaxAttempts: DefaultMaxAttempts,
		SourceType:  sourceType,
		Status:      TaskPending,
	}
}
