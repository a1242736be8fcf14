package storage

import (
	"context"
	"time"

	"github.com/buscalogo/capture-agent/internal/models"
)

// Store is the persistent, indexed key-value engine behind the capture agent.
// Collection names (captured_pages, capture_history, link_index,
// content_analysis, capture_queue) are part of the storage contract and stable
// across versions. No cross-collection atomicity is assumed: a crash between a
// page save and its history append loses one of the two, which is acceptable.
type Store interface {
	Initialize() error
	Close() error

	// Captured pages (key: url; saves are upserts)
	SavePage(ctx context.Context, page *models.CapturedPage) error
	GetPage(ctx context.Context, url string) (*models.CapturedPage, error)
	AllPages(ctx context.Context) ([]*models.CapturedPage, error)
	CountPages(ctx context.Context) (int, error)
	UniqueHosts(ctx context.Context) (int, error)
	HostCounts(ctx context.Context) (map[string]int, error)

	// Capture history (key: timestamp; append-only)
	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	RecentHistory(ctx context.Context, limit int) ([]*models.HistoryEntry, error)
	CountHistory(ctx context.Context) (int, error)

	// Link index (key: normalized url; upserts preserve discovered_at)
	UpsertLink(ctx context.Context, link *models.DiscoveredLink) error
	AllLinks(ctx context.Context) ([]*models.DiscoveredLink, error)

	// Content analysis (key: url)
	SaveAnalysis(ctx context.Context, analysis *models.ContentAnalysis) error
	AllAnalyses(ctx context.Context) ([]*models.ContentAnalysis, error)

	// Capture queue (key: task id)
	SaveTask(ctx context.Context, task *models.CaptureTask) error
	DeleteTask(ctx context.Context, id string) error
	ResumableTasks(ctx context.Context) ([]*models.CaptureTask, error)
	PurgeFinishedTasksBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Wipes every collection. Counters held by callers are reset separately.
	ClearAll(ctx context.Context) error
}
