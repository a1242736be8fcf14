package capture

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/buscalogo/capture-agent/internal/models"
	"github.com/buscalogo/capture-agent/internal/storage"
)

// Logger is the slice of the agent logger this package needs.
type Logger interface {
	LogInfo(format string, v ...interface{})
	LogError(format string, v ...interface{})
	LogDebug(format string, v ...interface{})
}

// Store is the facade the queue engine and API handlers persist through. It
// owns the "has this URL been captured" predicate and link normalization.
type Store struct {
	db     storage.Store
	logger Logger
}

func NewStore(db storage.Store, logger Logger) *Store {
	return &Store{db: db, logger: logger}
}

// IsCaptured reports whether a page for url exists. A false return means
// "unknown", not a confirmed negative: an empty or invalid URL, a missing
// store, or a read error all answer false rather than failing.
func (s *Store) IsCaptured(ctx context.Context, pageURL string) bool {
	if s.db == nil || pageURL == "" {
		return false
	}

	page, err := s.db.GetPage(ctx, pageURL)
	if err != nil {
		s.logger.LogError("failed to check captured state for %s: %v", pageURL, err)
		return false
	}

	return page != nil
}

// SavePage upserts by URL, overwriting all fields.
func (s *Store) SavePage(ctx context.Context, page *models.CapturedPage) error {
	return s.db.SavePage(ctx, page)
}

func (s *Store) GetPage(ctx context.Context, pageURL string) (*models.CapturedPage, error) {
	return s.db.GetPage(ctx, pageURL)
}

// AppendHistory records one capture. History is append-only and never
// deduplicated; readers cap at the most recent 50 entries.
func (s *Store) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	return s.db.AppendHistory(ctx, entry)
}

// UpsertLinks normalizes and indexes every link found on an analyzed page.
// Individual link failures are logged and skipped so one bad href cannot
// abort the batch.
func (s *Store) UpsertLinks(ctx context.Context, links []models.DiscoveredLink, sourceURL, sourceHostname string) {
	now := time.Now()
	indexed := 0

	for _, link := range links {
		normalized, err := NormalizeURL(link.URL, sourceHostname)
		if err != nil {
			s.logger.LogDebug("skipping unnormalizable link %q: %v", link.URL, err)
			continue
		}

		entry := link
		entry.URL = normalized
		entry.SourceURL = sourceURL
		entry.SourceHostname = sourceHostname
		entry.DiscoveredAt = now
		entry.LastSeen = now

		// The store keeps the original discovered_at on conflict, so the
		// value above only lands for first sightings.
		if err := s.db.UpsertLink(ctx, &entry); err != nil {
			s.logger.LogError("failed to index link %s: %v", normalized, err)
			continue
		}
		indexed++
	}

	if indexed > 0 {
		s.logger.LogDebug("%d links indexed from %s", indexed, sourceURL)
	}
}

// SaveAnalysis upserts the analyzer's content record for a URL.
func (s *Store) SaveAnalysis(ctx context.Context, analysis *models.ContentAnalysis) error {
	return s.db.SaveAnalysis(ctx, analysis)
}

// Task persistence, delegated to the queue collection.

func (s *Store) SaveTask(ctx context.Context, task *models.CaptureTask) error {
	return s.db.SaveTask(ctx, task)
}

func (s *Store) ResumableTasks(ctx context.Context) ([]*models.CaptureTask, error) {
	return s.db.ResumableTasks(ctx)
}

func (s *Store) PurgeFinishedTasksBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return s.db.PurgeFinishedTasksBefore(ctx, cutoff)
}

// NormalizeURL resolves page-relative hrefs ("/path", "./path") against the
// source hostname and returns an absolute form. Already-absolute URLs pass
// through unchanged.
func NormalizeURL(href, sourceHostname string) (string, error) {
	if href == "" {
		return "", fmt.Errorf("empty URL")
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("unparseable URL %q: %w", href, err)
	}

	if ref.IsAbs() {
		return ref.String(), nil
	}

	if sourceHostname == "" {
		return "", fmt.Errorf("relative URL %q with no source hostname", href)
	}

	base := &url.URL{Scheme: "https", Host: sourceHostname, Path: "/"}
	resolved := base.ResolveReference(ref)
	if !strings.HasPrefix(resolved.Scheme, "http") {
		return "", fmt.Errorf("unsupported scheme in %q", href)
	}

	return resolved.String(), nil
}
