package capture

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/buscalogo/capture-agent/internal/analyzer"
	"github.com/buscalogo/capture-agent/internal/models"
	"github.com/buscalogo/capture-agent/internal/monitoring"
)

const (
	// DefaultInterTaskDelay spaces fetches so remote hosts are not hammered.
	DefaultInterTaskDelay = time.Second

	// finishedTaskRetention is how long completed/failed tasks stay in the
	// durable queue before the sweep removes them.
	finishedTaskRetention = 24 * time.Hour
)

// EngineConfig tunes the queue engine.
type EngineConfig struct {
	InterTaskDelay time.Duration
	// MaxCandidatesPerPage bounds how many crawl candidates one page may
	// enqueue. Zero keeps the historical unbounded behavior.
	MaxCandidatesPerPage int
	// MaxAttempts overrides the per-task retry budget. Zero keeps the
	// model default.
	MaxAttempts int
}

// Engine owns the capture task lifecycle: discovery, durable scheduling,
// serial fetch-and-extract processing with a bounded retry budget, and
// recursive re-seeding from links found in fetched articles. Tasks are
// processed strictly FIFO; tasks appended during a drain (retries, recursive
// discoveries) go to the tail and are processed before the drain signals
// completion.
type Engine struct {
	store     *Store
	fetcher   Fetcher
	extractor analyzer.Extractor
	logger    Logger
	cfg       EngineConfig

	runCtx context.Context

	mu       sync.Mutex
	queue    []*models.CaptureTask
	draining bool
	stats    models.CrawlingStats
}

func NewEngine(store *Store, fetcher Fetcher, extractor analyzer.Extractor, logger Logger, cfg EngineConfig) *Engine {
	if cfg.InterTaskDelay <= 0 {
		cfg.InterTaskDelay = DefaultInterTaskDelay
	}
	return &Engine{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start rehydrates the durable queue and resumes processing. Tasks left in
// processing state by a crash are resumable, not failed.
func (e *Engine) Start(ctx context.Context) error {
	e.runCtx = ctx

	tasks, err := e.store.ResumableTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persistent queue: %w", err)
	}

	e.mu.Lock()
	e.queue = append(e.queue, tasks...)
	e.stats.TotalDiscovered += len(tasks)
	depth := len(e.queue)
	e.mu.Unlock()
	monitoring.QueueDepth.Set(float64(depth))

	if len(tasks) > 0 {
		e.logger.LogInfo("resuming %d pending tasks from persistent queue", len(tasks))
		e.StartDrain()
	}

	return nil
}

// Enqueue creates a pending task for url, persists it and appends it to the
// in-memory queue. The URL must be an absolute HTTP(S) URL; the caller is
// expected to have checked the capture store first (a best-effort check, not
// a transactional one).
func (e *Engine) Enqueue(ctx context.Context, taskURL, title, sourceType string) error {
	parsed, err := url.Parse(taskURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" ||
		(parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("not an absolute HTTP(S) URL: %q", taskURL)
	}

	task := models.NewCaptureTask(taskURL, title, sourceType)
	if e.cfg.MaxAttempts > 0 {
		task.MaxAttempts = e.cfg.MaxAttempts
	}
	if err := e.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to persist task for %s: %w", taskURL, err)
	}

	e.mu.Lock()
	e.queue = append(e.queue, task)
	e.stats.TotalDiscovered++
	depth := len(e.queue)
	e.mu.Unlock()

	monitoring.TasksDiscovered.Inc()
	monitoring.QueueDepth.Set(float64(depth))
	e.logger.LogDebug("task %s scheduled for %s (%s)", task.ID, taskURL, sourceType)

	return nil
}

// EnqueueCandidates filters the links of a freshly analyzed page down to
// crawl candidates, skips ones already captured, and enqueues the rest.
// Returns the number of tasks created. The captured check and the enqueue
// are deliberately not atomic: two racing analyses may both enqueue the same
// URL, and the idempotent page upsert absorbs the duplicate capture.
func (e *Engine) EnqueueCandidates(ctx context.Context, links []models.DiscoveredLink, pageURL, sourceHostname, sourceType string) int {
	candidates := CrawlCandidates(links, pageURL, e.cfg.MaxCandidatesPerPage)
	added := 0

	for _, link := range candidates {
		normalized, err := NormalizeURL(link.URL, sourceHostname)
		if err != nil {
			e.logger.LogDebug("skipping candidate %q: %v", link.URL, err)
			continue
		}
		if normalized == pageURL {
			continue
		}
		if e.store.IsCaptured(ctx, normalized) {
			continue
		}
		if err := e.Enqueue(ctx, normalized, link.Text, sourceType); err != nil {
			e.logger.LogError("failed to enqueue %s: %v", normalized, err)
			continue
		}
		added++
	}

	if added > 0 {
		e.logger.LogInfo("%d crawl candidates enqueued from %s", added, pageURL)
	}

	return added
}

// StartDrain begins processing the queue if it is not already being drained.
// Safe to call at any time; overlapping calls are no-ops.
func (e *Engine) StartDrain() {
	e.mu.Lock()
	if e.draining || len(e.queue) == 0 {
		e.mu.Unlock()
		return
	}
	e.draining = true
	e.mu.Unlock()

	go e.drain()
}

func (e *Engine) drain() {
	ctx := e.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		e.mu.Lock()
		if len(e.queue) == 0 || ctx.Err() != nil {
			// The empty check and the flag clear happen under one lock, so a
			// task appended during the final iteration is either seen here or
			// finds draining=false and restarts the drain itself.
			e.draining = false
			e.mu.Unlock()
			monitoring.QueueDepth.Set(0)
			return
		}
		task := e.queue[0]
		e.queue = e.queue[1:]
		remaining := len(e.queue)
		e.mu.Unlock()
		monitoring.QueueDepth.Set(float64(remaining))

		e.process(ctx, task)

		select {
		case <-ctx.Done():
		case <-time.After(e.cfg.InterTaskDelay):
		}
	}
}

// process runs one task through the capture attempt and applies the retry
// rule. Every task ends in completed or failed; none are dropped silently.
func (e *Engine) process(ctx context.Context, task *models.CaptureTask) {
	task.Status = models.TaskProcessing
	e.persistTask(ctx, task)

	e.logger.LogInfo("capturing %s (attempt %d/%d)", task.URL, task.Attempts+1, task.MaxAttempts)

	if _, err := e.captureOne(ctx, task); err != nil {
		e.handleFailure(ctx, task, err)
		return
	}

	task.Status = models.TaskCompleted
	e.persistTask(ctx, task)
	monitoring.CapturesTotal.WithLabelValues("success", task.SourceType).Inc()
}

func (e *Engine) handleFailure(ctx context.Context, task *models.CaptureTask, cause error) {
	task.Attempts++

	if task.Attempts < task.MaxAttempts {
		task.Status = models.TaskPending
		task.ScheduledAt = time.Now()
		e.persistTask(ctx, task)

		e.mu.Lock()
		e.queue = append(e.queue, task)
		depth := len(e.queue)
		e.mu.Unlock()
		monitoring.QueueDepth.Set(float64(depth))

		e.logger.LogInfo("re-queuing %s after failure (attempt %d): %v", task.URL, task.Attempts, cause)
		return
	}

	task.Status = models.TaskFailed
	e.persistTask(ctx, task)

	e.mu.Lock()
	e.stats.TotalFailed++
	e.mu.Unlock()

	monitoring.CapturesTotal.WithLabelValues("failure", task.SourceType).Inc()
	e.logger.LogError("giving up on %s after %d attempts: %v", task.URL, task.MaxAttempts, cause)
}

// captureOne fetches a task URL, extracts it, persists the page and history,
// indexes its links and recursively enqueues further candidates.
func (e *Engine) captureOne(ctx context.Context, task *models.CaptureTask) (*models.CapturedPage, error) {
	body, err := e.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		return nil, err
	}

	extract, err := e.extractor.Extract(task.URL, body)
	if err != nil {
		return nil, err
	}

	parsed, err := url.Parse(task.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid task URL %q: %w", task.URL, err)
	}
	hostname := parsed.Hostname()

	title := extract.Title
	if title == "" {
		title = task.Title
	}

	now := time.Now()
	page := &models.CapturedPage{
		URL:        task.URL,
		Title:      title,
		Hostname:   hostname,
		Timestamp:  now,
		CapturedBy: models.CapturedByCrawling,
		Meta:       extract.Meta,
		Headings:   extract.Headings,
		Paragraphs: extract.Paragraphs,
		Lists:      extract.Lists,
		Links:      extract.Links,
		Terms:      extract.Terms,
		SourceType: task.SourceType,
	}

	if err := e.store.SavePage(ctx, page); err != nil {
		return nil, fmt.Errorf("failed to save page %s: %w", task.URL, err)
	}

	// History and link indexing are independent of the page save; losing one
	// to a crash is tolerated.
	if err := e.store.AppendHistory(ctx, &models.HistoryEntry{
		URL:        task.URL,
		Title:      title,
		Hostname:   hostname,
		Timestamp:  now,
		CapturedBy: models.CapturedByCrawling,
	}); err != nil {
		e.logger.LogError("failed to append history for %s: %v", task.URL, err)
	}

	e.mu.Lock()
	e.stats.TotalCaptured++
	e.mu.Unlock()

	e.store.UpsertLinks(ctx, extract.Links, task.URL, hostname)
	e.EnqueueCandidates(ctx, extract.Links, task.URL, hostname, models.SourceRecursiveDiscovery)

	return page, nil
}

func (e *Engine) persistTask(ctx context.Context, task *models.CaptureTask) {
	if err := e.store.SaveTask(ctx, task); err != nil {
		e.logger.LogError("failed to persist task %s: %v", task.ID, err)
	}
}

// Sweep deletes completed and failed tasks older than the retention window.
func (e *Engine) Sweep(ctx context.Context) {
	purged, err := e.store.PurgeFinishedTasksBefore(ctx, time.Now().Add(-finishedTaskRetention))
	if err != nil {
		e.logger.LogError("failed to purge finished tasks: %v", err)
		return
	}
	if purged > 0 {
		e.logger.LogInfo("purged %d finished tasks", purged)
	}
}

// Clear empties the in-memory queue and resets the crawling counters. An
// in-flight task finishes its current attempt; the drain loop then finds the
// queue empty and stops.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.queue = nil
	e.stats = models.CrawlingStats{}
	e.mu.Unlock()
	monitoring.QueueDepth.Set(0)
}

func (e *Engine) Stats() models.CrawlingStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) QueueSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) IsDraining() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draining
}
