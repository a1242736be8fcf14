package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/buscalogo/capture-agent/internal/analyzer"
	"github.com/buscalogo/capture-agent/internal/models"
	"github.com/buscalogo/capture-agent/internal/monitoring"
)

// Capturer performs on-demand captures: analyze a page live, persist it and
// seed the queue engine with its crawl candidates.
type Capturer struct {
	analyzer analyzer.Analyzer
	store    *Store
	engine   *Engine
	logger   Logger
}

func NewCapturer(a analyzer.Analyzer, store *Store, engine *Engine, logger Logger) *Capturer {
	return &Capturer{
		analyzer: a,
		store:    store,
		engine:   engine,
		logger:   logger,
	}
}

// Capture analyzes pageURL and upserts the result. isNew reports whether the
// URL had been captured before; a repeat capture overwrites the stored page
// rather than duplicating it. Discovered article links are enqueued for
// background crawling and a drain is kicked off.
func (c *Capturer) Capture(ctx context.Context, pageURL, title string) (*models.CapturedPage, bool, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" ||
		(parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, false, fmt.Errorf("not an absolute HTTP(S) URL: %q", pageURL)
	}
	hostname := parsed.Hostname()

	isNew := !c.store.IsCaptured(ctx, pageURL)

	extract, err := c.analyzer.Analyze(ctx, pageURL)
	if err != nil {
		monitoring.CapturesTotal.WithLabelValues("failure", "manual").Inc()
		return nil, isNew, fmt.Errorf("failed to analyze %s: %w", pageURL, err)
	}

	if title == "" {
		title = extract.Title
	}

	var analysisJSON *json.RawMessage
	if extract.Analysis != nil {
		if data, err := json.Marshal(extract.Analysis); err == nil {
			raw := json.RawMessage(data)
			analysisJSON = &raw
		} else {
			c.logger.LogError("failed to encode content analysis for %s: %v", pageURL, err)
		}
	}

	now := time.Now()
	page := &models.CapturedPage{
		URL:             pageURL,
		Title:           title,
		Hostname:        hostname,
		Timestamp:       now,
		CapturedBy:      models.CapturedByManual,
		Meta:            extract.Meta,
		Headings:        extract.Headings,
		Paragraphs:      extract.Paragraphs,
		Lists:           extract.Lists,
		Links:           extract.Links,
		Terms:           extract.Terms,
		ContentAnalysis: analysisJSON,
	}

	if err := c.store.SavePage(ctx, page); err != nil {
		monitoring.CapturesTotal.WithLabelValues("failure", "manual").Inc()
		return nil, isNew, fmt.Errorf("failed to save page %s: %w", pageURL, err)
	}

	if err := c.store.AppendHistory(ctx, &models.HistoryEntry{
		URL:        pageURL,
		Title:      title,
		Hostname:   hostname,
		Timestamp:  now,
		CapturedBy: models.CapturedByManual,
	}); err != nil {
		c.logger.LogError("failed to append history for %s: %v", pageURL, err)
	}

	if extract.Analysis != nil {
		if err := c.store.SaveAnalysis(ctx, extract.Analysis); err != nil {
			c.logger.LogError("failed to save content analysis for %s: %v", pageURL, err)
		}
	}

	c.store.UpsertLinks(ctx, extract.Links, pageURL, hostname)
	if added := c.engine.EnqueueCandidates(ctx, extract.Links, pageURL, hostname, models.SourceDiscovery); added > 0 {
		c.engine.StartDrain()
	}

	monitoring.CapturesTotal.WithLabelValues("success", "manual").Inc()
	c.logger.LogInfo("captured %s (%d links, %d terms)", pageURL, len(extract.Links), len(extract.Terms))

	return page, isNew, nil
}
