package models

import (
	"encoding/json"
	"time"
)

// CapturedBy values recorded on pages and history entries.
const (
	CapturedByManual   = "manual"
	CapturedByCrawling = "crawling"
)

// Source types for queued capture tasks.
const (
	SourceDiscovery          = "discovery"
	SourceRecursiveDiscovery = "recursive_discovery"
)

// Task statuses. A task moves pending -> processing -> completed, or back to
// pending on a retryable failure until attempts reaches MaxAttempts, after
// which it is failed.
const (
	TaskPending    = "pending"
	TaskProcessing = "processing"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"
)

// Link types assigned by the analyzers.
const (
	LinkArticle  = "article"
	LinkCategory = "category"
	LinkAuthor   = "author"
	LinkDate     = "date"
	LinkExternal = "external"
	LinkInternal = "internal"
	LinkGeneral  = "general"
)

// Heading is one h1-h6 element in document order.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// List is one ul/ol element with its item texts.
type List struct {
	Type  string   `json:"type"`
	Items []string `json:"items"`
}

// DiscoveredLink is one link encountered on an analyzed page, keyed by its
// normalized absolute URL in the link index.
type DiscoveredLink struct {
	URL            string    `json:"url"`
	Text           string    `json:"text"`
	Title          string    `json:"title"`
	Rel            string    `json:"rel,omitempty"`
	Type           string    `json:"type"`
	Relevance      float64   `json:"relevance"`
	SourceURL      string    `json:"sourceUrl"`
	SourceHostname string    `json:"sourceHostname"`
	DiscoveredAt   time.Time `json:"discoveredAt"`
	LastSeen       time.Time `json:"lastSeen"`
	ClickCount     int       `json:"clickCount"`
}

// ContentAnalysis is the analyzer's heuristic read of a page, stored per URL.
type ContentAnalysis struct {
	URL              string              `json:"url"`
	ContentType      string              `json:"contentType"`
	Topics           []string            `json:"topics"`
	Entities         map[string][]string `json:"entities"`
	Sentiment        string              `json:"sentiment"`
	ReadingLevel     string              `json:"readingLevel"`
	ContentStructure ContentStructure    `json:"contentStructure"`
	AnalyzedAt       time.Time           `json:"analyzedAt"`
}

// ContentStructure describes page layout signals used by analytics.
type ContentStructure struct {
	HasTableOfContents   bool `json:"hasTableOfContents"`
	HasRelatedArticles   bool `json:"hasRelatedArticles"`
	HasComments          bool `json:"hasComments"`
	HasSocialSharing     bool `json:"hasSocialSharing"`
	EstimatedReadingTime int  `json:"estimatedReadingTime"`
}

// PageExtract is the common output shape of both analyzer variants.
type PageExtract struct {
	Title      string            `json:"title"`
	Meta       map[string]string `json:"meta"`
	Headings   []Heading         `json:"headings"`
	Paragraphs []string          `json:"paragraphs"`
	Lists      []List            `json:"lists"`
	Links      []DiscoveredLink  `json:"links"`
	Terms      []string          `json:"terms"`
	Analysis   *ContentAnalysis  `json:"contentAnalysis,omitempty"`
}

// CapturedPage is one captured document, keyed by URL. Re-capturing the same
// URL overwrites the stored record.
type CapturedPage struct {
	URL             string            `json:"url"`
	Title           string            `json:"title"`
	Hostname        string            `json:"hostname"`
	Timestamp       time.Time         `json:"timestamp"`
	CapturedBy      string            `json:"capturedBy"`
	Meta            map[string]string `json:"meta"`
	Headings        []Heading         `json:"headings"`
	Paragraphs      []string          `json:"paragraphs"`
	Lists           []List            `json:"lists"`
	Links           []DiscoveredLink  `json:"links"`
	Terms           []string          `json:"terms"`
	ContentAnalysis *json.RawMessage  `json:"contentAnalysis,omitempty"`
	SourceType      string            `json:"sourceType,omitempty"`
}

// HistoryEntry is one append-only capture record, keyed by its timestamp.
type HistoryEntry struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Hostname   string    `json:"hostname"`
	Timestamp  time.Time `json:"timestamp"`
	CapturedBy string    `json:"capturedBy"`
}

// CrawlingStats are process-wide counters, reset only by an explicit clear.
type CrawlingStats struct {
	TotalDiscovered int `json:"totalDiscovered"`
	TotalCaptured   int `json:"totalCaptured"`
	TotalFailed     int `json:"totalFailed"`
}
