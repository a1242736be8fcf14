package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/buscalogo/capture-agent/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS captured_pages (
            url TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            hostname TEXT NOT NULL,
            timestamp BIGINT NOT NULL,
            captured_by TEXT NOT NULL,
            meta JSONB,
            headings JSONB,
            paragraphs JSONB,
            lists JSONB,
            links JSONB,
            terms JSONB,
            content_analysis JSONB,
            source_type TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_captured_pages_hostname ON captured_pages(hostname)`,
		`CREATE INDEX IF NOT EXISTS idx_captured_pages_timestamp ON captured_pages(timestamp)`,
		`CREATE TABLE IF NOT EXISTS capture_history (
            timestamp BIGINT PRIMARY KEY,
            url TEXT NOT NULL,
            title TEXT,
            hostname TEXT,
            captured_by TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_capture_history_hostname ON capture_history(hostname)`,
		`CREATE TABLE IF NOT EXISTS link_index (
            url TEXT PRIMARY KEY,
            text TEXT,
            title TEXT,
            rel TEXT,
            type TEXT,
            relevance DOUBLE PRECISION,
            source_url TEXT,
            source_hostname TEXT,
            discovered_at BIGINT NOT NULL,
            last_seen BIGINT NOT NULL,
            click_count INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE INDEX IF NOT EXISTS idx_link_index_type ON link_index(type)`,
		`CREATE INDEX IF NOT EXISTS idx_link_index_source_hostname ON link_index(source_hostname)`,
		`CREATE TABLE IF NOT EXISTS content_analysis (
            url TEXT PRIMARY KEY,
            content_type TEXT,
            topics JSONB,
            entities JSONB,
            sentiment TEXT,
            reading_level TEXT,
            content_structure JSONB,
            analyzed_at BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS capture_queue (
            id TEXT PRIMARY KEY,
            url TEXT NOT NULL,
            title TEXT,
            priority TEXT,
            scheduled_at BIGINT NOT NULL,
            attempts INTEGER NOT NULL DEFAULT 0,
            max_attempts INTEGER NOT NULL DEFAULT 3,
            source_type TEXT,
            status TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_capture_queue_status ON capture_queue(status)`,
		`CREATE INDEX IF NOT EXISTS idx_capture_queue_scheduled_at ON capture_queue(scheduled_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *PostgresStore) SavePage(ctx context.Context, page *models.CapturedPage) error {
	query := `
        INSERT INTO captured_pages (url, title, hostname, timestamp, captured_by, meta, headings, paragraphs, lists, links, terms, content_analysis, source_type)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT(url) DO UPDATE SET
            title = excluded.title,
            hostname = excluded.hostname,
            timestamp = excluded.timestamp,
            captured_by = excluded.captured_by,
            meta = excluded.meta,
            headings = excluded.headings,
            paragraphs = excluded.paragraphs,
            lists = excluded.lists,
            links = excluded.links,
            terms = excluded.terms,
            content_analysis = excluded.content_analysis,
            source_type = excluded.source_type
    `

	row, err := encodePageRow(page)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query,
		page.URL,
		page.Title,
		page.Hostname,
		page.Timestamp.UnixMilli(),
		page.CapturedBy,
		row.meta,
		row.headings,
		row.paragraphs,
		row.lists,
		row.links,
		row.terms,
		row.analysis,
		page.SourceType,
	)

	return err
}

func (s *PostgresStore) GetPage(ctx context.Context, url string) (*models.CapturedPage, error) {
	query := `
        SELECT url, title, hostname, timestamp, captured_by, meta, headings, paragraphs, lists, links, terms, content_analysis, source_type
        FROM captured_pages
        WHERE url = $1
    `

	page, err := scanPage(s.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return page, nil
}

func (s *PostgresStore) AllPages(ctx context.Context) ([]*models.CapturedPage, error) {
	query := `
        SELECT url, title, hostname, timestamp, captured_by, meta, headings, paragraphs, lists, links, terms, content_analysis, source_type
        FROM captured_pages
        ORDER BY timestamp ASC
    `

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*models.CapturedPage
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	return pages, rows.Err()
}

func (s *PostgresStore) CountPages(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM captured_pages`).Scan(&count)
	return count, err
}

func (s *PostgresStore) UniqueHosts(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT hostname) FROM captured_pages`).Scan(&count)
	return count, err
}

func (s *PostgresStore) HostCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hostname, COUNT(*) FROM captured_pages GROUP BY hostname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var host string
		var n int
		if err := rows.Scan(&host, &n); err != nil {
			return nil, err
		}
		counts[host] = n
	}

	return counts, rows.Err()
}

func (s *PostgresStore) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	query := `
        INSERT INTO capture_history (timestamp, url, title, hostname, captured_by)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT(timestamp) DO NOTHING
    `

	_, err := s.db.ExecContext(ctx, query,
		entry.Timestamp.UnixMilli(),
		entry.URL,
		entry.Title,
		entry.Hostname,
		entry.CapturedBy,
	)

	return err
}

func (s *PostgresStore) RecentHistory(ctx context.Context, limit int) ([]*models.HistoryEntry, error) {
	query := `
        SELECT timestamp, url, title, hostname, captured_by
        FROM capture_history
        ORDER BY timestamp DESC
        LIMIT $1
    `

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		var ts int64

		if err := rows.Scan(&ts, &entry.URL, &entry.Title, &entry.Hostname, &entry.CapturedBy); err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(ts)
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

func (s *PostgresStore) CountHistory(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM capture_history`).Scan(&count)
	return count, err
}

func (s *PostgresStore) UpsertLink(ctx context.Context, link *models.DiscoveredLink) error {
	query := `
        INSERT INTO link_index (url, text, title, rel, type, relevance, source_url, source_hostname, discovered_at, last_seen, click_count)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT(url) DO UPDATE SET
            text = excluded.text,
            title = excluded.title,
            rel = excluded.rel,
            type = excluded.type,
            relevance = excluded.relevance,
            source_url = excluded.source_url,
            source_hostname = excluded.source_hostname,
            last_seen = excluded.last_seen
    `

	_, err := s.db.ExecContext(ctx, query,
		link.URL,
		link.Text,
		link.Title,
		link.Rel,
		link.Type,
		link.Relevance,
		link.SourceURL,
		link.SourceHostname,
		link.DiscoveredAt.UnixMilli(),
		link.LastSeen.UnixMilli(),
		link.ClickCount,
	)

	return err
}

func (s *PostgresStore) AllLinks(ctx context.Context) ([]*models.DiscoveredLink, error) {
	query := `
        SELECT url, text, title, rel, type, relevance, source_url, source_hostname, discovered_at, last_seen, click_count
        FROM link_index
        ORDER BY relevance DESC
    `

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.DiscoveredLink
	for rows.Next() {
		var link models.DiscoveredLink
		var discoveredAt, lastSeen int64

		err := rows.Scan(
			&link.URL,
			&link.Text,
			&link.Title,
			&link.Rel,
			&link.Type,
			&link.Relevance,
			&link.SourceURL,
			&link.SourceHostname,
			&discoveredAt,
			&lastSeen,
			&link.ClickCount,
		)
		if err != nil {
			return nil, err
		}

		link.DiscoveredAt = time.UnixMilli(discoveredAt)
		link.LastSeen = time.UnixMilli(lastSeen)
		links = append(links, &link)
	}

	return links, rows.Err()
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, analysis *models.ContentAnalysis) error {
	query := `
        INSERT INTO content_analysis (url, content_type, topics, entities, sentiment, reading_level, content_structure, analyzed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT(url) DO UPDATE SET
            content_type = excluded.content_type,
            topics = excluded.topics,
            entities = excluded.entities,
            sentiment = excluded.sentiment,
            reading_level = excluded.reading_level,
            content_structure = excluded.content_structure,
            analyzed_at = excluded.analyzed_at
    `

	row, err := encodeAnalysisRow(analysis)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query,
		analysis.URL,
		analysis.ContentType,
		row.topics,
		row.entities,
		analysis.Sentiment,
		analysis.ReadingLevel,
		row.structure,
		analysis.AnalyzedAt.UnixMilli(),
	)

	return err
}

func (s *PostgresStore) AllAnalyses(ctx context.Context) ([]*models.ContentAnalysis, error) {
	query := `
        SELECT url, content_type, topics, entities, sentiment, reading_level, content_structure, analyzed_at
        FROM content_analysis
        ORDER BY analyzed_at DESC
    `

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*models.ContentAnalysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}

	return analyses, rows.Err()
}

func (s *PostgresStore) SaveTask(ctx context.Context, task *models.CaptureTask) error {
	query := `
        INSERT INTO capture_queue (id, url, title, priority, scheduled_at, attempts, max_attempts, source_type, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT(id) DO UPDATE SET
            scheduled_at = excluded.scheduled_at,
            attempts = excluded.attempts,
            status = excluded.status
    `

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.URL,
		task.Title,
		task.Priority,
		task.ScheduledAt.UnixMilli(),
		task.Attempts,
		task.MaxAttempts,
		task.SourceType,
		task.Status,
	)

	return err
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM capture_queue WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) ResumableTasks(ctx context.Context) ([]*models.CaptureTask, error) {
	query := `
        SELECT id, url, title, priority, scheduled_at, attempts, max_attempts, source_type, status
        FROM capture_queue
        WHERE status = $1 OR status = $2
        ORDER BY scheduled_at ASC
    `

	rows, err := s.db.QueryContext(ctx, query, models.TaskPending, models.TaskProcessing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.CaptureTask
	for rows.Next() {
		var task models.CaptureTask
		var scheduledAt int64

		err := rows.Scan(
			&task.ID,
			&task.URL,
			&task.Title,
			&task.Priority,
			&scheduledAt,
			&task.Attempts,
			&task.MaxAttempts,
			&task.SourceType,
			&task.Status,
		)
		if err != nil {
			return nil, err
		}

		task.ScheduledAt = time.UnixMilli(scheduledAt)
		tasks = append(tasks, &task)
	}

	return tasks, rows.Err()
}

func (s *PostgresStore) PurgeFinishedTasksBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
        DELETE FROM capture_queue
        WHERE (status = $1 OR status = $2) AND scheduled_at < $3
    `

	result, err := s.db.ExecContext(ctx, query, models.TaskCompleted, models.TaskFailed, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}

	purged, err := result.RowsAffected()
	return int(purged), err
}

func (s *PostgresStore) ClearAll(ctx context.Context) error {
	tables := []string{"captured_pages", "capture_history", "link_index", "content_analysis", "capture_queue"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
