package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/buscalogo/capture-agent/internal/models"
)

// Nested page fields are stored as JSON text columns, the same way the
// knowledge-base schema stores tags and metadata blobs.

type pageRow struct {
	meta       string
	headings   string
	paragraphs string
	lists      string
	links      string
	terms      string
	analysis   sql.NullString
}

func encodePageRow(page *models.CapturedPage) (*pageRow, error) {
	row := &pageRow{}

	fields := []struct {
		name string
		src  interface{}
		dst  *string
	}{
		{"meta", page.Meta, &row.meta},
		{"headings", page.Headings, &row.headings},
		{"paragraphs", page.Paragraphs, &row.paragraphs},
		{"lists", page.Lists, &row.lists},
		{"links", page.Links, &row.links},
		{"terms", page.Terms, &row.terms},
	}

	for _, f := range fields {
		encoded, err := json.Marshal(f.src)
		if err != nil {
			return nil, fmt.Errorf("error encoding page %s: %w", f.name, err)
		}
		*f.dst = string(encoded)
	}

	if page.ContentAnalysis != nil {
		row.analysis = sql.NullString{String: string(*page.ContentAnalysis), Valid: true}
	}

	return row, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPage(scanner rowScanner) (*models.CapturedPage, error) {
	page := &models.CapturedPage{}
	var ts int64
	var row pageRow
	var sourceType sql.NullString

	err := scanner.Scan(
		&page.URL,
		&page.Title,
		&page.Hostname,
		&ts,
		&page.CapturedBy,
		&row.meta,
		&row.headings,
		&row.paragraphs,
		&row.lists,
		&row.links,
		&row.terms,
		&row.analysis,
		&sourceType,
	)
	if err != nil {
		return nil, err
	}

	page.Timestamp = time.UnixMilli(ts)
	page.SourceType = sourceType.String

	json.Unmarshal([]byte(row.meta), &page.Meta)
	json.Unmarshal([]byte(row.headings), &page.Headings)
	json.Unmarshal([]byte(row.paragraphs), &page.Paragraphs)
	json.Unmarshal([]byte(row.lists), &page.Lists)
	json.Unmarshal([]byte(row.links), &page.Links)
	json.Unmarshal([]byte(row.terms), &page.Terms)

	if row.analysis.Valid {
		raw := json.RawMessage(row.analysis.String)
		page.ContentAnalysis = &raw
	}

	return page, nil
}

type analysisRow struct {
	topics    string
	entities  string
	structure string
}

func encodeAnalysisRow(analysis *models.ContentAnalysis) (*analysisRow, error) {
	topics, err := json.Marshal(analysis.Topics)
	if err != nil {
		return nil, fmt.Errorf("error encoding analysis topics: %w", err)
	}

	entities, err := json.Marshal(analysis.Entities)
	if err != nil {
		return nil, fmt.Errorf("error encoding analysis entities: %w", err)
	}

	structure, err := json.Marshal(analysis.ContentStructure)
	if err != nil {
		return nil, fmt.Errorf("error encoding analysis structure: %w", err)
	}

	return &analysisRow{
		topics:    string(topics),
		entities:  string(entities),
		structure: string(structure),
	}, nil
}

func scanAnalysis(scanner rowScanner) (*models.ContentAnalysis, error) {
	analysis := &models.ContentAnalysis{}
	var row analysisRow
	var analyzedAt int64

	err := scanner.Scan(
		&analysis.URL,
		&analysis.ContentType,
		&row.topics,
		&row.entities,
		&analysis.Sentiment,
		&analysis.ReadingLevel,
		&row.structure,
		&analyzedAt,
	)
	if err != nil {
		return nil, err
	}

	analysis.AnalyzedAt = time.UnixMilli(analyzedAt)
	json.Unmarshal([]byte(row.topics), &analysis.Topics)
	json.Unmarshal([]byte(row.entities), &analysis.Entities)
	json.Unmarshal([]byte(row.structure), &analysis.ContentStructure)

	return analysis, nil
}
