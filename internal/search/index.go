package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/buscalogo/capture-agent/internal/models"
	"github.com/buscalogo/capture-agent/internal/storage"
)

// Scoring weights. The scheme is additive substring matching, no stemming,
// so the same corpus and query always produce the same ranking.
const (
	titleContainsScore = 10
	titlePrefixScore   = 5
	descriptionScore   = 8
	headingScore       = 6
	paragraphScore     = 3
	termScore          = 4
)

// ScoredPage is one search hit with its accumulated score.
type ScoredPage struct {
	Page  *models.CapturedPage `json:"page"`
	Score int                  `json:"score"`
}

// Index ranks captured pages against free-text queries. It reads the full
// page collection per query; the corpus is one person's browsing history, so
// a scan is cheap and keeps results exact.
type Index struct {
	db storage.Store
}

func NewIndex(db storage.Store) *Index {
	return &Index{db: db}
}

// Search scores every captured page against query and returns the hits in
// descending score order. Pages that match nothing are excluded. Ties keep
// store order, so repeated queries over an unchanged corpus return identical
// rankings. Callers paginate; this layer does not.
func (idx *Index) Search(ctx context.Context, query string) ([]ScoredPage, error) {
	pages, err := idx.db.AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages for search: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	var hits []ScoredPage
	for _, page := range pages {
		if score := scorePage(page, needle); score > 0 {
			hits = append(hits, ScoredPage{Page: page, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	return hits, nil
}

// scorePage accumulates match weights for one page. needle must already be
// lowercased.
func scorePage(page *models.CapturedPage, needle string) int {
	score := 0

	title := strings.ToLower(page.Title)
	if strings.Contains(title, needle) {
		score += titleContainsScore
	}
	if strings.HasPrefix(title, needle) {
		score += titlePrefixScore
	}

	if desc, ok := page.Meta["description"]; ok {
		if strings.Contains(strings.ToLower(desc), needle) {
			score += descriptionScore
		}
	}

	for _, heading := range page.Headings {
		if strings.Contains(strings.ToLower(heading.Text), needle) {
			score += headingScore
		}
	}

	for _, paragraph := range page.Paragraphs {
		if strings.Contains(strings.ToLower(paragraph), needle) {
			score += paragraphScore
		}
	}

	for _, term := range page.Terms {
		if strings.Contains(term, needle) {
			score += termScore
		}
	}

	return score
}
