package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/buscalogo/capture-agent/internal/models"
)

// Rough per-record sizes used to estimate on-disk footprint, carried over
// from the original dashboard's heuristics.
const (
	pageSizeEstimate     = 2048
	linkSizeEstimate     = 500
	analysisSizeEstimate = 1024
)

const pagesPerDayWindow = 7

type hostCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

type dayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type termCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Analytics serves the dashboard aggregates: collection sizes, captures per
// day over the last week, top domains, content type distribution and the
// most frequent search terms.
func (h *Handler) Analytics(c *gin.Context) {
	data, err := h.analyticsData(c)
	if err != nil {
		h.logger.LogError("failed to build analytics: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to build analytics")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// AnalyticsExport dumps every collection plus the aggregates in one JSON
// document, for offline inspection or migration.
func (h *Handler) AnalyticsExport(c *gin.Context) {
	ctx := c.Request.Context()

	analytics, err := h.analyticsData(c)
	if err != nil {
		h.logger.LogError("failed to build analytics for export: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to export data")
		return
	}

	pages, err := h.db.AllPages(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to export data")
		return
	}
	links, err := h.db.AllLinks(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to export data")
		return
	}
	analyses, err := h.db.AllAnalyses(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to export data")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"exportDate":    time.Now().Format(time.RFC3339),
			"version":       "1.0.0",
			"crawlingStats": h.engine.Stats(),
			"analytics":     analytics,
			"pages":         pages,
			"links":         links,
			"analyses":      analyses,
		},
	})
}

func (h *Handler) analyticsData(c *gin.Context) (gin.H, error) {
	ctx := c.Request.Context()

	totalPages, err := h.db.CountPages(ctx)
	if err != nil {
		return nil, err
	}

	links, err := h.db.AllLinks(ctx)
	if err != nil {
		return nil, err
	}

	analyses, err := h.db.AllAnalyses(ctx)
	if err != nil {
		return nil, err
	}

	hostCounts, err := h.db.HostCounts(ctx)
	if err != nil {
		return nil, err
	}

	pages, err := h.db.AllPages(ctx)
	if err != nil {
		return nil, err
	}

	contentTypes := make(map[string]int)
	for _, analysis := range analyses {
		contentTypes[analysis.ContentType]++
	}

	return gin.H{
		"totalPages":    totalPages,
		"totalLinks":    len(links),
		"totalAnalyses": len(analyses),
		"dbSize":        totalPages*pageSizeEstimate + len(links)*linkSizeEstimate + len(analyses)*analysisSizeEstimate,
		"lastUpdate":    time.Now().UnixMilli(),
		"pagesPerDay":   pagesPerDay(pages),
		"topDomains":    topHosts(hostCounts, 10),
		"contentTypes":  contentTypes,
		"topTerms":      topTerms(pages, 10),
	}, nil
}

// pagesPerDay buckets capture timestamps into the trailing seven days,
// oldest first, so sparse days still appear with a zero.
func pagesPerDay(pages []*models.CapturedPage) []dayCount {
	byDay := make(map[string]int)
	for _, page := range pages {
		byDay[page.Timestamp.Format("2006-01-02")]++
	}

	days := make([]dayCount, 0, pagesPerDayWindow)
	start := time.Now().AddDate(0, 0, -(pagesPerDayWindow - 1))
	for i := 0; i < pagesPerDayWindow; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		days = append(days, dayCount{Date: date, Count: byDay[date]})
	}

	return days
}

func topHosts(counts map[string]int, limit int) []hostCount {
	hosts := make([]hostCount, 0, len(counts))
	for host, count := range counts {
		hosts = append(hosts, hostCount{Host: host, Count: count})
	}

	sort.Slice(hosts, func(i, j int) bool {
		if hosts[i].Count != hosts[j].Count {
			return hosts[i].Count > hosts[j].Count
		}
		return hosts[i].Host < hosts[j].Host
	})

	if len(hosts) > limit {
		hosts = hosts[:limit]
	}
	return hosts
}

// topTerms ranks the search terms generated across all captured pages.
func topTerms(pages []*models.CapturedPage, limit int) []termCount {
	counts := make(map[string]int)
	for _, page := range pages {
		for _, term := range page.Terms {
			counts[term]++
		}
	}

	terms := make([]termCount, 0, len(counts))
	for term, count := range counts {
		terms = append(terms, termCount{Term: term, Count: count})
	}

	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})

	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}
