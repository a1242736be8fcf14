package api

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/buscalogo/capture-agent/internal/capture"
	"github.com/buscalogo/capture-agent/internal/models"
	"github.com/buscalogo/capture-agent/internal/monitoring"
	"github.com/buscalogo/capture-agent/internal/relay"
	"github.com/buscalogo/capture-agent/internal/search"
	"github.com/buscalogo/capture-agent/internal/storage"
)

// historyLimit caps how many entries the history endpoint returns. History
// itself is append-only; the cap is read-side only.
const historyLimit = 50

type Handler struct {
	db       storage.Store
	pages    *capture.Store
	capturer *capture.Capturer
	engine   *capture.Engine
	index    *search.Index
	relay    *relay.Client // nil when the relay link is disabled
	logger   capture.Logger
}

func NewHandler(db storage.Store, pages *capture.Store, capturer *capture.Capturer, engine *capture.Engine, index *search.Index, relayClient *relay.Client, logger capture.Logger) *Handler {
	return &Handler{
		db:       db,
		pages:    pages,
		capturer: capturer,
		engine:   engine,
		index:    index,
		relay:    relayClient,
		logger:   logger,
	}
}

// fail writes the failure envelope. Every handler answers exactly once, with
// either {success:true,...} or this.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

type captureRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (h *Handler) CapturePage(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid capture payload")
		return
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		fail(c, http.StatusBadRequest, "A valid absolute URL is required")
		return
	}

	page, isNew, err := h.capturer.Capture(c.Request.Context(), req.URL, req.Title)
	if err != nil {
		h.logger.LogError("capture of %s failed: %v", req.URL, err)
		fail(c, http.StatusInternalServerError, "Failed to capture page")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result": gin.H{
			"isNew":    isNew,
			"pageData": page,
		},
	})
}

// CheckCaptured answers whether a URL is already stored. An empty url is a
// negative answer, not an error.
func (h *Handler) CheckCaptured(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		c.JSON(http.StatusOK, gin.H{
			"success":             true,
			"isCaptured":          false,
			"showAlreadyCaptured": false,
		})
		return
	}

	captured := h.pages.IsCaptured(c.Request.Context(), pageURL)
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"isCaptured":          captured,
		"showAlreadyCaptured": captured,
	})
}

func (h *Handler) CaptureHistory(c *gin.Context) {
	history, err := h.db.RecentHistory(c.Request.Context(), historyLimit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to fetch capture history")
		return
	}

	if history == nil {
		history = []*models.HistoryEntry{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}

func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	totalPages, err := h.db.CountPages(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	uniqueHosts, err := h.db.UniqueHosts(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	historyCount, err := h.db.CountHistory(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	var lastUpdated int64
	if recent, err := h.db.RecentHistory(ctx, 1); err == nil && len(recent) > 0 {
		lastUpdated = recent[0].Timestamp.UnixMilli()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"totalPages":     totalPages,
			"uniqueHosts":    uniqueHosts,
			"lastUpdated":    lastUpdated,
			"captureHistory": historyCount,
		},
	})
}

func (h *Handler) Status(c *gin.Context) {
	connected := false
	peerID := ""
	state := relay.StateDisconnected
	if h.relay != nil {
		connected = h.relay.Connected()
		peerID = h.relay.PeerID()
		state = h.relay.Status()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status": gin.H{
			"isConnectedToServer": connected,
			"peerId":              peerID,
			"serverConnection":    state,
			"isCrawling":          h.engine.IsDraining(),
			"queueSize":           h.engine.QueueSize(),
			"crawlingStats":       h.engine.Stats(),
		},
	})
}

// ClearData wipes every collection and resets the crawling counters.
func (h *Handler) ClearData(c *gin.Context) {
	if err := h.db.ClearAll(c.Request.Context()); err != nil {
		h.logger.LogError("failed to clear collections: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to clear data")
		return
	}

	h.engine.Clear()
	h.logger.LogInfo("all captured data cleared")

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		fail(c, http.StatusBadRequest, "Search query is required")
		return
	}

	monitoring.SearchesTotal.WithLabelValues("api").Inc()

	results, err := h.index.Search(c.Request.Context(), query)
	if err != nil {
		h.logger.LogError("search %q failed: %v", query, err)
		fail(c, http.StatusInternalServerError, "Failed to search pages")
		return
	}

	if results == nil {
		results = []search.ScoredPage{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": gin.H{
			"total":   len(results),
			"results": results,
		},
	})
}
