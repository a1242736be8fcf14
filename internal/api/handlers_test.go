package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/buscalogo/capture-agent/internal/capture"
	"github.com/buscalogo/capture-agent/internal/models"
	"github.com/buscalogo/capture-agent/internal/search"
	"github.com/buscalogo/capture-agent/internal/storage"
)

type testLogger struct{}

func (testLogger) LogInfo(string, ...interface{})  {}
func (testLogger) LogError(string, ...interface{}) {}
func (testLogger) LogDebug(string, ...interface{}) {}

type fakeStore struct {
	storage.Store
	pages []*models.CapturedPage
}

func (f *fakeStore) AllPages(context.Context) ([]*models.CapturedPage, error) {
	return f.pages, nil
}

func (f *fakeStore) GetPage(_ context.Context, url string) (*models.CapturedPage, error) {
	for _, page := range f.pages {
		if page.URL == url {
			return page, nil
		}
	}
	return nil, nil
}

func newTestServer(db storage.Store) *Server {
	gin.SetMode(gin.TestMode)
	pages := capture.NewStore(db, testLogger{})
	engine := capture.NewEngine(pages, nil, nil, testLogger{}, capture.EngineConfig{})
	index := search.NewIndex(db)
	handler := NewHandler(db, pages, nil, engine, index, nil, testLogger{})
	return NewServer(0, handler)
}

func doRequest(srv *Server, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	srv.router.ServeHTTP(w, req)

	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestCheckCapturedWithEmptyURL(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	w, body := doRequest(srv, http.MethodGet, "/api/captured?url=")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["isCaptured"] != false {
		t.Errorf("isCaptured = %v, want false", body["isCaptured"])
	}
}

func TestCheckCapturedReportsStoredPage(t *testing.T) {
	srv := newTestServer(&fakeStore{pages: []*models.CapturedPage{
		{URL: "https://example.com/a", Title: "a"},
	}})

	_, body := doRequest(srv, http.MethodGet, "/api/captured?url=https://example.com/a")
	if body["isCaptured"] != true || body["showAlreadyCaptured"] != true {
		t.Errorf("body = %v, want captured page reported", body)
	}

	_, body = doRequest(srv, http.MethodGet, "/api/captured?url=https://example.com/missing")
	if body["isCaptured"] != false {
		t.Errorf("isCaptured = %v for unknown URL, want false", body["isCaptured"])
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	w, body := doRequest(srv, http.MethodGet, "/api/search")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["error"] == nil || body["error"] == "" {
		t.Error("failure envelope without error message")
	}
}

func TestSearchReturnsRankedResults(t *testing.T) {
	srv := newTestServer(&fakeStore{pages: []*models.CapturedPage{
		{URL: "https://example.com/ubuntu", Title: "Ubuntu 24.04 lançado"},
		{URL: "https://example.com/kde", Title: "Plasma 6 disponível"},
	}})

	w, body := doRequest(srv, http.MethodGet, "/api/search?q=ubuntu")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	results, ok := body["results"].(map[string]interface{})
	if !ok {
		t.Fatalf("results envelope missing: %v", body)
	}
	if results["total"] != float64(1) {
		t.Errorf("total = %v, want 1", results["total"])
	}
}

func TestCapturePageRejectsBadPayloads(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	w, body := doRequest(srv, http.MethodPost, "/api/capture")
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty body: status = %d, want 400", w.Code)
	}
	if body["success"] != false {
		t.Errorf("empty body: success = %v, want false", body["success"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	w, body := doRequest(srv, http.MethodGet, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("status body = %v", body["status"])
	}
}
