package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/buscalogo/capture-agent/internal/models"
)

const sampleAnalysisJSON = `{"contentType":"article","sentiment":"neutral"}`

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Initialize(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	return store
}

func samplePage(url string) *models.CapturedPage {
	analysis := json.RawMessage(sampleAnalysisJSON)
	return &models.CapturedPage{
		URL:             url,
		Title:           "Ubuntu 24.04 lançado",
		Hostname:        "example.com",
		Timestamp:       time.UnixMilli(time.Now().UnixMilli()),
		CapturedBy:      models.CapturedByManual,
		Meta:            map[string]string{"description": "nova versão"},
		Headings:        []models.Heading{{Level: 1, Text: "Ubuntu 24.04"}},
		Paragraphs:      []string{"A nova versão chega aos desktops."},
		Lists:           []models.List{{Type: "ul", Items: []string{"kernel", "instalador"}}},
		Links: []models.DiscoveredLink{{
			URL: "https://example.com/gnome", Text: "Saiba mais", Type: models.LinkArticle, Relevance: 0.8,
		}},
		Terms:           []string{"ubuntu", "versão"},
		ContentAnalysis: &analysis,
	}
}

func TestSavePageRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := samplePage("https://example.com/ubuntu")
	if err := store.SavePage(ctx, want); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}

	got, err := store.GetPage(ctx, want.URL)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetPage returned nil for a saved page")
	}

	if got.Title != want.Title || got.Hostname != want.Hostname || got.CapturedBy != want.CapturedBy {
		t.Errorf("scalar fields differ: %+v", got)
	}
	if got.Timestamp.UnixMilli() != want.Timestamp.UnixMilli() {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, want.Timestamp)
	}
	if got.Meta["description"] != "nova versão" {
		t.Errorf("meta = %v", got.Meta)
	}
	if len(got.Headings) != 1 || got.Headings[0].Level != 1 {
		t.Errorf("headings = %+v", got.Headings)
	}
	if len(got.Lists) != 1 || len(got.Lists[0].Items) != 2 {
		t.Errorf("lists = %+v", got.Lists)
	}
	if len(got.Links) != 1 || got.Links[0].Type != models.LinkArticle {
		t.Errorf("links = %+v", got.Links)
	}
	if len(got.Terms) != 2 {
		t.Errorf("terms = %v", got.Terms)
	}
	if got.ContentAnalysis == nil {
		t.Fatal("content analysis not round-tripped")
	}
	if string(*got.ContentAnalysis) != sampleAnalysisJSON {
		t.Errorf("content analysis = %s, want %s", *got.ContentAnalysis, sampleAnalysisJSON)
	}
}

func TestSavePageUpsertsByURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	page := samplePage("https://example.com/p")
	if err := store.SavePage(ctx, page); err != nil {
		t.Fatal(err)
	}

	page.Title = "Título atualizado"
	page.CapturedBy = models.CapturedByCrawling
	if err := store.SavePage(ctx, page); err != nil {
		t.Fatal(err)
	}

	count, err := store.CountPages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("page count = %d, want 1", count)
	}

	got, err := store.GetPage(ctx, page.URL)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Título atualizado" || got.CapturedBy != models.CapturedByCrawling {
		t.Errorf("upsert did not overwrite: %+v", got)
	}
}

func TestGetPageMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetPage(context.Background(), "https://example.com/nao-existe")
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if got != nil {
		t.Errorf("GetPage = %+v, want nil", got)
	}
}

func TestHostAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"https://a.com/1", "https://a.com/2", "https://b.com/1"} {
		page := samplePage(u)
		page.Hostname = u[8:13]
		if err := store.SavePage(ctx, page); err != nil {
			t.Fatal(err)
		}
	}

	hosts, err := store.UniqueHosts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if hosts != 2 {
		t.Errorf("UniqueHosts = %d, want 2", hosts)
	}

	counts, err := store.HostCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["a.com"] != 2 || counts["b.com"] != 1 {
		t.Errorf("HostCounts = %v", counts)
	}
}

func TestHistoryOrderAndCollision(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.UnixMilli(1700000000000)
	for i := 0; i < 3; i++ {
		entry := &models.HistoryEntry{
			URL:        "https://example.com/p",
			Title:      "entrada",
			Hostname:   "example.com",
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			CapturedBy: models.CapturedByManual,
		}
		if err := store.AppendHistory(ctx, entry); err != nil {
			t.Fatal(err)
		}
	}

	// Same-timestamp append is dropped, not overwritten.
	if err := store.AppendHistory(ctx, &models.HistoryEntry{
		URL: "https://example.com/outra", Timestamp: base,
	}); err != nil {
		t.Fatal(err)
	}

	count, err := store.CountHistory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("history count = %d, want 3", count)
	}

	entries, err := store.RecentHistory(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("RecentHistory = %d entries, want 2", len(entries))
	}
	if !entries[0].Timestamp.After(entries[1].Timestamp) {
		t.Error("history not in most-recent-first order")
	}
	if entries[1].URL != "https://example.com/p" {
		t.Errorf("colliding entry overwrote the original: %+v", entries[1])
	}
}

func TestUpsertLinkPreservesFirstSighting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	firstSeen := time.UnixMilli(1700000000000)
	link := &models.DiscoveredLink{
		URL:            "https://example.com/artigo",
		Text:           "Saiba mais",
		Type:           models.LinkArticle,
		Relevance:      0.8,
		SourceURL:      "https://example.com/",
		SourceHostname: "example.com",
		DiscoveredAt:   firstSeen,
		LastSeen:       firstSeen,
		ClickCount:     2,
	}
	if err := store.UpsertLink(ctx, link); err != nil {
		t.Fatal(err)
	}

	resight := *link
	resight.Text = "Saiba mais sobre o assunto"
	resight.SourceURL = "https://example.com/outra"
	resight.DiscoveredAt = firstSeen.Add(time.Hour)
	resight.LastSeen = firstSeen.Add(time.Hour)
	resight.ClickCount = 0
	if err := store.UpsertLink(ctx, &resight); err != nil {
		t.Fatal(err)
	}

	links, err := store.AllLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("AllLinks = %d links, want 1", len(links))
	}

	got := links[0]
	if got.DiscoveredAt.UnixMilli() != firstSeen.UnixMilli() {
		t.Errorf("DiscoveredAt = %v, want first sighting preserved", got.DiscoveredAt)
	}
	if got.ClickCount != 2 {
		t.Errorf("ClickCount = %d, want 2 preserved", got.ClickCount)
	}
	if got.LastSeen.UnixMilli() != firstSeen.Add(time.Hour).UnixMilli() {
		t.Errorf("LastSeen = %v, want updated", got.LastSeen)
	}
	if got.Text != "Saiba mais sobre o assunto" || got.SourceURL != "https://example.com/outra" {
		t.Errorf("latest sighting fields not updated: %+v", got)
	}
}

func TestTaskLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	early := models.NewCaptureTask("https://example.com/1", "", models.SourceDiscovery)
	early.ScheduledAt = time.UnixMilli(1700000000000)
	late := models.NewCaptureTask("https://example.com/2", "", models.SourceDiscovery)
	late.ScheduledAt = time.UnixMilli(1700000005000)
	late.Status = models.TaskProcessing
	finished := models.NewCaptureTask("https://example.com/3", "", models.SourceDiscovery)
	finished.ScheduledAt = time.UnixMilli(1600000000000)
	finished.Status = models.TaskCompleted

	for _, task := range []*models.CaptureTask{late, early, finished} {
		if err := store.SaveTask(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	tasks, err := store.ResumableTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("ResumableTasks = %d, want 2", len(tasks))
	}
	if tasks[0].ID != early.ID || tasks[1].ID != late.ID {
		t.Errorf("tasks not in scheduled order: %s, %s", tasks[0].ID, tasks[1].ID)
	}

	// Status updates land on the same row.
	early.Status = models.TaskFailed
	early.Attempts = 3
	if err := store.SaveTask(ctx, early); err != nil {
		t.Fatal(err)
	}
	tasks, err = store.ResumableTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("ResumableTasks after failure = %d, want 1", len(tasks))
	}

	purged, err := store.PurgeFinishedTasksBefore(ctx, time.UnixMilli(1650000000000))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1 (only the old completed task)", purged)
	}
}

func TestClearAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SavePage(ctx, samplePage("https://example.com/p")); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendHistory(ctx, &models.HistoryEntry{
		URL: "https://example.com/p", Timestamp: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTask(ctx, models.NewCaptureTask("https://example.com/p", "", models.SourceDiscovery)); err != nil {
		t.Fatal(err)
	}

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	if count, _ := store.CountPages(ctx); count != 0 {
		t.Errorf("pages after clear = %d", count)
	}
	if count, _ := store.CountHistory(ctx); count != 0 {
		t.Errorf("history after clear = %d", count)
	}
	tasks, _ := store.ResumableTasks(ctx)
	if len(tasks) != 0 {
		t.Errorf("tasks after clear = %d", len(tasks))
	}
}
