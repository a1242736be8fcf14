package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

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

func TestReconnectDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := reconnectDelay(tt.attempt); got != tt.want {
			t.Errorf("reconnectDelay(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestClientAnnouncesAndAnswersSearchRequests(t *testing.T) {
	index := search.NewIndex(&fakeStore{pages: []*models.CapturedPage{
		{URL: "https://example.com/ubuntu", Title: "Ubuntu 24.04 lançado"},
	}})

	type exchange struct {
		connect  Message
		response Message
	}
	done := make(chan exchange, 1)

	var once sync.Once
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		scripted := false
		once.Do(func() { scripted = true })
		if !scripted {
			// Reconnection attempts after the test is done just park here.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}

		var ex exchange
		if err := conn.ReadJSON(&ex.connect); err != nil {
			return
		}
		if err := conn.WriteJSON(Message{Type: MsgSearchRequest, QueryID: "q1", Query: "ubuntu"}); err != nil {
			return
		}
		if err := conn.ReadJSON(&ex.response); err != nil {
			return
		}
		done <- ex
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewClient("ws"+strings.TrimPrefix(srv.URL, "http"), index, testLogger{})
	client.Connect(ctx)

	var ex exchange
	select {
	case ex = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no search response from client")
	}
	cancel()

	if ex.connect.Type != MsgPeerConnect {
		t.Errorf("first message type = %q, want %q", ex.connect.Type, MsgPeerConnect)
	}
	if !strings.HasPrefix(ex.connect.PeerID, "agent_") {
		t.Errorf("peerId = %q, want agent_ prefix", ex.connect.PeerID)
	}
	if ex.connect.Capabilities == nil || !ex.connect.Capabilities.Search || !ex.connect.Capabilities.Storage {
		t.Errorf("capabilities = %+v, want search and storage", ex.connect.Capabilities)
	}

	if ex.response.Type != MsgSearchResponse {
		t.Errorf("response type = %q, want %q", ex.response.Type, MsgSearchResponse)
	}
	if ex.response.QueryID != "q1" {
		t.Errorf("response queryId = %q, want q1", ex.response.QueryID)
	}
	if ex.response.Error != "" {
		t.Errorf("response carries error %q", ex.response.Error)
	}
	results, ok := ex.response.Results.([]interface{})
	if !ok || len(results) != 1 {
		t.Errorf("response results = %#v, want one hit", ex.response.Results)
	}
}

func TestHandleSearchRequestWithoutConnectionDoesNotPanic(t *testing.T) {
	index := search.NewIndex(&fakeStore{})
	client := NewClient("ws://localhost:0", index, testLogger{})

	// No query ID: dropped. With query ID: the response send is swallowed.
	client.handleSearchRequest(context.Background(), "", "ubuntu")
	client.handleSearchRequest(context.Background(), "q1", "ubuntu")

	if client.Status() != StateDisconnected {
		t.Errorf("status = %q, want %q", client.Status(), StateDisconnected)
	}
}
