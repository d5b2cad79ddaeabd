package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/re-cinq/fleetd/internal/config"
)

func TestSendSuccessPostsGreenEmbed(t *testing.T) {
	var mu sync.Mutex
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	SendSuccess([]config.NotifyChan{{Service: "discord", URL: srv.URL}}, "widgets", Metrics{DurationMs: 1500, CPUUsage: 12.5})

	mu.Lock()
	defer mu.Unlock()
	embeds, ok := gotBody["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("expected one embed in payload, got %v", gotBody)
	}
	first := embeds[0].(map[string]any)
	if color, _ := first["color"].(float64); int(color) != colorSuccess {
		t.Errorf("color = %v, want %d", first["color"], colorSuccess)
	}
}

func TestSendFailureSkipsNonDiscordChannels(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	SendFailure([]config.NotifyChan{{Service: "slack", URL: srv.URL}}, "widgets", errTest("boom"))
	if called {
		t.Fatalf("non-discord channel should not receive a request")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
