package wsapi_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"media-dubber/internal/jobs"
	"media-dubber/internal/wsapi"
)

func newTestEcho(events *jobs.EventBus) *echo.Echo {
	e := echo.New()
	wsapi.New(&wsapi.Server{Events: events})(e)
	return e
}

func TestHandleEventsReplaysHistoryThenStreamsLive(t *testing.T) {
	events := jobs.NewEventBus()
	events.Publish(jobs.Event{JobID: "job-1", Type: jobs.EventTypeStatus, Status: "queued"})

	server := httptest.NewServer(newTestEcho(events))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/jobs/job-1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read replayed event: %v", err)
	}
	var replayed jobs.Event
	if err := json.Unmarshal(payload, &replayed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if replayed.Status != "queued" {
		t.Fatalf("expected replayed queued event, got %+v", replayed)
	}

	events.Publish(jobs.Event{JobID: "job-1", Type: jobs.EventTypeStatus, Status: "running"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read live event: %v", err)
	}
	var live jobs.Event
	if err := json.Unmarshal(payload, &live); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if live.Status != "running" {
		t.Fatalf("expected live running event, got %+v", live)
	}
}
