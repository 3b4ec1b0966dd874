package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ConnOpened()
	m.ConnClosed()
	m.SetRooms(3)
	m.MessageStored(KindPublic)
	m.TypingStarted()
	m.HistoryLoaded()
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ConnOpened()
	m.SetRooms(2)
	m.MessageStored(KindPrivate)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	out := string(body)
	for _, want := range []string{
		"roomchat_connections 1",
		"roomchat_rooms 2",
		`roomchat_messages_total{kind="private"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, out)
		}
	}
}
