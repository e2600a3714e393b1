package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/rufetisr/FitnessTelegramBot/internal/dispatch"
)

func newWebhookBot(t *testing.T) (*Bot, *recordingHandler, *dispatch.Dispatcher) {
	t.Helper()
	h := &recordingHandler{}
	d := dispatch.New(context.Background(), nil)
	return New(&fakeAPI{}, d, h, nil), h, d
}

func post(h http.Handler, path, body, remote, fwd string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = remote
	if fwd != "" {
		req.Header.Set("X-Forwarded-For", fwd)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const updateJSON = `{"update_id":10,"message":{"message_id":1,"date":0,"chat":{"id":555,"type":"private"},"text":"/start"}}`

func TestWebhook_AcceptsUpdate(t *testing.T) {
	b, h, d := newWebhookBot(t)
	rec := post(b.WebhookHandler("s3cret", true), "/webhook/s3cret", updateJSON, "10.0.0.2:4431", "203.0.113.7, 10.0.0.1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	d.Close()

	got := h.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %+v", got)
	}
	if got[0].SessionID != "555" || got[0].Text != "/start" || got[0].ClientIP != "203.0.113.7" {
		t.Fatalf("unexpected event: %+v", got[0])
	}
}

func TestWebhook_WrongSecret(t *testing.T) {
	b, h, d := newWebhookBot(t)
	rec := post(b.WebhookHandler("s3cret", true), "/webhook/guess", updateJSON, "10.0.0.2:4431", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	d.Close()
	if len(h.snapshot()) != 0 {
		t.Fatal("update with wrong secret was handled")
	}
}

func TestWebhook_BadJSON(t *testing.T) {
	b, _, d := newWebhookBot(t)
	defer d.Close()
	rec := post(b.WebhookHandler("s3cret", true), "/webhook/s3cret", `{"update_id":`, "10.0.0.2:4431", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebhook_HealthAndMetrics(t *testing.T) {
	b, _, d := newWebhookBot(t)
	defer d.Close()
	h := b.WebhookHandler("s3cret", true)

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		remote, fwd string
		trust       bool
		want        string
	}{
		{"192.0.2.1:1234", "", true, "192.0.2.1"},
		{"192.0.2.1:1234", "198.51.100.4", true, "198.51.100.4"},
		{"192.0.2.1:1234", " 198.51.100.4 , 10.0.0.1", true, "198.51.100.4"},
		{"192.0.2.1:1234", "garbage", true, "192.0.2.1"},
		{"192.0.2.1:1234", "198.51.100.4", false, "192.0.2.1"},
		{"[2001:db8::1]:443", "", false, "2001:db8::1"},
		{"pipe", "", true, ""},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = c.remote
		if c.fwd != "" {
			req.Header.Set("X-Forwarded-For", c.fwd)
		}
		if got := ClientIP(req, c.trust); got != c.want {
			t.Errorf("ClientIP(%q, %q, %v) = %q, want %q", c.remote, c.fwd, c.trust, got, c.want)
		}
	}
}

func TestWebhook_IgnoresForwardedForWithoutProxy(t *testing.T) {
	b, h, d := newWebhookBot(t)
	rec := post(b.WebhookHandler("s3cret", false), "/webhook/s3cret", updateJSON, "10.0.0.2:4431", "203.0.113.7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	d.Close()

	got := h.snapshot()
	if len(got) != 1 || got[0].ClientIP != "10.0.0.2" {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), zap.NewNop()) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Serve: %v", err)
	}
}
