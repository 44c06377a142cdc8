package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func stubServer(t *testing.T, handler http.HandlerFunc) BaseURLFunc {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return func() string { return ts.URL }
}

func TestParseTimeArg(t *testing.T) {
	if ms, err := parseTimeArg(""); err != nil || ms != 0 {
		t.Fatalf("empty: %d, %v", ms, err)
	}
	if ms, err := parseTimeArg("1726833600000"); err != nil || ms != 1726833600000 {
		t.Fatalf("epoch ms: %d, %v", ms, err)
	}
	if ms, err := parseTimeArg("2026-08-30T12:00:00Z"); err != nil || ms == 0 {
		t.Fatalf("rfc3339: %d, %v", ms, err)
	}
	if _, err := parseTimeArg("yesterday"); err == nil {
		t.Fatal("bad time accepted")
	}
}

func TestDecodedPayload(t *testing.T) {
	out := decodedPayload(map[string]any{}, []byte(`{"a":1}`))
	if _, ok := out["payload_json"]; !ok {
		t.Fatalf("json payload not decoded: %v", out)
	}
	out = decodedPayload(map[string]any{}, []byte("plain text"))
	if out["payload_text"] != "plain text" {
		t.Fatalf("text payload not decoded: %v", out)
	}
	out = decodedPayload(map[string]any{}, []byte{0xff, 0xfe})
	if _, ok := out["payload_b64"]; !ok {
		t.Fatalf("binary payload not decoded: %v", out)
	}
}

func TestNotifySendCommand(t *testing.T) {
	var got map[string]any
	baseURL := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/notifications" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "0123", "eventTime": 1})
	})

	cmd := NewNotifyCommand(baseURL)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"send", "--stream", "NETCONF", "--event", "link-down", "--data", `{"if":"eth0"}`})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got["stream"] != "NETCONF" || got["event"] != "link-down" {
		t.Fatalf("request body: %v", got)
	}
	if !strings.Contains(out.String(), `"id"`) {
		t.Fatalf("output: %s", out.String())
	}
}

func TestNotifySendRequiresEvent(t *testing.T) {
	cmd := NewNotifyCommand(func() string { return "http://127.0.0.1:0" })
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"send", "--stream", "NETCONF"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("missing --event accepted")
	}
}

func TestNotifySubscribePrintsEventsAndStopsAtComplete(t *testing.T) {
	baseURL := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("stream") != "NETCONF" {
			t.Errorf("stream param: %q", r.URL.Query().Get("stream"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: notification\ndata: {\"id\":\"a\",\"name\":\"e1\",\"eventTime\":1}\n\n"))
		_, _ = w.Write([]byte("event: replayComplete\ndata: \n\n"))
		_, _ = w.Write([]byte("event: notification\ndata: {\"id\":\"b\",\"name\":\"e2\",\"eventTime\":2}\n\n"))
		_, _ = w.Write([]byte("event: notificationComplete\ndata: \n\n"))
	})

	cmd := NewNotifyCommand(baseURL)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"subscribe", "--stream", "NETCONF", "--start", "1"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.Contains(lines[0], `"e1"`) ||
		!strings.Contains(lines[1], "replayComplete") ||
		!strings.Contains(lines[2], `"e2"`) ||
		!strings.Contains(lines[3], "notificationComplete") {
		t.Fatalf("output order wrong: %v", lines)
	}
}

func TestNotifySubscribeSurfacesRejection(t *testing.T) {
	baseURL := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error-app-tag": "already-subscribed",
			"error-message": "client busy",
		})
	})

	cmd := NewNotifyCommand(baseURL)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"subscribe"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "already-subscribed") {
		t.Fatalf("error: %v", err)
	}
}

func TestNotifyCloseCommand(t *testing.T) {
	baseURL := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/subscriptions/close" {
			t.Errorf("path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	cmd := NewNotifyCommand(baseURL)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"close", "--client", "c1"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "OK") {
		t.Fatalf("output: %s", out.String())
	}
}

func TestStreamListCommand(t *testing.T) {
	baseURL := stubServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"streams": []map[string]any{{"name": "NETCONF"}}})
	})

	cmd := NewStreamCommand(baseURL)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"list"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "NETCONF") {
		t.Fatalf("output: %s", out.String())
	}
}
