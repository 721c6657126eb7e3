package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"log/slog"
)

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	mw := newMultiWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   mw,
		format:   formatKV,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "app")
	LogEvent(ctx, log, slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)
	if err := mw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	tokens := strings.Split(line, " ")
	if len(tokens) < 6 {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	mw := newMultiWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   mw,
		format:   formatJSON,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	log := slog.New(handler).With("component", "service.payments")
	LogEvent(ctx, log, slog.LevelError, "payment.decide",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)
	if err := mw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", decoded["level"])
	}
	if decoded["event"] != "payment.decide" {
		t.Errorf("event = %v, want payment.decide", decoded["event"])
	}
	if decoded["rid"] != "rid-json" {
		t.Errorf("rid = %v, want rid-json", decoded["rid"])
	}
	if decoded["user_id"] != float64(22) {
		t.Errorf("user_id = %v, want 22", decoded["user_id"])
	}
	// JSON output must keep the pinned prefix order too.
	idx := func(s string) int { return strings.Index(line, `"`+s+`"`) }
	if !(idx("ts") < idx("level") && idx("level") < idx("component") && idx("component") < idx("event")) {
		t.Errorf("key order broken: %s", line)
	}
}

func TestStructuredHandlerLastWriteWins(t *testing.T) {
	buf := &bytes.Buffer{}
	mw := newMultiWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   mw,
		format:   formatKV,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	log := slog.New(handler).With("status", "ok")
	log.LogAttrs(Background(), slog.LevelInfo, "", slog.String("status", "fail"))
	if err := mw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	line := buf.String()
	if !strings.Contains(line, "status=fail") {
		t.Errorf("expected overridden status, got %s", line)
	}
	if strings.Count(line, "status=") != 1 {
		t.Errorf("duplicate status keys in %s", line)
	}
}

func TestSanitizeLimit(t *testing.T) {
	in := "abc\x00def\x7fghi"
	if got := Sanitize(in); got != "abcdefghi" {
		t.Errorf("Sanitize = %q", got)
	}
	if got := SanitizeLimit("абвгд", 3); got != "абв" {
		t.Errorf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("short", 10); got != "short" {
		t.Errorf("SanitizeLimit = %q", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := 0
	for i := 0; i < 9; i++ {
		if s.Allow() {
			got++
		}
	}
	if got != 3 {
		t.Errorf("allowed %d of 9, want 3", got)
	}
}
