package logger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

type handlerConfig struct {
	level    slog.Leveler
	writer   io.Writer
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as single lines with a stable key
// order, either key=value (dev) or JSON (prod). Context metadata (rid,
// update/user/chat ids, handler) is merged into every record.
type structuredHandler struct {
	cfg   handlerConfig
	rank  map[string]int
	attrs []slog.Attr
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	rank := make(map[string]int, len(cfg.keyOrder))
	for i, key := range cfg.keyOrder {
		rank[key] = i
	}
	return &structuredHandler{cfg: cfg, rank: rank}
}

// Enabled implements slog.Handler.
func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.cfg.level != nil {
		min = h.cfg.level.Level()
	}
	return level >= min
}

// WithAttrs implements slog.Handler.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler. Groups are flattened: the handler
// keeps a flat key space so the key order stays enforceable.
func (h *structuredHandler) WithGroup(string) slog.Handler {
	return h
}

type field struct {
	key   string
	value slog.Value
	seq   int
}

// Handle implements slog.Handler.
func (h *structuredHandler) Handle(ctx context.Context, rec slog.Record) error {
	fields := make([]field, 0, rec.NumAttrs()+len(h.attrs)+8)
	seen := make(map[string]int, rec.NumAttrs()+len(h.attrs)+8)
	seq := 0

	put := func(key string, v slog.Value) {
		if key == "" {
			return
		}
		if idx, ok := seen[key]; ok {
			fields[idx].value = v // last write wins
			return
		}
		seen[key] = len(fields)
		fields = append(fields, field{key: key, value: v, seq: seq})
		seq++
	}

	put("ts", slog.StringValue(rec.Time.UTC().Format(time.RFC3339Nano)))
	put("level", slog.StringValue(normalizeLevel(rec.Level.String())))

	for _, a := range h.attrs {
		put(a.Key, a.Value.Resolve())
	}
	rec.Attrs(func(a slog.Attr) bool {
		put(a.Key, a.Value.Resolve())
		return true
	})
	if rec.Message != "" {
		if _, ok := seen["msg"]; !ok {
			put("msg", slog.StringValue(rec.Message))
		}
	}

	// Context enrichment: only fill keys the caller did not set.
	putCtx := func(key string, v slog.Value) {
		if _, ok := seen[key]; !ok {
			put(key, v)
		}
	}
	if rid := RIDFrom(ctx); rid != "" {
		putCtx("rid", slog.StringValue(rid))
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		putCtx("update_id", slog.IntValue(id))
	}
	if id := UserIDFrom(ctx); id != 0 {
		putCtx("user_id", slog.Int64Value(id))
	}
	if id := ChatIDFrom(ctx); id != 0 {
		putCtx("chat_id", slog.Int64Value(id))
	}
	if name := HandlerFrom(ctx); name != "" {
		putCtx("handler", slog.StringValue(name))
	}

	sort.SliceStable(fields, func(i, j int) bool {
		ri, iKnown := h.rank[fields[i].key]
		rj, jKnown := h.rank[fields[j].key]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return fields[i].seq < fields[j].seq
		}
	})

	var line []byte
	if h.cfg.format == formatKV {
		line = renderKV(fields)
	} else {
		line = renderJSON(fields)
	}
	_, err := h.cfg.writer.Write(line)
	return err
}

func renderKV(fields []field) []byte {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(kvValue(f.value))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func kvValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"=") || s == "" {
			return strconv.Quote(s)
		}
		return s
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	default:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	}
}

func renderJSON(fields []field) []byte {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(f.key)
		b.Write(key)
		b.WriteByte(':')
		b.Write(jsonValue(f.value))
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

func jsonValue(v slog.Value) []byte {
	var raw any
	switch v.Kind() {
	case slog.KindInt64:
		raw = v.Int64()
	case slog.KindUint64:
		raw = v.Uint64()
	case slog.KindFloat64:
		raw = v.Float64()
	case slog.KindBool:
		raw = v.Bool()
	case slog.KindDuration:
		raw = v.Duration().String()
	case slog.KindTime:
		raw = v.Time().UTC().Format(time.RFC3339Nano)
	default:
		raw = v.String()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		data, _ = json.Marshal(v.String())
	}
	return data
}
