package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler renders one header line per record:
//
//	2026-03-01 12:00:00 INFO [dispatcher] Fast · Batch 1a2b3c4d – batch applied
//	    - Applied: 3
//
// Info and above list highlighted fields as bullets; debug records append
// every field as key=value on the header line. Clones share the mutex and
// writer.
type prettyHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	prefix    string
	pre       []kv
}

func newPrettyHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]kv, 0, len(h.pre)+record.NumAttrs())
	fields = append(fields, h.pre...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFlattened(fields, h.prefix, attr)
		return true
	})
	fields = dedupeKVsByKey(fields)

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	subj := subjectOf(fields)

	var buf bytes.Buffer
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if subj.component != "" {
		buf.WriteString(" [" + subj.component + "]")
	}
	if text := subj.String(); text != "" {
		buf.WriteString(" " + text)
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	buf.WriteString(" – " + message)

	if record.Level < slog.LevelInfo {
		for _, f := range fields {
			if f.key == FieldComponent {
				continue
			}
			buf.WriteString(" " + f.key + "=" + formatValue(f.value))
		}
		if src := record.Source(); h.addSource && src != nil {
			buf.WriteString(" (" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + ")")
		}
		buf.WriteByte('\n')
	} else {
		buf.WriteByte('\n')
		info, hidden := selectInfoFields(fields, 0, true)
		for _, field := range info {
			buf.WriteString("    - " + field.label + ": " + field.value + "\n")
		}
		if hidden > 0 {
			buf.WriteString("    + " + strconv.Itoa(hidden) + " more hidden\n")
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.pre = append([]kv(nil), h.pre...)
	for _, attr := range attrs {
		clone.pre = appendFlattened(clone.pre, h.prefix, attr)
	}
	return &clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// subject identifies what a log line is about: a lane, a batch, an item.
type subject struct {
	component string
	lane      string
	batchID   string
	itemID    string
}

func subjectOf(fields []kv) subject {
	var s subject
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			s.component = attrString(f.value)
		case FieldLane:
			s.lane = attrString(f.value)
		case FieldBatchID:
			s.batchID = attrString(f.value)
		case FieldItemID:
			s.itemID = attrString(f.value)
		}
	}
	return s
}

// String renders the subject as "Fast · Batch 1a2b3c4d · Item #5".
func (s subject) String() string {
	parts := make([]string, 0, 3)
	if lane := strings.TrimSpace(s.lane); lane != "" {
		parts = append(parts, capitalizeASCII(lane))
	}
	if batch := strings.TrimSpace(s.batchID); batch != "" {
		if len(batch) > 8 {
			batch = batch[:8]
		}
		parts = append(parts, "Batch "+batch)
	}
	if item := strings.TrimSpace(s.itemID); item != "" {
		parts = append(parts, "Item #"+item)
	}
	return strings.Join(parts, " · ")
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKVsByKey keeps the first position of each key with the last value.
func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	index := make(map[string]int, len(attrs))
	out := attrs[:0:0]
	for _, attr := range attrs {
		if pos, ok := index[attr.key]; ok {
			out[pos].value = attr.value
			continue
		}
		index[attr.key] = len(out)
		out = append(out, attr)
	}
	return out
}

// appendFlattened expands groups into dotted keys and drops empty attrs.
func appendFlattened(dst []kv, prefix string, attr slog.Attr) []kv {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() != slog.KindGroup {
		return append(dst, kv{key: prefix + attr.Key, value: value})
	}
	if attr.Key != "" {
		prefix += attr.Key + "."
	}
	for _, member := range value.Group() {
		dst = appendFlattened(dst, prefix, member)
	}
	return dst
}
