package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestFanoutHandlerCollapsesNilAndSingle(t *testing.T) {
	if h := newFanoutHandler(nil, nil); h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected a discarding handler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected lone handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRoutesByLevel(t *testing.T) {
	var consoleBuf, fileBuf bytes.Buffer
	console := slog.NewJSONHandler(&consoleBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	file := slog.NewJSONHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(console, file)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled because one handler accepts it")
	}

	logger := slog.New(h)
	logger.Debug("skipped operation", slog.String(FieldOpType, "select"))
	if consoleBuf.Len() != 0 {
		t.Fatalf("info handler received debug record: %s", consoleBuf.String())
	}
	if !bytes.Contains(fileBuf.Bytes(), []byte(`"op_type":"select"`)) {
		t.Fatalf("debug handler missing record: %s", fileBuf.String())
	}
}

func TestFanoutHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String(FieldLane, "fast")}).WithGroup("batch"))
	logger.Info("batch applied", slog.Int("applied", 3))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"lane":"fast"`)) {
			t.Fatalf("handler %d missing lane attr: %s", i, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"batch":{"applied":3}`)) {
			t.Fatalf("handler %d missing group: %s", i, buf.String())
		}
	}
}
