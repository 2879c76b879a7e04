package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"picker/internal/api"
	"picker/internal/logging"
)

// handleLogs serves the in-memory log hub. Query parameters: since (cursor),
// limit, follow (long-poll until an event arrives), tail (latest N), lane,
// batch and component filters.
func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.LogStream()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: []api.LogEvent{}})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := parseFlag(query.Get("follow"))
	tail := parseFlag(query.Get("tail"))

	var (
		raw  []logging.LogEvent
		next uint64
	)
	if tail && since == 0 && !follow {
		raw, next = hub.Tail(limit)
	} else {
		var err error
		raw, next, err = hub.Fetch(r.Context(), since, limit, follow)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			s.writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
	}

	filter := logFilter{
		lane:      strings.TrimSpace(query.Get("lane")),
		batchID:   strings.TrimSpace(query.Get("batch")),
		component: strings.TrimSpace(query.Get("component")),
	}
	events := api.FromLogEvents(raw)
	filtered := make([]api.LogEvent, 0, len(events))
	for _, evt := range events {
		if filter.matches(evt) {
			filtered = append(filtered, evt)
		}
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: filtered, Next: next})
}

type logFilter struct {
	lane      string
	batchID   string
	component string
}

func (f logFilter) matches(evt api.LogEvent) bool {
	if f.lane != "" && !strings.EqualFold(f.lane, evt.Lane) {
		return false
	}
	if f.batchID != "" && !strings.HasPrefix(evt.BatchID, f.batchID) {
		return false
	}
	if f.component != "" && !strings.EqualFold(f.component, evt.Component) {
		return false
	}
	return true
}

func parseFlag(value string) bool {
	value = strings.TrimSpace(value)
	return value == "1" || strings.EqualFold(value, "true")
}
