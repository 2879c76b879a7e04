package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"picker/internal/api"
)

// reserved keys are lifted out of the JSON record into LogEvent fields.
var reserved = map[string]struct{}{
	"ts": {}, "level": {}, "msg": {}, "source": {},
	"component": {}, "lane": {}, "batch_id": {}, "item_id": {}, "correlation_id": {},
}

// DecodeLine parses one line of a daemon JSON log file. Lines that are not
// JSON objects report false.
func DecodeLine(line string) (api.LogEvent, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return api.LogEvent{}, false
	}
	evt := api.LogEvent{
		Level:         stringField(raw, "level"),
		Message:       stringField(raw, "msg"),
		Component:     stringField(raw, "component"),
		Lane:          stringField(raw, "lane"),
		BatchID:       stringField(raw, "batch_id"),
		CorrelationID: stringField(raw, "correlation_id"),
	}
	if ts, err := time.Parse(time.RFC3339Nano, stringField(raw, "ts")); err == nil {
		evt.Timestamp = ts
	}
	if id, ok := raw["item_id"].(float64); ok {
		evt.ItemID = int64(id)
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		if _, skip := reserved[key]; !skip {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		evt.Fields = make(map[string]string, len(keys))
		for _, key := range keys {
			evt.Fields[key] = fmt.Sprint(raw[key])
		}
	}
	return evt, true
}

func stringField(raw map[string]any, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}
