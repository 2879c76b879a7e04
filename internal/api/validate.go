package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"picker/internal/config"
	"picker/internal/services"
)

const (
	msgInvalidID    = "Invalid ID"
	msgInvalidOrder = "Order must be an array"
)

// ValidationError is a rejected request. Its message is safe to return to
// clients verbatim.
type ValidationError struct {
	Operation string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return services.ErrValidation
}

func validationError(operation, message string) error {
	return &ValidationError{Operation: operation, Message: message}
}

// PublicMessage returns the text reported to clients for err.
func PublicMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, services.ErrValidation):
		return "Invalid request"
	case errors.Is(err, services.ErrNotFound):
		return "Not found"
	case errors.Is(err, services.ErrUnavailable):
		return "Service unavailable"
	default:
		return "Internal error"
	}
}

// ParsePageQuery clamps raw query values. Unparsable or negative offsets
// become zero; absent, unparsable or non-positive limits take the default;
// limits above a configured maximum are capped.
func ParsePageQuery(offset, limit, filter string, cfg config.Items) PageQuery {
	q := PageQuery{Filter: strings.TrimSpace(filter)}
	if v, err := strconv.Atoi(strings.TrimSpace(offset)); err == nil && v > 0 {
		q.Offset = v
	}
	q.Limit = cfg.DefaultLimit
	if v, err := strconv.Atoi(strings.TrimSpace(limit)); err == nil && v > 0 {
		q.Limit = v
	}
	return q.clamp(cfg)
}

func (q PageQuery) clamp(cfg config.Items) PageQuery {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = cfg.DefaultLimit
	}
	if cfg.MaxLimit > 0 && q.Limit > cfg.MaxLimit {
		q.Limit = cfg.MaxLimit
	}
	return q
}

// DecodeID extracts a positive integral "id" from a JSON object body.
func DecodeID(body []byte) (int64, error) {
	var payload struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, validationError("decode id", msgInvalidID)
	}
	id, ok := positiveInteger(payload.ID)
	if !ok {
		return 0, validationError("decode id", msgInvalidID)
	}
	return id, nil
}

// DecodeOrder extracts an "order" array of positive integral numbers.
func DecodeOrder(body []byte) ([]int64, error) {
	var payload struct {
		Order json.RawMessage `json:"order"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, validationError("decode order", msgInvalidOrder)
	}
	raw := bytes.TrimSpace(payload.Order)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, validationError("decode order", msgInvalidOrder)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, validationError("decode order", msgInvalidOrder)
	}
	order := make([]int64, 0, len(elems))
	for i, elem := range elems {
		id, ok := positiveInteger(elem)
		if !ok {
			return nil, validationError("decode order", fmt.Sprintf("order[%d] must be a positive integer", i))
		}
		order = append(order, id)
	}
	return order, nil
}

// ValidateID checks an id supplied through a typed transport.
func ValidateID(id int64) error {
	if id <= 0 {
		return validationError("validate id", msgInvalidID)
	}
	return nil
}

// ValidateOrder checks a reorder payload supplied through a typed transport.
func ValidateOrder(order []int64) error {
	if order == nil {
		return validationError("validate order", msgInvalidOrder)
	}
	for i, id := range order {
		if id <= 0 {
			return validationError("validate order", fmt.Sprintf("order[%d] must be a positive integer", i))
		}
	}
	return nil
}

// positiveInteger accepts JSON numbers only. Strings, booleans and null are
// rejected even when they spell a number.
func positiveInteger(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, false
	}
	if v, err := num.Int64(); err == nil {
		return v, v > 0
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f <= 0 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// IsValidation reports whether err was rejected at the API boundary.
func IsValidation(err error) bool {
	return errors.Is(err, services.ErrValidation)
}
