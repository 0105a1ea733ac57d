package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// AuthFailureMessage is reported for every 403, whatever the server sent.
const AuthFailureMessage = "Authentication failed: the admin token is invalid or has expired. Please sign in again."

// TimeoutMessage is the error of a call aborted by the per-request timeout.
const TimeoutMessage = "timed out"

// ErrNoData is returned by Decode when the response carried no payload.
var ErrNoData = errors.New("response has no data")

// Result is the single shape every Transport call resolves to.
// Success is true exactly when Error is empty. Status is 0 when the request
// never reached the server.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
	Status  int             `json:"status"`
	Message string          `json:"message,omitempty"`
}

// ErrorKind groups failures the way callers react to them.
type ErrorKind string

const (
	KindNone    ErrorKind = ""
	KindNetwork ErrorKind = "network"
	KindAuth    ErrorKind = "auth"
	KindServer  ErrorKind = "server"
)

// Kind classifies a failed Result; successful results report KindNone.
func (r Result) Kind() ErrorKind {
	switch {
	case r.Success:
		return KindNone
	case r.Status == 0:
		return KindNetwork
	case r.Status == http.StatusForbidden:
		return KindAuth
	default:
		return KindServer
	}
}

// Decode unmarshals the normalized payload into v.
func (r Result) Decode(v any) error {
	if len(r.Data) == 0 {
		return ErrNoData
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func failure(status int, msg string) Result {
	if msg == "" {
		msg = "request failed"
	}
	return Result{Success: false, Status: status, Error: msg}
}

// envelopeKind tags the nesting convention a successful body used.
type envelopeKind int

const (
	kindEmpty envelopeKind = iota
	// kindFlat: the body itself is the payload.
	kindFlat
	// kindNested: {"data": payload}.
	kindNested
	// kindPaginated: {"data": {..., "totalCount"|"totalPages": n}}, kept whole for paginated callers.
	kindPaginated
	// kindDoubleNested: {"data": {"data": payload}} without pagination markers.
	kindDoubleNested
)

func (k envelopeKind) String() string {
	switch k {
	case kindEmpty:
		return "empty"
	case kindFlat:
		return "flat"
	case kindNested:
		return "nested"
	case kindPaginated:
		return "paginated"
	case kindDoubleNested:
		return "double_nested"
	default:
		return "unknown"
	}
}

var paginationMarkers = []string{"totalCount", "totalPages"}

func hasPaginationMarker(obj map[string]json.RawMessage) bool {
	for _, marker := range paginationMarkers {
		if _, ok := obj[marker]; ok {
			return true
		}
	}
	return false
}

// classify picks the envelope kind of a decoded JSON object and returns the
// payload. A nil payload means the caller keeps the whole body: kindFlat, and
// kindPaginated when the markers sit next to "data" instead of inside it.
func classify(top map[string]json.RawMessage) (envelopeKind, json.RawMessage) {
	inner, ok := top["data"]
	if !ok {
		return kindFlat, nil
	}

	var innerObj map[string]json.RawMessage
	if err := json.Unmarshal(inner, &innerObj); err != nil {
		innerObj = nil
	}
	if hasPaginationMarker(innerObj) {
		return kindPaginated, inner
	}
	if hasPaginationMarker(top) {
		return kindPaginated, nil
	}
	if innerObj == nil {
		return kindNested, inner
	}
	if nested, ok := innerObj["data"]; ok {
		return kindDoubleNested, nested
	}
	return kindNested, inner
}

// normalize turns a 2xx body into the payload handed to stores plus the
// optional top-level message.
func normalize(raw []byte) (envelopeKind, json.RawMessage, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return kindEmpty, nil, "", nil
	}
	if !json.Valid(trimmed) {
		return kindEmpty, nil, "", errors.New("response body is not valid JSON")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil || top == nil {
		return kindFlat, nullToNil(trimmed), "", nil
	}

	msg := stringField(top, "message")
	kind, data := classify(top)
	if data == nil {
		data = trimmed
	}
	return kind, nullToNil(data), msg, nil
}

// errorMessage extracts a server error: error.message, then message, then a
// string error, then "HTTP <status>: <statusText>".
func errorMessage(raw []byte, status int) string {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &top); err == nil && top != nil {
		if errRaw, ok := top["error"]; ok {
			var nested map[string]json.RawMessage
			if json.Unmarshal(errRaw, &nested) == nil {
				if msg := stringField(nested, "message"); msg != "" {
					return msg
				}
			}
		}
		if msg := stringField(top, "message"); msg != "" {
			return msg
		}
		if msg := stringField(top, "error"); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}

func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}
