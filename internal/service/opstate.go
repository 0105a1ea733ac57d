package service

import (
	"errors"
	"fmt"

	"evacconsole/internal/transport"
)

// Operation names used as loading-flag keys.
const (
	OpList         = "list"
	OpDetail       = "detail"
	OpCreate       = "create"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpStatus       = "status"
	OpCameraStatus = "cameraStatus"
	OpScreenStatus = "screenStatus"
	OpHistory      = "history"
	OpLatest       = "latest"
	OpCompute      = "compute"
	OpLogin        = "login"
	OpHealth       = "health"
	OpFetch        = "fetch"
	OpSync         = "sync"
)

var (
	ErrFloorRequired = errors.New("a floor must be selected")
	ErrIDRequired    = errors.New("an id is required")
	ErrInvalidStatus = errors.New("invalid status")
	ErrTokenRequired = errors.New("an admin token is required")
)

// OpError is a failed store operation. Message is the Transport error verbatim.
type OpError struct {
	Op      string
	Status  int
	Kind    transport.ErrorKind
	Message string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func opError(op string, res transport.Result) *OpError {
	return &OpError{Op: op, Status: res.Status, Kind: res.Kind(), Message: res.Error}
}

// decodeError wraps a payload that arrived but did not match the expected shape.
func decodeError(op string, res transport.Result, err error) *OpError {
	return &OpError{Op: op, Status: res.Status, Kind: transport.KindServer, Message: err.Error()}
}

// OpState is the loading/error view every store exposes.
type OpState struct {
	Loading map[string]bool `json:"loading"`
	Error   string          `json:"error,omitempty"`
}

// tracker counts in-flight operations per name so overlapping calls of the
// same kind keep the flag raised until the last one settles. Callers hold the
// store lock.
type tracker struct {
	inFlight map[string]int
	err      string
}

func newTracker() tracker {
	return tracker{inFlight: map[string]int{}}
}

// begin marks op pending and clears the last error.
func (t *tracker) begin(op string) {
	t.inFlight[op]++
	t.err = ""
}

// succeed settles op. The last error is left as is.
func (t *tracker) succeed(op string) {
	t.settle(op)
}

func (t *tracker) fail(op, msg string) {
	t.settle(op)
	t.err = msg
}

func (t *tracker) settle(op string) {
	if t.inFlight[op] > 0 {
		t.inFlight[op]--
	}
}

func (t *tracker) state() OpState {
	loading := make(map[string]bool, len(t.inFlight))
	for op, n := range t.inFlight {
		loading[op] = n > 0
	}
	return OpState{Loading: loading, Error: t.err}
}

func (t *tracker) loading(op string) bool {
	return t.inFlight[op] > 0
}
