package ipc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/1broseidon/swaygravity/internal/geometry"
	"github.com/1broseidon/swaygravity/internal/swaywm"
	"github.com/1broseidon/swaygravity/internal/unit"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandPlace     CommandType = "PLACE"
	CommandShutdown  CommandType = "SHUTDOWN"
	CommandGetStatus CommandType = "GET_STATUS"
)

// ErrorKind is the machine-readable error classification carried on the
// wire, so clients can exit with meaningful diagnostics.
type ErrorKind string

const (
	ErrKindNoTarget        ErrorKind = "NO_TARGET"
	ErrKindAmbiguousTarget ErrorKind = "AMBIGUOUS_TARGET"
	ErrKindInvalidState    ErrorKind = "INVALID_STATE"
	ErrKindCommandFailed   ErrorKind = "COMMAND_FAILED"
	ErrKindStartupConflict ErrorKind = "STARTUP_CONFLICT"
	ErrKindConnection      ErrorKind = "CONNECTION_ERROR"
	ErrKindBadRequest      ErrorKind = "BAD_REQUEST"
)

// ErrConnection means no daemon could be reached at all; the caller may need
// to start one.
var ErrConnection = errors.New("cannot reach daemon")

// Request represents an IPC request from client to daemon
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from daemon to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Kind   ErrorKind       `json:"kind,omitempty"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// PlacePayload is the payload for PLACE. Every field is optional; omitted
// fields keep the daemon's current state (anchor-less requests support
// size-only grow/shrink keybindings).
type PlacePayload struct {
	Vertical   *geometry.Vertical   `json:"vertical,omitempty"`
	Horizontal *geometry.Horizontal `json:"horizontal,omitempty"`
	Width      *unit.Spec           `json:"width,omitempty"`
	Height     *unit.Spec           `json:"height,omitempty"`
	Padding    *int                 `json:"padding,omitempty"`
	Natural    *bool                `json:"natural,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DaemonRunning bool   `json:"daemon_running"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Anchor        string `json:"anchor"`
	Padding       int    `json:"padding"`
	Width         string `json:"width,omitempty"`
	Height        string `json:"height,omitempty"`
	Natural       bool   `json:"natural"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a kind and message
func NewErrorResponse(kind ErrorKind, errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Kind:   kind,
		Error:  errMsg,
	}
}

// ResponseForError classifies a daemon-side error into a wire response.
func ResponseForError(err error) *Response {
	return NewErrorResponse(KindForError(err), err.Error())
}

// KindForError maps daemon-side errors onto wire error kinds.
func KindForError(err error) ErrorKind {
	switch {
	case errors.Is(err, swaywm.ErrNoTarget):
		return ErrKindNoTarget
	case errors.Is(err, swaywm.ErrAmbiguousTarget):
		return ErrKindAmbiguousTarget
	case errors.Is(err, unit.ErrInvalidState):
		return ErrKindInvalidState
	case errors.Is(err, swaywm.ErrCommandFailed):
		return ErrKindCommandFailed
	case errors.Is(err, ErrStartupConflict):
		return ErrKindStartupConflict
	case errors.Is(err, ErrConnection):
		return ErrKindConnection
	default:
		return ErrKindBadRequest
	}
}

// DaemonError is a daemon-reported failure surfaced on the client side.
type DaemonError struct {
	Kind    ErrorKind
	Message string
}

func (e *DaemonError) Error() string {
	return fmt.Sprintf("daemon error (%s): %s", e.Kind, e.Message)
}

// Err converts an error response into a client-side error, nil for OK.
func (r *Response) Err() error {
	if r.Status != "ERROR" {
		return nil
	}
	return &DaemonError{Kind: r.Kind, Message: r.Error}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
