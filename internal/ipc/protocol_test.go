package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/1broseidon/swaygravity/internal/swaywm"
	"github.com/1broseidon/swaygravity/internal/unit"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"command":"PLACE","payload":{"width":"+30px"}}` + "\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Command != CommandPlace {
		t.Fatalf("got command %q", req.Command)
	}

	var payload PlacePayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Width == nil || payload.Width.Kind != unit.RelativePixels || payload.Width.Pixels != 30 {
		t.Fatalf("got payload %+v", payload)
	}
	if payload.Vertical != nil {
		t.Fatalf("vertical should be absent")
	}
}

func TestParseRequestRejectsGarbage(t *testing.T) {
	if _, err := ParseRequest([]byte("not json\n")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestKindForError(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{swaywm.ErrNoTarget, ErrKindNoTarget},
		{fmt.Errorf("select: %w", swaywm.ErrAmbiguousTarget), ErrKindAmbiguousTarget},
		{fmt.Errorf("width: %w", unit.ErrInvalidState), ErrKindInvalidState},
		{fmt.Errorf("%w: resize", swaywm.ErrCommandFailed), ErrKindCommandFailed},
		{ErrStartupConflict, ErrKindStartupConflict},
		{ErrConnection, ErrKindConnection},
		{errors.New("bad payload"), ErrKindBadRequest},
	}
	for _, c := range cases {
		if got := KindForError(c.err); got != c.want {
			t.Fatalf("KindForError(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestResponseErrRoundTrip(t *testing.T) {
	resp := ResponseForError(fmt.Errorf("select target: %w", swaywm.ErrNoTarget))

	data, err := resp.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	derr := decoded.Err()
	if derr == nil {
		t.Fatalf("expected error")
	}
	var daemonErr *DaemonError
	if !errors.As(derr, &daemonErr) || daemonErr.Kind != ErrKindNoTarget {
		t.Fatalf("got %v", derr)
	}
}

func TestOKResponseHasNoErr(t *testing.T) {
	resp, err := NewOKResponse(StatusData{DaemonRunning: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Err() != nil {
		t.Fatalf("OK response produced error %v", resp.Err())
	}
}
