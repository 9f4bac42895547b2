package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	sway "github.com/joshuarubin/go-sway"

	"github.com/1broseidon/swaygravity/internal/ipc"
	"github.com/1broseidon/swaygravity/internal/state"
	"github.com/1broseidon/swaygravity/internal/swaywm"
	"github.com/1broseidon/swaygravity/internal/unit"
)

type fakeConn struct {
	tree       *sway.Node
	commands   []string
	failResize bool
}

func (f *fakeConn) Tree(ctx context.Context) (*sway.Node, error) {
	return f.tree, nil
}

func (f *fakeConn) MoveWindow(ctx context.Context, id int64, x, y int) error {
	f.commands = append(f.commands, fmt.Sprintf("move %d %d %d", id, x, y))
	return nil
}

func (f *fakeConn) ResizeWindow(ctx context.Context, id int64, width, height uint32) error {
	if f.failResize {
		return fmt.Errorf("%w: resize rejected", swaywm.ErrCommandFailed)
	}
	f.commands = append(f.commands, fmt.Sprintf("resize %d %dx%d", id, width, height))
	return nil
}

func (f *fakeConn) Wake(ctx context.Context) error { return nil }

// singleFloaterTree is a 1920x1080 workspace with one 16:9 floating window.
func singleFloaterTree() *sway.Node {
	return &sway.Node{
		Type: sway.NodeRoot,
		Nodes: []*sway.Node{{
			Type: sway.NodeOutput,
			Nodes: []*sway.Node{{
				ID:      10,
				Type:    sway.NodeWorkspace,
				Focused: true,
				Rect:    sway.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
				FloatingNodes: []*sway.Node{{
					ID:       12,
					Type:     sway.NodeFloatingCon,
					Rect:     sway.Rect{X: 100, Y: 100, Width: 960, Height: 540},
					Geometry: sway.Rect{Width: 1280, Height: 720},
				}},
			}},
		}},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func specPtr(text string, t *testing.T) *unit.Spec {
	t.Helper()
	s, err := unit.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return &s
}

func newTestDaemon(t *testing.T, conn *fakeConn, initial state.Request) *Daemon {
	t.Helper()
	st, err := state.New(initial)
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	return New(conn, st, testLogger())
}

func TestPlacePipeline(t *testing.T) {
	conn := &fakeConn{tree: singleFloaterTree()}
	padding := 20
	d := newTestDaemon(t, conn, state.Request{
		Width:   specPtr("640px", t),
		Height:  specPtr("360px", t),
		Padding: &padding,
	})

	if err := d.place(ipc.PlacePayload{}); err != nil {
		t.Fatalf("place: %v", err)
	}

	want := []string{
		"resize 12 640x360",
		"move 12 1260 700",
	}
	if len(conn.commands) != len(want) {
		t.Fatalf("got commands %v", conn.commands)
	}
	for i := range want {
		if conn.commands[i] != want[i] {
			t.Fatalf("command %d = %q, want %q", i, conn.commands[i], want[i])
		}
	}
	if d.tracked != 12 {
		t.Fatalf("tracked = %d, want 12", d.tracked)
	}
}

func TestPlaceNoTarget(t *testing.T) {
	tree := singleFloaterTree()
	tree.Nodes[0].Nodes[0].FloatingNodes = nil
	conn := &fakeConn{tree: tree}
	d := newTestDaemon(t, conn, state.Request{})

	err := d.place(ipc.PlacePayload{})
	if !errors.Is(err, swaywm.ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
	if len(conn.commands) != 0 {
		t.Fatalf("no commands expected, got %v", conn.commands)
	}
}

func TestFailedCommandLeavesStateUntouched(t *testing.T) {
	conn := &fakeConn{tree: singleFloaterTree(), failResize: true}
	d := newTestDaemon(t, conn, state.Request{Width: specPtr("640px", t)})

	err := d.place(ipc.PlacePayload{})
	if !errors.Is(err, swaywm.ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if _, _, ok := d.state.LastSize(); ok {
		t.Fatalf("state committed despite failed command")
	}
	if d.tracked != 0 {
		t.Fatalf("window tracked despite failed command")
	}
}

func TestRelativeResizeUsesCommittedSize(t *testing.T) {
	conn := &fakeConn{tree: singleFloaterTree()}
	d := newTestDaemon(t, conn, state.Request{
		Width:  specPtr("640px", t),
		Height: specPtr("360px", t),
	})

	if err := d.place(ipc.PlacePayload{}); err != nil {
		t.Fatalf("initial place: %v", err)
	}

	conn.commands = nil
	if err := d.place(ipc.PlacePayload{Width: specPtr("+5%", t)}); err != nil {
		t.Fatalf("relative place: %v", err)
	}
	// 640 + round(1920*0.05) = 736; height follows the committed 16:9 shape.
	if conn.commands[0] != "resize 12 736x414" {
		t.Fatalf("got %q", conn.commands[0])
	}
}

func TestWindowCloseClearsState(t *testing.T) {
	conn := &fakeConn{tree: singleFloaterTree()}
	d := newTestDaemon(t, conn, state.Request{Width: specPtr("640px", t)})

	if err := d.place(ipc.PlacePayload{}); err != nil {
		t.Fatalf("place: %v", err)
	}

	d.handleEvent(swaywm.Event{Kind: swaywm.EventWindowClosed, WindowID: 12})
	if d.tracked != 0 {
		t.Fatalf("window still tracked after close")
	}

	err := d.place(ipc.PlacePayload{Width: specPtr("+30px", t)})
	if !errors.Is(err, unit.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestUnfloatClearsStateOnlyForTrackedWindow(t *testing.T) {
	conn := &fakeConn{tree: singleFloaterTree()}
	d := newTestDaemon(t, conn, state.Request{Width: specPtr("640px", t)})

	if err := d.place(ipc.PlacePayload{}); err != nil {
		t.Fatalf("place: %v", err)
	}

	// Another window changing floating state is irrelevant.
	d.handleEvent(swaywm.Event{Kind: swaywm.EventWindowFloating, WindowID: 99, Floating: false})
	if d.tracked != 12 {
		t.Fatalf("tracking lost on unrelated window event")
	}

	d.handleEvent(swaywm.Event{Kind: swaywm.EventWindowFloating, WindowID: 12, Floating: false})
	if d.tracked != 0 {
		t.Fatalf("window still tracked after leaving floating mode")
	}
}

func TestReloadReappliesPlacement(t *testing.T) {
	conn := &fakeConn{tree: singleFloaterTree()}
	d := newTestDaemon(t, conn, state.Request{Width: specPtr("640px", t), Height: specPtr("360px", t)})

	if err := d.place(ipc.PlacePayload{}); err != nil {
		t.Fatalf("place: %v", err)
	}

	conn.commands = nil
	d.handleEvent(swaywm.Event{Kind: swaywm.EventReload})
	if len(conn.commands) != 2 {
		t.Fatalf("reload did not re-place: %v", conn.commands)
	}
}

func TestHandleShutdown(t *testing.T) {
	d := newTestDaemon(t, &fakeConn{tree: singleFloaterTree()}, state.Request{})

	incoming := ipc.Incoming{
		Req:   &ipc.Request{Command: ipc.CommandShutdown},
		Reply: make(chan *ipc.Response, 1),
	}
	if !d.handle(incoming) {
		t.Fatalf("shutdown not signalled")
	}
	resp := <-incoming.Reply
	if resp.Status != "OK" {
		t.Fatalf("shutdown reply %+v", resp)
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	d := newTestDaemon(t, &fakeConn{tree: singleFloaterTree()}, state.Request{})

	incoming := ipc.Incoming{
		Req:   &ipc.Request{Command: "NOPE"},
		Reply: make(chan *ipc.Response, 1),
	}
	if d.handle(incoming) {
		t.Fatalf("unknown command must not shut the daemon down")
	}
	resp := <-incoming.Reply
	if resp.Kind != ipc.ErrKindBadRequest {
		t.Fatalf("got %+v", resp)
	}
}

func TestRunServesAndShutsDown(t *testing.T) {
	conn := &fakeConn{tree: singleFloaterTree()}
	d := newTestDaemon(t, conn, state.Request{Width: specPtr("640px", t), Height: specPtr("360px", t)})

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	status := ipc.Incoming{
		Req:   &ipc.Request{Command: ipc.CommandGetStatus},
		Reply: make(chan *ipc.Response, 1),
	}
	d.Requests() <- status
	resp := <-status.Reply
	if resp.Status != "OK" {
		t.Fatalf("status reply %+v", resp)
	}

	shutdown := ipc.Incoming{
		Req:   &ipc.Request{Command: ipc.CommandShutdown},
		Reply: make(chan *ipc.Response, 1),
	}
	d.Requests() <- shutdown
	<-shutdown.Reply

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after shutdown")
	}
}
