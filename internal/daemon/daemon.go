// Package daemon is the long-lived core: a single-goroutine event loop that
// owns the placement state and serializes client requests with window-manager
// events. Nothing in here needs locking; state is only touched from Run.
package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/1broseidon/swaygravity/internal/geometry"
	"github.com/1broseidon/swaygravity/internal/ipc"
	"github.com/1broseidon/swaygravity/internal/state"
	"github.com/1broseidon/swaygravity/internal/swaywm"
)

// Daemon wires the sway connection, placement state and control channel
// together.
type Daemon struct {
	conn   swaywm.Conn
	state  *state.Placement
	logger *slog.Logger

	requests chan ipc.Incoming
	events   chan swaywm.Event

	tracked int64 // window id of the last placement, 0 = none
	start   time.Time
}

// New creates a daemon around an initial placement state.
func New(conn swaywm.Conn, initial *state.Placement, logger *slog.Logger) *Daemon {
	return &Daemon{
		conn:     conn,
		state:    initial,
		logger:   logger,
		requests: make(chan ipc.Incoming, 8),
		events:   make(chan swaywm.Event, 16),
	}
}

// Requests is the channel the IPC server feeds.
func (d *Daemon) Requests() chan ipc.Incoming { return d.requests }

// Events is the channel the sway subscription feeds.
func (d *Daemon) Events() chan swaywm.Event { return d.events }

// Run applies the startup placement and then serves until a shutdown request
// arrives or the context is cancelled. Requests are processed strictly in
// arrival order; a failed request is answered and never kills the loop.
func (d *Daemon) Run(ctx context.Context) error {
	d.start = time.Now()

	if err := d.place(ipc.PlacePayload{}); err != nil {
		// No floating window at startup is normal; the state is applied
		// once a request or reload finds one.
		d.logger.Warn("initial placement not applied", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping", "reason", ctx.Err())
			return nil
		case incoming := <-d.requests:
			if d.handle(incoming) {
				d.logger.Info("shutdown requested")
				return nil
			}
		case event := <-d.events:
			d.handleEvent(event)
		}
	}
}

// handle answers one client request, returning true on shutdown.
func (d *Daemon) handle(incoming ipc.Incoming) (shutdown bool) {
	switch incoming.Req.Command {
	case ipc.CommandPlace:
		var payload ipc.PlacePayload
		if len(incoming.Req.Payload) > 0 {
			if err := json.Unmarshal(incoming.Req.Payload, &payload); err != nil {
				incoming.Reply <- ipc.NewErrorResponse(ipc.ErrKindBadRequest, err.Error())
				return false
			}
		}
		if err := d.place(payload); err != nil {
			d.logger.Error("placement failed", "error", err)
			incoming.Reply <- ipc.ResponseForError(err)
			return false
		}
		incoming.Reply <- okResponse(nil)

	case ipc.CommandShutdown:
		incoming.Reply <- okResponse(nil)
		return true

	case ipc.CommandGetStatus:
		incoming.Reply <- okResponse(d.status())

	default:
		incoming.Reply <- ipc.NewErrorResponse(ipc.ErrKindBadRequest,
			"unknown command: "+string(incoming.Req.Command))
	}
	return false
}

// place runs the full pipeline: select the target window, resolve the size
// against the working area, compute the anchored rect and issue the sway
// commands. State is committed only after both commands succeed.
func (d *Daemon) place(payload ipc.PlacePayload) error {
	ctx := context.Background()

	tree, err := d.conn.Tree(ctx)
	if err != nil {
		return err
	}
	node, err := swaywm.SelectTarget(tree)
	if err != nil {
		return err
	}
	area, err := swaywm.WorkingAreaFor(tree, node.ID)
	if err != nil {
		return err
	}

	current := swaywm.RectOf(node.Rect)
	// The rect sway reports excludes the decoration bar, which moves and
	// scales with the window.
	current.Height += int(node.DecoRect.Height)

	win := state.WindowContext{
		Current:     current,
		Natural:     swaywm.RectOf(node.Geometry),
		WorkingArea: area,
	}

	next := d.state.Clone()
	if err := next.Apply(placeRequest(payload), win); err != nil {
		return err
	}
	width, height, err := next.ResolveSize(win)
	if err != nil {
		return err
	}

	target := geometry.Place(next.Anchor, int(width), int(height), area, next.Padding)

	if err := d.conn.ResizeWindow(ctx, node.ID, width, height); err != nil {
		return err
	}
	if err := d.conn.MoveWindow(ctx, node.ID, target.X, target.Y); err != nil {
		return err
	}

	next.Commit(width, height, win)
	d.state = next
	d.tracked = node.ID

	d.logger.Info("window placed",
		"window", node.ID,
		"anchor", next.Anchor.String(),
		"x", target.X, "y", target.Y,
		"width", width, "height", height)
	return nil
}

func (d *Daemon) handleEvent(event swaywm.Event) {
	switch event.Kind {
	case swaywm.EventWindowClosed:
		if d.tracked != 0 && event.WindowID == d.tracked {
			d.logger.Info("tracked window closed", "window", event.WindowID)
			d.clearTracked()
		}
	case swaywm.EventWindowFloating:
		if d.tracked != 0 && event.WindowID == d.tracked && !event.Floating {
			d.logger.Info("tracked window left floating mode", "window", event.WindowID)
			d.clearTracked()
		}
	case swaywm.EventReload:
		d.logger.Info("sway reloaded, re-applying placement")
		if err := d.place(ipc.PlacePayload{}); err != nil {
			d.logger.Error("re-placement after reload failed", "error", err)
		}
	}
}

// clearTracked drops window-bound state so the next relative request fails
// cleanly instead of working from stale geometry.
func (d *Daemon) clearTracked() {
	d.state.ClearWindow()
	d.tracked = 0
}

func (d *Daemon) status() ipc.StatusData {
	return ipc.StatusData{
		DaemonRunning: true,
		UptimeSeconds: int64(time.Since(d.start).Seconds()),
		Anchor:        d.state.Anchor.String(),
		Padding:       d.state.Padding,
		Width:         d.state.WidthSpec(),
		Height:        d.state.HeightSpec(),
		Natural:       d.state.Natural,
	}
}

func placeRequest(payload ipc.PlacePayload) state.Request {
	return state.Request{
		Vertical:   payload.Vertical,
		Horizontal: payload.Horizontal,
		Padding:    payload.Padding,
		Width:      payload.Width,
		Height:     payload.Height,
		Natural:    payload.Natural,
	}
}

func okResponse(data interface{}) *ipc.Response {
	resp, err := ipc.NewOKResponse(data)
	if err != nil {
		return ipc.NewErrorResponse(ipc.ErrKindBadRequest, err.Error())
	}
	return resp
}
