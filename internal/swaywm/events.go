package swaywm

import (
	"context"
	"time"

	sway "github.com/joshuarubin/go-sway"
)

// EventKind classifies the window-manager events the daemon reacts to.
type EventKind int

const (
	// EventWindowClosed: a window disappeared.
	EventWindowClosed EventKind = iota
	// EventWindowFloating: a window's floating state toggled.
	EventWindowFloating
	// EventReload: sway reloaded its config; placements need re-applying.
	EventReload
)

// Event is one window-manager notification, reduced to what the daemon needs.
type Event struct {
	Kind     EventKind
	WindowID int64
	Floating bool
}

type subscription struct {
	sway.EventHandler

	events chan<- Event
	settle time.Duration
}

func (s subscription) Window(ctx context.Context, e sway.WindowEvent) {
	switch e.Change {
	case sway.WindowClose:
		s.send(Event{Kind: EventWindowClosed, WindowID: e.Container.ID})
	case sway.WindowFloating:
		s.send(Event{
			Kind:     EventWindowFloating,
			WindowID: e.Container.ID,
			Floating: e.Container.Type == sway.NodeFloatingCon,
		})
	}
}

func (s subscription) Workspace(ctx context.Context, e sway.WorkspaceEvent) {
	if e.Change != "reload" {
		return
	}
	// Let sway settle after a reload; bars and gaps move things around
	// without emitting further events.
	time.Sleep(s.settle)
	s.send(Event{Kind: EventReload})
}

// send never blocks: the daemon loop may be mid-command, and sway events are
// only hints that can be coalesced or dropped.
func (s subscription) send(e Event) {
	select {
	case s.events <- e:
	default:
	}
}

// Subscribe forwards window and workspace events onto the channel until the
// context is cancelled. It blocks for the lifetime of the subscription.
func Subscribe(ctx context.Context, events chan<- Event, settle time.Duration) error {
	h := subscription{
		EventHandler: sway.NoOpEventHandler(),
		events:       events,
		settle:       settle,
	}
	return sway.Subscribe(ctx, h, sway.EventTypeWindow, sway.EventTypeWorkspace)
}
