// Package state holds the daemon-resident placement record: the last applied
// anchor, size specifications and window-bound geometry history. It is only
// ever touched from the daemon's event loop.
package state

import (
	"fmt"
	"math"

	"github.com/1broseidon/swaygravity/internal/geometry"
	"github.com/1broseidon/swaygravity/internal/unit"
)

// Request carries the optional fields of a placement request; nil means
// "leave unchanged".
type Request struct {
	Vertical   *geometry.Vertical
	Horizontal *geometry.Horizontal
	Padding    *int
	Width      *unit.Spec
	Height     *unit.Spec
	Natural    *bool
}

// WindowContext is the live geometry of the target window at request time.
type WindowContext struct {
	Current     geometry.Rect // window rect, decoration included
	Natural     geometry.Rect // the window's own reported geometry, may be zero
	WorkingArea geometry.Rect // unpadded workspace rect
}

// Placement is the placement state for the tracked window. Width and height
// specs are always absolute once stored; a nil spec means that dimension is
// governed by the aspect rule (or left unchanged when both are nil).
type Placement struct {
	Anchor  geometry.Anchor
	Padding int
	Natural bool

	width  *unit.Spec
	height *unit.Spec

	lastWidth  uint32 // last applied size, 0 = unknown
	lastHeight uint32
	ratio      float64 // width/height at first observation, 0 = unknown
}

// New builds the initial daemon state. Relative specs are rejected: there is
// no running state to offset from.
func New(initial Request) (*Placement, error) {
	p := &Placement{Anchor: geometry.DefaultAnchor()}

	if initial.Width != nil && initial.Width.IsRelative() {
		return nil, fmt.Errorf("initial width must not be relative")
	}
	if initial.Height != nil && initial.Height.IsRelative() {
		return nil, fmt.Errorf("initial height must not be relative")
	}
	if initial.Padding != nil && *initial.Padding < 0 {
		return nil, fmt.Errorf("padding must not be negative")
	}

	p.apply(initial)
	if initial.Width != nil {
		w := *initial.Width
		p.width = &w
	}
	if initial.Height != nil {
		h := *initial.Height
		p.height = &h
	}
	return p, nil
}

func (p *Placement) apply(req Request) {
	if req.Vertical != nil {
		p.Anchor.Vertical = *req.Vertical
	}
	if req.Horizontal != nil {
		p.Anchor.Horizontal = *req.Horizontal
	}
	if req.Padding != nil {
		p.Padding = *req.Padding
	}
	if req.Natural != nil {
		p.Natural = *req.Natural
	}
}

// Clone returns an independent copy, used so a failed command leaves the
// committed state untouched.
func (p *Placement) Clone() *Placement {
	c := *p
	if p.width != nil {
		w := *p.width
		c.width = &w
	}
	if p.height != nil {
		h := *p.height
		c.height = &h
	}
	return &c
}

// Apply merges a request into the state, normalizing relative specs to
// absolute pixel specs against the working area and the last applied size.
// Supplying exactly one dimension clears the stored other dimension so the
// aspect rule governs it; supplying both pins both.
func (p *Placement) Apply(req Request, win WindowContext) error {
	p.apply(req)

	switch {
	case req.Width != nil && req.Height != nil:
		w, err := p.normalize(*req.Width, uint32(win.WorkingArea.Width), p.lastWidth)
		if err != nil {
			return fmt.Errorf("width: %w", err)
		}
		h, err := p.normalize(*req.Height, uint32(win.WorkingArea.Height), p.lastHeight)
		if err != nil {
			return fmt.Errorf("height: %w", err)
		}
		p.width, p.height = &w, &h
	case req.Width != nil:
		w, err := p.normalize(*req.Width, uint32(win.WorkingArea.Width), p.lastWidth)
		if err != nil {
			return fmt.Errorf("width: %w", err)
		}
		p.width, p.height = &w, nil
	case req.Height != nil:
		h, err := p.normalize(*req.Height, uint32(win.WorkingArea.Height), p.lastHeight)
		if err != nil {
			return fmt.Errorf("height: %w", err)
		}
		p.width, p.height = nil, &h
	}
	return nil
}

func (p *Placement) normalize(spec unit.Spec, reference, last uint32) (unit.Spec, error) {
	if !spec.IsRelative() {
		return spec, nil
	}
	var previous *uint32
	if last > 0 {
		previous = &last
	}
	px, err := unit.Resolve(spec, reference, previous)
	if err != nil {
		return unit.Spec{}, err
	}
	return unit.Pixels(px), nil
}

// ResolveSize computes the target pixel size from the stored specs. An
// omitted dimension follows the aspect ratio of the window; when neither
// dimension was ever specified the window keeps its previous (or current)
// size.
func (p *Placement) ResolveSize(win WindowContext) (uint32, uint32, error) {
	refW := uint32(win.WorkingArea.Width)
	refH := uint32(win.WorkingArea.Height)

	switch {
	case p.width != nil && p.height != nil:
		w, err := unit.Resolve(*p.width, refW, nil)
		if err != nil {
			return 0, 0, err
		}
		h, err := unit.Resolve(*p.height, refH, nil)
		if err != nil {
			return 0, 0, err
		}
		return w, h, nil
	case p.width != nil:
		w, err := unit.Resolve(*p.width, refW, nil)
		if err != nil {
			return 0, 0, err
		}
		return w, derive(w, 1/p.ratioFor(win)), nil
	case p.height != nil:
		h, err := unit.Resolve(*p.height, refH, nil)
		if err != nil {
			return 0, 0, err
		}
		return derive(h, p.ratioFor(win)), h, nil
	default:
		if p.lastWidth > 0 && p.lastHeight > 0 {
			return p.lastWidth, p.lastHeight, nil
		}
		return uint32(win.Current.Width), uint32(win.Current.Height), nil
	}
}

// ratioFor picks the aspect ratio source: the window's natural geometry when
// requested, then the ratio captured at first observation, then the window's
// current shape.
func (p *Placement) ratioFor(win WindowContext) float64 {
	if p.Natural {
		if r := win.Natural.Ratio(); r > 0 {
			return r
		}
	}
	if p.ratio > 0 {
		return p.ratio
	}
	if r := win.Current.Ratio(); r > 0 {
		return r
	}
	return 1
}

func derive(known uint32, factor float64) uint32 {
	px := math.Round(float64(known) * factor)
	if px < 1 {
		return 1
	}
	return uint32(px)
}

// Commit records a successfully applied size and captures the window's ratio
// the first time one is seen.
func (p *Placement) Commit(width, height uint32, win WindowContext) {
	p.lastWidth, p.lastHeight = width, height
	if p.ratio == 0 {
		p.ratio = win.Current.Ratio()
	}
}

// ClearWindow drops everything bound to the tracked window. The next relative
// request fails cleanly instead of working from stale geometry.
func (p *Placement) ClearWindow() {
	p.lastWidth, p.lastHeight = 0, 0
	p.ratio = 0
}

// LastSize returns the last applied size, if any.
func (p *Placement) LastSize() (width, height uint32, ok bool) {
	return p.lastWidth, p.lastHeight, p.lastWidth > 0
}

// WidthSpec returns the stored width spec's textual form, or "".
func (p *Placement) WidthSpec() string {
	if p.width == nil {
		return ""
	}
	return p.width.String()
}

// HeightSpec returns the stored height spec's textual form, or "".
func (p *Placement) HeightSpec() string {
	if p.height == nil {
		return ""
	}
	return p.height.String()
}
