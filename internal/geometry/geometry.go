package geometry

import "fmt"

// Rect is a position and size in workspace-local pixel coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// WithPadding shrinks the rect symmetrically by the given pixel amount.
func (r Rect) WithPadding(padding int) Rect {
	r.X += padding
	r.Y += padding
	r.Width -= padding * 2
	r.Height -= padding * 2
	return r
}

// Ratio returns width/height, or 0 when the rect has no height.
func (r Rect) Ratio() float64 {
	if r.Height == 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// Vertical is the vertical component of an anchor.
type Vertical string

const (
	VerticalTop    Vertical = "top"
	VerticalMiddle Vertical = "middle"
	VerticalBottom Vertical = "bottom"
)

// Horizontal is the horizontal component of an anchor.
type Horizontal string

const (
	HorizontalLeft   Horizontal = "left"
	HorizontalMiddle Horizontal = "middle"
	HorizontalRight  Horizontal = "right"
)

// ParseVertical parses a kebab-case vertical alignment.
func ParseVertical(s string) (Vertical, error) {
	switch Vertical(s) {
	case VerticalTop, VerticalMiddle, VerticalBottom:
		return Vertical(s), nil
	}
	return "", fmt.Errorf("invalid vertical alignment %q (want top, middle or bottom)", s)
}

// ParseHorizontal parses a kebab-case horizontal alignment.
func ParseHorizontal(s string) (Horizontal, error) {
	switch Horizontal(s) {
	case HorizontalLeft, HorizontalMiddle, HorizontalRight:
		return Horizontal(s), nil
	}
	return "", fmt.Errorf("invalid horizontal alignment %q (want left, middle or right)", s)
}

// Anchor is one of the nine snap positions.
type Anchor struct {
	Vertical   Vertical
	Horizontal Horizontal
}

// DefaultAnchor is the placement used when no anchor was ever specified.
func DefaultAnchor() Anchor {
	return Anchor{Vertical: VerticalBottom, Horizontal: HorizontalRight}
}

func (a Anchor) String() string {
	return string(a.Vertical) + "/" + string(a.Horizontal)
}

// Place computes the target rect for a window of the given size inside the
// container. Padding offsets the window inward from each non-middle edge;
// middle alignment centers exactly, ignoring padding on that axis. Sizes
// larger than the container are placed as-is, matching sway's permissive
// resize behavior.
func Place(anchor Anchor, width, height int, container Rect, padding int) Rect {
	var x int
	switch anchor.Horizontal {
	case HorizontalLeft:
		x = container.X + padding
	case HorizontalRight:
		x = container.X + container.Width - width - padding
	default:
		x = container.X + (container.Width-width)/2
	}

	var y int
	switch anchor.Vertical {
	case VerticalTop:
		y = container.Y + padding
	case VerticalBottom:
		y = container.Y + container.Height - height - padding
	default:
		y = container.Y + (container.Height-height)/2
	}

	return Rect{X: x, Y: y, Width: width, Height: height}
}
