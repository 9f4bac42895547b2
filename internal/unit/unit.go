// Package unit parses and resolves window dimension specifications. A spec is
// either absolute ("640", "640px", "33.3%") or relative ("+30", "-30px",
// "+5%"); a leading sign marks it relative, a "%" suffix makes it a
// percentage of the container dimension.
package unit

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidState is returned when a relative spec is resolved without a
// previous size to offset from.
var ErrInvalidState = errors.New("no previous size to apply a relative adjustment to")

// Kind discriminates the spec variants.
type Kind int

const (
	AbsolutePixels Kind = iota
	AbsolutePercent
	RelativePixels
	RelativePercent
)

// Spec is a single width or height specification.
type Spec struct {
	Kind    Kind
	Pixels  int     // pixel kinds; negative only for RelativePixels
	Percent float64 // percent kinds, in the user-facing 0-100 scale
}

// Pixels returns an absolute pixel spec.
func Pixels(n uint32) Spec {
	return Spec{Kind: AbsolutePixels, Pixels: int(n)}
}

// Percent returns an absolute percentage spec.
func Percent(p float64) Spec {
	return Spec{Kind: AbsolutePercent, Percent: p}
}

// IsRelative reports whether the spec adjusts a previous size rather than
// setting one.
func (s Spec) IsRelative() bool {
	return s.Kind == RelativePixels || s.Kind == RelativePercent
}

// Parse parses the textual form of a spec.
func Parse(text string) (Spec, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Spec{}, fmt.Errorf("empty dimension")
	}

	relative := false
	sign := 1
	switch s[0] {
	case '+':
		relative = true
		s = s[1:]
	case '-':
		relative = true
		sign = -1
		s = s[1:]
	}
	if s == "" || s[0] == '+' || s[0] == '-' {
		return Spec{}, fmt.Errorf("invalid dimension %q", text)
	}

	if rest, ok := strings.CutSuffix(s, "%"); ok {
		p, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return Spec{}, fmt.Errorf("invalid percentage %q: %w", text, err)
		}
		if relative {
			return Spec{Kind: RelativePercent, Percent: float64(sign) * p}, nil
		}
		if p < 0 {
			return Spec{}, fmt.Errorf("percentage %q must not be negative", text)
		}
		return Spec{Kind: AbsolutePercent, Percent: p}, nil
	}

	s = strings.TrimSuffix(s, "px")
	n, err := strconv.Atoi(s)
	if err != nil {
		return Spec{}, fmt.Errorf("invalid pixel value %q: %w", text, err)
	}
	if relative {
		return Spec{Kind: RelativePixels, Pixels: sign * n}, nil
	}
	if n < 0 {
		return Spec{}, fmt.Errorf("pixel value %q must not be negative", text)
	}
	return Spec{Kind: AbsolutePixels, Pixels: n}, nil
}

func (s Spec) String() string {
	switch s.Kind {
	case AbsolutePixels:
		return strconv.Itoa(s.Pixels) + "px"
	case AbsolutePercent:
		return strconv.FormatFloat(s.Percent, 'f', -1, 64) + "%"
	case RelativePixels:
		return fmt.Sprintf("%+dpx", s.Pixels)
	default:
		t := strconv.FormatFloat(s.Percent, 'f', -1, 64)
		if s.Percent >= 0 {
			t = "+" + t
		}
		return t + "%"
	}
}

// Set implements flag.Value.
func (s *Spec) Set(text string) error {
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON encodes the spec in its textual form, which is what travels on
// the control channel.
func (s Spec) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Spec) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return s.Set(text)
}

// Resolve computes the pixel value of a spec. reference is the container
// dimension percentages resolve against; previous is the last applied size,
// required by relative specs. Relative results never drop below one pixel.
func Resolve(s Spec, reference uint32, previous *uint32) (uint32, error) {
	switch s.Kind {
	case AbsolutePixels:
		return uint32(s.Pixels), nil
	case AbsolutePercent:
		return uint32(math.Round(float64(reference) * s.Percent / 100)), nil
	case RelativePixels:
		if previous == nil {
			return 0, ErrInvalidState
		}
		return clampPixels(int(*previous) + s.Pixels), nil
	case RelativePercent:
		if previous == nil {
			return 0, ErrInvalidState
		}
		delta := int(math.Round(float64(reference) * s.Percent / 100))
		return clampPixels(int(*previous) + delta), nil
	default:
		return 0, fmt.Errorf("unknown spec kind %d", s.Kind)
	}
}

func clampPixels(n int) uint32 {
	if n < 1 {
		return 1
	}
	return uint32(n)
}
