package crop

import (
	"errors"
	"fmt"
)

// State of an Engine.
type State int

const (
	Uninitialized State = iota
	Active
	Committed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Committed:
		return "committed"
	default:
		return "uninitialized"
	}
}

// ErrNotActive is returned when a gesture arrives outside an edit session.
var ErrNotActive = errors.New("crop engine is not active")

// Engine is the interactive crop editor for one slot. It is driven from a
// single goroutine and is not safe for concurrent use.
type Engine struct {
	state State
	img   Size
	ratio float64
	rect  Rect
}

// Begin opens an edit session with the default centered crop.
func (e *Engine) Begin(img Size, ratio float64) (Rect, error) {
	r, err := Fit(img, ratio)
	if err != nil {
		return Rect{}, err
	}
	e.state, e.img, e.ratio, e.rect = Active, img, ratio, r
	return r, nil
}

// BeginAt reopens the editor on a previously committed crop, falling back to
// the default crop when prev no longer fits.
func (e *Engine) BeginAt(img Size, ratio float64, prev Rect) (Rect, error) {
	r, err := Commit(img, ratio, prev)
	if err != nil {
		return Rect{}, err
	}
	e.state, e.img, e.ratio, e.rect = Active, img, ratio, r
	return r, nil
}

// Translate moves the crop by an image-pixel delta.
func (e *Engine) Translate(dx, dy int) (Rect, error) {
	if e.state != Active {
		return e.rect, fmt.Errorf("translate: %w (%s)", ErrNotActive, e.state)
	}
	e.rect = Translate(e.img, e.rect, dx, dy)
	return e.rect, nil
}

// Commit ends the session and returns the validated crop. Committing twice
// returns the same rectangle.
func (e *Engine) Commit() (Rect, error) {
	switch e.state {
	case Committed:
		return e.rect, nil
	case Active:
	default:
		return Rect{}, fmt.Errorf("commit: %w (%s)", ErrNotActive, e.state)
	}
	r, err := Commit(e.img, e.ratio, e.rect)
	if err != nil {
		return Rect{}, err
	}
	e.rect, e.state = r, Committed
	return r, nil
}

// Reset discards the session.
func (e *Engine) Reset() {
	*e = Engine{}
}

func (e *Engine) State() State { return e.state }

// Rect returns the current crop.
func (e *Engine) Rect() Rect { return e.rect }
