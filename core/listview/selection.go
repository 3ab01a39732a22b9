package listview

import (
	"time"

	"github.com/artpar/erpkit/ports"
)

// DefaultLongPress is how long a touch must be held to enter selection mode.
const DefaultLongPress = 500 * time.Millisecond

// SelectionOptions configures a Selection.
type SelectionOptions struct {
	// Persist keeps the selection when the visible rows change.
	Persist bool

	// LongPress overrides DefaultLongPress.
	LongPress time.Duration

	Clock ports.Clock
}

// PressResult is the outcome of a touch release.
type PressResult int

const (
	// PressNone means no press was in progress.
	PressNone PressResult = iota

	// PressTap is a short touch outside selection mode; the caller treats
	// it as a row click.
	PressTap

	// PressSelect means the touch changed the selection.
	PressSelect
)

// Selection is the set of selected row ids of one list. It is owned by a
// single list instance and is not safe for concurrent use.
type Selection struct {
	opts     SelectionOptions
	selected map[string]struct{}
	order    []string
	anchor   int
	mode     bool
	visible  []string

	press struct {
		active bool
		id     string
		index  int
		start  time.Time
	}
}

// NewSelection creates an empty selection.
func NewSelection(opts SelectionOptions) *Selection {
	if opts.LongPress <= 0 {
		opts.LongPress = DefaultLongPress
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	return &Selection{
		opts:     opts,
		selected: make(map[string]struct{}),
		anchor:   -1,
	}
}

// Click handles a click on the row at index of visible. A shift-click
// selects the range from the last clicked row; a plain click toggles.
func (s *Selection) Click(id string, index int, shift bool, visible []string) {
	if shift && s.anchor >= 0 && s.anchor < len(visible) && index >= 0 && index < len(visible) {
		lo, hi := s.anchor, index
		if lo > hi {
			lo, hi = hi, lo
		}
		for _, rid := range visible[lo : hi+1] {
			s.add(rid)
		}
		s.anchor = index
		return
	}
	s.Toggle(id, index)
}

// Toggle flips one row.
func (s *Selection) Toggle(id string, index int) {
	if _, ok := s.selected[id]; ok {
		s.remove(id)
	} else {
		s.add(id)
	}
	s.anchor = index
}

// PressStart records the start of a touch on a row.
func (s *Selection) PressStart(id string, index int) {
	s.press.active = true
	s.press.id = id
	s.press.index = index
	s.press.start = s.opts.Clock.Now()
}

// PressCancel abandons a touch, e.g. when the finger moved.
func (s *Selection) PressCancel() {
	s.press.active = false
}

// PressEnd finishes a touch. Holding past the long-press threshold enters
// selection mode and selects the row; in selection mode a short tap toggles.
func (s *Selection) PressEnd() PressResult {
	if !s.press.active {
		return PressNone
	}
	s.press.active = false

	held := s.opts.Clock.Now().Sub(s.press.start)
	switch {
	case held >= s.opts.LongPress:
		s.mode = true
		s.add(s.press.id)
		s.anchor = s.press.index
		return PressSelect
	case s.mode:
		s.Toggle(s.press.id, s.press.index)
		return PressSelect
	default:
		return PressTap
	}
}

// SelectAll selects every visible row.
func (s *Selection) SelectAll(visible []string) {
	for _, id := range visible {
		s.add(id)
	}
}

// Clear empties the selection and leaves selection mode.
func (s *Selection) Clear() {
	s.selected = make(map[string]struct{})
	s.order = nil
	s.anchor = -1
	s.mode = false
}

// RowsChanged reports the new visible row set. Without Persist a change
// clears the selection.
func (s *Selection) RowsChanged(visible []string) {
	changed := !sameIDs(s.visible, visible)
	s.visible = append(s.visible[:0], visible...)
	if changed && !s.opts.Persist {
		s.Clear()
	}
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// IDs returns the selected ids in selection order.
func (s *Selection) IDs() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of selected rows.
func (s *Selection) Len() int { return len(s.order) }

// InSelectionMode reports whether a long press turned on selection mode.
func (s *Selection) InSelectionMode() bool { return s.mode }

func (s *Selection) add(id string) {
	if _, ok := s.selected[id]; ok {
		return
	}
	s.selected[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Selection) remove(id string) {
	delete(s.selected, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if len(s.order) == 0 {
		s.mode = false
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
