package exporter

// Orientation of PDF pages.
type Orientation string

const (
	OrientationAuto      Orientation = "auto"
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// Layout holds document layout settings shared by the sinks.
type Layout struct {
	// Column widths in characters, clamped to [MinColumnWidth, MaxColumnWidth].
	MinColumnWidth float64
	MaxColumnWidth float64

	FreezeHeader      bool
	FreezeFirstColumn bool
	AutoFilter        bool

	Orientation Orientation

	// LandscapeAbove switches auto orientation to landscape when a table
	// has more columns than this.
	LandscapeAbove int
}

// DefaultLayout returns the stock layout.
func DefaultLayout() Layout {
	return Layout{
		MinColumnWidth: 10,
		MaxColumnWidth: 50,
		FreezeHeader:   true,
		AutoFilter:     true,
		Orientation:    OrientationAuto,
		LandscapeAbove: 6,
	}
}

func (l Layout) withDefaults() Layout {
	d := DefaultLayout()
	if l.MinColumnWidth <= 0 {
		l.MinColumnWidth = d.MinColumnWidth
	}
	if l.MaxColumnWidth < l.MinColumnWidth {
		l.MaxColumnWidth = d.MaxColumnWidth
		if l.MaxColumnWidth < l.MinColumnWidth {
			l.MaxColumnWidth = l.MinColumnWidth
		}
	}
	if l.Orientation == "" {
		l.Orientation = OrientationAuto
	}
	if l.LandscapeAbove <= 0 {
		l.LandscapeAbove = d.LandscapeAbove
	}
	return l
}

// clamp bounds a width to the layout limits.
func (l Layout) clamp(w float64) float64 {
	switch {
	case w < l.MinColumnWidth:
		return l.MinColumnWidth
	case w > l.MaxColumnWidth:
		return l.MaxColumnWidth
	}
	return w
}

func (l Layout) landscape(columns int) bool {
	switch l.Orientation {
	case OrientationLandscape:
		return true
	case OrientationPortrait:
		return false
	}
	return columns > l.LandscapeAbove
}
