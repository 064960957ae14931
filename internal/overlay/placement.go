package overlay

// Default overlay size and screen margins, in logical pixels.
const (
	DefaultWidth  = 600.0
	DefaultHeight = 80.0

	DefaultMarginLeft   = 20.0
	DefaultMarginRight  = 20.0
	DefaultMarginTop    = 40.0  // menu bar / top panel
	DefaultMarginBottom = 100.0 // dock / bottom panel
)

// Margins are the edges of a monitor reserved for system chrome.
type Margins struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// Geometry describes the monitor containing an anchor point.
// X and Y are the monitor origin in the global coordinate space and are zero
// for a single (or primary) monitor.
type Geometry struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains reports whether the point lies inside the monitor.
func (g Geometry) Contains(x, y float64) bool {
	return x >= g.X && x < g.X+g.Width && y >= g.Y && y < g.Y+g.Height
}

// Rect is a computed overlay rectangle in global coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Placer computes overlay rectangles. The zero value is not useful; use
// DefaultPlacer or fill every field.
type Placer struct {
	Width   float64
	Height  float64
	Margins Margins
}

// DefaultPlacer returns a placer with the default 600x80 size and margins.
func DefaultPlacer() Placer {
	return Placer{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Margins: Margins{
			Left:   DefaultMarginLeft,
			Right:  DefaultMarginRight,
			Top:    DefaultMarginTop,
			Bottom: DefaultMarginBottom,
		},
	}
}

// Place returns the overlay rectangle for an anchor point.
//
// The overlay is horizontally centred on the anchor with its top edge at the
// anchor. When geo is nil no monitor could be resolved and the candidate is
// returned unclamped. Otherwise each axis is clamped independently, X before Y,
// checking the lower bound first and the upper bound only if the lower bound
// held. A monitor smaller than the overlay plus margins can therefore still
// produce a rectangle that leaves the screen.
func (p Placer) Place(anchorX, anchorY float64, geo *Geometry) Rect {
	r := Rect{
		X:      anchorX - p.Width/2,
		Y:      anchorY,
		Width:  p.Width,
		Height: p.Height,
	}
	if geo == nil {
		return r
	}

	left := geo.X + p.Margins.Left
	right := geo.X + geo.Width - p.Margins.Right
	if r.X < left {
		r.X = left
	} else if r.X+p.Width > right {
		r.X = geo.X + geo.Width - p.Width - p.Margins.Right
	}

	top := geo.Y + p.Margins.Top
	bottom := geo.Y + geo.Height - p.Margins.Bottom
	if r.Y < top {
		r.Y = top
	} else if r.Y+p.Height > bottom {
		r.Y = geo.Y + geo.Height - p.Height - p.Margins.Bottom
	}

	return r
}

// Place computes a rectangle with the default placer.
func Place(anchorX, anchorY float64, geo *Geometry) Rect {
	return DefaultPlacer().Place(anchorX, anchorY, geo)
}

// MonitorContaining returns the first monitor that contains the point.
func MonitorContaining(monitors []Geometry, x, y float64) (Geometry, bool) {
	for _, m := range monitors {
		if m.Contains(x, y) {
			return m, true
		}
	}
	return Geometry{}, false
}

// SurfaceOffset converts r into left and top margins for a surface anchored
// to the top-left corner of monitor. Without a monitor the rectangle is taken
// to be relative to the output origin. Negative offsets are clamped to zero,
// since a layer surface cannot be placed outside its output.
func SurfaceOffset(r Rect, monitor *Geometry) (left, top int) {
	x, y := r.X, r.Y
	if monitor != nil {
		x -= monitor.X
		y -= monitor.Y
	}
	return max(0, int(x)), max(0, int(y))
}
