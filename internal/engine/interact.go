package engine

import (
	"github.com/inamate/dynmap/internal/pathdata"
	"github.com/inamate/dynmap/internal/shapes"
)

// HoverFillStyle is painted on the shape under the pointer, regardless of
// its state.
const HoverFillStyle = "rgba(107,148,179,0.2)"

// DefaultFillStyle is painted on shapes without a styled state.
const DefaultFillStyle = shapes.DefaultFillStyle

// ToSurfacePoint maps a point given as fractions of the surface (0..1 on each
// axis) to view box units. Values outside 0..1 are not clamped.
func ToSurfacePoint(vb shapes.ViewBox, relX, relY float64) (float64, float64) {
	return Scale(vb.Width, vb.Height).TransformPoint(relX, relY)
}

// ToRelativePoint is the inverse of ToSurfacePoint. An empty view box maps
// everything to the origin.
func ToRelativePoint(vb shapes.ViewBox, x, y float64) (float64, float64) {
	m := Scale(vb.Width, vb.Height)
	if m.Determinant() == 0 {
		return 0, 0
	}
	return m.Invert().TransformPoint(x, y)
}

// DefinePath replaces the current path of s with the segments, resolved from
// the origin.
func DefinePath(s PathSurface, segs []pathdata.Segment) {
	s.BeginPath()
	for _, cmd := range pathdata.Resolve(segs, 0, 0) {
		switch cmd.Op {
		case pathdata.OpMoveTo:
			s.MoveTo(cmd.X, cmd.Y)
		case pathdata.OpLineTo:
			s.LineTo(cmd.X, cmd.Y)
		case pathdata.OpClose:
			s.ClosePath()
		}
	}
}

// HitTest returns the first shape, in registry order, whose path contains the
// relative point. Overlapping shapes are not ranked further.
func HitTest(reg *shapes.Registry, s PathSurface, relX, relY float64) (string, bool) {
	x, y := ToSurfacePoint(reg.ViewBox(), relX, relY)
	for _, shape := range reg.Shapes() {
		DefinePath(s, shape.Segments)
		if s.IsPointInPath(x, y) {
			return shape.ID, true
		}
	}
	return "", false
}

// Render resizes s to the view box and paints every shape. A shape containing
// the relative point gets HoverFillStyle, every other shape its state style.
// Each shape is filled and then stroked.
func Render(reg *shapes.Registry, s Surface, relX, relY float64) {
	vb := reg.ViewBox()
	s.SetSize(int(vb.Width), int(vb.Height))

	x, y := ToSurfacePoint(vb, relX, relY)
	for _, shape := range reg.Shapes() {
		DefinePath(s, shape.Segments)
		if s.IsPointInPath(x, y) {
			s.SetFillStyle(HoverFillStyle)
		} else {
			s.SetFillStyle(reg.FillStyle(shape.ID))
		}
		s.Fill()
		s.Stroke()
	}
}
