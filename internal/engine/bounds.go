package engine

import (
	"github.com/inamate/dynmap/internal/pathdata"
	"github.com/inamate/dynmap/internal/shapes"
)

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// PathBounds returns the bounding box of the points visited by cmds.
func PathBounds(cmds []pathdata.Command) Rect {
	var minX, minY, maxX, maxY float64
	first := true
	for _, c := range cmds {
		if c.Op == pathdata.OpClose {
			continue
		}
		if first {
			minX, minY, maxX, maxY = c.X, c.Y, c.X, c.Y
			first = false
			continue
		}
		minX = min(minX, c.X)
		minY = min(minY, c.Y)
		maxX = max(maxX, c.X)
		maxY = max(maxY, c.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// ShapeBounds returns the bounding box of a shape in view box units.
func ShapeBounds(shape *shapes.Shape) Rect {
	return PathBounds(pathdata.Resolve(shape.Segments, 0, 0))
}

// RelativeBounds maps a view box rect to fractions of the surface.
func RelativeBounds(vb shapes.ViewBox, r Rect) Rect {
	m := Scale(vb.Width, vb.Height)
	if m.Determinant() == 0 {
		return Rect{}
	}
	return m.Invert().TransformRect(r)
}
