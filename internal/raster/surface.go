// Package raster draws maps into in-memory images for hosts without a
// browser canvas: the desktop and terminal viewers and the PNG endpoint.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"math"

	"golang.org/x/image/vector"

	"github.com/inamate/dynmap/internal/pathdata"
)

// Limits on the pixel size of a surface. A full size frame is four bytes per
// pixel.
const (
	MaxDimension = 16384
	MaxPixels    = 1 << 25
)

var ErrTooLarge = errors.New("surface too large")

// CheckSize reports whether a map of the given view box size can be drawn.
// NaN and infinite sizes are rejected.
func CheckSize(width, height float64) error {
	if !(width <= MaxDimension && height <= MaxDimension) || width*height > MaxPixels {
		return fmt.Errorf("%w: %gx%g (max %d per side, %d pixels)", ErrTooLarge, width, height, MaxDimension, MaxPixels)
	}
	return nil
}

// Surface is an engine surface backed by an *image.RGBA.
//
// Fill uses the nonzero rule, like a Canvas2D context. Stroke paints a
// one pixel wide outline.
type Surface struct {
	image *image.RGBA
	ras   *vector.Rasterizer

	fill   *color.NRGBA
	stroke *color.NRGBA

	path []pathdata.Command
}

// New creates a surface of the given pixel size.
func New(width, height int) *Surface {
	black := color.NRGBA{A: 0xff}
	s := &Surface{ras: &vector.Rasterizer{}, stroke: &black}
	s.SetSize(width, height)
	return s
}

// SetSize replaces the image with a blank one of the new size. Each side is
// clamped to 0..MaxDimension; callers check sizes with CheckSize first.
func (s *Surface) SetSize(width, height int) {
	width, height = min(max(width, 0), MaxDimension), min(max(height, 0), MaxDimension)
	s.image = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (s *Surface) Size() (int, int) {
	b := s.image.Bounds()
	return b.Dx(), b.Dy()
}

// SetFillStyle sets the color used by Fill. A style that cannot be parsed
// makes Fill paint nothing.
func (s *Surface) SetFillStyle(style string) {
	c, ok := ParseColor(style)
	if !ok {
		slog.Debug("unsupported fill style", "style", style)
		s.fill = nil
		return
	}
	s.fill = &c
}

// SetStrokeStyle sets the color used by Stroke.
func (s *Surface) SetStrokeStyle(style string) {
	c, ok := ParseColor(style)
	if !ok {
		s.stroke = nil
		return
	}
	s.stroke = &c
}

func (s *Surface) BeginPath() {
	s.path = s.path[:0]
}

func (s *Surface) MoveTo(x, y float64) {
	s.path = append(s.path, pathdata.Command{Op: pathdata.OpMoveTo, X: x, Y: y})
}

func (s *Surface) LineTo(x, y float64) {
	s.path = append(s.path, pathdata.Command{Op: pathdata.OpLineTo, X: x, Y: y})
}

func (s *Surface) ClosePath() {
	s.path = append(s.path, pathdata.Command{Op: pathdata.OpClose})
}

func (s *Surface) IsPointInPath(x, y float64) bool {
	return pathdata.Contains(s.path, x, y)
}

// Fill paints the interior of the current path.
func (s *Surface) Fill() {
	if s.fill == nil || !s.begin() {
		return
	}
	started := false
	for _, p := range polylines(s.path) {
		if len(p.points) < 3 {
			continue
		}
		s.ras.MoveTo(float32(p.points[0].x), float32(p.points[0].y))
		for _, pt := range p.points[1:] {
			s.ras.LineTo(float32(pt.x), float32(pt.y))
		}
		s.ras.ClosePath()
		started = true
	}
	if started {
		s.draw(*s.fill)
	}
}

// Stroke outlines the current path. Only closed subpaths get a closing edge.
func (s *Surface) Stroke() {
	if s.stroke == nil || !s.begin() {
		return
	}
	started := false
	for _, p := range polylines(s.path) {
		pts := p.points
		if p.closed && len(pts) > 1 {
			pts = append(pts, pts[0])
		}
		for i := 1; i < len(pts); i++ {
			if s.edge(pts[i-1], pts[i]) {
				started = true
			}
		}
	}
	if started {
		s.draw(*s.stroke)
	}
}

// Image returns the backing image.
func (s *Surface) Image() *image.RGBA {
	return s.image
}

// EncodePNG writes the current image as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return png.Encode(w, s.image)
}

func (s *Surface) begin() bool {
	w, h := s.Size()
	if w == 0 || h == 0 {
		return false
	}
	s.ras.Reset(w, h)
	s.ras.DrawOp = draw.Over
	return true
}

func (s *Surface) draw(c color.NRGBA) {
	s.ras.Draw(s.image, s.image.Bounds(), image.NewUniform(c), image.Point{})
}

// edge adds a half-pixel wide quad on either side of the segment a-b.
func (s *Surface) edge(a, b point) bool {
	dx, dy := b.x-a.x, b.y-a.y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return false
	}
	nx, ny := -dy/length*0.5, dx/length*0.5

	s.ras.MoveTo(float32(a.x+nx), float32(a.y+ny))
	s.ras.LineTo(float32(b.x+nx), float32(b.y+ny))
	s.ras.LineTo(float32(b.x-nx), float32(b.y-ny))
	s.ras.LineTo(float32(a.x-nx), float32(a.y-ny))
	s.ras.ClosePath()
	return true
}

type point struct{ x, y float64 }

type polyline struct {
	points []point
	closed bool
}

// polylines splits resolved commands into subpaths. A close returns the
// current point to the subpath start, and a line without a preceding move
// starts a new subpath.
func polylines(cmds []pathdata.Command) []polyline {
	var out []polyline
	cur := -1
	var start point

	for _, c := range cmds {
		switch c.Op {
		case pathdata.OpMoveTo:
			start = point{c.X, c.Y}
			out = append(out, polyline{points: []point{start}})
			cur = len(out) - 1
		case pathdata.OpLineTo:
			if cur < 0 {
				start = point{c.X, c.Y}
				out = append(out, polyline{points: []point{start}})
				cur = len(out) - 1
				continue
			}
			out[cur].points = append(out[cur].points, point{c.X, c.Y})
		case pathdata.OpClose:
			if cur < 0 {
				continue
			}
			out[cur].closed = true
			out = append(out, polyline{points: []point{start}})
			cur = len(out) - 1
		}
	}
	return out
}
