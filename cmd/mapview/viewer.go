package main

import (
	"image/color"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/inamate/dynmap/internal/engine"
	"github.com/inamate/dynmap/internal/host"
)

const (
	zoomStep = 1.1
	minZoom  = 0.1
	maxZoom  = 20
	panStep  = 20
)

var background = color.RGBA{0xf4, 0xf4, 0xf4, 0xff}

// viewer is the ebiten game. The map frame is drawn through a pan and zoom
// transform; pointer positions go back through its inverse.
type viewer struct {
	session *host.Session
	frame   *ebiten.Image

	zoom       float64
	panX, panY float64
	width      int
	height     int
}

func newViewer(s *host.Session, zoom float64) *viewer {
	if zoom <= 0 {
		zoom = 1
	}
	return &viewer{session: s, zoom: zoom}
}

// view maps frame pixels to window pixels.
func (v *viewer) view() engine.Matrix2D {
	return engine.Translate(v.panX, v.panY).Multiply(engine.Scale(v.zoom, v.zoom))
}

// relativePointer returns the pointer as fractions of the map size.
func (v *viewer) relativePointer() (float64, float64) {
	cx, cy := ebiten.CursorPosition()
	x, y := v.view().Invert().TransformPoint(float64(cx), float64(cy))
	vb := v.session.ViewBox()
	if vb.Width == 0 || vb.Height == 0 {
		return -1, -1
	}
	return engine.ToRelativePoint(vb, x, y)
}

func (v *viewer) Update() error {
	relX, relY := v.relativePointer()
	if id, changed := v.session.PointerMove(relX, relY); changed {
		slog.Debug("hover", "shape", id)
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		if id, ok := v.session.Click(relX, relY); ok {
			slog.Info("clicked shape", "shape", id)
		}
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		if id, ok := v.session.Click(relX, relY); ok {
			state, set := v.session.CycleState(id)
			slog.Info("state changed", "shape", id, "state", state, "set", set)
		}
	}

	if _, dy := ebiten.Wheel(); dy != 0 {
		v.zoomAt(dy)
	}

	switch {
	case ebiten.IsKeyPressed(ebiten.KeyArrowLeft):
		v.panX += panStep
	case ebiten.IsKeyPressed(ebiten.KeyArrowRight):
		v.panX -= panStep
	case ebiten.IsKeyPressed(ebiten.KeyArrowUp):
		v.panY += panStep
	case ebiten.IsKeyPressed(ebiten.KeyArrowDown):
		v.panY -= panStep
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		v.fit()
	}
	if inpututil.IsKeyJustPressed(ebiten.Key0) {
		v.zoom, v.panX, v.panY = 1, 0, 0
	}
	return nil
}

// zoomAt zooms around the cursor so the point under it stays put.
func (v *viewer) zoomAt(wheel float64) {
	factor := zoomStep
	if wheel < 0 {
		factor = 1 / zoomStep
	}
	next := min(max(v.zoom*factor, minZoom), maxZoom)

	cx, cy := ebiten.CursorPosition()
	mx, my := v.view().Invert().TransformPoint(float64(cx), float64(cy))
	v.zoom = next
	v.panX = float64(cx) - mx*v.zoom
	v.panY = float64(cy) - my*v.zoom
}

// fit zooms so every shape is visible and centered.
func (v *viewer) fit() {
	bounds := v.session.ContentBounds()
	if bounds.IsEmpty() || v.width == 0 || v.height == 0 {
		return
	}
	v.zoom = min(float64(v.width)/bounds.Width, float64(v.height)/bounds.Height) * 0.95
	cx, cy := bounds.Center()
	v.panX = float64(v.width)/2 - cx*v.zoom
	v.panY = float64(v.height)/2 - cy*v.zoom
}

func (v *viewer) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	img, changed := v.session.Frame()
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	if changed || v.frame == nil {
		if v.frame != nil {
			v.frame.Deallocate()
		}
		v.frame = ebiten.NewImageFromImage(img)
	}

	m := v.view()
	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.SetElement(0, 0, m[0])
	opts.GeoM.SetElement(1, 0, m[1])
	opts.GeoM.SetElement(0, 1, m[2])
	opts.GeoM.SetElement(1, 1, m[3])
	opts.GeoM.SetElement(0, 2, m[4])
	opts.GeoM.SetElement(1, 2, m[5])
	opts.Filter = ebiten.FilterLinear
	screen.DrawImage(v.frame, opts)
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	v.width, v.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}
