package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/inamate/dynmap/internal/host"
)

// refresh is how often the screen is checked for a new frame, so watcher
// reloads show up without input.
const refresh = 250 * time.Millisecond

var paper = color.RGBA{0xff, 0xff, 0xff, 0xff}

type app struct {
	session *host.Session
	screen  tcell.Screen

	status  string
	clicked []string
	focus   int
	pressed bool
}

func newApp(s *host.Session, screen tcell.Screen) *app {
	screen.EnableMouse(tcell.MouseMotionEvents)
	screen.HideCursor()
	return &app{session: s, screen: screen, focus: -1}
}

// loop runs until the user quits and returns the clicked shape ids.
func (a *app) loop(ctx context.Context) []string {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go a.screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	a.draw(true)
	for {
		select {
		case <-ctx.Done():
			return a.clicked
		case <-ticker.C:
			a.draw(false)
		case ev, ok := <-events:
			if !ok || !a.handle(ev) {
				return a.clicked
			}
			a.draw(false)
		}
	}
}

// handle reacts to one event and reports whether to keep running.
func (a *app) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
		a.draw(true)

	case *tcell.EventMouse:
		relX, relY := a.relative(ev.Position())
		id, _ := a.session.PointerMove(relX, relY)
		a.status = id
		pressed := ev.Buttons()&tcell.Button1 != 0
		if pressed && !a.pressed {
			if id, ok := a.session.Click(relX, relY); ok {
				a.clicked = append(a.clicked, id)
				a.status = "clicked " + id
				slog.Info("clicked shape", "shape", id)
			}
		}
		a.pressed = pressed

	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
			return false
		case ev.Key() == tcell.KeyTab:
			a.focusNext()
		case ev.Rune() == ' ':
			a.cycle()
		}
	}
	return true
}

// mapArea is the part of the screen the map uses; the last row is the
// status line.
func (a *app) mapArea() (int, int) {
	w, h := a.screen.Size()
	return w, max(h-1, 0)
}

// relative converts a cell to a point on the map. Each cell shows two
// vertically stacked samples.
func (a *app) relative(x, y int) (float64, float64) {
	cols, rows := a.mapArea()
	if cols == 0 || rows == 0 || y >= rows {
		return -1, -1
	}
	return (float64(x) + 0.5) / float64(cols), (float64(y) + 0.5) / float64(rows)
}

func (a *app) focusNext() {
	ids := a.session.ShapeIDs()
	if len(ids) == 0 {
		return
	}
	a.focus = (a.focus + 1) % len(ids)
	relX, relY, ok := a.session.ShapeCenter(ids[a.focus])
	if !ok {
		return
	}
	id, _ := a.session.PointerMove(relX, relY)
	a.status = id
}

func (a *app) cycle() {
	id, ok := a.session.Hovered()
	if !ok {
		return
	}
	if state, set := a.session.CycleState(id); set {
		a.status = fmt.Sprintf("%s state %d", id, state)
	} else {
		a.status = id + " state cleared"
	}
}

func (a *app) draw(force bool) {
	img, changed := a.session.Frame()
	if !changed && !force {
		a.drawStatus()
		a.screen.Show()
		return
	}

	cols, rows := a.mapArea()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top, bottom := cellColors(img, x, y, cols, rows)
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			a.screen.SetContent(x, y, '▀', nil, style)
		}
	}
	a.drawStatus()
	a.screen.Show()
}

func (a *app) drawStatus() {
	w, h := a.screen.Size()
	if h == 0 {
		return
	}
	line := a.status
	if line == "" {
		line = "q quit  tab next shape  space cycle state"
	}
	runes := []rune(line)
	for x := 0; x < w; x++ {
		r := ' '
		if x < len(runes) {
			r = runes[x]
		}
		a.screen.SetContent(x, h-1, r, nil, tcell.StyleDefault.Reverse(true))
	}
}

// cellColors samples the two map points shown by cell (x, y) of a
// cols×rows grid, composited over white.
func cellColors(img *image.RGBA, x, y, cols, rows int) (color.RGBA, color.RGBA) {
	return sample(img, (float64(x)+0.5)/float64(cols), (float64(y)+0.25)/float64(rows)),
		sample(img, (float64(x)+0.5)/float64(cols), (float64(y)+0.75)/float64(rows))
}

func sample(img *image.RGBA, relX, relY float64) color.RGBA {
	b := img.Bounds()
	if b.Empty() {
		return paper
	}
	px := b.Min.X + min(int(relX*float64(b.Dx())), b.Dx()-1)
	py := b.Min.Y + min(int(relY*float64(b.Dy())), b.Dy()-1)
	c := img.RGBAAt(px, py)

	// RGBA is premultiplied, so blending over white adds the missing
	// coverage back as white.
	inv := 0xff - uint16(c.A)
	return color.RGBA{
		R: uint8(uint16(c.R) + inv),
		G: uint8(uint16(c.G) + inv),
		B: uint8(uint16(c.B) + inv),
		A: 0xff,
	}
}
