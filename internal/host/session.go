// Package host holds the viewer state shared by the desktop and terminal
// front ends: one map, the pointer position and a raster frame.
package host

import (
	"context"
	"fmt"
	"image"
	"os"
	"slices"
	"sync"

	"github.com/inamate/dynmap/internal/engine"
	"github.com/inamate/dynmap/internal/raster"
	"github.com/inamate/dynmap/internal/shapes"
	"github.com/inamate/dynmap/internal/watch"
)

// Session is safe for use from the UI loop and a file watcher at once.
type Session struct {
	mu      sync.Mutex
	eng     *engine.Engine
	surface *raster.Surface
	tracker engine.Tracker

	relX, relY float64
	dirty      bool
}

func NewSession() *Session {
	return &Session{
		eng:     engine.NewEngine(),
		surface: raster.New(0, 0),
		relX:    -1,
		relY:    -1,
		dirty:   true,
	}
}

// LoadFile replaces the map with the SVG at path. On error the current map
// stays. Maps too large to rasterize are refused.
func (s *Session) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read map: %w", err)
	}

	next := engine.NewEngine()
	if err := next.LoadDocument(string(data)); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	vb := next.ViewBox()
	if err := raster.CheckSize(vb.Width, vb.Height); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.LoadDocument(string(data)); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	s.tracker.Reset()
	s.dirty = true
	return nil
}

// LoadSample shows the built-in office plan.
func (s *Session) LoadSample() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.LoadSampleDocument(); err != nil {
		return err
	}
	s.tracker.Reset()
	s.dirty = true
	return nil
}

// Watch reloads path whenever it changes until ctx is done.
func (s *Session) Watch(ctx context.Context, path string) error {
	w, err := watch.New(path, 0, s.LoadFile)
	if err != nil {
		return err
	}
	go w.Run(ctx)
	return nil
}

func (s *Session) ViewBox() shapes.ViewBox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.ViewBox()
}

// PointerMove records the pointer and reports the hovered shape and whether
// it changed.
func (s *Session) PointerMove(relX, relY float64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.relX, s.relY = relX, relY
	id, changed := s.tracker.Update(s.eng, s.surface, relX, relY)
	if changed {
		s.dirty = true
	}
	return id, changed
}

func (s *Session) Click(relX, relY float64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.EvaluateClick(s.surface, relX, relY)
}

// Hovered returns the shape under the pointer as of the last move.
func (s *Session) Hovered() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Hovered()
}

// CycleState moves a shape to the next state that has a style, in
// ascending order. After the last one the state is cleared. The new state
// is returned with false when cleared.
func (s *Session) CycleState(id string) (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	styled := make([]int32, 0)
	for state := range s.eng.Styles() {
		styled = append(styled, state)
	}
	slices.Sort(styled)
	s.dirty = true

	current, ok := s.eng.ShapeState(id)
	next := 0
	if ok {
		i, found := slices.BinarySearch(styled, current)
		if found {
			i++
		}
		next = i
	}
	if next >= len(styled) {
		s.eng.ClearShapeState(id)
		return 0, false
	}
	s.eng.SetShapeState(id, styled[next])
	return styled[next], true
}

// Frame renders the map when something changed since the last call and
// returns the latest image. Callers must not modify it.
func (s *Session) Frame() (*image.RGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return s.surface.Image(), false
	}
	s.eng.Render(s.surface, s.relX, s.relY)
	s.dirty = false
	return s.surface.Image(), true
}

// ContentBounds returns the box around all shapes in view box units.
func (s *Session) ContentBounds() engine.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.ContentBounds()
}

func (s *Session) ShapeIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.ShapeIDs()
}

// ShapeCenter returns the middle of a shape's bounding box as fractions of
// the map size.
func (s *Session) ShapeCenter(id string) (float64, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.eng.ShapeBounds(id)
	if !ok {
		return 0, 0, false
	}
	relX, relY := engine.RelativeBounds(s.eng.ViewBox(), r).Center()
	return relX, relY, true
}
