package engine

import (
	"github.com/inamate/dynmap/internal/document"
	"github.com/inamate/dynmap/internal/shapes"
)

// Engine owns the loaded map and its state tables. Hosts translate their
// events into calls on it and pass in the surface to draw on.
//
// An Engine is not safe for concurrent use; hosts serialize calls.
type Engine struct {
	reg *shapes.Registry
}

// NewEngine creates an engine with nothing loaded.
func NewEngine() *Engine {
	return &Engine{reg: shapes.NewRegistry()}
}

// --- Commands (host → engine) ---

// LoadDocument parses SVG text and replaces the loaded shapes. On error the
// previous map stays loaded. States and styles are kept.
func (e *Engine) LoadDocument(text string) error {
	return e.reg.LoadString(text)
}

// Load replaces the loaded shapes with those of an already parsed document.
func (e *Engine) Load(doc *document.Document) error {
	return e.reg.Load(doc)
}

// LoadSampleDocument loads the built-in office plan with its demo palette.
func (e *Engine) LoadSampleDocument() error {
	if err := e.LoadDocument(document.SampleOfficeSVG); err != nil {
		return err
	}
	for state, style := range document.SampleStyles() {
		e.SetStateStyle(state, style)
	}
	for id, state := range document.SampleStates() {
		e.SetShapeState(id, state)
	}
	return nil
}

// SetShapeState sets the logical state of a shape.
func (e *Engine) SetShapeState(id string, state int32) {
	e.reg.SetShapeState(id, state)
}

// ClearShapeState forgets the logical state of a shape.
func (e *Engine) ClearShapeState(id string) {
	e.reg.ClearShapeState(id)
}

// SetStateStyle sets the fill style used for a logical state.
func (e *Engine) SetStateStyle(state int32, style string) {
	e.reg.SetStateStyle(state, style)
}

// --- Queries (host ← engine) ---

// HitTest returns the shape under the relative point.
func (e *Engine) HitTest(s PathSurface, relX, relY float64) (string, bool) {
	return HitTest(e.reg, s, relX, relY)
}

// EvaluateClick resolves a click at the relative point to the shape it
// landed on.
func (e *Engine) EvaluateClick(s PathSurface, relX, relY float64) (string, bool) {
	return e.HitTest(s, relX, relY)
}

// ShapeAt is HitTest against a geometric surface, for hosts without a canvas.
func (e *Engine) ShapeAt(relX, relY float64) (string, bool) {
	return e.HitTest(NewRecorder(), relX, relY)
}

// Render paints the map on s, highlighting the shape under the relative point.
func (e *Engine) Render(s Surface, relX, relY float64) {
	Render(e.reg, s, relX, relY)
}

// DrawList renders onto a Recorder and returns the display list.
func (e *Engine) DrawList(relX, relY float64) []DrawCommand {
	rec := NewRecorder()
	e.Render(rec, relX, relY)
	return rec.Commands()
}

// DrawListJSON is DrawList serialized to JSON.
func (e *Engine) DrawListJSON(relX, relY float64) string {
	result, _ := DrawCommandsToJSON(e.DrawList(relX, relY))
	return result
}

// ViewBox returns the view box of the loaded map.
func (e *Engine) ViewBox() shapes.ViewBox {
	return e.reg.ViewBox()
}

// ShapeIDs returns the loaded shape ids in document order.
func (e *Engine) ShapeIDs() []string {
	return e.reg.ShapeIDs()
}

// FillStyle returns the state-derived fill style of a shape, ignoring hover.
func (e *Engine) FillStyle(id string) string {
	return e.reg.FillStyle(id)
}

func (e *Engine) ShapeState(id string) (int32, bool) {
	return e.reg.ShapeState(id)
}

func (e *Engine) States() map[string]int32 {
	return e.reg.States()
}

func (e *Engine) Styles() map[int32]string {
	return e.reg.Styles()
}

// ShapeBounds returns the bounding box of a loaded shape in view box units.
func (e *Engine) ShapeBounds(id string) (Rect, bool) {
	shape, ok := e.reg.Shape(id)
	if !ok {
		return Rect{}, false
	}
	return ShapeBounds(shape), true
}

// ContentBounds returns the box around every loaded shape.
func (e *Engine) ContentBounds() Rect {
	var r Rect
	for _, shape := range e.reg.Shapes() {
		r = r.Union(ShapeBounds(shape))
	}
	return r
}
