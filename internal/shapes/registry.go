package shapes

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/inamate/dynmap/internal/document"
	"github.com/inamate/dynmap/internal/pathdata"
)

// DynamicPrefix marks the path elements that become interactive shapes.
const DynamicPrefix = "dynamic"

// DefaultFillStyle is used for shapes without a state or whose state has no
// registered style.
const DefaultFillStyle = "rgba(255,255,255,0.2)"

var (
	ErrMissingViewBox  = errors.New("missing or malformed viewBox")
	ErrMissingPathData = errors.New("dynamic path has no path data")
)

// ViewBox is the coordinate frame the path data is authored in.
type ViewBox struct {
	MinX   float64 `json:"minX"`
	MinY   float64 `json:"minY"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Shape is a named region loaded from the document. It is not modified after
// load; a new load replaces it.
type Shape struct {
	ID       string
	Segments []pathdata.Segment
}

// Registry owns the loaded shapes, their logical states and the state to fill
// style table. It is not safe for concurrent use.
type Registry struct {
	viewBox ViewBox
	shapes  map[string]*Shape
	order   []string

	states map[string]int32
	styles map[int32]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		shapes: make(map[string]*Shape),
		states: make(map[string]int32),
		styles: make(map[int32]string),
	}
}

// LoadString parses text and loads it.
func (r *Registry) LoadString(text string) error {
	doc, err := document.ParseString(text)
	if err != nil {
		return err
	}
	return r.Load(doc)
}

// Load replaces the view box and the shape set with the content of doc.
//
// The root svg element must carry a valid viewBox. Every path element whose
// id starts with DynamicPrefix becomes a shape and must have path data. On
// error nothing is changed. States and styles survive a reload.
func (r *Registry) Load(doc *document.Document) error {
	root := doc.FindFirst("svg")
	if root == nil {
		return fmt.Errorf("%w: no svg element", ErrMissingViewBox)
	}
	raw, ok := root.Attr("viewBox")
	if !ok {
		return fmt.Errorf("%w: attribute not set", ErrMissingViewBox)
	}
	vb, err := ParseViewBox(raw)
	if err != nil {
		return err
	}

	shapes := make(map[string]*Shape)
	var order []string
	dropped := 0

	for _, el := range doc.Descendants("path") {
		id, ok := el.Attr("id")
		if !ok || !strings.HasPrefix(id, DynamicPrefix) {
			continue
		}
		d, ok := el.Attr("d")
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingPathData, id)
		}

		segs, perr := pathdata.Parse(d)
		if perr != nil {
			dropped++
			slog.Debug("dropped malformed path instructions", "shape", id, "error", perr)
		}

		// A repeated id replaces the earlier segments but keeps its position.
		if _, seen := shapes[id]; !seen {
			order = append(order, id)
		}
		shapes[id] = &Shape{ID: id, Segments: segs}
	}

	r.viewBox = vb
	r.shapes = shapes
	r.order = order

	slog.Debug("loaded dynamic shapes", "count", len(order), "with_dropped_instructions", dropped)
	return nil
}

// ParseViewBox parses "min-x min-y width height".
func ParseViewBox(s string) (ViewBox, error) {
	nums, err := pathdata.ParseNumbers(s)
	if err != nil {
		return ViewBox{}, fmt.Errorf("%w: %v", ErrMissingViewBox, err)
	}
	if len(nums) != 4 {
		return ViewBox{}, fmt.Errorf("%w: want 4 numbers, got %d", ErrMissingViewBox, len(nums))
	}
	if nums[2] < 0 || nums[3] < 0 {
		return ViewBox{}, fmt.Errorf("%w: negative size", ErrMissingViewBox)
	}
	return ViewBox{MinX: nums[0], MinY: nums[1], Width: nums[2], Height: nums[3]}, nil
}

// SetShapeState records the logical state of a shape. The shape does not
// need to be loaded.
func (r *Registry) SetShapeState(id string, state int32) {
	r.states[id] = state
}

// ClearShapeState forgets the logical state of a shape.
func (r *Registry) ClearShapeState(id string) {
	delete(r.states, id)
}

// SetStateStyle registers the fill style for a logical state.
func (r *Registry) SetStateStyle(state int32, style string) {
	r.styles[state] = style
}

// ViewBox returns the current view box.
func (r *Registry) ViewBox() ViewBox {
	return r.viewBox
}

// Shapes returns the loaded shapes in document order.
func (r *Registry) Shapes() []*Shape {
	out := make([]*Shape, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.shapes[id])
	}
	return out
}

// ShapeIDs returns the loaded shape ids in document order.
func (r *Registry) ShapeIDs() []string {
	return append([]string(nil), r.order...)
}

// Shape looks up a loaded shape.
func (r *Registry) Shape(id string) (*Shape, bool) {
	s, ok := r.shapes[id]
	return s, ok
}

func (r *Registry) ShapeState(id string) (int32, bool) {
	s, ok := r.states[id]
	return s, ok
}

func (r *Registry) StateStyle(state int32) (string, bool) {
	s, ok := r.styles[state]
	return s, ok
}

// States returns a copy of the shape state table.
func (r *Registry) States() map[string]int32 {
	return maps.Clone(r.states)
}

// Styles returns a copy of the style table.
func (r *Registry) Styles() map[int32]string {
	return maps.Clone(r.styles)
}

// FillStyle resolves the state-derived fill style of a shape. A missing state
// or a state without a style both give DefaultFillStyle.
func (r *Registry) FillStyle(id string) string {
	state, ok := r.states[id]
	if !ok {
		return DefaultFillStyle
	}
	style, ok := r.styles[state]
	if !ok {
		return DefaultFillStyle
	}
	return style
}
