package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/dynmap/internal/document"
	"github.com/inamate/dynmap/internal/shapes"
)

func TestEngineSample(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.LoadSampleDocument())

	assert.Equal(t, shapes.ViewBox{Width: 800, Height: 500}, e.ViewBox())
	assert.Len(t, e.ShapeIDs(), 13)
	assert.Equal(t, document.SampleStyles()[2], e.FillStyle("dynamic_middle_desk_3"))

	// Centre of the separate desk: (100, 70) in an 800x500 view box.
	id, ok := e.ShapeAt(100.0/800, 70.0/500)
	assert.True(t, ok)
	assert.Equal(t, "dynamic_separate_desk", id)

	id, ok = e.EvaluateClick(NewRecorder(), 660.0/800, 205.0/500)
	assert.True(t, ok)
	assert.Equal(t, "dynamic_right_desk_1", id)

	_, ok = e.ShapeAt(0.01, 0.99)
	assert.False(t, ok)
}

func TestEngineFailedLoadKeepsMap(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.LoadSampleDocument())

	err := e.LoadDocument(`<svg><path id="dynamic_x" d="M0 0"/></svg>`)
	assert.ErrorIs(t, err, shapes.ErrMissingViewBox)
	assert.Len(t, e.ShapeIDs(), 13)
}

func TestEngineStateChanges(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.LoadDocument(twoBoxes))

	assert.Equal(t, DefaultFillStyle, e.FillStyle("dynamic_left"))

	e.SetStateStyle(3, "#f00")
	e.SetShapeState("dynamic_left", 3)
	assert.Equal(t, "#f00", e.FillStyle("dynamic_left"))

	state, ok := e.ShapeState("dynamic_left")
	assert.True(t, ok)
	assert.Equal(t, int32(3), state)
	assert.Equal(t, map[string]int32{"dynamic_left": 3}, e.States())
	assert.Equal(t, map[int32]string{3: "#f00"}, e.Styles())

	e.ClearShapeState("dynamic_left")
	assert.Equal(t, DefaultFillStyle, e.FillStyle("dynamic_left"))
}

func TestEngineDrawListJSON(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.LoadDocument(`<svg viewBox="0 0 10 10"><path id="dynamic_a" d="M 0 0 H 5 V 5 Z"/></svg>`))

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.DrawListJSON(0.2, 0.1)), &got))
	require.Len(t, got, 3)

	assert.Equal(t, "size", got[0]["op"])
	assert.Equal(t, 10.0, got[0]["width"])
	assert.Equal(t, "fill", got[1]["op"])
	assert.Equal(t, HoverFillStyle, got[1]["fill"])
	assert.Equal(t, []any{"M", 0.0, 0.0}, got[1]["path"].([]any)[0])
	assert.Equal(t, "stroke", got[2]["op"])

	empty, err := DrawCommandsToJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}

func TestEngineShapeBounds(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.LoadDocument(twoBoxes))

	r, ok := e.ShapeBounds("dynamic_right")
	require.True(t, ok)
	assert.Equal(t, Rect{X: 110, Y: 10, Width: 80, Height: 80}, r)

	rel := RelativeBounds(e.ViewBox(), r)
	assert.InDelta(t, 0.55, rel.X, 1e-9)
	assert.InDelta(t, 0.4, rel.Width, 1e-9)
	assert.InDelta(t, 0.8, rel.Height, 1e-9)

	cx, cy := r.Center()
	assert.Equal(t, 150.0, cx)
	assert.Equal(t, 50.0, cy)

	all := e.ContentBounds()
	assert.Equal(t, Rect{X: 10, Y: 10, Width: 180, Height: 80}, all)

	_, ok = e.ShapeBounds("missing")
	assert.False(t, ok)
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 15, Height: 15}, a.Union(b))
	assert.Equal(t, a, a.Union(Rect{}))
	assert.Equal(t, b, Rect{}.Union(b))
}

func TestMatrix(t *testing.T) {
	m := Translate(10, 20).Multiply(Scale(2, 4))
	x, y := m.TransformPoint(1, 1)
	assert.Equal(t, 12.0, x)
	assert.Equal(t, 24.0, y)

	ix, iy := m.Invert().TransformPoint(x, y)
	assert.InDelta(t, 1, ix, 1e-9)
	assert.InDelta(t, 1, iy, 1e-9)

	assert.Equal(t, Identity(), Scale(0, 1).Invert())
}
