//go:build js && wasm

package main

import (
	"log/slog"
	"os"
	"syscall/js"

	"github.com/inamate/dynmap/internal/engine"
)

var (
	eng     *engine.Engine
	tracker engine.Tracker
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	eng = engine.NewEngine()

	// Create the drawer API object
	mapDrawer := js.Global().Get("Object").New()

	// --- Commands (worker → engine) ---
	mapDrawer.Set("parseSVG", js.FuncOf(parseSVG))
	mapDrawer.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	mapDrawer.Set("setShapeState", js.FuncOf(setShapeState))
	mapDrawer.Set("clearShapeState", js.FuncOf(clearShapeState))
	mapDrawer.Set("setShapeStates", js.FuncOf(setShapeStates))
	mapDrawer.Set("setStateFillStyle", js.FuncOf(setStateFillStyle))
	mapDrawer.Set("setStateFillStyles", js.FuncOf(setStateFillStyles))

	// --- Drawing and queries (engine → canvas) ---
	mapDrawer.Set("getDynamicShapeForPos", js.FuncOf(getDynamicShapeForPos))
	mapDrawer.Set("drawSVGWithXY", js.FuncOf(drawSVGWithXY))
	mapDrawer.Set("renderForRelPos", js.FuncOf(renderForRelPos))
	mapDrawer.Set("evaluateClick", js.FuncOf(evaluateClick))
	mapDrawer.Set("getViewBox", js.FuncOf(getViewBox))
	mapDrawer.Set("getShapeIds", js.FuncOf(getShapeIDs))
	mapDrawer.Set("getDrawList", js.FuncOf(getDrawList))

	// Register on global scope
	js.Global().Set("mapDrawer", mapDrawer)

	// Signal that WASM is ready
	js.Global().Set("mapDrawerReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Command Handlers ---

func parseSVG(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing SVG text"})
	}

	if err := eng.LoadDocument(args[0].String()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	tracker.Reset()

	return js.ValueOf(map[string]interface{}{"ok": true, "shapes": len(eng.ShapeIDs())})
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	if err := eng.LoadSampleDocument(); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	tracker.Reset()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func setShapeState(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetShapeState(args[0].String(), int32(args[1].Int()))
	return nil
}

func clearShapeState(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.ClearShapeState(args[0].String())
	return nil
}

// setShapeStates takes an array of {shapeId, state} objects.
func setShapeStates(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	list := args[0]
	for i := 0; i < list.Length(); i++ {
		item := list.Index(i)
		eng.SetShapeState(item.Get("shapeId").String(), int32(item.Get("state").Int()))
	}
	return nil
}

func setStateFillStyle(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetStateStyle(int32(args[0].Int()), args[1].String())
	return nil
}

// setStateFillStyles takes an array of {state, style} objects.
func setStateFillStyles(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	list := args[0]
	for i := 0; i < list.Length(); i++ {
		item := list.Index(i)
		eng.SetStateStyle(int32(item.Get("state").Int()), item.Get("style").String())
	}
	return nil
}

// --- Query Handlers ---

// pointArgs reads (ctx, relX, relY).
func pointArgs(args []js.Value) (*canvasSurface, float64, float64, bool) {
	if len(args) < 3 || args[0].IsUndefined() || args[0].IsNull() {
		return nil, 0, 0, false
	}
	return newCanvasSurface(args[0]), args[1].Float(), args[2].Float(), true
}

func getDynamicShapeForPos(this js.Value, args []js.Value) interface{} {
	s, x, y, ok := pointArgs(args)
	if !ok {
		return js.Null()
	}
	id, hit := eng.HitTest(s, x, y)
	if !hit {
		return js.Null()
	}
	return js.ValueOf(id)
}

func drawSVGWithXY(this js.Value, args []js.Value) interface{} {
	s, x, y, ok := pointArgs(args)
	if !ok {
		return nil
	}
	eng.Render(s, x, y)
	return nil
}

// renderForRelPos redraws only when the hovered shape changed since the
// previous call.
func renderForRelPos(this js.Value, args []js.Value) interface{} {
	s, x, y, ok := pointArgs(args)
	if !ok {
		return nil
	}
	id, changed := tracker.Update(eng, s, x, y)
	if changed {
		eng.Render(s, x, y)
	}

	var shapeID interface{}
	if id != "" {
		shapeID = id
	}
	return js.ValueOf(map[string]interface{}{"shapeId": shapeID, "changed": changed})
}

func evaluateClick(this js.Value, args []js.Value) interface{} {
	s, x, y, ok := pointArgs(args)
	if !ok {
		return js.Null()
	}
	id, hit := eng.EvaluateClick(s, x, y)
	if !hit {
		return js.Null()
	}
	return js.ValueOf(id)
}

func getViewBox(this js.Value, args []js.Value) interface{} {
	vb := eng.ViewBox()
	return js.ValueOf(map[string]interface{}{
		"minX":   vb.MinX,
		"minY":   vb.MinY,
		"width":  vb.Width,
		"height": vb.Height,
	})
}

func getShapeIDs(this js.Value, args []js.Value) interface{} {
	ids := eng.ShapeIDs()
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return js.ValueOf(out)
}

// getDrawList returns the JSON display list for (relX, relY).
func getDrawList(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("[]")
	}
	return js.ValueOf(eng.DrawListJSON(args[0].Float(), args[1].Float()))
}
