//go:build js && wasm

package main

import "syscall/js"

// canvasSurface draws on a CanvasRenderingContext2D or its offscreen
// variant.
type canvasSurface struct {
	ctx js.Value
}

func newCanvasSurface(ctx js.Value) *canvasSurface {
	return &canvasSurface{ctx: ctx}
}

func (c *canvasSurface) BeginPath()          { c.ctx.Call("beginPath") }
func (c *canvasSurface) MoveTo(x, y float64) { c.ctx.Call("moveTo", x, y) }
func (c *canvasSurface) LineTo(x, y float64) { c.ctx.Call("lineTo", x, y) }
func (c *canvasSurface) ClosePath()          { c.ctx.Call("closePath") }
func (c *canvasSurface) Fill()               { c.ctx.Call("fill") }
func (c *canvasSurface) Stroke()             { c.ctx.Call("stroke") }

func (c *canvasSurface) IsPointInPath(x, y float64) bool {
	return c.ctx.Call("isPointInPath", x, y).Bool()
}

// SetSize resizes the backing canvas, which also clears it.
func (c *canvasSurface) SetSize(width, height int) {
	canvas := c.ctx.Get("canvas")
	canvas.Set("width", width)
	canvas.Set("height", height)
}

func (c *canvasSurface) Size() (int, int) {
	canvas := c.ctx.Get("canvas")
	return canvas.Get("width").Int(), canvas.Get("height").Int()
}

func (c *canvasSurface) SetFillStyle(style string) {
	c.ctx.Set("fillStyle", style)
}
