package engine

import (
	"encoding/json"

	"github.com/inamate/dynmap/internal/pathdata"
)

// DrawCommand represents a single drawing operation for a remote frontend to
// execute on a Canvas2D context.
type DrawCommand struct {
	Op     string        `json:"op"`               // "size", "fill" or "stroke"
	Width  int           `json:"width,omitempty"`  // for "size"
	Height int           `json:"height,omitempty"` // for "size"
	Path   []PathCommand `json:"path,omitempty"`
	Fill   string        `json:"fill,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Z"].
type PathCommand []interface{}

// Recorder is a Surface that records what is painted on it as a display
// list. Containment is computed geometrically with the nonzero rule, so a
// Recorder can also serve hit tests without a real canvas.
type Recorder struct {
	width, height int
	fillStyle     string

	path     []PathCommand
	resolved []pathdata.Command

	commands []DrawCommand
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{fillStyle: "#000"}
}

func (r *Recorder) SetSize(width, height int) {
	r.width, r.height = width, height
	r.commands = append(r.commands, DrawCommand{Op: "size", Width: width, Height: height})
}

func (r *Recorder) Size() (int, int) {
	return r.width, r.height
}

func (r *Recorder) SetFillStyle(style string) {
	r.fillStyle = style
}

func (r *Recorder) BeginPath() {
	r.path = nil
	r.resolved = nil
}

func (r *Recorder) MoveTo(x, y float64) {
	r.path = append(r.path, PathCommand{"M", x, y})
	r.resolved = append(r.resolved, pathdata.Command{Op: pathdata.OpMoveTo, X: x, Y: y})
}

func (r *Recorder) LineTo(x, y float64) {
	r.path = append(r.path, PathCommand{"L", x, y})
	r.resolved = append(r.resolved, pathdata.Command{Op: pathdata.OpLineTo, X: x, Y: y})
}

func (r *Recorder) ClosePath() {
	r.path = append(r.path, PathCommand{"Z"})
	r.resolved = append(r.resolved, pathdata.Command{Op: pathdata.OpClose})
}

func (r *Recorder) IsPointInPath(x, y float64) bool {
	return pathdata.Contains(r.resolved, x, y)
}

func (r *Recorder) Fill() {
	r.commands = append(r.commands, DrawCommand{Op: "fill", Path: r.currentPath(), Fill: r.fillStyle})
}

func (r *Recorder) Stroke() {
	r.commands = append(r.commands, DrawCommand{Op: "stroke", Path: r.currentPath()})
}

// Commands returns the recorded display list in painter's order.
func (r *Recorder) Commands() []DrawCommand {
	return r.commands
}

// Reset drops the recorded commands and the current path.
func (r *Recorder) Reset() {
	r.commands = nil
	r.BeginPath()
}

func (r *Recorder) currentPath() []PathCommand {
	return append([]PathCommand(nil), r.path...)
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
