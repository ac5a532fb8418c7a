package engine

// Tracker remembers which shape the pointer was last over so hosts redraw
// only when that changes.
type Tracker struct {
	hovered string
	primed  bool
}

// Update hit tests the relative point and reports whether the hovered shape
// differs from the previous call. The first call always reports a change.
// An empty id means no shape is hovered.
func (t *Tracker) Update(e *Engine, s PathSurface, relX, relY float64) (string, bool) {
	id, _ := e.HitTest(s, relX, relY)
	changed := !t.primed || id != t.hovered
	t.hovered = id
	t.primed = true
	return id, changed
}

// Hovered returns the shape seen by the last Update.
func (t *Tracker) Hovered() (string, bool) {
	return t.hovered, t.hovered != ""
}

// Reset forgets the hovered shape; the next Update reports a change.
func (t *Tracker) Reset() {
	t.hovered = ""
	t.primed = false
}
