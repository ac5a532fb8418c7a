package engine

// PathSurface is the path-building and containment part of a drawing
// surface. The engine borrows it for the duration of one call and never
// retains it.
type PathSurface interface {
	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	ClosePath()
	// IsPointInPath reports whether the point is inside the current path.
	IsPointInPath(x, y float64) bool
}

// Surface is a 2D drawing target such as a browser canvas or an image.
type Surface interface {
	PathSurface
	SetSize(width, height int)
	Size() (width, height int)
	SetFillStyle(style string)
	Fill()
	Stroke()
}
