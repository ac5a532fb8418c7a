package pathdata

// Contains reports whether (x, y) lies inside the path under the nonzero
// winding rule, the default fill rule of a 2D canvas. Open subpaths are
// closed implicitly, as they are when filled.
func Contains(cmds []Command, x, y float64) bool {
	return Winding(cmds, x, y) != 0
}

// Winding returns the winding number of the path around (x, y).
func Winding(cmds []Command, x, y float64) int {
	var wn int
	var startX, startY, curX, curY float64
	open := false

	for _, c := range cmds {
		switch c.Op {
		case OpMoveTo:
			if open {
				wn += crossing(curX, curY, startX, startY, x, y)
			}
			startX, startY = c.X, c.Y
			curX, curY = c.X, c.Y
			open = true

		case OpLineTo:
			// A lineto without a current subpath starts one.
			if !open {
				startX, startY = c.X, c.Y
				curX, curY = c.X, c.Y
				open = true
				continue
			}
			wn += crossing(curX, curY, c.X, c.Y, x, y)
			curX, curY = c.X, c.Y

		case OpClose:
			if open {
				wn += crossing(curX, curY, startX, startY, x, y)
				curX, curY = startX, startY
			}
		}
	}

	if open {
		wn += crossing(curX, curY, startX, startY, x, y)
	}
	return wn
}

// crossing is the signed contribution of edge (x0,y0)-(x1,y1) to the winding
// number around (px, py): +1 for an upward edge with the point on its left,
// -1 for a downward edge with the point on its right.
func crossing(x0, y0, x1, y1, px, py float64) int {
	side := (x1-x0)*(py-y0) - (px-x0)*(y1-y0)
	if y0 <= py {
		if y1 > py && side > 0 {
			return 1
		}
	} else if y1 <= py && side < 0 {
		return -1
	}
	return 0
}
