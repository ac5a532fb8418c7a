package pathdata

// Resolve converts segments into absolute commands.
//
// A running current point starts at (startX, startY). Absolute moves and
// lines set it, relative ones add to it, horizontal and vertical lines touch
// a single axis. ClosePath emits OpClose without moving the point. Other
// segments emit nothing and leave the point alone. Resolve keeps no state
// between calls.
func Resolve(segs []Segment, startX, startY float64) []Command {
	cmds := make([]Command, 0, len(segs))
	x, y := startX, startY

	for _, seg := range segs {
		switch seg.Kind {
		case MoveTo, LineTo:
			if seg.Abs {
				x, y = seg.X, seg.Y
			} else {
				x += seg.X
				y += seg.Y
			}
			op := OpLineTo
			if seg.Kind == MoveTo {
				op = OpMoveTo
			}
			cmds = append(cmds, Command{Op: op, X: x, Y: y})

		case HorizontalLineTo:
			if seg.Abs {
				x = seg.X
			} else {
				x += seg.X
			}
			cmds = append(cmds, Command{Op: OpLineTo, X: x, Y: y})

		case VerticalLineTo:
			if seg.Abs {
				y = seg.Y
			} else {
				y += seg.Y
			}
			cmds = append(cmds, Command{Op: OpLineTo, X: x, Y: y})

		case ClosePath:
			cmds = append(cmds, Command{Op: OpClose})
		}
	}

	return cmds
}
