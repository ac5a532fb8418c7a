package pathdata

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the drawing instruction a Segment was parsed from.
type Kind int

const (
	MoveTo Kind = iota
	LineTo
	HorizontalLineTo
	VerticalLineTo
	ClosePath
	// Other covers every instruction without straight-line geometry
	// (cubic/quadratic curves, smooth curves, arcs). It keeps its place in the
	// sequence but is skipped when the path is resolved.
	Other
)

func (k Kind) String() string {
	switch k {
	case MoveTo:
		return "MoveTo"
	case LineTo:
		return "LineTo"
	case HorizontalLineTo:
		return "HorizontalLineTo"
	case VerticalLineTo:
		return "VerticalLineTo"
	case ClosePath:
		return "ClosePath"
	case Other:
		return "Other"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Segment is one parsed path instruction, before coordinate resolution.
//
// Only the fields relevant to Kind are set: X and Y for MoveTo/LineTo, X for
// HorizontalLineTo, Y for VerticalLineTo. Command and Args carry the raw
// letter and arguments of an Other segment.
type Segment struct {
	Kind    Kind
	Abs     bool
	X       float64
	Y       float64
	Command byte
	Args    []float64
}

func NewMoveTo(abs bool, x, y float64) Segment {
	return Segment{Kind: MoveTo, Abs: abs, X: x, Y: y, Command: letter('M', abs)}
}

func NewLineTo(abs bool, x, y float64) Segment {
	return Segment{Kind: LineTo, Abs: abs, X: x, Y: y, Command: letter('L', abs)}
}

func NewHorizontalLineTo(abs bool, x float64) Segment {
	return Segment{Kind: HorizontalLineTo, Abs: abs, X: x, Command: letter('H', abs)}
}

func NewVerticalLineTo(abs bool, y float64) Segment {
	return Segment{Kind: VerticalLineTo, Abs: abs, Y: y, Command: letter('V', abs)}
}

func NewClosePath(abs bool) Segment {
	return Segment{Kind: ClosePath, Abs: abs, Command: letter('Z', abs)}
}

// NewOther wraps an instruction this package does not resolve.
func NewOther(command byte, args []float64) Segment {
	return Segment{Kind: Other, Abs: isUpper(command), Command: command, Args: args}
}

// String renders the segment back in path-data form, e.g. "l5,0".
func (s Segment) String() string {
	var sb strings.Builder
	sb.WriteByte(s.Command)
	var args []float64
	switch s.Kind {
	case MoveTo, LineTo:
		args = []float64{s.X, s.Y}
	case HorizontalLineTo:
		args = []float64{s.X}
	case VerticalLineTo:
		args = []float64{s.Y}
	case Other:
		args = s.Args
	}
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(a, 'g', -1, 64))
	}
	return sb.String()
}

// Op is the operation of a resolved Command.
type Op int

const (
	OpMoveTo Op = iota
	OpLineTo
	OpClose
)

func (o Op) String() string {
	switch o {
	case OpMoveTo:
		return "moveTo"
	case OpLineTo:
		return "lineTo"
	case OpClose:
		return "closePath"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Command is a segment converted to absolute coordinates, ready to be issued
// to a rendering surface. X and Y are zero for OpClose.
type Command struct {
	Op Op
	X  float64
	Y  float64
}

func letter(upper byte, abs bool) byte {
	if abs {
		return upper
	}
	return upper + ('a' - 'A')
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}
