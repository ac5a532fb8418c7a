package pathdata

import (
	"errors"
	"fmt"

	"github.com/tdewolff/parse/v2/strconv"
)

// ErrMalformed is wrapped by every instruction-level parse failure.
var ErrMalformed = errors.New("malformed path instruction")

// attempt is the outcome of parsing a single instruction.
type attempt struct {
	seg Segment
	err error
}

// Extract parses compact SVG path data into segments.
//
// Instructions that fail to parse are dropped and parsing resumes at the next
// command letter, so one bad instruction never costs the rest of the path.
func Extract(d string) []Segment {
	segs, _ := Parse(d)
	return segs
}

// Parse is Extract that also reports the dropped instructions, joined into a
// single error. The returned segments are usable even when err is non-nil.
func Parse(d string) ([]Segment, error) {
	attempts := parseAttempts(d)

	segs := make([]Segment, 0, len(attempts))
	var errs []error
	for _, a := range attempts {
		if a.err != nil {
			errs = append(errs, a.err)
			continue
		}
		segs = append(segs, a.seg)
	}
	return segs, errors.Join(errs...)
}

func parseAttempts(d string) []attempt {
	s := &scanner{b: []byte(d)}
	var attempts []attempt
	var prev byte

	for {
		s.skipSpace()
		if !s.atEnd() && s.b[s.pos] == ',' && prev != 0 {
			s.skipSeparator()
		}
		if s.atEnd() {
			return attempts
		}

		start := s.pos
		c := s.b[s.pos]
		var cmd byte
		switch {
		case isCommand(c):
			cmd = c
			s.pos++
		case prev != 0 && prev != 'Z' && prev != 'z' && startsNumber(c):
			// Repeated arguments reuse the previous command; after a moveto
			// they are implicit linetos.
			cmd = implicitCommand(prev)
		default:
			attempts = append(attempts, attempt{err: fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformed, c, start)})
			s.skipToCommand()
			prev = 0
			continue
		}

		seg, err := s.segment(cmd)
		if err != nil {
			attempts = append(attempts, attempt{err: fmt.Errorf("%w: %c at offset %d: %v", ErrMalformed, cmd, start, err)})
			s.skipToCommand()
			prev = 0
			continue
		}
		attempts = append(attempts, attempt{seg: seg})
		prev = cmd
	}
}

func (s *scanner) segment(cmd byte) (Segment, error) {
	abs := isUpper(cmd)
	switch cmd {
	case 'M', 'm', 'L', 'l':
		x, y, err := s.pair()
		if err != nil {
			return Segment{}, err
		}
		if cmd == 'M' || cmd == 'm' {
			return NewMoveTo(abs, x, y), nil
		}
		return NewLineTo(abs, x, y), nil
	case 'H', 'h':
		x, err := s.number()
		if err != nil {
			return Segment{}, err
		}
		return NewHorizontalLineTo(abs, x), nil
	case 'V', 'v':
		y, err := s.number()
		if err != nil {
			return Segment{}, err
		}
		return NewVerticalLineTo(abs, y), nil
	case 'Z', 'z':
		return NewClosePath(abs), nil
	case 'C', 'c':
		return s.other(cmd, 6)
	case 'S', 's', 'Q', 'q':
		return s.other(cmd, 4)
	case 'T', 't':
		return s.other(cmd, 2)
	case 'A', 'a':
		return s.arc(cmd)
	}
	return Segment{}, fmt.Errorf("unknown command %q", cmd)
}

func (s *scanner) other(cmd byte, n int) (Segment, error) {
	args := make([]float64, n)
	for i := range args {
		v, err := s.number()
		if err != nil {
			return Segment{}, err
		}
		args[i] = v
	}
	return NewOther(cmd, args), nil
}

// arc reads rx ry x-axis-rotation large-arc-flag sweep-flag x y. The flags
// are single digits and may be written without separators ("a5 5 0 015 5").
func (s *scanner) arc(cmd byte) (Segment, error) {
	args := make([]float64, 0, 7)
	for i := 0; i < 7; i++ {
		var v float64
		var err error
		if i == 3 || i == 4 {
			v, err = s.flag()
		} else {
			v, err = s.number()
		}
		if err != nil {
			return Segment{}, err
		}
		args = append(args, v)
	}
	return NewOther(cmd, args), nil
}

// ParseNumbers scans a whitespace/comma separated list of numbers, as used by
// viewBox and points attributes.
func ParseNumbers(str string) ([]float64, error) {
	s := &scanner{b: []byte(str)}
	var nums []float64
	for {
		s.skipSpace()
		if s.atEnd() {
			return nums, nil
		}
		v, err := s.number()
		if err != nil {
			return nil, err
		}
		nums = append(nums, v)
	}
}

type scanner struct {
	b   []byte
	pos int
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.b)
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.b) && isSpace(s.b[s.pos]) {
		s.pos++
	}
}

// skipSeparator consumes whitespace with at most one comma.
func (s *scanner) skipSeparator() {
	s.skipSpace()
	if s.pos < len(s.b) && s.b[s.pos] == ',' {
		s.pos++
		s.skipSpace()
	}
}

func (s *scanner) skipToCommand() {
	for s.pos < len(s.b) && !isCommand(s.b[s.pos]) {
		s.pos++
	}
}

func (s *scanner) number() (float64, error) {
	s.skipSeparator()
	if s.atEnd() {
		return 0, errors.New("missing number")
	}
	v, n := strconv.ParseFloat(s.b[s.pos:])
	if n == 0 {
		return 0, fmt.Errorf("invalid number at %q", s.b[s.pos])
	}
	s.pos += n
	return v, nil
}

func (s *scanner) pair() (float64, float64, error) {
	x, err := s.number()
	if err != nil {
		return 0, 0, err
	}
	y, err := s.number()
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func (s *scanner) flag() (float64, error) {
	s.skipSeparator()
	if s.atEnd() {
		return 0, errors.New("missing flag")
	}
	switch s.b[s.pos] {
	case '0':
		s.pos++
		return 0, nil
	case '1':
		s.pos++
		return 1, nil
	}
	return 0, fmt.Errorf("invalid flag %q", s.b[s.pos])
}

func implicitCommand(prev byte) byte {
	switch prev {
	case 'M':
		return 'L'
	case 'm':
		return 'l'
	}
	return prev
}

func isCommand(c byte) bool {
	switch c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'Z', 'z',
		'C', 'c', 'S', 's', 'Q', 'q', 'T', 't', 'A', 'a':
		return true
	}
	return false
}

func startsNumber(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
