package sbe

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// Outcome is the result of running one lexer pattern over a line.
type Outcome int

const (
	Matched     Outcome = iota
	NoMatch             // the line does not conform
	EngineFault         // the pattern could not be evaluated
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case NoMatch:
		return "no match"
	case EngineFault:
		return "engine fault"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Kind names one measurement field of a sample reply.
type Kind int

const (
	Pressure Kind = iota
	Temperature
	Salinity
	Oxygen
)

func (k Kind) String() string {
	switch k {
	case Pressure:
		return "P"
	case Temperature:
		return "T"
	case Salinity:
		return "S"
	case Oxygen:
		return "O"
	default:
		return "?"
	}
}

// pattern returns the strict form of the field. Every field is padded with
// at least one blank by the instrument.
func (k Kind) pattern() string {
	switch k {
	case Pressure:
		return `[ ]+(-?[0-9]{1,4}\.[0-9]{2})`
	case Temperature, Salinity:
		return `[ ]+(-?[0-9]{1,2}\.[0-9]{4})`
	case Oxygen:
		return `[ ]+([0-9]{1,5})`
	default:
		return `(?!)`
	}
}

// Layout is the ordered list of fields in a comma separated sample reply.
type Layout []Kind

var (
	LayoutP    = Layout{Pressure}
	LayoutPT   = Layout{Pressure, Temperature}
	LayoutPTS  = Layout{Pressure, Temperature, Salinity}
	LayoutPTSO = Layout{Pressure, Temperature, Salinity, Oxygen}
)

func (l Layout) String() string {
	var b strings.Builder
	for _, k := range l {
		b.WriteString(k.String())
	}
	return b.String()
}

const (
	// field is the loose pattern of one comma separated field; it matches
	// an empty field too.
	field = `([^,]*)`
	// float is the loose pattern of a number embedded in junk.
	float = `[^-+0-9.]*([-+0-9.]+)[^0-9]*`

	serialPattern   = `SERIAL NO\.[^0-9]*([0-9]{4})`
	firmwarePattern = `(ALACE)|(STD).*[ ]+V[ ]+([^ ]+)`
)

// DefaultMatchTimeout bounds a single pattern evaluation.
const DefaultMatchTimeout = 250 * time.Millisecond

// Lexer runs the loose and strict patterns of the protocol. A match that
// exceeds the timeout, or a pattern that fails to compile, is reported as
// an EngineFault rather than a mismatch.
//
// A Lexer is safe for concurrent use.
type Lexer struct {
	timeout time.Duration

	mu       sync.Mutex
	compiled map[string]*regexp2.Regexp
}

// Default is the lexer used when none is configured.
var Default = NewLexer(DefaultMatchTimeout)

func NewLexer(timeout time.Duration) *Lexer {
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}
	return &Lexer{
		timeout:  timeout,
		compiled: make(map[string]*regexp2.Regexp),
	}
}

func (l *Lexer) regexp(expr string) (*regexp2.Regexp, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if re, ok := l.compiled[expr]; ok {
		return re, nil
	}
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	re.MatchTimeout = l.timeout
	l.compiled[expr] = re
	return re, nil
}

// find returns the capture groups 1..n of the first match of expr in s.
// Groups that did not participate in the match are returned empty.
func (l *Lexer) find(expr, s string) ([]string, Outcome) {
	re, err := l.regexp(expr)
	if err != nil {
		return nil, EngineFault
	}
	m, err := re.FindStringMatch(s)
	if err != nil {
		return nil, EngineFault
	}
	if m == nil {
		return nil, NoMatch
	}
	groups := m.Groups()
	captures := make([]string, 0, len(groups)-1)
	for _, g := range groups[1:] {
		captures = append(captures, g.String())
	}
	return captures, Matched
}

// Loose splits line into n candidate fields. A single field reply is
// matched against the loose number pattern anchored at the start of the
// line; wider replies against n comma separated runs. Only the leading n
// fields are returned; trailing text is left for Strict to reject.
func (l *Lexer) Loose(line string, n int) ([]string, Outcome) {
	if n < 1 {
		return nil, EngineFault
	}
	if n == 1 {
		return l.find("^"+float, line)
	}
	return l.find("^"+strings.Repeat(field+",", n-1)+field, line)
}

// StrictPattern returns the pattern a whole reply of layout must satisfy.
func StrictPattern(layout Layout) string {
	parts := make([]string, len(layout))
	for i, k := range layout {
		parts[i] = k.pattern()
	}
	return "^" + strings.Join(parts, ",") + "$"
}

// Strict reports whether the entire line conforms to the fixed width
// grammar of layout.
func (l *Lexer) Strict(line string, layout Layout) Outcome {
	if len(layout) == 0 {
		return EngineFault
	}
	re, err := l.regexp(StrictPattern(layout))
	if err != nil {
		return EngineFault
	}
	ok, err := re.MatchString(line)
	switch {
	case err != nil:
		return EngineFault
	case !ok:
		return NoMatch
	default:
		return Matched
	}
}

// Number extracts the first run of number characters from a field and
// converts it the way the instrument's host software always has: the
// longest convertible prefix wins and a run without one yields zero.
func (l *Lexer) Number(s string) (float64, bool) {
	captures, outcome := l.find(float, s)
	if outcome != Matched {
		return 0, false
	}
	return Atof(captures[0]), true
}

// SerialNumber matches a ds line carrying the instrument serial number.
func (l *Lexer) SerialNumber(line string) (int, Outcome) {
	captures, outcome := l.find(serialPattern, line)
	if outcome != Matched {
		return 0, outcome
	}
	return Atoi(captures[0]), Matched
}

// FirmwareRevision matches the firmware line that follows the ds banner.
func (l *Lexer) FirmwareRevision(line string) (string, Outcome) {
	captures, outcome := l.find(firmwarePattern, line)
	if outcome != Matched {
		return "", outcome
	}
	return captures[2], Matched
}

// Atof converts the longest numeric prefix of s, after leading blanks, to a
// float. It returns 0 when s has no numeric prefix.
func Atof(s string) float64 {
	s = strings.TrimLeft(s, " \t")
	end := 0
	for end < len(s) && strings.IndexByte("+-.0123456789eE", s[end]) >= 0 {
		end++
	}
	for ; end > 0; end-- {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v
		}
	}
	return 0
}

// Atoi converts the leading decimal integer of s, after leading blanks. It
// returns 0 when s does not start with one.
func Atoi(s string) int {
	s = strings.TrimLeft(s, " \t")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return v
}
