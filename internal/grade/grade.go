// Package grade defines the letter grades used to rank cyclomatic
// complexity scores and the threshold comparison between them.
package grade

import (
	"fmt"
	"strings"
)

// Grade is a letter rank of a complexity score. A is best, F is worst.
// Grades are single uppercase letters, so string ordering is grade
// ordering.
type Grade string

// Grade constants, best to worst.
const (
	A Grade = "A"
	B Grade = "B"
	C Grade = "C"
	D Grade = "D"
	E Grade = "E"
	F Grade = "F"
)

// All lists every grade from best to worst.
var All = []Grade{A, B, C, D, E, F}

// Parse normalizes a raw grade value. Surrounding whitespace and one
// pair of wrapping quotes are removed and the letter is upper-cased.
// Anything that does not reduce to exactly one of A-F is an error.
func Parse(raw string) (Grade, error) {
	s := Unquote(strings.TrimSpace(raw))
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("invalid grade %q: must be one of A, B, C, D, E, F", raw)
	}
	return g, nil
}

// MustParse is like Parse but panics on invalid input.
func MustParse(raw string) Grade {
	g, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return g
}

// Unquote strips a single matching pair of ' or " around s.
func Unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Valid reports whether g is one of A-F.
func (g Grade) Valid() bool {
	return len(g) == 1 && g >= A && g <= F
}

// String implements fmt.Stringer.
func (g Grade) String() string {
	return string(g)
}

// Exceeds reports whether g is strictly worse than threshold. A nil
// threshold is never exceeded: the configured grade is the worst
// acceptable one, so a score equal to it passes.
func (g Grade) Exceeds(threshold *Grade) bool {
	if threshold == nil {
		return false
	}
	return g > *threshold
}

// MarshalText implements encoding.TextMarshaler.
func (g Grade) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("invalid grade %q", string(g))
	}
	return []byte(g), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using Parse.
func (g *Grade) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Ptr returns a pointer to g, for optional threshold fields.
func Ptr(g Grade) *Grade {
	return &g
}
