package requirement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrMalformed indicates a requirement string that could not be parsed.
var ErrMalformed = errors.New("malformed requirement")

// Requirement is a mod name plus a version constraint, parsed from user
// input or from a mod's dependency list. Supported forms:
//
//	name
//	name==1.2.0
//	name>=1.0
//	name<2.0
//
// A leading "?" marks the requirement optional.
type Requirement struct {
	Name     string
	Optional bool
	Spec     Spec
}

// Spec is a predicate over version strings. The zero value matches
// everything (an unconstrained requirement).
type Spec struct {
	op      string
	version *semver.Version
}

// operators in priority order: "==" must be probed before "<" so that
// "name<=..." style typos or ">=" are never mis-split on the bare "<".
var operators = []string{"==", ">=", "<"}

// Parse parses a requirement string.
func Parse(text string) (Requirement, error) {
	req := Requirement{}
	rest := strings.TrimSpace(text)

	if strings.HasPrefix(rest, "?") {
		req.Optional = true
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "?"))
	}

	name := rest
	for _, op := range operators {
		idx := strings.Index(rest, op)
		if idx < 0 {
			continue
		}
		name = strings.TrimSpace(rest[:idx])
		verText := strings.TrimSpace(rest[idx+len(op):])

		ver, err := semver.NewVersion(verText)
		if err != nil {
			return Requirement{}, fmt.Errorf("%w: %q: bad version %q", ErrMalformed, text, verText)
		}
		req.Spec = Spec{op: op, version: ver}
		break
	}

	if name == "" {
		return Requirement{}, fmt.Errorf("%w: %q: empty name", ErrMalformed, text)
	}
	req.Name = name
	return req, nil
}

// Any reports whether the spec accepts every version.
func (s Spec) Any() bool {
	return s.version == nil
}

// Match reports whether version satisfies the spec. Versions are compared
// numerically per dotted component ("1.2.0" < "1.10.0"), never lexically.
// A version that does not parse only matches the unconstrained spec.
func (s Spec) Match(version string) bool {
	if s.Any() {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	cmp := v.Compare(s.version)
	switch s.op {
	case "==":
		return cmp == 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	}
	return false
}

func (s Spec) String() string {
	if s.Any() {
		return ""
	}
	return s.op + s.version.Original()
}

func (r Requirement) String() string {
	var b strings.Builder
	if r.Optional {
		b.WriteString("?")
	}
	b.WriteString(r.Name)
	b.WriteString(r.Spec.String())
	return b.String()
}

// Compare orders two version strings using semantic-version rules,
// returning -1, 0 or 1. Unparseable versions sort before parseable ones
// so that a malformed local version never blocks an upgrade.
func Compare(a, b string) int {
	av, aerr := semver.NewVersion(a)
	bv, berr := semver.NewVersion(b)
	switch {
	case aerr != nil && berr != nil:
		return strings.Compare(a, b)
	case aerr != nil:
		return -1
	case berr != nil:
		return 1
	}
	return av.Compare(bv)
}
