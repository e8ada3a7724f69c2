package registry

import (
	"fmt"
	"path"
	"regexp"
)

// PatternKind selects how FindChannelNames, watchChannels, and monitor
// patterns are matched against channel names (spec.md §4.3, glossary
// "Pattern").
type PatternKind string

const (
	// PatternLiteral matches only the exact channel name.
	PatternLiteral PatternKind = "literal"
	// PatternGlob matches using path.Match semantics (*, ?, [...]),
	// applied to the whole channel name.
	PatternGlob PatternKind = "glob"
	// PatternRegexp matches using an anchored Go regular expression.
	PatternRegexp PatternKind = "regexp"
)

// matcher compiles pattern once so repeated matches (e.g. against every
// live channel on each register/unregister) don't recompile a regexp per
// call.
type matcher struct {
	kind    PatternKind
	literal string
	re      *regexp.Regexp
}

func newMatcher(pattern string, kind PatternKind) (*matcher, error) {
	switch kind {
	case PatternLiteral, "":
		return &matcher{kind: PatternLiteral, literal: pattern}, nil
	case PatternGlob:
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("registry: invalid glob pattern %q: %w", pattern, err)
		}
		return &matcher{kind: PatternGlob, literal: pattern}, nil
	case PatternRegexp:
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("registry: invalid regexp pattern %q: %w", pattern, err)
		}
		return &matcher{kind: PatternRegexp, re: re}, nil
	default:
		return nil, fmt.Errorf("registry: unknown pattern type %q", kind)
	}
}

func (m *matcher) match(name string) bool {
	switch m.kind {
	case PatternGlob:
		ok, _ := path.Match(m.literal, name)
		return ok
	case PatternRegexp:
		return m.re.MatchString(name)
	default:
		return m.literal == name
	}
}
