package matrix

import (
	"path"
	"regexp"

	"github.com/gurumnet/ci-jobs/src/config"
)

// Selector decides whether a job name is processed.
type Selector interface {
	Match(name string) bool
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(name string) bool

func (f SelectorFunc) Match(name string) bool { return f(name) }

// All selects every job.
var All Selector = SelectorFunc(func(string) bool { return true })

// RegexpSelector matches names against a pattern anchored at the start of
// the name. A prefix match is enough; the pattern need not cover the whole name.
type RegexpSelector struct {
	re *regexp.Regexp
}

// NewRegexpSelector compiles pattern. An empty pattern selects everything.
func NewRegexpSelector(pattern string) (Selector, error) {
	if pattern == "" {
		return All, nil
	}
	// The pattern is never spliced into a larger expression; anchoring is
	// checked on the match position.
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, config.Precondition(err, "invalid job selection pattern %q", pattern)
	}
	return &RegexpSelector{re: re}, nil
}

// Match reports whether the leftmost match starts at the beginning of name.
func (s *RegexpSelector) Match(name string) bool {
	loc := s.re.FindStringIndex(name)
	return loc != nil && loc[0] == 0
}


// ListSelector selects exactly the listed names.
type ListSelector map[string]struct{}

// NewListSelector builds a ListSelector. An empty list selects everything.
func NewListSelector(names []string) Selector {
	if len(names) == 0 {
		return All
	}
	s := make(ListSelector, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s ListSelector) Match(name string) bool {
	_, ok := s[name]
	return ok
}

// GlobSelector matches whole names against a shell glob (path.Match syntax).
type GlobSelector struct {
	pattern string
}

// NewGlobSelector checks pattern syntax up front. An empty pattern selects everything.
func NewGlobSelector(pattern string) (Selector, error) {
	if pattern == "" {
		return All, nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, config.Precondition(err, "invalid job selection glob %q", pattern)
	}
	return &GlobSelector{pattern: pattern}, nil
}

func (s *GlobSelector) Match(name string) bool {
	ok, _ := path.Match(s.pattern, name)
	return ok
}

// SelectOptions carries the selection flags; at most one may be set.
type SelectOptions struct {
	Regexp string
	Names  []string
	Glob   string
}

// NewSelector builds the selector for opts. It fails before any enumeration
// when the options conflict or a pattern does not compile.
func NewSelector(opts SelectOptions) (Selector, error) {
	set := 0
	if opts.Regexp != "" {
		set++
	}
	if len(opts.Names) > 0 {
		set++
	}
	if opts.Glob != "" {
		set++
	}
	if set > 1 {
		return nil, &config.PreconditionError{Reason: "only one job selection option may be given"}
	}

	switch {
	case len(opts.Names) > 0:
		return NewListSelector(opts.Names), nil
	case opts.Glob != "":
		return NewGlobSelector(opts.Glob)
	default:
		return NewRegexpSelector(opts.Regexp)
	}
}
