package config

import (
	"regexp"
	"strings"
)

// identifierRe matches platform, distribution and job kind identifiers.
var identifierRe = regexp.MustCompile(`^[a-z0-9]+([-_][a-z0-9]+)*$`)

func isIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// JobName derives the job name of one matrix cell: {kind}_{platform}_{distribution}.
// The result only contains lower-case letters, digits and underscores.
func JobName(kind, platform, distribution string) string {
	return NameSegment(kind) + "_" + NameSegment(platform) + "_" + NameSegment(distribution)
}

// NameSegment lower-cases s and maps every character outside [a-z0-9_] to '_'.
func NameSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, s)
}
