package heresy

import (
	"github.com/xrash/smetrics"
)

// KnownDirectives is the parser's table of recognized @-directives, used to
// produce a Levenshtein-nearest suggestion for KindUnknownDirective.
var KnownDirectives = []string{
	"if", "elif", "else", "endif",
	"include", "def",
	"error", "warn", "print",
}

// NearestDirective returns the entry of KnownDirectives with the smallest
// Wagner-Fischer edit distance to got, or "" if got is empty or the
// candidate set is empty.
func NearestDirective(got string) string {
	return nearest(got, KnownDirectives)
}

// KnownStateKeys is the Symphony conductor's closed set of %% state keys,
// used for the analogous suggestion on KindUnknownState.
var KnownStateKeys = []string{
	"sanctum", "let", "set", "var", "env", "sleep", "kill",
	"proclaim", "fail", "tunnel", "hoard", "config", "ask", "choose",
}

// NearestStateKey returns the closest entry of KnownStateKeys to got.
func NearestStateKey(got string) string {
	return nearest(got, KnownStateKeys)
}

func nearest(got string, candidates []string) string {
	if got == "" || len(candidates) == 0 {
		return ""
	}
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := smetrics.WagnerFischer(got, c, 1, 1, 1)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}
