package symphony

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ActionEdict is a parsed ">> command [as var] [using strategy] [retry(...)]"
// line.
type ActionEdict struct {
	Command    string
	CaptureVar string
	Strategy   string // selects an output adjudicator; "" means raw text
	Retry      RetryPolicy
	Timeout    time.Duration // 0 -> realRunner's 600s default (spec.md §5 Timeouts)
}

// RetryPolicy is an action's "retry(N, backoff=linear|exponential, interval=S)"
// suffix. Attempts <= 1 means no retry.
type RetryPolicy struct {
	Attempts int
	Backoff  string // "linear" or "exponential"; "" behaves as linear
	Interval time.Duration
}

var (
	retryRe   = regexp.MustCompile(`(?i)\bretry\(\s*(\d+)\s*(?:,\s*backoff\s*=\s*(linear|exponential))?\s*(?:,\s*interval\s*=\s*(\d+(?:\.\d+)?))?\s*\)\s*$`)
	usingRe   = regexp.MustCompile(`(?i)\busing\s+(\S+)\s*$`)
	asRe      = regexp.MustCompile(`(?i)\bas\s+(\S+)\s*$`)
	timeoutRe = regexp.MustCompile(`(?i)\btimeout\((\d+(?:\.\d+)?)\)\s*$`)
)

// parseAction parses the trailing clauses off a ">> ..." line, in the
// order spec.md lists them: "as var", "using strategy",
// "retry(N, backoff=linear|exponential, interval=S)". Unlike JSON/YAML
// there is no delimiter between clauses other than these keywords, so
// each is stripped from the end of the line in turn before the next is
// looked for.
func parseAction(raw string) ActionEdict {
	rest := strings.TrimSpace(strings.TrimPrefix(raw, ">>"))

	edict := ActionEdict{Retry: RetryPolicy{Attempts: 1}}

	if m := timeoutRe.FindStringSubmatch(rest); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
			edict.Timeout = time.Duration(secs * float64(time.Second))
		}
		rest = strings.TrimSpace(rest[:len(rest)-len(m[0])])
	}

	if m := retryRe.FindStringSubmatch(rest); m != nil {
		attempts, _ := strconv.Atoi(m[1])
		edict.Retry.Attempts = attempts
		edict.Retry.Backoff = strings.ToLower(m[2])
		if m[3] != "" {
			if secs, err := strconv.ParseFloat(m[3], 64); err == nil {
				edict.Retry.Interval = time.Duration(secs * float64(time.Second))
			}
		}
		rest = strings.TrimSpace(rest[:len(rest)-len(m[0])])
	}
	if edict.Retry.Interval == 0 {
		edict.Retry.Interval = time.Second
	}

	if m := usingRe.FindStringSubmatch(rest); m != nil {
		edict.Strategy = m[1]
		rest = strings.TrimSpace(rest[:len(rest)-len(m[0])])
	}

	if m := asRe.FindStringSubmatch(rest); m != nil {
		edict.CaptureVar = m[1]
		rest = strings.TrimSpace(rest[:len(rest)-len(m[0])])
	}

	edict.Command = rest
	return edict
}

// VowEdict is a parsed "?? kind: arg1, \"arg two\"" line.
type VowEdict struct {
	Kind string
	Args []string
}

func parseVow(raw string) VowEdict {
	rest := strings.TrimSpace(strings.TrimPrefix(raw, "??"))
	kind, argsStr, hasColon := strings.Cut(rest, ":")
	kind = strings.TrimSpace(kind)
	if !hasColon {
		return VowEdict{Kind: kind}
	}
	return VowEdict{Kind: kind, Args: splitArgs(argsStr)}
}

// splitArgs splits a comma-separated argument list, honoring
// double-quoted segments that may themselves contain commas, and unquotes
// each resulting argument.
func splitArgs(s string) []string {
	var args []string
	var b strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case r == ',' && !inQuotes:
			args = append(args, strings.TrimSpace(unquoteArg(b.String())))
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if trimmed := strings.TrimSpace(b.String()); trimmed != "" {
		args = append(args, unquoteArg(trimmed))
	}
	return args
}

func unquoteArg(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseState splits a "%% key: value" line into its key and value; a
// bare "%% key" (no colon) yields an empty value.
func parseState(raw string) (key, value string) {
	rest := strings.TrimSpace(strings.TrimPrefix(raw, "%%"))
	k, v, hasColon := strings.Cut(rest, ":")
	if !hasColon {
		return strings.TrimSpace(rest), ""
	}
	return strings.TrimSpace(k), strings.TrimSpace(v)
}
