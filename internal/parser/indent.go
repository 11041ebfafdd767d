package parser

import (
	"fmt"
	"strings"
)

// leadingIndent returns the number of leading whitespace columns (tabs
// count as 1 column each, matching the rest of the pipeline's indent
// comparisons) and an error if the line mixes tabs and spaces in its
// leading whitespace.
func leadingIndent(raw string) (int, error) {
	n := 0
	sawSpace, sawTab := false, false
	for _, r := range raw {
		switch r {
		case ' ':
			sawSpace = true
			n++
		case '\t':
			sawTab = true
			n++
		default:
			if sawSpace && sawTab {
				return 0, fmt.Errorf("mixed tabs and spaces in indentation")
			}
			return n, nil
		}
	}
	return n, nil
}

// blockConsumer scans a raw indented block starting the line after an
// opening statement. A block ends at the first line whose indent is <= the
// opening indent and which is not blank/comment, or at any Gnostic barrier
// line regardless of indent.
type blockConsumer struct {
	lines []string
}

// consumeIndentedBlock gathers lines[from:] until termination, dedenting
// each kept line by its common minimum indent. Blank lines at the end of
// the block are not part of its content. Returns the joined content and the
// index of the first line after the block.
func (c *blockConsumer) consumeIndentedBlock(from, parentIndent int) (string, int) {
	var kept []string
	i := from
	for i < len(c.lines) {
		raw := c.lines[i]
		trimmed := strings.TrimSpace(raw)

		if trimmed == "" {
			kept = append(kept, "")
			i++
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			i++
			continue
		}
		if isGnosticBarrier(trimmed) {
			break
		}
		indent, err := leadingIndent(raw)
		if err != nil || indent <= parentIndent {
			break
		}
		kept = append(kept, raw)
		i++
	}
	for len(kept) > 0 && kept[len(kept)-1] == "" {
		kept = kept[:len(kept)-1]
	}
	return dedent(kept), i
}

// consumeExplicitBlock gathers lines until a line equal (after trimming)
// to delimiter, which is consumed but not included in the content.
func (c *blockConsumer) consumeExplicitBlock(from int, delimiter string) (string, int) {
	var kept []string
	i := from
	for i < len(c.lines) {
		if strings.TrimSpace(c.lines[i]) == delimiter {
			return dedent(kept), i + 1
		}
		kept = append(kept, c.lines[i])
		i++
	}
	return dedent(kept), i
}

// dedent strips the common leading whitespace of every non-blank line.
func dedent(lines []string) string {
	min := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n, _ := leadingIndent(l)
		if min == -1 || n < min {
			min = n
		}
	}
	if min <= 0 {
		return strings.Join(lines, "\n")
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= min {
			out[i] = l[min:]
		} else {
			out[i] = strings.TrimLeft(l, " \t")
		}
	}
	return strings.Join(out, "\n")
}
