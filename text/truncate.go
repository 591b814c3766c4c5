package text

import (
	"strings"

	"ghosttab/lang"
)

// bracketKind indexes the open-bracket depth counters.
type bracketKind int

const (
	bracketBrace bracketKind = iota
	bracketSquare
	bracketParen
	bracketKinds
)

func closerKind(r byte) (bracketKind, bool) {
	switch r {
	case '}':
		return bracketBrace, true
	case ']':
		return bracketSquare, true
	case ')':
		return bracketParen, true
	}
	return 0, false
}

// isLoneCloser reports whether the trimmed line is exactly one closing
// bracket, optionally followed by statement punctuation.
func isLoneCloser(trimmed string) (bracketKind, bool) {
	if trimmed == "" {
		return 0, false
	}
	kind, ok := closerKind(trimmed[0])
	if !ok {
		return 0, false
	}
	for i := 1; i < len(trimmed); i++ {
		if trimmed[i] != ';' && trimmed[i] != ',' {
			return 0, false
		}
	}
	return kind, true
}

// countBrackets accumulates the open-bracket depth contributed by a line.
// String and comment contents are counted too; at completion scale the
// heuristic holds up and matches how indentation is tracked.
func countBrackets(line string, depth *[bracketKinds]int) {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '{':
			depth[bracketBrace]++
		case '}':
			depth[bracketBrace]--
		case '[':
			depth[bracketSquare]++
		case ']':
			depth[bracketSquare]--
		case '(':
			depth[bracketParen]++
		case ')':
			depth[bracketParen]--
		}
	}
}

// TruncateMultiline cuts a multi-line candidate at the first line that falls
// back to or below the indentation of the line containing the cursor. Blank
// lines never terminate. Continuation lines (else/elif/catch clauses per the
// language descriptor) extend the block and are kept whole. A terminator that
// is exactly a lone closing bracket is retained when it closes a bracket
// opened within the emitted region itself; a closer matching an opener the
// surrounding code already carries is left to the suffix.
func TruncateMultiline(completion string, startIndent, tabWidth int, d lang.Descriptor) string {
	lines := strings.Split(completion, "\n")
	if len(lines) < 2 {
		return completion
	}

	var depth [bracketKinds]int
	countBrackets(lines[0], &depth)

	cut := len(lines)
	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		if Indentation(line, tabWidth) <= startIndent && !d.IsContinuationLine(line) {
			trimmed := strings.TrimSpace(line)
			if kind, ok := isLoneCloser(trimmed); ok && depth[kind] > 0 {
				cut = i + 1
			} else {
				cut = i
			}
			break
		}
		countBrackets(line, &depth)
	}

	return strings.Join(lines[:cut], "\n")
}
