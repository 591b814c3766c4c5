package text

import "strings"

// TrimmedString is a string decomposed into its interior content plus the
// whitespace stripped from each end. LeadSpace + Trimmed + RearSpace always
// reconstructs the original exactly.
type TrimmedString struct {
	Trimmed   string
	LeadSpace string
	RearSpace string
}

// NewTrimmedString decomposes s. A whitespace-only string is carried entirely
// in LeadSpace.
func NewTrimmedString(s string) TrimmedString {
	trimmedLeft := strings.TrimLeft(s, " \t\r\n")
	lead := s[:len(s)-len(trimmedLeft)]
	trimmed := strings.TrimRight(trimmedLeft, " \t\r\n")
	rear := trimmedLeft[len(trimmed):]
	return TrimmedString{
		Trimmed:   trimmed,
		LeadSpace: lead,
		RearSpace: rear,
	}
}

// String reconstructs the original string.
func (t TrimmedString) String() string {
	return t.LeadSpace + t.Trimmed + t.RearSpace
}

// PrefixComponents is the text before the cursor split into a head and a
// tail. Tail holds at most the last TailLineCount non-blank lines plus any
// trailing blank lines; head holds everything earlier. When the whole prefix
// has fewer than TailLineCount non-blank lines, Head equals Tail and Overlap
// holds the untrimmed original, signalling that no real split occurred and
// the two components must not be treated as disjoint.
type PrefixComponents struct {
	Head    TrimmedString
	Tail    TrimmedString
	Overlap string
}

// GetHeadAndTail splits a prefix for prompt construction. The raw head and
// tail concatenate back to the original prefix when a split occurred.
func GetHeadAndTail(prefix string) PrefixComponents {
	lines := strings.Split(prefix, "\n")

	tailStart := -1
	nonBlank := 0
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			nonBlank++
			if nonBlank == TailLineCount {
				tailStart = i
				break
			}
		}
	}

	if tailStart == -1 || tailStart == 0 {
		whole := NewTrimmedString(prefix)
		return PrefixComponents{Head: whole, Tail: whole, Overlap: prefix}
	}

	head := strings.Join(lines[:tailStart], "\n") + "\n"
	tail := strings.Join(lines[tailStart:], "\n")
	return PrefixComponents{
		Head: NewTrimmedString(head),
		Tail: NewTrimmedString(tail),
	}
}

// Indentation measures the leading whitespace of a line. Tabs count as
// tabWidth columns; tabs and spaces may mix.
func Indentation(line string, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = 1
	}
	indent := 0
	for _, r := range line {
		switch r {
		case ' ':
			indent++
		case '\t':
			indent += tabWidth
		default:
			return indent
		}
	}
	return indent
}
