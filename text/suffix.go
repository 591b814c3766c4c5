package text

import "strings"

// firstNonBlankLine returns the first line of s with non-whitespace content,
// or "" if there is none.
func firstNonBlankLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// matchWindow returns the line's leading whitespace plus its first
// SuffixMatchWindow content characters. Comparing windows instead of whole
// lines tolerates divergent line endings while still catching regenerated
// suffix content.
func matchWindow(line string) string {
	content := strings.TrimLeft(line, " \t")
	ws := len(line) - len(content)
	end := ws + SuffixMatchWindow
	if end > len(line) {
		end = len(line)
	}
	return line[:end]
}

// TrimUntilSuffix drops the remainder of an insertion once one of its lines
// re-generates content that already exists after the cursor. The first
// insertion line is conceptually prefixed with the current line's pre-cursor
// content so columns align with the suffix.
func TrimUntilSuffix(insertion, prefix, suffix string) string {
	insertion = strings.TrimRight(insertion, " \t\r\n")

	suffixLine := firstNonBlankLine(suffix)
	if suffixLine == "" {
		return insertion
	}
	suffixWindow := matchWindow(suffixLine)

	lastNewline := strings.LastIndexByte(prefix, '\n')
	currentLinePrefix := prefix[lastNewline+1:]

	lines := strings.Split(insertion, "\n")
	for i, line := range lines {
		if i == 0 {
			line = currentLinePrefix + line
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(suffixWindow, matchWindow(line)) {
			return strings.Join(lines[:i], "\n")
		}
	}
	return insertion
}
