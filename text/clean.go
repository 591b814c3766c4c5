package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// isBadStartRune reports whether r is a spurious leading character models
// occasionally emit (emoji-presentation symbols, zero-width space).
func isBadStartRune(r rune) bool {
	if r == '​' {
		return true
	}
	if unicode.Is(unicode.So, r) {
		return true
	}
	// Supplemental emoji planes are not all category So.
	return r >= 0x1F300 && r <= 0x1FAFF
}

// FixBadCompletionStart strips a leading run of bullet/emoji noise when it is
// immediately followed by whitespace. Legitimate leading indentation does not
// match the pattern and is preserved.
func FixBadCompletionStart(text string) string {
	rest := text
	matched := false
	for rest != "" {
		if strings.HasPrefix(rest, "+ ") || strings.HasPrefix(rest, "- ") || strings.HasPrefix(rest, ". ") {
			rest = rest[2:]
			matched = true
			continue
		}
		r, size := utf8.DecodeRuneInString(rest)
		if isBadStartRune(r) {
			rest = rest[size:]
			matched = true
			continue
		}
		break
	}
	if !matched {
		return text
	}
	stripped := strings.TrimLeft(rest, " \t\r\n")
	if stripped == rest {
		// The run was not followed by whitespace; leave the text alone.
		return text
	}
	return stripped
}

// ExtractFromCodeBlock keeps everything before the closing code tag. A raw
// response that itself contains the opening tag is malformed: the model
// re-opened a code region instead of completing ours, so nothing is salvaged.
// Leading whitespace, including newlines, is semantically significant and
// preserved; only trailing whitespace is trimmed.
func ExtractFromCodeBlock(raw string) string {
	if strings.Contains(raw, OpeningCodeTag) {
		return ""
	}
	body, _, _ := strings.Cut(raw, ClosingCodeTag)
	return strings.TrimRight(body, " \t\r\n")
}

// CollapseDuplicativeWhitespace removes leading spaces/tabs from completion
// when the prefix already ends in one, preventing doubled whitespace at the
// join point.
func CollapseDuplicativeWhitespace(prefix, completion string) string {
	if strings.HasSuffix(prefix, " ") || strings.HasSuffix(prefix, "\t") {
		return strings.TrimLeft(completion, " \t")
	}
	return completion
}

// TrimLeadingWhitespaceUntilNewline removes a leading space/tab run when the
// first line of text is otherwise empty, keeping the newline. Normalizes
// models that echo indentation before an intended blank first line.
func TrimLeadingWhitespaceUntilNewline(text string) string {
	i := 0
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i > 0 && i < len(text) && text[i] == '\n' {
		return text[i:]
	}
	return text
}

// TrimEndOnLastLineIfWhitespaceOnly strips the final line when it is
// whitespace-only, keeping the newline before it.
func TrimEndOnLastLineIfWhitespaceOnly(text string) string {
	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		return text
	}
	last := text[idx+1:]
	if last != "" && strings.TrimSpace(last) == "" {
		return text[:idx+1]
	}
	return text
}
