package engine

import (
	"strings"

	"ghosttab/types"
)

// Document is the read surface the host exposes for a text document.
type Document interface {
	URI() string
	LanguageID() string
	// Prefix returns the document text before the position.
	Prefix(pos types.Position) string
	// Suffix returns the document text after the position.
	Suffix(pos types.Position) string
}

// StringDocument is an in-memory Document, used by the daemon protocol and
// in tests.
type StringDocument struct {
	DocURI     string
	Language   string
	PrefixText string
	SuffixText string
}

func (d *StringDocument) URI() string                    { return d.DocURI }
func (d *StringDocument) LanguageID() string             { return d.Language }
func (d *StringDocument) Prefix(_ types.Position) string { return d.PrefixText }
func (d *StringDocument) Suffix(_ types.Position) string { return d.SuffixText }

// currentLinePrefix returns the content of the cursor's line before the
// cursor.
func currentLinePrefix(prefix string) string {
	idx := strings.LastIndexByte(prefix, '\n')
	return prefix[idx+1:]
}

// currentLineSuffix returns the content of the cursor's line after the
// cursor.
func currentLineSuffix(suffix string) string {
	line, _, _ := strings.Cut(suffix, "\n")
	return line
}

// lastNonBlankLineBefore returns the last non-blank line of the prefix above
// the cursor's own line.
func lastNonBlankLineBefore(prefix string) string {
	idx := strings.LastIndexByte(prefix, '\n')
	if idx < 0 {
		return ""
	}
	lines := strings.Split(prefix[:idx], "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}
