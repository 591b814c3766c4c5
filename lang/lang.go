package lang

import "strings"

// BraceStyle describes how a language delimits blocks. Indent-delimited
// languages have no closing bracket to retain during truncation.
type BraceStyle int

const (
	BraceStyleBraces BraceStyle = iota
	BraceStyleIndent
)

// Descriptor is the static per-language configuration consulted by the
// truncation engine and the request builder.
type Descriptor struct {
	ID string
	// Multiline enables multi-line completion mode. Only languages with
	// well-understood brace/indent conventions qualify; everything else is
	// restricted to single-line requests.
	Multiline bool
	// ContinuationKeywords open clauses that extend the enclosing block
	// (e.g. "else", "catch"). Lines starting with one of these are never
	// treated as terminators by the truncation engine.
	ContinuationKeywords []string
	BraceStyle           BraceStyle
}

// IsContinuationLine reports whether the trimmed line begins a clause that
// extends the current block rather than closing it. Brace-style languages
// commonly place the keyword after a closer, as in "} else {", so leading
// closers are skipped before matching.
func (d Descriptor) IsContinuationLine(line string) bool {
	trimmed := strings.TrimLeft(strings.TrimSpace(line), "}])") // "} else {" and friends
	trimmed = strings.TrimSpace(trimmed)
	for _, kw := range d.ContinuationKeywords {
		if trimmed == kw || strings.HasPrefix(trimmed, kw+" ") ||
			strings.HasPrefix(trimmed, kw+":") || strings.HasPrefix(trimmed, kw+"{") ||
			strings.HasPrefix(trimmed, kw+"(") {
			return true
		}
	}
	return false
}

var braceContinuations = []string{"else", "catch", "finally"}

var descriptors = map[string]Descriptor{
	"go": {
		ID:                   "go",
		Multiline:            true,
		ContinuationKeywords: []string{"else", "case", "default"},
		BraceStyle:           BraceStyleBraces,
	},
	"javascript": {
		ID:                   "javascript",
		Multiline:            true,
		ContinuationKeywords: braceContinuations,
		BraceStyle:           BraceStyleBraces,
	},
	"typescript": {
		ID:                   "typescript",
		Multiline:            true,
		ContinuationKeywords: braceContinuations,
		BraceStyle:           BraceStyleBraces,
	},
	"java": {
		ID:                   "java",
		Multiline:            true,
		ContinuationKeywords: braceContinuations,
		BraceStyle:           BraceStyleBraces,
	},
	"c": {
		ID:                   "c",
		Multiline:            true,
		ContinuationKeywords: []string{"else"},
		BraceStyle:           BraceStyleBraces,
	},
	"cpp": {
		ID:                   "cpp",
		Multiline:            true,
		ContinuationKeywords: braceContinuations,
		BraceStyle:           BraceStyleBraces,
	},
	"csharp": {
		ID:                   "csharp",
		Multiline:            true,
		ContinuationKeywords: braceContinuations,
		BraceStyle:           BraceStyleBraces,
	},
	"rust": {
		ID:                   "rust",
		Multiline:            true,
		ContinuationKeywords: []string{"else"},
		BraceStyle:           BraceStyleBraces,
	},
	"python": {
		ID:                   "python",
		Multiline:            true,
		ContinuationKeywords: []string{"elif", "else", "except", "finally"},
		BraceStyle:           BraceStyleIndent,
	},
}

// aliases maps host language identifiers onto canonical descriptor IDs.
var aliases = map[string]string{
	"javascriptreact": "javascript",
	"typescriptreact": "typescript",
	"jsx":             "javascript",
	"tsx":             "typescript",
	"c++":             "cpp",
	"cs":              "csharp",
}

// Lookup returns the descriptor for a language identifier. Unknown languages
// get a zero descriptor: single-line only, no continuation keywords.
func Lookup(languageID string) Descriptor {
	id := strings.ToLower(languageID)
	if canonical, ok := aliases[id]; ok {
		id = canonical
	}
	if d, ok := descriptors[id]; ok {
		return d
	}
	return Descriptor{ID: id}
}
