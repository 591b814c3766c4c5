package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	goLang := Lookup("go")
	assert.True(t, goLang.Multiline)
	assert.Equal(t, BraceStyleBraces, goLang.BraceStyle)

	py := Lookup("python")
	assert.True(t, py.Multiline)
	assert.Equal(t, BraceStyleIndent, py.BraceStyle)
}

func TestLookup_Aliases(t *testing.T) {
	assert.Equal(t, "typescript", Lookup("typescriptreact").ID)
	assert.Equal(t, "javascript", Lookup("jsx").ID)
	assert.Equal(t, "cpp", Lookup("C++").ID)
}

func TestLookup_UnknownLanguage(t *testing.T) {
	d := Lookup("cobol")
	assert.False(t, d.Multiline)
	assert.Empty(t, d.ContinuationKeywords)
	assert.Equal(t, "cobol", d.ID)
}

func TestIsContinuationLine(t *testing.T) {
	ts := Lookup("typescript")
	py := Lookup("python")

	cases := []struct {
		d    Descriptor
		line string
		want bool
	}{
		{ts, "} else {", true},
		{ts, "  } catch (err) {", true},
		{ts, "} finally {", true},
		{ts, "else", true},
		{ts, "elsewhere()", false},
		{ts, "return", false},
		{ts, "}", false},
		{py, "elif x > 0:", true},
		{py, "else:", true},
		{py, "except ValueError:", true},
		{py, "exceptional()", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.d.IsContinuationLine(tc.line), "%s: %q", tc.d.ID, tc.line)
	}
}
