package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimUntilSuffix_DropsRegeneratedSuffix(t *testing.T) {
	// The model finishes the current statement and then re-emits the two
	// lines that already sit after the cursor.
	prefix := "func load(path string) error {\n\tdata, err := "
	insertion := "os.ReadFile(path)\n\tif err != nil {\n\t\treturn err\n\t}\n\treturn parse(data)\n}"
	suffix := "\n\treturn parse(data)\n}\n"

	got := TrimUntilSuffix(insertion, prefix, suffix)
	assert.Equal(t, "os.ReadFile(path)\n\tif err != nil {\n\t\treturn err\n\t}", got)
}

func TestTrimUntilSuffix_YamlContinuation(t *testing.T) {
	// The candidate completes the current value and then re-emits the key
	// line that already follows the cursor.
	prefix := "      with:\n        path: "
	insertion := "pnpm-store\n        key: ${{ runner.os }}-pnpm-store-${{ hashFiles('**/pnpm-lock.yaml') }}"
	suffix := "\n        key: ${{ runner.os }}-pnpm-store-${{ hashFiles('**/pnpm-lock.yaml') }}\n        restore-keys: |\n"

	got := TrimUntilSuffix(insertion, prefix, suffix)
	assert.Equal(t, "pnpm-store", got)
}

func TestTrimUntilSuffix_FirstLineMatchesViaCurrentLinePrefix(t *testing.T) {
	// The match is checked against currentLinePrefix + first insertion line,
	// so an insertion that merely re-types what follows the cursor vanishes.
	prefix := "\tconsole."
	insertion := "log(value)"
	suffix := "\tconsole.log(value)\n"

	got := TrimUntilSuffix(insertion, prefix, suffix)
	assert.Equal(t, "", got)
}

func TestTrimUntilSuffix_NoSuffix(t *testing.T) {
	insertion := "foo()\nbar()"
	assert.Equal(t, insertion, TrimUntilSuffix(insertion+"  \n", "x", ""))
	assert.Equal(t, insertion, TrimUntilSuffix(insertion, "x", "   \n\t\n"))
}

func TestTrimUntilSuffix_NoMatchKeepsInsertion(t *testing.T) {
	insertion := "a := 1\nb := 2"
	got := TrimUntilSuffix(insertion, "", "\nreturn a + b\n")
	assert.Equal(t, insertion, got)
}

func TestTrimUntilSuffix_BlankLinesNeverMatch(t *testing.T) {
	// A blank insertion line must not "match" a suffix whose window starts
	// with whitespace.
	insertion := "x := 1\n\ny := 2"
	got := TrimUntilSuffix(insertion, "", "\t\nz := 3\n")
	assert.Equal(t, insertion, got)
}

func TestTrimUntilSuffix_WindowOnlyComparesPrefixOfLongLines(t *testing.T) {
	// Only the leading whitespace plus the first SuffixMatchWindow content
	// characters need to agree; divergent tails beyond the window still match.
	insertion := "short()\n\tsomeVeryLongCall(argumentOne)"
	suffix := "\n\tsomeVeryLongCall(argumentTwo)\n"

	got := TrimUntilSuffix(insertion, "", suffix)
	assert.Equal(t, "short()", got)
}
