package engine

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghosttab/lang"
	"ghosttab/types"
)

func TestProvide_SingleLine(t *testing.T) {
	te := newTestEngine(t, Config{Model: "test-model"})
	te.client.respond = respondWith("world\"")

	doc := testDoc("plaintext", "greeting = \"", "")
	pos := types.Position{Line: 0, Character: 12}

	items, err := te.ProvideInlineCompletionItems(context.Background(), doc, pos, invokeCtx())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "world\"", items[0].InsertText)
	assert.Equal(t, pos, items[0].Range.Start)
	assert.Equal(t, pos, items[0].Range.End)

	// Unknown languages get exactly one conservative request.
	require.Equal(t, 1, te.client.callCount())
	params := te.client.call(0)
	assert.Equal(t, "test-model", params.Model)
	assert.Equal(t, 50, params.MaxTokens)
	assert.InDelta(t, 0.2, params.Temperature, 1e-9)
	assert.Contains(t, params.StopSequences, "\n\n")
	assert.Contains(t, params.StopSequences, "\n\nHuman:")
}

func TestProvide_RangeCoversTrailingSpecialChars(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = respondWith("value)")

	doc := testDoc("plaintext", "result = compute(", ");\n")
	pos := types.Position{Line: 3, Character: 17}

	items, err := te.ProvideInlineCompletionItems(context.Background(), doc, pos, invokeCtx())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.Position{Line: 3, Character: 17}, items[0].Range.Start)
	assert.Equal(t, types.Position{Line: 3, Character: 19}, items[0].Range.End)
}

func TestProvide_SuppressedBySuggestionWidget(t *testing.T) {
	te := newTestEngine(t, Config{})

	icc := invokeCtx()
	icc.SelectedCompletionInfo = &types.SelectedCompletionInfo{Text: "widgetEntry"}

	items, err := te.ProvideInlineCompletionItems(context.Background(), testDoc("go", "x", ""), types.Position{}, icc)
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Equal(t, 0, te.client.callCount())
}

func TestProvide_SuppressedMidIdentifier(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = respondWith("r()")

	doc := testDoc("go", "foo.ba", "")

	// Automatic trigger mid-identifier on a quiet document: suppressed.
	items, err := te.ProvideInlineCompletionItems(context.Background(), doc, types.Position{}, automaticCtx())
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Equal(t, 0, te.client.callCount())

	// Explicit invocation is always allowed.
	items, err = te.ProvideInlineCompletionItems(context.Background(), doc, types.Position{}, invokeCtx())
	require.NoError(t, err)
	assert.NotEmpty(t, items)
	assert.Equal(t, 1, te.client.callCount())
}

func TestProvide_MidIdentifierAllowedWhileActivelyEditing(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = respondWith("r()")

	doc := testDoc("go", "foo.ba", "")
	te.history.RecordChange(doc.URI(), "foo.b", "foo.ba")

	items, err := te.ProvideInlineCompletionItems(context.Background(), doc, types.Position{}, automaticCtx())
	require.NoError(t, err)
	assert.NotEmpty(t, items)
	assert.Equal(t, 1, te.client.callCount())
}

func TestProvide_MidIdentifierAllowedAfterAcceptance(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = respondWith("r()")

	doc := testDoc("go", "foo.ba", "")
	te.history.RecordAcceptance(doc.URI())

	items, err := te.ProvideInlineCompletionItems(context.Background(), doc, types.Position{}, automaticCtx())
	require.NoError(t, err)
	assert.NotEmpty(t, items)
	assert.Equal(t, 1, te.client.callCount())
}

func TestProvide_MidIdentifierAllowedWhenConfiguredEager(t *testing.T) {
	te := newTestEngine(t, Config{TriggerMoreEagerly: true})
	te.client.respond = respondWith("r()")

	items, err := te.ProvideInlineCompletionItems(context.Background(), testDoc("go", "foo.ba", ""), types.Position{}, automaticCtx())
	require.NoError(t, err)
	assert.NotEmpty(t, items)
}

func TestProvide_SuppressedByTrailingText(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = respondWith("x")

	// Real content after the cursor on the same line.
	items, err := te.ProvideInlineCompletionItems(context.Background(), testDoc("go", "if ", "cond {"), types.Position{}, invokeCtx())
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Equal(t, 0, te.client.callCount())

	// Content on later lines does not suppress.
	items, err = te.ProvideInlineCompletionItems(context.Background(), testDoc("go", "x := ", "\nreturn x"), types.Position{}, invokeCtx())
	require.NoError(t, err)
	assert.NotEmpty(t, items)
}

func TestProvide_CacheShortCircuit(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.cache.Add("prefix", "\n}\n", "req-1", []string{"cached()"})

	items, err := te.ProvideInlineCompletionItems(context.Background(), testDoc("go", "prefix", "\n}\n"), types.Position{}, invokeCtx())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "cached()", items[0].InsertText)
	assert.Equal(t, 0, te.client.callCount(), "cache hit must not fire requests")
}

func TestProvide_CacheSynthesis(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.cache.Add("console.", "", "req-1", []string{"log('Hello, world!');"})

	doc := testDoc("javascript", "console.log(", "")
	items, err := te.ProvideInlineCompletionItems(context.Background(), doc, types.Position{Line: 0, Character: 12}, invokeCtx())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "'Hello, world!');", items[0].InsertText)
	assert.Equal(t, 0, te.client.callCount())
}

func TestProvide_MultilineFiresParallelRequests(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = func(params *types.CompletionParams) (*types.CompletionResponse, error) {
		switch int(math.Round(params.Temperature * 10)) {
		case 2:
			return &types.CompletionResponse{Completion: "\n\tshort()"}, nil
		case 4:
			return &types.CompletionResponse{Completion: "\n\ta := 1\n\tb := 2\n\tc := 3\n\td := 4"}, nil
		case 6:
			return &types.CompletionResponse{Completion: "\n\tother()"}, nil
		}
		return nil, errors.New("unexpected temperature")
	}

	doc := testDoc("go", "func main() {", "\n}\n")
	items, err := te.ProvideInlineCompletionItems(context.Background(), doc, types.Position{Line: 0, Character: 13}, invokeCtx())
	require.NoError(t, err)

	require.Equal(t, 3, te.client.callCount())
	var temps []float64
	for i := 0; i < 3; i++ {
		params := te.client.call(i)
		temps = append(temps, params.Temperature)
		assert.Equal(t, 256, params.MaxTokens)
		assert.NotContains(t, params.StopSequences, "\n\n", "multi-line requests must cross blank lines")
	}
	sort.Float64s(temps)
	assert.InDelta(t, 0.2, temps[0], 1e-9)
	assert.InDelta(t, 0.4, temps[1], 1e-9)
	assert.InDelta(t, 0.6, temps[2], 1e-9)

	// Most lines first; ties keep request order.
	require.Len(t, items, 3)
	assert.Equal(t, "\n\ta := 1\n\tb := 2\n\tc := 3\n\td := 4", items[0].InsertText)
	assert.Equal(t, "\n\tshort()", items[1].InsertText)
	assert.Equal(t, "\n\tother()", items[2].InsertText)
}

func TestProvide_MultilineRequiresBlockStart(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = respondWith("x")

	// Mid-expression in an allow-listed language: single-line mode.
	_, err := te.ProvideInlineCompletionItems(context.Background(), testDoc("go", "x := foo(1, ", ""), types.Position{}, invokeCtx())
	require.NoError(t, err)
	assert.Equal(t, 1, te.client.callCount())
}

func TestProvide_MultilineOnBlankLineAfterOpener(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = respondWith("\t\treturn nil")

	// Cursor on an indented blank line right after a block opener.
	_, err := te.ProvideInlineCompletionItems(context.Background(), testDoc("go", "func run() error {\n\t", ""), types.Position{}, invokeCtx())
	require.NoError(t, err)
	assert.Equal(t, 3, te.client.callCount())
}

func TestProvide_DedupesIdenticalCandidates(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = respondWith("\n\treturn true")

	doc := testDoc("go", "func ok() bool {", "\n}\n")
	items, err := te.ProvideInlineCompletionItems(context.Background(), doc, types.Position{Line: 0, Character: 16}, invokeCtx())
	require.NoError(t, err)

	require.Equal(t, 3, te.client.callCount())
	require.Len(t, items, 1)
	assert.Equal(t, "\n\treturn true", items[0].InsertText)
}

func TestProvide_AllRequestsFail(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = func(*types.CompletionParams) (*types.CompletionResponse, error) {
		return nil, errors.New("upstream unavailable")
	}

	items, err := te.ProvideInlineCompletionItems(context.Background(), testDoc("go", "x := ", ""), types.Position{}, invokeCtx())
	require.NoError(t, err, "request failures degrade to an empty result")
	assert.Empty(t, items)

	_, ok := te.cache.Get("x := ", "")
	assert.False(t, ok, "failed triggers must not populate the cache")
}

func TestProvide_CachesProcessedCompletions(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = respondWith("done()")

	doc := testDoc("plaintext", "run = ", "")
	_, err := te.ProvideInlineCompletionItems(context.Background(), doc, types.Position{}, invokeCtx())
	require.NoError(t, err)
	require.Equal(t, 1, te.client.callCount())

	// The identical context now resolves from the cache.
	items, err := te.ProvideInlineCompletionItems(context.Background(), doc, types.Position{}, invokeCtx())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "done()", items[0].InsertText)
	assert.Equal(t, 1, te.client.callCount())
}

func TestProvide_NewTriggerSupersedesStalledRequest(t *testing.T) {
	blocking := newBlockingClient()
	te := newTestEngineWithClient(t, blocking, Config{})

	var wg sync.WaitGroup
	var stalledItems []types.InlineCompletionItem
	var stalledErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		stalledItems, stalledErr = te.ProvideInlineCompletionItems(
			context.Background(), testDoc("go", "first := ", ""), types.Position{}, invokeCtx())
	}()
	<-blocking.started

	// The next trigger must not wait for the stalled one. Its context is
	// cached, so it resolves without touching the client.
	te.cache.Add("second := ", "", "req-2", []string{"ready()"})
	items, err := te.ProvideInlineCompletionItems(
		context.Background(), testDoc("go", "second := ", ""), types.Position{}, invokeCtx())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ready()", items[0].InsertText)

	wg.Wait()
	require.NoError(t, stalledErr)
	assert.Empty(t, stalledItems, "superseded trigger must not surface results")

	_, ok := te.cache.Get("first := ", "")
	assert.False(t, ok, "canceled trigger must not populate the cache")
}

func TestProvide_CanceledContext(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.client.respond = respondWith("late()")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := te.ProvideInlineCompletionItems(ctx, testDoc("go", "x := ", ""), types.Position{}, invokeCtx())
	require.NoError(t, err)
	assert.Empty(t, items)

	_, ok := te.cache.Get("x := ", "")
	assert.False(t, ok)
}

func TestEndsInIdentifier(t *testing.T) {
	assert.True(t, endsInIdentifier("foo"))
	assert.True(t, endsInIdentifier("foo1"))
	assert.True(t, endsInIdentifier("foo_"))
	assert.True(t, endsInIdentifier("über"))
	assert.False(t, endsInIdentifier("foo."))
	assert.False(t, endsInIdentifier("foo("))
	assert.False(t, endsInIdentifier("foo "))
	assert.False(t, endsInIdentifier(""))
}

func TestOnlySpecialChars(t *testing.T) {
	assert.True(t, onlySpecialChars(");"))
	assert.True(t, onlySpecialChars("]}"))
	assert.True(t, onlySpecialChars("\");"))
	assert.False(t, onlySpecialChars("cond {"))
	assert.False(t, onlySpecialChars("x"))
}

func TestMultilineEligible(t *testing.T) {
	e := New(&mockClient{}, nil, nil, Config{})

	cases := []struct {
		name     string
		language string
		prefix   string
		suffix   string
		want     bool
	}{
		{"brace opener", "go", "func main() {", "", true},
		{"paren opener", "typescript", "register(", "", true},
		{"arrow opener", "typescript", "const f = () =>", "", true},
		{"colon opener", "python", "def run():", "", true},
		{"colon in brace language", "go", "case x:", "", false},
		{"mid expression", "go", "x := foo(1, 2)", "", false},
		{"blank line after opener", "go", "if ok {\n\t", "", true},
		{"trailing same-line content", "go", "func main() {", "x", false},
		{"unknown language", "brainfuck", "loop {", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := lang.Lookup(tc.language)
			assert.Equal(t, tc.want, e.multilineEligible(d, tc.prefix, tc.suffix))
		})
	}
}

func TestCurrentLineHelpers(t *testing.T) {
	assert.Equal(t, "bar", currentLinePrefix("foo\nbar"))
	assert.Equal(t, "foo", currentLinePrefix("foo"))
	assert.Equal(t, "", currentLinePrefix("foo\n"))

	assert.Equal(t, "bar", currentLineSuffix("bar\nbaz"))
	assert.Equal(t, "", currentLineSuffix("\nbaz"))
	assert.Equal(t, "bar", currentLineSuffix("bar"))

	assert.Equal(t, "func main() {", lastNonBlankLineBefore("func main() {\n\t"))
	assert.Equal(t, "a", lastNonBlankLineBefore("a\n\n\t\n"))
	assert.Equal(t, "", lastNonBlankLineBefore("no newline"))
}

func TestStateString(t *testing.T) {
	for s := stateIdle; s <= stateDone; s++ {
		assert.NotEqual(t, "unknown", s.String())
	}
	assert.NotEmpty(t, strings.TrimSpace(stateRequesting.String()))
}
