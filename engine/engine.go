package engine

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"ghosttab/cache"
	"ghosttab/history"
	"ghosttab/lang"
	"ghosttab/logger"
	"ghosttab/types"
)

// Client performs the actual model call. Network retry/backoff is its
// responsibility, not the engine's.
type Client interface {
	Complete(ctx context.Context, params *types.CompletionParams) (*types.CompletionResponse, error)
}

type state int

const (
	stateIdle state = iota
	stateDeciding
	stateShortCircuit
	stateRequesting
	stateProcessing
	stateDone
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateDeciding:
		return "deciding"
	case stateShortCircuit:
		return "short-circuit"
	case stateRequesting:
		return "requesting"
	case stateProcessing:
		return "processing"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Config holds the engine's tuning knobs.
type Config struct {
	Model               string
	Temperature         float64
	TopK                int
	SingleLineMaxTokens int
	MultiLineMaxTokens  int
	// MultiLineRequests is the number of parallel sampled requests in
	// multi-line mode, capped at 3.
	MultiLineRequests int
	TabWidth          int
	// TriggerMoreEagerly permits mid-identifier triggering regardless of
	// edit history.
	TriggerMoreEagerly bool
	// EagerWindow is how recent an edit or accepted completion must be for
	// a document to count as actively edited, which also unlocks
	// mid-identifier triggering.
	EagerWindow time.Duration
	// MaxPrefixChars / MaxSuffixChars bound the prompt context.
	MaxPrefixChars int
	MaxSuffixChars int
}

func (c *Config) applyDefaults() {
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.SingleLineMaxTokens == 0 {
		c.SingleLineMaxTokens = 50
	}
	if c.MultiLineMaxTokens == 0 {
		c.MultiLineMaxTokens = 256
	}
	if c.MultiLineRequests <= 0 {
		c.MultiLineRequests = 3
	}
	if c.MultiLineRequests > 3 {
		c.MultiLineRequests = 3
	}
	if c.TabWidth <= 0 {
		c.TabWidth = 4
	}
	if c.EagerWindow == 0 {
		c.EagerWindow = 2 * time.Second
	}
	if c.MaxPrefixChars == 0 {
		c.MaxPrefixChars = 8000
	}
	if c.MaxSuffixChars == 0 {
		c.MaxSuffixChars = 2000
	}
}

// Engine orchestrates one completion trigger at a time: it consults the
// cache, fires model requests, and shapes raw responses into ordered
// insertion candidates.
type Engine struct {
	client  Client
	cache   *cache.Cache
	history *history.Tracker
	config  Config

	mu             sync.Mutex
	generation     uint64
	cancelInflight context.CancelFunc
}

// New creates an engine. The cache and tracker are owned by the caller and
// shared across triggers for the lifetime of the editing session.
func New(client Client, c *cache.Cache, h *history.Tracker, config Config) *Engine {
	config.applyDefaults()
	return &Engine{
		client:  client,
		cache:   c,
		history: h,
		config:  config,
	}
}

// Close cancels any in-flight trigger.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelInflight != nil {
		e.cancelInflight()
		e.cancelInflight = nil
	}
}

// trigger is the per-invocation state machine.
type trigger struct {
	id    string
	state state
}

func (t *trigger) to(s state) {
	logger.Debug("trigger %s: %s -> %s", t.id, t.state, s)
	t.state = s
}

// ProvideInlineCompletionItems runs one trigger through the pipeline and
// returns ordered insertion candidates. Recoverable conditions (failed or
// malformed requests, candidates emptied by trimming) yield an empty result,
// never an error.
func (e *Engine) ProvideInlineCompletionItems(ctx context.Context, doc Document, pos types.Position, icc types.InlineCompletionContext) ([]types.InlineCompletionItem, error) {
	t := &trigger{id: uuid.NewString()[:8], state: stateIdle}

	// A newer trigger supersedes any in-flight one: stale results must not
	// become observable.
	e.mu.Lock()
	e.generation++
	gen := e.generation
	if e.cancelInflight != nil {
		e.cancelInflight()
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancelInflight = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		if e.generation == gen {
			e.cancelInflight = nil
		}
		e.mu.Unlock()
		cancel()
	}()

	prefix := doc.Prefix(pos)
	suffix := doc.Suffix(pos)

	t.to(stateDeciding)
	if reason, suppressed := e.shouldSuppress(doc, icc, prefix, suffix); suppressed {
		logger.Debug("trigger %s: suppressed: %s", t.id, reason)
		t.to(stateIdle)
		return nil, nil
	}

	if hit, ok := e.cache.Get(prefix, suffix); ok {
		t.to(stateShortCircuit)
		logger.Debug("trigger %s: cache hit (request %s, synthesized=%v)", t.id, hit.RequestID, hit.Synthesized)
		items := e.buildItems(hit.Completions, pos, suffix)
		t.to(stateDone)
		return items, nil
	}

	t.to(stateRequesting)
	d := lang.Lookup(doc.LanguageID())
	multiline := e.multilineEligible(d, prefix, suffix)
	requestID := uuid.NewString()
	paramsList := e.buildParams(d, prefix, suffix, multiline)
	responses := e.fireRequests(ctx, t, paramsList)

	if ctx.Err() != nil {
		logger.Debug("trigger %s: canceled before processing", t.id)
		return nil, nil
	}

	t.to(stateProcessing)
	completions := e.process(responses, prefix, suffix, multiline, d)
	completions = rankAndDedupe(completions)

	if len(completions) > 0 {
		e.cache.Add(prefix, suffix, requestID, completions)
	}

	items := e.buildItems(completions, pos, suffix)
	t.to(stateDone)
	return items, nil
}

// shouldSuppress applies the Deciding-state rejection rules.
func (e *Engine) shouldSuppress(doc Document, icc types.InlineCompletionContext, prefix, suffix string) (string, bool) {
	if icc.SelectedCompletionInfo != nil {
		return "suggestion widget selection active", true
	}

	clp := currentLinePrefix(prefix)
	cls := currentLineSuffix(suffix)

	if icc.TriggerKind == types.TriggerAutomatic && endsInIdentifier(clp) && !e.eager(doc.URI()) {
		return "cursor mid-identifier", true
	}

	if trailing := strings.TrimSpace(cls); trailing != "" && !onlySpecialChars(trailing) {
		return "text after cursor on the same line", true
	}

	return "", false
}

// eager reports whether mid-identifier triggering is currently allowed:
// configured always-on, the document is under active edit, or a completion
// was just accepted there and the user is likely continuing the thought.
func (e *Engine) eager(uri string) bool {
	if e.config.TriggerMoreEagerly {
		return true
	}
	if e.history == nil {
		return false
	}
	if e.history.LastEditWithin(uri, e.config.EagerWindow) {
		return true
	}
	if at, ok := e.history.LastAcceptance(uri); ok && time.Since(at) <= e.config.EagerWindow {
		return true
	}
	return false
}

func endsInIdentifier(linePrefix string) bool {
	r, size := utf8.DecodeLastRuneInString(linePrefix)
	if size == 0 {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// onlySpecialChars reports whether the trailing same-line content is only a
// closing/special-tag sequence, which does not suppress triggering.
func onlySpecialChars(s string) bool {
	for _, r := range s {
		switch r {
		case ')', ']', '}', '>', '"', '\'', '`', ';', ',', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// multilineEligible decides whether this trigger may request multi-line
// completions: the language must be allow-listed and the cursor must sit at
// the start of a new block with nothing after it on the line.
func (e *Engine) multilineEligible(d lang.Descriptor, prefix, suffix string) bool {
	if !d.Multiline {
		return false
	}
	if strings.TrimSpace(currentLineSuffix(suffix)) != "" {
		return false
	}
	line := strings.TrimSpace(currentLinePrefix(prefix))
	if line == "" {
		line = strings.TrimSpace(lastNonBlankLineBefore(prefix))
	}
	return opensBlock(line, d)
}

func opensBlock(trimmedLine string, d lang.Descriptor) bool {
	if trimmedLine == "" {
		return false
	}
	if d.BraceStyle == lang.BraceStyleIndent {
		return strings.HasSuffix(trimmedLine, ":")
	}
	return strings.HasSuffix(trimmedLine, "{") ||
		strings.HasSuffix(trimmedLine, "(") ||
		strings.HasSuffix(trimmedLine, "=>")
}

// buildItems turns final insertion texts into host-facing items. The range
// spans from the cursor to the end of the current line so accepted text
// merges with trailing same-line content.
func (e *Engine) buildItems(completions []string, pos types.Position, suffix string) []types.InlineCompletionItem {
	if len(completions) == 0 {
		return nil
	}
	end := types.Position{
		Line:      pos.Line,
		Character: pos.Character + len(currentLineSuffix(suffix)),
	}
	items := make([]types.InlineCompletionItem, 0, len(completions))
	for _, c := range completions {
		items = append(items, types.InlineCompletionItem{
			InsertText: c,
			Range:      types.Range{Start: pos, End: end},
		})
	}
	return items
}
