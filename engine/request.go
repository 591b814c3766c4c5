package engine

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"ghosttab/lang"
	"ghosttab/logger"
	"ghosttab/text"
	"ghosttab/types"
)

// turnDelimiter ends generation when the model starts a new conversation
// turn instead of code.
var turnDelimiter = "\n\n" + string(types.SpeakerHuman) + ":"

// buildParams constructs one request for single-line mode or up to three
// parallel requests with varied sampling for multi-line mode.
func (e *Engine) buildParams(d lang.Descriptor, prefix, suffix string, multiline bool) []*types.CompletionParams {
	messages := e.buildMessages(d, prefix, suffix)

	stop := []string{turnDelimiter, text.ClosingCodeTag}
	maxTokens := e.config.MultiLineMaxTokens
	n := e.config.MultiLineRequests
	if !multiline {
		// Blank-line sequences end single-line requests early. Multi-line
		// mode must be free to cross them.
		stop = append(stop, "\n\n")
		maxTokens = e.config.SingleLineMaxTokens
		n = 1
	}

	params := make([]*types.CompletionParams, 0, n)
	for i := 0; i < n; i++ {
		temperature := e.config.Temperature + 0.2*float64(i)
		if temperature > 1.0 {
			temperature = 1.0
		}
		params = append(params, &types.CompletionParams{
			Model:         e.config.Model,
			Messages:      messages,
			StopSequences: stop,
			MaxTokens:     maxTokens,
			Temperature:   temperature,
			TopK:          e.config.TopK,
		})
	}
	return params
}

// buildMessages assembles the prompt turns. The assistant turn ends with the
// open code tag plus the prefix tail, so the model continues mid-file. When
// GetHeadAndTail reports an overlap the head is omitted from the human turn
// to avoid duplicating content.
func (e *Engine) buildMessages(d lang.Descriptor, prefix, suffix string) []types.Message {
	prefix = tailChars(prefix, e.config.MaxPrefixChars)
	suffix = headChars(suffix, e.config.MaxSuffixChars)

	components := text.GetHeadAndTail(prefix)

	var human strings.Builder
	fmt.Fprintf(&human, "Continue writing the following %s code. Respond only with code, ending with %s.", languageName(d), text.ClosingCodeTag)
	if components.Overlap == "" && components.Head.Trimmed != "" {
		fmt.Fprintf(&human, "\n\nThe file starts with:\n%s%s%s", text.OpeningCodeTag, components.Head.Trimmed, text.ClosingCodeTag)
	}
	if trimmedSuffix := strings.TrimSpace(suffix); trimmedSuffix != "" {
		fmt.Fprintf(&human, "\n\nThe code after the cursor is:\n%s%s%s", text.OpeningCodeTag, trimmedSuffix, text.ClosingCodeTag)
	}

	assistant := text.OpeningCodeTag + components.Tail.String()

	return []types.Message{
		{Speaker: types.SpeakerHuman, Text: human.String()},
		{Speaker: types.SpeakerAssistant, Text: assistant},
	}
}

func languageName(d lang.Descriptor) string {
	if d.ID == "" {
		return "source"
	}
	return d.ID
}

// tailChars keeps the last n bytes of s, starting at a line boundary when
// one falls inside the kept region.
func tailChars(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := s[len(s)-n:]
	if idx := strings.IndexByte(cut, '\n'); idx >= 0 && idx+1 < len(cut) {
		return cut[idx+1:]
	}
	return cut
}

// headChars keeps the first n bytes of s, ending at a line boundary when one
// falls inside the kept region.
func headChars(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := s[:n]
	if idx := strings.LastIndexByte(cut, '\n'); idx > 0 {
		return cut[:idx]
	}
	return cut
}

// fireRequests runs all requests in parallel and joins them. A failed branch
// contributes zero candidates; the others still count.
func (e *Engine) fireRequests(ctx context.Context, t *trigger, paramsList []*types.CompletionParams) []*types.CompletionResponse {
	responses := make([]*types.CompletionResponse, len(paramsList))

	g, gctx := errgroup.WithContext(ctx)
	for i, params := range paramsList {
		g.Go(func() error {
			resp, err := e.client.Complete(gctx, params)
			if err != nil {
				logger.Debug("trigger %s: request %d failed: %v", t.id, i, err)
				return nil
			}
			responses[i] = resp
			return nil
		})
	}
	// Branch errors are swallowed above; Wait only joins.
	_ = g.Wait()
	return responses
}
