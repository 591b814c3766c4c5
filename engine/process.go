package engine

import (
	"sort"
	"strings"

	"ghosttab/lang"
	"ghosttab/logger"
	"ghosttab/text"
	"ghosttab/types"
)

// process runs the text-shaping chain over each raw response and collects
// the surviving insertion texts in request order.
func (e *Engine) process(responses []*types.CompletionResponse, prefix, suffix string, multiline bool, d lang.Descriptor) []string {
	var completions []string
	for i, resp := range responses {
		if resp == nil {
			continue
		}
		insertion, ok := e.processOne(resp.Completion, prefix, suffix, multiline, d)
		if !ok {
			logger.Debug("response %d dropped after processing", i)
			continue
		}
		completions = append(completions, insertion)
	}
	return completions
}

func (e *Engine) processOne(raw, prefix, suffix string, multiline bool, d lang.Descriptor) (string, bool) {
	extracted := text.ExtractFromCodeBlock(raw)
	if extracted == "" {
		if strings.Contains(raw, text.OpeningCodeTag) {
			logger.Debug("invalid response: raw completion contains the opening code tag")
		}
		return "", false
	}

	insertion := text.FixBadCompletionStart(extracted)
	insertion = text.TrimLeadingWhitespaceUntilNewline(insertion)
	insertion = text.TrimUntilSuffix(insertion, prefix, suffix)

	if multiline {
		startIndent := text.Indentation(currentLinePrefix(prefix), e.config.TabWidth)
		insertion = text.TruncateMultiline(insertion, startIndent, e.config.TabWidth, d)
		insertion = text.TrimEndOnLastLineIfWhitespaceOnly(insertion)
	}

	insertion = text.CollapseDuplicativeWhitespace(prefix, insertion)

	if strings.TrimSpace(insertion) == "" {
		return "", false
	}
	return insertion, true
}

// rankAndDedupe orders candidates by descending line count, stable on ties
// by request order, then collapses identical insertion texts keeping the
// first occurrence.
func rankAndDedupe(completions []string) []string {
	if len(completions) == 0 {
		return completions
	}

	ranked := make([]string, len(completions))
	copy(ranked, completions)
	sort.SliceStable(ranked, func(i, j int) bool {
		return strings.Count(ranked[i], "\n") > strings.Count(ranked[j], "\n")
	})

	seen := make(map[string]struct{}, len(ranked))
	unique := ranked[:0]
	for _, c := range ranked {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}
