package mention

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-copilot/core"
)

// Extractor pulls external user ids out of chat-style message text. It
// understands angle-bracket mentions (`<@U123>` and `<@U123|display>`) and
// bracketed app mentions (`@[user-id]`). Mentions inside inline code spans
// are ignored; code snippets routinely quote other people's handles.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

var (
	angleMentionRe   = regexp.MustCompile(`<@([A-Za-z0-9._-]+)(?:\|[^>]*)?>`)
	bracketMentionRe = regexp.MustCompile(`@\[([A-Za-z0-9._-]+)\]`)
	codeSpanRe       = regexp.MustCompile("`[^`]*`")
	codeFenceRe      = regexp.MustCompile("(?s)```.*?```")
)

func (e *Extractor) Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Fences first so their backticks do not pair up with inline spans.
	scrubbed := codeFenceRe.ReplaceAllString(text, " ")
	scrubbed = codeSpanRe.ReplaceAllString(scrubbed, " ")

	var ids []string
	seen := map[string]struct{}{}
	appendID := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, match := range angleMentionRe.FindAllStringSubmatch(scrubbed, -1) {
		appendID(match[1])
	}
	for _, match := range bracketMentionRe.FindAllStringSubmatch(scrubbed, -1) {
		appendID(match[1])
	}
	return ids
}

// Strip removes mention tokens from text, collapsing the whitespace they
// leave behind. Used when deriving task titles from message text.
func Strip(text string) string {
	out := angleMentionRe.ReplaceAllString(text, " ")
	out = bracketMentionRe.ReplaceAllString(out, " ")
	return strings.Join(strings.Fields(out), " ")
}

var _ core.MentionExtractor = (*Extractor)(nil)
