package pipeline

import (
	"strings"

	"github.com/goliatone/go-copilot/mention"
)

const maxTitleRunes = 120

var leadingFillers = []string{
	"hey",
	"hi",
	"please",
	"can you",
	"could you",
	"will you",
	"would you",
	"can someone",
	"could someone",
}

// TitleFromMessage derives a short task title from message text: mention
// tokens removed, leading pleasantries and modal phrasing stripped, result
// capped at a readable length.
func TitleFromMessage(text string) string {
	title := mention.Strip(text)

	for changed := true; changed; {
		changed = false
		trimmed := strings.TrimLeft(title, " ,.!-")
		lowered := strings.ToLower(trimmed)
		for _, filler := range leadingFillers {
			if strings.HasPrefix(lowered, filler+" ") || strings.HasPrefix(lowered, filler+",") {
				trimmed = trimmed[len(filler):]
				changed = true
				break
			}
		}
		title = strings.TrimLeft(trimmed, " ,.!-")
	}

	if title == "" {
		return "Untitled task"
	}
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = strings.TrimSpace(string(runes[:maxTitleRunes])) + "…"
	}
	return title
}
