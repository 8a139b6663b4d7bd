package classify

import (
	"strings"

	"github.com/goliatone/go-copilot/core"
)

var requestPhrases = []string{
	"can you",
	"could you",
	"will you",
	"would you",
	"please",
	"need you to",
	"needs to be",
	"make sure",
	"don't forget",
	"follow up",
	"take a look",
	"review",
	"fix",
	"investigate",
	"deploy",
	"update the",
	"prepare",
	"schedule",
	"remind me",
	"todo",
}

var urgencyMarkers = []struct {
	phrase  string
	urgency core.Urgency
}{
	{"asap", core.TaskPriorityCritical},
	{"immediately", core.TaskPriorityCritical},
	{"right away", core.TaskPriorityCritical},
	{"urgent", core.TaskPriorityHigh},
	{"critical", core.TaskPriorityCritical},
	{"blocking", core.TaskPriorityHigh},
	{"today", core.TaskPriorityHigh},
	{"eod", core.TaskPriorityHigh},
	{"end of day", core.TaskPriorityHigh},
	{"tomorrow", core.TaskPriorityMedium},
	{"this week", core.TaskPriorityMedium},
	{"whenever", core.TaskPriorityLow},
	{"no rush", core.TaskPriorityLow},
}

// Heuristic is the collaborator-free classification path: phrase matching
// over lowercased text. It is intentionally shallow; the collaborator path
// exists for everything this cannot see.
func Heuristic(text string) core.WorkRequestAnalysis {
	lowered := strings.ToLower(text)

	matched := 0
	first := ""
	for _, phrase := range requestPhrases {
		if strings.Contains(lowered, phrase) {
			if matched == 0 {
				first = phrase
			}
			matched++
		}
	}
	if matched == 0 {
		return core.WorkRequestAnalysis{
			Confidence: 0.2,
			Urgency:    core.TaskPriorityLow,
			Reason:     "no request phrasing detected",
		}
	}

	confidence := 0.55 + 0.1*float64(matched-1)
	if confidence > 0.9 {
		confidence = 0.9
	}

	urgency := core.TaskPriorityMedium
	for _, marker := range urgencyMarkers {
		if strings.Contains(lowered, marker.phrase) {
			urgency = marker.urgency
			break
		}
	}

	return core.WorkRequestAnalysis{
		IsWorkRequest: true,
		Confidence:    confidence,
		Urgency:       urgency,
		WorkType:      "general",
		Reason:        "matched request phrasing: " + first,
	}
}
