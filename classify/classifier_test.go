package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-copilot/core"
)

type scriptedCollaborator struct {
	result core.CompletionResult
	err    error
	panics bool
	gotReq core.CompletionRequest
}

func (s *scriptedCollaborator) Complete(_ context.Context, req core.CompletionRequest) (core.CompletionResult, error) {
	s.gotReq = req
	if s.panics {
		panic("collaborator exploded")
	}
	return s.result, s.err
}

func TestClassify_CollaboratorJSONPath(t *testing.T) {
	collab := &scriptedCollaborator{
		result: core.CompletionResult{
			ReplyText: "```json\n{\"is_work_request\": true, \"confidence\": 0.92, \"urgency\": \"high\", \"work_type\": \"code_review\", \"reason\": \"direct ask\"}\n```",
		},
	}
	classifier := New(WithCollaborator(collab), WithModel("triage-small"), WithTimeout(time.Second))

	analysis := classifier.Classify(context.Background(), core.Message{Text: "can you review the payment API today?"})
	if analysis.Err != nil {
		t.Fatalf("expected no analysis error, got: %v", analysis.Err)
	}
	if !analysis.IsWorkRequest {
		t.Fatalf("expected work request")
	}
	if analysis.Confidence != 0.92 {
		t.Fatalf("expected confidence 0.92, got %v", analysis.Confidence)
	}
	if analysis.Urgency != core.TaskPriorityHigh {
		t.Fatalf("expected high urgency, got %q", analysis.Urgency)
	}
	if analysis.WorkType != "code_review" {
		t.Fatalf("expected code_review work type, got %q", analysis.WorkType)
	}
	if collab.gotReq.UserMessage == "" {
		t.Fatalf("expected message text forwarded to the collaborator")
	}
}

func TestClassify_CollaboratorFailureIsData(t *testing.T) {
	collab := &scriptedCollaborator{err: errors.New("upstream 503")}
	classifier := New(WithCollaborator(collab))

	analysis := classifier.Classify(context.Background(), core.Message{Text: "please deploy the fix"})
	if analysis.IsWorkRequest {
		t.Fatalf("failed classification must not flag a work request")
	}
	if analysis.Err == nil {
		t.Fatalf("expected failure recorded on analysis")
	}
}

func TestClassify_MalformedReplyIsData(t *testing.T) {
	collab := &scriptedCollaborator{result: core.CompletionResult{ReplyText: "sure thing, on it!"}}
	classifier := New(WithCollaborator(collab))

	analysis := classifier.Classify(context.Background(), core.Message{Text: "please deploy the fix"})
	if analysis.IsWorkRequest {
		t.Fatalf("unparseable reply must not flag a work request")
	}
	if analysis.Err == nil {
		t.Fatalf("expected parse failure recorded on analysis")
	}
}

func TestClassify_PanicRecovered(t *testing.T) {
	classifier := New(WithCollaborator(&scriptedCollaborator{panics: true}))

	analysis := classifier.Classify(context.Background(), core.Message{Text: "fix the build"})
	if analysis.IsWorkRequest {
		t.Fatalf("panicked classification must not flag a work request")
	}
	if analysis.Err == nil {
		t.Fatalf("expected panic recorded on analysis")
	}
}

func TestClassify_EmptyText(t *testing.T) {
	classifier := New()

	analysis := classifier.Classify(context.Background(), core.Message{Text: "   "})
	if analysis.IsWorkRequest || analysis.Err != nil {
		t.Fatalf("empty text should be a quiet non-request, got %+v", analysis)
	}
}

func TestHeuristic(t *testing.T) {
	cases := []struct {
		name        string
		text        string
		wantRequest bool
		wantUrgency core.Urgency
	}{
		{"direct ask", "can you review the payment API today?", true, core.TaskPriorityHigh},
		{"polite ask", "please prepare the onboarding doc this week", true, core.TaskPriorityMedium},
		{"urgent ask", "fix prod asap", true, core.TaskPriorityCritical},
		{"status chatter", "the release went fine yesterday", false, core.TaskPriorityLow},
		{"relaxed ask", "take a look whenever", true, core.TaskPriorityLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analysis := Heuristic(tc.text)
			if analysis.IsWorkRequest != tc.wantRequest {
				t.Fatalf("IsWorkRequest = %v, want %v", analysis.IsWorkRequest, tc.wantRequest)
			}
			if analysis.Urgency != tc.wantUrgency {
				t.Fatalf("Urgency = %q, want %q", analysis.Urgency, tc.wantUrgency)
			}
			if tc.wantRequest && analysis.Confidence < 0.5 {
				t.Fatalf("expected confident positive, got %v", analysis.Confidence)
			}
		})
	}
}
