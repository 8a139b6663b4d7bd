package assemble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-copilot/core"
)

type stubTaskStore struct {
	focus   core.Task
	tasks   []core.Task
	getErr  error
	listErr error
}

func (s *stubTaskStore) Create(context.Context, core.CreateTaskInput) (core.Task, error) {
	return core.Task{}, errors.New("not implemented")
}

func (s *stubTaskStore) Get(context.Context, string) (core.Task, error) {
	if s.getErr != nil {
		return core.Task{}, s.getErr
	}
	return s.focus, nil
}

func (s *stubTaskStore) GetByDedupKey(context.Context, string) (core.Task, bool, error) {
	return core.Task{}, false, nil
}

func (s *stubTaskStore) Update(context.Context, string, core.UpdateTaskInput) (core.Task, error) {
	return core.Task{}, errors.New("not implemented")
}

func (s *stubTaskStore) ListByOwner(context.Context, string, core.TaskFilter) ([]core.Task, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.tasks, nil
}

type stubMeetingSource struct {
	meetings []core.Meeting
	err      error
}

func (s stubMeetingSource) RecentMeetings(context.Context, string, int) ([]core.Meeting, error) {
	return s.meetings, s.err
}

type stubRepoSource struct {
	repos []core.RepoIndex
	err   error
}

func (s stubRepoSource) IndexedRepos(context.Context, string, int) ([]core.RepoIndex, error) {
	return s.repos, s.err
}

func TestAssemble_TaskScopeRendersAllSections(t *testing.T) {
	tasks := &stubTaskStore{
		focus: core.Task{ID: "task-1", Title: "Review payment API", Status: core.TaskStatusInProgress, Priority: core.TaskPriorityHigh, Description: "endpoint audit"},
		tasks: []core.Task{
			{Title: "Review payment API", Status: core.TaskStatusInProgress, Priority: core.TaskPriorityHigh},
			{Title: "Fix login bug", Status: core.TaskStatusTodo, Priority: core.TaskPriorityMedium},
		},
	}
	assembler := New(tasks,
		WithMeetingSource(stubMeetingSource{meetings: []core.Meeting{
			{Title: "Sprint sync", StartsAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), Attendees: []string{"ana", "ben"}},
		}}),
		WithRepoSource(stubRepoSource{repos: []core.RepoIndex{
			{Name: "payments", FileCount: 412, PrimaryRef: "main"},
		}}),
	)

	doc, err := assembler.Assemble(context.Background(), "user-ana", core.ScopeKey{WorkflowType: "task", WorkflowID: "task-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"## Current task", "Review payment API", "## Recent meetings", "Sprint sync", "## Open tasks", "Fix login bug", "## Indexed repositories", "payments"} {
		if !strings.Contains(doc.Body, want) {
			t.Fatalf("expected body to contain %q:\n%s", want, doc.Body)
		}
	}
	if doc.ItemCounts["meetings"] != 1 || doc.ItemCounts["tasks"] != 2 || doc.ItemCounts["repos"] != 1 || doc.ItemCounts["focus"] != 1 {
		t.Fatalf("unexpected item counts: %v", doc.ItemCounts)
	}
	if doc.Truncated {
		t.Fatalf("small document must not be truncated")
	}
}

func TestAssemble_CategoryCapsApply(t *testing.T) {
	var meetings []core.Meeting
	for i := 0; i < 20; i++ {
		meetings = append(meetings, core.Meeting{Title: fmt.Sprintf("meeting-%d", i)})
	}
	assembler := New(&stubTaskStore{},
		WithMeetingSource(stubMeetingSource{meetings: meetings}),
		WithConfig(core.AssemblerConfig{MaxMeetings: 3, MaxTasks: 10, MaxRepos: 5, RuneBudget: 8192}),
	)

	doc, err := assembler.Assemble(context.Background(), "user-ana", core.ScopeKey{WorkflowType: "user", WorkflowID: "user-ana"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ItemCounts["meetings"] != 3 {
		t.Fatalf("expected meeting cap of 3, got %d", doc.ItemCounts["meetings"])
	}
	if strings.Contains(doc.Body, "meeting-3") {
		t.Fatalf("expected meetings beyond the cap to be dropped:\n%s", doc.Body)
	}
}

func TestAssemble_RuneBudgetTruncates(t *testing.T) {
	tasks := &stubTaskStore{tasks: []core.Task{{Title: strings.Repeat("x", 500), Status: core.TaskStatusTodo, Priority: core.TaskPriorityLow}}}
	assembler := New(tasks, WithConfig(core.AssemblerConfig{MaxTasks: 10, RuneBudget: 64}))

	doc, err := assembler.Assemble(context.Background(), "user-ana", core.ScopeKey{WorkflowType: "user", WorkflowID: "user-ana"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Truncated {
		t.Fatalf("expected truncation flag")
	}
	if got := len([]rune(doc.Body)); got != 64 {
		t.Fatalf("expected body capped at 64 runes, got %d", got)
	}
}

func TestAssemble_SourceFailureDegrades(t *testing.T) {
	tasks := &stubTaskStore{
		tasks: []core.Task{{Title: "Fix login bug", Status: core.TaskStatusTodo, Priority: core.TaskPriorityMedium}},
	}
	assembler := New(tasks,
		WithMeetingSource(stubMeetingSource{err: errors.New("calendar offline")}),
		WithRepoSource(stubRepoSource{err: errors.New("indexer offline")}),
	)

	doc, err := assembler.Assemble(context.Background(), "user-ana", core.ScopeKey{WorkflowType: "team", WorkflowID: "team-1"})
	if err != nil {
		t.Fatalf("source failure must not fail assembly: %v", err)
	}
	if strings.Contains(doc.Body, "## Recent meetings") || strings.Contains(doc.Body, "## Indexed repositories") {
		t.Fatalf("failed sections must be omitted:\n%s", doc.Body)
	}
	if !strings.Contains(doc.Body, "Fix login bug") {
		t.Fatalf("healthy sections must survive:\n%s", doc.Body)
	}
}

func TestAssemble_InvalidScope(t *testing.T) {
	assembler := New(&stubTaskStore{})

	if _, err := assembler.Assemble(context.Background(), "user-ana", core.ScopeKey{WorkflowType: "project", WorkflowID: "p"}); !errors.Is(err, core.ErrInvalidWorkflowType) {
		t.Fatalf("expected invalid workflow type error, got: %v", err)
	}
}
