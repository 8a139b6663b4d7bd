package assemble

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-copilot/core"
)

// Assembler renders a bounded prompt-context document for a chat scope:
// recent meetings, open tasks, and indexed-repo stats. Every category is
// capped, the whole document honors a rune budget, and a failing source
// drops its section instead of failing assembly.
type Assembler struct {
	tasks    core.TaskStore
	meetings core.MeetingSource
	repos    core.RepoSource
	config   core.AssemblerConfig
	logger   core.Logger
}

type Option func(*Assembler)

func WithMeetingSource(source core.MeetingSource) Option {
	return func(a *Assembler) {
		a.meetings = source
	}
}

func WithRepoSource(source core.RepoSource) Option {
	return func(a *Assembler) {
		a.repos = source
	}
}

func WithConfig(cfg core.AssemblerConfig) Option {
	return func(a *Assembler) {
		a.config = cfg
	}
}

func WithLogger(logger core.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

func New(tasks core.TaskStore, options ...Option) *Assembler {
	a := &Assembler{
		tasks: tasks,
		config: core.AssemblerConfig{
			MaxMeetings: 5,
			MaxTasks:    10,
			MaxRepos:    5,
			RuneBudget:  8192,
		},
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	a.logger = glog.Ensure(a.logger)
	return a
}

func (a *Assembler) Assemble(ctx context.Context, userID string, scope core.ScopeKey) (core.ContextDocument, error) {
	if a == nil {
		return core.ContextDocument{}, fmt.Errorf("assemble: assembler is nil")
	}
	if err := scope.Validate(); err != nil {
		return core.ContextDocument{}, err
	}

	var sections []string
	counts := map[string]int{}

	if section, count := a.focusSection(ctx, scope); section != "" {
		sections = append(sections, section)
		counts["focus"] = count
	}
	if section, count := a.meetingSection(ctx, userID); section != "" {
		sections = append(sections, section)
		counts["meetings"] = count
	}
	if section, count := a.taskSection(ctx, userID); section != "" {
		sections = append(sections, section)
		counts["tasks"] = count
	}
	if section, count := a.repoSection(ctx, userID); section != "" {
		sections = append(sections, section)
		counts["repos"] = count
	}

	body := strings.Join(sections, "\n\n")
	truncated := false
	if budget := a.config.RuneBudget; budget > 0 {
		runes := []rune(body)
		if len(runes) > budget {
			body = string(runes[:budget])
			truncated = true
		}
	}

	return core.ContextDocument{
		Scope:      scope,
		Body:       body,
		ItemCounts: counts,
		Truncated:  truncated,
	}, nil
}

// focusSection pins the scoped task itself at the top of a task-scoped
// document. Team and user scopes have no single focus item.
func (a *Assembler) focusSection(ctx context.Context, scope core.ScopeKey) (string, int) {
	if core.WorkflowType(strings.ToLower(scope.WorkflowType)) != core.WorkflowTypeTask || a.tasks == nil {
		return "", 0
	}
	task, err := a.tasks.Get(ctx, scope.WorkflowID)
	if err != nil {
		a.logger.Error("focus task unavailable", "task_id", scope.WorkflowID, "error", err.Error())
		return "", 0
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Current task\n%s [%s/%s]", task.Title, task.Status, task.Priority)
	if strings.TrimSpace(task.Description) != "" {
		fmt.Fprintf(&b, "\n%s", strings.TrimSpace(task.Description))
	}
	return b.String(), 1
}

func (a *Assembler) meetingSection(ctx context.Context, userID string) (string, int) {
	if a.meetings == nil || a.config.MaxMeetings <= 0 {
		return "", 0
	}
	meetings, err := a.meetings.RecentMeetings(ctx, userID, a.config.MaxMeetings)
	if err != nil {
		a.logger.Error("meeting source unavailable", "user_id", userID, "error", err.Error())
		return "", 0
	}
	if len(meetings) > a.config.MaxMeetings {
		meetings = meetings[:a.config.MaxMeetings]
	}
	if len(meetings) == 0 {
		return "", 0
	}
	var b strings.Builder
	b.WriteString("## Recent meetings")
	for _, meeting := range meetings {
		fmt.Fprintf(&b, "\n- %s (%s, %d attendees)",
			meeting.Title,
			meeting.StartsAt.Format("2006-01-02 15:04"),
			len(meeting.Attendees),
		)
	}
	return b.String(), len(meetings)
}

func (a *Assembler) taskSection(ctx context.Context, userID string) (string, int) {
	if a.tasks == nil || a.config.MaxTasks <= 0 {
		return "", 0
	}
	tasks, err := a.tasks.ListByOwner(ctx, userID, core.TaskFilter{Limit: a.config.MaxTasks})
	if err != nil {
		a.logger.Error("task source unavailable", "user_id", userID, "error", err.Error())
		return "", 0
	}
	if len(tasks) > a.config.MaxTasks {
		tasks = tasks[:a.config.MaxTasks]
	}
	if len(tasks) == 0 {
		return "", 0
	}
	var b strings.Builder
	b.WriteString("## Open tasks")
	for _, task := range tasks {
		fmt.Fprintf(&b, "\n- %s [%s/%s]", task.Title, task.Status, task.Priority)
	}
	return b.String(), len(tasks)
}

func (a *Assembler) repoSection(ctx context.Context, userID string) (string, int) {
	if a.repos == nil || a.config.MaxRepos <= 0 {
		return "", 0
	}
	repos, err := a.repos.IndexedRepos(ctx, userID, a.config.MaxRepos)
	if err != nil {
		a.logger.Error("repo source unavailable", "user_id", userID, "error", err.Error())
		return "", 0
	}
	if len(repos) > a.config.MaxRepos {
		repos = repos[:a.config.MaxRepos]
	}
	if len(repos) == 0 {
		return "", 0
	}
	var b strings.Builder
	b.WriteString("## Indexed repositories")
	for _, repo := range repos {
		fmt.Fprintf(&b, "\n- %s (%d files, %s)", repo.Name, repo.FileCount, repo.PrimaryRef)
	}
	return b.String(), len(repos)
}

var _ core.ContextAssembler = (*Assembler)(nil)
