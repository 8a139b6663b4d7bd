package ai

import (
	"context"
	"sync"

	"github.com/goliatone/go-copilot/core"
)

// Mock scripts collaborator results for tests and offline development.
// Results are consumed in order; the last one repeats once the script runs
// out.
type Mock struct {
	mu       sync.Mutex
	script   []ScriptedResult
	position int
	Requests []core.CompletionRequest
}

type ScriptedResult struct {
	Result core.CompletionResult
	Err    error
}

func NewMock(script ...ScriptedResult) *Mock {
	return &Mock{script: script}
}

func (m *Mock) Complete(_ context.Context, req core.CompletionRequest) (core.CompletionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if len(m.script) == 0 {
		return core.CompletionResult{ReplyText: "ok"}, nil
	}
	entry := m.script[m.position]
	if m.position < len(m.script)-1 {
		m.position++
	}
	return entry.Result, entry.Err
}

var _ core.Collaborator = (*Mock)(nil)
