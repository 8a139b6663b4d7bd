package copilot

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-copilot/core"
)

type hooksStubHandler struct {
	source  string
	surface string
}

func (h hooksStubHandler) SourceSystem() string { return h.source }
func (h hooksStubHandler) Surface() string      { return h.surface }

func (h hooksStubHandler) Parse(context.Context, core.InboundEvent) (core.Message, bool, error) {
	return core.Message{}, false, nil
}

type recordingRegistrar struct {
	registered []string
	failOn     string
}

func (r *recordingRegistrar) Register(handler core.ConnectorHandler) error {
	key := handler.SourceSystem() + ":" + handler.Surface()
	if r.failOn != "" && key == r.failOn {
		return fmt.Errorf("registrar failure for %s", key)
	}
	r.registered = append(r.registered, key)
	return nil
}

func TestExtensionHooks_ConnectorPackValidation(t *testing.T) {
	hooks := NewExtensionHooks()

	if err := hooks.RegisterConnectorPack(ConnectorPack{}); err == nil {
		t.Fatalf("expected error for unnamed pack")
	}
	if err := hooks.RegisterConnectorPack(ConnectorPack{Name: "empty"}); err == nil {
		t.Fatalf("expected error for pack without handlers")
	}

	pack := ConnectorPack{
		Name:     "slack",
		Handlers: []core.ConnectorHandler{hooksStubHandler{source: "slack", surface: "event_callback"}},
	}
	if err := hooks.RegisterConnectorPack(pack); err != nil {
		t.Fatalf("register pack: %v", err)
	}
	if err := hooks.RegisterConnectorPack(pack); err == nil {
		t.Fatalf("expected duplicate pack rejection")
	}
}

func TestExtensionHooks_ApplyConnectorPacksInNameOrder(t *testing.T) {
	hooks := NewExtensionHooks()
	packs := []ConnectorPack{
		{
			Name:     "teams",
			Handlers: []core.ConnectorHandler{hooksStubHandler{source: "teams", surface: "webhook"}},
		},
		{
			Name:     "slack",
			Handlers: []core.ConnectorHandler{hooksStubHandler{source: "slack", surface: "event_callback"}},
		},
	}
	for _, pack := range packs {
		if err := hooks.RegisterConnectorPack(pack); err != nil {
			t.Fatalf("register pack %q: %v", pack.Name, err)
		}
	}

	registrar := &recordingRegistrar{}
	if err := hooks.ApplyConnectorPacks(registrar); err != nil {
		t.Fatalf("apply packs: %v", err)
	}
	if len(registrar.registered) != 2 {
		t.Fatalf("expected two registrations, got %d", len(registrar.registered))
	}
	if registrar.registered[0] != "slack:event_callback" || registrar.registered[1] != "teams:webhook" {
		t.Fatalf("expected packs applied in name order, got %v", registrar.registered)
	}

	failing := &recordingRegistrar{failOn: "slack:event_callback"}
	if err := hooks.ApplyConnectorPacks(failing); err == nil {
		t.Fatalf("expected registrar failure to bubble")
	}

	if err := hooks.ApplyConnectorPacks(nil); err == nil {
		t.Fatalf("expected error for nil registrar")
	}
}

func TestExtensionHooks_CommandQueryBundles(t *testing.T) {
	hooks := NewExtensionHooks()

	if err := hooks.RegisterCommandQueryBundle("", nil); err == nil {
		t.Fatalf("expected error for unnamed bundle")
	}
	if err := hooks.RegisterCommandQueryBundle("tasks", nil); err == nil {
		t.Fatalf("expected error for nil factory")
	}

	if err := hooks.RegisterCommandQueryBundle("tasks", func(service CommandQueryService) (any, error) {
		return NewFacade(service)
	}); err != nil {
		t.Fatalf("register bundle: %v", err)
	}
	if err := hooks.RegisterCommandQueryBundle("tasks", func(CommandQueryService) (any, error) {
		return nil, nil
	}); err == nil {
		t.Fatalf("expected duplicate bundle rejection")
	}

	names := hooks.BundleNames()
	if len(names) != 1 || names[0] != "tasks" {
		t.Fatalf("unexpected bundle names %v", names)
	}

	service := &facadeStubService{}
	bundles, err := hooks.BuildCommandQueryBundles(service)
	if err != nil {
		t.Fatalf("build bundles: %v", err)
	}
	if _, ok := bundles["tasks"].(*Facade); !ok {
		t.Fatalf("expected facade bundle, got %T", bundles["tasks"])
	}

	if _, err := hooks.BuildCommandQueryBundles(nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}
