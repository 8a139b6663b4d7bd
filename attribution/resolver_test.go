package attribution

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-copilot/core"
)

type fakeIdentityStore struct {
	bindings map[string]core.IdentityBinding // keyed provider/externalID
	err      error
}

func (f *fakeIdentityStore) Resolve(_ context.Context, provider string, externalID string) (core.IdentityBinding, bool, error) {
	if f.err != nil {
		return core.IdentityBinding{}, false, f.err
	}
	binding, ok := f.bindings[provider+"/"+externalID]
	return binding, ok, nil
}

func (f *fakeIdentityStore) Bind(context.Context, core.BindIdentityInput) (core.IdentityBinding, error) {
	return core.IdentityBinding{}, errors.New("not implemented")
}

func (f *fakeIdentityStore) ListByUser(context.Context, string) ([]core.IdentityBinding, error) {
	return nil, errors.New("not implemented")
}

func activeBinding(userID string) core.IdentityBinding {
	return core.IdentityBinding{UserID: userID, Status: core.IdentityBindingStatusActive}
}

func TestResolve_MentionsResolvedToUsers(t *testing.T) {
	store := &fakeIdentityStore{bindings: map[string]core.IdentityBinding{
		"slack/U123": activeBinding("user-ana"),
		"slack/U456": activeBinding("user-ben"),
		"slack/U999": activeBinding("user-sender"),
	}}
	resolver := New(store)

	msg := core.Message{SourceSystem: "slack", SenderExternalID: "U999", Text: "<@U123> <@U456> can you review?"}
	decisions, err := resolver.Resolve(context.Background(), msg, []string{"U123", "U456", "U777"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(decisions))
	}
	for i, wantUser := range []string{"user-ana", "user-ben"} {
		d := decisions[i]
		if d.Kind != core.AttributionKindResolved {
			t.Fatalf("decision %d: expected resolved kind, got %q", i, d.Kind)
		}
		if d.AssigneeUserID != wantUser || d.OwnerUserID != wantUser {
			t.Fatalf("decision %d: expected owner/assignee %q, got %+v", i, wantUser, d)
		}
		if d.AssignorExternalID != "U999" {
			t.Fatalf("decision %d: expected assignor U999, got %q", i, d.AssignorExternalID)
		}
	}
}

func TestResolve_DuplicateMentionsCollapse(t *testing.T) {
	store := &fakeIdentityStore{bindings: map[string]core.IdentityBinding{
		"slack/U123": activeBinding("user-ana"),
		"slack/ANA2": activeBinding("user-ana"),
	}}
	resolver := New(store)

	msg := core.Message{SourceSystem: "slack", SenderExternalID: "U999"}
	decisions, err := resolver.Resolve(context.Background(), msg, []string{"U123", "ANA2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("expected one decision per resolved user, got %d", len(decisions))
	}
}

func TestResolve_UnresolvedMentionsDelegateToSender(t *testing.T) {
	store := &fakeIdentityStore{bindings: map[string]core.IdentityBinding{
		"slack/U999": activeBinding("user-sender"),
	}}
	resolver := New(store)

	msg := core.Message{SourceSystem: "slack", SenderExternalID: "U999"}
	decisions, err := resolver.Resolve(context.Background(), msg, []string{"UNKNOWN1", "UNKNOWN2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("expected single delegated decision, got %d", len(decisions))
	}
	d := decisions[0]
	if d.Kind != core.AttributionKindDelegated {
		t.Fatalf("expected delegated kind, got %q", d.Kind)
	}
	if d.OwnerUserID != "user-sender" {
		t.Fatalf("expected sender to own the fallback task, got %q", d.OwnerUserID)
	}
	if d.AssigneeExternalID != "UNKNOWN1" {
		t.Fatalf("expected first raw mention kept, got %q", d.AssigneeExternalID)
	}
	if len(d.Tags) != 1 || d.Tags[0] != core.TagDelegated {
		t.Fatalf("expected delegated tag, got %v", d.Tags)
	}
}

func TestResolve_NoMentions(t *testing.T) {
	store := &fakeIdentityStore{bindings: map[string]core.IdentityBinding{
		"slack/U999": activeBinding("user-sender"),
	}}
	resolver := New(store)

	t.Run("delegation phrasing", func(t *testing.T) {
		msg := core.Message{SourceSystem: "slack", SenderExternalID: "U999", Text: "John, can you ping the client?"}
		decisions, err := resolver.Resolve(context.Background(), msg, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(decisions) != 1 || decisions[0].Kind != core.AttributionKindDelegated {
			t.Fatalf("expected delegated decision, got %+v", decisions)
		}
		if decisions[0].AssigneeExternalID != "" || decisions[0].AssigneeUserID != "" {
			t.Fatalf("delegated-by-name decision must not guess an assignee: %+v", decisions[0])
		}
	})

	t.Run("self assignment", func(t *testing.T) {
		msg := core.Message{SourceSystem: "slack", SenderExternalID: "U999", Text: "I'll follow up with finance tomorrow"}
		decisions, err := resolver.Resolve(context.Background(), msg, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(decisions) != 1 || decisions[0].Kind != core.AttributionKindSelfAssigned {
			t.Fatalf("expected self-assigned decision, got %+v", decisions)
		}
		d := decisions[0]
		if d.AssigneeUserID != "user-sender" || d.OwnerUserID != "user-sender" {
			t.Fatalf("expected sender self-assignment, got %+v", d)
		}
		if len(d.Tags) != 1 || d.Tags[0] != core.TagSelfAssigned {
			t.Fatalf("expected self-assigned tag, got %v", d.Tags)
		}
	})
}

func TestResolve_IdentityFailureAborts(t *testing.T) {
	store := &fakeIdentityStore{err: errors.New("db offline")}
	resolver := New(store)

	msg := core.Message{SourceSystem: "slack", SenderExternalID: "U999", Text: "please review"}
	if _, err := resolver.Resolve(context.Background(), msg, []string{"U123"}); err == nil {
		t.Fatalf("expected identity failure to abort attribution")
	}
}

func TestResolve_SupersededBindingIgnored(t *testing.T) {
	store := &fakeIdentityStore{bindings: map[string]core.IdentityBinding{
		"slack/U123": {UserID: "user-old", Status: core.IdentityBindingStatusSuperseded},
		"slack/U999": activeBinding("user-sender"),
	}}
	resolver := New(store)

	msg := core.Message{SourceSystem: "slack", SenderExternalID: "U999"}
	decisions, err := resolver.Resolve(context.Background(), msg, []string{"U123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Kind != core.AttributionKindDelegated {
		t.Fatalf("superseded binding must not resolve, got %+v", decisions)
	}
}

func TestLooksLikeDelegation(t *testing.T) {
	positives := []string{
		"John, can you ping the client?",
		"Maria could you send the invite",
		"O'Brien, would you check the logs?",
		"Tomorrow, can you imagine",
	}
	for _, text := range positives {
		if !LooksLikeDelegation(text) {
			t.Fatalf("expected delegation match for %q", text)
		}
	}

	negatives := []string{
		"I'll follow up with finance tomorrow",
		"can you review this?",
		"john, can you ping the client?",
		"The deploy can wait",
	}
	for _, text := range negatives {
		if LooksLikeDelegation(text) {
			t.Fatalf("expected no delegation match for %q", text)
		}
	}
}
