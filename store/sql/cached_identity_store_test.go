package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-copilot/core"
)

type stubIdentityStore struct {
	binding    core.IdentityBinding
	found      bool
	resolveErr error
	resolves   int
	binds      int
}

func (s *stubIdentityStore) Resolve(context.Context, string, string) (core.IdentityBinding, bool, error) {
	s.resolves++
	if s.resolveErr != nil {
		return core.IdentityBinding{}, false, s.resolveErr
	}
	return s.binding, s.found, nil
}

func (s *stubIdentityStore) Bind(_ context.Context, in core.BindIdentityInput) (core.IdentityBinding, error) {
	s.binds++
	s.binding = core.IdentityBinding{
		ID:         "bind-1",
		Provider:   in.Provider,
		ExternalID: in.ExternalID,
		UserID:     in.UserID,
		Status:     core.IdentityBindingStatusActive,
	}
	s.found = true
	return s.binding, nil
}

func (s *stubIdentityStore) ListByUser(context.Context, string) ([]core.IdentityBinding, error) {
	return []core.IdentityBinding{s.binding}, nil
}

func newTestIdentityCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestIdentityBindingCacheKey_Contract(t *testing.T) {
	key, err := IdentityBindingCacheKey("Slack", "U 123")
	if err != nil {
		t.Fatalf("build cache key: %v", err)
	}
	const expected = "go-copilot::identity_binding::v1::slack::U%20123"
	if key != expected {
		t.Fatalf("unexpected cache key contract: got %q want %q", key, expected)
	}
}

func TestCachedIdentityStore_CachesResolvesAndInvalidatesOnBind(t *testing.T) {
	ctx := context.Background()
	base := &stubIdentityStore{
		binding: core.IdentityBinding{
			ID:         "bind-0",
			Provider:   "slack",
			ExternalID: "U123",
			UserID:     "user-1",
			Status:     core.IdentityBindingStatusActive,
		},
		found: true,
	}
	store, err := NewCachedIdentityStore(base, newTestIdentityCacheService(t))
	if err != nil {
		t.Fatalf("new cached identity store: %v", err)
	}

	for i := 0; i < 3; i++ {
		binding, found, resolveErr := store.Resolve(ctx, "slack", "U123")
		if resolveErr != nil {
			t.Fatalf("resolve: %v", resolveErr)
		}
		if !found || binding.UserID != "user-1" {
			t.Fatalf("unexpected resolution %+v found=%v", binding, found)
		}
	}
	if base.resolves != 1 {
		t.Fatalf("expected single base resolve, got %d", base.resolves)
	}

	if _, err := store.Bind(ctx, core.BindIdentityInput{
		Provider:   "slack",
		ExternalID: "U123",
		UserID:     "user-2",
		Force:      true,
	}); err != nil {
		t.Fatalf("bind: %v", err)
	}

	binding, found, err := store.Resolve(ctx, "slack", "U123")
	if err != nil {
		t.Fatalf("resolve after bind: %v", err)
	}
	if !found || binding.UserID != "user-2" {
		t.Fatalf("expected rebound user served after invalidation, got %+v", binding)
	}
	if base.resolves != 2 {
		t.Fatalf("expected cache invalidation to hit base again, got %d resolves", base.resolves)
	}
}

func TestCachedIdentityStore_PropagatesBaseErrors(t *testing.T) {
	baseErr := errors.New("identity backend down")
	base := &stubIdentityStore{resolveErr: baseErr}
	store, err := NewCachedIdentityStore(base, newTestIdentityCacheService(t))
	if err != nil {
		t.Fatalf("new cached identity store: %v", err)
	}

	if _, _, err := store.Resolve(context.Background(), "slack", "U404"); !errors.Is(err, baseErr) {
		t.Fatalf("expected base error propagation, got %v", err)
	}
}
