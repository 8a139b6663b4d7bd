package attribution

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-copilot/core"
)

// Resolver turns a classified message plus its extracted mentions into
// attribution decisions: who each derived task is for. Rules, in order:
//
//  1. Mentions that resolve to internal users yield one decision per distinct
//     resolved user.
//  2. Mentions that resolve to nobody yield a single delegated decision owned
//     by the sender, keeping the first raw external id as the assignee.
//  3. No mentions: a name-initiated imperative ("Maria, can you ...") is
//     delegated with no assignee; anything else is self-assigned to the
//     sender.
//
// An identity-store failure aborts attribution for the message. Guessing an
// owner on a failed lookup would route someone else's task to the wrong
// inbox.
type Resolver struct {
	identities core.IdentityStore
	logger     core.Logger
}

type Option func(*Resolver)

func WithLogger(logger core.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func New(identities core.IdentityStore, options ...Option) *Resolver {
	r := &Resolver{identities: identities}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	r.logger = glog.Ensure(r.logger)
	return r
}

func (r *Resolver) Resolve(ctx context.Context, msg core.Message, mentions []string) ([]core.AttributionDecision, error) {
	if r == nil || r.identities == nil {
		return nil, fmt.Errorf("attribution: identity store is required")
	}

	sender := strings.TrimSpace(msg.SenderExternalID)
	senderUserID, err := r.lookupUserID(ctx, msg.SourceSystem, sender)
	if err != nil {
		return nil, err
	}

	if len(mentions) > 0 {
		return r.resolveMentions(ctx, msg, mentions, sender, senderUserID)
	}

	if LooksLikeDelegation(msg.Text) {
		return []core.AttributionDecision{{
			Kind:               core.AttributionKindDelegated,
			AssignorExternalID: sender,
			OwnerUserID:        ownerRef(senderUserID, sender),
			Tags:               []string{core.TagDelegated},
		}}, nil
	}

	return []core.AttributionDecision{{
		Kind:               core.AttributionKindSelfAssigned,
		AssignorExternalID: sender,
		AssigneeExternalID: sender,
		AssigneeUserID:     senderUserID,
		OwnerUserID:        ownerRef(senderUserID, sender),
		Tags:               []string{core.TagSelfAssigned},
	}}, nil
}

func (r *Resolver) resolveMentions(
	ctx context.Context,
	msg core.Message,
	mentions []string,
	sender string,
	senderUserID string,
) ([]core.AttributionDecision, error) {
	var decisions []core.AttributionDecision
	seenUsers := map[string]struct{}{}

	for _, externalID := range mentions {
		externalID = strings.TrimSpace(externalID)
		if externalID == "" {
			continue
		}
		userID, err := r.lookupUserID(ctx, msg.SourceSystem, externalID)
		if err != nil {
			return nil, err
		}
		if userID == "" {
			continue
		}
		if _, dup := seenUsers[userID]; dup {
			continue
		}
		seenUsers[userID] = struct{}{}
		decisions = append(decisions, core.AttributionDecision{
			Kind:               core.AttributionKindResolved,
			AssignorExternalID: sender,
			AssigneeExternalID: externalID,
			AssigneeUserID:     userID,
			OwnerUserID:        userID,
		})
	}

	if len(decisions) > 0 {
		return decisions, nil
	}

	r.logger.Info("no mention resolved, delegating to sender",
		"source_system", msg.SourceSystem,
		"mention_count", len(mentions),
	)
	return []core.AttributionDecision{{
		Kind:               core.AttributionKindDelegated,
		AssignorExternalID: sender,
		AssigneeExternalID: mentions[0],
		OwnerUserID:        ownerRef(senderUserID, sender),
		Tags:               []string{core.TagDelegated},
	}}, nil
}

func (r *Resolver) lookupUserID(ctx context.Context, provider string, externalID string) (string, error) {
	if externalID == "" {
		return "", nil
	}
	binding, found, err := r.identities.Resolve(ctx, provider, externalID)
	if err != nil {
		return "", fmt.Errorf("attribution: identity lookup failed for %s/%s: %w", provider, externalID, err)
	}
	if !found || binding.Status != core.IdentityBindingStatusActive {
		return "", nil
	}
	return binding.UserID, nil
}

// ownerRef prefers the internal user id; an unbound sender keeps the task
// addressable by external id until the identity is bound.
func ownerRef(userID string, externalID string) string {
	if userID != "" {
		return userID
	}
	return externalID
}

var _ core.AttributionResolver = (*Resolver)(nil)
