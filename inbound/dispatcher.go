package inbound

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-copilot/core"
)

const (
	SurfaceWebhook       = "webhook"
	SurfaceCommand       = "command"
	SurfaceEventCallback = "event_callback"
)

// Verifier authenticates a raw delivery (signature check, shared secret)
// before any parsing happens.
type Verifier interface {
	Verify(ctx context.Context, event core.InboundEvent) error
}

type IdempotencyKeyExtractor func(event core.InboundEvent) (string, error)

// Dispatcher routes raw connector deliveries: verify, claim an idempotency
// key against redelivery, parse via the connector handler registered for the
// (source system, surface) pair, then run the pipeline processor. Handler or
// processor failure marks the claim retryable so the connector's redelivery
// gets another attempt.
type Dispatcher struct {
	Verifier   Verifier
	Store      core.ClaimStore
	Processor  core.MessageProcessor
	ExtractKey IdempotencyKeyExtractor
	KeyTTL     time.Duration

	mu       sync.RWMutex
	handlers map[string]core.ConnectorHandler
}

func NewDispatcher(store core.ClaimStore, processor core.MessageProcessor) *Dispatcher {
	return &Dispatcher{
		Store:      store,
		Processor:  processor,
		ExtractKey: DefaultIdempotencyKeyExtractor,
		KeyTTL:     10 * time.Minute,
		handlers:   map[string]core.ConnectorHandler{},
	}
}

func (d *Dispatcher) Register(handler core.ConnectorHandler) error {
	if d == nil {
		return inboundInternal("inbound: dispatcher is nil", nil)
	}
	if handler == nil {
		return inboundBadInput("inbound: handler is nil", nil)
	}
	source := normalizeToken(handler.SourceSystem())
	surface := normalizeToken(handler.Surface())
	if source == "" {
		return inboundBadInput("inbound: handler source system is required", nil)
	}
	if !isSupportedSurface(surface) {
		return inboundBadInput(
			fmt.Sprintf("inbound: unsupported surface %q", surface),
			map[string]any{"surface": surface},
		)
	}
	key := source + ":" + surface
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[key]; exists {
		return inboundError(
			fmt.Sprintf("inbound: handler already registered for %q", key),
			goerrors.CategoryConflict,
			http.StatusConflict,
			"COPILOT_CONFLICT",
			map[string]any{"source_system": source, "surface": surface},
		)
	}
	d.handlers[key] = handler
	return nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, event core.InboundEvent) (core.InboundResult, error) {
	if d == nil {
		return core.InboundResult{}, inboundInternal("inbound: dispatcher is nil", nil)
	}
	event.SourceSystem = normalizeToken(event.SourceSystem)
	event.Surface = normalizeToken(event.Surface)
	if event.SourceSystem == "" {
		return core.InboundResult{}, inboundBadInput("inbound: source system is required", map[string]any{
			"surface": event.Surface,
		})
	}
	if !isSupportedSurface(event.Surface) {
		return core.InboundResult{}, inboundBadInput(
			fmt.Sprintf("inbound: unsupported surface %q", event.Surface),
			map[string]any{"source_system": event.SourceSystem, "surface": event.Surface},
		)
	}

	if d.Verifier != nil {
		if err := d.Verifier.Verify(ctx, event); err != nil {
			return core.InboundResult{
					Accepted:   false,
					StatusCode: http.StatusUnauthorized,
					Metadata: map[string]any{
						"source_system": event.SourceSystem,
						"surface":       event.Surface,
						"rejected":      true,
					},
				}, inboundWrapError(
					err,
					goerrors.CategoryAuth,
					"inbound: event verification failed",
					http.StatusUnauthorized,
					"COPILOT_UNAUTHORIZED",
					map[string]any{"source_system": event.SourceSystem, "surface": event.Surface},
				)
		}
	}

	claimID := ""
	if d.Store != nil {
		extractor := d.ExtractKey
		if extractor == nil {
			extractor = DefaultIdempotencyKeyExtractor
		}
		key, err := extractor(event)
		if err != nil {
			return core.InboundResult{}, inboundWrapError(
				err,
				goerrors.CategoryBadInput,
				"inbound: resolve idempotency key",
				http.StatusBadRequest,
				"COPILOT_BAD_INPUT",
				map[string]any{"source_system": event.SourceSystem, "surface": event.Surface},
			)
		}
		var accepted bool
		claimID, accepted, err = d.Store.Claim(ctx, event.SourceSystem+":"+event.Surface+":"+key, d.keyTTL())
		if err != nil {
			return core.InboundResult{}, inboundWrapError(
				err,
				goerrors.CategoryOperation,
				"inbound: idempotency claim failed",
				http.StatusInternalServerError,
				"COPILOT_OPERATION_FAILED",
				map[string]any{"source_system": event.SourceSystem, "surface": event.Surface, "idempotency": key},
			)
		}
		if !accepted {
			return core.InboundResult{
				Accepted:   true,
				StatusCode: http.StatusOK,
				Metadata: map[string]any{
					"source_system": event.SourceSystem,
					"surface":       event.Surface,
					"deduped":       true,
				},
			}, nil
		}
	}

	handler := d.handlerFor(event.SourceSystem, event.Surface)
	if handler == nil {
		return core.InboundResult{}, inboundError(
			fmt.Sprintf("inbound: no handler registered for %s:%s", event.SourceSystem, event.Surface),
			goerrors.CategoryNotFound,
			http.StatusNotFound,
			"COPILOT_NOT_FOUND",
			map[string]any{"source_system": event.SourceSystem, "surface": event.Surface},
		)
	}

	msg, ok, err := handler.Parse(ctx, event)
	if err != nil {
		return core.InboundResult{}, d.failClaim(ctx, claimID, event, inboundWrapError(
			err,
			goerrors.CategoryOperation,
			"inbound: handler parse failed",
			http.StatusBadGateway,
			"COPILOT_OPERATION_FAILED",
			map[string]any{"source_system": event.SourceSystem, "surface": event.Surface},
		))
	}
	if !ok {
		// Valid delivery, nothing to process: bot echoes, edits, pings.
		if completeErr := d.completeClaim(ctx, claimID, event); completeErr != nil {
			return core.InboundResult{}, completeErr
		}
		return core.InboundResult{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Metadata: map[string]any{
				"source_system": event.SourceSystem,
				"surface":       event.Surface,
				"ignored":       true,
			},
		}, nil
	}

	if d.Processor == nil {
		return core.InboundResult{}, inboundInternal("inbound: processor is not configured", map[string]any{
			"source_system": event.SourceSystem,
		})
	}
	processResult, err := d.Processor.Process(ctx, msg)
	if err != nil {
		return core.InboundResult{}, d.failClaim(ctx, claimID, event, inboundWrapError(
			err,
			goerrors.CategoryOperation,
			"inbound: message processing failed",
			http.StatusBadGateway,
			"COPILOT_OPERATION_FAILED",
			map[string]any{"source_system": event.SourceSystem, "surface": event.Surface},
		))
	}

	if completeErr := d.completeClaim(ctx, claimID, event); completeErr != nil {
		return core.InboundResult{}, completeErr
	}
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Process:    &processResult,
		Metadata: map[string]any{
			"source_system": event.SourceSystem,
			"surface":       event.Surface,
		},
	}, nil
}

func (d *Dispatcher) failClaim(ctx context.Context, claimID string, event core.InboundEvent, cause error) error {
	if d.Store == nil || claimID == "" {
		return cause
	}
	if failErr := d.Store.Fail(ctx, claimID, cause, time.Time{}); failErr != nil {
		return errors.Join(cause, inboundWrapError(
			failErr,
			goerrors.CategoryOperation,
			"inbound: mark idempotency claim failed",
			http.StatusInternalServerError,
			"COPILOT_INTERNAL_ERROR",
			map[string]any{"source_system": event.SourceSystem, "surface": event.Surface, "claim_id": claimID},
		))
	}
	return cause
}

func (d *Dispatcher) completeClaim(ctx context.Context, claimID string, event core.InboundEvent) error {
	if d.Store == nil || claimID == "" {
		return nil
	}
	if err := d.Store.Complete(ctx, claimID); err != nil {
		return inboundWrapError(
			err,
			goerrors.CategoryOperation,
			"inbound: complete idempotency claim",
			http.StatusInternalServerError,
			"COPILOT_OPERATION_FAILED",
			map[string]any{"source_system": event.SourceSystem, "surface": event.Surface, "claim_id": claimID},
		)
	}
	return nil
}

// DefaultIdempotencyKeyExtractor prefers explicit keys, then the vendor's
// delivery identifiers, then matching headers.
func DefaultIdempotencyKeyExtractor(event core.InboundEvent) (string, error) {
	if event.Metadata != nil {
		if value := trimAny(event.Metadata["idempotency_key"]); value != "" {
			return value, nil
		}
		if value := trimAny(event.Metadata["delivery_id"]); value != "" {
			return value, nil
		}
		if value := trimAny(event.Metadata["event_id"]); value != "" {
			return value, nil
		}
	}
	if event.Headers != nil {
		if value := headerValue(event.Headers, "idempotency-key"); value != "" {
			return value, nil
		}
		if value := headerValue(event.Headers, "x-idempotency-key"); value != "" {
			return value, nil
		}
		if value := headerValue(event.Headers, "x-delivery-id"); value != "" {
			return value, nil
		}
	}
	return "", inboundBadInput("inbound: idempotency key is required", map[string]any{
		"source_system": event.SourceSystem,
		"surface":       event.Surface,
	})
}

func (d *Dispatcher) keyTTL() time.Duration {
	if d != nil && d.KeyTTL > 0 {
		return d.KeyTTL
	}
	return 10 * time.Minute
}

func (d *Dispatcher) handlerFor(source string, surface string) core.ConnectorHandler {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[normalizeToken(source)+":"+normalizeToken(surface)]
}

func normalizeToken(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}

func isSupportedSurface(surface string) bool {
	switch normalizeToken(surface) {
	case SurfaceWebhook, SurfaceCommand, SurfaceEventCallback:
		return true
	default:
		return false
	}
}

func trimAny(value any) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func headerValue(headers map[string]string, name string) string {
	for key, value := range headers {
		if strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
