package pipeline

import (
	"context"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-copilot/core"
)

// Processor runs the per-message flow: extract mentions, classify, resolve
// attribution, materialize tasks. Classification failure quietly drops the
// message as not-a-work-request; attribution failure aborts this message
// with an error; materialization failure surfaces to the caller so the
// delivery can be retried.
type Processor struct {
	mentions            core.MentionExtractor
	classifier          core.Classifier
	resolver            core.AttributionResolver
	materializer        core.TaskMaterializer
	confidenceThreshold float64
	logger              core.Logger
}

type ProcessorOption func(*Processor)

func WithConfidenceThreshold(threshold float64) ProcessorOption {
	return func(p *Processor) {
		if threshold >= 0 && threshold <= 1 {
			p.confidenceThreshold = threshold
		}
	}
}

func WithProcessorLogger(logger core.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

func NewProcessor(
	mentions core.MentionExtractor,
	classifier core.Classifier,
	resolver core.AttributionResolver,
	materializer core.TaskMaterializer,
	options ...ProcessorOption,
) *Processor {
	p := &Processor{
		mentions:            mentions,
		classifier:          classifier,
		resolver:            resolver,
		materializer:        materializer,
		confidenceThreshold: 0.5,
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	p.logger = glog.Ensure(p.logger)
	return p
}

func (p *Processor) Process(ctx context.Context, msg core.Message) (core.ProcessResult, error) {
	if p == nil || p.classifier == nil || p.materializer == nil {
		return core.ProcessResult{}, fmt.Errorf("pipeline: processor is not fully wired")
	}

	var mentions []string
	if p.mentions != nil {
		mentions = p.mentions.Extract(msg.Text)
	}

	analysis := p.classifier.Classify(ctx, msg)
	if analysis.Err != nil {
		p.logger.Error("classification failed, dropping message",
			"source_system", msg.SourceSystem,
			"channel_id", msg.ChannelID,
			"error", analysis.Err.Error(),
		)
		return core.ProcessResult{Outcome: core.ProcessOutcomeNotWorkRequest, Analysis: analysis}, nil
	}
	if !analysis.IsWorkRequest || analysis.Confidence < p.confidenceThreshold {
		return core.ProcessResult{Outcome: core.ProcessOutcomeNotWorkRequest, Analysis: analysis}, nil
	}

	if p.resolver == nil {
		return core.ProcessResult{}, fmt.Errorf("pipeline: attribution resolver is required for work requests")
	}
	decisions, err := p.resolver.Resolve(ctx, msg, mentions)
	if err != nil {
		p.logger.Error("attribution dropped",
			"source_system", msg.SourceSystem,
			"channel_id", msg.ChannelID,
			"error", err.Error(),
		)
		return core.ProcessResult{}, err
	}

	return p.materializer.Materialize(ctx, msg, analysis, decisions)
}

var _ core.MessageProcessor = (*Processor)(nil)
