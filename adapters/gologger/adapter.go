package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// Component names used across the copilot tree so log lines from the
// pipeline, stores, chat, and job workers stay distinguishable under one
// provider.
const (
	ComponentCore     = "copilot"
	ComponentPipeline = "copilot.pipeline"
	ComponentStore    = "copilot.store"
	ComponentChat     = "copilot.chat"
	ComponentJobs     = "copilot.jobs"
)

// Resolve uses deterministic precedence provider > logger > nop. A blank
// name resolves under the root copilot component.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	if strings.TrimSpace(name) == "" {
		name = ComponentCore
	}
	return glog.Resolve(name, provider, logger)
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger maps a glog logger to the go-job logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves the job-worker logger (component copilot.jobs when
// the name is blank) and returns the equivalent go-job adapters alongside it.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	if strings.TrimSpace(name) == "" {
		name = ComponentJobs
	}
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}
