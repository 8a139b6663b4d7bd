package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	copilotcommand "github.com/goliatone/go-copilot/command"
	copilotquery "github.com/goliatone/go-copilot/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeCommandFunc[T any](handler command.CommandFunc[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(handler, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func SubscribeQueryFunc[T any, R any](qry command.QueryFunc[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// CopilotService is the surface the bundle registrar needs: the mutating
// operations plus the task, session, and notification readers. Context
// assembly is optional and picked up by type assertion.
type CopilotService interface {
	copilotcommand.MutatingService
	copilotquery.TaskReader
	copilotquery.SessionReader
	copilotquery.NotificationReader
}

// RegisterCopilotBundle subscribes every copilot command and query on the
// process dispatcher and registers the handlers with the adapter's registry
// so queue resolvers can route their message types. On any failure the
// already-made subscriptions are unwound.
func RegisterCopilotBundle(
	adapter *RegistryAdapter,
	service CopilotService,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if service == nil {
		return nil, fmt.Errorf("gocommand: copilot service is required")
	}

	var subscriptions []commanddispatcher.Subscription
	unwind := func(err error) ([]commanddispatcher.Subscription, error) {
		for _, subscription := range subscriptions {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}
		return nil, err
	}
	keep := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}

	if err := keep(RegisterAndSubscribe(adapter, copilotcommand.NewIngestMessageCommand(service), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, copilotcommand.NewCreateTaskCommand(service), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, copilotcommand.NewUpdateTaskStatusCommand(service), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, copilotcommand.NewUpdateTaskPriorityCommand(service), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, copilotcommand.NewBindIdentityCommand(service), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, copilotcommand.NewSendChatMessageCommand(service), runnerOpts...)); err != nil {
		return unwind(err)
	}

	if err := keep(RegisterAndSubscribeQuery(adapter, copilotquery.NewGetTaskQuery(service), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, copilotquery.NewListUserTasksQuery(service), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, copilotquery.NewGetSessionHistoryQuery(service), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, copilotquery.NewListUserNotificationsQuery(service), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if contextReader, ok := service.(copilotquery.ContextReader); ok {
		if err := keep(RegisterAndSubscribeQuery(adapter, copilotquery.NewAssembleContextQuery(contextReader), runnerOpts...)); err != nil {
			return unwind(err)
		}
	}

	return subscriptions, nil
}
