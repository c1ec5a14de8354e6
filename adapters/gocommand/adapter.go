// Package gocommand wires the bridge's command and query handlers into a
// go-command registry and dispatcher.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	bridgecommand "github.com/goliatone/go-login-bridge/command"
	"github.com/goliatone/go-login-bridge/core"
	bridgequery "github.com/goliatone/go-login-bridge/query"
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

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// SubscribeBridge registers the bridge's command and query handlers on the
// shared dispatcher. The account link handlers are skipped when no store is
// configured.
func SubscribeBridge(
	adapter *RegistryAdapter,
	service *core.Service,
	links core.AccountLinkStore,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if service == nil {
		return nil, fmt.Errorf("gocommand: bridge service is required")
	}

	var subscriptions []commanddispatcher.Subscription
	unsubscribeAll := func() {
		for _, subscription := range subscriptions {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}
	}

	callbackCmd := bridgecommand.NewCompleteCallbackCommand(service)
	subscriptions = append(subscriptions, SubscribeCommand(callbackCmd, runnerOpts...))
	if err := adapter.RegisterCommand(callbackCmd); err != nil {
		unsubscribeAll()
		return nil, err
	}

	sweepCmd := bridgecommand.NewSweepSessionsCommand(service)
	subscriptions = append(subscriptions, SubscribeCommand(sweepCmd, runnerOpts...))
	if err := adapter.RegisterCommand(sweepCmd); err != nil {
		unsubscribeAll()
		return nil, err
	}

	beginQry := bridgequery.NewBeginLoginQuery(service)
	subscriptions = append(subscriptions, SubscribeQuery(beginQry, runnerOpts...))
	if err := adapter.RegisterCommand(beginQry); err != nil {
		unsubscribeAll()
		return nil, err
	}

	if links != nil {
		unlinkCmd := bridgecommand.NewUnlinkAccountCommand(links)
		subscriptions = append(subscriptions, SubscribeCommand(unlinkCmd, runnerOpts...))
		if err := adapter.RegisterCommand(unlinkCmd); err != nil {
			unsubscribeAll()
			return nil, err
		}

		findQry := bridgequery.NewFindAccountLinkQuery(links)
		subscriptions = append(subscriptions, SubscribeQuery(findQry, runnerOpts...))
		if err := adapter.RegisterCommand(findQry); err != nil {
			unsubscribeAll()
			return nil, err
		}
	}

	return subscriptions, nil
}
