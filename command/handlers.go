package command

import (
	"context"
	"strings"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-login-bridge/core"
)

// MutatingService is the slice of the bridge service the command handlers
// need.
type MutatingService interface {
	HandleCallback(ctx context.Context, code, state string) (core.CallbackResult, error)
	SweepSessions(ctx context.Context) (int, error)
}

type CompleteCallbackCommand struct {
	service MutatingService
}

func NewCompleteCallbackCommand(service MutatingService) *CompleteCallbackCommand {
	return &CompleteCallbackCommand{service: service}
}

func (c *CompleteCallbackCommand) Execute(ctx context.Context, msg CompleteCallbackMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: callback service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.HandleCallback(ctx, strings.TrimSpace(msg.Code), strings.TrimSpace(msg.State))
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SweepSessionsCommand struct {
	service MutatingService
}

func NewSweepSessionsCommand(service MutatingService) *SweepSessionsCommand {
	return &SweepSessionsCommand{service: service}
}

func (c *SweepSessionsCommand) Execute(ctx context.Context, msg SweepSessionsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sweep service is required")
	}
	evicted, err := c.service.SweepSessions(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, evicted)
	return nil
}

type UnlinkAccountCommand struct {
	links core.AccountLinkStore
}

func NewUnlinkAccountCommand(links core.AccountLinkStore) *UnlinkAccountCommand {
	return &UnlinkAccountCommand{links: links}
}

func (c *UnlinkAccountCommand) Execute(ctx context.Context, msg UnlinkAccountMessage) error {
	if c == nil || c.links == nil {
		return commandDependencyError("command: account link store is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.links.DeleteByUser(ctx, strings.TrimSpace(msg.UserID))
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
