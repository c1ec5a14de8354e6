package loginbridge

import (
	"fmt"

	bridgecommand "github.com/goliatone/go-login-bridge/command"
	"github.com/goliatone/go-login-bridge/core"
	bridgequery "github.com/goliatone/go-login-bridge/query"
)

// CommandQueryService is the service surface the facade's handlers consume.
type CommandQueryService interface {
	bridgecommand.MutatingService
	bridgequery.LoginReader
}

type Commands struct {
	CompleteCallback *bridgecommand.CompleteCallbackCommand
	SweepSessions    *bridgecommand.SweepSessionsCommand
	UnlinkAccount    *bridgecommand.UnlinkAccountCommand
}

type Queries struct {
	BeginLogin      *bridgequery.BeginLoginQuery
	FindAccountLink *bridgequery.FindAccountLinkQuery
}

// Facade groups the command and query handlers around one service so hosts
// can register them in a single pass.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	accountLinks core.AccountLinkStore
}

// WithFacadeAccountLinks enables the link-backed handlers.
func WithFacadeAccountLinks(store core.AccountLinkStore) FacadeOption {
	return func(options *facadeOptions) {
		options.accountLinks = store
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("loginbridge: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CompleteCallback: bridgecommand.NewCompleteCallbackCommand(service),
		SweepSessions:    bridgecommand.NewSweepSessionsCommand(service),
	}
	facade.queries = Queries{
		BeginLogin: bridgequery.NewBeginLoginQuery(service),
	}
	if cfg.accountLinks != nil {
		facade.commands.UnlinkAccount = bridgecommand.NewUnlinkAccountCommand(cfg.accountLinks)
		facade.queries.FindAccountLink = bridgequery.NewFindAccountLinkQuery(cfg.accountLinks)
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}
