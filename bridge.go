package loginbridge

import (
	"strings"

	"github.com/goliatone/go-login-bridge/core"
	"github.com/goliatone/go-login-bridge/federation"
)

type Config = core.Config

type ProviderConfig = core.ProviderConfig

type SessionConfig = core.SessionConfig

type Option = core.Option

type Service = core.Service

type SocketRegistry = core.SocketRegistry
type SocketSession = core.SocketSession
type SocketMessage = core.SocketMessage
type AttachOptions = core.AttachOptions
type CallbackResult = core.CallbackResult
type AuthorizationInit = core.AuthorizationInit
type LoginResult = core.LoginResult
type AccountProfile = core.AccountProfile
type LinkedAccount = core.LinkedAccount
type AccountLinkStore = core.AccountLinkStore
type LoginPipeline = core.LoginPipeline
type ClaimLedger = core.ClaimLedger
type Sweeper = core.Sweeper

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithErrorFactory     = core.WithErrorFactory
	WithErrorMapper      = core.WithErrorMapper
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithSocketRegistry   = core.WithSocketRegistry
	WithClaimLedger      = core.WithClaimLedger
	WithPipeline         = core.WithPipeline
	WithAccountLinkStore = core.WithAccountLinkStore
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewService builds a bridge service from explicit options. The caller is
// responsible for providing a pipeline; use New for the default federation
// chain.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func NewSweeper(service *Service) (*Sweeper, error) {
	return core.NewSweeper(service)
}

// New wires the default federation pipeline from the resolved config and
// returns a ready service. The config is layered first so provider
// credentials supplied through a config provider reach the pipeline, not
// just the runtime cfg. Options may still override any collaborator,
// including the pipeline itself.
func New(cfg Config, opts ...Option) (*Service, error) {
	resolved, err := core.ResolveConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}
	pipeline, err := federation.New(federation.Config{
		ClientID:     strings.TrimSpace(resolved.Provider.ClientID),
		ClientSecret: strings.TrimSpace(resolved.Provider.ClientSecret),
		RedirectURI:  resolved.RedirectURI(),
	})
	if err != nil {
		return nil, err
	}
	merged := append([]Option{WithPipeline(pipeline)}, opts...)
	return core.NewService(cfg, merged...)
}
