package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type serviceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	registry        *SocketRegistry
	claimLedger     ClaimLedger
	pipeline        LoginPipeline
	accountLinks    AccountLinkStore
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithSocketRegistry(registry *SocketRegistry) Option {
	return func(b *serviceBuilder) {
		b.registry = registry
	}
}

func WithClaimLedger(ledger ClaimLedger) Option {
	return func(b *serviceBuilder) {
		b.claimLedger = ledger
	}
}

func WithPipeline(pipeline LoginPipeline) Option {
	return func(b *serviceBuilder) {
		b.pipeline = pipeline
	}
}

func WithAccountLinkStore(store AccountLinkStore) Option {
	return func(b *serviceBuilder) {
		b.accountLinks = store
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("login-bridge", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.PublicBaseURL) != "" {
		layer["public_base_url"] = cfg.PublicBaseURL
	}
	if includeZero || strings.TrimSpace(cfg.CallbackPath) != "" {
		layer["callback_path"] = cfg.CallbackPath
	}

	provider := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Provider.ClientID) != "" {
		provider["client_id"] = cfg.Provider.ClientID
	}
	if includeZero || strings.TrimSpace(cfg.Provider.ClientSecret) != "" {
		provider["client_secret"] = cfg.Provider.ClientSecret
	}
	if includeZero || strings.TrimSpace(cfg.Provider.AuthorizeURL) != "" {
		provider["authorize_url"] = cfg.Provider.AuthorizeURL
	}
	if includeZero || strings.TrimSpace(cfg.Provider.Scopes) != "" {
		provider["scopes"] = cfg.Provider.Scopes
	}
	if includeZero || len(cfg.Provider.AuthorizeParams) > 0 {
		params := map[string]string{}
		for key, value := range cfg.Provider.AuthorizeParams {
			params[key] = value
		}
		provider["authorize_params"] = params
	}
	if len(provider) > 0 {
		layer["provider"] = provider
	}

	session := map[string]any{}
	if includeZero || cfg.Session.TTL > 0 {
		session["ttl"] = cfg.Session.TTL
	}
	if includeZero || cfg.Session.SweepInterval > 0 {
		session["sweep_interval"] = cfg.Session.SweepInterval
	}
	if includeZero || cfg.Session.SocketBuffer > 0 {
		session["socket_buffer"] = cfg.Session.SocketBuffer
	}
	if len(session) > 0 {
		layer["session"] = session
	}

	return layer
}
