package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service wires the socket registry, the claim ledger, and the federation
// pipeline into the bridge's three inbound operations: socket attach, login
// init, and provider callback.
type Service struct {
	config          Config
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
	now             func() time.Time
}

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

// CallbackStatus classifies the orchestrator's outcome for metrics and for
// the transport layer. The browser-facing page does not vary with it beyond
// success vs. error.
type CallbackStatus string

const (
	CallbackStatusSuccess        CallbackStatus = "success"
	CallbackStatusPipelineFailed CallbackStatus = "pipeline_failed"
	CallbackStatusDuplicate      CallbackStatus = "duplicate"
)

type CallbackResult struct {
	Status    CallbackStatus
	Stage     string
	Delivered bool
	Linked    bool
}

// AttachOptions carries the connection owner established by the external
// collaborator that authenticated the client connection. Owner may be empty
// for anonymous flows; the durable account link is then skipped.
type AttachOptions struct {
	Owner string
}

// ResolveConfig runs the same layering NewService applies: defaults, then the
// config provider, then the runtime config. Hosts that need the effective
// config before the service exists call this; the default pipeline wiring
// builds its federation chain from it.
func ResolveConfig(cfg Config, opts ...Option) (Config, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}
	resolved, err := resolveBuilderConfig(&builder)
	if err != nil {
		return Config{}, mapBuildError(builder.errorMapper, err)
	}
	return resolved, nil
}

func resolveBuilderConfig(builder *serviceBuilder) (Config, error) {
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return Config{}, err
	}
	return builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("login-bridge", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("login-bridge"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	finalConfig, err := resolveBuilderConfig(&builder)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.registry == nil {
		builder.registry = NewSocketRegistry(finalConfig.Session.SocketBuffer)
	}
	if builder.claimLedger == nil {
		builder.claimLedger = NewMemoryClaimLedger(finalConfig.Session.TTL)
	}
	if builder.pipeline == nil {
		missing := builder.errorFactory("core: login pipeline is not configured", goerrors.CategoryInternal).
			WithTextCode(BridgeErrorConfiguration)
		return nil, mapBuildError(builder.errorMapper, missing)
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		registry:        builder.registry,
		claimLedger:     builder.claimLedger,
		pipeline:        builder.pipeline,
		accountLinks:    builder.accountLinks,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Registry() *SocketRegistry {
	if s == nil {
		return nil
	}
	return s.registry
}

// AttachSocket mints a correlation id, registers the connection, and pushes
// the authorize URL to the fresh socket so the launcher can open the browser
// without a second round trip.
func (s *Service) AttachSocket(ctx context.Context, opts AttachOptions) (SocketSession, error) {
	startedAt := s.now()
	id, err := GenerateCorrelationID()
	if err != nil {
		s.observeOperation(ctx, startedAt, "attach_socket", err, nil)
		return SocketSession{}, s.mapError(err)
	}

	session, err := s.registry.Register(id, strings.TrimSpace(opts.Owner))
	if err != nil {
		s.observeOperation(ctx, startedAt, "attach_socket", err, map[string]any{"correlation_id": id})
		return SocketSession{}, s.mapError(err)
	}

	authorizeURL, err := s.buildAuthorizeURL(id)
	if err != nil {
		s.registry.Release(id)
		s.observeOperation(ctx, startedAt, "attach_socket", err, map[string]any{"correlation_id": id})
		return SocketSession{}, s.mapError(err)
	}

	hello, err := json.Marshal(AuthorizationInit{URL: authorizeURL})
	if err != nil {
		s.registry.Release(id)
		s.observeOperation(ctx, startedAt, "attach_socket", err, map[string]any{"correlation_id": id})
		return SocketSession{}, s.mapError(err)
	}
	s.registry.Deliver(id, TextMessage(string(hello)))

	s.observeOperation(ctx, startedAt, "attach_socket", nil, map[string]any{"correlation_id": id})
	return session, nil
}

// ReleaseSocket drops a registered entry after its connection was observed
// closed.
func (s *Service) ReleaseSocket(id string) {
	if s == nil || s.registry == nil {
		return
	}
	s.registry.Release(strings.TrimSpace(id))
}

// BeginLogin validates the correlation id and builds the provider authorize
// URL with the id as round-trip state. Pure construction, no network call.
func (s *Service) BeginLogin(ctx context.Context, correlationID string) (AuthorizationInit, error) {
	startedAt := s.now()
	correlationID = strings.TrimSpace(correlationID)
	if err := ValidateCorrelationID(correlationID); err != nil {
		s.observeOperation(ctx, startedAt, "begin_login", err, nil)
		return AuthorizationInit{}, s.mapError(err)
	}
	authorizeURL, err := s.buildAuthorizeURL(correlationID)
	if err != nil {
		s.observeOperation(ctx, startedAt, "begin_login", err, map[string]any{"correlation_id": correlationID})
		return AuthorizationInit{}, s.mapError(err)
	}
	s.observeOperation(ctx, startedAt, "begin_login", nil, map[string]any{"correlation_id": correlationID})
	return AuthorizationInit{URL: authorizeURL}, nil
}

// HandleCallback is the orchestrator behind the provider redirect. It claims
// the correlation id, runs the pipeline, commits the durable account link on
// pipeline success only, and then performs terminal delivery. A missing
// session is swallowed: the browser page never reflects delivery outcome.
func (s *Service) HandleCallback(ctx context.Context, code, state string) (CallbackResult, error) {
	startedAt := s.now()
	state = strings.TrimSpace(state)
	if err := ValidateCorrelationID(state); err != nil {
		s.observeOperation(ctx, startedAt, "handle_callback", err, nil)
		return CallbackResult{}, s.mapError(err)
	}
	if strings.TrimSpace(code) == "" {
		err := s.newError("core: authorization code is required", goerrors.CategoryBadInput, BridgeErrorBadInput)
		s.observeOperation(ctx, startedAt, "handle_callback", err, map[string]any{"correlation_id": state})
		return CallbackResult{}, s.mapError(err)
	}

	claimed, err := s.claimLedger.Claim(ctx, "callback::"+state, s.config.Session.TTL)
	if err != nil {
		s.observeOperation(ctx, startedAt, "handle_callback", err, map[string]any{"correlation_id": state})
		return CallbackResult{}, s.mapError(err)
	}
	if !claimed {
		s.observeOperation(ctx, startedAt, "handle_callback", nil, map[string]any{
			"correlation_id": state,
			"outcome":        string(CallbackStatusDuplicate),
		})
		return CallbackResult{Status: CallbackStatusDuplicate}, nil
	}

	// The owner is read before the pipeline runs: a slow pipeline may outlive
	// the session TTL and the entry with it.
	owner, _ := s.registry.Owner(state)

	result, pipelineErr := s.pipeline.Exchange(ctx, code)
	if pipelineErr != nil {
		return s.deliverFailure(ctx, startedAt, state, pipelineErr)
	}
	return s.deliverSuccess(ctx, startedAt, state, owner, result)
}

// SweepSessions evicts registry entries past the session TTL and prunes the
// claim ledger. Called by the Sweeper and by the maintenance job adapters.
func (s *Service) SweepSessions(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	evicted := s.registry.Sweep(s.config.Session.TTL)
	pruned := 0
	if s.claimLedger != nil {
		purged, err := s.claimLedger.PurgeExpired(ctx)
		if err != nil {
			s.observeOperation(ctx, startedAt, "sweep_sessions", err, map[string]any{"evicted": evicted})
			return evicted, s.mapError(err)
		}
		pruned = purged
	}
	s.observeOperation(ctx, startedAt, "sweep_sessions", nil, map[string]any{
		"evicted":        evicted,
		"claims_pruned":  pruned,
		"sessions_alive": s.registry.Len(),
	})
	return evicted, nil
}

type successPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	ExpiresIn   *int64 `json:"expires_in,omitempty"`
}

type failurePayload struct {
	Error   string  `json:"error"`
	Message string  `json:"message"`
	Stage   *string `json:"stage"`
}

func (s *Service) deliverSuccess(
	ctx context.Context,
	startedAt time.Time,
	state, owner string,
	result LoginResult,
) (CallbackResult, error) {
	linked := false
	if s.accountLinks != nil && owner != "" {
		link := LinkedAccount{
			UserID:      owner,
			ProviderID:  DefaultProviderID,
			ProfileID:   result.Profile.ID,
			ProfileName: result.Profile.Name,
		}
		if _, err := s.accountLinks.Upsert(ctx, link); err != nil {
			// Persistence failure is a server fault; the client still gets
			// an error payload rather than a phantom success.
			failure := s.mapError(err)
			return s.deliverFailure(ctx, startedAt, state, failure)
		}
		linked = true
	}

	payload := successPayload{
		ID:          result.Profile.ID,
		Name:        result.Profile.Name,
		AccessToken: result.AccessToken,
	}
	if result.ExpiresAt != nil {
		seconds := int64(time.Until(*result.ExpiresAt).Seconds())
		if seconds > 0 {
			payload.ExpiresIn = &seconds
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.observeOperation(ctx, startedAt, "handle_callback", err, map[string]any{"correlation_id": state})
		return CallbackResult{}, s.mapError(err)
	}

	outcome := s.registry.DeliverTerminal(state, string(body))
	delivered := outcome == DeliverOutcomeDelivered
	fields := map[string]any{
		"correlation_id": state,
		"outcome":        string(CallbackStatusSuccess),
		"delivered":      delivered,
		"linked":         linked,
	}
	if !delivered {
		// The client disconnected or the session expired before the pipeline
		// finished. Logged, never escalated.
		fields["session"] = "not_found"
	}
	s.observeOperation(ctx, startedAt, "handle_callback", nil, fields)
	return CallbackResult{Status: CallbackStatusSuccess, Delivered: delivered, Linked: linked}, nil
}

func (s *Service) deliverFailure(
	ctx context.Context,
	startedAt time.Time,
	state string,
	pipelineErr error,
) (CallbackResult, error) {
	mapped := s.mapError(pipelineErr)
	stage := ErrorStage(mapped)

	payload := failurePayload{
		Error:   ErrorTextCode(mapped),
		Message: mapped.Message,
	}
	if stage != "" {
		payload.Stage = &stage
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.observeOperation(ctx, startedAt, "handle_callback", err, map[string]any{"correlation_id": state})
		return CallbackResult{}, s.mapError(err)
	}

	outcome := s.registry.DeliverTerminal(state, string(body))
	delivered := outcome == DeliverOutcomeDelivered
	s.observeOperation(ctx, startedAt, "handle_callback", mapped, map[string]any{
		"correlation_id": state,
		"outcome":        string(CallbackStatusPipelineFailed),
		"stage":          stage,
		"text_code":      payload.Error,
		"delivered":      delivered,
	})
	return CallbackResult{Status: CallbackStatusPipelineFailed, Stage: stage, Delivered: delivered}, nil
}

func (s *Service) buildAuthorizeURL(correlationID string) (string, error) {
	cfg := s.config
	if strings.TrimSpace(cfg.Provider.ClientID) == "" {
		return "", s.newError("core: provider.client_id is not configured", goerrors.CategoryInternal, BridgeErrorConfiguration)
	}
	if strings.TrimSpace(cfg.Provider.AuthorizeURL) == "" {
		return "", s.newError("core: provider.authorize_url is not configured", goerrors.CategoryInternal, BridgeErrorConfiguration)
	}

	values := url.Values{}
	values.Set("client_id", strings.TrimSpace(cfg.Provider.ClientID))
	values.Set("response_type", "code")
	values.Set("redirect_uri", cfg.RedirectURI())
	values.Set("scope", strings.TrimSpace(cfg.Provider.Scopes))
	values.Set("state", correlationID)
	for _, key := range sortedKeys(cfg.Provider.AuthorizeParams) {
		values.Set(key, cfg.Provider.AuthorizeParams[key])
	}

	authorizeURL := strings.TrimSpace(cfg.Provider.AuthorizeURL)
	if strings.Contains(authorizeURL, "?") {
		return authorizeURL + "&" + values.Encode(), nil
	}
	return authorizeURL + "?" + values.Encode(), nil
}

// newError mints a service-originated error through the configured factory so
// hosts that install their own factory see every fresh construction.
func (s *Service) newError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	factory := goerrors.New
	if s != nil && s.errorFactory != nil {
		factory = s.errorFactory
	}
	return ensureBridgeErrorEnvelope(factory(message, category).WithTextCode(textCode))
}

func (s *Service) mapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if s != nil && s.errorMapper != nil {
		return s.errorMapper(err)
	}
	return defaultErrorMapper(err)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper != nil {
		return mapper(err)
	}
	return defaultErrorMapper(err)
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return bridgeErrorMapper(err)
}

func sortedKeys(values map[string]string) []string {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		if strings.TrimSpace(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
