package federation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-login-bridge/core"
)

// Pipeline is the ordered chain of external exchanges. Stages are data-driven
// descriptors composed with early exit so each one stays independently
// testable against a stubbed HTTP client.
type Pipeline struct {
	cfg    Config
	stages []stageDescriptor
}

type stageDescriptor struct {
	name string
	run  func(ctx context.Context, state *exchangeState) error
}

// exchangeState is ephemeral: it lives for one Exchange call and none of its
// intermediate tokens outlive it.
type exchangeState struct {
	code           string
	providerTokens providerTokens
	userToken      federatedToken
	stsToken       federatedToken
	sessionToken   sessionToken
	profile        core.AccountProfile
}

type providerTokens struct {
	accessToken  string
	refreshToken string
	expiresIn    int64
}

type federatedToken struct {
	token    string
	userHash string
}

type sessionToken struct {
	accessToken string
	expiresIn   int64
}

func New(cfg Config) (*Pipeline, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg}
	p.stages = []stageDescriptor{
		{name: StageCodeExchange, run: p.exchangeCode},
		{name: StageUserToken, run: p.fetchUserToken},
		{name: StageSTSToken, run: p.fetchSTSToken},
		{name: StageSessionToken, run: p.fetchSessionToken},
		{name: StageProfile, run: p.fetchProfile},
	}
	return p, nil
}

// Exchange runs the stages strictly in order; the first failure stops the
// chain and is returned stage-attributed. Every run is independent: nothing
// is retried or cached, and idempotency rests on the provider's single-use
// code semantics.
func (p *Pipeline) Exchange(ctx context.Context, code string) (core.LoginResult, error) {
	if p == nil {
		return core.LoginResult{}, fmt.Errorf("federation: pipeline is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return core.LoginResult{}, fmt.Errorf("federation: authorization code is required")
	}

	state := &exchangeState{code: code}
	for _, stage := range p.stages {
		if err := stage.run(ctx, state); err != nil {
			return core.LoginResult{}, err
		}
	}

	result := core.LoginResult{
		Profile:     state.profile,
		AccessToken: state.sessionToken.accessToken,
	}
	if state.sessionToken.expiresIn > 0 {
		expiresAt := p.cfg.Now().Add(time.Duration(state.sessionToken.expiresIn) * time.Second)
		result.ExpiresAt = &expiresAt
	}
	return result, nil
}

var _ core.LoginPipeline = (*Pipeline)(nil)
