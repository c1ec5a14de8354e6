package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultProviderID names the external identity provider on durable
	// account links.
	DefaultProviderID = "microsoft"

	// DefaultAuthorizeURL is the external identity provider's consent
	// endpoint. Overridable for tests and sovereign-cloud deployments.
	DefaultAuthorizeURL = "https://login.live.com/oauth20_authorize.srf"

	// DefaultFederationScopes are the fixed scopes the federation chain
	// requires; the bridge never requests anything else.
	DefaultFederationScopes = "XboxLive.signin offline_access"

	DefaultCallbackPath = "/bridge/callback"

	// DefaultSessionTTL must exceed the slowest plausible end-to-end
	// federation round trip, browser latency included.
	DefaultSessionTTL = 30 * time.Minute

	DefaultSweepInterval = time.Minute

	// DefaultSocketBuffer must hold at least the terminal Text+Close pair so
	// terminal delivery never blocks the orchestrator.
	DefaultSocketBuffer = 8
)

type ProviderConfig struct {
	ClientID        string            `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret    string            `koanf:"client_secret" mapstructure:"client_secret"`
	AuthorizeURL    string            `koanf:"authorize_url" mapstructure:"authorize_url"`
	Scopes          string            `koanf:"scopes" mapstructure:"scopes"`
	AuthorizeParams map[string]string `koanf:"authorize_params" mapstructure:"authorize_params"`
}

type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl" mapstructure:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval" mapstructure:"sweep_interval"`
	SocketBuffer  int           `koanf:"socket_buffer" mapstructure:"socket_buffer"`
}

type Config struct {
	ServiceName   string         `koanf:"service_name" mapstructure:"service_name"`
	PublicBaseURL string         `koanf:"public_base_url" mapstructure:"public_base_url"`
	CallbackPath  string         `koanf:"callback_path" mapstructure:"callback_path"`
	Provider      ProviderConfig `koanf:"provider" mapstructure:"provider"`
	Session       SessionConfig  `koanf:"session" mapstructure:"session"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:  "login-bridge",
		CallbackPath: DefaultCallbackPath,
		Provider: ProviderConfig{
			AuthorizeURL: DefaultAuthorizeURL,
			Scopes:       DefaultFederationScopes,
		},
		Session: SessionConfig{
			TTL:           DefaultSessionTTL,
			SweepInterval: DefaultSweepInterval,
			SocketBuffer:  DefaultSocketBuffer,
		},
	}
}

// Validate surfaces missing client id or base address as a fatal startup
// concern, never as a per-request error.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		return fmt.Errorf("core: public_base_url is required")
	}
	if _, err := url.Parse(strings.TrimSpace(c.PublicBaseURL)); err != nil {
		return fmt.Errorf("core: public_base_url is invalid: %w", err)
	}
	if strings.TrimSpace(c.CallbackPath) == "" {
		return fmt.Errorf("core: callback_path is required")
	}
	if strings.TrimSpace(c.Provider.ClientID) == "" {
		return fmt.Errorf("core: provider.client_id is required")
	}
	if strings.TrimSpace(c.Provider.AuthorizeURL) == "" {
		return fmt.Errorf("core: provider.authorize_url is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("core: session.ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("core: session.sweep_interval must be positive")
	}
	if c.Session.SocketBuffer < 2 {
		return fmt.Errorf("core: session.socket_buffer must hold the terminal message pair")
	}
	return nil
}

// RedirectURI joins the public base address and the callback path; it is what
// the bridge registers with the provider and repeats on the code exchange.
func (c Config) RedirectURI() string {
	base := strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
	path := strings.TrimSpace(c.CallbackPath)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
