package federation

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultStageTimeout     = 30 * time.Second
	maxResponseBodyBytes    = 1 << 20 // 1 MiB
	defaultFederationSite   = "user.auth.xboxlive.com"
	defaultSTSSandbox       = "RETAIL"
	defaultSTSRelyingParty  = "rp://api.minecraftservices.com/"
	defaultUserRelyingParty = "http://auth.xboxlive.com"
	defaultSessionPlatform  = "PC_LAUNCHER"
)

// Endpoints are the five external exchange endpoints, one per stage.
// Overridable for tests and for pointing at provider sandboxes.
type Endpoints struct {
	TokenURL   string
	UserURL    string
	STSURL     string
	SessionURL string
	ProfileURL string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		TokenURL:   "https://login.live.com/oauth20_token.srf",
		UserURL:    "https://user.auth.xboxlive.com/user/authenticate",
		STSURL:     "https://xsts.auth.xboxlive.com/xsts/authorize",
		SessionURL: "https://api.minecraftservices.com/launcher/login",
		ProfileURL: "https://api.minecraftservices.com/minecraft/profile",
	}
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Endpoints    Endpoints
	StageTimeout time.Duration
	HTTPClient   HTTPDoer
	Now          func() time.Time
}

func (c *Config) normalize() error {
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.ClientSecret = strings.TrimSpace(c.ClientSecret)
	c.RedirectURI = strings.TrimSpace(c.RedirectURI)
	if c.ClientID == "" {
		return fmt.Errorf("federation: client id is required")
	}
	if c.RedirectURI == "" {
		return fmt.Errorf("federation: redirect uri is required")
	}

	defaults := DefaultEndpoints()
	if strings.TrimSpace(c.Endpoints.TokenURL) == "" {
		c.Endpoints.TokenURL = defaults.TokenURL
	}
	if strings.TrimSpace(c.Endpoints.UserURL) == "" {
		c.Endpoints.UserURL = defaults.UserURL
	}
	if strings.TrimSpace(c.Endpoints.STSURL) == "" {
		c.Endpoints.STSURL = defaults.STSURL
	}
	if strings.TrimSpace(c.Endpoints.SessionURL) == "" {
		c.Endpoints.SessionURL = defaults.SessionURL
	}
	if strings.TrimSpace(c.Endpoints.ProfileURL) == "" {
		c.Endpoints.ProfileURL = defaults.ProfileURL
	}

	if c.StageTimeout <= 0 {
		c.StageTimeout = defaultStageTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.StageTimeout}
	}
	if c.Now == nil {
		c.Now = func() time.Time {
			return time.Now().UTC()
		}
	}
	return nil
}
