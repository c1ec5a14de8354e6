package core

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const (
	correlationIDMinLength = 8
	correlationIDMaxLength = 128
	correlationIDBytes     = 24
)

// SocketMessageKind tags the two message kinds this subsystem ever pushes to
// a client connection.
type SocketMessageKind string

const (
	SocketMessageText  SocketMessageKind = "text"
	SocketMessageClose SocketMessageKind = "close"
)

type SocketMessage struct {
	Kind    SocketMessageKind
	Payload string
}

func TextMessage(payload string) SocketMessage {
	return SocketMessage{Kind: SocketMessageText, Payload: payload}
}

func CloseMessage() SocketMessage {
	return SocketMessage{Kind: SocketMessageClose}
}

// AccountProfile is the final output of the federation pipeline: the stable
// account id and display name on the target service.
type AccountProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LoginResult carries the pipeline's terminal success values. The service
// access token is handed to the claimed connection and never persisted.
type LoginResult struct {
	Profile     AccountProfile
	AccessToken string
	ExpiresAt   *time.Time
}

// LinkedAccount is the only durable record this subsystem produces: the link
// between a local user and the federated account profile. It is committed on
// pipeline success, independent of whether delivery succeeds afterwards.
type LinkedAccount struct {
	ID          string
	UserID      string
	ProviderID  string
	ProfileID   string
	ProfileName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuthorizationInit is the init route's response body.
type AuthorizationInit struct {
	URL string `json:"url"`
}

// GenerateCorrelationID mints an opaque URL-safe id. Its entropy is the only
// defense against cross-session hijacking: whoever presents the id on the
// callback path is treated as the owner of the pending login.
func GenerateCorrelationID() (string, error) {
	raw := make([]byte, correlationIDBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate correlation id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// ValidateCorrelationID rejects ids that could not have been minted by
// GenerateCorrelationID before they reach the registry or the provider's
// state parameter.
func ValidateCorrelationID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("core: correlation id is required")
	}
	if len(id) < correlationIDMinLength || len(id) > correlationIDMaxLength {
		return fmt.Errorf("core: correlation id length out of bounds")
	}
	for _, r := range id {
		if !isCorrelationIDRune(r) {
			return fmt.Errorf("core: correlation id contains invalid character %q", r)
		}
	}
	return nil
}

func isCorrelationIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	default:
		return false
	}
}
