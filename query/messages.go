// Package query exposes the bridge's read operations as go-command query
// messages.
package query

import "strings"

const (
	TypeBeginLogin      = "bridge.query.login.begin"
	TypeFindAccountLink = "bridge.query.account_link.find"
)

type BeginLoginMessage struct {
	CorrelationID string
}

func (BeginLoginMessage) Type() string { return TypeBeginLogin }

func (m BeginLoginMessage) Validate() error {
	if strings.TrimSpace(m.CorrelationID) == "" {
		return queryValidationError("correlation_id", "correlation id is required")
	}
	return nil
}

type FindAccountLinkMessage struct {
	UserID string
}

func (FindAccountLinkMessage) Type() string { return TypeFindAccountLink }

func (m FindAccountLinkMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	return nil
}
