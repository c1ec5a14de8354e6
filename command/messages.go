// Package command exposes the bridge's mutating operations as go-command
// messages so hosts can route them through a dispatcher or a queue.
package command

import "strings"

const (
	TypeCompleteCallback = "bridge.command.callback.complete"
	TypeSweepSessions    = "bridge.command.sessions.sweep"
	TypeUnlinkAccount    = "bridge.command.account.unlink"
)

type CompleteCallbackMessage struct {
	Code  string
	State string
}

func (CompleteCallbackMessage) Type() string { return TypeCompleteCallback }

func (m CompleteCallbackMessage) Validate() error {
	if strings.TrimSpace(m.Code) == "" {
		return commandValidationError("code", "authorization code is required")
	}
	if strings.TrimSpace(m.State) == "" {
		return commandValidationError("state", "state is required")
	}
	return nil
}

type SweepSessionsMessage struct{}

func (SweepSessionsMessage) Type() string { return TypeSweepSessions }

type UnlinkAccountMessage struct {
	UserID string
}

func (UnlinkAccountMessage) Type() string { return TypeUnlinkAccount }

func (m UnlinkAccountMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	return nil
}
