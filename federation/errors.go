package federation

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-login-bridge/core"
)

// Stage names, in pipeline order. They appear in error payloads delivered to
// clients and in metrics tags.
const (
	StageCodeExchange = "code_exchange"
	StageUserToken    = "user_token"
	StageSTSToken     = "sts_token"
	StageSessionToken = "session_token"
	StageProfile      = "profile"
)

// StageNames returns the fixed execution order.
func StageNames() []string {
	return []string{StageCodeExchange, StageUserToken, StageSTSToken, StageSessionToken, StageProfile}
}

// transportError marks an infrastructure fault talking to a stage endpoint:
// retryable from the user's point of view, not actionable.
func transportError(stage string, cause error) error {
	return goerrors.Wrap(cause, goerrors.CategoryExternal, "federation: "+stage+" request failed").
		WithTextCode(core.BridgeErrorProviderTransport).
		WithMetadata(map[string]any{"stage": stage})
}

// rejectedError marks an explicit provider rejection: an expected,
// user-actionable outcome (bad code, no linked identity, missing
// entitlement), distinct from transport faults.
func rejectedError(stage, message string) error {
	return goerrors.New("federation: "+message, goerrors.CategoryAuth).
		WithTextCode(core.BridgeErrorProviderRejected).
		WithMetadata(map[string]any{"stage": stage})
}

func decodeError(stage string, cause error) error {
	return goerrors.Wrap(cause, goerrors.CategoryExternal, "federation: "+stage+" response could not be parsed").
		WithTextCode(core.BridgeErrorSerialization).
		WithMetadata(map[string]any{"stage": stage})
}

// Stage extracts the failing stage from a pipeline error, or "" for errors
// that did not originate in a stage.
func Stage(err error) string {
	return core.ErrorStage(err)
}

// Rejected reports whether the pipeline failed on an explicit provider
// rejection rather than an infrastructure fault.
func Rejected(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.TrimSpace(richErr.TextCode) == core.BridgeErrorProviderRejected
}
