package transport

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-login-bridge/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.BridgeErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return core.BridgeErrorProviderRejected
	case goerrors.CategoryExternal:
		return core.BridgeErrorProviderTransport
	case goerrors.CategoryNotFound:
		return core.BridgeErrorSessionNotFound
	default:
		return core.BridgeErrorInternal
	}
}
