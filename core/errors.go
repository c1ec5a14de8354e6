package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	BridgeErrorBadInput          = "BRIDGE_BAD_INPUT"
	BridgeErrorInvalidSession    = "BRIDGE_INVALID_CORRELATION_ID"
	BridgeErrorSessionNotFound   = "BRIDGE_SESSION_NOT_FOUND"
	BridgeErrorDuplicateCallback = "BRIDGE_DUPLICATE_CALLBACK"
	BridgeErrorProviderTransport = "BRIDGE_PROVIDER_TRANSPORT"
	BridgeErrorProviderRejected  = "BRIDGE_PROVIDER_REJECTED"
	BridgeErrorSerialization     = "BRIDGE_SERIALIZATION"
	BridgeErrorConfiguration     = "BRIDGE_CONFIGURATION"
	BridgeErrorInternal          = "BRIDGE_INTERNAL_ERROR"
)

// ErrorStage returns the federation stage recorded on a pipeline error, or ""
// when the error carries no stage attribution.
func ErrorStage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return ""
	}
	if richErr.Metadata == nil {
		return ""
	}
	stage, _ := richErr.Metadata["stage"].(string)
	return strings.TrimSpace(stage)
}

// ErrorTextCode extracts the bridge text code from an error, defaulting to
// BRIDGE_INTERNAL_ERROR for untyped failures.
func ErrorTextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && strings.TrimSpace(richErr.TextCode) != "" {
		return richErr.TextCode
	}
	return BridgeErrorInternal
}

func bridgeErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureBridgeErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "correlation id"):
		return newBridgeError(err.Error(), goerrors.CategoryBadInput, BridgeErrorInvalidSession)
	case strings.Contains(msg, "not registered"), strings.Contains(msg, "no active socket"):
		return newBridgeError(err.Error(), goerrors.CategoryNotFound, BridgeErrorSessionNotFound)
	case strings.Contains(msg, "config"), strings.Contains(msg, "is not configured"):
		return newBridgeError(err.Error(), goerrors.CategoryInternal, BridgeErrorConfiguration)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newBridgeError(err.Error(), goerrors.CategoryBadInput, BridgeErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureBridgeErrorEnvelope(mapped)
}

func newBridgeError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureBridgeErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureBridgeErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = bridgeHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultBridgeTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultBridgeTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return BridgeErrorBadInput
	case goerrors.CategoryNotFound:
		return BridgeErrorSessionNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return BridgeErrorProviderRejected
	case goerrors.CategoryExternal:
		return BridgeErrorProviderTransport
	case goerrors.CategoryConflict:
		return BridgeErrorDuplicateCallback
	default:
		return BridgeErrorInternal
	}
}

func bridgeHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
