package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CopilotErrorBadInput            = "COPILOT_BAD_INPUT"
	CopilotErrorNotFound            = "COPILOT_NOT_FOUND"
	CopilotErrorUnauthorized        = "COPILOT_UNAUTHORIZED"
	CopilotErrorForbidden           = "COPILOT_FORBIDDEN"
	CopilotErrorIdentityConflict    = "COPILOT_IDENTITY_CONFLICT"
	CopilotErrorAttributionDropped  = "COPILOT_ATTRIBUTION_DROPPED"
	CopilotErrorPersistenceFailed   = "COPILOT_PERSISTENCE_FAILED"
	CopilotErrorCollaboratorFailed  = "COPILOT_COLLABORATOR_FAILED"
	CopilotErrorOperationFailed     = "COPILOT_OPERATION_FAILED"
	CopilotErrorConflict            = "COPILOT_CONFLICT"
	CopilotErrorRateLimited         = "COPILOT_RATE_LIMITED"
	CopilotErrorInternal            = "COPILOT_INTERNAL_ERROR"
)

func copilotErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureCopilotErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "already bound"):
		return newCopilotError(err.Error(), goerrors.CategoryConflict, CopilotErrorIdentityConflict)
	case strings.Contains(msg, "not found"):
		return newCopilotError(err.Error(), goerrors.CategoryNotFound, CopilotErrorNotFound)
	case strings.Contains(msg, "not the owner"), strings.Contains(msg, "access denied"):
		return newCopilotError(err.Error(), goerrors.CategoryAuthz, CopilotErrorForbidden)
	case strings.Contains(msg, "identity lookup"), strings.Contains(msg, "attribution"):
		return newCopilotError(err.Error(), goerrors.CategoryOperation, CopilotErrorAttributionDropped)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newCopilotError(err.Error(), goerrors.CategoryBadInput, CopilotErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureCopilotErrorEnvelope(mapped)
}

func newCopilotError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureCopilotErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureCopilotErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = copilotHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultCopilotTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultCopilotTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return CopilotErrorBadInput
	case goerrors.CategoryNotFound:
		return CopilotErrorNotFound
	case goerrors.CategoryAuth:
		return CopilotErrorUnauthorized
	case goerrors.CategoryAuthz:
		return CopilotErrorForbidden
	case goerrors.CategoryConflict:
		return CopilotErrorConflict
	case goerrors.CategoryOperation:
		return CopilotErrorOperationFailed
	case goerrors.CategoryRateLimit:
		return CopilotErrorRateLimited
	default:
		return CopilotErrorInternal
	}
}

func copilotHTTPStatus(category goerrors.Category) int {
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
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
