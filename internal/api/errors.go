package api

import (
	"errors"
	"net/http"

	"git.sr.ht/~jakintosh/apigate/internal/service"
	"git.sr.ht/~jakintosh/apigate/pkg/tokens"
	"go.uber.org/zap"
)

const (
	detailInvalidCredentials = "Invalid client credentials"
	detailBearerRequired     = "Bearer token required"
	detailInvalidFormat      = "Invalid token format"
	detailTokenExpired       = "Token has expired"
	detailInvalidToken       = "Invalid token"
	detailWrongTokenType     = "Invalid token type"
	detailInvalidPayload     = "Invalid token payload"
	detailClientUnavailable  = "Client application not found or disabled"
	detailValidationFailed   = "Token validation failed"
	detailOperatorRequired   = "Operator credentials required"
	detailNotFound           = "Resource not found"
	detailConflict           = "Resource already exists"
	detailInternal           = "Internal server error"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// errorStatus maps a service error onto an HTTP status and a detail message
// that is safe to return to the caller.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, detailInvalidCredentials
	case errors.Is(err, service.ErrInvalidFormat):
		return http.StatusUnauthorized, detailInvalidFormat
	case errors.Is(err, service.ErrWrongTokenType):
		return http.StatusUnauthorized, detailWrongTokenType
	case errors.Is(err, service.ErrInvalidPayload):
		return http.StatusUnauthorized, detailInvalidPayload
	case errors.Is(err, service.ErrClientUnavailable):
		return http.StatusUnauthorized, detailClientUnavailable
	case errors.Is(err, service.ErrInvalidToken):
		if errors.Is(err, tokens.ErrTokenExpired()) {
			return http.StatusUnauthorized, detailTokenExpired
		}
		return http.StatusUnauthorized, detailInvalidToken
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, detailNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, detailConflict
	}
	return http.StatusInternalServerError, detailInternal
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	returnJsonStatus(status, errorResponse{Detail: detail}, w)
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := errorStatus(err)
	if status == http.StatusInternalServerError {
		a.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		logApiErr(a.log, r, "request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeDetail(w, status, detail)
}
