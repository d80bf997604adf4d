package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
	"git.sr.ht/~jakintosh/apigate/pkg/tokens"
	"go.uber.org/zap"
)

type contextKey int

const (
	clientKey contextKey = iota
	operatorKey
)

// ClientFromContext returns the client authenticated by the bearer gate.
func ClientFromContext(ctx context.Context) (*service.AuthenticatedClient, bool) {
	client, ok := ctx.Value(clientKey).(*service.AuthenticatedClient)
	return client, ok && client != nil
}

// OperatorFromContext returns the handle of the operator authenticated by
// the admin gate.
func OperatorFromContext(ctx context.Context) (string, bool) {
	handle, ok := ctx.Value(operatorKey).(string)
	return handle, ok && handle != ""
}

// requireClient admits only requests carrying a valid bearer token for an
// active client app. Rejected requests never reach next.
func (a *API) requireClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoded, ok := service.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			a.metrics.verifications.WithLabelValues(resultMissing).Inc()
			logApiErr(a.log, r, "bearer token missing")
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, detailBearerRequired)
			return
		}

		client, err := a.service.VerifyToken(r.Context(), encoded)
		if err != nil {
			a.metrics.verifications.WithLabelValues(verificationResult(err)).Inc()
			status, detail := errorStatus(err)
			if status != http.StatusUnauthorized {
				a.log.Error("token verification failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				detail = detailValidationFailed
			} else {
				logApiErr(a.log, r, "bearer token rejected", zap.String("reason", tokens.Context(err)))
			}
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeDetail(w, http.StatusUnauthorized, detail)
			return
		}

		a.metrics.verifications.WithLabelValues(resultOK).Inc()
		ctx := context.WithValue(r.Context(), clientKey, client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func verificationResult(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidFormat):
		return resultFormat
	case errors.Is(err, service.ErrWrongTokenType):
		return resultType
	case errors.Is(err, service.ErrInvalidPayload):
		return resultPayload
	case errors.Is(err, service.ErrClientUnavailable):
		return resultUnavailable
	case errors.Is(err, tokens.ErrTokenExpired()):
		return resultExpired
	case errors.Is(err, service.ErrInvalidToken):
		return resultInvalid
	}
	return resultError
}

// requireOperator admits requests with valid operator Basic credentials.
func (a *API) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handle, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="apigate"`)
			writeDetail(w, http.StatusUnauthorized, detailOperatorRequired)
			return
		}

		if err := a.service.AuthenticateOperator(r.Context(), handle, password); err != nil {
			if !errors.Is(err, service.ErrInvalidCredentials) {
				a.writeError(w, r, err)
				return
			}
			logApiErr(a.log, r, "operator authentication failed")
			w.Header().Set("WWW-Authenticate", `Basic realm="apigate"`)
			writeDetail(w, http.StatusUnauthorized, detailOperatorRequired)
			return
		}

		ctx := context.WithValue(r.Context(), operatorKey, handle)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverer turns a handler panic into a 500 with a generic body.
func (a *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				a.metrics.panics.Inc()
				a.log.Error("handler panic",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				writeDetail(w, http.StatusInternalServerError, detailInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}
