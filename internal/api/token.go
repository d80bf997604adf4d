package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   string `json:"expires_at"`
}

// IssueToken exchanges form-encoded client credentials for a bearer token.
func (a *API) IssueToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			logApiErr(a.log, r, "bad form request", zap.Error(err))
			writeDetail(w, http.StatusUnprocessableEntity, "Invalid form body")
			return
		}

		appID := r.PostFormValue("app_id")
		appSecret := r.PostFormValue("app_secret")
		if appID == "" || appSecret == "" {
			logApiErr(a.log, r, "bad form request")
			a.metrics.issueFailures.WithLabelValues(strconv.Itoa(http.StatusUnprocessableEntity)).Inc()
			writeDetail(w, http.StatusUnprocessableEntity, "app_id and app_secret are required")
			return
		}

		var lifetime time.Duration
		if raw := strings.TrimSpace(r.PostFormValue("expires_in")); raw != "" {
			seconds, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || seconds < 0 {
				a.metrics.issueFailures.WithLabelValues(strconv.Itoa(http.StatusUnprocessableEntity)).Inc()
				writeDetail(w, http.StatusUnprocessableEntity, "expires_in must be a non-negative integer")
				return
			}
			// cap before converting so the duration cannot overflow
			if seconds > int64(a.service.MaxLifetime()/time.Second) {
				seconds = int64(a.service.MaxLifetime() / time.Second)
			}
			lifetime = time.Duration(seconds) * time.Second
		}

		token, err := a.service.IssueToken(r.Context(), appID, appSecret, lifetime)
		if err != nil {
			status, _ := errorStatus(err)
			a.metrics.issueFailures.WithLabelValues(strconv.Itoa(status)).Inc()
			a.writeError(w, r, err)
			return
		}

		a.metrics.tokensIssued.Inc()
		response := TokenResponse{
			AccessToken: token.Encoded(),
			TokenType:   "bearer",
			ExpiresIn:   int64(token.Lifetime() / time.Second),
			ExpiresAt:   token.Expiration().UTC().Format(time.RFC3339),
		}
		w.Header().Set("Cache-Control", "no-store")
		returnJson(&response, w)
	}
}
