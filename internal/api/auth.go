package api

import (
	"net/http"
	"time"
)

type MeResponse struct {
	AppID       string `json:"app_id"`
	AppName     string `json:"app_name"`
	Description string `json:"description"`
	TokenID     string `json:"token_id"`
	TokenType   string `json:"token_type"`
	IssuedAt    string `json:"issued_at"`
	ExpiresAt   string `json:"expires_at"`
}

// Me describes the client app behind the presented bearer token.
func (a *API) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := ClientFromContext(r.Context())
		if !ok {
			writeDetail(w, http.StatusUnauthorized, detailBearerRequired)
			return
		}

		response := MeResponse{
			AppID:       client.AppID,
			AppName:     client.AppName,
			Description: client.App.Description,
			TokenID:     client.Token.ID(),
			TokenType:   string(client.Token.Kind()),
			IssuedAt:    client.Token.IssuedAt().UTC().Format(time.RFC3339),
			ExpiresAt:   client.Token.Expiration().UTC().Format(time.RFC3339),
		}
		returnJson(&response, w)
	}
}
