package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"git.sr.ht/~jakintosh/apigate/pkg/tokens"
	"go.uber.org/zap"
)

// AuthenticatedClient is the identity attached to a request that presented
// a valid bearer token.
type AuthenticatedClient struct {
	AppID string
	// AppName is the current name from storage
	AppName string
	// DisplayName is the name recorded in the token at issuance
	DisplayName string
	App         *ClientApp
	Token       *tokens.Token
}

// VerifyToken checks an encoded API token and confirms that the app it names
// still exists and is active. Storage is consulted on every call so that
// deactivation takes effect immediately.
func (s *Service) VerifyToken(
	ctx context.Context,
	encoded string,
) (
	*AuthenticatedClient,
	error,
) {
	token := &tokens.Token{}
	if err := token.Decode(encoded, s.tokenValidator, tokens.KindAPI); err != nil {
		s.log.Debug("token rejected", zap.String("reason", tokens.Context(err)))
		return nil, mapTokenError(err)
	}

	app, err := s.clientApps.FindByAppIdentifier(ctx, token.Subject())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: app no longer exists", ErrClientUnavailable)
		}
		return nil, fmt.Errorf("%w: failed to retrieve client app: %v", ErrInternal, err)
	}
	if !app.Active {
		return nil, fmt.Errorf("%w: app is inactive", ErrClientUnavailable)
	}

	return &AuthenticatedClient{
		AppID:       app.AppID,
		AppName:     app.Name,
		DisplayName: token.SubjectName(),
		App:         app,
		Token:       token,
	}, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, tokens.ErrTokenMalformed()):
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	case errors.Is(err, tokens.ErrTokenWrongKind()):
		return fmt.Errorf("%w: %w", ErrWrongTokenType, err)
	case errors.Is(err, tokens.ErrTokenMissingSubject()):
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidToken, err)
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
