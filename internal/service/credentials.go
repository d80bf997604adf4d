package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/apigate/pkg/tokens"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// IssueToken exchanges an app identifier and secret for a signed API token.
// A lifetime of zero selects the default; lifetimes above the maximum are
// clamped. Every credential failure returns the same ErrInvalidCredentials.
func (s *Service) IssueToken(
	ctx context.Context,
	appID string,
	appSecret string,
	lifetime time.Duration,
) (
	*tokens.Token,
	error,
) {
	lifetime, err := s.effectiveLifetime(lifetime)
	if err != nil {
		return nil, err
	}

	app, err := s.authenticateClient(ctx, appID, appSecret)
	if err != nil {
		return nil, err
	}

	token, err := s.tokenIssuer.IssueToken(tokens.KindAPI, app.AppID, app.Name, lifetime)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to issue api token: %v", ErrInternal, err)
	}

	s.log.Debug("api token issued",
		zap.String("app_id", app.AppID),
		zap.String("token_id", token.ID()),
		zap.Duration("lifetime", lifetime),
	)
	return token, nil
}

func (s *Service) effectiveLifetime(requested time.Duration) (time.Duration, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: token lifetime must be positive", ErrInvalidInput)
	case requested == 0:
		return s.defaultLifetime, nil
	case requested > s.maxLifetime:
		return s.maxLifetime, nil
	}
	return requested, nil
}

func (s *Service) authenticateClient(
	ctx context.Context,
	appID string,
	appSecret string,
) (
	*ClientApp,
	error,
) {
	if appID == "" || appSecret == "" {
		return nil, ErrInvalidCredentials
	}

	app, err := s.clientApps.FindByAppIdentifier(ctx, appID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: failed to retrieve client app: %v", ErrInternal, err)
		}
		s.rejectClient(appSecret, "unknown app")
		return nil, ErrInvalidCredentials
	}
	if !app.Active {
		s.rejectClient(appSecret, "inactive app")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(app.SecretHash, []byte(appSecret)); err != nil {
		s.log.Info("credential exchange rejected", zap.String("reason", "secret mismatch"))
		return nil, ErrInvalidCredentials
	}

	return app, nil
}

// rejectClient burns one bcrypt comparison so unknown and inactive apps take
// as long to reject as a wrong secret.
func (s *Service) rejectClient(appSecret string, reason string) {
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(appSecret))
	s.log.Info("credential exchange rejected", zap.String("reason", reason))
}
