package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minOperatorPasswordLength = 8

// RegisterOperator creates an operator account allowed to administer client
// applications.
func (s *Service) RegisterOperator(
	ctx context.Context,
	handle string,
	password string,
) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return fmt.Errorf("%w: operator handle is required", ErrInvalidInput)
	}
	if len(password) < minOperatorPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters",
			ErrInvalidInput, minOperatorPasswordLength)
	}

	hashPass, err := bcrypt.GenerateFromPassword([]byte(password), s.secretMode.Cost())
	if err != nil {
		return fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
	}

	err = s.operators.InsertOperator(ctx, handle, hashPass)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return fmt.Errorf("%w: operator %s already exists", ErrConflict, handle)
		}
		return fmt.Errorf("%w: failed to insert operator: %v", ErrInternal, err)
	}

	s.log.Info("operator registered", zap.String("operator", handle))
	return nil
}

func (s *Service) AuthenticateOperator(
	ctx context.Context,
	handle string,
	password string,
) error {
	hash, err := s.operators.GetOperatorSecret(ctx, handle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: failed to retrieve secret: %v", ErrInternal, err)
	}

	err = bcrypt.CompareHashAndPassword(hash, []byte(password))
	if err != nil {
		return ErrInvalidCredentials
	}

	return nil
}
