package database

import (
	"context"
	"fmt"

	"git.sr.ht/~jakintosh/apigate/internal/service"
)

func (s *SQLiteStore) OperatorStore() service.OperatorStore {
	return s
}

func (s *SQLiteStore) InsertOperator(
	ctx context.Context,
	handle string,
	secret []byte,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operators (handle, secret)
		VALUES (?, ?);`,
		handle,
		secret,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: operator handle taken", service.ErrConflict)
		}
		return fmt.Errorf("couldn't insert into operators: %v", err)
	}
	return nil
}

func (s *SQLiteStore) GetOperatorSecret(
	ctx context.Context,
	handle string,
) (
	[]byte,
	error,
) {
	var secret []byte
	err := s.db.GetContext(ctx, &secret, `
		SELECT secret
		FROM operators o
		WHERE o.handle=?;`,
		handle,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't select operator secret: %w", err)
	}
	return secret, nil
}
