package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

const (
	appIDLength     = 16
	appIDAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	secretByteCount = 32
)

func runningTests() bool {
	return testing.Testing()
}

func generateAppID() (string, error) {
	max := big.NewInt(int64(len(appIDAlphabet)))
	id := make([]byte, appIDLength)
	for i := range id {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random app id: %v", err)
		}
		id[i] = appIDAlphabet[n.Int64()]
	}
	return string(id), nil
}

func generateSecret() (string, error) {
	randomBytes := make([]byte, secretByteCount)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random secret bytes: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

func (s *Service) hashSecret(secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(secret), s.secretMode.Cost())
}

// newSecret returns a fresh app secret together with its hash.
func (s *Service) newSecret() (string, []byte, error) {
	secret, err := generateSecret()
	if err != nil {
		return "", nil, err
	}
	hash, err := s.hashSecret(secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash secret: %v", err)
	}
	return secret, hash, nil
}
