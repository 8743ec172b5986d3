package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// adminSubject is the only principal the API knows about; refresh and job
// inspection are operator actions, not end-user ones.
const adminSubject = "admin"

const tokenTTL = 12 * time.Hour

var (
	ErrInvalidCreds = errors.New("invalid credentials")

	jwtSecretOnce    sync.Once
	jwtSecretRuntime []byte
	jwtSecretErr     error
)

func jwtSecretFromEnv() ([]byte, error) {
	jwtSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
		if secret != "" {
			jwtSecretRuntime = []byte(secret)
			return
		}

		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			jwtSecretErr = fmt.Errorf("failed to generate JWT fallback secret: %w", err)
			return
		}

		jwtSecretRuntime = []byte(base64.RawURLEncoding.EncodeToString(buf))
		log.Print("[auth] JWT_SECRET is not set; using ephemeral in-memory fallback secret")
	})

	if jwtSecretErr != nil {
		return nil, jwtSecretErr
	}
	if len(jwtSecretRuntime) == 0 {
		return nil, errors.New("JWT secret unavailable")
	}

	return jwtSecretRuntime, nil
}

// Service verifies the admin secret and mints short-lived tokens for the
// protected endpoints. The secret is supplied either as a bcrypt hash
// (ADMIN_SECRET_HASH, preferred) or in the clear (ADMIN_SECRET, local
// development).
type Service struct {
	secretHash  string
	plainSecret string
}

func NewService() *Service {
	return &Service{
		secretHash:  strings.TrimSpace(os.Getenv("ADMIN_SECRET_HASH")),
		plainSecret: strings.TrimSpace(os.Getenv("ADMIN_SECRET")),
	}
}

// Enabled reports whether any admin secret is configured. With neither env
// var set the admin endpoints reject every login.
func (s *Service) Enabled() bool {
	return s.secretHash != "" || s.plainSecret != ""
}

// Login checks the supplied secret and returns a signed token on success.
func (s *Service) Login(secret string) (string, error) {
	if !s.Enabled() {
		return "", ErrInvalidCreds
	}

	if s.secretHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.secretHash), []byte(secret)); err != nil {
			return "", ErrInvalidCreds
		}
	} else if subtle.ConstantTimeCompare([]byte(s.plainSecret), []byte(secret)) != 1 {
		return "", ErrInvalidCreds
	}

	return generateToken()
}

func generateToken() (string, error) {
	secretKey, err := jwtSecretFromEnv()
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"sub": adminSubject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}
