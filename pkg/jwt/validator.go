package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/egov-portal/reserve-service/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrKeyNotInitialized = errors.New("public key not initialized")
	ErrMissingJTI        = errors.New("missing jti claim")
	ErrMissingSubject    = errors.New("missing sub claim")
	ErrTokenRevoked      = errors.New("token has been revoked")
)

// CustomClaims carries the portal identity and granted roles.
type CustomClaims struct {
	jwt.RegisteredClaims
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// HasRole reports whether the token grants the role.
func (c *CustomClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RevocationChecker looks up revoked token ids.
type RevocationChecker interface {
	IsJWTRevoked(ctx context.Context, jti string) (bool, error)
}

type Validator struct {
	publicKey    *rsa.PublicKey
	publicKeyURL string
	revocations  RevocationChecker
	httpClient   *http.Client
	mu           sync.RWMutex
}

func NewValidator(publicKeyURL string, revocations RevocationChecker, timeout time.Duration) *Validator {
	return &Validator{
		publicKeyURL: publicKeyURL,
		revocations:  revocations,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (v *Validator) Initialize(ctx context.Context) error {
	publicKey, err := v.fetchPublicKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch public key: %w", err)
	}

	v.setPublicKey(publicKey)

	logger.Info("JWT validator initialized with public key from auth service")
	return nil
}

func (v *Validator) setPublicKey(key *rsa.PublicKey) {
	v.mu.Lock()
	v.publicKey = key
	v.mu.Unlock()
}

func (v *Validator) fetchPublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.publicKeyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	keyData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}

	if block, _ := pem.Decode(keyData); block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	return publicKey, nil
}

func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*CustomClaims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))

	v.mu.RLock()
	publicKey := v.publicKey
	v.mu.RUnlock()

	if publicKey == nil {
		return nil, ErrKeyNotInitialized
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ID == "" {
		return nil, ErrMissingJTI
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	if v.revocations != nil {
		revoked, err := v.revocations.IsJWTRevoked(ctx, claims.ID)
		if err != nil {
			// Недоступность Redis не блокирует пользователей
			logger.Error("Failed to check token revocation", zap.Error(err))
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

func (v *Validator) RefreshPublicKey(ctx context.Context) error {
	publicKey, err := v.fetchPublicKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh public key: %w", err)
	}

	v.setPublicKey(publicKey)

	logger.Info("JWT public key refreshed")
	return nil
}

// RunRefresh refreshes the public key every interval until ctx is done.
func (v *Validator) RunRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.RefreshPublicKey(ctx); err != nil {
				logger.Error("Failed to refresh JWT public key", zap.Error(err))
			}
		}
	}
}
