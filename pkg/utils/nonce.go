package utils

import (
	"fmt"
	"time"

	"post-reorder-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SortNonceAction is the action every reorder page nonce is scoped to.
const SortNonceAction = "sortnonce"

// NonceService issues and verifies action-scoped anti-forgery tokens.
// Nonces are signed with a key derived from the session secret, so a session
// token never verifies as a nonce and vice versa.
type NonceService struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewNonceService creates a nonce service; ttl bounds each nonce's lifetime.
func NewNonceService(secretKey string, ttl time.Duration) *NonceService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &NonceService{
		secretKey: []byte("nonce:" + secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Create issues a nonce for userID scoped to action.
func (n *NonceService) Create(userID, action string) (string, error) {
	now := n.now()
	claims := &models.NonceClaims{
		Action: action,
		UserID: userID,
		ID:     uuid.NewString(),
		Exp:    now.Add(n.ttl).Unix(),
		Iat:    now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(n.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign nonce: %w", err)
	}
	return token, nil
}

// Verify checks that nonce was issued by this service to userID for action
// and has not expired. Any failure wraps ErrInvalidNonce; callers must stop.
func (n *NonceService) Verify(nonce, userID, action string) error {
	if nonce == "" {
		return fmt.Errorf("%w: missing", ErrInvalidNonce)
	}
	token, err := jwt.ParseWithClaims(nonce, &models.NonceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return n.secretKey, nil
	}, jwt.WithTimeFunc(n.now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}
	claims, ok := token.Claims.(*models.NonceClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("%w: bad claims", ErrInvalidNonce)
	}
	if claims.Action != action {
		return fmt.Errorf("%w: issued for action %q", ErrInvalidNonce, claims.Action)
	}
	if claims.UserID != userID {
		return fmt.Errorf("%w: issued to another user", ErrInvalidNonce)
	}
	if n.now().Unix() > claims.Exp {
		return fmt.Errorf("%w: expired", ErrInvalidNonce)
	}
	return nil
}

// TTL is the lifetime of newly issued nonces.
func (n *NonceService) TTL() time.Duration { return n.ttl }
