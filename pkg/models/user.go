package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CapabilityEditPosts gates every reorder page and the post_sort action.
const CapabilityEditPosts = "edit_posts"

// User is the authenticated admin principal carried by a session token.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Can reports whether the user holds the capability.
func (u *User) Can(capability string) bool {
	if u == nil {
		return false
	}
	for _, c := range u.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// TokenClaims represents the session JWT claims
type TokenClaims struct {
	UserID       string   `json:"user_id"`
	Email        string   `json:"email"`
	Capabilities []string `json:"caps"`
	Type         string   `json:"type"` // always "access"
	Exp          int64    `json:"exp"`
	Iat          int64    `json:"iat"`
}

// GetExpirationTime implements jwt.Claims interface
func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

// GetNotBefore implements jwt.Claims interface
func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims interface
func (c *TokenClaims) GetSubject() (string, error) {
	return c.UserID, nil
}

// GetAudience implements jwt.Claims interface
func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

// NonceClaims is the anti-forgery token embedded in a reorder page.
// It is bound to one action and one principal.
type NonceClaims struct {
	Action string `json:"act"`
	UserID string `json:"uid"`
	ID     string `json:"jti"`
	Exp    int64  `json:"exp"`
	Iat    int64  `json:"iat"`
}

func (c *NonceClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

func (c *NonceClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

func (c *NonceClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

func (c *NonceClaims) GetIssuer() (string, error) { return "", nil }

func (c *NonceClaims) GetSubject() (string, error) { return c.UserID, nil }

func (c *NonceClaims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }
