package utils

import (
	"errors"
	"fmt"
	"time"

	"post-reorder-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService JWT服务（admin session tokens）
type JWTService struct {
	secretKey []byte
	now       func() time.Time
}

// NewJWTService 创建JWT服务
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

// GenerateAccessToken 生成访问令牌
func (j *JWTService) GenerateAccessToken(user models.User, ttl time.Duration) (string, int64, error) {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	now := j.now()
	expiry := now.Add(ttl)

	claims := &models.TokenClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Capabilities: user.Capabilities,
		Type:         "access",
		Exp:          expiry.Unix(),
		Iat:          now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate access token: %w", err)
	}

	return tokenString, expiry.Unix(), nil
}

// ValidateToken 验证令牌
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithTimeFunc(j.now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.Type != "access" {
		return nil, fmt.Errorf("invalid token type: %s", claims.Type)
	}

	// 检查是否过期
	if j.now().Unix() > claims.Exp {
		return nil, fmt.Errorf("token expired")
	}

	return claims, nil
}

// ExtractUserFromToken 从令牌中提取用户信息
func (j *JWTService) ExtractUserFromToken(tokenString string) (*models.User, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:           claims.UserID,
		Email:        claims.Email,
		Capabilities: claims.Capabilities,
	}, nil
}

// ErrInvalidNonce is returned for any nonce that must not authorize the action.
var ErrInvalidNonce = errors.New("invalid nonce")
