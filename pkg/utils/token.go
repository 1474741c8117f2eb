package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSecret 生成 URL-safe 的随机签名密钥，适合作为 JWT_SECRET
// n 为原始随机字节数，小于 32 时按 32 处理
func GenerateSecret(n int) (string, error) {
	if n < 32 {
		n = 32
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	// 使用 RawURLEncoding，值可以直接写进 .env 文件
	return base64.RawURLEncoding.EncodeToString(b), nil
}
