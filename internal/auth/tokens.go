package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Claims identifies the operator account behind a request. There is
// only one role surface here (operator accounts gating /api/v1/*); no
// tenant/visitor distinction.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

var (
	loadSecretOnce sync.Once
	jwtSecret      []byte
	loadSecretErr  error
)

func ensureSecret(secret string) error {
	loadSecretOnce.Do(func() {
		if len(secret) < 32 {
			loadSecretErr = fmt.Errorf("JWT_SECRET must be at least 32 characters")
			return
		}
		jwtSecret = []byte(secret)
	})
	return loadSecretErr
}

// IssueToken signs a single access token, storing its jti in Redis so
// it can be revoked before it naturally expires.
func IssueToken(secret, userID, username, role string, ttl time.Duration, rdb *redis.Client) (string, time.Time, error) {
	if err := ensureSecret(secret); err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	jti := uuid.NewString()
	exp := now.Add(ttl)

	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "editais-ingestor",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	ctx := context.Background()
	if err := rdb.Set(ctx, "token:"+jti, userID, ttl).Err(); err != nil {
		return "", time.Time{}, err
	}

	return signed, exp, nil
}

// ValidateToken parses and checks revocation for an access token.
func ValidateToken(tokenString string, rdb *redis.Client) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	ctx := context.Background()
	exists, err := rdb.Exists(ctx, "token:"+claims.ID).Result()
	if err != nil || exists != 1 {
		return nil, errors.New("token revoked or expired")
	}

	return claims, nil
}

// RevokeToken removes a token's jti from Redis, invalidating it
// immediately regardless of its remaining expiry.
func RevokeToken(jti string, rdb *redis.Client) error {
	ctx := context.Background()
	return rdb.Del(ctx, "token:"+jti).Err()
}
