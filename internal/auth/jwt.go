package auth

import (
	"fmt"
	"time"

	"stok-takip/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is carried in the session cookie. The token id (jti) is the
// id of the backing Session row.
type SessionClaims struct {
	UserID   uint            `json:"uid"`
	TenantID uint            `json:"tid"`
	Role     models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func signToken(secret string, sess *models.Session, role models.UserRole) (string, error) {
	claims := &SessionClaims{
		UserID:   sess.UserID,
		TenantID: sess.TenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(secret, tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || claims.ID == "" {
		return nil, fmt.Errorf("session token has no id")
	}
	return claims, nil
}
