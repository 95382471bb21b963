package auth

import (
	"errors"
	"strings"
	"time"

	"stok-takip/internal/config"
	"stok-takip/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errSessionGone = errors.New("session expired or revoked")

// StartSession persists a new session for user and returns its signed token.
func StartSession(db *gorm.DB, cfg *config.Config, user *models.User, userAgent, ip string) (string, *models.Session, error) {
	now := time.Now().UTC()
	sess := &models.Session{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		TenantID:   user.TenantID,
		ExpiresAt:  now.Add(cfg.SessionTTL),
		UserAgent:  truncate(userAgent, 255),
		IP:         truncate(ip, 64),
		LastSeenAt: now,
	}
	if err := db.Create(sess).Error; err != nil {
		return "", nil, err
	}

	token, err := signToken(cfg.SessionSecret, sess, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

func loadSession(db *gorm.DB, claims *SessionClaims) (*models.Session, error) {
	var sess models.Session
	if err := db.First(&sess, "id = ?", claims.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSessionGone
		}
		return nil, err
	}
	if sess.UserID != claims.UserID || sess.TenantID != claims.TenantID {
		return nil, errSessionGone
	}
	if time.Now().After(sess.ExpiresAt) {
		db.Delete(&models.Session{}, "id = ?", sess.ID)
		return nil, errSessionGone
	}
	return &sess, nil
}

// renewSession slides the expiry forward once less than half of the TTL is
// left. It returns the new token, or "" when no renewal was due.
func renewSession(db *gorm.DB, cfg *config.Config, sess *models.Session, role models.UserRole) (string, error) {
	now := time.Now().UTC()
	if sess.ExpiresAt.Sub(now) > cfg.SessionTTL/2 {
		return "", nil
	}

	sess.ExpiresAt = now.Add(cfg.SessionTTL)
	sess.LastSeenAt = now
	if err := db.Model(sess).Updates(map[string]interface{}{
		"expires_at":   sess.ExpiresAt,
		"last_seen_at": sess.LastSeenAt,
	}).Error; err != nil {
		return "", err
	}
	return signToken(cfg.SessionSecret, sess, role)
}

func EndSession(db *gorm.DB, id string) error {
	return db.Delete(&models.Session{}, "id = ?", id).Error
}

// RevokeUserSessions deletes every session of the user except keep.
func RevokeUserSessions(db *gorm.DB, userID uint, keep string) error {
	q := db.Where("user_id = ?", userID)
	if keep != "" {
		q = q.Where("id <> ?", keep)
	}
	return q.Delete(&models.Session{}).Error
}

func setSessionCookie(c *fiber.Ctx, cfg *config.Config, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearSessionCookie(c *fiber.Ctx, cfg *config.Config) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// tokenFromRequest reads the session cookie, then a Bearer header.
func tokenFromRequest(c *fiber.Ctx, cfg *config.Config) string {
	if v := c.Cookies(cfg.SessionCookieName); v != "" {
		return v
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
