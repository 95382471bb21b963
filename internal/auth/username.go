package auth

import (
	"fmt"
	"strings"

	"stok-takip/internal/models"

	"gorm.io/gorm"
)

// UsernameTaken reports whether a user of any restaurant already has
// username, ignoring case.
func UsernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	err := db.Model(&models.User{}).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		Count(&count).Error
	return count > 0, err
}

// uniqueUsername returns base, or base followed by " 2", " 3", ... when it
// is already taken.
func uniqueUsername(tx *gorm.DB, base string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		taken, err := UsernameTaken(tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s %d", base, i)
	}
}
