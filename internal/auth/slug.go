package auth

import (
	"fmt"
	"strings"
	"unicode"

	"stok-takip/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// letterFold spells out letters that have no decomposition into a base
// letter plus marks.
var letterFold = strings.NewReplacer(
	"ı", "i", "ß", "ss", "æ", "ae", "œ", "oe", "ø", "o", "ł", "l", "đ", "d", "þ", "th",
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases name, strips accents and joins the remaining ASCII
// alphanumeric runs with '-'. "Çiğköfte Evi" becomes "cigkofte-evi".
func Slugify(name string) string {
	folded, _, err := transform.String(stripMarks, letterFold.Replace(strings.ToLower(name)))
	if err != nil {
		folded = strings.ToLower(name)
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return "restaurant"
	}
	return b.String()
}

// uniqueSlug appends -1, -2, ... until the slug is unused.
func uniqueSlug(tx *gorm.DB, name string) (string, error) {
	base := Slugify(name)
	candidate := base
	for i := 1; ; i++ {
		var count int64
		if err := tx.Model(&models.Tenant{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
