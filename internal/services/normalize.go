package services

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/utils"
)

// normalizeText trims whitespace and collapses multiple spaces to one.
func normalizeText(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// clip truncates s to max runes; max <= 0 disables clipping.
func clip(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}

// subjectCase capitalizes the first letter of each word of a subject name
// ("математика" -> "Математика") so list filters group consistently.
func subjectCase(tag language.Tag, s string) string {
	if tag == language.Und {
		tag = language.Russian
	}
	return cases.Title(tag, cases.NoLower).String(normalizeText(s))
}

// foldEmail lowercases and trims an email for storage and lookup.
func foldEmail(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// pageWindow applies pagination defaults and returns (page, size, offset).
func pageWindow(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	return page, pageSize, utils.Offset(page, pageSize)
}

// notFound maps gorm's missing-row error to the service sentinel and passes
// everything else through.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
