// Package validate normalizes and validates user-supplied review input:
// Kazakhstan license plates, ratings, and comment text.
package validate

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// MinCommentLen and MaxCommentLen bound comment length in runes.
	MinCommentLen = 10
	MaxCommentLen = 1000

	// maxRepeatRun is the longest permitted run of one repeated character.
	maxRepeatRun = 10

	minPlateLen = 6
	maxPlateLen = 10
)

var (
	plateJunkRe = regexp.MustCompile(`[^A-ZА-Я0-9]`)
	htmlTagRe   = regexp.MustCompile(`<[^>]+>`)
	multiWSRe   = regexp.MustCompile(`\s+`)
)

// CleanPlate strips everything but Latin/Cyrillic letters and digits and
// uppercases the result.
func CleanPlate(plate string) string {
	return plateJunkRe.ReplaceAllString(strings.ToUpper(plate), "")
}

// ValidatePlate checks a normalized Kazakhstan plate: 6 to 10 characters,
// trailing two digits forming a region code in [1, 20]. Returns an empty
// string when valid, otherwise a user-facing reason.
func ValidatePlate(plate string) string {
	// Cyrillic letters are multi-byte, so measure in runes.
	cleaned := []rune(CleanPlate(plate))

	if len(cleaned) < minPlateLen {
		return "❌ Номер слишком короткий"
	}
	if len(cleaned) > maxPlateLen {
		return "❌ Номер слишком длинный"
	}

	regionCode := string(cleaned[len(cleaned)-2:])
	region, err := strconv.Atoi(regionCode)
	if err != nil {
		return "❌ Код региона должен быть числом"
	}
	if region < 1 || region > 20 {
		return "❌ Неверный код региона: " + regionCode
	}

	return ""
}

// ValidRating reports whether the rating lies in [1, 5].
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

// ValidateComment checks comment length bounds and rejects degenerate
// repeated-character spam. Returns an empty string when valid.
func ValidateComment(comment string) string {
	if strings.TrimSpace(comment) == "" {
		return "❌ Комментарий не может быть пустым"
	}

	runes := []rune(comment)
	if len(runes) < MinCommentLen {
		return "❌ Комментарий слишком короткий (минимум 10 символов)"
	}
	if len(runes) > MaxCommentLen {
		return "❌ Комментарий слишком длинный (максимум 1000 символов)"
	}

	if hasRepeatRun(runes, maxRepeatRun+1) {
		return "❌ Обнаружен спам"
	}

	return ""
}

// hasRepeatRun reports whether the text contains a run of n or more
// identical characters. RE2 has no backreferences, so scan directly.
func hasRepeatRun(runes []rune, n int) bool {
	run := 0
	var prev rune
	for i, r := range runes {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run >= n {
			return true
		}
	}
	return false
}

// SanitizeText strips HTML tags and collapses whitespace in free text.
func SanitizeText(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "")
	text = multiWSRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
