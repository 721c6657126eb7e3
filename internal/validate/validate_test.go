package validate

import (
	"strings"
	"testing"
)

func TestCleanPlate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"123 abc 02", "123ABC02"},
		{"а 123 вс 05", "А123ВС05"},
		{"123-ABC-02", "123ABC02"},
		{"  777aaa17  ", "777AAA17"},
	}
	for _, tc := range cases {
		if got := CleanPlate(tc.in); got != tc.want {
			t.Errorf("CleanPlate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidatePlate(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{"123ABC02", true},
		{"123abc02", true},
		{"A123BC01", true},
		{"123ABC20", true},
		{"А123ВС05", true},
		{"а 123 вс 05", true},
		{"777КАЗ16", true},
		{"АВ12345678КЕ02", false},
		{"А12В05", true},
		{"123ABC21", false},
		{"123ВС99", false},
		{"123ABC00", false},
		{"123ABCXX", false},
		{"12302", false},
		{"123ABCDEF02", false},
		{"", false},
	}
	for _, tc := range cases {
		reason := ValidatePlate(tc.in)
		if (reason == "") != tc.valid {
			t.Errorf("ValidatePlate(%q) = %q, want valid=%v", tc.in, reason, tc.valid)
		}
	}
}

func TestValidRating(t *testing.T) {
	for _, r := range []int{1, 2, 3, 4, 5} {
		if !ValidRating(r) {
			t.Errorf("rating %d must be valid", r)
		}
	}
	for _, r := range []int{0, -1, 6, 100} {
		if ValidRating(r) {
			t.Errorf("rating %d must be invalid", r)
		}
	}
}

func TestValidateComment(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		valid bool
	}{
		{"ok", "Нормальный отзыв о водителе", true},
		{"exactly min", strings.Repeat("ab", 5), true},
		{"too short", "короткий", false},
		{"empty", "   ", false},
		{"too long", strings.Repeat("о", MaxCommentLen+1), false},
		{"exactly max", strings.Repeat("ab", MaxCommentLen/2), true},
		{"spam run of 11", "отзыв ааааааааааа тут", false},
		{"run of 10 allowed", "отзыв аааааааааа тут", true},
	}
	for _, tc := range cases {
		reason := ValidateComment(tc.in)
		if (reason == "") != tc.valid {
			t.Errorf("%s: ValidateComment = %q, want valid=%v", tc.name, reason, tc.valid)
		}
	}
}

func TestRegionName(t *testing.T) {
	cases := []struct {
		plate, want string
	}{
		{"123ABC01", "Астана"},
		{"123ABC02", "Алматы"},
		{"123ABC17", "Шымкент"},
		{"123ABC20", "Улытауская обл."},
		{"123ABC99", "Регион не определен"},
		{"1", "Регион не определен"},
	}
	for _, tc := range cases {
		if got := RegionName(tc.plate); got != tc.want {
			t.Errorf("RegionName(%q) = %q, want %q", tc.plate, got, tc.want)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	if got := SanitizeText("<b>жалоба</b>   на\n\nводителя"); got != "жалоба на водителя" {
		t.Errorf("SanitizeText = %q", got)
	}
}
