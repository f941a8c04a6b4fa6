package security

import (
	"strings"
	"testing"

	"github.com/mroshb/islands/pkg/errors"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Alpha", "Alpha"},
		{"trims", "  Alpha  ", "Alpha"},
		{"strips tags", "<b>Alpha</b>", "Alpha"},
		{"strips script", "<script>alert(1)</script>Beta", "Beta"},
		{"strips NUL", "Al\x00pha", "Alpha"},
		{"strips control", "Al\tpha\n", "Alpha"},
		{"keeps unicode", "جزیره", "جزیره"},
		{"keeps ampersand", "Tom & Jerry", "Tom & Jerry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.input); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateIslandName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid", "Alpha", "Alpha", false},
		{"minimum", "abc", "abc", false},
		{"too short", "ab", "", true},
		{"too short after sanitising", "<i></i>a ", "", true},
		{"maximum", strings.Repeat("x", MaxIslandNameLength), strings.Repeat("x", MaxIslandNameLength), false},
		{"too long", strings.Repeat("x", MaxIslandNameLength+1), "", true},
		{"runes not bytes", "ابج", "ابج", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateIslandName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateIslandName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeValidationFailed) {
				t.Errorf("error code = %q, want VALIDATION_FAILED", errors.CodeOf(err))
			}
			if got != tt.want {
				t.Errorf("ValidateIslandName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
