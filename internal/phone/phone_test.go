package phone

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		cc      string
		want    string
		wantErr error
	}{
		{"plus international", "+34 612 345 678", "", "34612345678", nil},
		{"double zero international", "0034 612-345-678", "", "34612345678", nil},
		{"national with default cc", "612 345 678", "34", "34612345678", nil},
		{"trunk zero dropped", "020 7946 0958", "44", "442079460958", nil},
		{"cc already present", "34612345678", "34", "34612345678", nil},
		{"national starting with cc digits", "392 123 4567", "39", "393921234567", nil},
		{"cc already present long", "39 392 123 4567", "39", "393921234567", nil},
		{"cc with plus", "612345678", "+34", "34612345678", nil},
		{"national without default", "5511987654321", "", "5511987654321", nil},
		{"parentheses and dots", "+1 (415) 555.0100", "", "14155550100", nil},
		{"international ignores default", "+55 11 98765 4321", "34", "5511987654321", nil},
		{"empty", "   ", "34", "", ErrEmpty},
		{"letters", "+34 612 ABC 678", "", "", ErrInvalidCharacters},
		{"too short", "+34 612", "", "", ErrInvalidLength},
		{"too long", "+1234567890123456", "", "", ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, tt.cc)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Normalize(%q, %q) error = %v, want %v", tt.raw, tt.cc, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q, %q) unexpected error = %v", tt.raw, tt.cc, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.raw, tt.cc, got, tt.want)
			}
		})
	}
}

func TestMask(t *testing.T) {
	tests := []struct{ in, want string }{
		{"34612345678", "*******5678"},
		{"1234", "1234"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
