package ui

import "testing"

func TestNotBlank(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"org-1", false},
		{"", true},
		{"   ", true},
	}

	for _, tt := range tests {
		if err := NotBlank(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("NotBlank(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
