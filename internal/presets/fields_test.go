package presets

import (
	"testing"

	errs "github.com/edgard/botforge/internal/errors"
)

func TestValidateTokenFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		valid bool
	}{
		{"123456:ABC", true},
		{"123456789:AAH-xyz_123", true},
		{"", false},
		{"123456", false},
		{"abc:def", false},
		{"123:456:789", false},
		{":secret", false},
		{"123:", false},
	}

	for _, tt := range tests {
		err := ValidateTokenFormat(tt.token)
		if tt.valid && err != nil {
			t.Errorf("ValidateTokenFormat(%q) error = %v", tt.token, err)
		}
		if !tt.valid && !errs.Is(err, errs.CodeCredential) {
			t.Errorf("ValidateTokenFormat(%q) = %v, want credential error", tt.token, err)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "+79522046894", want: "+79522046894"},
		{in: "tel:+1 234 567", want: "+1234567"},
		{in: "+12345", wantErr: true},
		{in: "79522046894", wantErr: true},
		{in: "+7952abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ValidatePhone(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePhone(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidatePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateEmailAndWebsite(t *testing.T) {
	t.Parallel()

	if err := ValidateEmail("user@example.com"); err != nil {
		t.Errorf("ValidateEmail() error = %v", err)
	}
	if err := ValidateEmail("not-an-email"); !errs.Is(err, errs.CodeValidation) {
		t.Errorf("ValidateEmail(invalid) = %v, want validation error", err)
	}

	if err := ValidateWebsite("https://example.com/about"); err != nil {
		t.Errorf("ValidateWebsite() error = %v", err)
	}
	for _, bad := range []string{"example.com", "ftp://example.com"} {
		if err := ValidateWebsite(bad); !errs.Is(err, errs.CodeValidation) {
			t.Errorf("ValidateWebsite(%q) = %v, want validation error", bad, err)
		}
	}
}
