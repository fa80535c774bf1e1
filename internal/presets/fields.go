package presets

import (
	"strings"

	"github.com/go-playground/validator/v10"

	errs "github.com/edgard/botforge/internal/errors"
)

var validate = validator.New()

// ValidateTokenFormat checks the <bot id>:<secret> shape of a token without
// contacting the platform.
func ValidateTokenFormat(token string) error {
	id, secret, ok := strings.Cut(token, ":")
	if !ok || strings.Contains(secret, ":") || id == "" || secret == "" || !isDigits(id) {
		return errs.NewCredentialError("invalid token format", nil)
	}

	return nil
}

// ValidatePhone normalizes a phone number (spaces and a tel: prefix are
// dropped) and requires "+" followed by at least six digits.
func ValidatePhone(phone string) (string, error) {
	p := strings.ReplaceAll(phone, " ", "")
	p = strings.TrimPrefix(p, "tel:")

	if len(p) < 7 || p[0] != '+' || !isDigits(p[1:]) {
		return "", errs.NewValidationError("phone number must start with '+' followed by at least 6 digits", nil)
	}

	return p, nil
}

// ValidateEmail checks an email address.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return errs.NewValidationError("invalid email address", err)
	}

	return nil
}

// ValidateWebsite requires an absolute http or https URL.
func ValidateWebsite(website string) error {
	if !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		return errs.NewValidationError("website must start with http:// or https://", nil)
	}

	if err := validate.Var(website, "url"); err != nil {
		return errs.NewValidationError("invalid website URL", err)
	}

	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
