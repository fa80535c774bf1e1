package main

import (
	"fmt"

	errs "github.com/edgard/botforge/internal/errors"
	"github.com/edgard/botforge/internal/presets"
	"github.com/edgard/botforge/internal/text"
)

// checkText normalizes a free-text argument and rejects characters outside
// the allow list.
func checkText(field, value string) (string, error) {
	normalized := text.Normalize(value)
	if !text.IsAllowedText(normalized) {
		return "", errs.NewValidationError(fmt.Sprintf("--%s contains unsupported characters", field), nil)
	}
	return normalized, nil
}

// businessCardArgs holds the raw flags of the business_card command.
type businessCardArgs struct {
	name, token, welcome, phone, email, website, help string
}

func (a businessCardArgs) input() (presets.BusinessCardInput, error) {
	in := presets.BusinessCardInput{Token: a.token, Email: a.email, Website: a.website}

	var err error
	if in.Name, err = checkText("name", a.name); err != nil {
		return in, err
	}
	if in.Welcome, err = checkText("welcome", a.welcome); err != nil {
		return in, err
	}
	if in.Help, err = checkText("help-text", a.help); err != nil {
		return in, err
	}

	if a.phone != "" {
		if in.Phone, err = presets.ValidatePhone(a.phone); err != nil {
			return in, err
		}
	}
	if a.email != "" {
		if err := presets.ValidateEmail(a.email); err != nil {
			return in, err
		}
	}
	if a.website != "" {
		if err := presets.ValidateWebsite(a.website); err != nil {
			return in, err
		}
	}

	return in, nil
}

// faqArgs parses every "question:answer" pair.
func faqArgs(pairs []string) ([]presets.QA, error) {
	if len(pairs) == 0 {
		return nil, errs.NewValidationError("at least one --faqs question:answer pair is required", nil)
	}

	faqs := make([]presets.QA, 0, len(pairs))
	for _, pair := range pairs {
		qa, err := presets.ParseFAQ(pair)
		if err != nil {
			return nil, err
		}
		faqs = append(faqs, qa)
	}
	return faqs, nil
}
