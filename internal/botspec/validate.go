package botspec

import (
	"encoding/json"
	"fmt"
	"strings"

	errs "github.com/edgard/botforge/internal/errors"
)

// allowedURLPrefixes lists the schemes a url button may point to.
var allowedURLPrefixes = []string{"http://", "https://", "tel:"}

// Validate runs the structural check and then the schema check on cfg.
// The first failure is returned as a *errors.ValidationError.
func Validate(cfg *Configuration) error {
	if cfg == nil {
		return errs.NewValidationError("configuration is empty", nil)
	}

	doc, err := json.Marshal(cfg)
	if err != nil {
		return errs.NewValidationError("failed to encode configuration", err)
	}

	return ValidateJSON(doc)
}

// ValidateJSON validates a raw configuration document.
func ValidateJSON(doc []byte) error {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return errs.NewValidationError("configuration is not valid JSON", err)
	}

	if err := checkStructure(v); err != nil {
		return err
	}

	return checkSchema(v)
}

// Parse decodes and validates a stored configuration document.
func Parse(doc []byte) (*Configuration, error) {
	if err := ValidateJSON(doc); err != nil {
		return nil, err
	}

	var cfg Configuration
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return nil, errs.NewValidationError("configuration is not valid JSON", err)
	}

	return &cfg, nil
}

func checkStructure(v any) error {
	root, ok := v.(map[string]any)
	if !ok {
		return errs.NewValidationError("configuration must be a JSON object", nil)
	}

	var missing []string
	if _, ok := root["bot_name"]; !ok {
		missing = append(missing, "bot_name")
	}

	handlers, ok := root["handlers"].([]any)
	if !ok {
		missing = append(missing, "handlers")
	}

	if len(missing) > 0 {
		return errs.NewValidationError("missing required fields: "+strings.Join(missing, ", "), nil)
	}

	for i, raw := range handlers {
		if err := checkHandler(i, raw); err != nil {
			return err
		}
	}

	return nil
}

func checkHandler(index int, raw any) error {
	h, ok := raw.(map[string]any)
	if !ok {
		return errs.NewValidationError(fmt.Sprintf("handler #%d must be an object", index+1), nil)
	}

	name := fmt.Sprintf("#%d", index+1)
	if cmd, ok := h["command"].(string); ok && cmd != "" {
		name = cmd
	}

	_, hasCommand := h["command"]
	_, hasText := h["text"]

	if !hasCommand || !hasText {
		return errs.NewValidationError(fmt.Sprintf("handler %s is missing required fields: command, text", name), nil)
	}

	markup, ok := h["reply_markup"].(map[string]any)
	if !ok {
		return nil
	}

	rows, _ := markup["inline_keyboard"].([]any)
	for _, rawRow := range rows {
		row, _ := rawRow.([]any)
		for _, rawButton := range row {
			if err := checkButton(name, rawButton); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkButton(handler string, raw any) error {
	b, ok := raw.(map[string]any)
	if !ok {
		return errs.NewValidationError(fmt.Sprintf("button in %s must be an object", handler), nil)
	}

	label, hasText := b["text"].(string)
	url, hasURL := b["url"].(string)
	_, hasCallback := b["callback_data"]

	if !hasText || (!hasURL && !hasCallback) {
		return errs.NewValidationError(fmt.Sprintf("button in %s is missing text or url/callback_data", handler), nil)
	}

	if hasURL && hasCallback {
		return errs.NewValidationError(
			fmt.Sprintf("button %q in %s must have exactly one of url or callback_data", label, handler), nil)
	}

	if hasURL && !hasAllowedPrefix(url) {
		return errs.NewValidationError(fmt.Sprintf("invalid URL in button %q: %s", label, url), nil)
	}

	if hasCallback {
		if _, ok := b["response"]; !ok {
			return errs.NewValidationError(
				fmt.Sprintf("button %q in %s has callback_data but no response", label, handler), nil)
		}
	}

	return nil
}

func hasAllowedPrefix(url string) bool {
	for _, prefix := range allowedURLPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}

	return false
}
