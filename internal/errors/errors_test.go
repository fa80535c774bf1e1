package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	errs "github.com/edgard/botforge/internal/errors"
)

func TestCode(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("disk full")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, errs.CodeUnknown},
		{"plain", cause, errs.CodeUnknown},
		{"database", errs.NewDatabaseError("insert failed", cause), errs.CodeDatabase},
		{"validation", errs.NewValidationError("missing bot_name", nil), errs.CodeValidation},
		{"credential", errs.NewCredentialError("bad token", nil), errs.CodeCredential},
		{"process", errs.NewProcessError("start failed", cause), errs.CodeProcess},
		{"ownership", errs.NewOwnershipError("not found"), errs.CodeOwnership},
		{"config", errs.NewConfigError("token required", nil), errs.CodeConfig},
		{"wrapped", fmt.Errorf("create bot: %w", errs.NewProcessError("start failed", cause)), errs.CodeProcess},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := errs.Code(tt.err); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorAndMessage(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("exit status 1")
	err := errs.NewProcessError("failed to build bot", cause)

	if got, want := err.Error(), "failed to build bot: exit status 1"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got, want := errs.Message(err), "failed to build bot"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if got := errs.Message(cause); got != "exit status 1" {
		t.Errorf("Message(plain) = %q", got)
	}

	var perr *errs.ProcessError
	if !stderrors.As(fmt.Errorf("launch: %w", err), &perr) {
		t.Error("errors.As should find *ProcessError")
	}
	if !errs.Is(err, errs.CodeProcess) || errs.Is(nil, errs.CodeProcess) {
		t.Error("Is() returned the wrong result")
	}
}
