package presets

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/edgard/botforge/internal/botspec"
	errs "github.com/edgard/botforge/internal/errors"
)

func TestBusinessCard(t *testing.T) {
	t.Parallel()

	cfg, err := BusinessCard(BusinessCardInput{
		Name:    "Shop",
		Token:   "123456:ABC",
		Welcome: "Hi",
		Email:   "a@b.com",
		Help:    "help me",
	})
	if err != nil {
		t.Fatalf("BusinessCard() error = %v", err)
	}

	wantCommands := []string{"/start", "/help", "/create_bot", "/list_bots", "/delete_bot", "/menu"}
	if diff := cmp.Diff(wantCommands, cfg.Commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}

	start := cfg.Handlers[0].Text
	if !strings.Contains(start, `a@b\.com`) {
		t.Errorf("/start text %q does not contain escaped email", start)
	}
	if strings.Contains(start, "Phone") || strings.Contains(start, "Website") {
		t.Errorf("/start text %q contains lines for missing fields", start)
	}
	if !strings.HasPrefix(start, "*Hi*") {
		t.Errorf("/start text %q does not start with the bold welcome", start)
	}

	if got := cfg.Handlers[1].Text; got != "help me" {
		t.Errorf("/help text = %q, want %q", got, "help me")
	}

	wantCallbacks := []string{"menu_create_bot", "menu_list_bots", "menu_delete_bot"}
	var gotCallbacks []string
	for _, cb := range cfg.Callbacks() {
		gotCallbacks = append(gotCallbacks, cb.Data)
	}
	if diff := cmp.Diff(wantCallbacks, gotCallbacks); diff != "" {
		t.Errorf("callbacks mismatch (-want +got):\n%s", diff)
	}
}

func TestBusinessCardWithoutContacts(t *testing.T) {
	t.Parallel()

	cfg, err := BusinessCard(BusinessCardInput{Name: "Shop"})
	if err != nil {
		t.Fatalf("BusinessCard() error = %v", err)
	}

	start := cfg.Handlers[0].Text
	if !strings.Contains(start, "No contact information provided") {
		t.Errorf("/start text %q lacks the no-contact line", start)
	}
	if !strings.Contains(start, `bot\.\nHere`) {
		t.Errorf("/start text %q does not carry the escaped default welcome", start)
	}
}

func TestBusinessCardAllContacts(t *testing.T) {
	t.Parallel()

	cfg, err := BusinessCard(BusinessCardInput{
		Name:    "Shop",
		Welcome: "Hello",
		Phone:   "+1234567",
		Email:   "x@y.org",
		Website: "https://shop.example",
		Help:    "h",
	})
	if err != nil {
		t.Fatalf("BusinessCard() error = %v", err)
	}

	want := `*Hello*\n\n📋 *Contact information:*\n` +
		`🌐 *Website:* https://shop\.example\n` +
		`📧 *Email:* x@y\.org\n` +
		`📞 *Phone:* \+1234567\n`
	if diff := cmp.Diff(want, cfg.Handlers[0].Text); diff != "" {
		t.Errorf("/start text mismatch (-want +got):\n%s", diff)
	}
}

func TestBusinessCardRequiresName(t *testing.T) {
	t.Parallel()

	_, err := BusinessCard(BusinessCardInput{})
	if !errs.Is(err, errs.CodeValidation) {
		t.Fatalf("BusinessCard() error = %v, want validation error", err)
	}
}

func TestFAQ(t *testing.T) {
	t.Parallel()

	cfg, err := FAQ("Help desk", []QA{
		{Question: "Hours?", Answer: "9-5."},
		{Question: "Where?", Answer: "Main st"},
	})
	if err != nil {
		t.Fatalf("FAQ() error = %v", err)
	}

	if diff := cmp.Diff([]string{"/start", "/faq"}, cfg.Commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}

	want := []botspec.Callback{
		{Data: "faq_1", Response: `9\-5\.`},
		{Data: "faq_2", Response: "Main st"},
	}
	if diff := cmp.Diff(want, cfg.Callbacks()); diff != "" {
		t.Errorf("callbacks mismatch (-want +got):\n%s", diff)
	}
}

func TestFAQRequiresQuestions(t *testing.T) {
	t.Parallel()

	if _, err := FAQ("x", nil); !errs.Is(err, errs.CodeValidation) {
		t.Fatalf("FAQ(nil) error = %v, want validation error", err)
	}
}

func TestParseFAQ(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg     string
		want    QA
		wantErr bool
	}{
		{arg: "When?: At 10:30", want: QA{Question: "When?", Answer: "At 10:30"}},
		{arg: "Price:100$", want: QA{Question: "Price", Answer: "100$"}},
		{arg: "no colon", wantErr: true},
		{arg: ":answer", wantErr: true},
		{arg: "q/:a", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFAQ(tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFAQ(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseFAQ(%q) mismatch (-want +got):\n%s", tt.arg, diff)
		}
	}
}
