// Package presets assembles Configurations for the built-in bot templates.
package presets

import (
	"fmt"
	"strings"

	"github.com/edgard/botforge/internal/botspec"
	errs "github.com/edgard/botforge/internal/errors"
	"github.com/edgard/botforge/internal/text"
)

// Template names a built-in preset.
type Template string

const (
	TemplateBusinessCard Template = "business_card"
	TemplateFAQ          Template = "faq"
)

// MaxFAQs bounds the number of questions collected interactively.
const MaxFAQs = 4

const (
	DefaultWelcome = "Hi! I am a business card bot.\nHere you can find all the information about me."
	DefaultHelp    = "Use /start to view the business card."
)

// BusinessCardInput is the raw, unescaped input of the business card template.
// Empty optional fields are omitted from the card.
type BusinessCardInput struct {
	Name    string
	Token   string
	Welcome string
	Phone   string
	Email   string
	Website string
	Help    string
}

// QA is a single FAQ entry in plain text.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// BusinessCard builds the six-handler business card configuration. Every
// free-text field is escaped exactly once.
func BusinessCard(in BusinessCardInput) (*botspec.Configuration, error) {
	welcome := in.Welcome
	if welcome == "" {
		welcome = DefaultWelcome
	}

	help := in.Help
	if help == "" {
		help = DefaultHelp
	}

	var start strings.Builder
	start.WriteString("*" + text.Escape(welcome) + `*\n\n📋 *Contact information:*\n`)

	if in.Website != "" {
		start.WriteString(`🌐 *Website:* ` + text.Escape(in.Website) + `\n`)
	}
	if in.Email != "" {
		start.WriteString(`📧 *Email:* ` + text.Escape(in.Email) + `\n`)
	}
	if in.Phone != "" {
		start.WriteString(`📞 *Phone:* ` + text.Escape(in.Phone) + `\n`)
	}
	if in.Website == "" && in.Email == "" && in.Phone == "" {
		start.WriteString(`ℹ️ No contact information provided\.\n`)
	}

	cfg := &botspec.Configuration{
		BotName: in.Name,
		Handlers: []botspec.Handler{
			{Command: "/start", Text: start.String()},
			{Command: "/help", Text: text.Escape(help)},
			{Command: "/create_bot", Text: `Start creating a new bot\.`},
			{Command: "/list_bots", Text: `Show the list of your bots\.`},
			{Command: "/delete_bot", Text: `Delete a bot\.`},
			{
				Command: "/menu",
				Text:    "Choose an action:",
				ReplyMarkup: &botspec.ReplyMarkup{InlineKeyboard: [][]botspec.Button{
					{
						{Text: "Create bot", CallbackData: "menu_create_bot", Response: `Let's create a bot\!`},
						{Text: "List bots", CallbackData: "menu_list_bots", Response: `Showing your bots\.`},
					},
					{
						{Text: "Delete bot", CallbackData: "menu_delete_bot", Response: `Choose a bot to delete\.`},
					},
				}},
			},
		},
	}

	if err := botspec.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FAQ builds a configuration with /start and a /faq keyboard holding one
// callback button per question.
func FAQ(name string, faqs []QA) (*botspec.Configuration, error) {
	if len(faqs) == 0 {
		return nil, errs.NewValidationError("at least one question and answer is required", nil)
	}

	rows := make([][]botspec.Button, 0, len(faqs))
	for i, qa := range faqs {
		rows = append(rows, []botspec.Button{{
			Text:         qa.Question,
			CallbackData: fmt.Sprintf("faq_%d", i+1),
			Response:     text.Escape(qa.Answer),
		}})
	}

	cfg := &botspec.Configuration{
		BotName: name,
		Handlers: []botspec.Handler{
			{Command: "/start", Text: `Welcome to the FAQ bot\! Use /faq to browse the questions\.`},
			{
				Command:     "/faq",
				Text:        `Frequently asked questions:\nChoose a question\.`,
				ReplyMarkup: &botspec.ReplyMarkup{InlineKeyboard: rows},
			},
		},
	}

	if err := botspec.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseFAQ parses a "question:answer" argument, splitting on the first colon.
func ParseFAQ(arg string) (QA, error) {
	question, answer, ok := strings.Cut(arg, ":")
	if !ok {
		return QA{}, errs.NewValidationError(fmt.Sprintf("expected question:answer, got %q", arg), nil)
	}

	qa := QA{Question: text.Normalize(question), Answer: text.Normalize(answer)}
	if !text.IsAllowedText(qa.Question) || !text.IsAllowedText(qa.Answer) {
		return QA{}, errs.NewValidationError("question or answer contains unsupported characters", nil)
	}

	return qa, nil
}
