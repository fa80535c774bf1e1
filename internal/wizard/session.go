// Package wizard implements the manager bot conversations as an explicit
// state machine. A Session is advanced by exactly one transition per
// inbound message and persisted in a Store between messages.
package wizard

import (
	"fmt"

	"github.com/edgard/botforge/internal/presets"
)

// State is the step a conversation is waiting on.
type State string

const (
	StateIdle            State = ""
	StateRegisterName    State = "register_name"
	StateRegisterConfirm State = "register_confirm"
	StateTemplate        State = "template"
	StateBotName         State = "bot_name"
	StateBotToken        State = "bot_token"
	StateWelcome         State = "welcome"
	StatePhone           State = "phone"
	StateEmail           State = "email"
	StateWebsite         State = "website"
	StateHelp            State = "help"
	StateFAQCount        State = "faq_count"
	StateFAQQuestion     State = "faq_question"
	StateFAQAnswer       State = "faq_answer"
	StateDeleteID        State = "delete_id"
	StateRestartID       State = "restart_id"
)

// Field keys collected during a conversation.
const (
	fieldName     = "name"
	fieldTemplate = "template"
	fieldBotName  = "bot_name"
	fieldToken    = "token"
	fieldWelcome  = "welcome"
	fieldPhone    = "phone"
	fieldEmail    = "email"
	fieldWebsite  = "website"
	fieldFAQCount = "faq_count"
	fieldQuestion = "question"
)

// Session is the persisted state of one conversation.
type Session struct {
	State  State             `json:"state"`
	Fields map[string]string `json:"fields,omitempty"`
	FAQs   []presets.QA      `json:"faqs,omitempty"`
}

// NewSession starts a conversation in the given state.
func NewSession(state State) *Session {
	return &Session{State: state, Fields: make(map[string]string)}
}

func (s *Session) set(key, value string) {
	if s.Fields == nil {
		s.Fields = make(map[string]string)
	}
	s.Fields[key] = value
}

// Key identifies the conversation of a user in a chat.
func Key(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}
