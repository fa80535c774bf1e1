// Package botspec defines the Configuration document describing a generated
// bot and validates it structurally and against an embedded JSON schema.
package botspec

// Configuration is the declarative description of a generated bot.
// Handler order is significant: it is the registration order in the artifact.
type Configuration struct {
	BotName  string    `json:"bot_name"`
	Handlers []Handler `json:"handlers"`
}

// Handler replies to a slash command with pre-escaped MarkdownV2 text.
type Handler struct {
	Command     string       `json:"command"`
	Text        string       `json:"text"`
	ReplyMarkup *ReplyMarkup `json:"reply_markup,omitempty"`
}

// ReplyMarkup is an inline keyboard made of ordered rows of buttons.
type ReplyMarkup struct {
	InlineKeyboard [][]Button `json:"inline_keyboard"`
}

// Button is an inline keyboard button. Exactly one of URL or CallbackData is set.
// Response is only consumed by the generator to synthesize the callback reply.
type Button struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
	Response     string `json:"response,omitempty"`
}

// IsCallback reports whether the button triggers a callback query.
func (b Button) IsCallback() bool {
	return b.CallbackData != ""
}

// Callback is a callback_data key together with the text sent when it fires.
type Callback struct {
	Data     string
	Response string
}

// Commands returns the handler commands in declaration order.
func (c *Configuration) Commands() []string {
	commands := make([]string, 0, len(c.Handlers))
	for _, h := range c.Handlers {
		commands = append(commands, h.Command)
	}

	return commands
}

// Callbacks returns one entry per callback button, in keyboard order.
func (c *Configuration) Callbacks() []Callback {
	var callbacks []Callback

	for _, h := range c.Handlers {
		if h.ReplyMarkup == nil {
			continue
		}

		for _, row := range h.ReplyMarkup.InlineKeyboard {
			for _, b := range row {
				if b.IsCallback() {
					callbacks = append(callbacks, Callback{Data: b.CallbackData, Response: b.Response})
				}
			}
		}
	}

	return callbacks
}
