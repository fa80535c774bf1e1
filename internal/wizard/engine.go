package wizard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/edgard/botforge/internal/botspec"
	"github.com/edgard/botforge/internal/database"
	errs "github.com/edgard/botforge/internal/errors"
	"github.com/edgard/botforge/internal/presets"
	"github.com/edgard/botforge/internal/text"
)

// Callback data of the manager bot keyboards.
const (
	CallbackMenuCreate           = "menu_create_bot"
	CallbackMenuList             = "menu_list_bots"
	CallbackMenuDelete           = "menu_delete_bot"
	CallbackTemplatePrefix       = "template_"
	CallbackTemplateBusinessCard = CallbackTemplatePrefix + string(presets.TemplateBusinessCard)
	CallbackTemplateFAQ          = CallbackTemplatePrefix + string(presets.TemplateFAQ)
)

const (
	commandSkip   = "/skip"
	commandCancel = "/cancel"
)

// Service is the bot management API the conversations drive.
type Service interface {
	IsRegistered(ctx context.Context, userID int64) (bool, error)
	RegisterUser(ctx context.Context, user *database.User) (bool, error)
	VerifyToken(ctx context.Context, token string) error
	CreateBot(ctx context.Context, userID int64, token string, cfg *botspec.Configuration) (int64, error)
	ListBots(ctx context.Context, userID int64) ([]database.BotSummary, error)
	DeleteBot(ctx context.Context, configID, userID int64) error
	RestartBot(ctx context.Context, configID, userID int64) error
}

// Input is one inbound message or button press.
type Input struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Text      string
}

func (in Input) key() string {
	return Key(in.ChatID, in.UserID)
}

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Reply is the plain, unescaped answer to an Input.
type Reply struct {
	Text     string
	Keyboard [][]Button
}

var (
	menuKeyboard = [][]Button{
		{{Text: "Create bot", Data: CallbackMenuCreate}, {Text: "List bots", Data: CallbackMenuList}},
		{{Text: "Delete bot", Data: CallbackMenuDelete}},
	}
	templateKeyboard = [][]Button{
		{{Text: "Business card", Data: CallbackTemplateBusinessCard}, {Text: "FAQ", Data: CallbackTemplateFAQ}},
	}
)

// Engine advances conversations. Inputs of one conversation are handled one
// at a time; different conversations proceed concurrently.
type Engine struct {
	svc    Service
	store  Store
	logger *slog.Logger

	mu    sync.Mutex
	convs map[string]*convLock
}

type convLock struct {
	sync.Mutex
	refs int
}

// lock serializes inputs of in's conversation and returns the unlock function.
func (e *Engine) lock(in Input) func() {
	key := in.key()

	e.mu.Lock()
	l, ok := e.convs[key]
	if !ok {
		l = &convLock{}
		e.convs[key] = l
	}
	l.refs++
	e.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.convs, key)
		}
		e.mu.Unlock()
	}
}

func NewEngine(svc Service, store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		svc:    svc,
		store:  store,
		logger: logger.With("component", "wizard"),
		convs:  make(map[string]*convLock),
	}
}

// Start greets registered users with the menu and starts registration otherwise.
func (e *Engine) Start(ctx context.Context, in Input) Reply {
	defer e.lock(in)()

	registered, err := e.svc.IsRegistered(ctx, in.UserID)
	if err != nil {
		return e.fail(ctx, in, err)
	}
	if registered {
		e.clear(ctx, in)
		return Reply{Text: msgWelcomeBack, Keyboard: menuKeyboard}
	}
	return e.begin(ctx, in, StateRegisterName, Reply{Text: msgAskName})
}

func (e *Engine) Help(context.Context, Input) Reply {
	return Reply{Text: msgHelp}
}

func (e *Engine) Menu(context.Context, Input) Reply {
	return Reply{Text: msgMenu, Keyboard: menuKeyboard}
}

// Cancel aborts whatever flow is in progress.
func (e *Engine) Cancel(ctx context.Context, in Input) Reply {
	defer e.lock(in)()
	return e.cancel(ctx, in)
}

func (e *Engine) cancel(ctx context.Context, in Input) Reply {
	s, err := e.store.Get(ctx, in.key())
	if err != nil {
		return e.fail(ctx, in, err)
	}
	if s == nil || s.State == StateIdle {
		return Reply{Text: msgNothingToCancel}
	}
	e.clear(ctx, in)
	return Reply{Text: msgCancelled}
}

func (e *Engine) CreateBot(ctx context.Context, in Input) Reply {
	defer e.lock(in)()
	return e.createBot(ctx, in)
}

func (e *Engine) createBot(ctx context.Context, in Input) Reply {
	if reply, ok := e.requireRegistration(ctx, in); !ok {
		return reply
	}
	return e.begin(ctx, in, StateTemplate, Reply{Text: msgChooseTemplate, Keyboard: templateKeyboard})
}

func (e *Engine) ListBots(ctx context.Context, in Input) Reply {
	if reply, ok := e.requireRegistration(ctx, in); !ok {
		return reply
	}

	list, err := e.botList(ctx, in.UserID)
	if err != nil {
		return e.fail(ctx, in, err)
	}
	if list == "" {
		return Reply{Text: msgNoBots}
	}
	return Reply{Text: list}
}

// botList renders the user's bots, or "" if there are none.
func (e *Engine) botList(ctx context.Context, userID int64) (string, error) {
	bots, err := e.svc.ListBots(ctx, userID)
	if err != nil || len(bots) == 0 {
		return "", err
	}

	lines := []string{msgBotList}
	for _, b := range bots {
		status := "stopped"
		if b.Running() {
			status = "running"
		}
		lines = append(lines, fmt.Sprintf(msgBotLine, b.ConfigID, b.BotName, status))
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Engine) DeleteBot(ctx context.Context, in Input) Reply {
	defer e.lock(in)()
	return e.askForID(ctx, in, StateDeleteID, msgAskDeleteID)
}

func (e *Engine) RestartBot(ctx context.Context, in Input) Reply {
	defer e.lock(in)()
	return e.askForID(ctx, in, StateRestartID, msgAskRestartID)
}

func (e *Engine) askForID(ctx context.Context, in Input, state State, prompt string) Reply {
	if reply, ok := e.requireRegistration(ctx, in); !ok {
		return reply
	}

	list, err := e.botList(ctx, in.UserID)
	if err != nil {
		return e.fail(ctx, in, err)
	}
	if list == "" {
		return Reply{Text: msgNoBots}
	}
	return e.begin(ctx, in, state, Reply{Text: list + "\n\n" + prompt})
}

// Callback handles an inline keyboard button press.
func (e *Engine) Callback(ctx context.Context, in Input) Reply {
	defer e.lock(in)()

	switch in.Text {
	case CallbackMenuCreate:
		return e.createBot(ctx, in)
	case CallbackMenuList:
		return e.ListBots(ctx, in)
	case CallbackMenuDelete:
		return e.askForID(ctx, in, StateDeleteID, msgAskDeleteID)
	}

	if template, ok := strings.CutPrefix(in.Text, CallbackTemplatePrefix); ok {
		return e.chooseTemplate(ctx, in, presets.Template(template))
	}

	return Reply{Text: msgUnknownInput}
}

func (e *Engine) chooseTemplate(ctx context.Context, in Input, template presets.Template) Reply {
	s, err := e.store.Get(ctx, in.key())
	if err != nil {
		return e.fail(ctx, in, err)
	}
	if s == nil || s.State != StateTemplate {
		return Reply{Text: msgUnknownInput}
	}
	if template != presets.TemplateBusinessCard && template != presets.TemplateFAQ {
		return Reply{Text: msgChooseFromMenu}
	}

	s.set(fieldTemplate, string(template))
	return e.advance(ctx, in, s, StateBotName, msgAskBotName)
}

// Message handles free text according to the conversation state.
func (e *Engine) Message(ctx context.Context, in Input) Reply {
	defer e.lock(in)()

	if strings.TrimSpace(in.Text) == commandCancel {
		return e.cancel(ctx, in)
	}

	s, err := e.store.Get(ctx, in.key())
	if err != nil {
		return e.fail(ctx, in, err)
	}
	if s == nil {
		return Reply{Text: msgUnknownInput}
	}

	input := text.Normalize(in.Text)
	skip := input == commandSkip

	switch s.State {
	case StateRegisterName:
		if !text.IsAllowedText(input) {
			return Reply{Text: fmt.Sprintf(msgInvalidText, "name")}
		}
		s.set(fieldName, input)
		return e.advance(ctx, in, s, StateRegisterConfirm, fmt.Sprintf(msgConfirmName, input))

	case StateRegisterConfirm:
		return e.confirmRegistration(ctx, in, s, input)

	case StateTemplate:
		return Reply{Text: msgChooseFromMenu, Keyboard: templateKeyboard}

	case StateBotName:
		if !text.IsAllowedText(input) {
			return Reply{Text: fmt.Sprintf(msgInvalidText, "bot name")}
		}
		s.set(fieldBotName, input)
		return e.advance(ctx, in, s, StateBotToken, msgAskToken)

	case StateBotToken:
		token := strings.TrimSpace(in.Text)
		if err := e.svc.VerifyToken(ctx, token); err != nil {
			if errs.Is(err, errs.CodeCredential) {
				return Reply{Text: fmt.Sprintf(msgInvalidToken, errorText(err))}
			}
			return e.fail(ctx, in, err)
		}
		s.set(fieldToken, token)
		if presets.Template(s.Fields[fieldTemplate]) == presets.TemplateFAQ {
			return e.advance(ctx, in, s, StateFAQCount, msgAskFAQCount)
		}
		return e.advance(ctx, in, s, StateWelcome, msgAskWelcome)

	case StateWelcome:
		welcome := presets.DefaultWelcome
		if !skip {
			if !text.IsAllowedText(input) {
				return Reply{Text: fmt.Sprintf(msgInvalidText, "welcome text")}
			}
			welcome = input
		}
		s.set(fieldWelcome, welcome)
		return e.advance(ctx, in, s, StatePhone, msgAskPhone)

	case StatePhone:
		if !skip {
			phone, err := presets.ValidatePhone(input)
			if err != nil {
				return Reply{Text: fmt.Sprintf(msgInvalidField, errs.Message(err))}
			}
			s.set(fieldPhone, phone)
		}
		return e.advance(ctx, in, s, StateEmail, msgAskEmail)

	case StateEmail:
		if !skip {
			if err := presets.ValidateEmail(input); err != nil {
				return Reply{Text: fmt.Sprintf(msgInvalidField, errs.Message(err))}
			}
			s.set(fieldEmail, input)
		}
		return e.advance(ctx, in, s, StateWebsite, msgAskWebsite)

	case StateWebsite:
		if !skip {
			if err := presets.ValidateWebsite(input); err != nil {
				return Reply{Text: fmt.Sprintf(msgInvalidField, errs.Message(err))}
			}
			s.set(fieldWebsite, input)
		}
		return e.advance(ctx, in, s, StateHelp, msgAskHelp)

	case StateHelp:
		help := presets.DefaultHelp
		if !skip {
			if !text.IsAllowedText(input) {
				return Reply{Text: fmt.Sprintf(msgInvalidText, "help text")}
			}
			help = input
		}
		return e.finishBusinessCard(ctx, in, s, help)

	case StateFAQCount:
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > presets.MaxFAQs {
			return Reply{Text: msgInvalidFAQCount}
		}
		s.set(fieldFAQCount, strconv.Itoa(n))
		return e.advance(ctx, in, s, StateFAQQuestion, fmt.Sprintf(msgAskQuestion, 1))

	case StateFAQQuestion:
		if !text.IsAllowedText(input) {
			return Reply{Text: fmt.Sprintf(msgInvalidText, "question")}
		}
		s.set(fieldQuestion, input)
		return e.advance(ctx, in, s, StateFAQAnswer, fmt.Sprintf(msgAskAnswer, input))

	case StateFAQAnswer:
		if !text.IsAllowedText(input) {
			return Reply{Text: fmt.Sprintf(msgInvalidText, "answer")}
		}
		s.FAQs = append(s.FAQs, presets.QA{Question: s.Fields[fieldQuestion], Answer: input})
		count, _ := strconv.Atoi(s.Fields[fieldFAQCount])
		if len(s.FAQs) < count {
			return e.advance(ctx, in, s, StateFAQQuestion, fmt.Sprintf(msgAskQuestion, len(s.FAQs)+1))
		}
		return e.finishFAQ(ctx, in, s)

	case StateDeleteID, StateRestartID:
		return e.actOnID(ctx, in, s.State, input)
	}

	return Reply{Text: msgUnknownInput}
}

func (e *Engine) confirmRegistration(ctx context.Context, in Input, s *Session, answer string) Reply {
	switch strings.ToLower(answer) {
	case "yes", "y", "да":
	case "no", "n", "нет":
		return e.advance(ctx, in, s, StateRegisterName, msgAskName)
	default:
		return Reply{Text: msgAnswerYesNo}
	}

	name := s.Fields[fieldName]
	created, err := e.svc.RegisterUser(ctx, &database.User{
		UserID:    in.UserID,
		Username:  in.Username,
		FirstName: name,
		LastName:  in.LastName,
	})
	e.clear(ctx, in)
	if err != nil {
		return e.fail(ctx, in, err)
	}
	if !created {
		return Reply{Text: msgAlreadyRegistered, Keyboard: menuKeyboard}
	}

	e.logger.InfoContext(ctx, "User registered", "user_id", in.UserID)
	return Reply{Text: fmt.Sprintf(msgRegistered, name), Keyboard: menuKeyboard}
}

func (e *Engine) finishBusinessCard(ctx context.Context, in Input, s *Session, help string) Reply {
	cfg, err := presets.BusinessCard(presets.BusinessCardInput{
		Name:    s.Fields[fieldBotName],
		Token:   s.Fields[fieldToken],
		Welcome: s.Fields[fieldWelcome],
		Phone:   s.Fields[fieldPhone],
		Email:   s.Fields[fieldEmail],
		Website: s.Fields[fieldWebsite],
		Help:    help,
	})
	if err != nil {
		e.clear(ctx, in)
		return Reply{Text: fmt.Sprintf(msgCreateFailed, errorText(err))}
	}
	return e.create(ctx, in, s, cfg)
}

func (e *Engine) finishFAQ(ctx context.Context, in Input, s *Session) Reply {
	cfg, err := presets.FAQ(s.Fields[fieldBotName], s.FAQs)
	if err != nil {
		e.clear(ctx, in)
		return Reply{Text: fmt.Sprintf(msgCreateFailed, errorText(err))}
	}
	return e.create(ctx, in, s, cfg)
}

func (e *Engine) create(ctx context.Context, in Input, s *Session, cfg *botspec.Configuration) Reply {
	e.clear(ctx, in)

	id, err := e.svc.CreateBot(ctx, in.UserID, s.Fields[fieldToken], cfg)
	switch {
	case err == nil:
		return Reply{Text: fmt.Sprintf(msgBotCreated, cfg.BotName, id)}
	case id != 0:
		return Reply{Text: fmt.Sprintf(msgBotNotStarted, cfg.BotName, id, errorText(err))}
	case errs.Is(err, errs.CodeDatabase):
		return e.fail(ctx, in, err)
	default:
		return Reply{Text: fmt.Sprintf(msgCreateFailed, errorText(err))}
	}
}

func (e *Engine) actOnID(ctx context.Context, in Input, state State, input string) Reply {
	id, err := strconv.ParseInt(input, 10, 64)
	if err != nil || id <= 0 {
		return Reply{Text: msgInvalidID}
	}
	e.clear(ctx, in)

	if state == StateDeleteID {
		err = e.svc.DeleteBot(ctx, id, in.UserID)
	} else {
		err = e.svc.RestartBot(ctx, id, in.UserID)
	}

	switch {
	case err == nil && state == StateDeleteID:
		return Reply{Text: fmt.Sprintf(msgBotDeleted, id)}
	case err == nil:
		return Reply{Text: fmt.Sprintf(msgBotRestarted, id)}
	case errs.Is(err, errs.CodeDatabase):
		return e.fail(ctx, in, err)
	default:
		return Reply{Text: errorText(err)}
	}
}

func (e *Engine) requireRegistration(ctx context.Context, in Input) (Reply, bool) {
	registered, err := e.svc.IsRegistered(ctx, in.UserID)
	if err != nil {
		return e.fail(ctx, in, err), false
	}
	if !registered {
		return Reply{Text: msgRegisterFirst}, false
	}
	return Reply{}, true
}

func (e *Engine) begin(ctx context.Context, in Input, state State, reply Reply) Reply {
	if err := e.store.Save(ctx, in.key(), NewSession(state)); err != nil {
		return e.fail(ctx, in, err)
	}
	return reply
}

func (e *Engine) advance(ctx context.Context, in Input, s *Session, next State, prompt string) Reply {
	s.State = next
	if err := e.store.Save(ctx, in.key(), s); err != nil {
		return e.fail(ctx, in, err)
	}
	return Reply{Text: prompt}
}

func (e *Engine) clear(ctx context.Context, in Input) {
	if err := e.store.Delete(ctx, in.key()); err != nil {
		e.logger.WarnContext(ctx, "Failed to clear session", "chat_id", in.ChatID, "user_id", in.UserID, "error", err)
	}
}

func (e *Engine) fail(ctx context.Context, in Input, err error) Reply {
	e.logger.ErrorContext(ctx, "Conversation step failed", "chat_id", in.ChatID, "user_id", in.UserID, "error", err)
	return Reply{Text: msgInternalError}
}

// errorText is the user-facing part of an error.
func errorText(err error) string {
	return errs.Message(err)
}
