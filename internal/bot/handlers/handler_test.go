package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/go-cmp/cmp"

	"github.com/edgard/botforge/internal/botspec"
	"github.com/edgard/botforge/internal/config"
	"github.com/edgard/botforge/internal/database"
	"github.com/edgard/botforge/internal/wizard"
)

type call struct {
	Method string
	Fields map[string]string
}

// fakeAPI records the Bot API calls made by the handlers.
type fakeAPI struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	fields := map[string]string{}
	if err := r.ParseMultipartForm(1 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call{Method: method, Fields: fields})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage":
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":100,"type":"private"}}}`)
	default:
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeAPI) methodCalls(method string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []call
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

type fakeService struct {
	registered bool
}

func (f *fakeService) IsRegistered(context.Context, int64) (bool, error) { return f.registered, nil }
func (f *fakeService) RegisterUser(context.Context, *database.User) (bool, error) {
	return true, nil
}
func (f *fakeService) VerifyToken(context.Context, string) error { return nil }
func (f *fakeService) CreateBot(context.Context, int64, string, *botspec.Configuration) (int64, error) {
	return 1, nil
}
func (f *fakeService) ListBots(context.Context, int64) ([]database.BotSummary, error) {
	return []database.BotSummary{}, nil
}
func (f *fakeService) DeleteBot(context.Context, int64, int64) error  { return nil }
func (f *fakeService) RestartBot(context.Context, int64, int64) error { return nil }

func newTestDeps(t *testing.T, registered bool, cfg *config.Config) (HandlerDeps, *bot.Bot, *fakeAPI) {
	t.Helper()

	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	b, err := bot.New("123456:ABC", bot.WithSkipGetMe(), bot.WithServerURL(srv.URL))
	if err != nil {
		t.Fatalf("bot.New() error = %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg == nil {
		cfg = &config.Config{}
	}
	deps := HandlerDeps{
		Logger: log,
		Config: cfg,
		Engine: wizard.NewEngine(&fakeService{registered: registered}, wizard.NewMemoryStore(0), log),
	}
	return deps, b, api
}

func messageUpdate(text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			Chat: models.Chat{ID: 100},
			From: &models.User{ID: 42, FirstName: "Ann"},
			Text: text,
		},
	}
}

func TestCommandHandlerSendsEscapedMarkdown(t *testing.T) {
	t.Parallel()

	deps, b, api := newTestDeps(t, true, nil)

	NewCommandHandler(deps, "start", deps.Engine.Start)(context.Background(), b, messageUpdate("/start"))

	sent := api.methodCalls("sendMessage")
	if len(sent) != 1 {
		t.Fatalf("sendMessage calls = %d, want 1", len(sent))
	}

	got := sent[0].Fields
	want := map[string]string{
		"chat_id":    "100",
		"text":       "Hi\\! Welcome to the Telegram bot builder\\.\nChoose an action:",
		"parse_mode": "MarkdownV2",
	}
	if diff := cmp.Diff(want["text"], got["text"]); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
	if strings.Trim(got["chat_id"], `"`) != want["chat_id"] || strings.Trim(got["parse_mode"], `"`) != want["parse_mode"] {
		t.Errorf("fields = %v, want chat_id %s and parse_mode %s", got, want["chat_id"], want["parse_mode"])
	}
	if !strings.Contains(got["reply_markup"], wizard.CallbackMenuCreate) {
		t.Errorf("reply_markup = %q, want the menu keyboard", got["reply_markup"])
	}
}

func TestCallbackHandlerAnswersQuery(t *testing.T) {
	t.Parallel()

	deps, b, api := newTestDeps(t, true, nil)

	update := &models.Update{
		ID: 2,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-1",
			From: models.User{ID: 42},
			Data: wizard.CallbackMenuList,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 10, Chat: models.Chat{ID: 100}},
			},
		},
	}
	NewCallbackHandler(deps)(context.Background(), b, update)

	answers := api.methodCalls("answerCallbackQuery")
	if len(answers) != 1 || answers[0].Fields["callback_query_id"] != "cb-1" {
		t.Errorf("answerCallbackQuery calls = %+v, want one for cb-1", answers)
	}

	sent := api.methodCalls("sendMessage")
	if len(sent) != 1 {
		t.Fatalf("sendMessage calls = %d, want 1", len(sent))
	}
	if strings.Trim(sent[0].Fields["chat_id"], `"`) != "100" {
		t.Errorf("chat_id = %q, want 100", sent[0].Fields["chat_id"])
	}
	if !strings.Contains(sent[0].Fields["text"], "You have no bots yet") {
		t.Errorf("text = %q, want the empty bot list", sent[0].Fields["text"])
	}
}

func TestMessageHandlerIgnoresEmptyText(t *testing.T) {
	t.Parallel()

	deps, b, api := newTestDeps(t, true, nil)

	NewMessageHandler(deps)(context.Background(), b, messageUpdate(""))

	if got := len(api.methodCalls("sendMessage")); got != 0 {
		t.Errorf("sendMessage calls = %d, want 0", got)
	}
}

func TestAuthorizedBlocksUsers(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Telegram: config.TelegramConfig{BlockedUserIDs: []int64{42}}}
	deps, b, api := newTestDeps(t, true, cfg)

	called := false
	handler := Authorized(deps)(func(context.Context, *bot.Bot, *models.Update) { called = true })
	handler(context.Background(), b, messageUpdate("/start"))

	if called {
		t.Error("blocked user reached the handler")
	}
	sent := api.methodCalls("sendMessage")
	if len(sent) != 1 || sent[0].Fields["text"] != msgNotAuthorized {
		t.Errorf("sendMessage calls = %+v, want the not authorized message", sent)
	}
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	deps, _, _ := newTestDeps(t, true, nil)
	registered := RegisterAllCommands(deps)

	for _, name := range []string{"/start", "/help", "/menu", "/create_bot", "/list_bots", "/delete_bot", "/restart_bot", "/cancel"} {
		h, ok := registered[name]
		if !ok {
			t.Errorf("command %s not registered", name)
			continue
		}
		if h.MatchType != bot.MatchTypeCommandStartOnly || h.Pattern != strings.TrimPrefix(name, "/") {
			t.Errorf("command %s registered as %+v", name, h)
		}
	}

	cb, ok := registered["callback:"+wizard.CallbackTemplatePrefix]
	if !ok || cb.HandlerType != bot.HandlerTypeCallbackQueryData || cb.MatchType != bot.MatchTypePrefix {
		t.Errorf("template callback registered as %+v", cb)
	}
}
