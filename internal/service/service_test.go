package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/edgard/botforge/internal/botspec"
	"github.com/edgard/botforge/internal/database"
	errs "github.com/edgard/botforge/internal/errors"
	"github.com/edgard/botforge/internal/presets"
)

type fakeVerifier struct {
	err error
}

func (f fakeVerifier) Verify(context.Context, string) (string, error) {
	return "shop_bot", f.err
}

type fakeSupervisor struct {
	store     database.Store
	launchErr error

	mu       sync.Mutex
	launched []int64
}

func (f *fakeSupervisor) Launch(ctx context.Context, _ *botspec.Configuration, _ string, configID int64) error {
	f.mu.Lock()
	f.launched = append(f.launched, configID)
	f.mu.Unlock()
	return f.launchErr
}

func (f *fakeSupervisor) Delete(ctx context.Context, configID, userID int64) (bool, error) {
	return f.store.DeleteBotConfig(ctx, configID, userID)
}

func (f *fakeSupervisor) ReconcileOnStartup(context.Context) error {
	return nil
}

func newTestService(t *testing.T, verifier CredentialVerifier, sup *fakeSupervisor) (*BotService, database.Store) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "botforge.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	sup.store = store

	svc := New(store, sup, verifier, nil)
	for _, id := range []int64{42, 99} {
		if _, err := svc.RegisterUser(context.Background(), &database.User{UserID: id}); err != nil {
			t.Fatalf("RegisterUser() error = %v", err)
		}
	}
	return svc, store
}

func businessCard(t *testing.T) *botspec.Configuration {
	t.Helper()

	cfg, err := presets.BusinessCard(presets.BusinessCardInput{
		Name: "Shop", Token: "123456:ABC", Welcome: "Hi", Email: "a@b.com", Help: "help me",
	})
	if err != nil {
		t.Fatalf("BusinessCard() error = %v", err)
	}
	return cfg
}

func TestCreateBot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sup := &fakeSupervisor{}
	svc, store := newTestService(t, fakeVerifier{}, sup)

	id, err := svc.CreateBot(ctx, 42, "123456:ABC", businessCard(t))
	if err != nil {
		t.Fatalf("CreateBot() error = %v", err)
	}

	stored, err := store.GetBotConfig(ctx, id)
	if err != nil || stored == nil {
		t.Fatalf("GetBotConfig() = %v, %v", stored, err)
	}
	if stored.BotName != "Shop" || stored.BotToken != "123456:ABC" {
		t.Errorf("stored config = %+v", stored)
	}
	if _, err := botspec.Parse([]byte(stored.ConfigJSON)); err != nil {
		t.Errorf("stored config_json does not validate: %v", err)
	}
	if len(sup.launched) != 1 || sup.launched[0] != id {
		t.Errorf("launched = %v, want [%d]", sup.launched, id)
	}
}

func TestCreateBotRejectsBeforePersisting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		verifier CredentialVerifier
		token    string
		cfg      func(*testing.T) *botspec.Configuration
		wantCode string
	}{
		{
			name:     "malformed token",
			verifier: fakeVerifier{},
			token:    "not-a-token",
			cfg:      businessCard,
			wantCode: errs.CodeCredential,
		},
		{
			name:     "rejected token",
			verifier: fakeVerifier{err: errors.New("Unauthorized")},
			token:    "123456:ABC",
			cfg:      businessCard,
			wantCode: errs.CodeCredential,
		},
		{
			name:     "invalid configuration",
			verifier: fakeVerifier{},
			token:    "123456:ABC",
			cfg: func(*testing.T) *botspec.Configuration {
				return &botspec.Configuration{BotName: "x"}
			},
			wantCode: errs.CodeValidation,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			sup := &fakeSupervisor{}
			svc, store := newTestService(t, tt.verifier, sup)

			_, err := svc.CreateBot(ctx, 42, tt.token, tt.cfg(t))
			if !errs.Is(err, tt.wantCode) {
				t.Fatalf("CreateBot() error = %v, want code %s", err, tt.wantCode)
			}

			bots, err := store.ListBotConfigs(ctx, 42)
			if err != nil {
				t.Fatalf("ListBotConfigs() error = %v", err)
			}
			if len(bots) != 0 || len(sup.launched) != 0 {
				t.Errorf("bots = %v, launched = %v; want nothing persisted or launched", bots, sup.launched)
			}
		})
	}
}

func TestCreateBotLaunchFailureKeepsRow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sup := &fakeSupervisor{launchErr: errs.NewProcessError("failed to build bot", errors.New("exit status 1"))}
	svc, store := newTestService(t, nil, sup)

	id, err := svc.CreateBot(ctx, 42, "123456:ABC", businessCard(t))
	if !errs.Is(err, errs.CodeProcess) {
		t.Fatalf("CreateBot() error = %v, want process error", err)
	}
	if id == 0 {
		t.Fatal("CreateBot() returned no config id for a stored bot")
	}
	if cfg, _ := store.GetBotConfig(ctx, id); cfg == nil || cfg.Handle() != nil {
		t.Errorf("stored config = %+v, want row without handle", cfg)
	}
}

func TestDeleteBotOwnership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t, nil, &fakeSupervisor{})

	id, err := svc.CreateBot(ctx, 42, "123456:ABC", businessCard(t))
	if err != nil {
		t.Fatalf("CreateBot() error = %v", err)
	}

	err = svc.DeleteBot(ctx, id, 99)
	if !errs.Is(err, errs.CodeOwnership) {
		t.Fatalf("DeleteBot(non-owner) = %v, want ownership error", err)
	}
	missing := svc.DeleteBot(ctx, 1000, 42)
	if errs.Message(err) != errs.Message(missing) {
		t.Errorf("non-owner and missing bot messages differ: %q vs %q", errs.Message(err), errs.Message(missing))
	}

	if err := svc.DeleteBot(ctx, id, 42); err != nil {
		t.Fatalf("DeleteBot(owner) error = %v", err)
	}
	bots, err := svc.ListBots(ctx, 42)
	if err != nil || len(bots) != 0 {
		t.Errorf("ListBots() = %v, %v; want empty", bots, err)
	}
}

func TestRestartBot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sup := &fakeSupervisor{}
	svc, _ := newTestService(t, nil, sup)

	id, err := svc.CreateBot(ctx, 42, "123456:ABC", businessCard(t))
	if err != nil {
		t.Fatalf("CreateBot() error = %v", err)
	}

	if err := svc.RestartBot(ctx, id, 99); !errs.Is(err, errs.CodeOwnership) {
		t.Fatalf("RestartBot(non-owner) = %v, want ownership error", err)
	}
	if err := svc.RestartBot(ctx, id, 42); err != nil {
		t.Fatalf("RestartBot() error = %v", err)
	}
	if len(sup.launched) != 2 {
		t.Errorf("launched = %v, want two launches", sup.launched)
	}
}

func TestIsRegistered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t, nil, &fakeSupervisor{})

	for id, want := range map[int64]bool{42: true, 7: false} {
		got, err := svc.IsRegistered(ctx, id)
		if err != nil || got != want {
			t.Errorf("IsRegistered(%d) = %v, %v; want %v", id, got, err, want)
		}
	}
}
