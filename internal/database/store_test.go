package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "botforge.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { CloseDB(db) })

	return NewStore(db, nil)
}

func registerUser(t *testing.T, s Store, id int64) {
	t.Helper()

	if _, err := s.RegisterUser(context.Background(), &User{UserID: id, FirstName: fmt.Sprintf("user%d", id)}); err != nil {
		t.Fatalf("RegisterUser(%d) error = %v", id, err)
	}
}

func TestRegisterUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.RegisterUser(ctx, &User{UserID: 42, Username: "alice", FirstName: "Alice"})
	if err != nil || !created {
		t.Fatalf("RegisterUser() = %v, %v; want true, nil", created, err)
	}

	created, err = s.RegisterUser(ctx, &User{UserID: 42, Username: "other"})
	if err != nil || created {
		t.Fatalf("second RegisterUser() = %v, %v; want false, nil", created, err)
	}

	user, err := s.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Errorf("GetUser() = %+v, want the first registration", user)
	}

	missing, err := s.GetUser(ctx, 7)
	if err != nil || missing != nil {
		t.Errorf("GetUser(missing) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestInsertBotConfigRequiresUser(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	if _, err := s.InsertBotConfig(context.Background(), 99, "x", "{}", "1:a"); err == nil {
		t.Fatal("InsertBotConfig() for unknown user error = nil, want foreign key error")
	}
}

func TestBotConfigLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	registerUser(t, s, 42)
	registerUser(t, s, 99)

	first, err := s.InsertBotConfig(ctx, 42, "Shop", `{"bot_name":"Shop"}`, "1:a")
	if err != nil {
		t.Fatalf("InsertBotConfig() error = %v", err)
	}
	second, err := s.InsertBotConfig(ctx, 42, "FAQ", `{"bot_name":"FAQ"}`, "2:b")
	if err != nil {
		t.Fatalf("InsertBotConfig() error = %v", err)
	}
	if _, err := s.InsertBotConfig(ctx, 99, "Other", `{}`, "3:c"); err != nil {
		t.Fatalf("InsertBotConfig() error = %v", err)
	}

	cfg, err := s.GetBotConfig(ctx, first)
	if err != nil || cfg == nil {
		t.Fatalf("GetBotConfig() = %v, %v", cfg, err)
	}
	if cfg.UserID != 42 || cfg.BotToken != "1:a" || cfg.Handle() != nil {
		t.Errorf("GetBotConfig() = %+v", cfg)
	}

	if err := s.SetProcessHandle(ctx, second, &ProcessHandle{PID: 1234, StartedAt: 1700000000000}); err != nil {
		t.Fatalf("SetProcessHandle() error = %v", err)
	}

	bots, err := s.ListBotConfigs(ctx, 42)
	if err != nil {
		t.Fatalf("ListBotConfigs() error = %v", err)
	}
	gotNames := []string{}
	for _, b := range bots {
		gotNames = append(gotNames, b.BotName)
	}
	if diff := cmp.Diff([]string{"Shop", "FAQ"}, gotNames); diff != "" {
		t.Errorf("ListBotConfigs() mismatch (-want +got):\n%s", diff)
	}
	if bots[0].Running() || !bots[1].Running() {
		t.Errorf("Running() = %v, %v; want false, true", bots[0].Running(), bots[1].Running())
	}

	handle, err := s.GetProcessHandle(ctx, second)
	if err != nil {
		t.Fatalf("GetProcessHandle() error = %v", err)
	}
	if diff := cmp.Diff(&ProcessHandle{PID: 1234, StartedAt: 1700000000000}, handle); diff != "" {
		t.Errorf("GetProcessHandle() mismatch (-want +got):\n%s", diff)
	}

	tracked, err := s.ListProcessHandles(ctx)
	if err != nil {
		t.Fatalf("ListProcessHandles() error = %v", err)
	}
	want := []TrackedProcess{{ConfigID: second, Handle: ProcessHandle{PID: 1234, StartedAt: 1700000000000}}}
	if diff := cmp.Diff(want, tracked, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("ListProcessHandles() mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetProcessHandle(ctx, second, nil); err != nil {
		t.Fatalf("SetProcessHandle(nil) error = %v", err)
	}
	handle, err = s.GetProcessHandle(ctx, second)
	if err != nil || handle != nil {
		t.Errorf("GetProcessHandle() after clear = %+v, %v; want nil, nil", handle, err)
	}

	if err := s.SetProcessHandle(ctx, 1000, nil); err == nil {
		t.Error("SetProcessHandle() on missing config error = nil, want error")
	}
}

func TestDeleteBotConfigOwnership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	registerUser(t, s, 42)
	registerUser(t, s, 99)

	var id int64
	for i := 0; i < 5; i++ {
		var err error
		id, err = s.InsertBotConfig(ctx, 42, fmt.Sprintf("bot%d", i), "{}", "1:a")
		if err != nil {
			t.Fatalf("InsertBotConfig() error = %v", err)
		}
	}
	if id != 5 {
		t.Fatalf("config_id = %d, want 5", id)
	}

	deleted, err := s.DeleteBotConfig(ctx, 5, 99)
	if err != nil || deleted {
		t.Fatalf("DeleteBotConfig(5, 99) = %v, %v; want false, nil", deleted, err)
	}
	if cfg, _ := s.GetBotConfig(ctx, 5); cfg == nil {
		t.Fatal("row 5 removed by non-owner")
	}

	deleted, err = s.DeleteBotConfig(ctx, 5, 42)
	if err != nil || !deleted {
		t.Fatalf("DeleteBotConfig(5, 42) = %v, %v; want true, nil", deleted, err)
	}
	if cfg, err := s.GetBotConfig(ctx, 5); err != nil || cfg != nil {
		t.Fatalf("GetBotConfig(5) after delete = %+v, %v; want nil, nil", cfg, err)
	}

	next, err := s.InsertBotConfig(ctx, 42, "again", "{}", "1:a")
	if err != nil {
		t.Fatalf("InsertBotConfig() error = %v", err)
	}
	if next != 6 {
		t.Errorf("config_id after delete = %d, want 6 (ids are never reused)", next)
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "twice.db")

	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	CloseDB(db)

	db, err = NewDB(path)
	if err != nil {
		t.Fatalf("second NewDB() error = %v", err)
	}
	defer CloseDB(db)

	if err := NewStore(db, nil).RunSQLMaintenance(context.Background()); err != nil {
		t.Errorf("RunSQLMaintenance() error = %v", err)
	}
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"botforge.db":                    "botforge.db",
		"file:data/bots.db?cache=shared": "data/bots.db",
		"file:/tmp/my%20bots.db":         "/tmp/my bots.db",
	}

	for in, want := range tests {
		if got := ExtractDBNameFromPath(in); got != want {
			t.Errorf("ExtractDBNameFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}
