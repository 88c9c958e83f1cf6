package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goodtune/studytime/internal/config"
	"github.com/goodtune/studytime/internal/identity"
	"github.com/goodtune/studytime/internal/storage"
	"github.com/goodtune/studytime/internal/storage/bolt"
	"github.com/goodtune/studytime/internal/tracker"
	"github.com/rs/zerolog"
)

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestOpenStorageBackends(t *testing.T) {
	ctx := context.Background()

	memCfg := config.StorageConfig{Type: "memory", CacheTTL: "0", CacheSize: 8}
	kv, err := openStorage(memCfg)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := withCache(memCfg, kv).(*storage.Cached); ok {
		t.Error("expected no cache with cache_ttl 0")
	}
	_ = kv.Close()

	boltCfg := config.StorageConfig{
		Type:      "bolt",
		Path:      filepath.Join(t.TempDir(), "studytime.bolt"),
		CacheSize: 8,
		CacheTTL:  "30s",
	}
	kv, err = openStorage(boltCfg)
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	kv = withCache(boltCfg, kv)
	defer func() { _ = kv.Close() }()

	if _, ok := kv.(*storage.Cached); !ok {
		t.Errorf("expected cached store, got %T", kv)
	}
	if err := kv.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if _, err := openStorage(config.StorageConfig{Type: "sqlite"}); err == nil {
		t.Error("expected error for unsupported storage type")
	}
}

// execute runs the root command with args against configPath and returns its output.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", configPath))
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return out.String()
}

func TestStatusAndSessionCommands(t *testing.T) {
	color.NoColor = true
	dataPath := filepath.Join(t.TempDir(), "studytime.bolt")
	configPath = writeTestConfig(t, "storage:\n  path: "+dataPath+"\n  cache_ttl: \"0\"\nlogging:\n  level: error\n")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	for _, args := range [][]string{{"start"}, {"update"}, {"end"}, {"status"}} {
		rootCmd.SetArgs(append(args, "--config", configPath))
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("%v failed: %v", args, err)
		}
	}

	got := out.String()
	for _, want := range []string{"Study session started", "today: 0m", "Study session ended", "Study time (studyTimeData)", "This week:  0m"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestValidateReportsUnknownKeys(t *testing.T) {
	color.NoColor = true
	configPath = writeTestConfig(t, "storage:\n  type: memory\ntracker:\n  poll_intervall: 1m\n")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"validate", "--dump", "--config", configPath})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		validateDump = false
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "tracker.poll_intervall") {
		t.Errorf("expected unknown key warning, got:\n%s", got)
	}
	if !strings.Contains(got, "type = memory  (modified from default: bolt)") {
		t.Errorf("expected modified storage type in dump, got:\n%s", got)
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := map[int]string{0: "0m", 42: "42m", 60: "1h 00m", 125: "2h 05m"}
	for minutes, want := range tests {
		if got := formatMinutes(minutes); got != want {
			t.Errorf("formatMinutes(%d) = %q, want %q", minutes, got, want)
		}
	}
}

func TestLoginStartLogout(t *testing.T) {
	color.NoColor = true
	dataPath := filepath.Join(t.TempDir(), "studytime.bolt")
	configPath = writeTestConfig(t, "storage:\n  path: "+dataPath+"\nlogging:\n  level: error\n")

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": "u1"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if got := execute(t, "login", "--token", token); !strings.Contains(got, "studyTimeData_u1") {
		t.Fatalf("expected login to report per-user key, got %q", got)
	}
	execute(t, "start")
	if got := execute(t, "logout"); !strings.Contains(got, "Logged out") {
		t.Fatalf("expected logout confirmation, got %q", got)
	}

	store, err := bolt.Open(dataPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()

	raw, err := store.Get(ctx, "studyTimeData_u1")
	if err != nil {
		t.Fatalf("expected per-user data: %v", err)
	}
	var data tracker.StudyTimeData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	sessions := 0
	for day, record := range data.DailyData {
		for _, s := range record.Sessions {
			sessions++
			if s.IsOpen() {
				t.Errorf("expected session on %s closed by logout", day)
			}
		}
	}
	if sessions != 1 {
		t.Errorf("expected exactly one session, got %d", sessions)
	}

	if _, err := store.Get(ctx, "studyTimeData"); !storage.IsNotFound(err) {
		t.Errorf("expected nothing written under the shared key, got %v", err)
	}
	if key := identity.NewResolver(store, "", zerolog.Nop()).StorageKey(ctx); key != identity.SharedKey {
		t.Errorf("expected key to fall back to %s, got %s", identity.SharedKey, key)
	}
}

func TestTokenReadsBypassCache(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "studytime.bolt")
	configPath = writeTestConfig(t, "storage:\n  path: "+dataPath+"\n  cache_ttl: 1h\nlogging:\n  level: error\n")

	a, err := openApp(configPath, nil)
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	defer a.Close()

	if _, ok := a.kv.(*storage.Cached); !ok {
		t.Fatalf("expected cached tracker store, got %T", a.kv)
	}

	ctx := context.Background()
	if key := a.identity.StorageKey(ctx); key != identity.SharedKey {
		t.Fatalf("expected shared key before login, got %s", key)
	}

	// A login from another process writes the token directly
	other, err := bolt.Open(dataPath)
	if err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u2"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if err := identity.NewResolver(other, "", zerolog.Nop()).SetToken(ctx, token); err != nil {
		t.Fatalf("set token: %v", err)
	}

	if key := a.identity.StorageKey(ctx); key != "studyTimeData_u2" {
		t.Fatalf("expected running app to see the new token, got %s", key)
	}
}
