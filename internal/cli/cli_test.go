package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-tutor-backend/internal/config"
	"github.com/tbourn/go-tutor-backend/internal/domain"
	"github.com/tbourn/go-tutor-backend/internal/repo"
)

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

// unsetEnv clears k for the duration of the test.
func unsetEnv(t *testing.T, k string) {
	t.Helper()
	t.Setenv(k, "")
	_ = os.Unsetenv(k)
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "migrate": false, "seed": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("command %q not registered", name)
		}
	}
}

func TestSeed_UsesEnvFileAndIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "tutor.db")
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("DB_PATH="+dbPath+"\nLOG_LEVEL=error\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	unsetEnv(t, "DB_PATH")
	unsetEnv(t, "LOG_LEVEL")
	unsetEnv(t, "DB_DRIVER")
	unsetEnv(t, "CONFIG_FILE")

	out, err := run(t, "--env-file", envPath, "seed")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "seeded 3 users, 3 requests") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, "--env-file", envPath, "seed")
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if !strings.Contains(out, "seeded 0 users, 0 requests") {
		t.Fatalf("second seed should be a no-op, got %q", out)
	}

	db, err := repo.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer closeStore(db)
	var n int64
	if err := db.Model(&domain.User{}).Count(&n).Error; err != nil || n != 3 {
		t.Fatalf("users = %d, %v", n, err)
	}
	u, err := repo.GetUserByEmail(context.Background(), db, "anna@test.ru")
	if err != nil || u.Skillpoints != repo.DemoSkillpoints {
		t.Fatalf("demo user = %+v, %v", u, err)
	}
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "m.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")
	unsetEnv(t, "DB_DRIVER")
	unsetEnv(t, "CONFIG_FILE")

	out, err := run(t, "--env-file", "", "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "schema up to date (sqlite)") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestMigrate_BadConfig(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	unsetEnv(t, "CONFIG_FILE")
	if _, err := run(t, "--env-file", "", "migrate"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := loadEnvFile(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), "x.env")
	if err := os.WriteFile(path, []byte("TUTOR_CLI_TEST=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TUTOR_CLI_TEST", "from-env")
	if err := loadEnvFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("TUTOR_CLI_TEST"); got != "from-env" {
		t.Fatalf("env file overrode process env: %q", got)
	}
}

func TestNewServer(t *testing.T) {
	cfg := config.Config{
		Port:              "9999",
		ReadTimeout:       time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      3 * time.Second,
		IdleTimeout:       4 * time.Second,
		MaxHeaderBytes:    512,
	}
	srv := newServer(cfg, nil)
	if srv.Addr != ":9999" || srv.ReadTimeout != time.Second || srv.ReadHeaderTimeout != 2*time.Second ||
		srv.WriteTimeout != 3*time.Second || srv.IdleTimeout != 4*time.Second || srv.MaxHeaderBytes != 512 {
		t.Fatalf("server not configured from cfg: %+v", srv)
	}
}
