package sysutil

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func restoreLogging(t *testing.T) {
	t.Helper()
	lvl, lg, ctxLg := zerolog.GlobalLevel(), log.Logger, zerolog.DefaultContextLogger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(lvl)
		log.Logger = lg
		zerolog.DefaultContextLogger = ctxLg
	})
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestConfigureLogger_JSON(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer
	ConfigureLogger("warn", false, &buf)

	log.Info().Msg("dropped")
	log.Warn().Str("chat_id", "c1").Msg("kept")

	line := strings.TrimSpace(buf.String())
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if m["message"] != "kept" || m["service"] != "tutor-api" || m["chat_id"] != "c1" || m["time"] == nil {
		t.Fatalf("unexpected entry: %v", m)
	}
}

func TestConfigureLogger_PrettyAndContextDefault(t *testing.T) {
	restoreLogging(t)
	var buf bytes.Buffer
	ConfigureLogger("debug", true, &buf)

	// A context without a logger falls back to the configured global.
	log.Ctx(context.Background()).Debug().Msg("hello")
	out := buf.String()
	if !strings.Contains(out, "hello") || strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected console output, got %q", out)
	}
}
