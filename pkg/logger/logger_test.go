package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestInitWithJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWith(&buf, FormatJSON, "debug"); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	t.Cleanup(func() { _ = Init() })

	Named("engine").Debug(context.Background(), "point awarded",
		String("match_id", "m1"), Int("score_a", 3), Bool("serve_a", true), Error(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "point awarded" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
	if entry["component"] != "engine" {
		t.Errorf("expected component engine, got %v", entry["component"])
	}
	if entry["score_a"] != float64(3) || entry["serve_a"] != true {
		t.Errorf("fields not encoded: %v", entry)
	}
	if src, _ := entry["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("expected source to point at the test file, got %q", src)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWith(&buf, FormatText, "warn"); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = Init() })

	ctx := context.Background()
	Get().Info(ctx, "hidden")
	Get().Warn(ctx, "shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestInitWithRejectsUnknownValues(t *testing.T) {
	if err := InitWith(&bytes.Buffer{}, "xml", "info"); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
	SetLevel(slog.LevelInfo)
}

func TestStandaloneAndNop(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, FormatText, slog.LevelInfo)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info(context.Background(), "standalone")
	if !strings.Contains(buf.String(), "standalone") {
		t.Errorf("expected message in %q", buf.String())
	}

	Nop().Error(context.Background(), "discarded")
	Nop().Named("x").Info(context.Background(), "discarded")
}
