package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesJSONToFiles(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "log.json"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	logger, _ := New(f, false)
	logger.Info("fetched reviews", slog.String("source", "amazon"))
	logger.Debug("hidden")

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(data, &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", data, err)
	}
	if line["msg"] != "fetched reviews" || line["source"] != "amazon" {
		t.Fatalf("unexpected record: %v", line)
	}
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "log.json"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	logger, level := New(f, true)
	if level.Level() != slog.LevelDebug {
		t.Fatalf("level = %v, want debug", level.Level())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug disabled in verbose mode")
	}
}
