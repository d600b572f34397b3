package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_WritesToLogFile(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")

	log, err := New(logDir, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("hello")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(logDir, "pingdeck.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("log file is empty")
	}
}

func TestNew_BadDirFails(t *testing.T) {
	f := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(f, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(filepath.Join(f, "logs"), false); err == nil {
		t.Fatal("want error when log dir cannot be created")
	}
}
