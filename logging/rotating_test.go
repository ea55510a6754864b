package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWeekKey(t *testing.T) {
	got := weekKey(time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC))
	if got != "2026-W01" {
		t.Errorf("weekKey = %s, want 2026-W01", got)
	}
}

func TestRotatingLoggerWritesWeeklyFile(t *testing.T) {
	dir := t.TempDir()
	rl, err := NewRotatingLogger(dir, 1, 0)
	if err != nil {
		t.Fatalf("NewRotatingLogger: %v", err)
	}
	defer rl.Close()

	if _, err := rl.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	name := filepath.Join(dir, logFilePrefix+weekKey(time.Now())+".log")
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("expected weekly file %s: %v", name, err)
	}
	if string(data) != "hello\n" {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestRotatingLoggerSplitsOnSize(t *testing.T) {
	dir := t.TempDir()
	rl, err := NewRotatingLogger(dir, 1, 10)
	if err != nil {
		t.Fatalf("NewRotatingLogger: %v", err)
	}
	defer rl.Close()

	for i := 0; i < 3; i++ {
		if _, err := rl.Write([]byte("12345678\n")); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	entries, _ := os.ReadDir(dir)
	var numbered int
	for _, e := range entries {
		if strings.Contains(e.Name(), "_") {
			numbered++
		}
	}
	if numbered != 2 {
		t.Errorf("expected 2 numbered files after two size rotations, got %d (%d files)", numbered, len(entries))
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	rl, err := NewRotatingLogger(dir, 1, 0)
	if err != nil {
		t.Fatalf("NewRotatingLogger: %v", err)
	}
	defer rl.Close()

	old := filepath.Join(dir, logFilePrefix+"2020-W01.log")
	other := filepath.Join(dir, "unrelated.log")
	for _, p := range []string{old, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		past := time.Now().Add(-30 * 24 * time.Hour)
		_ = os.Chtimes(p, past, past)
	}

	deleted, err := rl.cleanupOldLogs()
	if err != nil {
		t.Fatalf("cleanupOldLogs: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted file, got %d", deleted)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("unrelated file should be kept: %v", err)
	}
}
