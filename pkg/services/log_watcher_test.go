package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/supreme-majesty/backdrop-console/pkg/events"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line string
		want LogLevel
	}{
		{"PHP Fatal error:  Uncaught Error: Call to undefined function", LogLevelError},
		{"PHP Parse error:  syntax error, unexpected '}'", LogLevelError},
		{"PHP Warning:  include(): Failed opening", LogLevelWarning},
		{"PHP Deprecated:  Function create_function() is deprecated", LogLevelWarning},
		{"PHP Notice:  Undefined index: q", LogLevelInfo},
		{"something else entirely", LogLevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.line); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", tt.line, got, tt.want)
		}
	}
}

func TestLogWatcher_LastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "php_errors.log")
	var b strings.Builder
	for i := 0; i < 2000; i++ {
		fmt.Fprintf(&b, "PHP Notice:  line %d\n", i)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}

	w := NewLogWatcher(nil)
	entries, err := w.LastLines("multi_one", path, 3)
	if err != nil {
		t.Fatalf("LastLines returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[2].Raw != "PHP Notice:  line 1999" || entries[0].Raw != "PHP Notice:  line 1997" {
		t.Errorf("Unexpected lines: %q .. %q", entries[0].Raw, entries[2].Raw)
	}
}

func TestLogWatcher_LastLines_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.log")
	os.WriteFile(path, nil, 0644)

	entries, err := NewLogWatcher(nil).LastLines("", path, 10)
	if err != nil {
		t.Fatalf("LastLines returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestLogWatcher_Follow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "php_errors.log")
	os.WriteFile(path, []byte("PHP Notice:  old line\n"), 0644)

	bus := events.NewBus()
	got := make(chan LogEntryData, 4)
	bus.Subscribe(events.LogEntry, func(e events.Event) {
		select {
		case got <- e.Payload.(LogEntryData):
		default:
		}
	})

	w := NewLogWatcher(bus)
	w.poll = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Follow(ctx, "multi_two", path) }()

	// Keep appending until the tailer, which starts at EOF, picks a line up.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case entry := <-got:
			if entry.Level != LogLevelError || entry.Site != "multi_two" {
				t.Errorf("Unexpected entry: %+v", entry)
			}
			if strings.Contains(entry.Raw, "old line") {
				t.Error("Follow should start at the end of the file")
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Follow returned error: %v", err)
			}
			return
		case <-tick.C:
			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				t.Fatal(err)
			}
			f.WriteString("PHP Fatal error:  new line\n")
			f.Close()
		case <-deadline:
			t.Fatal("no log entry received")
		}
	}
}

func TestLogWatcher_Follow_MissingFile(t *testing.T) {
	w := NewLogWatcher(nil)
	if err := w.Follow(context.Background(), "", "/nonexistent/php_errors.log"); err == nil {
		t.Error("Follow should fail for a missing file")
	}
}
