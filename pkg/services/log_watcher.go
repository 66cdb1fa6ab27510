package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hpcloud/tail"

	"github.com/supreme-majesty/backdrop-console/pkg/events"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// LogEntryData represents a single log line with metadata
type LogEntryData struct {
	Site      string   `json:"site,omitempty"`
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	Raw       string   `json:"raw"`
}

// LogWatcher reads a PHP error log and publishes each line on the bus.
type LogWatcher struct {
	Bus *events.Bus

	mu      sync.Mutex
	tailers []*tail.Tail
	// poll is used in tests, where inotify is not always available.
	poll bool
}

// NewLogWatcher creates a new log watcher service
func NewLogWatcher(bus *events.Bus) *LogWatcher {
	return &LogWatcher{Bus: bus}
}

// LastLines publishes and returns the last n lines of path.
func (w *LogWatcher) LastLines(site, path string, n int) ([]LogEntryData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer file.Close()

	lines, err := tailFile(file, n)
	if err != nil {
		return nil, err
	}

	entries := make([]LogEntryData, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		entry := newEntry(site, line)
		w.publish(entry)
		entries = append(entries, entry)
	}
	return entries, nil
}

// Follow streams new lines appended to path until ctx is cancelled.
func (w *LogWatcher) Follow(ctx context.Context, site, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("log file does not exist: %s", path)
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow: true,
		ReOpen: true,
		Poll:   w.poll,
		Logger: tail.DiscardingLogger,
		Location: &tail.SeekInfo{
			Offset: 0,
			Whence: io.SeekEnd,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to tail %s: %w", path, err)
	}

	w.mu.Lock()
	w.tailers = append(w.tailers, t)
	w.mu.Unlock()
	defer w.stop(t)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			if line.Text == "" {
				continue
			}
			w.publish(newEntry(site, line.Text))
		}
	}
}

func (w *LogWatcher) stop(t *tail.Tail) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t.Stop()
	t.Cleanup()
	for i, cur := range w.tailers {
		if cur == t {
			w.tailers = append(w.tailers[:i], w.tailers[i+1:]...)
			break
		}
	}
}

func (w *LogWatcher) publish(entry LogEntryData) {
	if w.Bus == nil {
		return
	}
	w.Bus.Publish(events.Event{Type: events.LogEntry, Payload: entry})
}

func newEntry(site, line string) LogEntryData {
	return LogEntryData{
		Site:      site,
		Level:     parseLogLevel(line),
		Message:   parseMessage(line),
		Timestamp: time.Now().Format(time.RFC3339),
		Raw:       line,
	}
}

// parseLogLevel classifies a PHP error log line.
func parseLogLevel(line string) LogLevel {
	lowerLine := strings.ToLower(line)

	switch {
	case strings.Contains(lowerLine, "fatal") || strings.Contains(lowerLine, "parse error") ||
		strings.Contains(lowerLine, "php error") || strings.Contains(lowerLine, "uncaught"):
		return LogLevelError
	case strings.Contains(lowerLine, "warning") || strings.Contains(lowerLine, "deprecated"):
		return LogLevelWarning
	case strings.Contains(lowerLine, "notice"):
		return LogLevelInfo
	case strings.Contains(lowerLine, "debug"):
		return LogLevelDebug
	}
	return LogLevelInfo
}

func parseMessage(line string) string {
	if len(line) > 500 {
		return line[:500] + "..."
	}
	return line
}

// tailFile reads the last n lines from a file
func tailFile(file *os.File, n int) ([]string, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	size := stat.Size()
	if size == 0 || n <= 0 {
		return []string{}, nil
	}

	// Read from end in chunks
	var tailBytes []byte
	bufferSize := int64(4096)
	offset := size

	for offset > 0 && strings.Count(string(tailBytes), "\n") <= n {
		readSize := bufferSize
		if offset < bufferSize {
			readSize = offset
		}
		offset -= readSize

		buf := make([]byte, readSize)
		if _, err := file.ReadAt(buf, offset); err != nil && err != io.EOF {
			return nil, err
		}
		tailBytes = append(buf, tailBytes...)
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(tailBytes)))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// The first line may be a partial one when the read stopped mid-file.
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
