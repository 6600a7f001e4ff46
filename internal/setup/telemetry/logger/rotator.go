package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogRotator appends to a log file and, once twice maxLines lines have been
// written, rewrites the file to keep only the most recent maxLines lines.
type LogRotator struct {
	file     *os.File
	path     string
	lines    []string
	maxLines int
	head     int
	size     int
	seen     int
	mu       sync.Mutex
}

// NewLogRotator opens (or creates) the log file at path.
func NewLogRotator(path string, maxLines int) (*LogRotator, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	if maxLines <= 0 {
		maxLines = 100000
	}

	return &LogRotator{
		file:     file,
		path:     path,
		lines:    make([]string, maxLines),
		maxLines: maxLines,
	}, nil
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.remember(line)
		if w.seen >= w.maxLines*2 {
			if err := w.rotate(); err != nil {
				return n, fmt.Errorf("failed to rotate log file: %w", err)
			}
			w.seen = w.size
		}
	}

	return n, nil
}

// Sync flushes the underlying file.
func (w *LogRotator) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *LogRotator) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func (w *LogRotator) remember(line string) {
	w.lines[w.head] = line
	w.head = (w.head + 1) % w.maxLines
	if w.size < w.maxLines {
		w.size++
	}
	w.seen++
}

// recent returns the retained lines oldest first.
func (w *LogRotator) recent() []string {
	result := make([]string, w.size)
	start := (w.head - w.size + w.maxLines) % w.maxLines
	for i := range w.size {
		result[i] = w.lines[(start+i)%w.maxLines]
	}
	return result
}

// rotate replaces the file with the retained lines through a temp file rename.
func (w *LogRotator) rotate() error {
	lines := w.recent()
	if len(lines) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.path), "temp-log-")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	if _, err := temp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	w.file.Close()
	if err := os.Rename(tempPath, w.path); err != nil {
		return err
	}

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = file

	return nil
}
