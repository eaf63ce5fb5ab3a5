package history

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yiblet/halen/internal/text"
)

// logContents is the parsed form of a history log file.
type logContents struct {
	metadata    Metadata
	hasMetadata bool
	records     []record
}

// entries returns the valid entries in physical (oldest-first) order.
func (lc *logContents) entries() []Entry {
	entries := make([]Entry, 0, len(lc.records))
	for _, rec := range lc.records {
		if rec.valid {
			entries = append(entries, rec.entry)
		}
	}
	return entries
}

// readLog parses the log at path. A missing file is reported with an error
// satisfying errors.Is(err, os.ErrNotExist).
func readLog(path string) (*logContents, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	lc := &logContents{}
	if len(lines) > 0 {
		if m, ok := parseMetadata(lines[0]); ok {
			lc.metadata = m
			lc.hasMetadata = true
			lines = lines[1:]
		}
	}

	lc.records = make([]record, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		entry, err := parseLine(line)
		if err != nil {
			slog.Warn("invalid history entry", "line", text.Summary(line, 50), "error", err)
			lc.records = append(lc.records, record{raw: line})
			continue
		}
		lc.records = append(lc.records, record{raw: line, entry: entry, valid: true})
	}
	return lc, nil
}

// writeLog installs a new log at path: metadata first, then one line per
// record. The data goes to a temporary file in the same directory which is
// renamed over path, so a failed write leaves the previous log intact.
func writeLog(path string, metadata Metadata, records []record) error {
	var b strings.Builder
	b.WriteString(metadata.line())
	b.WriteByte('\n')
	for _, rec := range records {
		b.WriteString(rec.raw)
		b.WriteByte('\n')
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary history file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary history file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set history file mode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary history file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

