// Package history implements the persistent clipboard history: a
// deduplicated, bounded log of captured snapshots with content-addressed
// overflow files for entries too large to preview, plus the navigation
// cursor over it.
//
// Entries are stored oldest-first in the log and presented newest-first:
// index 0 is always the most recent entry. A Store is owned by a single
// goroutine and is not safe for concurrent use.
package history

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/yiblet/halen/internal/text"
)

const (
	// SeedPlaceholder is the first entry of a new log when the clipboard
	// cannot be read.
	SeedPlaceholder = "Clipboard Empty"

	DefaultMaxLines      = 10
	DefaultMaxLineLength = 80
	DefaultHistoryLimit  = 50
)

// Overflow stores the full content of oversized entries, one file per
// content hash. cachefs.FS satisfies it.
type Overflow interface {
	WriteFile(name string, data []byte, perm os.FileMode) error
	ReadFile(name string) ([]byte, error)
	Remove(name string) error
}

// Options configures a Store.
type Options struct {
	// Path is the history log file.
	Path string

	MaxLines      int
	MaxLineLength int

	// HistoryLimit caps the number of entries kept. Zero means no cap.
	HistoryLimit int

	// Overflow holds full copies of oversized content. When nil, oversized
	// content is stored as a lossy preview.
	Overflow Overflow

	// Seed supplies the first entry when the log does not exist yet.
	Seed func() (string, error)

	// Now returns the time used for entry timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Store is the clipboard history log.
type Store struct {
	path         string
	metadata     Metadata
	historyLimit int
	overflow     Overflow
	seed         func() (string, error)
	now          func() time.Time

	loaded  bool
	entries []Entry // oldest first
}

// NewStore creates a Store. Nothing is read from disk until the first
// operation that needs the entries.
func NewStore(opts Options) *Store {
	s := &Store{
		path:         opts.Path,
		historyLimit: opts.HistoryLimit,
		overflow:     opts.Overflow,
		seed:         opts.Seed,
		now:          opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.metadata = boundsOrDefault(opts.MaxLines, opts.MaxLineLength)
	return s
}

func boundsOrDefault(maxLines, maxLineLength int) Metadata {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	return Metadata{MaxLines: maxLines, MaxLineLength: maxLineLength}
}

// Path returns the history log location.
func (s *Store) Path() string {
	return s.path
}

// Metadata returns the display bounds currently in effect.
func (s *Store) Metadata() Metadata {
	return s.metadata
}

func (s *Store) formatter() text.Formatter {
	f := text.Formatter{MaxLines: s.metadata.MaxLines, MaxLineLength: s.metadata.MaxLineLength}
	if s.overflow != nil {
		f.Overflow = s.overflow
	}
	return f
}

// Count returns the number of entries, loading the log on first use.
func (s *Store) Count() int {
	s.ensureLoaded()
	return len(s.entries)
}

// Entries returns a copy of all entries, newest first.
func (s *Store) Entries() []Entry {
	s.ensureLoaded()
	out := make([]Entry, len(s.entries))
	for i := range s.entries {
		out[i] = s.entries[len(s.entries)-1-i]
	}
	return out
}

// Entry returns the entry at index, where 0 is the newest. A negative index
// selects the newest entry.
func (s *Store) Entry(index int) (Entry, bool) {
	s.ensureLoaded()
	if index < 0 {
		index = 0
	}
	if index >= len(s.entries) {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1-index], true
}

// EntryTruncated returns the stored display form of the entry at index.
func (s *Store) EntryTruncated(index int) (string, bool) {
	entry, ok := s.Entry(index)
	if !ok {
		return "", false
	}
	return entry.Content, true
}

// EntryFullContent returns the complete content of the entry at index. For
// overflowed entries the overflow file is read; if it is missing the stored
// preview is returned instead.
func (s *Store) EntryFullContent(index int) (string, bool) {
	entry, ok := s.Entry(index)
	if !ok {
		return "", false
	}
	if !entry.Overflowed() {
		return entry.Content, true
	}
	if s.overflow == nil {
		slog.Warn("overflow entry without overflow directory, using preview", "hash", entry.OverflowHash)
		return entry.Content, true
	}

	data, err := s.overflow.ReadFile(entry.OverflowHash)
	if err != nil {
		slog.Warn("failed to read overflow file, using preview", "hash", entry.OverflowHash, "error", err)
		return entry.Content, true
	}
	return string(data), true
}

// AddEntry records content as the newest entry. Empty and whitespace-only
// content is rejected. An existing entry with the same content is removed
// first, so re-copying moves it to the top with a fresh timestamp. Returns
// false if the log could not be rewritten; the previous log is then left
// untouched.
func (s *Store) AddEntry(content string, source Source) bool {
	if !text.HasNonWhitespace(content) {
		return false
	}
	s.ensureLoaded()

	lc, err := s.readOrBootstrap()
	if err != nil {
		slog.Error("failed to read history", "path", s.path, "error", err)
		return false
	}

	preview, hash := s.formatter().TruncateForStorage(content)
	if hash == "" && text.HasOverflowMarker(preview) {
		slog.Warn("cannot store content that starts with an overflow marker without an overflow file")
		return false
	}
	contentHash := text.HashString(content)

	kept := make([]record, 0, len(lc.records)+1)
	var duplicates []Entry
	for _, rec := range lc.records {
		if rec.valid && isDuplicate(rec.entry, content, contentHash) {
			slog.Debug("removing duplicate entry", "timestamp", rec.entry.Timestamp)
			duplicates = append(duplicates, rec.entry)
			continue
		}
		kept = append(kept, rec)
	}

	entry := Entry{
		Content:      preview,
		Timestamp:    s.now().Format(TimestampLayout),
		Source:       source,
		OverflowHash: hash,
	}
	kept = append(kept, record{raw: formatLine(entry), entry: entry, valid: true})

	kept, dropped := s.applyLimit(kept)

	if err := writeLog(s.path, s.metadata, kept); err != nil {
		slog.Error("failed to save history entry", "path", s.path, "error", err)
		return false
	}
	s.removeOverflowFiles(append(duplicates, dropped...), kept)

	slog.Debug("saved history entry", "source", source, "overflow", hash != "", "summary", text.Summary(content, 50))
	s.reload()
	return true
}

// isDuplicate matches an overflowed entry by content hash and any other
// entry by exact content.
func isDuplicate(existing Entry, content, contentHash string) bool {
	if existing.Overflowed() {
		return existing.OverflowHash == contentHash
	}
	return existing.Content == content
}

// applyLimit drops the oldest entries beyond the history limit.
func (s *Store) applyLimit(records []record) (kept []record, dropped []Entry) {
	if s.historyLimit <= 0 {
		return records, nil
	}

	valid := 0
	for _, rec := range records {
		if rec.valid {
			valid++
		}
	}
	excess := valid - s.historyLimit
	if excess <= 0 {
		return records, nil
	}

	kept = make([]record, 0, len(records)-excess)
	for _, rec := range records {
		if rec.valid && excess > 0 {
			dropped = append(dropped, rec.entry)
			excess--
			continue
		}
		kept = append(kept, rec)
	}
	slog.Debug("trimmed history to limit", "limit", s.historyLimit, "dropped", len(dropped))
	return kept, dropped
}

// DeleteEntry removes the entry at index, where 0 is the newest, together
// with its overflow file.
func (s *Store) DeleteEntry(index int) bool {
	s.ensureLoaded()
	if index < 0 || index >= len(s.entries) {
		return false
	}

	lc, err := readLog(s.path)
	if err != nil {
		slog.Error("failed to read history", "path", s.path, "error", err)
		return false
	}

	// Physical position counted among valid lines, oldest first.
	target := len(lc.entries()) - 1 - index
	if target < 0 {
		return false
	}

	kept := make([]record, 0, len(lc.records))
	var removed []Entry
	seen := 0
	for _, rec := range lc.records {
		if rec.valid {
			if seen == target {
				removed = append(removed, rec.entry)
				seen++
				continue
			}
			seen++
		}
		kept = append(kept, rec)
	}

	if err := writeLog(s.path, s.metadata, kept); err != nil {
		slog.Error("failed to delete history entry", "path", s.path, "error", err)
		return false
	}
	s.removeOverflowFiles(removed, kept)

	s.reload()
	return true
}

// Clear removes every entry and its overflow file, leaving a log that holds
// only the metadata line.
func (s *Store) Clear() bool {
	s.ensureLoaded()
	removed := append([]Entry(nil), s.entries...)

	if err := writeLog(s.path, s.metadata, nil); err != nil {
		slog.Error("failed to clear history", "path", s.path, "error", err)
		return false
	}
	s.removeOverflowFiles(removed, nil)

	s.reload()
	return true
}

// removeOverflowFiles deletes the overflow files of removed entries that no
// surviving record still refers to.
func (s *Store) removeOverflowFiles(removed []Entry, survivors []record) {
	if s.overflow == nil {
		return
	}

	inUse := make(map[string]bool)
	for _, rec := range survivors {
		if rec.valid && rec.entry.Overflowed() {
			inUse[rec.entry.OverflowHash] = true
		}
	}

	for _, entry := range removed {
		if !entry.Overflowed() || inUse[entry.OverflowHash] {
			continue
		}
		if err := s.overflow.Remove(entry.OverflowHash); err != nil && !isNotExist(err) {
			slog.Warn("failed to remove overflow file", "hash", entry.OverflowHash, "error", err)
		}
	}
}

// Reload drops the cached entries and reads the log again, regenerating
// stale previews.
func (s *Store) Reload() {
	s.reload()
}

// Reconfigure applies new display bounds and history limit, then reloads.
// Changed bounds cause overflowed previews to be regenerated.
func (s *Store) Reconfigure(maxLines, maxLineLength, historyLimit int) {
	s.metadata = boundsOrDefault(maxLines, maxLineLength)
	s.historyLimit = historyLimit
	s.reload()
}

func (s *Store) reload() {
	s.loaded = false
	s.ensureLoaded()
}

func (s *Store) ensureLoaded() {
	if s.loaded {
		return
	}
	if err := s.load(); err != nil {
		slog.Error("failed to load history", "path", s.path, "error", err)
		s.entries = nil
		return
	}
	s.loaded = true
}

func (s *Store) load() error {
	lc, err := s.readOrBootstrap()
	if err != nil {
		return err
	}

	if !lc.hasMetadata || lc.metadata != s.metadata {
		slog.Debug("history metadata differs from configuration",
			"stored_max_lines", lc.metadata.MaxLines,
			"stored_max_line_length", lc.metadata.MaxLineLength,
			"max_lines", s.metadata.MaxLines,
			"max_line_length", s.metadata.MaxLineLength)
		if regenerated, n := s.regenerate(lc); n > 0 {
			if err := writeLog(s.path, s.metadata, regenerated.records); err != nil {
				slog.Warn("failed to install regenerated history", "error", err)
			} else {
				slog.Info("regenerated truncated entries", "count", n,
					"max_lines", s.metadata.MaxLines, "max_line_length", s.metadata.MaxLineLength)
				lc = regenerated
			}
		}
	}

	s.entries = lc.entries()
	return nil
}

// regenerate rebuilds the preview of every overflowed entry from its
// overflow file under the current bounds. All other lines are carried over
// byte for byte. It returns the new contents and how many entries changed.
func (s *Store) regenerate(lc *logContents) (*logContents, int) {
	if s.overflow == nil {
		slog.Warn("no overflow directory configured, skipping regeneration")
		return lc, 0
	}

	f := s.formatter()
	out := &logContents{metadata: s.metadata, hasMetadata: true, records: make([]record, len(lc.records))}
	regenerated := 0
	for i, rec := range lc.records {
		out.records[i] = rec
		if !rec.valid || !rec.entry.Overflowed() {
			continue
		}

		data, err := s.overflow.ReadFile(rec.entry.OverflowHash)
		if err != nil {
			slog.Warn("could not load full content for regeneration", "hash", rec.entry.OverflowHash, "error", err)
			continue
		}

		entry := rec.entry
		entry.Content = f.FormatForDisplay(string(data))
		out.records[i] = record{raw: formatLine(entry), entry: entry, valid: true}
		regenerated++
	}
	return out, regenerated
}

// readOrBootstrap reads the log, creating it first if it does not exist.
func (s *Store) readOrBootstrap() (*logContents, error) {
	lc, err := readLog(s.path)
	if err == nil {
		return lc, nil
	}
	if !isNotExist(err) {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	slog.Debug("history file doesn't exist, creating with initial entry", "path", s.path)
	if err := s.bootstrap(); err != nil {
		return nil, err
	}
	return readLog(s.path)
}

// bootstrap writes a new log seeded with the current clipboard content.
func (s *Store) bootstrap() error {
	content := SeedPlaceholder
	if s.seed != nil {
		seeded, err := s.seed()
		if err != nil {
			slog.Debug("failed to read clipboard for initial entry", "error", err)
		} else if text.HasNonWhitespace(seeded) {
			content = seeded
		}
	}

	preview, hash := s.formatter().TruncateForStorage(content)
	if hash == "" && text.HasOverflowMarker(preview) {
		preview = SeedPlaceholder
	}
	entry := Entry{
		Content:      preview,
		Timestamp:    s.now().Format(TimestampLayout),
		Source:       SourceClipboard,
		OverflowHash: hash,
	}

	if err := writeLog(s.path, s.metadata, []record{{raw: formatLine(entry), entry: entry, valid: true}}); err != nil {
		return fmt.Errorf("failed to create history file: %w", err)
	}
	slog.Debug("created history file", "path", s.path)
	return nil
}
