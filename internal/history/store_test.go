package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yiblet/halen/internal/cachefs"
	"github.com/yiblet/halen/internal/text"
)

// fakeClock returns a Now func advancing one second per call.
func fakeClock() func() time.Time {
	current := time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.Local)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line number %d", i+1)
	}
	return strings.Join(lines, "\n")
}

type testEnv struct {
	dir         string
	path        string
	overflowDir string
	overflow    *cachefs.FS
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	overflowDir := filepath.Join(dir, "overflow")
	overflow, err := cachefs.New(overflowDir)
	if err != nil {
		t.Fatalf("Failed to create overflow dir: %v", err)
	}
	return &testEnv{
		dir:         dir,
		path:        filepath.Join(dir, "history"),
		overflowDir: overflowDir,
		overflow:    overflow,
	}
}

func (e *testEnv) store(maxLines, maxLineLength int) *Store {
	return NewStore(Options{
		Path:          e.path,
		MaxLines:      maxLines,
		MaxLineLength: maxLineLength,
		Overflow:      e.overflow,
		Seed:          func() (string, error) { return "", errors.New("no display") },
		Now:           fakeClock(),
	})
}

// emptyStore returns a store over a log holding only the metadata line.
func (e *testEnv) emptyStore(t *testing.T, maxLines, maxLineLength int) *Store {
	t.Helper()
	if err := writeLog(e.path, Metadata{MaxLines: maxLines, MaxLineLength: maxLineLength}, nil); err != nil {
		t.Fatalf("Failed to write empty log: %v", err)
	}
	return e.store(maxLines, maxLineLength)
}

func (e *testEnv) readLines(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(e.path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)

	if !s.AddEntry("hello", SourceClipboard) {
		t.Fatal("AddEntry(hello) failed")
	}
	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
	if got, _ := s.EntryTruncated(0); got != "hello" {
		t.Errorf("EntryTruncated(0) = %q, want hello", got)
	}
	if entry, _ := s.Entry(0); entry.Overflowed() {
		t.Errorf("hello should not overflow")
	}

	long := numberedLines(15)
	if !s.AddEntry(long, SourceClipboard) {
		t.Fatal("AddEntry(15 lines) failed")
	}

	entry, ok := s.Entry(0)
	if !ok || !entry.Overflowed() {
		t.Fatalf("newest entry should carry an overflow reference: %+v", entry)
	}
	truncated, _ := s.EntryTruncated(0)
	if want := numberedLines(10) + "\n(+5 lines)"; truncated != want {
		t.Errorf("EntryTruncated(0) =\n%s\nwant\n%s", truncated, want)
	}
	full, _ := s.EntryFullContent(0)
	if full != long {
		t.Errorf("EntryFullContent(0) did not round trip")
	}
	if _, err := os.Stat(filepath.Join(env.overflowDir, entry.OverflowHash)); err != nil {
		t.Errorf("overflow file missing: %v", err)
	}
	if got, _ := s.EntryTruncated(1); got != "hello" {
		t.Errorf("EntryTruncated(1) = %q, want hello", got)
	}
}

func TestBootstrapSeedsFromClipboard(t *testing.T) {
	env := newTestEnv(t)
	s := NewStore(Options{
		Path:          filepath.Join(env.dir, "nested", "history"),
		MaxLines:      10,
		MaxLineLength: 80,
		Seed:          func() (string, error) { return "already copied", nil },
		Now:           fakeClock(),
	})

	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
	if got, _ := s.EntryTruncated(0); got != "already copied" {
		t.Errorf("seed entry = %q", got)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("log not created: %v", err)
	}
	firstLine := strings.SplitN(string(data), "\n", 2)[0]
	if firstLine != "# HALEN_METADATA: max_lines=10 max_line_length=80" {
		t.Errorf("metadata line = %q", firstLine)
	}
}

func TestBootstrapPlaceholderOnClipboardFailure(t *testing.T) {
	env := newTestEnv(t)
	s := env.store(10, 80)

	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
	if got, _ := s.EntryTruncated(0); got != SeedPlaceholder {
		t.Errorf("seed entry = %q, want %q", got, SeedPlaceholder)
	}
}

func TestAddEntryRejectsBlankContent(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)

	for _, content := range []string{"", " ", "\n\t\r\n  "} {
		if s.AddEntry(content, SourceClipboard) {
			t.Errorf("AddEntry(%q) should be rejected", content)
		}
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestAddEntryDeduplicates(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)

	s.AddEntry("first", SourceClipboard)
	s.AddEntry("second", SourceClipboard)
	before, _ := s.Entry(1)

	if !s.AddEntry("first", SourcePrimary) {
		t.Fatal("AddEntry failed")
	}
	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", s.Count())
	}

	top, _ := s.Entry(0)
	if top.Content != "first" {
		t.Errorf("top entry = %q, want first", top.Content)
	}
	if top.Timestamp == before.Timestamp {
		t.Errorf("top entry kept the old timestamp %s", top.Timestamp)
	}
	if top.Source != SourcePrimary {
		t.Errorf("top entry source = %s, want PRIMARY", top.Source)
	}
	if got, _ := s.EntryTruncated(1); got != "second" {
		t.Errorf("EntryTruncated(1) = %q, want second", got)
	}
}

func TestAddEntryDeduplicatesOverflow(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	long := numberedLines(20)

	s.AddEntry(long, SourceClipboard)
	s.AddEntry("between", SourceClipboard)
	s.AddEntry(long, SourceClipboard)

	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", s.Count())
	}
	full, _ := s.EntryFullContent(0)
	if full != long {
		t.Errorf("top entry should be the long content")
	}

	files, err := os.ReadDir(env.overflowDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("expected 1 overflow file, got %d", len(files))
	}
}

func TestAddEntryEscapesContent(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	content := "tab\tseparated\r\nline"

	s.AddEntry(content, SourceClipboard)

	lines := env.readLines(t)
	if len(lines) != 2 {
		t.Fatalf("log has %d lines, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[1], `] tab\tseparated\r\nline`) {
		t.Errorf("entry line = %q", lines[1])
	}
	if got, _ := s.EntryFullContent(0); got != content {
		t.Errorf("EntryFullContent(0) = %q", got)
	}
}

func TestOverflowWithoutDirectoryIsLossy(t *testing.T) {
	env := newTestEnv(t)
	if err := writeLog(env.path, Metadata{MaxLines: 3, MaxLineLength: 80}, nil); err != nil {
		t.Fatal(err)
	}
	s := NewStore(Options{Path: env.path, MaxLines: 3, MaxLineLength: 80, Now: fakeClock()})

	s.AddEntry(numberedLines(5), SourceClipboard)

	entry, _ := s.Entry(0)
	if entry.Overflowed() {
		t.Errorf("entry should have no overflow hash without a directory")
	}
	full, _ := s.EntryFullContent(0)
	if !strings.HasSuffix(full, "(+2 lines)") {
		t.Errorf("lossy content = %q", full)
	}
}

func TestDeleteEntry(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)

	s.AddEntry("a", SourceClipboard)
	s.AddEntry("b", SourceClipboard)
	s.AddEntry("c", SourceClipboard)

	if !s.DeleteEntry(1) {
		t.Fatal("DeleteEntry(1) failed")
	}
	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", s.Count())
	}
	for i, want := range []string{"c", "a"} {
		if got, _ := s.EntryTruncated(i); got != want {
			t.Errorf("EntryTruncated(%d) = %q, want %q", i, got, want)
		}
	}
	for _, entry := range s.Entries() {
		if entry.Content == "b" {
			t.Error("deleted content is still retrievable")
		}
	}
}

func TestDeleteEntryRemovesOverflowFile(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)

	s.AddEntry(numberedLines(12), SourceClipboard)
	entry, _ := s.Entry(0)
	overflowPath := filepath.Join(env.overflowDir, entry.OverflowHash)
	if _, err := os.Stat(overflowPath); err != nil {
		t.Fatalf("overflow file missing before delete: %v", err)
	}

	if !s.DeleteEntry(0) {
		t.Fatal("DeleteEntry(0) failed")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
	if _, err := os.Stat(overflowPath); !os.IsNotExist(err) {
		t.Errorf("overflow file should be removed")
	}
}

func TestDeleteEntryOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	s.AddEntry("only", SourceClipboard)

	for _, index := range []int{-1, 1, 99} {
		if s.DeleteEntry(index) {
			t.Errorf("DeleteEntry(%d) should fail", index)
		}
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestEntryIndexing(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	s.AddEntry("old", SourceClipboard)
	s.AddEntry("new", SourceClipboard)

	if got, _ := s.EntryTruncated(-1); got != "new" {
		t.Errorf("EntryTruncated(-1) = %q, want newest", got)
	}
	if _, ok := s.EntryTruncated(2); ok {
		t.Error("EntryTruncated(2) should fail")
	}
	if _, ok := s.EntryFullContent(2); ok {
		t.Error("EntryFullContent(2) should fail")
	}

	entries := s.Entries()
	if len(entries) != 2 || entries[0].Content != "new" || entries[1].Content != "old" {
		t.Errorf("Entries() = %+v", entries)
	}
}

func TestEntryFullContentMissingOverflowFile(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	s.AddEntry(numberedLines(11), SourceClipboard)

	entry, _ := s.Entry(0)
	if err := os.Remove(filepath.Join(env.overflowDir, entry.OverflowHash)); err != nil {
		t.Fatal(err)
	}

	full, ok := s.EntryFullContent(0)
	if !ok {
		t.Fatal("EntryFullContent should fall back to the preview")
	}
	if full != entry.Content {
		t.Errorf("fallback = %q, want preview %q", full, entry.Content)
	}
}

func TestRegenerationRewritesOnlyOverflowEntries(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)

	long := numberedLines(15)
	s.AddEntry("plain entry that is longer than five", SourceClipboard)
	s.AddEntry(long, SourceClipboard)
	s.AddEntry("another plain one", SourcePrimary)

	before := env.readLines(t)

	reloaded := env.store(10, 5)
	if reloaded.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", reloaded.Count())
	}

	after := env.readLines(t)
	if after[0] != "# HALEN_METADATA: max_lines=10 max_line_length=5" {
		t.Errorf("metadata line = %q", after[0])
	}
	if after[1] != before[1] || after[3] != before[3] {
		t.Errorf("non-overflow lines changed:\nbefore %q\nafter  %q", before, after)
	}
	if after[2] == before[2] {
		t.Errorf("overflow line was not regenerated")
	}

	preview, _ := reloaded.EntryTruncated(1)
	for _, line := range strings.Split(preview, "\n") {
		if !strings.HasPrefix(line, "(+") && len(line) > 5 {
			t.Errorf("regenerated line %q exceeds new bound", line)
		}
	}
	if full, _ := reloaded.EntryFullContent(1); full != long {
		t.Errorf("full content changed by regeneration")
	}
}

func TestRegenerationSkippedWhenNothingOverflows(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	s.AddEntry("one", SourceClipboard)
	s.AddEntry("two", SourceClipboard)

	before, err := os.ReadFile(env.path)
	if err != nil {
		t.Fatal(err)
	}

	reloaded := env.store(4, 40)
	if reloaded.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", reloaded.Count())
	}

	after, err := os.ReadFile(env.path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("log replaced although no entry needed rewriting")
	}
}

func TestRegenerationKeepsEntryWithMissingOverflowFile(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	s.AddEntry(numberedLines(13), SourceClipboard)
	entry, _ := s.Entry(0)
	if err := os.Remove(filepath.Join(env.overflowDir, entry.OverflowHash)); err != nil {
		t.Fatal(err)
	}
	before := env.readLines(t)

	reloaded := env.store(10, 20)
	if reloaded.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", reloaded.Count())
	}
	after := env.readLines(t)
	if after[1] != before[1] {
		t.Errorf("entry without overflow file should be kept as is")
	}
}

func TestReconfigureRegenerates(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	s.AddEntry(numberedLines(15), SourceClipboard)

	s.Reconfigure(3, 80, 0)

	preview, _ := s.EntryTruncated(0)
	if want := numberedLines(3) + "\n(+12 lines)"; preview != want {
		t.Errorf("preview after Reconfigure = %q, want %q", preview, want)
	}
	if s.Metadata() != (Metadata{MaxLines: 3, MaxLineLength: 80}) {
		t.Errorf("Metadata() = %+v", s.Metadata())
	}
}

func TestMissingMetadataTriggersRegeneration(t *testing.T) {
	env := newTestEnv(t)
	long := numberedLines(12)
	hash := "0badf00d"
	if err := env.overflow.WriteFile(hash, []byte(long), 0644); err != nil {
		t.Fatal(err)
	}
	log := "[2025-01-01 10:00:00.000] [CLIPBOARD] [OVERFLOW:0badf00d] stale preview\n" +
		"[2025-01-01 10:00:01.000] [CLIPBOARD] plain\n"
	if err := os.WriteFile(env.path, []byte(log), 0644); err != nil {
		t.Fatal(err)
	}

	s := env.store(10, 80)
	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", s.Count())
	}
	preview, _ := s.EntryTruncated(1)
	if !strings.HasSuffix(preview, "(+2 lines)") {
		t.Errorf("preview not regenerated: %q", preview)
	}

	lines := env.readLines(t)
	if lines[0] != "# HALEN_METADATA: max_lines=10 max_line_length=80" {
		t.Errorf("metadata line = %q", lines[0])
	}
	if lines[2] != "[2025-01-01 10:00:01.000] [CLIPBOARD] plain" {
		t.Errorf("plain line changed: %q", lines[2])
	}
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	env := newTestEnv(t)
	log := "# HALEN_METADATA: max_lines=10 max_line_length=80\n" +
		"short\n" +
		"this line has no brackets at all\n" +
		"[2025-01-01 10:00:00.000] [CLIPBOARD] valid entry\n" +
		"[unterminated timestamp CLIPBOARD\n"
	if err := os.WriteFile(env.path, []byte(log), 0644); err != nil {
		t.Fatal(err)
	}

	s := env.store(10, 80)
	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
	if got, _ := s.EntryTruncated(0); got != "valid entry" {
		t.Errorf("EntryTruncated(0) = %q", got)
	}

	s.AddEntry("new entry", SourceClipboard)
	lines := env.readLines(t)
	if len(lines) != 6 {
		t.Fatalf("log has %d lines, want 6: %q", len(lines), lines)
	}
	if lines[1] != "short" || lines[2] != "this line has no brackets at all" {
		t.Errorf("malformed lines not preserved: %q", lines)
	}
}

func TestHistoryLimit(t *testing.T) {
	env := newTestEnv(t)
	if err := writeLog(env.path, Metadata{MaxLines: 3, MaxLineLength: 80}, nil); err != nil {
		t.Fatal(err)
	}
	s := NewStore(Options{
		Path:          env.path,
		MaxLines:      3,
		MaxLineLength: 80,
		HistoryLimit:  3,
		Overflow:      env.overflow,
		Now:           fakeClock(),
	})

	s.AddEntry(numberedLines(6), SourceClipboard)
	oldest, _ := s.Entry(0)
	for _, content := range []string{"b", "c", "d"} {
		s.AddEntry(content, SourceClipboard)
	}

	if s.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", s.Count())
	}
	for i, want := range []string{"d", "c", "b"} {
		if got, _ := s.EntryTruncated(i); got != want {
			t.Errorf("EntryTruncated(%d) = %q, want %q", i, got, want)
		}
	}
	if _, err := os.Stat(filepath.Join(env.overflowDir, oldest.OverflowHash)); !os.IsNotExist(err) {
		t.Errorf("overflow file of trimmed entry should be removed")
	}
}

func TestClear(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	s.AddEntry("a", SourceClipboard)
	s.AddEntry(numberedLines(11), SourceClipboard)

	if !s.Clear() {
		t.Fatal("Clear failed")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
	files, _ := os.ReadDir(env.overflowDir)
	if len(files) != 0 {
		t.Errorf("expected overflow files to be removed, got %d", len(files))
	}
	if lines := env.readLines(t); len(lines) != 1 {
		t.Errorf("cleared log has %d lines, want 1", len(lines))
	}
}

func TestAddEntryFailsWhenDirectoryUnusable(t *testing.T) {
	env := newTestEnv(t)
	blocker := filepath.Join(env.dir, "blocker")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(Options{
		Path:          filepath.Join(blocker, "history"),
		MaxLines:      10,
		MaxLineLength: 80,
		Now:           fakeClock(),
	})

	if s.AddEntry("content", SourceClipboard) {
		t.Error("AddEntry should fail when the log cannot be written")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr bool
	}{
		{
			name: "plain",
			line: "[2025-01-01 10:00:00.000] [CLIPBOARD] hello world",
			want: Entry{Timestamp: "2025-01-01 10:00:00.000", Source: SourceClipboard, Content: "hello world"},
		},
		{
			name: "overflow",
			line: `[2025-01-01 10:00:00.000] [PRIMARY] [OVERFLOW:deadbeef] a\nb`,
			want: Entry{Timestamp: "2025-01-01 10:00:00.000", Source: SourcePrimary, OverflowHash: "deadbeef", Content: "a\nb"},
		},
		{
			name: "overflow lookalike content",
			line: "[2025-01-01 10:00:00.000] [CLIPBOARD] [OVERFLOW:nothex!] text",
			want: Entry{Timestamp: "2025-01-01 10:00:00.000", Source: SourceClipboard, Content: "[OVERFLOW:nothex!] text"},
		},
		{
			name: "segment-like content after overflow segment",
			line: "[2025-01-01 10:00:00.000] [CLIPBOARD] [OVERFLOW:0badf00d] [OVERFLOW:deadbeef] hello",
			want: Entry{Timestamp: "2025-01-01 10:00:00.000", Source: SourceClipboard, OverflowHash: "0badf00d", Content: "[OVERFLOW:deadbeef] hello"},
		},
		{
			name: "leading space kept",
			line: "[2025-01-01 10:00:00.000] [CLIPBOARD]   indented",
			want: Entry{Timestamp: "2025-01-01 10:00:00.000", Source: SourceClipboard, Content: "  indented"},
		},
		{name: "too short", line: "[a] [b]", wantErr: true},
		{name: "no brackets", line: "plain text line here", wantErr: true},
		{name: "no source", line: "[2025-01-01 10:00:00.000] content", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseLine(%q) should fail, got %+v", tt.line, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLine(%q) failed: %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("parseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
			if formatLine(got) != tt.line {
				t.Errorf("formatLine round trip = %q, want %q", formatLine(got), tt.line)
			}
		})
	}
}

func TestMarkerLikeContentRoundTrips(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	content := "[OVERFLOW:deadbeef] hello"

	if !s.AddEntry(content, SourceClipboard) {
		t.Fatal("AddEntry failed")
	}

	lines := env.readLines(t)
	want := "[OVERFLOW:" + text.HashString(content) + "] " + content
	if !strings.HasSuffix(lines[len(lines)-1], want) {
		t.Errorf("log line = %q, want suffix %q", lines[len(lines)-1], want)
	}

	reopened := env.store(10, 80)
	entry, ok := reopened.Entry(0)
	if !ok {
		t.Fatal("Entry(0) missing after reload")
	}
	if entry.OverflowHash != text.HashString(content) {
		t.Errorf("OverflowHash = %q, want %q", entry.OverflowHash, text.HashString(content))
	}
	if got, _ := reopened.EntryTruncated(0); got != content {
		t.Errorf("EntryTruncated(0) = %q, want %q", got, content)
	}
	if got, _ := reopened.EntryFullContent(0); got != content {
		t.Errorf("EntryFullContent(0) = %q, want %q", got, content)
	}
}

func TestMarkerLikeContentRejectedWithoutOverflowDir(t *testing.T) {
	env := newTestEnv(t)
	if err := writeLog(env.path, Metadata{MaxLines: 10, MaxLineLength: 80}, nil); err != nil {
		t.Fatal(err)
	}
	s := NewStore(Options{Path: env.path, MaxLines: 10, MaxLineLength: 80, Now: fakeClock()})

	if s.AddEntry("[OVERFLOW:deadbeef] hello", SourceClipboard) {
		t.Error("AddEntry should refuse content it cannot store faithfully")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestBootstrapMarkerLikeSeedFallsBackWithoutOverflowDir(t *testing.T) {
	env := newTestEnv(t)
	s := NewStore(Options{
		Path:          env.path,
		MaxLines:      10,
		MaxLineLength: 80,
		Seed:          func() (string, error) { return "[OVERFLOW:deadbeef] seed", nil },
		Now:           fakeClock(),
	})

	entry, ok := s.Entry(0)
	if !ok {
		t.Fatal("Entry(0) missing")
	}
	if entry.Content != SeedPlaceholder || entry.Overflowed() {
		t.Errorf("Entry(0) = %+v, want the placeholder", entry)
	}
}

func TestDuplicateRemovesStaleOverflowFile(t *testing.T) {
	env := newTestEnv(t)
	s := env.emptyStore(t, 10, 80)
	long := numberedLines(20)

	s.AddEntry(long, SourceClipboard)
	if _, err := os.Stat(filepath.Join(env.overflowDir, text.HashString(long))); err != nil {
		t.Fatalf("overflow file missing: %v", err)
	}

	// With room for every line the content no longer overflows.
	s.Reconfigure(100, 80, 50)
	if !s.AddEntry(long, SourceClipboard) {
		t.Fatal("AddEntry failed")
	}

	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
	entry, _ := s.Entry(0)
	if entry.Overflowed() {
		t.Errorf("entry should be stored inline, got hash %q", entry.OverflowHash)
	}
	files, err := os.ReadDir(env.overflowDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no overflow files, got %d", len(files))
	}
}

func TestWriteLogLeavesNoTemporaryFiles(t *testing.T) {
	env := newTestEnv(t)
	entry := Entry{Timestamp: "2025-01-01 10:00:00.000", Source: SourceClipboard, Content: "kept"}
	records := []record{{raw: formatLine(entry), entry: entry, valid: true}}

	for i := 0; i < 3; i++ {
		if err := writeLog(env.path, Metadata{MaxLines: 10, MaxLineLength: 80}, records); err != nil {
			t.Fatalf("writeLog failed: %v", err)
		}
	}

	lines := env.readLines(t)
	if len(lines) != 2 || lines[1] != formatLine(entry) {
		t.Errorf("log lines = %q", lines)
	}
	dirEntries, err := os.ReadDir(env.dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, de := range dirEntries {
		if strings.Contains(de.Name(), ".tmp-") {
			t.Errorf("temporary file left behind: %s", de.Name())
		}
	}
}
