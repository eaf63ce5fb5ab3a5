package cli

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/yiblet/halen/internal/clipboard"
	"github.com/yiblet/halen/internal/clipboard/mockboard"
	"github.com/yiblet/halen/internal/config"
	"github.com/yiblet/halen/internal/history"
	"github.com/yiblet/halen/internal/lock"
	"github.com/yiblet/halen/internal/popup"
)

type testEnv struct {
	configPath string
	pidPath    string
	board      *mockboard.MockClipboard
}

// newTestEnv points every XDG directory at a temporary tree.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(dir, "run"))

	board := mockboard.New()
	board.SetData(clipboard.Clipboard, "seeded")
	return &testEnv{
		configPath: filepath.Join(dir, "config", "halen", "config.yaml"),
		pidPath:    filepath.Join(dir, "run", "halen.pid"),
		board:      board,
	}
}

// run executes args and returns what the command printed.
func (e *testEnv) run(t *testing.T, args *Args, input string) (string, error) {
	t.Helper()
	args.ConfigFile = &e.configPath

	var out bytes.Buffer
	c, err := NewWithOptions(args, Options{
		Board:   e.board,
		Out:     &out,
		In:      strings.NewReader(input),
		PIDPath: e.pidPath,
	})
	if err != nil {
		t.Fatalf("Failed to create CLI: %v", err)
	}
	defer c.Close()

	err = c.Execute()
	return out.String(), err
}

// store opens the history the commands use.
func (e *testEnv) store(t *testing.T) *history.Store {
	t.Helper()
	c, err := NewWithOptions(&Args{ConfigFile: &e.configPath, List: &ListCmd{}}, Options{Board: e.board})
	if err != nil {
		t.Fatal(err)
	}
	store, err := c.openStore()
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestArgsValidation_ValidCases(t *testing.T) {
	tests := []struct {
		name string
		args Args
	}{
		{"no command", Args{}},
		{"run", Args{Run: &RunCmd{}}},
		{"list", Args{List: &ListCmd{Limit: 5}}},
		{"get", Args{Get: &GetCmd{Index: 0}}},
		{"get full to clipboard", Args{Get: &GetCmd{Index: 2, Full: true, Clipboard: true}}},
		{"delete", Args{Delete: &DeleteCmd{Index: 1}}},
		{"config get", Args{Config: &ConfigCmd{Get: &ConfigGetCmd{Key: "history-limit"}}}},
		{"config set", Args{Config: &ConfigCmd{Set: &ConfigSetCmd{Key: "max-lines", Value: "20"}}}},
		{"config list", Args{Config: &ConfigCmd{List: &ConfigListCmd{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.args.Validate(); err != nil {
				t.Errorf("Expected validation to pass for %s, got: %v", tt.name, err)
			}
		})
	}
}

func TestArgsValidation_InvalidCases(t *testing.T) {
	tests := []struct {
		name string
		args Args
	}{
		{"get negative index", Args{Get: &GetCmd{Index: -1}}},
		{"delete negative index", Args{Delete: &DeleteCmd{Index: -3}}},
		{"list negative limit", Args{List: &ListCmd{Limit: -1}}},
		{"config no subcommand", Args{Config: &ConfigCmd{}}},
		{"config get invalid key", Args{Config: &ConfigCmd{Get: &ConfigGetCmd{Key: "invalid-key"}}}},
		{"config set invalid key", Args{Config: &ConfigCmd{Set: &ConfigSetCmd{Key: "invalid-key", Value: "1"}}}},
		{"config multiple subcommands", Args{Config: &ConfigCmd{
			Get:  &ConfigGetCmd{Key: "history-limit"},
			List: &ConfigListCmd{},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.args.Validate(); err == nil {
				t.Errorf("Expected validation to fail for %s", tt.name)
			}
		})
	}
}

func TestHasCommand(t *testing.T) {
	if (&Args{}).HasCommand() {
		t.Error("Expected no command for empty args")
	}
	if !(&Args{Toggle: &ToggleCmd{}}).HasCommand() {
		t.Error("Expected toggle to count as a command")
	}
}

func TestList_SeedsFromClipboard(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, &Args{List: &ListCmd{}}, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"CONTENT", "seeded", "CLIPBOARD"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected list output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestList_Limit(t *testing.T) {
	env := newTestEnv(t)
	store := env.store(t)
	store.AddEntry("second", history.SourceClipboard)
	store.AddEntry("third", history.SourcePrimary)

	out, err := env.run(t, &Args{List: &ListCmd{Limit: 2}}, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "third") || !strings.Contains(out, "second") {
		t.Errorf("Expected the two newest entries, got:\n%s", out)
	}
	if strings.Contains(out, "seeded") {
		t.Errorf("Expected the oldest entry to be cut, got:\n%s", out)
	}
}

func TestGet(t *testing.T) {
	env := newTestEnv(t)
	store := env.store(t)
	store.AddEntry("newest", history.SourceClipboard)

	out, err := env.run(t, &Args{Get: &GetCmd{Index: 0}}, "")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out != "newest\n" {
		t.Errorf("Expected %q, got %q", "newest\n", out)
	}

	out, err = env.run(t, &Args{Get: &GetCmd{Index: 1}}, "")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out != "seeded\n" {
		t.Errorf("Expected %q, got %q", "seeded\n", out)
	}
}

func TestGet_FullContent(t *testing.T) {
	env := newTestEnv(t)
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	content := strings.Join(lines, "\n")
	env.store(t).AddEntry(content, history.SourceClipboard)

	preview, err := env.run(t, &Args{Get: &GetCmd{Index: 0}}, "")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if strings.Contains(preview, "line 19") || !strings.Contains(preview, "(+10 lines)") {
		t.Errorf("Expected a bounded preview, got:\n%s", preview)
	}

	full, err := env.run(t, &Args{Get: &GetCmd{Index: 0, Full: true}}, "")
	if err != nil {
		t.Fatalf("get --full failed: %v", err)
	}
	if full != content+"\n" {
		t.Errorf("Expected the full content, got:\n%s", full)
	}
}

func TestGet_Clipboard(t *testing.T) {
	env := newTestEnv(t)
	env.store(t).AddEntry("copy me", history.SourceClipboard)

	out, err := env.run(t, &Args{Get: &GetCmd{Index: 0, Clipboard: true}}, "")
	if err != nil {
		t.Fatalf("get -c failed: %v", err)
	}
	if got := env.board.GetData(clipboard.Clipboard); got != "copy me" {
		t.Errorf("Expected clipboard %q, got %q", "copy me", got)
	}
	if !strings.Contains(out, "Copied to clipboard: copy me") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestGet_OutOfRange(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, &Args{Get: &GetCmd{Index: 5}}, ""); err == nil {
		t.Error("Expected an error for a missing entry")
	}
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	env.store(t).AddEntry("doomed", history.SourceClipboard)

	out, err := env.run(t, &Args{Delete: &DeleteCmd{Index: 0}}, "")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out, "Deleted entry 0") {
		t.Errorf("Unexpected output %q", out)
	}

	entries := env.store(t).Entries()
	if len(entries) != 1 || entries[0].Content != "seeded" {
		t.Errorf("Expected only the seed entry to remain, got %+v", entries)
	}

	if _, err := env.run(t, &Args{Delete: &DeleteCmd{Index: 3}}, ""); err == nil {
		t.Error("Expected an error for a missing entry")
	}
}

func TestClear(t *testing.T) {
	env := newTestEnv(t)
	env.store(t).AddEntry("other", history.SourceClipboard)

	out, err := env.run(t, &Args{Clear: &ClearCmd{}}, "n\n")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("Expected cancellation, got %q", out)
	}
	if env.store(t).Count() != 2 {
		t.Fatal("Expected history untouched after cancelling")
	}

	out, err = env.run(t, &Args{Clear: &ClearCmd{}}, "y\n")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !strings.Contains(out, "Cleared 2 entries") {
		t.Errorf("Unexpected output %q", out)
	}
	if env.store(t).Count() != 0 {
		t.Error("Expected history to be empty")
	}

	out, err = env.run(t, &Args{Clear: &ClearCmd{Force: true}}, "")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !strings.Contains(out, "already empty") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestConfigCommands_Integration(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, &Args{Config: &ConfigCmd{Get: &ConfigGetCmd{Key: "max-lines"}}}, "")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if out != "10\n" {
		t.Errorf("Expected default 10, got %q", out)
	}

	if _, err := env.run(t, &Args{Config: &ConfigCmd{Set: &ConfigSetCmd{Key: "max-lines", Value: "20"}}}, ""); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	out, _ = env.run(t, &Args{Config: &ConfigCmd{Get: &ConfigGetCmd{Key: "max-lines"}}}, "")
	if out != "20\n" {
		t.Errorf("Expected 20 after set, got %q", out)
	}

	out, err = env.run(t, &Args{Config: &ConfigCmd{List: &ConfigListCmd{}}}, "")
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	for _, want := range []string{"max-lines = 20", "history-file = [default]", "position = mouse"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected config list to contain %q, got:\n%s", want, out)
		}
	}

	invalid := []struct{ key, value string }{
		{"max-lines", "not-a-number"},
		{"max-lines", "0"},
		{"history-limit", "2000"},
		{"track-primary", "maybe"},
		{"background", "red"},
	}
	for _, tc := range invalid {
		args := &Args{Config: &ConfigCmd{Set: &ConfigSetCmd{Key: tc.key, Value: tc.value}}}
		if _, err := env.run(t, args, ""); err == nil {
			t.Errorf("Expected config set %s=%s to fail", tc.key, tc.value)
		}
	}
}

func TestToggle_NotRunning(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, &Args{Toggle: &ToggleCmd{}}, ""); err != lock.ErrNotRunning {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}
}

func TestToggle_SignalsDaemon(t *testing.T) {
	env := newTestEnv(t)
	held, err := lock.TryAcquire(env.pidPath)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1)
	defer signal.Stop(signals)

	out, err := env.run(t, &Args{Toggle: &ToggleCmd{}}, "")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !strings.Contains(out, fmt.Sprintf("pid %d", os.Getpid())) {
		t.Errorf("Unexpected output %q", out)
	}

	select {
	case <-signals:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected SIGUSR1")
	}
}

func TestRun_RefusesSecondDaemon(t *testing.T) {
	env := newTestEnv(t)
	held, err := lock.TryAcquire(env.pidPath)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	_, err = env.run(t, &Args{Run: &RunCmd{}}, "")
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("Expected already-running error, got %v", err)
	}
}

func TestWindowOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Position = config.PositionScreen
	cfg.Anchor = 3

	opts, err := windowOptions(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Background != 0xFFFFFF || opts.Foreground != 0 || opts.CountColor != 0xFF0000 {
		t.Errorf("Unexpected colours %06x %06x %06x", opts.Background, opts.Foreground, opts.CountColor)
	}
	if opts.Style.Mode != popup.ModeScreen || opts.Style.Anchor != popup.TopRight {
		t.Errorf("Unexpected style %+v", opts.Style)
	}
	if opts.Font != "fixed" || opts.FontSize != 12 {
		t.Errorf("Unexpected font %s/%d", opts.Font, opts.FontSize)
	}

	cfg.CountColor = "#12345"
	if _, err := windowOptions(cfg); err == nil {
		t.Error("Expected an error for a bad colour")
	}
}
