package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yiblet/halen/internal/cachefs"
	"github.com/yiblet/halen/internal/clipboard"
	"github.com/yiblet/halen/internal/clipboard/sysboard"
	"github.com/yiblet/halen/internal/config"
	"github.com/yiblet/halen/internal/history"
	"github.com/yiblet/halen/internal/lock"
	"github.com/yiblet/halen/internal/text"
	"github.com/yiblet/halen/internal/tui"
)

// CLI handles the command-line interface
type CLI struct {
	args    *Args
	cm      *config.ConfigManager
	config  *config.Config
	board   clipboard.Board
	out     io.Writer
	in      io.Reader
	pidPath string
	logFile io.Closer
}

// Options overrides the CLI's external dependencies, for tests.
type Options struct {
	Board   clipboard.Board
	Out     io.Writer
	In      io.Reader
	PIDPath string
}

// New creates a CLI for args using the system clipboard and standard streams.
func New(args *Args) (*CLI, error) {
	return NewWithOptions(args, Options{})
}

// NewWithOptions creates a CLI with custom dependencies. The configuration
// is loaded and logging is set up before it returns.
func NewWithOptions(args *Args, opts Options) (*CLI, error) {
	var cm *config.ConfigManager
	if args.ConfigFile != nil {
		cm = config.NewConfigManagerWithPath(*args.ConfigFile)
	} else {
		var err error
		if cm, err = config.NewConfigManager(); err != nil {
			return nil, err
		}
	}

	cfg, err := cm.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	c := &CLI{
		args:    args,
		cm:      cm,
		config:  cfg,
		board:   opts.Board,
		out:     opts.Out,
		in:      opts.In,
		pidPath: opts.PIDPath,
	}
	if c.board == nil {
		c.board = sysboard.New()
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.in == nil {
		c.in = os.Stdin
	}

	logFile, err := setupLogging(cfg, args.Verbose, args.Run != nil || !args.HasCommand())
	if err != nil {
		return nil, err
	}
	c.logFile = logFile
	return c, nil
}

// Close releases the log file, if any.
func (c *CLI) Close() error {
	if c.logFile == nil {
		return nil
	}
	return c.logFile.Close()
}

// Execute runs the CLI command based on parsed arguments
func (c *CLI) Execute() error {
	args := c.args
	if err := args.Validate(); err != nil {
		return err
	}

	switch {
	case args.List != nil:
		return c.executeList(args.List)
	case args.Get != nil:
		return c.executeGet(args.Get)
	case args.Delete != nil:
		return c.executeDelete(args.Delete)
	case args.Clear != nil:
		return c.executeClear(args.Clear)
	case args.Browse != nil:
		return c.executeBrowse()
	case args.Toggle != nil:
		return c.executeToggle()
	case args.Config != nil:
		return c.executeConfig(args.Config)
	default:
		return c.executeRun()
	}
}

// openStore opens the history log named by the configuration, moving a log
// from the legacy default location first when the default path is used.
func (c *CLI) openStore() (*history.Store, error) {
	path, err := c.config.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve history file: %w", err)
	}
	if c.config.HistoryFile == "" {
		if legacy, err := cachefs.LegacyHistoryFile(); err == nil {
			if err := cachefs.MigrateLegacyHistory(path, legacy); err != nil {
				slog.Warn("failed to migrate legacy history", "from", legacy, "error", err)
			}
		}
	}

	dir, err := c.config.OverflowPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve overflow directory: %w", err)
	}
	overflow, err := cachefs.New(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open overflow directory: %w", err)
	}

	board := c.board
	return history.NewStore(history.Options{
		Path:          path,
		MaxLines:      c.config.MaxLines,
		MaxLineLength: c.config.MaxLineLength,
		HistoryLimit:  c.config.HistoryLimit,
		Overflow:      overflow,
		Seed: func() (string, error) {
			return clipboard.ReadText(context.Background(), board, clipboard.Clipboard)
		},
	}), nil
}

// executeList handles 'halen list'
func (c *CLI) executeList(cmd *ListCmd) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}

	entries := store.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "History is empty.")
		return nil
	}
	if cmd.Limit > 0 && cmd.Limit < len(entries) {
		entries = entries[:cmd.Limit]
	}

	fmt.Fprintln(c.out, renderEntries(entries))
	return nil
}

// renderEntries lays entries out as a table, newest first.
func renderEntries(entries []history.Entry) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("#", "TIME", "SOURCE", "CONTENT").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for i, e := range entries {
		content := text.Summary(e.Content, 60)
		if e.Overflowed() {
			content += " [overflow]"
		}
		t.Row(strconv.Itoa(i), e.Timestamp, string(e.Source), content)
	}
	return t.Render()
}

// executeGet handles 'halen get'
func (c *CLI) executeGet(cmd *GetCmd) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}

	var content string
	var ok bool
	if cmd.Full || cmd.Clipboard {
		content, ok = store.EntryFullContent(cmd.Index)
	} else {
		content, ok = store.EntryTruncated(cmd.Index)
	}
	if !ok {
		return fmt.Errorf("no entry at index %d (history has %d)", cmd.Index, store.Count())
	}

	if cmd.Clipboard {
		if err := c.board.Write(context.Background(), clipboard.Clipboard, content); err != nil {
			return fmt.Errorf("failed to write to clipboard: %w", err)
		}
		fmt.Fprintf(c.out, "Copied to clipboard: %s\n", text.Summary(content, 60))
		return nil
	}

	fmt.Fprintln(c.out, content)
	return nil
}

// executeDelete handles 'halen delete'
func (c *CLI) executeDelete(cmd *DeleteCmd) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	if cmd.Index >= store.Count() {
		return fmt.Errorf("no entry at index %d (history has %d)", cmd.Index, store.Count())
	}
	if !store.DeleteEntry(cmd.Index) {
		return fmt.Errorf("failed to delete entry %d", cmd.Index)
	}
	fmt.Fprintf(c.out, "Deleted entry %d.\n", cmd.Index)
	return nil
}

// executeClear handles 'halen clear'
func (c *CLI) executeClear(cmd *ClearCmd) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}

	count := store.Count()
	if count == 0 {
		fmt.Fprintln(c.out, "History is already empty.")
		return nil
	}

	if !cmd.Force {
		fmt.Fprintf(c.out, "This will delete %d entries from history. Continue? [y/N]: ", count)
		var response string
		fmt.Fscanln(c.in, &response)
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(c.out, "Cancelled.")
			return nil
		}
	}

	if !store.Clear() {
		return fmt.Errorf("failed to clear history")
	}
	fmt.Fprintf(c.out, "Cleared %d entries from history.\n", count)
	return nil
}

// executeBrowse handles 'halen browse'
func (c *CLI) executeBrowse() error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	if store.Count() == 0 {
		fmt.Fprintln(c.out, "History is empty!")
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, "Start the daemon with 'halen run' and copy something.")
		return nil
	}

	p := tea.NewProgram(tui.NewAppModel(store, c.board), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func (c *CLI) lockPath() (string, error) {
	if c.pidPath != "" {
		return c.pidPath, nil
	}
	return cachefs.DefaultPIDFile()
}

// executeToggle handles 'halen toggle'
func (c *CLI) executeToggle() error {
	path, err := c.lockPath()
	if err != nil {
		return fmt.Errorf("failed to resolve lock file: %w", err)
	}
	pid, err := lock.SignalToggle(path)
	if errors.Is(err, lock.ErrNotRunning) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to toggle daemon: %w", err)
	}
	fmt.Fprintf(c.out, "Toggled halen daemon (pid %d).\n", pid)
	return nil
}

// executeConfig handles 'halen config'
func (c *CLI) executeConfig(cmd *ConfigCmd) error {
	switch {
	case cmd.Get != nil:
		return c.executeConfigGet(cmd.Get)
	case cmd.Set != nil:
		return c.executeConfigSet(cmd.Set)
	case cmd.List != nil:
		return c.executeConfigList()
	default:
		return fmt.Errorf("no config subcommand specified")
	}
}

func (c *CLI) executeConfigGet(cmd *ConfigGetCmd) error {
	value, err := c.cm.Get(cmd.Key)
	if err != nil {
		return fmt.Errorf("failed to get config value: %w", err)
	}
	fmt.Fprintln(c.out, value)
	return nil
}

func (c *CLI) executeConfigSet(cmd *ConfigSetCmd) error {
	if err := c.cm.Update(cmd.Key, cmd.Value); err != nil {
		return fmt.Errorf("failed to set config value: %w", err)
	}
	fmt.Fprintf(c.out, "Set %s = %s\n", cmd.Key, cmd.Value)
	return nil
}

func (c *CLI) executeConfigList() error {
	values, err := c.cm.List()
	if err != nil {
		return fmt.Errorf("failed to list config values: %w", err)
	}

	fmt.Fprintf(c.out, "Configuration (%s):\n", c.cm.GetConfigPath())
	for _, key := range config.Keys() {
		fmt.Fprintf(c.out, "  %s = %s\n", key, values[key])
	}
	return nil
}
