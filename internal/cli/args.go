package cli

import (
	"fmt"
	"slices"

	"github.com/yiblet/halen/internal/config"
)

// Args represents the top-level command structure
type Args struct {
	ConfigFile *string `arg:"--config" help:"Configuration file (default: $XDG_CONFIG_HOME/halen/config.yaml)"`
	Verbose    bool    `arg:"-v,--verbose" help:"Log debug messages"`

	Run    *RunCmd    `arg:"subcommand:run" help:"Run the clipboard daemon (default)"`
	List   *ListCmd   `arg:"subcommand:list" help:"List history entries"`
	Get    *GetCmd    `arg:"subcommand:get" help:"Print or copy one history entry"`
	Delete *DeleteCmd `arg:"subcommand:delete" help:"Delete one history entry"`
	Clear  *ClearCmd  `arg:"subcommand:clear" help:"Delete every history entry"`
	Browse *BrowseCmd `arg:"subcommand:browse" help:"Browse the history interactively"`
	Toggle *ToggleCmd `arg:"subcommand:toggle" help:"Pause or resume the running daemon"`
	Config *ConfigCmd `arg:"subcommand:config" help:"Manage configuration"`
}

// RunCmd represents 'halen run'
type RunCmd struct{}

// ListCmd represents 'halen list'
type ListCmd struct {
	Limit int `arg:"-n,--limit" help:"Show at most this many entries (0 for all)"`
}

// GetCmd represents 'halen get'
type GetCmd struct {
	Index     int  `arg:"positional,required" help:"Entry index (0 is the newest)"`
	Full      bool `arg:"-f,--full" help:"Print the full content instead of the stored preview"`
	Clipboard bool `arg:"-c,--clipboard" help:"Copy the full content to the clipboard"`
}

// DeleteCmd represents 'halen delete'
type DeleteCmd struct {
	Index int `arg:"positional,required" help:"Entry index (0 is the newest)"`
}

// ClearCmd represents 'halen clear'
type ClearCmd struct {
	Force bool `arg:"-f,--force" help:"Skip confirmation prompt"`
}

// BrowseCmd represents 'halen browse'
type BrowseCmd struct{}

// ToggleCmd represents 'halen toggle'
type ToggleCmd struct{}

// ConfigCmd represents 'halen config'
type ConfigCmd struct {
	Get  *ConfigGetCmd  `arg:"subcommand:get" help:"Get a configuration value"`
	Set  *ConfigSetCmd  `arg:"subcommand:set" help:"Set a configuration value"`
	List *ConfigListCmd `arg:"subcommand:list" help:"List all configuration values"`
}

// ConfigGetCmd represents 'halen config get'
type ConfigGetCmd struct {
	Key string `arg:"positional,required" help:"Configuration key"`
}

// ConfigSetCmd represents 'halen config set'
type ConfigSetCmd struct {
	Key   string `arg:"positional,required" help:"Configuration key"`
	Value string `arg:"positional,required" help:"Configuration value"`
}

// ConfigListCmd represents 'halen config list'
type ConfigListCmd struct{}

// Description returns the program description
func (Args) Description() string {
	return "halen - clipboard history with a Ctrl+V chord popup"
}

// Version returns the program version
func (Args) Version() string {
	return "halen 0.1.0"
}

// Epilogue returns additional help text
func (Args) Epilogue() string {
	return `Chords (while the daemon runs):
  Ctrl+V           Paste as usual
  Ctrl+V V ...     Open the history popup and step to older entries
  C / X / D / Z    Newer entry / cut to clipboard / delete / cancel
  release Ctrl     Paste the selected entry

Examples:
  halen                            # Run the daemon
  halen list -n 5                  # Show the five newest entries
  halen get 1 --full               # Print the second entry in full
  halen get -c 2                   # Copy the third entry to the clipboard
  halen config set max-lines 20    # Change a setting; the daemon reloads it
  halen toggle                     # Pause or resume chord interception`
}

// Validate performs validation on the parsed arguments
func (args *Args) Validate() error {
	switch {
	case args.Get != nil:
		return args.Get.Validate()
	case args.Delete != nil:
		return validateIndex(args.Delete.Index)
	case args.List != nil:
		if args.List.Limit < 0 {
			return fmt.Errorf("limit must be non-negative")
		}
	case args.Config != nil:
		return args.Config.Validate()
	}
	return nil
}

// Validate checks that exactly one config subcommand names a known key.
func (c *ConfigCmd) Validate() error {
	count := 0
	var key string
	if c.Get != nil {
		count++
		key = c.Get.Key
	}
	if c.Set != nil {
		count++
		key = c.Set.Key
	}
	if c.List != nil {
		count++
	}

	switch {
	case count == 0:
		return fmt.Errorf("no config subcommand specified")
	case count > 1:
		return fmt.Errorf("only one config subcommand can be specified")
	case key != "" && !slices.Contains(config.Keys(), key):
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// Validate validates get command arguments
func (g *GetCmd) Validate() error {
	return validateIndex(g.Index)
}

func validateIndex(index int) error {
	if index < 0 {
		return fmt.Errorf("index must be non-negative")
	}
	return nil
}

// HasCommand reports whether a subcommand was given.
func (args *Args) HasCommand() bool {
	return args.Run != nil || args.List != nil || args.Get != nil || args.Delete != nil ||
		args.Clear != nil || args.Browse != nil || args.Toggle != nil || args.Config != nil
}
