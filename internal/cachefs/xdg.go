package cachefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	AppName       = "halen"
	LegacyAppName = "clipopup"

	HistoryFileName = "history"
	OverflowDirName = "overflow"
	ConfigFileName  = "config.yaml"
	PIDFileName     = "halen.pid"
)

// Kind selects one of the XDG base directories.
type Kind int

const (
	CacheHome Kind = iota
	ConfigHome
	DataHome
	RuntimeDir
)

func (k Kind) envVar() string {
	switch k {
	case CacheHome:
		return "XDG_CACHE_HOME"
	case ConfigHome:
		return "XDG_CONFIG_HOME"
	case DataHome:
		return "XDG_DATA_HOME"
	case RuntimeDir:
		return "XDG_RUNTIME_DIR"
	}
	return ""
}

// Dir resolves an XDG base directory. A non-empty environment variable wins;
// otherwise the conventional location under $HOME is used and created with
// mode 0700. The runtime directory falls back to /tmp/halen-<uid>, and to
// /tmp itself if that cannot be created.
func Dir(kind Kind) (string, error) {
	if value := os.Getenv(kind.envVar()); value != "" {
		return value, nil
	}

	if kind == RuntimeDir {
		dir := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d", AppName, os.Getuid()))
		if err := os.Mkdir(dir, 0700); err != nil && !os.IsExist(err) {
			return os.TempDir(), nil
		}
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	var dir string
	switch kind {
	case CacheHome:
		dir = filepath.Join(homeDir, ".cache")
	case ConfigHome:
		dir = filepath.Join(homeDir, ".config")
	case DataHome:
		dir = filepath.Join(homeDir, ".local", "share")
	default:
		return "", fmt.Errorf("unknown directory kind %d", kind)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// DefaultHistoryFile returns $XDG_CACHE_HOME/halen/history.
func DefaultHistoryFile() (string, error) {
	cache, err := Dir(CacheHome)
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, AppName, HistoryFileName), nil
}

// LegacyHistoryFile returns the history path used before the rename,
// $XDG_CACHE_HOME/clipopup/history.
func LegacyHistoryFile() (string, error) {
	cache, err := Dir(CacheHome)
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, LegacyAppName, HistoryFileName), nil
}

// DefaultOverflowDir returns $XDG_CACHE_HOME/halen/overflow.
func DefaultOverflowDir() (string, error) {
	cache, err := Dir(CacheHome)
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, AppName, OverflowDirName), nil
}

// DefaultPIDFile returns the daemon lock file inside the runtime directory.
func DefaultPIDFile() (string, error) {
	runtime, err := Dir(RuntimeDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(runtime, PIDFileName), nil
}

// UserConfigFile returns $XDG_CONFIG_HOME/halen/config.yaml without checking
// that it exists.
func UserConfigFile() (string, error) {
	config, err := Dir(ConfigHome)
	if err != nil {
		return "", err
	}
	return filepath.Join(config, AppName, ConfigFileName), nil
}

// ResolveConfigFile finds the configuration file to use. The user file is
// preferred, then one under $XDG_DATA_HOME. Failing both, a system-wide file
// from $XDG_DATA_DIRS or /etc is copied to the user location so it can be
// edited. The user path is returned even when no file exists anywhere.
func ResolveConfigFile() (string, error) {
	userPath, err := UserConfigFile()
	if err != nil {
		return "", err
	}
	if readable(userPath) {
		return userPath, nil
	}

	if data, err := Dir(DataHome); err == nil {
		dataPath := filepath.Join(data, AppName, ConfigFileName)
		if readable(dataPath) {
			return dataPath, nil
		}
	}

	systemPath, ok := findSystemConfigFile()
	if !ok {
		return userPath, nil
	}
	if err := copyFile(systemPath, userPath); err != nil {
		return "", fmt.Errorf("failed to copy system config %s: %w", systemPath, err)
	}
	return userPath, nil
}

func findSystemConfigFile() (string, bool) {
	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}

	candidates := make([]string, 0, 4)
	for _, dir := range strings.Split(dataDirs, ":") {
		if dir == "" {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, AppName, ConfigFileName))
	}
	candidates = append(candidates, filepath.Join("/etc", AppName, ConfigFileName))

	for _, path := range candidates {
		if readable(path) {
			return path, true
		}
	}
	return "", false
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
