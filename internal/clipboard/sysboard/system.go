// Package sysboard implements system clipboard operations on X11.
// Reads shell out to xclip, or xsel as a fallback. Writes to the CLIPBOARD
// selection go through golang.design/x/clipboard when it can attach to the
// display, and through xclip/xsel otherwise.
package sysboard

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	native "golang.design/x/clipboard"

	"github.com/yiblet/halen/internal/clipboard"
)

// SystemClipboard implements clipboard.Board using system commands
type SystemClipboard struct {
	initOnce  sync.Once
	nativeErr error
}

// New creates a new SystemClipboard instance
func New() *SystemClipboard {
	return &SystemClipboard{}
}

// IsSupported returns true if xclip or xsel is available
func (s *SystemClipboard) IsSupported() bool {
	if _, err := exec.LookPath("xclip"); err == nil {
		return true
	}
	if _, err := exec.LookPath("xsel"); err == nil {
		return true
	}
	return false
}

// Read implements clipboard.Board.Read for SystemClipboard
func (s *SystemClipboard) Read(ctx context.Context, sel clipboard.Selection) (string, error) {
	// Try xclip first
	if data, err := readWithCommand(ctx, "xclip", "-selection", string(sel), "-o"); err == nil {
		return string(data), nil
	} else if ctx.Err() != nil {
		return "", ctx.Err()
	}

	// Fall back to xsel
	data, err := readWithCommand(ctx, "xsel", "--"+string(sel), "--output")
	if err != nil {
		return "", fmt.Errorf("failed to read %s (tried xclip and xsel): %w", sel, err)
	}
	return string(data), nil
}

// Write implements clipboard.Board.Write for SystemClipboard
func (s *SystemClipboard) Write(ctx context.Context, sel clipboard.Selection, content string) error {
	if sel == clipboard.Clipboard && s.nativeReady() {
		native.Write(native.FmtText, []byte(content))
		return nil
	}

	// Try xclip first
	if err := writeWithCommand(ctx, content, "xclip", "-selection", string(sel), "-i"); err == nil {
		return nil
	}

	// Fall back to xsel
	if err := writeWithCommand(ctx, content, "xsel", "--"+string(sel), "--input"); err != nil {
		return fmt.Errorf("failed to write %s (tried xclip and xsel): %w", sel, err)
	}
	return nil
}

func (s *SystemClipboard) nativeReady() bool {
	s.initOnce.Do(func() {
		s.nativeErr = native.Init()
		if s.nativeErr != nil {
			slog.Debug("native clipboard unavailable, using xclip", "error", s.nativeErr)
		}
	})
	return s.nativeErr == nil
}

// readWithCommand executes a command and returns its output
func readWithCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out.Bytes(), nil
}

// writeWithCommand executes a command with content as stdin
func writeWithCommand(ctx context.Context, content string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(content)
	return cmd.Run()
}
