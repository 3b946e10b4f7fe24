package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultCommands are the TTS binaries tried in order.
var DefaultCommands = []string{"espeak", "espeak-ng", "say"}

// stdinArgs make the known binaries read the text from stdin, so a reply that
// starts with "-" is never parsed as an option.
var stdinArgs = map[string][]string{
	"espeak":    {"--stdin"},
	"espeak-ng": {"--stdin"},
	"say":       {"-f", "-"},
}

// CommandSynthesizer speaks through an external TTS binary. Known binaries read
// the text on stdin; any other binary gets it as the argument after "--".
type CommandSynthesizer struct {
	path string
}

// NewCommandSynthesizer finds the first of names on PATH. The returned
// synthesizer reports unavailable when none is found.
func NewCommandSynthesizer(names ...string) *CommandSynthesizer {
	if len(names) == 0 {
		names = DefaultCommands
	}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return &CommandSynthesizer{path: path}
		}
	}
	return &CommandSynthesizer{}
}

// Available reports whether a TTS binary was found.
func (c *CommandSynthesizer) Available() bool {
	return c.path != ""
}

// Path returns the resolved binary.
func (c *CommandSynthesizer) Path() string {
	return c.path
}

// Speak runs the binary, calling onStart once the process has started, and
// waits for it to finish.
func (c *CommandSynthesizer) Speak(ctx context.Context, text string, onStart func()) error {
	if c.path == "" {
		return errors.New("no speech synthesizer found on PATH")
	}

	cmd := exec.CommandContext(ctx, c.path, c.args(text)...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", c.path, err)
	}
	if onStart != nil {
		onStart()
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("running %s: %w", c.path, err)
	}
	return nil
}

func (c *CommandSynthesizer) args(text string) []string {
	if args, ok := stdinArgs[filepath.Base(c.path)]; ok {
		return args
	}
	return []string{"--", text}
}

// WriterSynthesizer "speaks" by writing the text, for hosts without audio.
type WriterSynthesizer struct {
	w io.Writer
}

// NewWriterSynthesizer writes replies to w.
func NewWriterSynthesizer(w io.Writer) *WriterSynthesizer {
	return &WriterSynthesizer{w: w}
}

func (s *WriterSynthesizer) Speak(_ context.Context, text string, onStart func()) error {
	if onStart != nil {
		onStart()
	}
	_, err := fmt.Fprintln(s.w, text)
	return err
}
