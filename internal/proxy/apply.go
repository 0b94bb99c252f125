package proxy

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// configFileMode is the permission for the generated nginx site file.
const configFileMode = 0o644

// Logger defines the logging interface used by the Applier.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Applier installs generated configuration behind the external validator.
//
// Apply treats generate-validate-reload as one atomic configuration swap:
// the candidate is written in place, the validator runs against it, and a
// rejection restores the previous bytes verbatim before returning. The
// reverse proxy therefore never serves a half-applied configuration.
type Applier struct {
	path        string
	validateCmd string
	reloadCmd   string
	logger      Logger
}

// NewApplier creates an applier for the given site file and commands.
//
// Commands are split on whitespace and executed directly, not through a
// shell; paths and arguments must not need quoting.
func NewApplier(path, validateCmd, reloadCmd string) *Applier {
	return &Applier{
		path:        path,
		validateCmd: validateCmd,
		reloadCmd:   reloadCmd,
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the applier.
func (a *Applier) SetLogger(logger Logger) {
	a.logger = logger
}

// Apply writes text to the site file, validates it, and reloads the proxy.
//
// On validator rejection the previous file content is restored (or the
// file removed, if it did not exist before) and ErrValidationFailed is
// returned; the caller should treat this as a fatal configuration error
// and not retry. Reload failures after successful validation leave the
// new configuration installed and return ErrReloadFailed.
func (a *Applier) Apply(ctx context.Context, text string) error {
	prev, prevErr := os.ReadFile(a.path)
	hadPrev := prevErr == nil

	if err := os.WriteFile(a.path, []byte(text), configFileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if out, err := a.runCommand(ctx, a.validateCmd); err != nil {
		a.restore(prev, hadPrev)
		a.logger.Error("routing config rejected by validator",
			"path", a.path,
			"output", strings.TrimSpace(out),
		)
		return fmt.Errorf("%w: %s", ErrValidationFailed, strings.TrimSpace(out))
	}

	if out, err := a.runCommand(ctx, a.reloadCmd); err != nil {
		return fmt.Errorf("%w: %s", ErrReloadFailed, strings.TrimSpace(out))
	}

	a.logger.Info("routing config applied", "path", a.path)
	return nil
}

// restore puts the previous configuration back after a rejected candidate.
func (a *Applier) restore(prev []byte, hadPrev bool) {
	var err error
	if hadPrev {
		err = os.WriteFile(a.path, prev, configFileMode)
	} else {
		err = os.Remove(a.path)
	}
	if err != nil {
		a.logger.Error("failed to restore previous routing config", "path", a.path, "error", err)
	}
}

// runCommand executes a whitespace-split command, returning combined output.
func (a *Applier) runCommand(ctx context.Context, command string) (string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
