package injector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/log"
)

// CommandFactoryFunc builds the *exec.Cmd for a tmux invocation, overridable
// in tests so they never shell out for real.
type CommandFactoryFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Tmux is the production Multiplexer, shelling out to the tmux binary for
// every call. Paired one-shot commands rather than a long-lived process,
// since tmux itself is the long-lived daemon.
type Tmux struct {
	binPath        string
	commandFactory CommandFactoryFunc
}

// NewTmux constructs a Tmux adapter. binPath defaults to "tmux" (resolved
// via PATH) when empty.
func NewTmux(binPath string) *Tmux {
	if binPath == "" {
		binPath = "tmux"
	}
	return &Tmux{binPath: binPath, commandFactory: exec.CommandContext}
}

// WithCommandFactory overrides how *exec.Cmd is constructed, for tests.
func (t *Tmux) WithCommandFactory(fn CommandFactoryFunc) *Tmux {
	t.commandFactory = fn
	return t
}

func (t *Tmux) run(ctx context.Context, args ...string) (string, string, error) {
	cmd := t.commandFactory(ctx, t.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	log.Debug(log.CatInjector, "tmux command", "args", strings.Join(args, " "), "err", err)
	return stdout.String(), stderr.String(), err
}

// SendKeys delivers payload via `tmux send-keys -t session:pane <payload> Enter`.
func (t *Tmux) SendKeys(ctx context.Context, session string, pane domain.Pane, payload string) error {
	target := fmt.Sprintf("%s:%s", session, pane.String())
	_, stderr, err := t.run(ctx, "send-keys", "-t", target, payload, "Enter")
	if err != nil {
		return classifyTmuxErr(stderr, err)
	}
	return nil
}

// NewSession creates a detached session.
func (t *Tmux) NewSession(ctx context.Context, session string) error {
	_, stderr, err := t.run(ctx, "new-session", "-d", "-s", session)
	if err != nil {
		return classifyTmuxErr(stderr, err)
	}
	return nil
}

// KillSession removes a session and every pane it hosts.
func (t *Tmux) KillSession(ctx context.Context, session string) error {
	_, stderr, err := t.run(ctx, "kill-session", "-t", session)
	if err != nil {
		return classifyTmuxErr(stderr, err)
	}
	return nil
}

// PaneExists checks for the pane by attempting to list it; tmux exits
// nonzero when the target does not resolve.
func (t *Tmux) PaneExists(ctx context.Context, session string, pane domain.Pane) (bool, error) {
	target := fmt.Sprintf("%s:%s", session, pane.String())
	_, stderr, err := t.run(ctx, "list-panes", "-t", target)
	if err != nil {
		if isSessionMissing(stderr) {
			return false, nil
		}
		return false, classifyTmuxErr(stderr, err)
	}
	return true, nil
}

// CapturePane returns the pane's scrollback via `tmux capture-pane -p`,
// limited to the trailing `lines` rows (0 means tmux's own default).
func (t *Tmux) CapturePane(ctx context.Context, session string, pane domain.Pane, lines int) (string, error) {
	target := fmt.Sprintf("%s:%s", session, pane.String())
	args := []string{"capture-pane", "-p", "-t", target}
	if lines > 0 {
		args = append(args, "-S", fmt.Sprintf("-%d", lines))
	}
	stdout, stderr, err := t.run(ctx, args...)
	if err != nil {
		return "", classifyTmuxErr(stderr, err)
	}
	return stdout, nil
}

func isSessionMissing(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "can't find session") || strings.Contains(s, "no such")
}

// classifyTmuxErr distinguishes a missing session/pane (an expected,
// recoverable condition the Injector logs and reports) from a genuine
// transport failure (tmux binary missing, socket unreachable).
func classifyTmuxErr(stderr string, err error) error {
	s := strings.ToLower(stderr)
	switch {
	case strings.Contains(s, "can't find pane"):
		return &paneNotFoundErr{stderr: stderr, cause: err}
	case strings.Contains(s, "can't find session"), strings.Contains(s, "no such session"):
		return &sessionNotFoundErr{stderr: stderr, cause: err}
	default:
		return &transportErr{stderr: stderr, cause: err}
	}
}

type paneNotFoundErr struct {
	stderr string
	cause  error
}

func (e *paneNotFoundErr) Error() string { return fmt.Sprintf("pane not found: %s", e.stderr) }
func (e *paneNotFoundErr) Unwrap() error { return e.cause }

type sessionNotFoundErr struct {
	stderr string
	cause  error
}

func (e *sessionNotFoundErr) Error() string { return fmt.Sprintf("session not found: %s", e.stderr) }
func (e *sessionNotFoundErr) Unwrap() error { return e.cause }

type transportErr struct {
	stderr string
	cause  error
}

func (e *transportErr) Error() string { return fmt.Sprintf("tmux transport error: %s", e.stderr) }
func (e *transportErr) Unwrap() error { return e.cause }
