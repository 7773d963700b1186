// Package injector implements the Injector component (spec 4.B): delivering
// text payloads into a named pane of a terminal-multiplexer session, and
// recording every attempt to the Store's injection log regardless of
// outcome.
package injector

import (
	"context"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

// Multiplexer is the external collaborator spec.md declares out of scope:
// whatever hosts the bee panes (tmux in production). Kept as a narrow
// interface so Injector logic never depends on a concrete terminal tool.
type Multiplexer interface {
	// SendKeys delivers payload as literal keystrokes to session/pane,
	// followed by an Enter so the hosted CLI submits it as input.
	SendKeys(ctx context.Context, session string, pane domain.Pane, payload string) error
	// NewSession creates a fresh multiplexer session with the given name.
	NewSession(ctx context.Context, session string) error
	// KillSession tears down a multiplexer session and all its panes.
	KillSession(ctx context.Context, session string) error
	// PaneExists reports whether pane exists within session.
	PaneExists(ctx context.Context, session string, pane domain.Pane) (bool, error)
	// CapturePane returns the pane's recent visible output, for the
	// `logs` CLI subcommand's "delegated to multiplexer" read.
	CapturePane(ctx context.Context, session string, pane domain.Pane, lines int) (string, error)
}
