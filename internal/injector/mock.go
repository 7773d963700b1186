package injector

import (
	"context"
	"fmt"
	"sync"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

// MockMultiplexer is an in-memory Multiplexer for exercising Injector and
// Bus logic without a real tmux binary. SendKeysFunc/PaneExistsFunc let a
// test override default behavior; when nil, the mock tracks sent payloads
// and known sessions/panes itself.
type MockMultiplexer struct {
	mu sync.Mutex

	SendKeysFunc   func(ctx context.Context, session string, pane domain.Pane, payload string) error
	PaneExistsFunc func(ctx context.Context, session string, pane domain.Pane) (bool, error)

	sessions map[string]map[domain.Pane]bool
	sent     []SentPayload
}

// CapturePane returns every payload sent to pane so far, in send order and
// each followed by a newline, standing in for a real terminal's scrollback
// in tests.
func (m *MockMultiplexer) CapturePane(ctx context.Context, session string, pane domain.Pane, lines int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out string
	for _, s := range m.sent {
		if s.Session == session && s.Pane == pane {
			out += s.Payload + "\n"
		}
	}
	return out, nil
}

// SentPayload records one successful SendKeys call.
type SentPayload struct {
	Session string
	Pane    domain.Pane
	Payload string
}

// NewMockMultiplexer returns a mock with no sessions registered.
func NewMockMultiplexer() *MockMultiplexer {
	return &MockMultiplexer{sessions: map[string]map[domain.Pane]bool{}}
}

// SeedPane registers session/pane as existing, as if NewSession plus the
// pane layout had already run.
func (m *MockMultiplexer) SeedPane(session string, pane domain.Pane) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[session] == nil {
		m.sessions[session] = map[domain.Pane]bool{}
	}
	m.sessions[session][pane] = true
}

func (m *MockMultiplexer) SendKeys(ctx context.Context, session string, pane domain.Pane, payload string) error {
	if m.SendKeysFunc != nil {
		return m.SendKeysFunc(ctx, session, pane, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	panes, ok := m.sessions[session]
	if !ok {
		return &sessionNotFoundErr{stderr: fmt.Sprintf("no such session: %s", session)}
	}
	if !panes[pane] {
		return &paneNotFoundErr{stderr: fmt.Sprintf("no such pane: %s", pane)}
	}
	m.sent = append(m.sent, SentPayload{Session: session, Pane: pane, Payload: payload})
	return nil
}

func (m *MockMultiplexer) NewSession(ctx context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session]; ok {
		return fmt.Errorf("session %s already exists", session)
	}
	m.sessions[session] = map[domain.Pane]bool{}
	return nil
}

func (m *MockMultiplexer) KillSession(ctx context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, session)
	return nil
}

func (m *MockMultiplexer) PaneExists(ctx context.Context, session string, pane domain.Pane) (bool, error) {
	if m.PaneExistsFunc != nil {
		return m.PaneExistsFunc(ctx, session, pane)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	panes, ok := m.sessions[session]
	if !ok {
		return false, nil
	}
	return panes[pane], nil
}

// Sent returns every payload successfully delivered so far.
func (m *MockMultiplexer) Sent() []SentPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentPayload, len(m.sent))
	copy(out, m.sent)
	return out
}
