// Package roledocs loads each bee's role-prompt document from disk and
// hot-reloads the hive when one changes on disk, re-injecting it and
// logging what changed. Grounded on the teacher's debounced file watcher
// (internal/watcher), generalized from "one database file" to "one
// document per bee".
package roledocs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/bus"
	"github.com/beehive-org/beehive/internal/log"
	"github.com/beehive-org/beehive/internal/supervisor"
)

const fileExt = ".md"

// docPath returns the role document path for bee within dir, e.g.
// "roles/developer.md".
func docPath(dir string, bee domain.BeeName) string {
	return filepath.Join(dir, string(bee)+fileExt)
}

// LoadAll reads every worker bee's role document from dir, returning them
// in supervisor.Init's expected shape. A missing file is an error: every
// bee must have a role document before the hive can start.
func LoadAll(dir string) ([]supervisor.RoleDoc, error) {
	var docs []supervisor.RoleDoc
	for _, bee := range domain.AllBeeNames() {
		data, err := os.ReadFile(docPath(dir, bee))
		if err != nil {
			return nil, fmt.Errorf("reading role document for %s: %w", bee, err)
		}
		docs = append(docs, supervisor.RoleDoc{Bee: bee, Content: string(data)})
	}
	return docs, nil
}

// Manager watches dir for changes to any bee's role document and
// re-injects the new content through the Message Bus, attaching a diff of
// what changed to the injection log.
type Manager struct {
	dir      string
	bus      *bus.Bus
	debounce time.Duration

	mu      sync.Mutex
	content map[domain.BeeName]string

	watcher *fsnotify.Watcher
	done    chan struct{}
	// Reloaded fires once per debounced reload, for tests to synchronize on.
	Reloaded chan domain.BeeName
}

// New constructs a Manager rooted at dir. It does not start watching; call
// Start for that.
func New(dir string, b *bus.Bus) (*Manager, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching role document directory: %w", err)
	}

	content := map[domain.BeeName]string{}
	for _, bee := range domain.AllBeeNames() {
		data, err := os.ReadFile(docPath(dir, bee))
		if err == nil {
			content[bee] = string(data)
		}
	}

	return &Manager{
		dir:      dir,
		bus:      b,
		debounce: 100 * time.Millisecond,
		content:  content,
		watcher:  fsw,
		done:     make(chan struct{}),
		Reloaded: make(chan domain.BeeName, len(domain.AllBeeNames())),
	}, nil
}

// Start begins the watch loop in its own goroutine.
func (m *Manager) Start() {
	log.SafeGo("roledocs.watch", m.loop)
}

// Stop terminates the watch loop and releases the underlying fsnotify
// watcher.
func (m *Manager) Stop() error {
	close(m.done)
	return m.watcher.Close()
}

func (m *Manager) loop() {
	var timer *time.Timer
	pending := map[domain.BeeName]bool{}

	timerC := func() <-chan time.Time {
		if timer == nil {
			return nil
		}
		return timer.C
	}

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			bee, ok := beeForEvent(event)
			if !ok {
				continue
			}
			pending[bee] = true
			if timer == nil {
				timer = time.NewTimer(m.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(m.debounce)
			}

		case <-timerC():
			for bee := range pending {
				m.reload(bee)
			}
			pending = map[domain.BeeName]bool{}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatRoleDocs, "watcher error", err)

		case <-m.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func beeForEvent(event fsnotify.Event) (domain.BeeName, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return "", false
	}
	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, fileExt) {
		return "", false
	}
	bee := domain.BeeName(strings.TrimSuffix(base, fileExt))
	if !bee.IsWorker() {
		return "", false
	}
	return bee, true
}

// reload re-reads bee's role document, re-injects it if the content
// changed, and logs a line-level diff of the change.
func (m *Manager) reload(bee domain.BeeName) {
	data, err := os.ReadFile(docPath(m.dir, bee))
	if err != nil {
		log.ErrorErr(log.CatRoleDocs, "failed to reread role document", err, "bee", bee)
		return
	}
	newContent := string(data)

	m.mu.Lock()
	old := m.content[bee]
	if old == newContent {
		m.mu.Unlock()
		return
	}
	m.content[bee] = newContent
	m.mu.Unlock()

	diffText := lineDiff(old, newContent)
	log.Info(log.CatRoleDocs, "role document changed, re-injecting", "bee", bee)

	if m.bus != nil {
		ctx := context.Background()
		_, err := m.bus.Send(ctx, domain.System, bee, domain.MessageRoleInjection, "role document updated", newContent,
			bus.SendOptions{Priority: domain.MsgPriorityHigh, Metadata: map[string]any{"diff": diffText}})
		if err != nil {
			log.ErrorErr(log.CatRoleDocs, "failed to re-inject role document", err, "bee", bee)
		}
	}

	select {
	case m.Reloaded <- bee:
	default:
	}
}

// lineDiff renders a compact line-level diff of old -> new, used purely
// for the injection log's audit trail.
func lineDiff(old, newContent string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(old, newContent)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			writePrefixedLines(&sb, "+ ", d.Text)
		case diffmatchpatch.DiffDelete:
			writePrefixedLines(&sb, "- ", d.Text)
		}
	}
	return sb.String()
}

func writePrefixedLines(sb *strings.Builder, prefix, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if line == "" {
			continue
		}
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}
