// Package panes implements Pane Addressing: a process-wide immutable table
// mapping a BeeName to its multiplexer pane, loaded once at startup from
// configuration. No other component stores a raw pane string; everything
// resolves through a Table.
package panes

import (
	"fmt"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
)

// Table is an immutable bee -> pane mapping.
type Table struct {
	panes map[domain.BeeName]domain.Pane
}

// NewTable builds a Table from a bee-name-to-pane mapping, typically
// decoded from the pane_mapping configuration key. Only worker bees need
// an entry; System/Beekeeper/All are never resolved to a pane directly.
func NewTable(mapping map[string]string) (*Table, error) {
	t := &Table{panes: make(map[domain.BeeName]domain.Pane, len(mapping))}
	for name, pane := range mapping {
		bee := domain.BeeName(name)
		if !bee.IsWorker() {
			return nil, fmt.Errorf("pane_mapping: %q is not an assignable bee", name)
		}
		if pane == "" {
			return nil, fmt.Errorf("pane_mapping: empty pane for bee %q", name)
		}
		t.panes[bee] = domain.Pane(pane)
	}
	for _, bee := range domain.AllBeeNames() {
		if _, ok := t.panes[bee]; !ok {
			return nil, fmt.Errorf("pane_mapping: missing entry for bee %q", bee)
		}
	}
	return t, nil
}

// Validate reports whether name is a member of the closed BeeName set.
func Validate(name domain.BeeName) error {
	if !name.IsValid() {
		return &errs.ValidationError{Field: "bee", Reason: fmt.Sprintf("unknown bee name %q", name)}
	}
	return nil
}

// Resolve performs a strict lookup of bee's pane. "all" is not resolvable
// directly; callers must use ResolveAll to expand it.
func (t *Table) Resolve(bee domain.BeeName) (domain.Pane, error) {
	if err := Validate(bee); err != nil {
		return "", err
	}
	if bee.IsBroadcast() {
		return "", &errs.ValidationError{Field: "bee", Reason: "\"all\" does not resolve to a single pane"}
	}
	pane, ok := t.panes[bee]
	if !ok {
		return "", &errs.InvalidPaneError{Bee: string(bee)}
	}
	return pane, nil
}

// ResolveAll expands "all" into every configured worker bee's pane,
// excluding except if non-empty (used by the Message Bus to exclude the
// sender of a broadcast).
func (t *Table) ResolveAll(except domain.BeeName) []domain.BeeName {
	out := make([]domain.BeeName, 0, len(domain.AllBeeNames()))
	for _, bee := range domain.AllBeeNames() {
		if bee == except {
			continue
		}
		out = append(out, bee)
	}
	return out
}

// Bees returns every bee name with a configured pane, in a stable order.
func (t *Table) Bees() []domain.BeeName {
	return domain.AllBeeNames()
}
