package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/beehive-org/beehive/internal/log"
	"github.com/beehive-org/beehive/internal/pubsub"
)

// statusSnapshot is one tick's worth of liveness/task-count data, published
// onto a broker so the watch view never blocks a store read behind a redraw.
type statusSnapshot struct {
	rows      []table.Row
	taskCount int
	err       error
	polledAt  time.Time
}

var (
	statusHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	statusFooterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// runStatusWatch replaces the one-shot printStatus loop with a small Bubble
// Tea program: a background poller publishes statusSnapshots onto a broker
// at the configured tick interval, and the program's Update redraws from
// whatever the broker's ContinuousListener hands it, the same
// broker-subscribe-then-Listen idiom internal/log uses for `logs --follow`.
func runStatusWatch(ctx context.Context, h *hive) error {
	interval := h.cfg.TickInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	broker := pubsub.NewBroker[statusSnapshot]()
	defer broker.Close()

	log.SafeGo("status-watch-poll", func() {
		publishStatusSnapshot(watchCtx, h, broker)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				publishStatusSnapshot(watchCtx, h, broker)
			}
		}
	})

	listener := pubsub.NewContinuousListener(watchCtx, broker)
	m := newStatusModel(listener)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func publishStatusSnapshot(ctx context.Context, h *hive, broker *pubsub.Broker[statusSnapshot]) {
	snap := buildStatusSnapshot(ctx, h)
	broker.Publish(pubsub.UpdatedEvent, snap)
}

func buildStatusSnapshot(ctx context.Context, h *hive) statusSnapshot {
	states, err := h.store.ListAgentStates(ctx)
	if err != nil {
		return statusSnapshot{err: err, polledAt: time.Now()}
	}
	rows := make([]table.Row, 0, len(states))
	for _, s := range states {
		task := "none"
		if s.CurrentTaskID() != nil {
			task = *s.CurrentTaskID()
		}
		rows = append(rows, table.Row{
			string(s.Bee()), string(s.Status()), task, s.LastHeartbeat().Format("2006-01-02T15:04:05"),
		})
	}

	active, err := h.store.ActiveTasks(ctx)
	if err != nil {
		return statusSnapshot{err: err, polledAt: time.Now()}
	}
	return statusSnapshot{rows: rows, taskCount: len(active), polledAt: time.Now()}
}

// statusModel is the tea.Model backing `beehive status --watch`: a bubbles
// table of bee liveness rows, refreshed on every broker event.
type statusModel struct {
	table    table.Model
	listener *pubsub.ContinuousListener[statusSnapshot]
	snapshot statusSnapshot
}

func newStatusModel(listener *pubsub.ContinuousListener[statusSnapshot]) statusModel {
	cols := []table.Column{
		{Title: "bee", Width: 12},
		{Title: "status", Width: 10},
		{Title: "task", Width: 38},
		{Title: "last heartbeat", Width: 20},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(false), table.WithHeight(10))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	t.SetStyles(styles)

	return statusModel{table: t, listener: listener}
}

func (m statusModel) Init() tea.Cmd {
	return m.listener.Listen()
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case pubsub.Event[statusSnapshot]:
		m.snapshot = msg.Payload
		m.table.SetRows(m.snapshot.rows)
		m.table.SetHeight(len(m.snapshot.rows) + 1)
		return m, m.listener.Listen()
	case nil:
		return m, nil
	}
	return m, nil
}

func (m statusModel) View() string {
	if m.snapshot.err != nil {
		return statusErrorStyle.Render(fmt.Sprintf("status poll failed: %v", m.snapshot.err)) + "\n"
	}
	header := statusHeaderStyle.Render(fmt.Sprintf("active tasks: %d", m.snapshot.taskCount))
	footer := statusFooterStyle.Render(fmt.Sprintf("updated %s · q to quit", m.snapshot.polledAt.Format("15:04:05")))
	return lipgloss.JoinVertical(lipgloss.Left, header, m.table.View(), footer) + "\n"
}
