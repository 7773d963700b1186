// Package supervisor implements Agent Supervision (spec 4.F): the
// periodic duty sweep that classifies liveness, nags bees about their
// role, watches for protocol violations, reaps expired messages, accepts
// heartbeats, and drives startup/shutdown of the hive session.
package supervisor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
	"github.com/beehive-org/beehive/internal/bus"
	"github.com/beehive-org/beehive/internal/config"
	"github.com/beehive-org/beehive/internal/injector"
	"github.com/beehive-org/beehive/internal/log"
	"github.com/beehive-org/beehive/internal/panes"
	"github.com/beehive-org/beehive/internal/store"
	"github.com/beehive-org/beehive/internal/tracing"
)

// RoleDoc is the content injected into a bee's pane at startup and on
// every periodic reminder.
type RoleDoc struct {
	Bee     domain.BeeName
	Content string
}

// AckPattern is the text a bee's hosted CLI is expected to echo back to
// confirm it absorbed its role document. Supervisor.Init polls for a
// message containing this text from the bee being initialized.
const AckPattern = "ROLE ACKNOWLEDGED"

// shutdownSentinel is the final payload sent to a bee on stop(), distinct
// from ordinary traffic so a bee's CLI can recognize termination.
const shutdownSentinel = "HIVE SHUTDOWN: this session is ending. Do not send further messages."

// Supervisor owns the duty-sweep tick loop and the startup/shutdown
// lifecycle operations the CLI's init/stop subcommands delegate to.
type Supervisor struct {
	store  store.Store
	bus    *bus.Bus
	inj    *injector.Injector
	panes  *panes.Table
	cfg    config.Config
	tracer trace.Tracer

	mu       sync.Mutex
	lastTick time.Time
	lastNag  time.Time
}

// New constructs a Supervisor. cfg supplies every tunable named in spec
// 4.F (T_idle, T_silent, remind_interval, tick_interval,
// role_injection_timeout, observer_bee).
func New(st store.Store, b *bus.Bus, inj *injector.Injector, paneTable *panes.Table, cfg config.Config, tracer trace.Tracer) *Supervisor {
	now := time.Now()
	return &Supervisor{
		store:    st,
		bus:      b,
		inj:      inj,
		panes:    paneTable,
		cfg:      cfg,
		tracer:   tracer,
		lastTick: now,
		lastNag:  now,
	}
}

// Run ticks every cfg.TickInterval until ctx is cancelled. It finishes
// any in-flight sweep before returning, per the shutdown-cancellation
// guarantee in the concurrency model.
func (s *Supervisor) Run(ctx context.Context) {
	interval := s.cfg.TickInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one duty sweep. Each duty is isolated with log.Safe so a
// panic or error in one never prevents the others from running.
func (s *Supervisor) Tick(ctx context.Context) {
	_ = tracing.Span(ctx, s.tracer, tracing.SpanPrefixSupervisor+"tick", nil, func(ctx context.Context) error {
		s.mu.Lock()
		since := s.lastTick
		s.lastTick = time.Now()
		dueForNag := time.Since(s.lastNag) >= s.remindInterval()
		if dueForNag {
			s.lastNag = time.Now()
		}
		s.mu.Unlock()

		log.Safe("supervisor.liveness", func() { s.classifyLiveness(ctx) })
		if dueForNag {
			log.Safe("supervisor.reminders", func() { s.sendRoleReminders(ctx, "") })
		}
		log.Safe("supervisor.protocol_violations", func() { s.detectProtocolViolations(ctx, since) })
		log.Safe("supervisor.reap_expired", func() { s.reapExpired(ctx) })
		return nil
	})
}

func (s *Supervisor) remindInterval() time.Duration {
	if s.cfg.RemindInterval <= 0 {
		return 5 * time.Minute
	}
	return s.cfg.RemindInterval
}

func (s *Supervisor) tIdle() time.Duration {
	if s.cfg.TIdle <= 0 {
		return 2 * time.Minute
	}
	return s.cfg.TIdle
}

func (s *Supervisor) tSilent() time.Duration {
	if s.cfg.TSilent <= 0 {
		return 10 * time.Minute
	}
	return s.cfg.TSilent
}

// classifyLiveness implements duty 1: bees silent past T_silent are
// marked offline and queen is alerted.
func (s *Supervisor) classifyLiveness(ctx context.Context) {
	states, err := s.store.ListAgentStates(ctx)
	if err != nil {
		log.ErrorErr(log.CatSupervisor, "failed to list agent states", err)
		return
	}

	now := time.Now()
	for _, state := range states {
		if !state.Bee().IsReal() {
			continue
		}
		minutes := state.MinutesSinceHeartbeat(now)
		delta := time.Duration(minutes * float64(time.Minute))

		switch {
		case delta < s.tIdle():
			// within the idle window, no action
		case delta < s.tSilent():
			// silent but not yet offline; recorded by the heartbeat timestamp itself
		default:
			if state.Status() == domain.AgentOffline {
				continue
			}
			state.SetStatus(domain.AgentOffline)
			if err := s.store.UpsertAgentState(ctx, state); err != nil {
				log.ErrorErr(log.CatSupervisor, "failed to mark bee offline", err, "bee", state.Bee())
				continue
			}
			if s.bus != nil {
				subject := fmt.Sprintf("%s has gone silent", state.Bee())
				_, _ = s.bus.Send(ctx, domain.System, domain.Queen, domain.MessageAlert, subject,
					fmt.Sprintf("%s last heartbeat %.1f minutes ago, marked offline", state.Bee(), minutes),
					bus.SendOptions{Priority: domain.MsgPriorityHigh})
			}
		}
	}
}

// sendRoleReminders implements duty 2. If only is non-empty, just that
// bee is reminded (used by the `remind --bee` CLI escape hatch); otherwise
// every worker bee is.
func (s *Supervisor) sendRoleReminders(ctx context.Context, only domain.BeeName) {
	targets := s.panes.Bees()
	if only != "" {
		targets = []domain.BeeName{only}
	}

	for _, bee := range targets {
		state, err := s.store.GetAgentState(ctx, bee)
		if err != nil {
			log.ErrorErr(log.CatSupervisor, "failed to read agent state for reminder", err, "bee", bee)
			continue
		}
		task := "none"
		if state.CurrentTaskID() != nil {
			task = *state.CurrentTaskID()
		}
		content := fmt.Sprintf("You are %s. Current task: %s.", bee, task)
		if s.bus != nil {
			_, err := s.bus.Send(ctx, domain.System, bee, domain.MessageRoleInjection, "role reminder", content, bus.SendOptions{Priority: domain.MsgPriorityLow})
			if err != nil {
				log.ErrorErr(log.CatSupervisor, "failed to send role reminder", err, "bee", bee)
			}
		}
	}
}

// Remind forces duty 2 immediately, for the CLI's `remind` subcommand.
func (s *Supervisor) Remind(ctx context.Context, only domain.BeeName) {
	s.sendRoleReminders(ctx, only)
}

// detectProtocolViolations implements duty 3: messages inserted since the
// last tick whose sender bypassed the Bus are each reported once to the
// observer bee.
func (s *Supervisor) detectProtocolViolations(ctx context.Context, since time.Time) {
	messages, err := s.store.ListMessagesSince(ctx, since)
	if err != nil {
		log.ErrorErr(log.CatSupervisor, "failed to list messages for protocol check", err)
		return
	}

	observer := domain.BeeName(s.cfg.ObserverBee)
	if !observer.IsValid() {
		observer = domain.Queen
	}

	for _, m := range messages {
		if m.SenderCLIUsed() || !m.FromBee().IsReal() {
			continue
		}
		violation := &errs.ProtocolError{Sender: string(m.FromBee()), Reason: "message bypassed the sanctioned Injector path"}
		log.Error(log.CatSupervisor, violation.Error(), "message_id", m.ID())
		if s.bus != nil {
			_, _ = s.bus.Send(ctx, domain.System, observer, domain.MessageAlert, "protocol violation", violation.Error(),
				bus.SendOptions{Priority: domain.MsgPriorityHigh})
		}
	}
}

// reapExpired implements duty 4: expired, unprocessed messages are marked
// processed so they are never delivered.
func (s *Supervisor) reapExpired(ctx context.Context) {
	expired, err := s.store.ListExpiredUnprocessed(ctx, time.Now())
	if err != nil {
		log.ErrorErr(log.CatSupervisor, "failed to list expired messages", err)
		return
	}
	for _, m := range expired {
		if err := s.store.MarkProcessed(ctx, m.ID()); err != nil {
			log.ErrorErr(log.CatSupervisor, "failed to reap expired message", err, "message_id", m.ID())
			continue
		}
		log.Info(log.CatSupervisor, "reaped expired message", "message_id", m.ID(), "to", m.ToBee())
	}
}

// Heartbeat implements duty 5: a bee calls this to prove liveness. It
// records the heartbeat and applies the implicit offline->idle/busy
// transition.
func (s *Supervisor) Heartbeat(ctx context.Context, bee domain.BeeName) error {
	return tracing.Span(ctx, s.tracer, tracing.SpanPrefixSupervisor+"heartbeat",
		[]attribute.KeyValue{tracing.AttrBeeName.String(string(bee))},
		func(ctx context.Context) error {
			if !bee.IsReal() {
				return &errs.ValidationError{Field: "bee", Reason: "heartbeat requires a real bee"}
			}
			state, err := s.store.GetAgentState(ctx, bee)
			if err != nil {
				return err
			}
			state.RecordHeartbeat(time.Now())
			return s.store.UpsertAgentState(ctx, state)
		})
}

// Init implements duty 6: ensures the multiplexer session exists, injects
// every bee's role document, and waits up to
// cfg.RoleInjectionTimeout for each bee to acknowledge. A bee that never
// acknowledges is marked error but does not abort injection into the
// others.
func (s *Supervisor) Init(ctx context.Context, docs []RoleDoc) error {
	return tracing.Span(ctx, s.tracer, tracing.SpanPrefixSupervisor+"init", nil, func(ctx context.Context) error {
		if err := s.inj.EnsureSession(ctx); err != nil {
			return err
		}

		var firstTimeout error
		for _, doc := range docs {
			start := time.Now()
			if s.bus != nil {
				if _, err := s.bus.Send(ctx, domain.System, doc.Bee, domain.MessageRoleInjection, "role assignment", doc.Content, bus.SendOptions{Priority: domain.MsgPriorityHigh}); err != nil {
					log.ErrorErr(log.CatSupervisor, "failed to inject role document", err, "bee", doc.Bee)
				}
			}

			if err := s.awaitAck(ctx, doc.Bee, start); err != nil {
				if firstTimeout == nil {
					firstTimeout = err
				}
				if state, gerr := s.store.GetAgentState(ctx, doc.Bee); gerr == nil {
					state.SetStatus(domain.AgentError)
					_ = s.store.UpsertAgentState(ctx, state)
				}
			}
		}
		return firstTimeout
	})
}

func (s *Supervisor) awaitAck(ctx context.Context, bee domain.BeeName, since time.Time) error {
	timeout := s.cfg.RoleInjectionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		messages, err := s.store.ListMessagesSince(ctx, since)
		if err == nil {
			for _, m := range messages {
				if m.FromBee() == bee && containsAck(m.Content()) {
					return nil
				}
			}
		}
		if time.Now().After(deadline) {
			return &errs.RoleInjectionTimeoutError{Bee: string(bee)}
		}
		select {
		case <-ctx.Done():
			return &errs.CancelledError{Op: "supervisor.init"}
		case <-ticker.C:
		}
	}
}

func containsAck(content string) bool {
	return strings.Contains(content, AckPattern)
}

// Stop implements duty 7: sends a sentinel to every bee, then tears down
// the multiplexer session. Best-effort: a failure to reach one bee does
// not stop the others, and a failure to tear down the session is logged
// rather than returned, per the exit-path invariant that shutdown is
// best-effort if the multiplexer is unreachable.
func (s *Supervisor) Stop(ctx context.Context) error {
	return tracing.Span(ctx, s.tracer, tracing.SpanPrefixSupervisor+"stop", nil, func(ctx context.Context) error {
		for _, bee := range s.panes.Bees() {
			if s.bus != nil {
				_, err := s.bus.Send(ctx, domain.System, bee, domain.MessageNotification, "shutdown", shutdownSentinel, bus.SendOptions{Priority: domain.MsgPriorityUrgent})
				if err != nil {
					log.ErrorErr(log.CatSupervisor, "failed to deliver shutdown sentinel", err, "bee", bee)
				}
			}
		}
		if err := s.inj.TeardownSession(ctx); err != nil {
			log.ErrorErr(log.CatSupervisor, "failed to tear down multiplexer session", err)
		}
		return nil
	})
}
