package injector

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
	"github.com/beehive-org/beehive/internal/concurrency"
	"github.com/beehive-org/beehive/internal/log"
	"github.com/beehive-org/beehive/internal/panes"
	"github.com/beehive-org/beehive/internal/store"
	"github.com/beehive-org/beehive/internal/tracing"
)

// Injector delivers message payloads into the pane hosting their
// recipient, recording every attempt to the Store's injection log
// regardless of outcome (spec 4.B).
type Injector struct {
	mux     Multiplexer
	panes   *panes.Table
	store   store.Store
	session string
	tracer  trace.Tracer
	dryRun  bool
	limiter *concurrency.Limiter

	mu      sync.Mutex
	paneMus map[domain.Pane]*sync.Mutex
}

// New constructs an Injector. concurrency <= 0 uses concurrency.DefaultLimit.
func New(mux Multiplexer, paneTable *panes.Table, st store.Store, session string, tracer trace.Tracer, concurrencyLimit int, dryRun bool) *Injector {
	return &Injector{
		mux:     mux,
		panes:   paneTable,
		store:   st,
		session: session,
		tracer:  tracer,
		dryRun:  dryRun,
		limiter: concurrency.New(concurrencyLimit),
		paneMus: map[domain.Pane]*sync.Mutex{},
	}
}

func (inj *Injector) paneMutex(pane domain.Pane) *sync.Mutex {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	m, ok := inj.paneMus[pane]
	if !ok {
		m = &sync.Mutex{}
		inj.paneMus[pane] = m
	}
	return m
}

// Send resolves bee's pane, serializes delivery against any other send to
// the same pane, bounds overall concurrency, and logs the outcome whether
// or not delivery succeeded. dryRun short-circuits before the multiplexer
// is ever invoked.
func (inj *Injector) Send(ctx context.Context, bee domain.BeeName, sender domain.BeeName, msgType domain.MessageType, payload string, metadata map[string]any) error {
	return tracing.Span(ctx, inj.tracer, tracing.SpanPrefixInjector+".send",
		[]attribute.KeyValue{
			tracing.AttrBeeName.String(string(bee)),
			tracing.AttrFromBee.String(string(sender)),
			tracing.AttrMsgType.String(string(msgType)),
			tracing.AttrDryRun.Bool(inj.dryRun),
		},
		func(ctx context.Context) error {
			pane, err := inj.panes.Resolve(bee)
			if err != nil {
				_ = inj.appendLog(ctx, pane, sender, msgType, payload, metadata, domain.OutcomePaneNotFound)
				return err
			}

			if inj.dryRun {
				log.Debug(log.CatInjector, "dry run, skipping delivery", "bee", bee, "pane", pane)
				return inj.appendLog(ctx, pane, sender, msgType, payload, metadata, domain.OutcomeDryRun)
			}

			if err := inj.limiter.Acquire(ctx); err != nil {
				return &errs.CancelledError{Op: "injector.send"}
			}
			defer inj.limiter.Release()

			mtx := inj.paneMutex(pane)
			mtx.Lock()
			defer mtx.Unlock()

			sendErr := inj.mux.SendKeys(ctx, inj.session, pane, payload)
			outcome := classifyOutcome(sendErr)
			if logErr := inj.appendLog(ctx, pane, sender, msgType, payload, metadata, outcome); logErr != nil {
				log.ErrorErr(log.CatInjector, "failed to append injection log", logErr)
			}
			if sendErr != nil {
				return &errs.TransportError{Outcome: string(outcome), Session: inj.session, Pane: pane.String(), Err: sendErr}
			}
			return nil
		})
}

func classifyOutcome(err error) domain.InjectionOutcome {
	switch err.(type) {
	case nil:
		return domain.OutcomeDelivered
	case *paneNotFoundErr:
		return domain.OutcomePaneNotFound
	case *sessionNotFoundErr:
		return domain.OutcomeSessionNotFound
	default:
		return domain.OutcomeTransportError
	}
}

func (inj *Injector) appendLog(ctx context.Context, pane domain.Pane, sender domain.BeeName, msgType domain.MessageType, payload string, metadata map[string]any, outcome domain.InjectionOutcome) error {
	return inj.store.AppendInjectionLog(ctx, domain.InjectionLogEntry{
		Session:       inj.session,
		Pane:          pane,
		PayloadOrHash: payload,
		Type:          msgType,
		Sender:        sender,
		Metadata:      metadata,
		DryRun:        inj.dryRun,
		Outcome:       outcome,
	})
}

// EnsureSession creates the multiplexer session if it does not already
// exist, used by Supervisor.Init (and so by `beehive init`).
func (inj *Injector) EnsureSession(ctx context.Context) error {
	for _, bee := range inj.panes.Bees() {
		pane, err := inj.panes.Resolve(bee)
		if err != nil {
			return err
		}
		exists, err := inj.mux.PaneExists(ctx, inj.session, pane)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := inj.mux.NewSession(ctx, inj.session); err != nil {
			return err
		}
		break
	}
	return nil
}

// TeardownSession instructs the multiplexer to kill the session, used by
// the Supervisor's shutdown duty. Best-effort: a failure here is logged by
// the caller, not retried.
func (inj *Injector) TeardownSession(ctx context.Context) error {
	return inj.mux.KillSession(ctx, inj.session)
}

// CapturePane reads bee's pane output through the multiplexer, resolving
// the pane the same way Send does. Used by the `logs` CLI subcommand.
func (inj *Injector) CapturePane(ctx context.Context, bee domain.BeeName, lines int) (string, error) {
	pane, err := inj.panes.Resolve(bee)
	if err != nil {
		return "", err
	}
	return inj.mux.CapturePane(ctx, inj.session, pane, lines)
}

// Session returns the multiplexer session name, for the `attach` CLI
// subcommand to hand off to.
func (inj *Injector) Session() string {
	return inj.session
}
