package domain

import "time"

// ActivityType classifies an ActivityEntry. The Store produces
// status_change and assignment_change entries implicitly; callers may
// append other types explicitly (e.g. "created", "note").
type ActivityType string

const (
	ActivityCreated          ActivityType = "created"
	ActivityStatusChange     ActivityType = "status_change"
	ActivityAssignmentChange ActivityType = "assignment_change"
	ActivityNote             ActivityType = "note"
)

// ActivityEntry is one append-only audit row. Entries are never updated or
// deleted once inserted.
type ActivityEntry struct {
	TaskID      string
	BeeName     BeeName
	Type        ActivityType
	Description string
	OldValue    string
	NewValue    string
	CreatedAt   time.Time
}

// InjectionOutcome is the classified result of one Injector.Send call.
type InjectionOutcome string

const (
	OutcomeDelivered         InjectionOutcome = "delivered"
	OutcomePaneNotFound      InjectionOutcome = "pane_not_found"
	OutcomeSessionNotFound   InjectionOutcome = "session_not_found"
	OutcomeTransportError    InjectionOutcome = "transport_error"
	OutcomeDryRun            InjectionOutcome = "dry_run"
)

// InjectionLogEntry is one append-only record of an Injector call,
// regardless of outcome.
type InjectionLogEntry struct {
	Session       string
	Pane          Pane
	PayloadOrHash string
	Type          MessageType
	Sender        BeeName
	Metadata      map[string]any
	DryRun        bool
	CreatedAt     time.Time
	Outcome       InjectionOutcome
}
