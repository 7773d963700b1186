// Package domain provides the pure domain layer for the hive: bee identity,
// tasks, messages, assignments and agent state. It has no infrastructure
// dependencies (no SQL, no filesystem, no multiplexer) so it can be tested
// and reasoned about in isolation.
package domain

// BeeName identifies a participant in the hive. The set is closed: four
// working roles, two synthetic senders, and one broadcast target.
type BeeName string

const (
	Queen    BeeName = "queen"
	Developer BeeName = "developer"
	QA       BeeName = "qa"
	Analyst  BeeName = "analyst"

	// System is the synthetic sender used for messages the orchestrator
	// itself produces (task-completion notices, alerts).
	System BeeName = "system"

	// Beekeeper is the human operator.
	Beekeeper BeeName = "beekeeper"

	// All is the broadcast pseudo-recipient; it is never a valid sender
	// or assignee.
	All BeeName = "all"
)

// workerBees are the bees the Task Engine may assign work to.
var workerBees = map[BeeName]bool{
	Queen:     true,
	Developer: true,
	QA:        true,
	Analyst:   true,
}

// realBees are workers plus nothing else; System/Beekeeper/All are never
// "real bees" for liveness or protocol-violation purposes.
var realBees = workerBees

// knownNames is the full closed set recognized by validate().
var knownNames = map[BeeName]bool{
	Queen: true, Developer: true, QA: true, Analyst: true,
	System: true, Beekeeper: true, All: true,
}

// IsValid reports whether name is a member of the closed BeeName set.
func (n BeeName) IsValid() bool {
	return knownNames[n]
}

// IsWorker reports whether name is one of the four working roles that may
// be assigned tasks.
func (n BeeName) IsWorker() bool {
	return workerBees[n]
}

// IsReal reports whether name denotes an actual hosted LLM process, as
// opposed to a synthetic sender (system, beekeeper) or the broadcast
// pseudo-recipient (all).
func (n BeeName) IsReal() bool {
	return realBees[n]
}

// IsBroadcast reports whether name is the "all" pseudo-recipient.
func (n BeeName) IsBroadcast() bool {
	return n == All
}

func (n BeeName) String() string {
	return string(n)
}

// AllBeeNames returns the four working roles in a fixed order, used to
// expand broadcasts and to seed AgentState rows.
func AllBeeNames() []BeeName {
	return []BeeName{Queen, Developer, QA, Analyst}
}

// Pane is an opaque identifier for a multiplexer pane. It carries no
// structure of its own; the mapping from BeeName to Pane is configuration,
// not state (spec: Pane Addressing).
type Pane string

func (p Pane) String() string {
	return string(p)
}
