package domain

import "time"

// AgentStatus is the liveness/activity state of a bee.
type AgentStatus string

const (
	AgentIdle    AgentStatus = "idle"
	AgentBusy    AgentStatus = "busy"
	AgentWaiting AgentStatus = "waiting"
	AgentOffline AgentStatus = "offline"
	AgentError   AgentStatus = "error"
)

func (s AgentStatus) IsValid() bool {
	switch s {
	case AgentIdle, AgentBusy, AgentWaiting, AgentOffline, AgentError:
		return true
	default:
		return false
	}
}

// AgentState is the one-row-per-bee liveness and workload record.
type AgentState struct {
	bee              BeeName
	status           AgentStatus
	currentTaskID    *string
	lastActivity     time.Time
	lastHeartbeat    time.Time
	workloadScore    int
	performanceScore int
	capabilities     map[string]bool
}

// NewAgentState seeds a fresh idle AgentState for bee, as the Store does
// for every known BeeName at install time.
func NewAgentState(bee BeeName) *AgentState {
	now := time.Now()
	return &AgentState{
		bee:           bee,
		status:        AgentIdle,
		lastActivity:  now,
		lastHeartbeat: now,
		capabilities:  map[string]bool{},
	}
}

// ReconstituteAgentState rebuilds an AgentState from persisted fields.
func ReconstituteAgentState(
	bee BeeName,
	status AgentStatus,
	currentTaskID *string,
	lastActivity, lastHeartbeat time.Time,
	workloadScore, performanceScore int,
	capabilities map[string]bool,
) *AgentState {
	return &AgentState{
		bee:              bee,
		status:           status,
		currentTaskID:    currentTaskID,
		lastActivity:     lastActivity,
		lastHeartbeat:    lastHeartbeat,
		workloadScore:    workloadScore,
		performanceScore: performanceScore,
		capabilities:     capabilities,
	}
}

func (a *AgentState) Bee() BeeName                 { return a.bee }
func (a *AgentState) Status() AgentStatus          { return a.status }
func (a *AgentState) CurrentTaskID() *string       { return a.currentTaskID }
func (a *AgentState) LastActivity() time.Time      { return a.lastActivity }
func (a *AgentState) LastHeartbeat() time.Time     { return a.lastHeartbeat }
func (a *AgentState) WorkloadScore() int           { return a.workloadScore }
func (a *AgentState) PerformanceScore() int        { return a.performanceScore }
func (a *AgentState) Capabilities() map[string]bool { return a.capabilities }

// SetStatus sets status without checking the invariant that busy implies a
// current task is set. Callers that move to busy must call SetCurrentTask
// first (or in the same logical update on the Store side).
func (a *AgentState) SetStatus(status AgentStatus) {
	a.status = status
}

// SetCurrentTask records the task this bee is actively working, or clears
// it with nil.
func (a *AgentState) SetCurrentTask(taskID *string) {
	a.currentTaskID = taskID
}

// TouchActivity bumps last_activity to now, called on any inbound or
// outbound traffic for this bee.
func (a *AgentState) TouchActivity(now time.Time) {
	a.lastActivity = now
}

// RecordHeartbeat bumps last_heartbeat and applies the implicit
// status transition described in spec 4.F duty 5: offline -> idle, or
// offline -> busy if a current task is active.
func (a *AgentState) RecordHeartbeat(now time.Time) {
	a.lastHeartbeat = now
	if a.status == AgentOffline {
		if a.currentTaskID != nil {
			a.status = AgentBusy
		} else {
			a.status = AgentIdle
		}
	}
}

// MinutesSinceHeartbeat is a convenience for the Supervisor's liveness
// classification duty.
func (a *AgentState) MinutesSinceHeartbeat(now time.Time) float64 {
	return now.Sub(a.lastHeartbeat).Minutes()
}
