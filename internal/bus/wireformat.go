package bus

import (
	"fmt"
	"strings"
	"time"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

// formatWirePayload composes the fenced markdown block every recipient's
// hosted CLI is prompted to recognize as an inter-bee message. The markup
// is fixed: bees are prompted against this exact shape, so field order and
// labels must not drift.
func formatWirePayload(from domain.BeeName, msgType domain.MessageType, subject string, taskID *string, at time.Time, content string) string {
	task := "N/A"
	if taskID != nil && *taskID != "" {
		task = *taskID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## \U0001F4E8 MESSAGE FROM %s\n\n", strings.ToUpper(from.String()))
	fmt.Fprintf(&b, "**Type:** %s\n", msgType)
	fmt.Fprintf(&b, "**Subject:** %s\n", subject)
	fmt.Fprintf(&b, "**Task ID:** %s\n", task)
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", at.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Content:**\n%s\n\n---\n", content)
	return b.String()
}

// PreviewWire renders the exact markdown block a recipient's pane would
// receive for a would-be send, without persisting or delivering anything.
// Used by the `task message` CLI subcommand to show the operator what's
// about to go out, rendered through glamour rather than printed raw.
func PreviewWire(from domain.BeeName, msgType domain.MessageType, subject string, taskID *string, content string) string {
	return formatWirePayload(from, msgType, subject, taskID, time.Now(), content)
}
