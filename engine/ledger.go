package engine

import (
	"fmt"
	"time"

	"github.com/reguflow/aegis/recordstore"
)

// Conversation ledger appends. All of these run inside the same atomic agent
// update as the enforcement transition for the submit that caused them, and
// none of them ever edits or removes an existing entry.

func transcriptClock() string {
	return time.Now().Format("15:04:05")
}

// Supervisor-audit line for an outbound agent message. Written whether or not
// the message ends up blocked.
func appendAgentTranscript(a *recordstore.Agent, customerName, text string) {
	a.Transcript = append(a.Transcript, fmt.Sprintf("[%s] [Ticket: %s] AGENT: %s", transcriptClock(), customerName, text))
}

func appendCustomerTranscript(a *recordstore.Agent, text string) {
	a.Transcript = append(a.Transcript, fmt.Sprintf("[%s] CUSTOMER: %s", transcriptClock(), text))
}

func appendBlockedMarker(a *recordstore.Agent, reason string) {
	a.Transcript = append(a.Transcript, "BLOCKED: "+reason)
}

func appendTicketMessage(t *recordstore.Ticket, role recordstore.MessageRole, text string, blocked bool) {
	t.History = append(t.History, recordstore.ChatMessage{Role: role, Text: text, Blocked: blocked})
}
