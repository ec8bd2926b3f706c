package engine

import (
	"context"
	"fmt"

	"github.com/reguflow/aegis/oracle"
	"github.com/reguflow/aegis/recordstore"
)

// LOW-severity violations accumulated before an automatic lock
const maxStrikes = 3

const unlockAuditEntry = "[ADMIN ACTION] Account Unlocked"

// Enforcement state machine transition for one confirmed violation. Must run
// inside an atomic agent update, and only against an ACTIVE agent (the
// pipeline rejects LOCKED agents before classification).
//
// HIGH severity locks immediately and leaves strikes untouched; LOW adds a
// strike, and the third strike locks.
func recordViolation(a *recordstore.Agent, severity oracle.Severity, reason, ticketID string) {
	a.History = append(a.History, fmt.Sprintf("[%s] %s (Ticket: %s)", severity, reason, ticketID))
	if severity == oracle.SeverityHigh {
		a.Status = recordstore.AgentLocked
		return
	}
	a.Strikes++
	if a.Strikes >= maxStrikes {
		a.Status = recordstore.AgentLocked
	}
}

// Admin remediation: returns the agent to ACTIVE with zero strikes and
// records one audit entry, whatever the prior state. Unlocking an agent that
// was never locked still resets strikes and is still audited.
func (eng *Engine) UnlockAgent(ctx context.Context, agentID string) error {
	err := eng.Agents.UpdateAgent(ctx, agentID, func(a *recordstore.Agent) error {
		a.Status = recordstore.AgentActive
		a.Strikes = 0
		a.History = append(a.History, unlockAuditEntry)
		return nil
	})
	if err != nil {
		return fmt.Errorf("unlocking agent %s: %w", agentID, err)
	}
	accountUnlockCount.Inc()
	eng.Logger.Info("agent account unlocked", "agent", agentID)
	return nil
}
