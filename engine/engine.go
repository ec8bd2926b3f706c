package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reguflow/aegis/oracle"
	"github.com/reguflow/aegis/recordstore"
)

// Behavior when the policy oracle cannot produce a usable classification.
// FailClosed treats the message as a LOW violation; FailOpen waves it
// through. An unconfigured engine fails closed.
type FallbackPolicy string

const (
	FailOpen   FallbackPolicy = "fail-open"
	FailClosed FallbackPolicy = "fail-closed"
)

func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(s) {
	case FailOpen, FailClosed:
		return FallbackPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown fallback policy: %q", s)
	}
}

// The two capabilities the engine needs from the policy oracle. Satisfied by
// *oracle.Client; tests use a stub.
type PolicyOracle interface {
	Classify(ctx context.Context, message, customerName string) (*oracle.Classification, error)
	SimulateReply(ctx context.Context, agentMessage, customerName string) (string, error)
}

var ErrEmptyMessage = errors.New("message is empty")

type Outcome string

const (
	OutcomeApproved  Outcome = "APPROVED"
	OutcomeViolation Outcome = "VIOLATION"
	OutcomeLocked    Outcome = "LOCKED"
)

type SubmitResult struct {
	Outcome       Outcome
	Reason        string
	CustomerReply string
}

// Moderation engine: classifies outbound agent messages, maintains the
// per-agent enforcement state machine, and keeps the conversation ledger.
//
// All mutations for one submit happen inside a single atomic store update, so
// concurrent submits against the same agent cannot interleave their
// read-modify-write sequences.
type Engine struct {
	Logger *slog.Logger
	Agents recordstore.AgentStore
	Oracle PolicyOracle
	// zero value falls back to FailClosed
	Fallback FallbackPolicy
	// per-call budget for oracle suspension points; zero means 15s
	OracleTimeout time.Duration
}

const defaultOracleTimeout = 15 * time.Second

// violation recorded when the oracle is unavailable and policy is fail-closed
const fallbackReason = "Compliance check unavailable"

// reply used when classification passed but reply synthesis failed; an
// approved message must never fail outright because of the oracle
const fallbackReply = "Okay, thank you for the update."

// raced lock transition detected inside the atomic update
var errLockedRace = errors.New("agent locked concurrently")

func (eng *Engine) oracleTimeout() time.Duration {
	if eng.OracleTimeout > 0 {
		return eng.OracleTimeout
	}
	return defaultOracleTimeout
}

func (eng *Engine) fallback() FallbackPolicy {
	if eng.Fallback == FailOpen {
		return FailOpen
	}
	return FailClosed
}

// Runs one agent message through the moderation pipeline.
//
// Returns ErrEmptyMessage for blank input and recordstore.ErrNotFound for
// unknown agent or ticket IDs. Oracle failures never surface as errors; the
// configured fallback policy decides the outcome instead.
func (eng *Engine) SubmitMessage(ctx context.Context, agentID, ticketID, text string) (*SubmitResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	agent, err := eng.Agents.GetAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("resolving agent %s: %w", agentID, err)
	}
	ticket, ok := agent.Tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("resolving ticket %s: %w", ticketID, recordstore.ErrNotFound)
	}

	// locked agents get no classification, no ledger writes, no state change
	if agent.Status == recordstore.AgentLocked {
		submitCount.WithLabelValues(string(OutcomeLocked)).Inc()
		return &SubmitResult{Outcome: OutcomeLocked}, nil
	}

	decision := eng.classifyMessage(ctx, text, ticket.CustomerName)

	var res *SubmitResult
	if decision.IsViolation {
		res, err = eng.applyViolation(ctx, agentID, ticketID, text, decision)
	} else {
		res, err = eng.applyApproval(ctx, agentID, ticketID, text, ticket.CustomerName)
	}
	if err != nil {
		return nil, err
	}
	submitCount.WithLabelValues(string(res.Outcome)).Inc()
	return res, nil
}

// The only suspension point on the violation-check path. Never returns nil:
// an oracle failure resolves to the fallback policy's classification.
func (eng *Engine) classifyMessage(ctx context.Context, text, customerName string) *oracle.Classification {
	octx, cancel := context.WithTimeout(ctx, eng.oracleTimeout())
	defer cancel()

	decision, err := eng.Oracle.Classify(octx, text, customerName)
	if err == nil {
		return decision
	}

	mode := eng.fallback()
	oracleFallbackCount.WithLabelValues(string(mode)).Inc()
	eng.Logger.Warn("policy oracle unavailable, applying fallback", "err", err, "mode", mode)
	if mode == FailOpen {
		return &oracle.Classification{IsViolation: false, Severity: oracle.SeverityNone}
	}
	return &oracle.Classification{
		IsViolation: true,
		Severity:    oracle.SeverityLow,
		Reason:      fallbackReason,
	}
}

func (eng *Engine) applyViolation(ctx context.Context, agentID, ticketID, text string, decision *oracle.Classification) (*SubmitResult, error) {
	locked := false
	err := eng.Agents.UpdateAgent(ctx, agentID, func(a *recordstore.Agent) error {
		t, ok := a.Tickets[ticketID]
		if !ok {
			return recordstore.ErrNotFound
		}
		// re-check under the record lock; a concurrent submit may have
		// locked the agent since our read
		if a.Status == recordstore.AgentLocked {
			return errLockedRace
		}
		appendAgentTranscript(a, t.CustomerName, text)
		appendBlockedMarker(a, decision.Reason)
		appendTicketMessage(t, recordstore.RoleAgent, text, true)
		recordViolation(a, decision.Severity, decision.Reason, ticketID)
		locked = a.Status == recordstore.AgentLocked
		return nil
	})
	if errors.Is(err, errLockedRace) {
		return &SubmitResult{Outcome: OutcomeLocked}, nil
	} else if err != nil {
		return nil, fmt.Errorf("recording violation: %w", err)
	}

	eng.Logger.Info("agent message blocked",
		"agent", agentID, "ticket", ticketID, "severity", decision.Severity, "reason", decision.Reason)
	if locked {
		accountLockCount.Inc()
		eng.Logger.Warn("agent account locked", "agent", agentID)
	}
	return &SubmitResult{Outcome: OutcomeViolation, Reason: decision.Reason}, nil
}

func (eng *Engine) applyApproval(ctx context.Context, agentID, ticketID, text, customerName string) (*SubmitResult, error) {
	// synthesize the reply before taking the record lock; it is the second
	// (and last) suspension point of the pipeline
	octx, cancel := context.WithTimeout(ctx, eng.oracleTimeout())
	reply, err := eng.Oracle.SimulateReply(octx, text, customerName)
	cancel()
	if err != nil {
		eng.Logger.Warn("reply synthesis unavailable, using canned reply", "err", err)
		reply = fallbackReply
	}

	err = eng.Agents.UpdateAgent(ctx, agentID, func(a *recordstore.Agent) error {
		t, ok := a.Tickets[ticketID]
		if !ok {
			return recordstore.ErrNotFound
		}
		if a.Status == recordstore.AgentLocked {
			return errLockedRace
		}
		appendAgentTranscript(a, t.CustomerName, text)
		appendTicketMessage(t, recordstore.RoleAgent, text, false)
		appendTicketMessage(t, recordstore.RoleCustomer, reply, false)
		appendCustomerTranscript(a, reply)
		return nil
	})
	if errors.Is(err, errLockedRace) {
		return &SubmitResult{Outcome: OutcomeLocked}, nil
	} else if err != nil {
		return nil, fmt.Errorf("recording approved message: %w", err)
	}

	return &SubmitResult{Outcome: OutcomeApproved, CustomerReply: reply}, nil
}
