package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reguflow/aegis/oracle"
	"github.com/reguflow/aegis/recordstore"
)

func TestSubmitValidation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _, stub := EngineTestFixture()

	_, err := eng.SubmitMessage(ctx, "agent_007", "ticket_101", "   ")
	assert.ErrorIs(err, ErrEmptyMessage)

	_, err = eng.SubmitMessage(ctx, "agent_999", "ticket_101", "hello")
	assert.ErrorIs(err, recordstore.ErrNotFound)

	_, err = eng.SubmitMessage(ctx, "agent_007", "ticket_999", "hello")
	assert.ErrorIs(err, recordstore.ErrNotFound)

	assert.Equal(0, stub.ClassifyCalls)
}

func TestSubmitApproved(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, store, stub := EngineTestFixture()
	stub.Reply = "Great, my withdrawal arrived."

	res, err := eng.SubmitMessage(ctx, "agent_007", "ticket_101", "your withdrawal has been processed")
	assert.NoError(err)
	assert.Equal(OutcomeApproved, res.Outcome)
	assert.Equal("Great, my withdrawal arrived.", res.CustomerReply)
	assert.Equal(1, stub.ClassifyCalls)
	assert.Equal(1, stub.ReplyCalls)

	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(recordstore.AgentActive, agent.Status)
	assert.Equal(0, agent.Strikes)
	assert.Empty(agent.History)

	hist := agent.Tickets["ticket_101"].History
	require.Len(t, hist, 2)
	assert.Equal(recordstore.RoleAgent, hist[0].Role)
	assert.False(hist[0].Blocked)
	assert.Equal(recordstore.RoleCustomer, hist[1].Role)
	assert.Equal("Great, my withdrawal arrived.", hist[1].Text)

	require.Len(t, agent.Transcript, 2)
	assert.Contains(agent.Transcript[0], "[Ticket: Alice (VIP)] AGENT: your withdrawal has been processed")
	assert.Contains(agent.Transcript[1], "CUSTOMER: Great, my withdrawal arrived.")
}

func TestSubmitLowViolation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, store, stub := EngineTestFixture()
	stub.Decision = &oracle.Classification{
		IsViolation: true,
		Severity:    oracle.SeverityLow,
		Reason:      "Gave financial advice",
	}

	res, err := eng.SubmitMessage(ctx, "agent_007", "ticket_102", "you should buy bitcoin now")
	assert.NoError(err)
	assert.Equal(OutcomeViolation, res.Outcome)
	assert.Equal("Gave financial advice", res.Reason)
	// a blocked message never produces a synthesized reply
	assert.Equal(0, stub.ReplyCalls)

	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(recordstore.AgentActive, agent.Status)
	assert.Equal(1, agent.Strikes)
	require.Len(t, agent.History, 1)
	assert.Equal("[LOW] Gave financial advice (Ticket: ticket_102)", agent.History[0])

	hist := agent.Tickets["ticket_102"].History
	require.Len(t, hist, 1)
	assert.True(hist[0].Blocked)
	assert.Contains(agent.Transcript[1], "BLOCKED: Gave financial advice")
}

func TestSubmitHighViolationLocks(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, store, stub := EngineTestFixture()
	stub.Decision = &oracle.Classification{
		IsViolation: true,
		Severity:    oracle.SeverityHigh,
		Reason:      "Asked for password reset code",
	}

	res, err := eng.SubmitMessage(ctx, "agent_007", "ticket_101", "here's my password reset code")
	assert.NoError(err)
	assert.Equal(OutcomeViolation, res.Outcome)

	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(recordstore.AgentLocked, agent.Status)
	assert.Equal(0, agent.Strikes)
	assert.True(agent.Tickets["ticket_101"].History[0].Blocked)
}

func TestSubmitLockedShortCircuit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, store, stub := EngineTestFixture()
	require.NoError(t, store.UpdateAgent(ctx, "agent_007", func(a *recordstore.Agent) error {
		a.Status = recordstore.AgentLocked
		return nil
	}))

	res, err := eng.SubmitMessage(ctx, "agent_007", "ticket_101", "hello there")
	assert.NoError(err)
	assert.Equal(OutcomeLocked, res.Outcome)

	// no oracle call, no ledger writes, no state change
	assert.Equal(0, stub.ClassifyCalls)
	assert.Equal(0, stub.ReplyCalls)
	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Empty(agent.Transcript)
	assert.Empty(agent.Tickets["ticket_101"].History)
}

func TestFallbackFailClosed(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, store, stub := EngineTestFixture()
	stub.Err = errors.New("oracle timeout")
	eng.Fallback = FailClosed

	res, err := eng.SubmitMessage(ctx, "agent_007", "ticket_101", "hello")
	assert.NoError(err)
	assert.Equal(OutcomeViolation, res.Outcome)
	assert.Equal("Compliance check unavailable", res.Reason)

	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(1, agent.Strikes)
	assert.True(agent.Tickets["ticket_101"].History[0].Blocked)
}

func TestFallbackFailOpen(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, store, stub := EngineTestFixture()
	stub.Err = errors.New("oracle timeout")
	eng.Fallback = FailOpen

	res, err := eng.SubmitMessage(ctx, "agent_007", "ticket_101", "hello")
	assert.NoError(err)
	assert.Equal(OutcomeApproved, res.Outcome)
	// reply synthesis also failed, so the canned reply is used
	assert.Equal(fallbackReply, res.CustomerReply)

	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(0, agent.Strikes)
	assert.False(agent.Tickets["ticket_101"].History[0].Blocked)
}

func TestParseFallbackPolicy(t *testing.T) {
	assert := assert.New(t)

	mode, err := ParseFallbackPolicy("fail-open")
	assert.NoError(err)
	assert.Equal(FailOpen, mode)
	mode, err = ParseFallbackPolicy("fail-closed")
	assert.NoError(err)
	assert.Equal(FailClosed, mode)
	_, err = ParseFallbackPolicy("fail-maybe")
	assert.Error(err)
}
