package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reguflow/aegis/oracle"
	"github.com/reguflow/aegis/recordstore"
)

func TestThreeStrikesLock(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, store, stub := EngineTestFixture()
	stub.Decision = &oracle.Classification{
		IsViolation: true,
		Severity:    oracle.SeverityLow,
		Reason:      "Rude to customer",
	}

	for i := 0; i < 2; i++ {
		res, err := eng.SubmitMessage(ctx, "agent_007", "ticket_101", "ugh, figure it out yourself")
		require.NoError(t, err)
		assert.Equal(OutcomeViolation, res.Outcome)
	}
	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(2, agent.Strikes)
	assert.Equal(recordstore.AgentActive, agent.Status)

	// third strike locks
	res, err := eng.SubmitMessage(ctx, "agent_007", "ticket_101", "ugh, figure it out yourself")
	require.NoError(t, err)
	assert.Equal(OutcomeViolation, res.Outcome)
	agent, err = store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(3, agent.Strikes)
	assert.Equal(recordstore.AgentLocked, agent.Status)
	assert.Len(agent.History, 3)

	// once locked, further submits are rejected before classification and
	// strikes stop moving
	res, err = eng.SubmitMessage(ctx, "agent_007", "ticket_101", "one more")
	require.NoError(t, err)
	assert.Equal(OutcomeLocked, res.Outcome)
	agent, err = store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(3, agent.Strikes)
	assert.Equal(3, stub.ClassifyCalls)
}

func TestHighSeverityLocksWithoutStrikes(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, store, stub := EngineTestFixture()
	stub.Decision = &oracle.Classification{
		IsViolation: true,
		Severity:    oracle.SeverityLow,
		Reason:      "Financial advice",
	}
	_, err := eng.SubmitMessage(ctx, "agent_007", "ticket_101", "buy the dip")
	require.NoError(t, err)

	stub.Decision = &oracle.Classification{
		IsViolation: true,
		Severity:    oracle.SeverityHigh,
		Reason:      "Asked for 2FA code",
	}
	_, err = eng.SubmitMessage(ctx, "agent_007", "ticket_101", "what's your 2FA code?")
	require.NoError(t, err)

	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(recordstore.AgentLocked, agent.Status)
	// HIGH leaves the strike count as-is
	assert.Equal(1, agent.Strikes)
	assert.Equal("[HIGH] Asked for 2FA code (Ticket: ticket_101)", agent.History[1])
}

func TestUnlockResets(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, store, stub := EngineTestFixture()
	stub.Decision = &oracle.Classification{
		IsViolation: true,
		Severity:    oracle.SeverityHigh,
		Reason:      "Promised guaranteed returns",
	}
	_, err := eng.SubmitMessage(ctx, "agent_007", "ticket_101", "this trade is risk-free")
	require.NoError(t, err)

	require.NoError(t, eng.UnlockAgent(ctx, "agent_007"))
	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(recordstore.AgentActive, agent.Status)
	assert.Equal(0, agent.Strikes)
	require.Len(t, agent.History, 2)
	assert.Equal("[ADMIN ACTION] Account Unlocked", agent.History[1])

	// unlocking an already-active agent is a reset plus exactly one more
	// audit entry
	require.NoError(t, eng.UnlockAgent(ctx, "agent_007"))
	agent, err = store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(recordstore.AgentActive, agent.Status)
	assert.Len(agent.History, 3)

	assert.ErrorIs(eng.UnlockAgent(ctx, "agent_999"), recordstore.ErrNotFound)
}
