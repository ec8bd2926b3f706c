package remediation

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reguflow/aegis/engine"
	"github.com/reguflow/aegis/recordstore"
)

func adminTestFixture(t *testing.T) (*Admin, *recordstore.MemStore) {
	t.Helper()
	eng, store, _ := engine.EngineTestFixture()
	for _, c := range []*recordstore.Customer{
		{ID: "cust_a", Name: "Alice", Status: recordstore.CustomerActive, RiskScore: 5},
		{ID: "cust_b", Name: "Bob", Status: recordstore.CustomerFlagged, RiskScore: 88},
	} {
		require.NoError(t, store.PutCustomer(context.Background(), c))
	}
	adm := &Admin{Logger: slog.Default(), Engine: eng, Customers: store}
	return adm, store
}

func TestBanCustomers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	adm, store := adminTestFixture(t)

	n, err := adm.BanCustomers(ctx, []string{"cust_a", "cust_b", "ghost"})
	assert.NoError(err)
	assert.Equal(2, n)

	for _, id := range []string{"cust_a", "cust_b"} {
		c, err := store.GetCustomer(ctx, id)
		require.NoError(t, err)
		assert.Equal(recordstore.CustomerBanned, c.Status)
		assert.Equal(100, c.RiskScore)
	}

	// idempotent: banning again yields the same terminal state
	n, err = adm.BanCustomers(ctx, []string{"cust_a", "cust_b"})
	assert.NoError(err)
	assert.Equal(2, n)
	c, err := store.GetCustomer(ctx, "cust_a")
	require.NoError(t, err)
	assert.Equal(recordstore.CustomerBanned, c.Status)
	assert.Equal(100, c.RiskScore)
}

func TestUnlockAgentDelegates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	adm, store := adminTestFixture(t)
	require.NoError(t, store.UpdateAgent(ctx, "agent_007", func(a *recordstore.Agent) error {
		a.Status = recordstore.AgentLocked
		a.Strikes = 3
		return nil
	}))

	assert.NoError(adm.UnlockAgent(ctx, "agent_007"))
	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Equal(recordstore.AgentActive, agent.Status)
	assert.Equal(0, agent.Strikes)

	assert.ErrorIs(adm.UnlockAgent(ctx, "agent_999"), recordstore.ErrNotFound)
}
