package fakedata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reguflow/aegis/fraud"
	"github.com/reguflow/aegis/recordstore"
)

func TestGenerateDeterministic(t *testing.T) {
	assert := assert.New(t)

	first := GenerateCustomers(42, 50)
	second := GenerateCustomers(42, 50)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(*first[i], *second[i])
	}
}

// The seeded population must light up all four detectors.
func TestSeededSignaturesDetected(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := recordstore.NewMemStore()
	require.NoError(t, Seed(ctx, store, store, 42, 100))

	agent, err := store.GetAgent(ctx, "agent_007")
	require.NoError(t, err)
	assert.Len(agent.Tickets, 3)

	listed, err := store.ListCustomers(ctx)
	require.NoError(t, err)

	var snapshot []recordstore.Customer
	for _, c := range listed {
		if c.Status == recordstore.CustomerBanned {
			continue
		}
		snapshot = append(snapshot, *c)
	}

	clusters := fraud.Scan(snapshot)
	require.Len(t, clusters, 4)
	assert.Equal("Syndicate Ring (Shared IP)", clusters[0].Title)
	assert.Len(clusters[0].Members, 5)
	assert.Equal("Structuring / Smurfing Ring", clusters[1].Title)
	assert.Len(clusters[1].Members, 4)
	assert.Equal("Impossible Travel Event", clusters[2].Title)
	assert.Equal("High-Frequency Botnet", clusters[3].Title)
	assert.Len(clusters[3].Members, 6)
}
