// Synthetic population for demos and heavier tests: a baseline of honest
// customers with each of the four fraud signatures injected on top, plus a
// demo agent with open tickets.
package fakedata

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/reguflow/aegis/recordstore"
)

const (
	syndicateIP     = "192.168.10.5"
	botnetTimestamp = "12:00:01.005 PM"
)

// Deterministic for a given seed.
func GenerateCustomers(seed int64, baseline int) []*recordstore.Customer {
	faker := gofakeit.New(seed)
	rng := rand.New(rand.NewSource(seed))

	var out []*recordstore.Customer

	wallet := func() string {
		return fmt.Sprintf("0x%010x", rng.Int63())
	}

	// honest users, the noise
	for i := 0; i < baseline; i++ {
		out = append(out, &recordstore.Customer{
			ID:                fmt.Sprintf("cust_%04d", i),
			Name:              faker.Name(),
			Email:             faker.Email(),
			IP:                faker.IPv4Address(),
			Wallet:            wallet(),
			RiskScore:         1 + rng.Intn(20),
			Status:            recordstore.CustomerActive,
			LastLoginLocation: "London, UK",
			LastLoginTime:     fmt.Sprintf("10:%02d:%02d AM", (i/60)%60, i%60),
			DepositAmount:     100 + rng.Float64()*4900,
		})
	}

	// the IP syndicate: five accounts behind one address
	for i := 0; i < 5; i++ {
		out = append(out, &recordstore.Customer{
			ID:                fmt.Sprintf("bad_ip_%d", i),
			Name:              fmt.Sprintf("Syndicate Mbr %d", i),
			Email:             faker.Email(),
			IP:                syndicateIP,
			Wallet:            wallet(),
			RiskScore:         95,
			Status:            recordstore.CustomerFlagged,
			LastLoginLocation: "Lagos, NG",
			LastLoginTime:     "09:00 AM",
			DepositAmount:     500,
		})
	}

	// the smurfs: distinct IPs, deposits just under the threshold
	for i := 0; i < 4; i++ {
		out = append(out, &recordstore.Customer{
			ID:                fmt.Sprintf("smurf_%d", i),
			Name:              fmt.Sprintf("Smurf Acct %d", i),
			Email:             faker.Email(),
			IP:                faker.IPv4Address(),
			Wallet:            wallet(),
			RiskScore:         88,
			Status:            recordstore.CustomerFlagged,
			LastLoginLocation: "Berlin, DE",
			LastLoginTime:     "11:00 AM",
			DepositAmount:     float64(9800 + rng.Intn(190)),
		})
	}

	// the impossible traveler
	out = append(out, &recordstore.Customer{
		ID:                "travel_hacker",
		Name:              "Hacked Account (Travel)",
		Email:             faker.Email(),
		IP:                faker.IPv4Address(),
		Wallet:            wallet(),
		RiskScore:         99,
		Status:            recordstore.CustomerFlagged,
		LastLoginLocation: "Lagos -> London (5min)",
		LastLoginTime:     "09:05 AM",
		DepositAmount:     2000,
	})

	// the bot swarm: six logins on the same millisecond
	for i := 0; i < 6; i++ {
		out = append(out, &recordstore.Customer{
			ID:                fmt.Sprintf("bot_%d", i),
			Name:              fmt.Sprintf("Bot %d", i),
			Email:             faker.Email(),
			IP:                faker.IPv4Address(),
			Wallet:            wallet(),
			RiskScore:         92,
			Status:            recordstore.CustomerFlagged,
			LastLoginLocation: "Unknown Proxy",
			LastLoginTime:     botnetTimestamp,
			DepositAmount:     100,
		})
	}

	return out
}

func GenerateAgents() []*recordstore.Agent {
	return []*recordstore.Agent{
		{
			ID:     "agent_007",
			Name:   "Frances (Agent)",
			Status: recordstore.AgentActive,
			Tickets: map[string]*recordstore.Ticket{
				"ticket_101": {CustomerName: "Alice (VIP)", RiskScore: 10},
				"ticket_102": {CustomerName: "Bob (Smurf)", RiskScore: 88},
				"ticket_103": {CustomerName: "Charlie (Hacked)", RiskScore: 99},
			},
		},
	}
}

// Writes a full synthetic population into the stores.
func Seed(ctx context.Context, agents recordstore.AgentStore, customers recordstore.CustomerStore, seed int64, baseline int) error {
	for _, a := range GenerateAgents() {
		if err := agents.PutAgent(ctx, a); err != nil {
			return fmt.Errorf("seeding agent %s: %w", a.ID, err)
		}
	}
	for _, c := range GenerateCustomers(seed, baseline) {
		if err := customers.PutCustomer(ctx, c); err != nil {
			return fmt.Errorf("seeding customer %s: %w", c.ID, err)
		}
	}
	return nil
}
