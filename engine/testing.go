package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/reguflow/aegis/oracle"
	"github.com/reguflow/aegis/recordstore"
)

// Scripted oracle for tests. Zero value approves everything with a canned
// reply; set Decision/Reply/Err to steer it.
type StubOracle struct {
	Decision *oracle.Classification
	Reply    string
	Err      error

	ClassifyCalls int
	ReplyCalls    int
}

var _ PolicyOracle = (*StubOracle)(nil)

func (o *StubOracle) Classify(ctx context.Context, message, customerName string) (*oracle.Classification, error) {
	o.ClassifyCalls++
	if o.Err != nil {
		return nil, o.Err
	}
	if o.Decision != nil {
		return o.Decision, nil
	}
	return &oracle.Classification{IsViolation: false, Severity: oracle.SeverityNone}, nil
}

func (o *StubOracle) SimulateReply(ctx context.Context, agentMessage, customerName string) (string, error) {
	o.ReplyCalls++
	if o.Err != nil {
		return "", o.Err
	}
	if o.Reply != "" {
		return o.Reply, nil
	}
	return "Sounds good, thanks!", nil
}

// Engine wired to a fresh MemStore with one agent (agent_007, two open
// tickets) and a stub oracle. Intentionally exported, for use in other
// packages.
func EngineTestFixture() (*Engine, *recordstore.MemStore, *StubOracle) {
	store := recordstore.NewMemStore()
	_ = store.PutAgent(context.Background(), &recordstore.Agent{
		ID:     "agent_007",
		Name:   "Frances (Agent)",
		Status: recordstore.AgentActive,
		Tickets: map[string]*recordstore.Ticket{
			"ticket_101": {CustomerName: "Alice (VIP)", RiskScore: 10},
			"ticket_102": {CustomerName: "Bob (Smurf)", RiskScore: 88},
		},
	})
	stub := &StubOracle{}
	eng := &Engine{
		Logger:        slog.Default(),
		Agents:        store,
		Oracle:        stub,
		Fallback:      FailClosed,
		OracleTimeout: time.Second,
	}
	return eng, store, stub
}
