package recordstore

import (
	"context"
	"errors"
)

// Returned for lookups and updates against unknown agent or customer IDs.
var ErrNotFound = errors.New("record not found")

type AgentStatus string

const (
	AgentActive AgentStatus = "ACTIVE"
	AgentLocked AgentStatus = "LOCKED"
)

type CustomerStatus string

const (
	CustomerActive  CustomerStatus = "ACTIVE"
	CustomerFlagged CustomerStatus = "FLAGGED"
	CustomerBanned  CustomerStatus = "BANNED"
)

type MessageRole string

const (
	RoleAgent    MessageRole = "agent"
	RoleCustomer MessageRole = "customer"
)

// A single chat message within a ticket. Immutable once appended; ticket
// history is append-only.
type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Text    string      `json:"text"`
	Blocked bool        `json:"blocked,omitempty"`
}

type Ticket struct {
	CustomerName string        `json:"customer_name"`
	RiskScore    int           `json:"risk_score"`
	History      []ChatMessage `json:"history"`
}

// Support agent record. Status and Strikes are owned by the compliance state
// machine; Transcript and ticket histories are owned by the conversation
// ledger. All of them only ever change inside a single atomic UpdateAgent.
type Agent struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Status     AgentStatus        `json:"status"`
	Strikes    int                `json:"strikes"`
	History    []string           `json:"history"`
	Transcript []string           `json:"transcript"`
	Tickets    map[string]*Ticket `json:"tickets"`
}

type Customer struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	IP                string         `json:"ip"`
	Wallet            string         `json:"wallet"`
	RiskScore         int            `json:"risk_score"`
	Status            CustomerStatus `json:"status"`
	LastLoginLocation string         `json:"last_login_location"`
	LastLoginTime     string         `json:"last_login_time"`
	DepositAmount     float64        `json:"deposit_amount"`
}

func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	out.History = append([]ChatMessage{}, t.History...)
	return &out
}

func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	out := *a
	out.History = append([]string{}, a.History...)
	out.Transcript = append([]string{}, a.Transcript...)
	out.Tickets = make(map[string]*Ticket, len(a.Tickets))
	for id, tk := range a.Tickets {
		out.Tickets[id] = tk.Clone()
	}
	return &out
}

// Persistence for agent records. Implementations must serialize updates to a
// single agent (the mutation callback is one atomic read-modify-write), while
// allowing updates to different agents to proceed concurrently. If the
// callback returns an error the record is left unchanged.
type AgentStore interface {
	GetAgent(ctx context.Context, id string) (*Agent, error)
	ListAgents(ctx context.Context) ([]*Agent, error)
	UpdateAgent(ctx context.Context, id string, mutate func(*Agent) error) error
	PutAgent(ctx context.Context, agent *Agent) error
}

// Persistence for customer records. ListCustomers returns a point-in-time
// snapshot in stable ID order. UpdateCustomers applies the callback to each
// listed ID that exists, skipping unknown IDs, and reports how many records
// were written.
type CustomerStore interface {
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
	UpdateCustomers(ctx context.Context, ids []string, mutate func(*Customer) error) (int, error)
	PutCustomer(ctx context.Context, customer *Customer) error
}
