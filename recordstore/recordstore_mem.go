package recordstore

import (
	"context"
	"sort"
	"sync"
)

type agentEntry struct {
	mu    sync.Mutex
	agent *Agent
}

// In-process store, for testing and single-node deployments. Each agent
// record carries its own lock, so submits against different agents do not
// contend with each other.
type MemStore struct {
	mu        sync.RWMutex
	agents    map[string]*agentEntry
	cmu       sync.RWMutex
	customers map[string]*Customer
}

var _ AgentStore = (*MemStore)(nil)
var _ CustomerStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		agents:    make(map[string]*agentEntry),
		customers: make(map[string]*Customer),
	}
}

func (s *MemStore) agentEntry(id string) *agentEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents[id]
}

func (s *MemStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	e := s.agentEntry(id)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agent.Clone(), nil
}

func (s *MemStore) ListAgents(ctx context.Context) ([]*Agent, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	out := make([]*Agent, 0, len(ids))
	for _, id := range ids {
		agent, err := s.GetAgent(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, agent)
	}
	return out, nil
}

func (s *MemStore) UpdateAgent(ctx context.Context, id string, mutate func(*Agent) error) error {
	e := s.agentEntry(id)
	if e == nil {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	// mutate a clone, and only swap it in on success, so a failed callback
	// leaves no partial write behind
	next := e.agent.Clone()
	if err := mutate(next); err != nil {
		return err
	}
	e.agent = next
	return nil
}

func (s *MemStore) PutAgent(ctx context.Context, agent *Agent) error {
	s.mu.Lock()
	e, ok := s.agents[agent.ID]
	if !ok {
		s.agents[agent.ID] = &agentEntry{agent: agent.Clone()}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// keep the existing entry so an in-flight update commits through the
	// same lock instead of into a detached record
	e.mu.Lock()
	e.agent = agent.Clone()
	e.mu.Unlock()
	return nil
}

func (s *MemStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	s.cmu.RLock()
	defer s.cmu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *MemStore) ListCustomers(ctx context.Context) ([]*Customer, error) {
	s.cmu.RLock()
	defer s.cmu.RUnlock()
	ids := make([]string, 0, len(s.customers))
	for id := range s.customers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Customer, 0, len(ids))
	for _, id := range ids {
		c := *s.customers[id]
		out = append(out, &c)
	}
	return out, nil
}

func (s *MemStore) UpdateCustomers(ctx context.Context, ids []string, mutate func(*Customer) error) (int, error) {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	// stage every mutation before committing any of them
	staged := make(map[string]*Customer, len(ids))
	for _, id := range ids {
		cur, ok := s.customers[id]
		if !ok {
			continue
		}
		if _, dupe := staged[id]; dupe {
			continue
		}
		next := *cur
		if err := mutate(&next); err != nil {
			return 0, err
		}
		staged[id] = &next
	}
	for id, c := range staged {
		s.customers[id] = c
	}
	return len(staged), nil
}

func (s *MemStore) PutCustomer(ctx context.Context, customer *Customer) error {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	c := *customer
	s.customers[customer.ID] = &c
	return nil
}
