package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

var redisAgentPrefix string = "agent/"
var redisCustomerPrefix string = "customer/"

// index sets, so List* doesn't have to SCAN the keyspace
var redisAgentIndex string = "agents"
var redisCustomerIndex string = "customers"

// number of optimistic-lock retries before an update gives up
const redisMaxRetries = 25

// Redis-backed store. Records are JSON values; the atomic read-modify-write
// required by AgentStore/CustomerStore is implemented as a WATCH-based
// compare-and-swap loop.
type RedisStore struct {
	Client *redis.Client
}

var _ AgentStore = (*RedisStore)(nil)
var _ CustomerStore = (*RedisStore)(nil)

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisStore{Client: rdb}, nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, out any) error {
	raw, err := s.Client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// CAS loop shared by agent and customer updates.
func (s *RedisStore) casUpdate(ctx context.Context, key string, apply func(tx *redis.Tx) (any, error)) error {
	txf := func(tx *redis.Tx) error {
		next, err := apply(tx)
		if err != nil {
			return err
		}
		buf, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, 0)
			return nil
		})
		return err
	}
	for i := 0; i < redisMaxRetries; i++ {
		err := s.Client.Watch(ctx, txf, key)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return fmt.Errorf("update contention on key: %s", key)
}

func (s *RedisStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	var agent Agent
	if err := s.getJSON(ctx, redisAgentPrefix+id, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *RedisStore) ListAgents(ctx context.Context) ([]*Agent, error) {
	ids, err := s.Client.SMembers(ctx, redisAgentIndex).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	out := make([]*Agent, 0, len(ids))
	for _, id := range ids {
		agent, err := s.GetAgent(ctx, id)
		if err == ErrNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		out = append(out, agent)
	}
	return out, nil
}

func (s *RedisStore) UpdateAgent(ctx context.Context, id string, mutate func(*Agent) error) error {
	key := redisAgentPrefix + id
	return s.casUpdate(ctx, key, func(tx *redis.Tx) (any, error) {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil, ErrNotFound
		} else if err != nil {
			return nil, err
		}
		var agent Agent
		if err := json.Unmarshal(raw, &agent); err != nil {
			return nil, err
		}
		if err := mutate(&agent); err != nil {
			return nil, err
		}
		return &agent, nil
	})
}

func (s *RedisStore) PutAgent(ctx context.Context, agent *Agent) error {
	buf, err := json.Marshal(agent)
	if err != nil {
		return err
	}
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisAgentPrefix+agent.ID, buf, 0)
		pipe.SAdd(ctx, redisAgentIndex, agent.ID)
		return nil
	})
	return err
}

func (s *RedisStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var customer Customer
	if err := s.getJSON(ctx, redisCustomerPrefix+id, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *RedisStore) ListCustomers(ctx context.Context) ([]*Customer, error) {
	ids, err := s.Client.SMembers(ctx, redisCustomerIndex).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	out := make([]*Customer, 0, len(ids))
	for _, id := range ids {
		customer, err := s.GetCustomer(ctx, id)
		if err == ErrNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		out = append(out, customer)
	}
	return out, nil
}

func (s *RedisStore) UpdateCustomers(ctx context.Context, ids []string, mutate func(*Customer) error) (int, error) {
	keys := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, redisCustomerPrefix+id)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	// the whole batch is one WATCHed transaction: every mutation is staged
	// first, then committed in a single MULTI/EXEC, so the batch lands or
	// fails as one unit
	count := 0
	txf := func(tx *redis.Tx) error {
		count = 0
		staged := make(map[string][]byte, len(keys))
		for _, key := range keys {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				// unknown IDs are silently skipped
				continue
			} else if err != nil {
				return err
			}
			var customer Customer
			if err := json.Unmarshal(raw, &customer); err != nil {
				return err
			}
			if err := mutate(&customer); err != nil {
				return err
			}
			buf, err := json.Marshal(&customer)
			if err != nil {
				return err
			}
			staged[key] = buf
		}
		if len(staged) == 0 {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, buf := range staged {
				pipe.Set(ctx, key, buf, 0)
			}
			return nil
		})
		if err != nil {
			return err
		}
		count = len(staged)
		return nil
	}
	for i := 0; i < redisMaxRetries; i++ {
		err := s.Client.Watch(ctx, txf, keys...)
		if err == redis.TxFailedErr {
			continue
		} else if err != nil {
			return 0, err
		}
		return count, nil
	}
	return 0, fmt.Errorf("update contention on customer batch")
}

func (s *RedisStore) PutCustomer(ctx context.Context, customer *Customer) error {
	buf, err := json.Marshal(customer)
	if err != nil {
		return err
	}
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisCustomerPrefix+customer.ID, buf, 0)
		pipe.SAdd(ctx, redisCustomerIndex, customer.ID)
		return nil
	})
	return err
}
