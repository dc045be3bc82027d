package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/ports"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	flowKeyPrefix = "installpay:flow:"
	lockKeyPrefix = "installpay:flowlock:"

	// DefaultLockTTL bounds how long a crashed holder can block a flow.
	DefaultLockTTL = 30 * time.Second
	lockPoll       = 25 * time.Millisecond
)

// releaseLock deletes the lock only while it still carries our token, so an
// expired holder cannot release a lock taken over by someone else.
const releaseLock = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// FlowStore keeps payment flow sessions in Redis as JSON. Every Save
// refreshes the TTL, so idle sessions expire.
type FlowStore struct {
	client  goredis.Cmdable
	ttl     time.Duration
	lockTTL time.Duration
}

// NewFlowStore creates a Redis flow store. A zero ttl keeps flows forever.
func NewFlowStore(client goredis.Cmdable, ttl time.Duration) *FlowStore {
	return &FlowStore{client: client, ttl: ttl, lockTTL: DefaultLockTTL}
}

// WithLockTTL sets the expiry of flow locks. It must exceed the slowest
// provider call made while a flow is locked.
func (s *FlowStore) WithLockTTL(d time.Duration) *FlowStore {
	if d > 0 {
		s.lockTTL = d
	}
	return s
}

func flowKey(id string) string {
	return flowKeyPrefix + id
}

func lockKey(id string) string {
	return lockKeyPrefix + id
}

// Get retrieves a flow by ID.
func (s *FlowStore) Get(ctx context.Context, id string) (payflow.Flow, error) {
	raw, err := s.client.Get(ctx, flowKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return payflow.Flow{}, ports.ErrNotFound
		}
		return payflow.Flow{}, fmt.Errorf("get flow %s: %w", id, err)
	}

	var f payflow.Flow
	if err := json.Unmarshal(raw, &f); err != nil {
		return payflow.Flow{}, fmt.Errorf("decode flow %s: %w", id, err)
	}
	return f, nil
}

// Save creates or replaces a flow.
func (s *FlowStore) Save(ctx context.Context, f payflow.Flow) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode flow %s: %w", f.ID, err)
	}
	return s.client.Set(ctx, flowKey(f.ID), raw, s.ttl).Err()
}

// Delete removes a flow.
func (s *FlowStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, flowKey(id)).Err()
}

// Lock takes the flow lock with SET NX and a random token, polling until it
// is free or ctx is done. The lock expires after the lock TTL even if the
// holder never releases it.
func (s *FlowStore) Lock(ctx context.Context, id string) (func(), error) {
	key := lockKey(id)
	token := uuid.NewString()

	ticker := time.NewTicker(lockPoll)
	defer ticker.Stop()
	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ports.ErrFlowBusy, id)
			}
			return nil, fmt.Errorf("lock flow %s: %w", id, err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				s.client.Eval(ctx, releaseLock, []string{key}, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ports.ErrFlowBusy, id)
		case <-ticker.C:
		}
	}
}

// Ensure interface compliance.
var _ ports.FlowStore = (*FlowStore)(nil)
