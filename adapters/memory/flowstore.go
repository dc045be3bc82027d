package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/ports"
)

// FlowStore keeps payment flow sessions in process memory. Sessions idle
// longer than the TTL are dropped lazily on access.
type FlowStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	flows map[string]flowEntry

	// Striped flow locks; each channel holds one token while locked.
	locks [64]chan struct{}
}

type flowEntry struct {
	flow    payflow.Flow
	touched time.Time
}

// NewFlowStore creates a flow store. A zero ttl keeps flows forever.
func NewFlowStore(ttl time.Duration, clock ports.Clock) *FlowStore {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	s := &FlowStore{ttl: ttl, now: now, flows: make(map[string]flowEntry)}
	for i := range s.locks {
		s.locks[i] = make(chan struct{}, 1)
	}
	return s
}

// Get retrieves a flow by ID.
func (s *FlowStore) Get(ctx context.Context, id string) (payflow.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.flows[id]
	if !ok {
		return payflow.Flow{}, ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(e.touched) > s.ttl {
		delete(s.flows, id)
		return payflow.Flow{}, ErrNotFound
	}
	return e.flow, nil
}

// Save creates or replaces a flow.
func (s *FlowStore) Save(ctx context.Context, f payflow.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.ID] = flowEntry{flow: f, touched: s.now()}
	return nil
}

// Delete removes a flow.
func (s *FlowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, id)
	return nil
}

// Lock takes the flow lock. Locks are process local.
func (s *FlowStore) Lock(ctx context.Context, id string) (func(), error) {
	h := fnv.New32a()
	h.Write([]byte(id))
	sem := s.locks[h.Sum32()%uint32(len(s.locks))]

	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", ports.ErrFlowBusy, id)
	}
}

// Ensure interface compliance.
var _ ports.FlowStore = (*FlowStore)(nil)
