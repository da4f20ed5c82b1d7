package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/NickolasKemp/ordify/internal/domain"
)

// Sessions keeps live checkout flows keyed by an opaque id handed to the
// storefront. A session lives until the client abandons it.
type Sessions struct {
	service *Service

	mu    sync.Mutex
	flows map[string]*Flow
}

func NewSessions(service *Service) *Sessions {
	return &Sessions{service: service, flows: make(map[string]*Flow)}
}

// Start opens a flow for the product and returns its session id.
func (s *Sessions) Start(ctx context.Context, productID string) (string, *Flow, error) {
	flow, err := NewFlow(ctx, s.service, productID)
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.flows[id] = flow
	s.mu.Unlock()
	return id, flow, nil
}

func (s *Sessions) Get(id string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.flows[id]
	if !ok {
		return nil, fmt.Errorf("%w: checkout session %q", domain.ErrNotFound, id)
	}
	return flow, nil
}

// Release forgets a session. Unknown ids are a no-op.
func (s *Sessions) Release(id string) {
	s.mu.Lock()
	delete(s.flows, id)
	s.mu.Unlock()
}
