package memory

import (
	"context"
	"sort"
	"sync"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

// ContractStore is an in-memory implementation of storage.ContractStore.
type ContractStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Contract // keyed by address
}

// NewContractStore creates a new in-memory contract store.
func NewContractStore() *ContractStore {
	return &ContractStore{
		data: make(map[string]*domain.Contract),
	}
}

// Upsert creates or replaces the contract keyed by address.
func (s *ContractStore) Upsert(_ context.Context, c *domain.Contract) error {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[c.Address] = copyContract(c)
	return nil
}

// GetByAddress retrieves a contract. Returns ErrNotFound if not exists.
func (s *ContractStore) GetByAddress(_ context.Context, address string) (*domain.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyContract(c), nil
}

// ListAddresses returns every stored contract address, sorted.
func (s *ContractStore) ListAddresses(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addresses := make([]string, 0, len(s.data))
	for addr := range s.data {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)
	return addresses, nil
}

// Len returns the number of stored contracts.
func (s *ContractStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func copyContract(c *domain.Contract) *domain.Contract {
	out := *c
	if c.Token != nil {
		out.Token = append([]byte(nil), c.Token...)
	}
	return &out
}

var _ storage.ContractStore = (*ContractStore)(nil)
