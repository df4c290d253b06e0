package memory

import (
	"context"
	"sort"
	"sync"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Wallet // keyed by address
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		data: make(map[string]*domain.Wallet),
	}
}

// Create adds a new wallet. Returns ErrDuplicateKey if address exists.
func (s *WalletStore) Create(_ context.Context, w *domain.Wallet) error {
	if w == nil || w.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[w.Address]; exists {
		return storage.ErrDuplicateKey
	}

	walletCopy := *w
	s.data[w.Address] = &walletCopy
	return nil
}

// EnsureExists creates the wallet if absent.
func (s *WalletStore) EnsureExists(_ context.Context, address string, seenAt int64) (bool, error) {
	if address == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[address]; exists {
		return false, nil
	}
	s.data[address] = &domain.Wallet{Address: address, LastUpdate: seenAt}
	return true, nil
}

// GetByAddress retrieves a wallet. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByAddress(_ context.Context, address string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	walletCopy := *w
	return &walletCopy, nil
}

// SetCurrentSnapshot repoints the wallet's current snapshot unless a newer
// one is already current.
func (s *WalletStore) SetCurrentSnapshot(_ context.Context, address, snapshotID string, loadedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.data[address]
	if !exists {
		return storage.ErrNotFound
	}
	if w.CurrentSnapshotID != "" && w.CurrentSnapshotAt > loadedAt {
		return nil
	}
	w.CurrentSnapshotID = snapshotID
	w.CurrentSnapshotAt = loadedAt
	return nil
}

// ListAddresses returns every stored wallet address, sorted.
func (s *WalletStore) ListAddresses(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addresses := make([]string, 0, len(s.data))
	for addr := range s.data {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)
	return addresses, nil
}

// Len returns the number of stored wallets.
func (s *WalletStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ storage.WalletStore = (*WalletStore)(nil)
