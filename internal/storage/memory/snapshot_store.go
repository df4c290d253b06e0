package memory

import (
	"context"
	"sort"
	"sync"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu       sync.RWMutex
	byID     map[string]*domain.WalletSnapshot
	byWallet map[string][]*domain.WalletSnapshot // insertion order
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		byID:     make(map[string]*domain.WalletSnapshot),
		byWallet: make(map[string][]*domain.WalletSnapshot),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.WalletSnapshot) error {
	if snap == nil || snap.ID == "" || snap.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[snap.ID]; exists {
		return storage.ErrDuplicateKey
	}

	snapCopy := copySnapshot(snap)
	s.byID[snap.ID] = snapCopy
	s.byWallet[snap.WalletAddress] = append(s.byWallet[snap.WalletAddress], snapCopy)
	return nil
}

// GetByWallet retrieves all snapshots of a wallet, ordered by loaded_at ASC.
func (s *SnapshotStore) GetByWallet(_ context.Context, address string) ([]*domain.WalletSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byWallet[address]
	result := make([]*domain.WalletSnapshot, 0, len(stored))
	for _, snap := range stored {
		result = append(result, copySnapshot(snap))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LoadedAt < result[j].LoadedAt
	})
	return result, nil
}

func copySnapshot(snap *domain.WalletSnapshot) *domain.WalletSnapshot {
	out := *snap
	if snap.Tokens != nil {
		out.Tokens = make(map[string]domain.WalletToken, len(snap.Tokens))
		for k, v := range snap.Tokens {
			out.Tokens[k] = v
		}
	}
	return &out
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
