package sales

import (
	"context"
	"errors"
	"sync"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
)

var (
	ErrNotFound  = errors.New("sale not found")
	ErrDuplicate = errors.New("sale already recorded")
)

// Store records committed transactions so receipts can be reprinted.
type Store interface {
	Save(ctx context.Context, tx checkout.Transaction) error
	Get(ctx context.Context, id string) (checkout.Transaction, error)
	// Recent returns up to limit transactions, newest first.
	Recent(ctx context.Context, limit int) ([]checkout.Transaction, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]checkout.Transaction
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]checkout.Transaction)}
}

func (s *MemoryStore) Save(_ context.Context, tx checkout.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[tx.ID]; ok {
		return ErrDuplicate
	}
	tx.Lines = append([]checkout.LineSnapshot(nil), tx.Lines...)
	s.byID[tx.ID] = tx
	s.order = append(s.order, tx.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (checkout.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.byID[id]
	if !ok {
		return checkout.Transaction{}, ErrNotFound
	}
	tx.Lines = append([]checkout.LineSnapshot(nil), tx.Lines...)
	return tx, nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]checkout.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]checkout.Transaction, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out, nil
}
