package memory

import (
	"context"
	"sync"

	"github.com/airrecover/storefront/internal/domain"
)

// cartStoreInMemory хранит сериализованную корзину в памяти (для тестов и dev-режима CLI).
type cartStoreInMemory struct {
	mu    sync.RWMutex
	items map[string][]byte
	key   string
}

// NewCartStore создаёт in-memory реализацию CartStore под ключом airrecover_cart.
func NewCartStore() domain.CartStore {
	return NewCartStoreWithKey(domain.CartStorageKey)
}

// NewCartStoreWithKey создаёт in-memory CartStore с произвольным ключом.
func NewCartStoreWithKey(key string) domain.CartStore {
	return &cartStoreInMemory{
		items: make(map[string][]byte),
		key:   key,
	}
}

func (s *cartStoreInMemory) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.items[s.key]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *cartStoreInMemory) Set(ctx context.Context, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[s.key] = append([]byte(nil), raw...)
	return nil
}

func (s *cartStoreInMemory) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, s.key)
	return nil
}

var _ domain.CartStore = (*cartStoreInMemory)(nil)
