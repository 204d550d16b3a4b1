package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/airrecover/storefront/internal/domain"
)

type cartStore struct {
	db     *sql.DB
	origin string
	key    string
}

// NewCartStore возвращает CartStore для origin магазина (например, "http://localhost:3000").
func NewCartStore(store *Store, origin string) domain.CartStore {
	return &cartStore{db: store.db, origin: origin, key: domain.CartStorageKey}
}

func (s *cartStore) Get(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM local_storage WHERE origin = ? AND key = ?`,
		s.origin, s.key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return raw, nil
}

func (s *cartStore) Set(ctx context.Context, raw []byte) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_storage (origin, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (origin, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.origin, s.key, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set cart: %w", err)
	}
	return nil
}

func (s *cartStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM local_storage WHERE origin = ? AND key = ?`,
		s.origin, s.key,
	); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

var _ domain.CartStore = (*cartStore)(nil)
