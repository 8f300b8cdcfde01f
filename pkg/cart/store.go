package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// KV is the slice of the Redis repository the cart store needs.
type KV interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Del(ctx context.Context, keys ...string) error
}

// Store persists one cart per user as a single JSON value. Writes replace the
// whole value, which gives last-writer-wins across concurrent sessions.
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

// Get returns the user's cart, empty if none has been written yet.
func (s *Store) Get(ctx context.Context, userID string) (*Cart, error) {
	var c Cart
	err := s.kv.GetJSON(ctx, cartKey(userID), &c)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Cart{}, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &c, nil
}

// Save writes the whole cart back. Carts do not expire.
func (s *Store) Save(ctx context.Context, userID string, c *Cart) error {
	if err := s.kv.SetJSON(ctx, cartKey(userID), c, 0); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.kv.Del(ctx, cartKey(userID)); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
