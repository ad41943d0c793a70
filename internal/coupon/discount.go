package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ActiveDiscount is the session-scoped percentage discount activated by a
// percent coupon and consumed downstream by price computation.
type ActiveDiscount struct {
	Code    string
	Percent decimal.Decimal
}

// DiscountStore holds at most one active discount code per user. It is an
// injected session capability, not ambient state: activating a new code
// replaces the old one, and validating any non-percent coupon clears it.
type DiscountStore interface {
	Activate(ctx context.Context, userID uint64, d ActiveDiscount) error
	Active(ctx context.Context, userID uint64) (ActiveDiscount, bool, error)
	Clear(ctx context.Context, userID uint64) error
}

// discountTTL bounds how long an unconsumed discount code stays active.
const discountTTL = 2 * time.Hour

// RedisDiscountStore keeps active discounts in Redis so every node of a
// multi-node deployment sees the same session state.
type RedisDiscountStore struct {
	client *redis.Client
}

// NewRedisDiscountStore constructs a RedisDiscountStore.
func NewRedisDiscountStore(client *redis.Client) *RedisDiscountStore {
	return &RedisDiscountStore{client: client}
}

func discountKey(userID uint64) string {
	return fmt.Sprintf("wallet:discount:%d", userID)
}

// Activate stores the discount for the user, replacing any previous one.
func (s *RedisDiscountStore) Activate(ctx context.Context, userID uint64, d ActiveDiscount) error {
	value := d.Code + "|" + d.Percent.String()
	return s.client.Set(ctx, discountKey(userID), value, discountTTL).Err()
}

// Active returns the user's active discount, if any.
func (s *RedisDiscountStore) Active(ctx context.Context, userID uint64) (ActiveDiscount, bool, error) {
	value, errGet := s.client.Get(ctx, discountKey(userID)).Result()
	if errGet != nil {
		if errors.Is(errGet, redis.Nil) {
			return ActiveDiscount{}, false, nil
		}
		return ActiveDiscount{}, false, errGet
	}
	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		return ActiveDiscount{}, false, fmt.Errorf("coupon: malformed discount entry %q", value)
	}
	percent, errParse := decimal.NewFromString(parts[1])
	if errParse != nil {
		return ActiveDiscount{}, false, errParse
	}
	return ActiveDiscount{Code: parts[0], Percent: percent}, true, nil
}

// Clear drops the user's active discount.
func (s *RedisDiscountStore) Clear(ctx context.Context, userID uint64) error {
	return s.client.Del(ctx, discountKey(userID)).Err()
}

// MemoryDiscountStore keeps active discounts in process memory, for tests and
// single-node deployments without Redis.
type MemoryDiscountStore struct {
	mu     sync.Mutex
	active map[uint64]ActiveDiscount
}

// NewMemoryDiscountStore constructs a MemoryDiscountStore.
func NewMemoryDiscountStore() *MemoryDiscountStore {
	return &MemoryDiscountStore{active: make(map[uint64]ActiveDiscount)}
}

// Activate stores the discount for the user, replacing any previous one.
func (s *MemoryDiscountStore) Activate(_ context.Context, userID uint64, d ActiveDiscount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[userID] = d
	return nil
}

// Active returns the user's active discount, if any.
func (s *MemoryDiscountStore) Active(_ context.Context, userID uint64) (ActiveDiscount, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.active[userID]
	return d, ok, nil
}

// Clear drops the user's active discount.
func (s *MemoryDiscountStore) Clear(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, userID)
	return nil
}
