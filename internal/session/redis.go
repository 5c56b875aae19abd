package session

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/internal/domain"
)

const keyPrefix = "storefront:session:"

// RedisStore keeps each anonymous cart in a hash of productId to quantity
// and each wishlist in a sorted set scored by insertion time. Both keys
// expire ttl after the last write.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func cartKey(sid string) string     { return keyPrefix + sid + ":cart" }
func wishlistKey(sid string) string { return keyPrefix + sid + ":wishlist" }

func parseCart(m map[string]string) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(m))
	for pid, v := range m {
		q, err := strconv.Atoi(v)
		if err != nil || q < 1 {
			continue
		}
		lines = append(lines, domain.CartLine{ProductID: pid, Quantity: q})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

func (s *RedisStore) Cart(ctx context.Context, sid string) ([]domain.CartLine, error) {
	m, err := s.rdb.HGetAll(ctx, cartKey(sid)).Result()
	if err != nil {
		return nil, fmt.Errorf("read session cart: %w", err)
	}
	return parseCart(m), nil
}

func (s *RedisStore) AddToCart(ctx context.Context, sid, productID string, qty int) error {
	key := cartKey(sid)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, productID, int64(domain.ClampQuantity(qty)))
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("add to session cart: %w", err)
	}
	return nil
}

func (s *RedisStore) SetCartQuantity(ctx context.Context, sid, productID string, qty int) error {
	key := cartKey(sid)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, productID, domain.ClampQuantity(qty))
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update session cart: %w", err)
	}
	return nil
}

func (s *RedisStore) RemoveFromCart(ctx context.Context, sid, productID string) error {
	if err := s.rdb.HDel(ctx, cartKey(sid), productID).Err(); err != nil {
		return fmt.Errorf("remove from session cart: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearCart(ctx context.Context, sid string) error {
	if err := s.rdb.Del(ctx, cartKey(sid)).Err(); err != nil {
		return fmt.Errorf("clear session cart: %w", err)
	}
	return nil
}

func (s *RedisStore) TakeCart(ctx context.Context, sid string) ([]domain.CartLine, error) {
	key := cartKey(sid)
	var get *redis.MapStringStringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGetAll(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("take session cart: %w", err)
	}
	return parseCart(get.Val()), nil
}

func (s *RedisStore) Wishlist(ctx context.Context, sid string) ([]string, error) {
	ids, err := s.rdb.ZRange(ctx, wishlistKey(sid), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read session wishlist: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *RedisStore) AddToWishlist(ctx context.Context, sid, productID string) error {
	key := wishlistKey(sid)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, key, redis.Z{Score: float64(s.now().UnixNano()), Member: productID})
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("add to session wishlist: %w", err)
	}
	return nil
}

func (s *RedisStore) RemoveFromWishlist(ctx context.Context, sid, productID string) error {
	if err := s.rdb.ZRem(ctx, wishlistKey(sid), productID).Err(); err != nil {
		return fmt.Errorf("remove from session wishlist: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearWishlist(ctx context.Context, sid string) error {
	if err := s.rdb.Del(ctx, wishlistKey(sid)).Err(); err != nil {
		return fmt.Errorf("clear session wishlist: %w", err)
	}
	return nil
}

func (s *RedisStore) TakeWishlist(ctx context.Context, sid string) ([]string, error) {
	key := wishlistKey(sid)
	var get *redis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.ZRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("take session wishlist: %w", err)
	}
	ids := get.Val()
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
