package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/salonpos/salonpos/internal/shared"
)

// ItemLocker serialises writers of one item's ledger across processes.
type ItemLocker interface {
	Lock(ctx context.Context, itemID int64) (release func(), err error)
}

// ErrItemBusy is returned when another writer holds the item lock.
var ErrItemBusy = fmt.Errorf("inventory: item is being updated by another request: %w", shared.ErrConflict)

// RedisLocker implements ItemLocker with bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedisLocker builds a locker on top of an existing redis client.
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 10),
	}
}

// Lock obtains the item lock or returns ErrItemBusy.
func (l *RedisLocker) Lock(ctx context.Context, itemID int64) (func(), error) {
	lock, err := l.client.Obtain(ctx, shared.ItemLockKey(itemID), l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrItemBusy
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: obtain item lock: %w", err)
	}
	return func() {
		// Release uses a fresh context so a cancelled request still frees the key.
		_ = lock.Release(context.Background())
	}, nil
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, int64) (func(), error) { return func() {}, nil }

// lockItems acquires locks for ids in ascending order and returns a single release.
func lockItems(ctx context.Context, locker ItemLocker, ids ...int64) (func(), error) {
	uniq := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	releases := make([]func(), 0, len(uniq))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, id := range uniq {
		release, err := locker.Lock(ctx, id)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
