// Package lock сериализует критические секции по ключу: внутри процесса или через Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Locker захватывает блокировку по ключу; unlock освобождает её.
type Locker interface {
	Obtain(ctx context.Context, key string) (unlock func(), err error)
}

// Local — блокировки по ключу внутри одного процесса.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Obtain(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Redis — распределённая блокировка через redislock с повтором до истечения ctx.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: redislock.New(rdb), ttl: ttl, retry: 100 * time.Millisecond}
}

func (r *Redis) Obtain(ctx context.Context, key string) (func(), error) {
	l, err := r.client.Obtain(ctx, "lock:"+key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if err != nil {
		return nil, err
	}
	return func() {
		// отдельный контекст: освобождение нужно и после отмены запроса
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Release(ctx)
	}, nil
}
