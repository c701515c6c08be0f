// Package session хранит токены входа операторов: в памяти процесса или в Redis.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/redis/go-redis/v9"
)

// Store — хранилище значений по ключу с TTL. Get отсутствующего ключа → errs.ErrSessionNotFound.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

type memoryItem struct {
	value   string
	expires time.Time
}

// sweepInterval — как часто Set вычищает просроченные записи, которые никто не читает.
const sweepInterval = time.Minute

// Memory — Store в памяти процесса; сессии теряются при перезапуске.
type Memory struct {
	mu        sync.Mutex
	items     map[string]memoryItem
	now       func() time.Time
	nextSweep time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem), now: time.Now}
}

func (it memoryItem) expired(now time.Time) bool {
	return !it.expires.IsZero() && !now.Before(it.expires)
}

// sweep вызывается под m.mu.
func (m *Memory) sweep(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for k, it := range m.items {
		if it.expired(now) {
			delete(m.items, k)
		}
	}
	m.nextSweep = now.Add(sweepInterval)
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return "", errs.ErrSessionNotFound
	}
	if it.expired(m.now()) {
		delete(m.items, key)
		return "", errs.ErrSessionNotFound
	}
	return it.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	it := memoryItem{value: value}
	if ttl > 0 {
		it.expires = now.Add(ttl)
	}
	m.items[key] = it
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Redis — Store поверх go-redis; TTL отдаётся Redis.
type Redis struct {
	rdb redis.UniversalClient
}

func NewRedis(rdb redis.UniversalClient) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

const (
	keyPrefix     = "session:"
	userKeyPrefix = "user-sessions:"
)

// Manager выдаёт непрозрачные токены и сопоставляет их с id пользователя.
// Для каждого пользователя ведётся список его токенов, чтобы отзывать все сессии разом.
type Manager struct {
	store Store
	ttl   time.Duration
	// mu сериализует чтение-изменение-запись списков токенов в пределах процесса
	mu sync.Mutex
}

func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

func (m *Manager) Create(ctx context.Context, userID string) (string, error) {
	token := strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := m.store.Set(ctx, keyPrefix+token, userID, m.ttl); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens, err := m.userTokens(ctx, userID)
	if err != nil {
		return "", err
	}
	// просроченные и выданные другому пользователю токены из списка выбрасываются
	live := tokens[:0]
	for _, t := range tokens {
		if owner, err := m.store.Get(ctx, keyPrefix+t); err == nil && owner == userID {
			live = append(live, t)
		}
	}
	live = append(live, token)
	if err := m.store.Set(ctx, userKeyPrefix+userID, strings.Join(live, " "), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (m *Manager) userTokens(ctx context.Context, userID string) ([]string, error) {
	v, err := m.store.Get(ctx, userKeyPrefix+userID)
	if errors.Is(err, errs.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return strings.Fields(v), nil
}

// Lookup возвращает id пользователя по токену.
func (m *Manager) Lookup(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errs.ErrSessionNotFound
	}
	return m.store.Get(ctx, keyPrefix+token)
}

func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return errs.ErrSessionNotFound
	}
	if _, err := m.store.Get(ctx, keyPrefix+token); err != nil {
		return err
	}
	return m.store.Remove(ctx, keyPrefix+token)
}

// DestroyUser отзывает все сессии пользователя (блокировка, удаление).
func (m *Manager) DestroyUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens, err := m.userTokens(ctx, userID)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if err := m.store.Remove(ctx, keyPrefix+t); err != nil {
			return err
		}
	}
	return m.store.Remove(ctx, userKeyPrefix+userID)
}
