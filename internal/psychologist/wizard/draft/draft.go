// Package draft keeps in-progress wizard sessions between HTTP calls. Drafts
// expire after a fixed idle TTL; every Save restarts the clock.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/wizard"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/sentinel"
)

const (
	keyPrefix  = "mindflow:wizard:draft:"
	lockPrefix = "mindflow:wizard:lock:"

	// LockTTL bounds how long a crashed holder can block a draft.
	LockTTL = 15 * time.Second
)

// Unlock releases a draft lock. It is safe to call more than once.
type Unlock func()

// InMemoryStore keeps drafts in a process-local expiring cache.
type InMemoryStore struct {
	cache *gocache.Cache
	locks *gocache.Cache
	ttl   time.Duration
}

func NewInMemory(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		cache: gocache.New(ttl, ttl/2),
		locks: gocache.New(LockTTL, LockTTL),
		ttl:   ttl,
	}
}

// Lock claims exclusive use of a draft. It returns sentinel.ErrConflict while
// another holder has it.
func (s *InMemoryStore) Lock(_ context.Context, draftID id.DraftID) (Unlock, error) {
	key := draftID.String()
	token := uuid.NewString()
	if err := s.locks.Add(key, token, LockTTL); err != nil {
		return nil, sentinel.ErrConflict
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if v, ok := s.locks.Get(key); ok && v == token {
				s.locks.Delete(key)
			}
		})
	}, nil
}

func (s *InMemoryStore) Save(_ context.Context, state wizard.State) error {
	s.cache.Set(state.DraftID.String(), state, s.ttl)
	return nil
}

func (s *InMemoryStore) Load(_ context.Context, draftID id.DraftID) (wizard.State, error) {
	v, found := s.cache.Get(draftID.String())
	if !found {
		return wizard.State{}, sentinel.ErrNotFound
	}
	state, ok := v.(wizard.State)
	if !ok {
		return wizard.State{}, fmt.Errorf("draft %s has unexpected type %T", draftID, v)
	}
	return state, nil
}

func (s *InMemoryStore) Delete(_ context.Context, draftID id.DraftID) error {
	if _, found := s.cache.Get(draftID.String()); !found {
		return sentinel.ErrNotFound
	}
	s.cache.Delete(draftID.String())
	return nil
}

// RedisStore keeps drafts as JSON values with a Redis expiry, so any server
// instance can continue a session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// releaseLock deletes the lock only while it still holds the caller's token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock claims exclusive use of a draft with SET NX. It returns
// sentinel.ErrConflict while another holder has it.
func (s *RedisStore) Lock(ctx context.Context, draftID id.DraftID) (Unlock, error) {
	key := lockPrefix + draftID.String()
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, LockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock draft: %w", err)
	}
	if !ok {
		return nil, sentinel.ErrConflict
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// Released on a fresh context so a cancelled request still unlocks.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			_ = releaseLock.Run(releaseCtx, s.client, []string{key}, token).Err()
		})
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, state wizard.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+state.DraftID.String(), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, draftID id.DraftID) (wizard.State, error) {
	payload, err := s.client.Get(ctx, keyPrefix+draftID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return wizard.State{}, sentinel.ErrNotFound
	}
	if err != nil {
		return wizard.State{}, fmt.Errorf("load draft: %w", err)
	}
	var state wizard.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return wizard.State{}, fmt.Errorf("unmarshal draft: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Delete(ctx context.Context, draftID id.DraftID) error {
	n, err := s.client.Del(ctx, keyPrefix+draftID.String()).Result()
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
