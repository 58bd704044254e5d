package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/utils"
)

// ClaimStore hands out short-lived exclusive claims on policy ids so that
// concurrent settlement runs never race the same payout. A claim expires on
// its own if the holder dies before releasing it.
type ClaimStore interface {
	Acquire(ctx context.Context, policyID uint64, owner string) (bool, error)
	Release(ctx context.Context, policyID uint64, owner string) error
	Close() error
}

type claimStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewClaimStore(log *logger.Logger) (ClaimStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ttlSec := utils.GetEnvAsInt("REDIS_CLAIM_TTL_SECONDS", 120, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &claimStore{
		log: log.With("service", "RedisClaimStore"),
		rdb: rdb,
		ttl: time.Duration(ttlSec) * time.Second,
	}, nil
}

func claimKey(policyID uint64) string {
	return fmt.Sprintf("zyura:claim:policy:%d", policyID)
}

func (s *claimStore) Acquire(ctx context.Context, policyID uint64, owner string) (bool, error) {
	if s == nil || s.rdb == nil {
		return false, fmt.Errorf("claim store not initialized")
	}
	ok, err := s.rdb.SetNX(ctx, claimKey(policyID), owner, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim policy %d: %w", policyID, err)
	}
	return ok, nil
}

// Release only deletes the claim if this owner still holds it.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

func (s *claimStore) Release(ctx context.Context, policyID uint64, owner string) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("claim store not initialized")
	}
	return releaseScript.Run(ctx, s.rdb, []string{claimKey(policyID)}, owner).Err()
}

func (s *claimStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// localClaimStore is the in-process fallback used when REDIS_ADDR is unset.
// It gives the same exclusivity guarantee within a single process.
type localClaimStore struct {
	mu     sync.Mutex
	owners map[uint64]string
}

func NewLocalClaimStore() ClaimStore {
	return &localClaimStore{owners: map[uint64]string{}}
}

func (s *localClaimStore) Acquire(_ context.Context, policyID uint64, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.owners[policyID]; held {
		return false, nil
	}
	s.owners[policyID] = owner
	return true, nil
}

func (s *localClaimStore) Release(_ context.Context, policyID uint64, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[policyID] == owner {
		delete(s.owners, policyID)
	}
	return nil
}

func (s *localClaimStore) Close() error { return nil }
