package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"telecare-session-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches an assessment bank from a backing store.
type BankLoader interface {
	LoadAssessment(ctx context.Context, name string) (domain.Assessment, error)
}

// BankRepository caches whole assessment banks in Redis as JSON blobs and
// falls back to a loader on cache miss:
//
//	SET assessment:{name} {json} EX {ttl}
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetAssessment(ctx context.Context, name string) (domain.Assessment, error) {
	key := r.key(name)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		var bank domain.Assessment
		if err := json.Unmarshal(raw, &bank); err == nil {
			return bank, nil
		}
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			var bank domain.Assessment
			if err := json.Unmarshal(raw, &bank); err == nil {
				return bank, nil
			}
		}

		bank, err := r.loader.LoadAssessment(ctx, name)
		if err != nil {
			return domain.Assessment{}, err
		}

		if raw, err := json.Marshal(bank); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return domain.Assessment{}, err
	}
	return result.(domain.Assessment), nil
}

func (r *BankRepository) key(name string) string {
	return "assessment:" + name
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
