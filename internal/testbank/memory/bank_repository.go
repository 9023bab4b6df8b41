package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"telecare-session-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// BankLoader fetches an assessment bank from a backing store.
type BankLoader interface {
	LoadAssessment(ctx context.Context, name string) (domain.Assessment, error)
}

// BankRepository caches assessment banks with TTL so a session start does not
// hit the backing store for every participant.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.Assessment
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *BankRepository) GetAssessment(ctx context.Context, name string) (domain.Assessment, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[name]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.bank, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[name]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.bank, nil
		}
		r.mu.RUnlock()

		bank, err := r.loader.LoadAssessment(ctx, name)
		if err != nil {
			return domain.Assessment{}, err
		}

		r.mu.Lock()
		r.cache[name] = cachedBank{
			bank:      bank,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.Assessment{}, err
	}
	return result.(domain.Assessment), nil
}

// StaticBankLoader serves banks from an in-memory map (tests/demos).
type StaticBankLoader struct {
	banks map[string]domain.Assessment
}

func NewStaticBankLoader(banks map[string]domain.Assessment) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadAssessment(_ context.Context, name string) (domain.Assessment, error) {
	if bank, ok := l.banks[name]; ok {
		return bank, nil
	}
	return domain.Assessment{}, domain.ErrAssessmentNotFound
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
