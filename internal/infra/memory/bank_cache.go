package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"voice-quiz-service/internal/domain"
)

// CatalogLoader fetches the question catalog from a backing store (file, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) ([]domain.Question, error)
}

// BankCache builds question banks from a loader and caches them with a TTL
// to avoid repeated backing store hits. A TTL of zero caches forever.
type BankCache struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu        sync.RWMutex
	bank      *domain.QuestionBank
	expiresAt time.Time
}

func NewBankCache(loader CatalogLoader, ttl time.Duration) *BankCache {
	return &BankCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *BankCache) Bank(ctx context.Context) (*domain.QuestionBank, error) {
	if bank, ok := c.cached(c.clock()); ok {
		return bank, nil
	}

	result, err, _ := c.sf.Do("bank", func() (interface{}, error) {
		now := c.clock()
		if bank, ok := c.cached(now); ok {
			return bank, nil
		}

		questions, err := c.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}
		bank, err := domain.NewQuestionBank(questions)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.bank = bank
		if c.ttl > 0 {
			c.expiresAt = now.Add(c.ttlWithJitter())
		}
		c.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.QuestionBank), nil
}

func (c *BankCache) cached(now time.Time) (*domain.QuestionBank, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.bank == nil {
		return nil, false
	}
	if c.ttl > 0 && !c.expiresAt.After(now) {
		return nil, false
	}
	return c.bank, true
}

func (c *BankCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread reloads across instances
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticCatalogLoader is a loader backed by a fixed slice (useful for tests/demos).
type StaticCatalogLoader struct {
	questions []domain.Question
}

func NewStaticCatalogLoader(questions []domain.Question) *StaticCatalogLoader {
	return &StaticCatalogLoader{questions: questions}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context) ([]domain.Question, error) {
	if len(l.questions) == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	out := make([]domain.Question, len(l.questions))
	copy(out, l.questions)
	return out, nil
}
