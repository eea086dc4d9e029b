package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"voice-quiz-service/internal/domain"
	"voice-quiz-service/internal/infra/memory"
)

// BankCache shares the question catalog between instances through Redis and
// falls back to a loader on cache miss. The catalog is stored as JSON under
// a single key so every instance sees the same order:
//
//	SET quiz:catalog [{"id":"1",...},...] EX ttl
//
// Each instance keeps the decoded bank for localTTL and only decodes again
// when the shared value changed.
type BankCache struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu         sync.Mutex
	local      *domain.QuestionBank
	localRaw   []byte
	localUntil time.Time
}

const (
	catalogKey = "quiz:catalog"
	localTTL   = 5 * time.Second
)

func NewBankCache(client *redis.Client, loader memory.CatalogLoader, ttl time.Duration) *BankCache {
	return &BankCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *BankCache) Bank(ctx context.Context) (*domain.QuestionBank, error) {
	if bank, ok := c.cached(ctx); ok {
		return bank, nil
	}

	result, err, _ := c.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := c.cached(ctx); ok {
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

		if data, err := json.Marshal(bank.Questions()); err == nil {
			// best-effort fill; the bank is still served if Redis is down
			_ = c.client.Set(ctx, catalogKey, data, c.ttlWithJitter()).Err()
			c.remember(bank, data)
		}
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.QuestionBank), nil
}

// Invalidate drops the shared catalog so the next turn reloads it. Other
// instances notice within localTTL.
func (c *BankCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.local, c.localRaw, c.localUntil = nil, nil, time.Time{}
	c.mu.Unlock()

	err := c.client.Del(ctx, catalogKey).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (c *BankCache) cached(ctx context.Context) (*domain.QuestionBank, bool) {
	c.mu.Lock()
	if c.local != nil && c.clock().Before(c.localUntil) {
		bank := c.local
		c.mu.Unlock()
		return bank, true
	}
	c.mu.Unlock()

	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	if c.local != nil && bytes.Equal(data, c.localRaw) {
		c.localUntil = c.clock().Add(localTTL)
		bank := c.local
		c.mu.Unlock()
		return bank, true
	}
	c.mu.Unlock()

	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, false
	}
	bank, err := domain.NewQuestionBank(questions)
	if err != nil {
		return nil, false
	}
	c.remember(bank, data)
	return bank, true
}

func (c *BankCache) remember(bank *domain.QuestionBank, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local = bank
	c.localRaw = data
	c.localUntil = c.clock().Add(localTTL)
}

func (c *BankCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
