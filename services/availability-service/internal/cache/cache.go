// Package cache puts a Redis read-through cache in front of the availability
// calculator. Entries for one (business, date) are tracked in an index set so a
// booking event can drop all of them at once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Computer is satisfied by *availability.Calculator.
type Computer interface {
	Compute(ctx context.Context, req availability.Request) (availability.Result, error)
}

// Observer is told the outcome of every lookup.
type Observer interface {
	CacheResult(result string)
}

type Cache struct {
	rdb      redis.Cmdable
	next     Computer
	ttl      time.Duration
	logger   *slog.Logger
	observer Observer
	group    singleflight.Group

	// computeTimeout bounds a shared computation, which runs detached from
	// any single caller so one cancelled request cannot fail the others.
	computeTimeout time.Duration
	loc            *time.Location
	now            func() time.Time
}

// generationTTL outlives every entry keyed on an older generation.
const generationTTL = 24 * time.Hour

func New(rdb redis.Cmdable, next Computer, ttl time.Duration, logger *slog.Logger, observer Observer) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{
		rdb:            rdb,
		next:           next,
		ttl:            ttl,
		logger:         logger,
		observer:       observer,
		computeTimeout: 10 * time.Second,
		loc:            time.UTC,
		now:            time.Now,
	}
}

// WithLocation sets the zone whose midnight ends every entry. It should match
// the calculator's, since results depend on what "today" is.
func (c *Cache) WithLocation(loc *time.Location) *Cache {
	if loc != nil {
		c.loc = loc
	}
	return c
}

// Key names one cached result. gen is the (business, date) generation that
// Invalidate bumps, so a result computed before an invalidation is never read
// after it.
func Key(req availability.Request, gen int64) string {
	staff := "all"
	if req.StaffMemberID != nil {
		staff = strconv.FormatInt(*req.StaffMemberID, 10)
	}
	return fmt.Sprintf("avail:%d:%s:%d:%s:g%d", req.BusinessID, req.Date, req.ServiceID, staff, gen)
}

func indexKey(businessID int64, date string) string {
	return fmt.Sprintf("avail:idx:%d:%s", businessID, date)
}

func generationKey(businessID int64, date string) string {
	return fmt.Sprintf("avail:gen:%d:%s", businessID, date)
}

// Compute serves from Redis when possible. Redis failures fall through to the
// calculator; calculator errors are never cached.
func (c *Cache) Compute(ctx context.Context, req availability.Request) (availability.Result, error) {
	gen, err := c.generation(ctx, req)
	if err != nil {
		c.observe(ResultError)
		c.logger.Warn("cache read failed", "key", generationKey(req.BusinessID, req.Date), "err", err)
		return c.next.Compute(ctx, req)
	}
	key := Key(req, gen)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var res availability.Result
		if jsonErr := json.Unmarshal(raw, &res); jsonErr == nil {
			c.observe(ResultHit)
			return res, nil
		}
		c.logger.Warn("discarding corrupt cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.observe(ResultError)
		c.logger.Warn("cache read failed", "key", key, "err", err)
		return c.next.Compute(ctx, req)
	}
	c.observe(ResultMiss)

	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		res, err := c.next.Compute(shared, req)
		if err != nil {
			return availability.Result{}, err
		}
		c.store(shared, req, key, res)
		return res, nil
	})
	select {
	case <-ctx.Done():
		return availability.Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return availability.Result{}, r.Err
		}
		return r.Val.(availability.Result), nil
	}
}

func (c *Cache) generation(ctx context.Context, req availability.Request) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey(req.BusinessID, req.Date)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// entryTTL caps the configured TTL at the next local midnight, when the
// booking horizon moves and a stored result may no longer hold.
func (c *Cache) entryTTL() time.Duration {
	now := c.now().In(c.loc)
	y, m, d := now.Date()
	untilMidnight := time.Date(y, m, d+1, 0, 0, 0, 0, c.loc).Sub(now)
	if untilMidnight > 0 && untilMidnight < c.ttl {
		return untilMidnight
	}
	return c.ttl
}

func (c *Cache) store(ctx context.Context, req availability.Request, key string, res availability.Result) {
	body, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "err", err)
		return
	}
	ttl := c.entryTTL()
	idx := indexKey(req.BusinessID, req.Date)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, body, ttl)
		pipe.SAdd(ctx, idx, key)
		pipe.Expire(ctx, idx, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
}

// Invalidate drops every cached result for the business on date and bumps the
// generation, so a computation already in flight stores under a key nobody
// reads any more.
func (c *Cache) Invalidate(ctx context.Context, businessID int64, date string) (int, error) {
	idx := indexKey(businessID, date)
	keys, err := c.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return 0, fmt.Errorf("read cache index %s: %w", idx, err)
	}
	gen := generationKey(businessID, date)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, gen)
		pipe.Expire(ctx, gen, generationTTL)
		pipe.Del(ctx, append(keys, idx)...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("invalidate cache entries: %w", err)
	}
	return len(keys), nil
}

func (c *Cache) observe(result string) {
	if c.observer != nil {
		c.observer.CacheResult(result)
	}
}

func ReadyCheck(rdb redis.Cmdable) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
