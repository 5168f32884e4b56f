package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/utils"
	"github.com/redis/go-redis/v9"
)

const (
	featuredKeyPrefix = "danaliph:featured:page:"
	featuredGenKey    = "danaliph:featured:gen"
)

// FeaturedPage is one cached page of the featured listing.
type FeaturedPage struct {
	Books []models.Book  `json:"books"`
	Meta  utils.PageMeta `json:"meta"`
}

// FeaturedCache caches featured listing pages under a generation. Get
// reports the current generation with the page (nil on a miss); Set stores
// under the generation Get returned, so a page read before an Invalidate is
// written where no later Get looks.
type FeaturedCache interface {
	Get(ctx context.Context, page int) (*FeaturedPage, int64, error)
	Set(ctx context.Context, gen int64, page int, p *FeaturedPage) error
	Invalidate(ctx context.Context) error
}

type NopFeaturedCache struct{}

func (NopFeaturedCache) Get(context.Context, int) (*FeaturedPage, int64, error) { return nil, 0, nil }
func (NopFeaturedCache) Set(context.Context, int64, int, *FeaturedPage) error   { return nil }
func (NopFeaturedCache) Invalidate(context.Context) error                       { return nil }

type RedisFeaturedCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient parses url, tunes the pool and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.ConnMaxIdleTime = 5 * time.Minute
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

func NewRedisFeaturedCache(rdb *redis.Client, ttl time.Duration) *RedisFeaturedCache {
	return &RedisFeaturedCache{rdb: rdb, ttl: ttl}
}

func (c *RedisFeaturedCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, featuredGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisFeaturedCache) Get(ctx context.Context, page int) (*FeaturedPage, int64, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, err
	}
	raw, err := c.rdb.Get(ctx, featuredKey(gen, page)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, nil
	}
	if err != nil {
		return nil, gen, err
	}
	var p FeaturedPage
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, gen, err
	}
	return &p, gen, nil
}

func (c *RedisFeaturedCache) Set(ctx context.Context, gen int64, page int, p *FeaturedPage) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, featuredKey(gen, page), raw, c.ttl).Err()
}

// Invalidate moves to a new generation. Pages of older generations are left
// to expire with their TTL.
func (c *RedisFeaturedCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, featuredGenKey).Err()
}

func featuredKey(gen int64, page int) string {
	return fmt.Sprintf("%s%d:%d", featuredKeyPrefix, gen, page)
}
