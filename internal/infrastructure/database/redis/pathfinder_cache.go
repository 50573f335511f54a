package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// DefaultKeyPrefix namespaces every key written by vizcrn.
const DefaultKeyPrefix = "vizcrn:pathfinder:"

// PathfinderCache stores one pathfinder graph as JSON under a single key.
type PathfinderCache struct {
	client *Client
	key    string
	ttl    time.Duration
	logger logging.Logger
}

var _ network.PathfinderCache = (*PathfinderCache)(nil)

// NewPathfinderCache stores under DefaultKeyPrefix+key. A zero ttl keeps the
// key forever.
func NewPathfinderCache(client *Client, key string, ttl time.Duration, log logging.Logger) *PathfinderCache {
	return &PathfinderCache{client: client, key: DefaultKeyPrefix + key, ttl: ttl, logger: log}
}

// Load returns CodeCacheMiss when the key is absent.
func (c *PathfinderCache) Load(ctx context.Context) (*network.PathfinderGraph, error) {
	data, err := c.client.rdb.Get(ctx, c.key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.New(errors.CodeCacheMiss, "pathfinder graph not cached").WithDetail(c.key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "redis get failed").WithDetail(c.key)
	}
	var g network.PathfinderGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode cached pathfinder graph").WithDetail(c.key)
	}
	c.logger.Debug("pathfinder graph cache hit", logging.String("key", c.key), logging.Int("bytes", len(data)))
	return &g, nil
}

// Save overwrites the cached graph.
func (c *PathfinderCache) Save(ctx context.Context, g *network.PathfinderGraph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode pathfinder graph")
	}
	if err := c.client.rdb.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis set failed").WithDetail(c.key)
	}
	c.logger.Debug("pathfinder graph cached", logging.String("key", c.key), logging.Duration("ttl", c.ttl))
	return nil
}
