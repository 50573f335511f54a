package pipeline

import (
	"context"

	"github.com/turtacn/vizcrn/internal/application/extraction"
	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/internal/infrastructure/database/neo4j"
	"github.com/turtacn/vizcrn/internal/infrastructure/database/redis"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/internal/infrastructure/storage/crnfile"
	"github.com/turtacn/vizcrn/internal/infrastructure/storage/minio"
)

func (p *Pipeline) neo4jStore(ctx context.Context) (extraction.Store, func(), error) {
	db := p.cfg.DB
	d, err := neo4j.NewDriver(ctx, neo4j.Config{
		URI:                   db.BoltURI(),
		Username:              db.User,
		Password:              db.Password,
		Database:              db.Name,
		MaxConnectionPoolSize: db.MaxConnectionPoolSize,
		ConnectionTimeout:     db.ConnectionTimeout,
	}, p.logger)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := d.Close(context.Background()); err != nil {
			p.logger.Warn("closing neo4j driver", logging.Err(err))
		}
	}
	return neo4j.NewReactionStore(d, p.logger), release, nil
}

// pathfinderCache picks the redis backend for redis:// paths and a JSON file
// otherwise. Host and password missing from the URL come from the redis
// section.
func (p *Pipeline) pathfinderCache(ctx context.Context, path string) (network.PathfinderCache, func(), error) {
	if !redis.IsURL(path) {
		return crnfile.NewPathfinderFile(path), func() {}, nil
	}
	loc, err := redis.ParseLocation(path)
	if err != nil {
		return nil, nil, err
	}
	if loc.Addr == "" {
		loc.Addr = p.cfg.Redis.Addr
	}
	if loc.Password == "" {
		loc.Password = p.cfg.Redis.Password
	}
	client, err := redis.NewClient(ctx, loc.Config, p.logger)
	if err != nil {
		return nil, nil, err
	}
	release := func() { _ = client.Close() }
	return redis.NewPathfinderCache(client, loc.Key, p.cfg.Redis.TTL, p.logger), release, nil
}

func (p *Pipeline) minioPublisher(ctx context.Context) (Publisher, error) {
	pc := p.cfg.Publish
	client, err := minio.NewMinIOClient(ctx, &minio.MinIOConfig{
		Endpoint:        pc.Endpoint,
		AccessKeyID:     pc.AccessKey,
		SecretAccessKey: pc.SecretKey,
		UseSSL:          pc.UseSSL,
		Bucket:          pc.Bucket,
		Prefix:          pc.Prefix,
	}, p.logger)
	if err != nil {
		return nil, err
	}
	return minio.NewPublisher(client, p.logger), nil
}
