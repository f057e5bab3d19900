package store

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/spec"
)

// Redis key layout, under a configurable prefix:
//
//	<prefix>spec:<hash>      JSON-encoded spec record
//	<prefix>name:<name>      set of hashes carrying the package name
//	<prefix>compiler:<key>   JSON-encoded compiler spec
//	<prefix>compilers        set of compiler keys
const (
	redisSpecKey      = "spec:"
	redisNameKey      = "name:"
	redisCompilerKey  = "compiler:"
	redisCompilersKey = "compilers"
)

// RedisStore is a Redis-backed package database for multi-instance
// deployments. Merges run inside a single MULTI/EXEC transaction.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "depot:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to redis at %s", cfg.Addr)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

// QueryByHash returns the linked spec with the given hash.
func (r *RedisStore) QueryByHash(ctx context.Context, hash string) (*spec.Spec, error) {
	return loadSpec(ctx, hash, r.get)
}

// QueryByName returns all linked specs carrying the given package name.
func (r *RedisStore) QueryByName(ctx context.Context, name string) ([]*spec.Spec, error) {
	hashes, err := r.client.SMembers(ctx, r.prefix+redisNameKey+name).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "query name %q", name)
	}
	slices.Sort(hashes)

	var out []*spec.Spec
	for _, hash := range hashes {
		s, err := loadSpec(ctx, hash, r.get)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Compilers returns all merged compiler specs, ordered by key.
func (r *RedisStore) Compilers(ctx context.Context) ([]spec.Compiler, error) {
	keys, err := r.client.SMembers(ctx, r.prefix+redisCompilersKey).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list compilers")
	}
	slices.Sort(keys)

	out := make([]spec.Compiler, 0, len(keys))
	for _, key := range keys {
		data, err := r.client.Get(ctx, r.prefix+redisCompilerKey+key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "load compiler %q", key)
		}
		var c spec.Compiler
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "decode compiler %q", key)
		}
		out = append(out, c)
	}
	return out, nil
}

// Merge writes all new records in one MULTI/EXEC transaction. Hashes and
// compiler keys that already exist are skipped, so re-merging the same
// batch is a no-op.
func (r *RedisStore) Merge(ctx context.Context, batch *Batch) (*MergeStats, error) {
	stats := &MergeStats{}
	pipe := r.client.TxPipeline()

	for _, s := range batch.Specs {
		exists, err := r.client.Exists(ctx, r.prefix+redisSpecKey+s.Hash).Result()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "check spec %q", s.Hash)
		}
		if exists > 0 {
			stats.SpecsSkipped++
			continue
		}
		data, err := json.Marshal(s.Record())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "encode spec %q", s.Hash)
		}
		pipe.Set(ctx, r.prefix+redisSpecKey+s.Hash, data, 0)
		pipe.SAdd(ctx, r.prefix+redisNameKey+s.Name, s.Hash)
		stats.SpecsAdded++
	}

	for _, c := range batch.Compilers {
		exists, err := r.client.Exists(ctx, r.prefix+redisCompilerKey+c.Key()).Result()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "check compiler %q", c.Key())
		}
		if exists > 0 {
			stats.CompilersSkipped++
			continue
		}
		data, err := json.Marshal(c)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "encode compiler %q", c.Key())
		}
		pipe.Set(ctx, r.prefix+redisCompilerKey+c.Key(), data, 0)
		pipe.SAdd(ctx, r.prefix+redisCompilersKey, c.Key())
		stats.CompilersAdded++
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "merge batch")
	}
	return stats, nil
}

// Close releases the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// get implements recordGetter.
func (r *RedisStore) get(ctx context.Context, hash string) (spec.Record, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+redisSpecKey+hash).Bytes()
	if err == redis.Nil {
		return spec.Record{}, false, nil
	}
	if err != nil {
		return spec.Record{}, false, errors.Wrap(errors.ErrCodeStore, err, "load spec %q", hash)
	}
	var rec spec.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return spec.Record{}, false, errors.Wrap(errors.ErrCodeStore, err, "decode spec %q", hash)
	}
	return rec, true, nil
}
