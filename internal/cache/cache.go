package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/haguru/bookshelf/config"
	"github.com/haguru/bookshelf/internal/interfaces"
	storemetrics "github.com/haguru/bookshelf/internal/metrics"
	"github.com/haguru/bookshelf/internal/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultTTL    = 5 * time.Minute
	DefaultPrefix = "bookshelf"

	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

var _ interfaces.RecordStore = (*CachedStore)(nil)

// NewRedisClient builds a go-redis client from the cache configuration.
func NewRedisClient(cfg config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// CachedStore serves reads of a RecordStore from Redis.
// Cache keys embed a per-collection generation number; every write bumps the
// generation so earlier entries are never read again and expire by TTL.
// Redis failures fall back to the wrapped store.
type CachedStore struct {
	interfaces.RecordStore
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	logger  interfaces.Logger
	metrics interfaces.Metrics
}

func NewCachedStore(store interfaces.RecordStore, client *redis.Client, cfg config.CacheConfig, logger interfaces.Logger, metrics interfaces.Metrics) *CachedStore {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &CachedStore{
		RecordStore: store,
		client:      client,
		ttl:         ttl,
		prefix:      prefix,
		logger:      logger.WithContext(map[string]interface{}{"collection": store.Collection(), "component": "cache"}),
		metrics:     metrics,
	}
}

func (c *CachedStore) FindOne(ctx context.Context, filter models.Filter, projection ...string) (models.Record, error) {
	return cached(ctx, c, "find_one", []interface{}{filter, projection}, decodeRecord, func() (models.Record, error) {
		return c.RecordStore.FindOne(ctx, filter, projection...)
	})
}

func (c *CachedStore) FindAll(ctx context.Context, filter models.Filter, projection ...string) ([]models.Record, error) {
	records, err := cached(ctx, c, "find_all", []interface{}{filter, projection}, decodeRecords, func() ([]models.Record, error) {
		return c.RecordStore.FindAll(ctx, filter, projection...)
	})
	if err == nil && records == nil {
		records = []models.Record{}
	}
	return records, err
}

func (c *CachedStore) FindOneOrdered(ctx context.Context, filter models.Filter, orderField string, direction models.SortDirection) (models.Record, error) {
	return cached(ctx, c, "find_one_ordered", []interface{}{filter, orderField, direction}, decodeRecord, func() (models.Record, error) {
		return c.RecordStore.FindOneOrdered(ctx, filter, orderField, direction)
	})
}

func (c *CachedStore) Create(ctx context.Context, fields models.Record) (models.Record, error) {
	defer c.invalidate(ctx)
	return c.RecordStore.Create(ctx, fields)
}

func (c *CachedStore) Save(ctx context.Context, fields models.Record) (models.Record, error) {
	defer c.invalidate(ctx)
	return c.RecordStore.Save(ctx, fields)
}

func (c *CachedStore) Update(ctx context.Context, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error) {
	defer c.invalidate(ctx)
	return c.RecordStore.Update(ctx, filter, mutation)
}

func (c *CachedStore) Remove(ctx context.Context, filter models.Filter) (models.DeleteResult, error) {
	defer c.invalidate(ctx)
	return c.RecordStore.Remove(ctx, filter)
}

// entry is the BSON envelope of a cached result; integer widths and times survive it.
type entry struct {
	Value interface{} `bson:"v"`
}

// cached returns the entry for (op, args), or runs load and stores its result.
// A loaded result is returned as the store produced it.
func cached[T any](ctx context.Context, c *CachedStore, op string, args []interface{}, decode func(bson.RawValue) (T, error), load func() (T, error)) (T, error) {
	key, err := c.key(ctx, op, args)
	if err == nil {
		var data []byte
		data, err = c.client.Get(ctx, key).Bytes()
		if err == nil {
			var hit T
			if hit, err = decodeEntry(data, decode); err == nil {
				c.count(resultHit)
				return hit, nil
			}
		}
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		c.count(resultError)
		c.logger.Warn("cache read failed, reading from store", "op", op, "error", err)
		key = ""
	} else {
		c.count(resultMiss)
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if key != "" {
		data, err := bson.Marshal(entry{Value: value})
		if err != nil {
			c.logger.Warn("cache encode failed", "op", op, "error", err)
			return value, nil
		}
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed", "op", op, "error", err)
		}
	}
	return value, nil
}

func decodeEntry[T any](data []byte, decode func(bson.RawValue) (T, error)) (T, error) {
	var e struct {
		Value bson.RawValue `bson:"v"`
	}
	if err := bson.Unmarshal(data, &e); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return decode(e.Value)
}

// decodeRecord decodes a cached record; a cached null is the absent record.
func decodeRecord(raw bson.RawValue) (models.Record, error) {
	var doc bson.M
	if err := raw.Unmarshal(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return fromBSON(doc), nil
}

func decodeRecords(raw bson.RawValue) ([]models.Record, error) {
	var docs []bson.M
	if err := raw.Unmarshal(&docs); err != nil {
		return nil, err
	}
	if docs == nil {
		return nil, nil
	}
	records := make([]models.Record, len(docs))
	for i, doc := range docs {
		records[i] = fromBSON(doc)
	}
	return records, nil
}

func fromBSON(doc bson.M) models.Record {
	record := make(models.Record, len(doc))
	for k, v := range doc {
		record[k] = fromBSONValue(v)
	}
	return record
}

func fromBSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case bson.M:
		return map[string]interface{}(fromBSON(val))
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = fromBSONValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i, nested := range val {
			out[i] = fromBSONValue(nested)
		}
		return out
	default:
		return v
	}
}

func (c *CachedStore) key(ctx context.Context, op string, args []interface{}) (string, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}

	// encoding/json sorts map keys, so equal filters hash equally
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)

	return fmt.Sprintf("%s:%s:%s:%s:%s", c.prefix, c.Collection(), strconv.FormatInt(gen, 10), op, hex.EncodeToString(sum[:])), nil
}

func (c *CachedStore) generationKey() string {
	return fmt.Sprintf("%s:%s:generation", c.prefix, c.Collection())
}

func (c *CachedStore) invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		c.logger.Error("cache invalidation failed", "error", err)
	}
}

func (c *CachedStore) count(result string) {
	c.metrics.IncCounterVec(storemetrics.CacheRequestsTotal, c.Collection(), result)
}
