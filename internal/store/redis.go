package store

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per item under prefix+"item:"+id and a sorted set of ids ordered
// by first insertion. Queries read every item through a pipeline and rank them exactly.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and pings it. An empty prefix defaults to "vibematch:".
func NewRedisStore(ctx context.Context, addr string, db int, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = "vibematch:"
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, wrapFailure("ping redis", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

// Type returns the store type identifier.
func (r *RedisStore) Type() string { return string(TypeRedis) }

func (r *RedisStore) idsKey() string { return r.prefix + "ids" }
func (r *RedisStore) seqKey() string { return r.prefix + "seq" }
func (r *RedisStore) dimsKey() string { return r.prefix + "dims" }
func (r *RedisStore) itemKey(id string) string { return r.prefix + "item:" + id }

// Upsert writes items in one pipeline. Existing ids keep their original position.
func (r *RedisStore) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	current := 0
	val, err := r.client.Get(ctx, r.dimsKey()).Result()
	switch {
	case err == redis.Nil:
	case err != nil:
		return wrapFailure("read dimensions", err)
	default:
		if current, err = strconv.Atoi(val); err != nil {
			return wrapFailure("parse dimensions", err)
		}
	}
	dims, err := checkDims(current, items)
	if err != nil {
		return err
	}

	last, err := r.client.IncrBy(ctx, r.seqKey(), int64(len(items))).Result()
	if err != nil {
		return wrapFailure("reserve sequence", err)
	}
	first := last - int64(len(items)) + 1

	pipe := r.client.TxPipeline()
	pipe.SetNX(ctx, r.dimsKey(), dims, 0)
	for i, it := range items {
		meta, err := json.Marshal(it.Metadata)
		if err != nil {
			return wrapFailure("encode metadata", err)
		}
		pipe.HSet(ctx, r.itemKey(it.ID), "vector", float32SliceToBytes(it.Vector), "metadata", meta)
		pipe.ZAddNX(ctx, r.idsKey(), redis.Z{Score: float64(first + int64(i)), Member: it.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapFailure("upsert", err)
	}
	return nil
}

// Query ranks every stored item against vec.
func (r *RedisStore) Query(ctx context.Context, vec []float32, k int) ([]*QueryMatch, error) {
	ids, err := r.client.ZRange(ctx, r.idsKey(), 0, -1).Result()
	if err != nil {
		return nil, wrapFailure("list ids", err)
	}
	if len(ids) == 0 {
		return exactQuery(nil, vec, k)
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.itemKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, wrapFailure("read items", err)
	}

	items := make([]Item, 0, len(ids))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			return nil, wrapFailure("read item "+ids[i], err)
		}
		if len(fields) == 0 {
			continue
		}
		it := Item{ID: ids[i], Vector: bytesToFloat32Slice([]byte(fields["vector"]))}
		if m := fields["metadata"]; m != "" {
			if err := json.Unmarshal([]byte(m), &it.Metadata); err != nil {
				return nil, wrapFailure("decode metadata", err)
			}
		}
		items = append(items, it)
	}
	return exactQuery(items, vec, k)
}

// Size returns the number of stored ids.
func (r *RedisStore) Size(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, r.idsKey()).Result()
	if err != nil {
		return 0, wrapFailure("count ids", err)
	}
	return int(n), nil
}

// Clear removes every key written under the prefix.
func (r *RedisStore) Clear(ctx context.Context) error {
	ids, err := r.client.ZRange(ctx, r.idsKey(), 0, -1).Result()
	if err != nil {
		return wrapFailure("list ids", err)
	}
	keys := []string{r.idsKey(), r.seqKey(), r.dimsKey()}
	for _, id := range ids {
		keys = append(keys, r.itemKey(id))
	}
	return wrapFailure("delete keys", r.client.Del(ctx, keys...).Err())
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
