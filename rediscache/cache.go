package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/redis/go-redis/v9"
)

// Cache shares published metadata between processes through Redis.
// It implements metadata.Updater and metadata.Loader.
//
// Key layout, with the default prefix:
//
//	portmeta:type:<id>    string, the type name
//	portmeta:fields:<id>  hash, field id -> JSON field
//
// Every type that gains fields is announced on Config.Channel.
type Cache struct {
	client *redis.Client
	cfg    Config

	observer observability.Observer
	logger   Logger

	shutdownSignal    chan struct{}
	closeShutdownOnce sync.Once
}

// notification is published on the update channel.
type notification struct {
	TypeID metadata.TypeID `json:"type_id"`
	Origin string          `json:"origin,omitempty"`
	Added  int             `json:"added"`
}

// NewCache connects to Redis and pings it.
func NewCache(cfg Config) (*Cache, error) {
	cfg = cfg.withDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, TranslateError(err)
	}
	return NewCacheWithClient(client, cfg), nil
}

// NewCacheWithClient creates a Cache around an existing client.
func NewCacheWithClient(client *redis.Client, cfg Config) *Cache {
	return &Cache{
		client:         client,
		cfg:            cfg.withDefaults(),
		shutdownSignal: make(chan struct{}),
	}
}

// WithObserver attaches an observer to the cache.
func (c *Cache) WithObserver(observer observability.Observer) *Cache {
	c.observer = observer
	return c
}

// WithLogger attaches a logger to the cache.
func (c *Cache) WithLogger(logger Logger) *Cache {
	c.logger = logger
	return c
}

func (c *Cache) typeKey(id metadata.TypeID) string {
	return c.cfg.Prefix + "type:" + strconv.FormatInt(int64(id), 10)
}

func (c *Cache) fieldsKey(id metadata.TypeID) string {
	return c.cfg.Prefix + "fields:" + strconv.FormatInt(int64(id), 10)
}

// Push merges updates into Redis, one optimistic transaction per type.
// Fields are written with HSETNX, so pushing the same payload twice is not an error.
// A stored field or type name that clashes with the update fails with a
// *metadata.ConflictError before anything of that type is written.
func (c *Cache) Push(ctx context.Context, updates map[metadata.TypeID]metadata.TypeUpdate) (err error) {
	start := time.Now()
	defer func() {
		c.observeOperation("push", c.cfg.Prefix, "", time.Since(start), err, int64(metadata.CountFields(updates)))
	}()

	if len(updates) == 0 {
		return nil
	}

	ids := make([]metadata.TypeID, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err = c.pushType(ctx, updates[id]); err != nil {
			err = classify(err)
			c.logWarn(ctx, "Failed to push metadata to redis", err, map[string]interface{}{
				"type_id": id,
			})
			return err
		}
	}
	return nil
}

func (c *Cache) pushType(ctx context.Context, u metadata.TypeUpdate) error {
	typeKey, fieldsKey := c.typeKey(u.TypeID), c.fieldsKey(u.TypeID)

	txf := func(tx *redis.Tx) error {
		name, stored, found, err := readType(ctx, tx, typeKey, fieldsKey)
		if err != nil {
			return err
		}

		var base metadata.FieldSet
		if found {
			if name != u.TypeName {
				return &metadata.ConflictError{TypeID: u.TypeID, TypeName: name, IncomingTypeName: u.TypeName}
			}
			if base, err = metadata.NewFieldSet(stored...); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidData, fieldsKey, err)
			}
		}

		_, added, err := metadata.MergeFieldSets(base, u.Fields)
		if err != nil {
			var ce *metadata.ConflictError
			if errors.As(err, &ce) {
				ce.TypeID = u.TypeID
				ce.TypeName = u.TypeName
			}
			return err
		}
		if found && len(added) == 0 {
			return nil
		}

		values := make([][2]string, 0, len(added))
		for _, f := range added {
			data, err := json.Marshal(f)
			if err != nil {
				return err
			}
			values = append(values, [2]string{strconv.FormatInt(int64(f.ID), 10), string(data)})
		}
		note, err := json.Marshal(notification{TypeID: u.TypeID, Origin: c.cfg.Origin, Added: len(added)})
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, typeKey, u.TypeName, 0)
			for _, v := range values {
				pipe.HSetNX(ctx, fieldsKey, v[0], v[1])
			}
			pipe.Publish(ctx, c.cfg.Channel, note)
			return nil
		})
		return err
	}

	for i := 0; i < c.cfg.MaxTxRetries; i++ {
		err := c.client.Watch(ctx, txf, typeKey, fieldsKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("%w: type %d after %d attempts", ErrTxConflict, u.TypeID, c.cfg.MaxTxRetries)
}

// typeReader is satisfied by *redis.Client and *redis.Tx.
type typeReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// readType reads a type name and its fields. A missing type is reported with
// found == false.
func readType(ctx context.Context, cmd typeReader, typeKey, fieldsKey string) (name string, fields []metadata.Field, found bool, err error) {
	name, err = cmd.Get(ctx, typeKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, err
	}

	raw, err := cmd.HGetAll(ctx, fieldsKey).Result()
	if err != nil {
		return "", nil, false, err
	}
	fields, err = decodeFields(raw)
	if err != nil {
		return "", nil, false, fmt.Errorf("%w: %s: %v", ErrInvalidData, fieldsKey, err)
	}
	return name, fields, true, nil
}

// decodeFields decodes a fields hash, ordered by field id.
func decodeFields(raw map[string]string) ([]metadata.Field, error) {
	fields := make([]metadata.Field, 0, len(raw))
	for k, v := range raw {
		var f metadata.Field
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			return nil, err
		}
		if strconv.FormatInt(int64(f.ID), 10) != k {
			return nil, fmt.Errorf("field %q stored under id %s", f.Name, k)
		}
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })
	return fields, nil
}

// Load scans the type keys and returns every type with its fields, ordered by type id.
func (c *Cache) Load(ctx context.Context) (updates []metadata.TypeUpdate, err error) {
	start := time.Now()
	defer func() {
		c.observeOperation("load", c.cfg.Prefix, "", time.Since(start), err, int64(len(updates)))
	}()

	typePrefix := c.cfg.Prefix + "type:"
	var ids []metadata.TypeID
	iter := c.client.Scan(ctx, 0, typePrefix+"*", DefaultScanCount).Iterator()
	for iter.Next(ctx) {
		id, perr := strconv.ParseInt(strings.TrimPrefix(iter.Val(), typePrefix), 10, 32)
		if perr != nil {
			c.logWarn(ctx, "Skipping unrecognized redis key", perr, map[string]interface{}{
				"key": iter.Val(),
			})
			continue
		}
		ids = append(ids, metadata.TypeID(id))
	}
	if err := iter.Err(); err != nil {
		return nil, classify(err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		u, found, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			updates = append(updates, u)
		}
	}
	return updates, nil
}

// Get returns one type with its fields.
func (c *Cache) Get(ctx context.Context, id metadata.TypeID) (metadata.TypeUpdate, bool, error) {
	name, fields, found, err := readType(ctx, c.client, c.typeKey(id), c.fieldsKey(id))
	if err != nil || !found {
		return metadata.TypeUpdate{}, false, classify(err)
	}
	return metadata.TypeUpdate{TypeID: id, TypeName: name, Fields: fields}, true, nil
}

// Close stops Follow and closes the client.
func (c *Cache) Close() error {
	c.closeShutdownOnce.Do(func() {
		close(c.shutdownSignal)
	})
	err := c.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

func (c *Cache) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (c *Cache) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.WarnWithContext(ctx, msg, err, fields)
	}
}
