/*
Package rediscache caches directory snapshots in Redis.

PURPOSE:
  Sits in front of any coverage.SyncAdapter (normally the SQLite store) and
  serves repeated window loads from Redis. Schedules are read far more often
  than they are edited: every view switch hydrates a window.

KEYS:
  coverage:schedule:{id}:snapshots   hash, field = window ("[start, end]"),
                                     value = JSON coverage.Snapshot
  coverage:schedule:{id}:gen         counter, bumped by Invalidate
  coverage:generation                counter, bumped by InvalidateAll

INVALIDATION:
  A successful mutation bumps the schedule's generation and drops its hash.
  Roster and catalog edits go through InvalidateAll because every schedule
  embeds them.

  A miss reads both generations before loading from the wrapped adapter and
  writes the snapshot under WATCH only if neither moved. A load that raced
  a mutation is returned to its caller but never cached.

FAILURE MODE:
  Redis errors are logged and the call falls through to the wrapped adapter.
  The cache never turns a healthy load into a failed one.

SEE ALSO:
  - coverage/sync.go: SyncAdapter contract
  - store/sqlite: the usual backing adapter
*/
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/coverage-engine/coverage"
)

const (
	keyPrefix     = "coverage:schedule:"
	globalGenKey  = "coverage:generation"
	snapshotsGlob = keyPrefix + "*:snapshots"
)

// errSuperseded aborts a cache fill whose generation moved during the load.
var errSuperseded = errors.New("snapshot superseded by a mutation")

// DefaultTTL bounds how long a snapshot is served without a mutation.
const DefaultTTL = 5 * time.Minute

// Directory is a read-through cache decorator over a SyncAdapter.
type Directory struct {
	next  coverage.SyncAdapter
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

// Option configures a Directory.
type Option func(*Directory)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for cache faults.
func WithLogger(log *zap.Logger) Option {
	return func(d *Directory) {
		if log != nil {
			d.log = log
		}
	}
}

// New wraps next with a Redis cache.
func New(next coverage.SyncAdapter, client *redis.Client, opts ...Option) *Directory {
	d := &Directory{next: next, redis: client, ttl: DefaultTTL, log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func hashKey(id coverage.ScheduleID) string {
	return fmt.Sprintf("%s%d:snapshots", keyPrefix, id)
}

func genKey(id coverage.ScheduleID) string {
	return fmt.Sprintf("%s%d:gen", keyPrefix, id)
}

type mgetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// generation reads the schedule and global counters as one token.
func generation(ctx context.Context, c mgetter, id coverage.ScheduleID) (string, error) {
	vals, err := c.MGet(ctx, genKey(id), globalGenKey).Result()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v/%v", vals[0], vals[1]), nil
}

// Load serves the window from cache, filling it on a miss.
func (d *Directory) Load(ctx context.Context, q coverage.DirectoryQuery) (coverage.Snapshot, error) {
	key, field := hashKey(q.ScheduleID), q.Range.String()

	raw, err := d.redis.HGet(ctx, key, field).Bytes()
	switch {
	case err == nil:
		var snap coverage.Snapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return snap, nil
		}
		d.log.Warn("discarding undecodable snapshot", zap.String("key", key), zap.String("window", field))
	case !errors.Is(err, redis.Nil):
		d.log.Warn("snapshot cache read failed", zap.Error(err), zap.Int64("schedule_id", int64(q.ScheduleID)))
	}

	gen, genErr := generation(ctx, d.redis, q.ScheduleID)
	snap, err := d.next.Load(ctx, q)
	if err != nil {
		return coverage.Snapshot{}, err
	}
	if genErr != nil {
		d.log.Warn("snapshot generation read failed, not caching", zap.Error(genErr), zap.Int64("schedule_id", int64(q.ScheduleID)))
		return snap, nil
	}
	d.store(ctx, q.ScheduleID, gen, key, field, snap)
	return snap, nil
}

// store writes snap only while the schedule's generation still equals gen.
func (d *Directory) store(ctx context.Context, id coverage.ScheduleID, gen, key, field string, snap coverage.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		d.log.Warn("snapshot encode failed", zap.Error(err))
		return
	}
	err = d.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx, id)
		if err != nil {
			return err
		}
		if current != gen {
			return errSuperseded
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, field, payload)
			p.Expire(ctx, key, d.ttl)
			return nil
		})
		return err
	}, genKey(id), globalGenKey)

	switch {
	case err == nil:
	case errors.Is(err, errSuperseded), errors.Is(err, redis.TxFailedErr):
		d.log.Debug("snapshot superseded, not cached", zap.String("key", key), zap.String("window", field))
	default:
		d.log.Warn("snapshot cache write failed", zap.Error(err), zap.String("key", key))
	}
}

// SetAssignment forwards the write and drops the schedule's cached windows.
func (d *Directory) SetAssignment(ctx context.Context, req coverage.SetAssignmentRequest) error {
	if err := d.next.SetAssignment(ctx, req); err != nil {
		return err
	}
	d.Invalidate(ctx, req.ScheduleID)
	return nil
}

// BulkSetAssignments forwards the batch and drops the schedule's cached windows.
func (d *Directory) BulkSetAssignments(ctx context.Context, req coverage.BulkSetRequest) error {
	if err := d.next.BulkSetAssignments(ctx, req); err != nil {
		return err
	}
	d.Invalidate(ctx, req.ScheduleID)
	return nil
}

// Invalidate bumps the schedule's generation and drops its cached windows.
func (d *Directory) Invalidate(ctx context.Context, id coverage.ScheduleID) {
	_, err := d.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey(id))
		p.Del(ctx, hashKey(id))
		return nil
	})
	if err != nil {
		d.log.Warn("snapshot cache invalidation failed", zap.Error(err), zap.Int64("schedule_id", int64(id)))
	}
}

// InvalidateAll bumps the global generation and drops every cached
// snapshot, for roster and catalog edits.
func (d *Directory) InvalidateAll(ctx context.Context) {
	if err := d.redis.Incr(ctx, globalGenKey).Err(); err != nil {
		d.log.Warn("snapshot cache invalidation failed", zap.Error(err))
		return
	}
	iter := d.redis.Scan(ctx, 0, snapshotsGlob, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		d.log.Warn("snapshot cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := d.redis.Del(ctx, keys...).Err(); err != nil {
		d.log.Warn("snapshot cache invalidation failed", zap.Error(err))
	}
}

// Ping checks the Redis connection.
func (d *Directory) Ping(ctx context.Context) error {
	return d.redis.Ping(ctx).Err()
}
