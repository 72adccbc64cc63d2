// Package migrate implements the copy-and-swap migration engine of
// spec §4.D: relocate one host-store value to a target node by building a
// parallel structure there, then handing the caller the new value to
// publish in place of the old one. Grounded on
// original_source/src/numa_key_migrate.c, which does the same relocation
// against Redis's robj/dict/quicklist/intset/skiplist encodings; this
// package reimplements the per-kind algorithms against the plain Go
// structs in internal/values instead of carrying over any Redis-specific
// plumbing.
package migrate

import (
	"sync/atomic"
	"time"

	"github.com/nodalcore/numakv/internal/allocator"
	nkerrors "github.com/nodalcore/numakv/internal/errors"
	"github.com/nodalcore/numakv/internal/values"
)

// Store is the minimal host-store surface the migration engine needs: get
// a key's current value, atomically publish a replacement, and enumerate
// keys for migrate_all. The real store is out of scope (§1); callers
// outside this package own the concurrency discipline §4.D requires
// ("host must serialise the single write of the value pointer with its
// own readers").
type Store interface {
	Get(key string) (values.Value, bool)
	Set(key string, v values.Value)
	Keys() []string
}

// Result is the outcome of one migration, per §4.D's closed result set.
type Result string

const (
	ResultOK              Result = "ok"
	ResultNotFound        Result = "not-found"
	ResultInvalid         Result = "invalid"
	ResultOutOfMemory     Result = "out-of-memory"
	ResultUnsupportedKind Result = "unsupported-kind"
)

// NodeUpdateHook is called after a successful migration so a caller (the
// composite-LRU hot-key tracker, in this module's wiring) can update its
// own bookkeeping without this package importing internal/hotness.
type NodeUpdateHook func(key string, node int)

// Stats aggregates migration counters, per §4.D "Statistics update on
// every migration: total, successful, failed, cumulative bytes,
// cumulative time."
type Stats struct {
	Total             int64
	Successful        int64
	Failed            int64
	CumulativeBytes   int64
	CumulativeTimeNS  int64
}

// Engine performs per-kind copy-and-swap migrations using alloc to obtain
// the target-node scratch region each kind's bytes are copied through.
type Engine struct {
	alloc      *allocator.Allocator
	onMigrated NodeUpdateHook
	stats      Stats
}

// New builds a migration Engine backed by alloc.
func New(alloc *allocator.Allocator) *Engine {
	return &Engine{alloc: alloc}
}

// SetNodeUpdateHook installs the post-success hot-key update callback.
func (e *Engine) SetNodeUpdateHook(h NodeUpdateHook) { e.onMigrated = h }

// Snapshot returns a copy of the engine's running statistics.
func (e *Engine) Snapshot() Stats {
	return Stats{
		Total:            atomic.LoadInt64(&e.stats.Total),
		Successful:       atomic.LoadInt64(&e.stats.Successful),
		Failed:           atomic.LoadInt64(&e.stats.Failed),
		CumulativeBytes:  atomic.LoadInt64(&e.stats.CumulativeBytes),
		CumulativeTimeNS: atomic.LoadInt64(&e.stats.CumulativeTimeNS),
	}
}

// Reset zeroes the engine's running statistics, per the admin `migrate
// reset` command (§6).
func (e *Engine) Reset() {
	atomic.StoreInt64(&e.stats.Total, 0)
	atomic.StoreInt64(&e.stats.Successful, 0)
	atomic.StoreInt64(&e.stats.Failed, 0)
	atomic.StoreInt64(&e.stats.CumulativeBytes, 0)
	atomic.StoreInt64(&e.stats.CumulativeTimeNS, 0)
}

// MigrateValue relocates one key's value to targetNode, per §4.D.
func (e *Engine) MigrateValue(store Store, key string, targetNode int) Result {
	if targetNode < 0 {
		return ResultInvalid
	}
	atomic.AddInt64(&e.stats.Total, 1)
	val, ok := store.Get(key)
	if !ok {
		atomic.AddInt64(&e.stats.Failed, 1)
		return ResultNotFound
	}

	start := time.Now()
	newVal, byteCount, err := e.migrateKind(val, targetNode)
	if err != nil {
		atomic.AddInt64(&e.stats.Failed, 1)
		switch nkerrors.AsCode(err) {
		case nkerrors.CodeOutOfMemory:
			return ResultOutOfMemory
		case nkerrors.CodeUnsupportedKind:
			return ResultUnsupportedKind
		default:
			return ResultInvalid
		}
	}

	store.Set(key, newVal)
	if e.onMigrated != nil {
		e.onMigrated(key, targetNode)
	}

	atomic.AddInt64(&e.stats.Successful, 1)
	atomic.AddInt64(&e.stats.CumulativeBytes, int64(byteCount))
	atomic.AddInt64(&e.stats.CumulativeTimeNS, int64(time.Since(start)))
	return ResultOK
}

// MigrateMany migrates each key in keys, returning the overall result
// (ok if at least one key succeeded, per §4.D) plus each key's individual
// result.
func (e *Engine) MigrateMany(store Store, keys []string, targetNode int) (Result, map[string]Result) {
	per := make(map[string]Result, len(keys))
	successCount := 0
	for _, k := range keys {
		r := e.MigrateValue(store, k, targetNode)
		per[k] = r
		if r == ResultOK {
			successCount++
		}
	}
	if successCount > 0 {
		return ResultOK, per
	}
	if len(keys) == 0 {
		return ResultOK, per
	}
	return ResultNotFound, per
}

// MigrateAll migrates every key store currently holds, per §4.D.
func (e *Engine) MigrateAll(store Store, targetNode int) Result {
	overall, _ := e.MigrateMany(store, store.Keys(), targetNode)
	return overall
}
