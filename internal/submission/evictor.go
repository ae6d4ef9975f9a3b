// evictor.go houses the eviction loop for Registry.  Every tick it scans the
// map and removes:
//
//   - controllers idle longer than idleTTL
//   - least-recently-used controllers when map size exceeds maxEntries
//
// Controllers with an attempt in flight are skipped on both passes.  Each
// eviction updates Prometheus counters.
package submission

import (
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/pesquisa/internal/metrics"
)

func (r *Registry) evictLoop() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case <-r.evictTicker.C:
			r.evict(time.Now())
		}
	}
}

func (r *Registry) evict(now time.Time) {
	var count int

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	r.m.Range(func(key, value any) bool {
		count++
		ent := value.(*entry)
		idle := time.Duration(now.UnixNano() - atomic.LoadInt64(&ent.lastSeen))
		if idle > r.idleTTL && !ent.ctl.busy.Load() {
			if r.m.CompareAndDelete(key, value) {
				count--
				zap.S().Debugw("respondent evicted", "idle", idle.Truncate(time.Second))
				metrics.RespondentEvictTotal.Inc()
				metrics.ActiveRespondents.Dec()
			}
		}
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	if r.maxEntries <= 0 || count <= r.maxEntries {
		return
	}
	type kv struct {
		key string
		at  int64
		ent *entry
	}
	var all []kv
	r.m.Range(func(key, value any) bool {
		ent := value.(*entry)
		all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&ent.lastSeen), ent: ent})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })

	excess := len(all) - r.maxEntries
	for i := 0; i < len(all) && excess > 0; i++ {
		if all[i].ent.ctl.busy.Load() {
			continue
		}
		if r.m.CompareAndDelete(all[i].key, all[i].ent) {
			excess--
			zap.S().Debugw("respondent evicted (LRU pressure)")
			metrics.RespondentEvictTotal.Inc()
			metrics.ActiveRespondents.Dec()
		}
	}
}
