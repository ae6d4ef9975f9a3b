// internal/submission/registry.go
//
// Respondent controller registry.
//
// Context
// -------
// Each browser holding the intake form gets its own Controller, keyed by an
// opaque respondent id carried in a cookie.  Controllers are created lazily
// on first touch, kept in a sync.Map, and evicted by a background loop on
// idle TTL or LRU pressure (see evictor.go).  A referral link fixes the
// responsible party for the lifetime of the controller.
//
// Notes
// -----
//   - Creation is deduplicated with singleflight so two racing requests for
//     a new id end up sharing one Controller.
//   - Stop must be called to release the evictor goroutine.
//   - Oxford commas, two spaces after periods.
package submission

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/pesquisa/internal/delivery"
	"github.com/yanizio/pesquisa/internal/metrics"
)

// Static defaults.  Override via config.
const (
	IdleTTL       = 30 * time.Minute
	MaxEntries    = 10000
	EvictInterval = 5 * time.Minute
)

type entry struct {
	ctl      *Controller
	referral string
	lastSeen int64 // UnixNano
}

// Registry maps respondent ids to controllers.
type Registry struct {
	strategy delivery.Strategy
	opts     []Option

	sfg         singleflight.Group
	m           sync.Map
	idleTTL     time.Duration
	maxEntries  int
	evictTicker *time.Ticker
	stop        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
}

// NewRegistry constructs a Registry and starts the background evictor.
// Zero idleTTL, maxEntries, or interval fall back to the defaults above.
func NewRegistry(s delivery.Strategy, idleTTL time.Duration, maxEntries int, interval time.Duration, opts ...Option) *Registry {
	if idleTTL <= 0 {
		idleTTL = IdleTTL
	}
	if maxEntries <= 0 {
		maxEntries = MaxEntries
	}
	if interval <= 0 {
		interval = EvictInterval
	}
	r := &Registry{
		strategy:    s,
		opts:        opts,
		idleTTL:     idleTTL,
		maxEntries:  maxEntries,
		evictTicker: time.NewTicker(interval),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go r.evictLoop()
	return r
}

// Get returns the controller for id, creating it on demand.  A different
// non-empty referral replaces the existing controller with one locked to
// it, except while the existing one has an attempt in flight: then the
// busy controller is returned and its Submit reports false.
func (r *Registry) Get(id, referral string) *Controller {
	if ent, ok := r.load(id); ok && ent.keep(referral) {
		return ent.ctl
	}

	v, _, _ := r.sfg.Do(id, func() (any, error) {
		// Double-check after singleflight barrier.
		if ent, ok := r.load(id); ok && ent.keep(referral) {
			return ent.ctl, nil
		}
		ent := &entry{
			ctl:      New(r.strategy, referral, r.opts...),
			referral: referral,
			lastSeen: time.Now().UnixNano(),
		}
		if _, loaded := r.m.Swap(id, ent); !loaded {
			metrics.ActiveRespondents.Inc()
		}
		return ent.ctl, nil
	})
	return v.(*Controller)
}

// keep reports whether a request carrying referral may reuse e.
func (e *entry) keep(referral string) bool {
	return referral == "" || e.referral == referral || e.ctl.busy.Load()
}

// Peek returns the controller for id without creating one.
func (r *Registry) Peek(id string) (*Controller, bool) {
	ent, ok := r.load(id)
	if !ok {
		return nil, false
	}
	return ent.ctl, true
}

// Forget drops id.
func (r *Registry) Forget(id string) {
	if _, ok := r.m.LoadAndDelete(id); ok {
		metrics.ActiveRespondents.Dec()
	}
}

// Len reports how many controllers are held.
func (r *Registry) Len() int {
	n := 0
	r.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Stop halts the evictor and waits for it to exit.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		r.evictTicker.Stop()
		close(r.stop)
		<-r.done
	})
}

func (r *Registry) load(id string) (*entry, bool) {
	v, ok := r.m.Load(id)
	if !ok {
		return nil, false
	}
	ent := v.(*entry)
	atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
	return ent, true
}
