// internal/submission/controller.go
//
// Pesquisa – submission state machine.
//
// Context
//   One Controller belongs to one respondent.  It owns the record being
//   edited and drives a submit attempt through
//
//      Idle → Validating → ValidationFailed
//                        → Normalizing → Delivering → Success
//                                                   → DuplicateConflict
//                                                   → NetworkError
//                                                   → UnexpectedError
//
//   Any terminal phase may start a new attempt.  Success consumes the record;
//   the failure phases keep it untouched for editing.
//
// Concurrency
//   An attempt runs to completion on the caller's goroutine.  Submit while
//   an attempt is in flight returns false at once: nothing is queued and the
//   in-flight attempt is the only outcome anyone sees.  The busy flag is an
//   atomic CAS, so two racing Submits can never both pass it.
//
// Notes
//   •  No timeout and no cancellation here.  The transport owns timeouts and
//      they surface as NetworkError.
//   •  Hooks run after the state is published, outside the lock.
//
//------------------------------------------------------------------------------

package submission

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanizio/pesquisa/internal/delivery"
	"github.com/yanizio/pesquisa/internal/form"
	"github.com/yanizio/pesquisa/internal/logger"
	"github.com/yanizio/pesquisa/internal/metrics"
	"github.com/yanizio/pesquisa/internal/survey"
)

// Transition is passed to hooks on every phase change.
type Transition struct {
	From, To Phase
	Strategy string
	Record   survey.Record   // frozen record of the attempt
	Err      *delivery.Error // delivery failures only
	Elapsed  time.Duration   // time since the attempt started
}

// Hook observes transitions.
type Hook func(ctx context.Context, t Transition)

// Option customises a Controller.
type Option func(*Controller)

// WithHook adds an observer.
func WithHook(h Hook) Option { return func(c *Controller) { c.hooks = append(c.hooks, h) } }

// Controller runs submit attempts for one respondent.
type Controller struct {
	strategy delivery.Strategy
	referral string
	hooks    []Hook

	busy atomic.Bool

	mu     sync.Mutex
	state  State
	record survey.Record
}

// New returns an idle controller holding an empty record.  A non-blank
// referral pre-fills and locks the responsible party.
func New(s delivery.Strategy, referral string, opts ...Option) *Controller {
	c := &Controller{
		strategy: s,
		referral: referral,
		record:   survey.NewRecord(referral),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Errors = append([]form.ErrorField(nil), c.state.Errors...)
	st.Busy = c.busy.Load()
	return st
}

// Referral returns the responsible party this controller is locked to, or "".
func (c *Controller) Referral() string { return c.referral }

// Record returns a copy of the record being edited.
func (c *Controller) Record() survey.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.Snapshot()
}

// Edit mutates the held record.  It returns false, without calling fn, while
// an attempt is in flight.
func (c *Controller) Edit(fn func(*survey.Record)) bool {
	if c.busy.Load() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.record)
	c.relock()
	return true
}

// Reset drops the current record and returns to Idle.  Ignored while busy.
func (c *Controller) Reset() bool {
	if !c.busy.CompareAndSwap(false, true) {
		return false
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	c.record = survey.NewRecord(c.referral)
	c.state = State{Phase: Idle}
	c.mu.Unlock()
	return true
}

// Submit replaces the held record with rec and runs one attempt against it.
// It returns false when an attempt is already in flight.
func (c *Controller) Submit(ctx context.Context, rec survey.Record) bool {
	if !c.busy.CompareAndSwap(false, true) {
		metrics.SubmissionsTotal.WithLabelValues("ignored").Inc()
		logger.FromContext(ctx).Debugw("submit ignored, attempt in flight")
		return false
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	c.record = rec.Snapshot()
	c.relock()
	frozen := c.record.Snapshot()
	c.mu.Unlock()

	c.run(ctx, frozen)
	return true
}

// Resubmit runs an attempt against the record already held.
func (c *Controller) Resubmit(ctx context.Context) bool {
	return c.Submit(ctx, c.Record())
}

func (c *Controller) run(ctx context.Context, rec survey.Record) {
	log := logger.FromContext(ctx)
	start := time.Now()
	name := c.strategy.Name()

	c.move(ctx, Transition{To: Validating, Strategy: name, Record: rec}, State{Phase: Validating})

	res := form.Validate(rec)
	if !res.Valid {
		c.move(ctx, Transition{To: ValidationFailed, Strategy: name, Record: rec, Elapsed: time.Since(start)},
			State{Phase: ValidationFailed, Errors: res.Errors})
		metrics.SubmissionsTotal.WithLabelValues(ValidationFailed.String()).Inc()
		log.Debugw("submission invalid", "errors", len(res.Errors))
		return
	}

	// The strategy derives its own payload shape from the frozen record.
	c.move(ctx, Transition{To: Normalizing, Strategy: name, Record: rec, Elapsed: time.Since(start)},
		State{Phase: Normalizing})
	c.move(ctx, Transition{To: Delivering, Strategy: name, Record: rec, Elapsed: time.Since(start)},
		State{Phase: Delivering})

	dStart := time.Now()
	receipt, err := c.strategy.Deliver(ctx, rec)
	metrics.DeliverySeconds.WithLabelValues(name).Observe(time.Since(dStart).Seconds())

	if err == nil {
		c.mu.Lock()
		c.record = survey.NewRecord(c.referral)
		c.mu.Unlock()

		c.move(ctx, Transition{To: Success, Strategy: name, Record: rec, Elapsed: time.Since(start)},
			State{Phase: Success, ReceiptID: receipt.ID, Link: receipt.Link})
		metrics.SubmissionsTotal.WithLabelValues(Success.String()).Inc()
		log.Infow("submission delivered", "strategy", name, "id", receipt.ID)
		return
	}

	de := delivery.AsError(err)
	next := State{Message: de.Message}
	switch de.Kind {
	case delivery.KindDuplicate:
		next.Phase, next.Field = DuplicateConflict, de.Field
	case delivery.KindNetwork:
		next.Phase = NetworkError
	default:
		next.Phase = UnexpectedError
	}

	c.move(ctx, Transition{To: next.Phase, Strategy: name, Record: rec, Err: de, Elapsed: time.Since(start)}, next)
	metrics.SubmissionsTotal.WithLabelValues(next.Phase.String()).Inc()
	log.Warnw("submission failed", "strategy", name, "kind", de.Kind.String(), "detail", de.Detail)
}

// move publishes next and notifies hooks.
func (c *Controller) move(ctx context.Context, t Transition, next State) {
	c.mu.Lock()
	t.From = c.state.Phase
	c.state = next
	c.mu.Unlock()

	for _, h := range c.hooks {
		h(ctx, t)
	}
}

// relock restores a referral-locked responsible party that an incoming
// record may have dropped or changed.  Caller holds mu.
func (c *Controller) relock() {
	if c.referral == "" {
		return
	}
	locked := survey.NewRecord(c.referral)
	c.record.Responsible = locked.Responsible
	c.record.ResponsibleLocked = true
}
