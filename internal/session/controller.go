package session

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/fpang/area-calc/internal/filehandler"
	"github.com/fpang/area-calc/internal/measure"
	"github.com/fpang/area-calc/internal/units"
	"github.com/rs/zerolog/log"
)

var (
	// ErrStopped is returned by Controller methods once Run has returned.
	ErrStopped = errors.New("session controller stopped")
	// ErrInternal is returned to a caller whose event panicked while being
	// handled. The controller keeps running.
	ErrInternal = errors.New("session controller failed to handle event")
)

// Measurer performs one measurement attempt.
type Measurer interface {
	Measure(ctx context.Context, req measure.Request) (*measure.Result, error)
}

// Listener is called on the controller goroutine after every committed
// change. It must not call back into the Controller synchronously.
type Listener func(View)

// Controller owns a Session and applies every change to it from a single
// goroutine. The network call runs on its own goroutine and reports back
// through the same event queue, tagged with its submission ticket.
type Controller struct {
	session  *Session
	measurer Measurer
	listener Listener

	events chan interface{}
	done   chan struct{}

	cancelRequest context.CancelFunc
	waiters       map[uint64]chan View
}

// events
type (
	evtSelectImage struct {
		sel  filehandler.Selection
		info string
		done chan struct{}
	}
	evtSelectUnit struct {
		unit units.Unit
		done chan struct{}
	}
	evtAcquisitionFailed struct {
		err  error
		done chan struct{}
	}
	evtSubmit struct {
		reply chan submitReply
	}
	evtSettled struct {
		ticket uint64
		result *measure.Result
		err    error
	}
	evtCancelInFlight struct {
		done chan struct{}
	}
	evtSnapshot struct {
		reply chan snapshotReply
	}
)

type submitReply struct {
	settled <-chan View
	err     error
}

type snapshotReply struct {
	view View
	err  error
}

// NewController creates a controller. listener may be nil. Call Run to
// start processing.
func NewController(m Measurer, listener Listener) *Controller {
	return &Controller{
		session:  New(),
		measurer: m,
		listener: listener,
		events:   make(chan interface{}, 16),
		done:     make(chan struct{}),
		waiters:  make(map[uint64]chan View),
	}
}

// Run processes events until ctx is done. Any in-flight request is
// cancelled on return. Run must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	log.Debug().Msg("Session controller started")

	for {
		select {
		case <-ctx.Done():
			c.abortRequest()
			c.releaseWaiters()
			log.Debug().Msg("Session controller stopped")
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("recovered from panic in session controller")
		}
	}()

	// Callers are released by defers so a panic below still answers them.
	switch e := ev.(type) {
	case evtSelectImage:
		defer close(e.done)
		c.abortRequest()
		c.session.SelectImage(e.sel, e.info)
		c.changed()
	case evtSelectUnit:
		defer close(e.done)
		c.abortRequest()
		c.session.SelectUnit(e.unit)
		c.changed()
	case evtAcquisitionFailed:
		defer close(e.done)
		if c.session.AcquisitionFailed(e.err) {
			c.changed()
		}
	case evtSubmit:
		reply := submitReply{err: ErrInternal}
		defer func() { e.reply <- reply }()
		reply = c.submit(ctx)
	case evtSettled:
		if c.session.Complete(e.ticket, e.result, e.err) {
			if c.cancelRequest != nil {
				c.cancelRequest()
				c.cancelRequest = nil
			}
			c.changed()
		}
	case evtCancelInFlight:
		defer close(e.done)
		if c.session.Status() == InFlight && c.cancelRequest != nil {
			log.Info().Uint64("ticket", c.session.Ticket()).Msg("Cancelling in-flight measurement")
			c.cancelRequest()
		}
	case evtSnapshot:
		reply := snapshotReply{err: ErrInternal}
		defer func() { e.reply <- reply }()
		reply = snapshotReply{view: c.session.View()}
	}
}

func (c *Controller) submit(ctx context.Context) submitReply {
	sub, err := c.session.Begin()
	if errors.Is(err, ErrBusy) {
		log.Debug().Msg("Submission refused, measurement in progress")
		return submitReply{err: err}
	}
	if err != nil {
		c.changed()
		return submitReply{err: err}
	}

	reqCtx, cancel := context.WithCancel(ctx)
	c.cancelRequest = cancel
	settled := make(chan View, 1)
	c.waiters[sub.Ticket] = settled

	log.Info().
		Uint64("ticket", sub.Ticket).
		Str("image", sub.Request.Image.Path).
		Str("unit", sub.Request.Unit.String()).
		Msg("Submitting measurement")

	go func() {
		result, err := c.measurer.Measure(reqCtx, sub.Request)
		c.post(evtSettled{ticket: sub.Ticket, result: result, err: err})
	}()

	c.changed()
	return submitReply{settled: settled}
}

// abortRequest cancels the outstanding request, if any. Its settlement will
// arrive with a stale ticket once the session has been reset.
func (c *Controller) abortRequest() {
	if c.cancelRequest != nil {
		c.cancelRequest()
		c.cancelRequest = nil
	}
}

// changed notifies the listener and any submitter whose request is no
// longer in flight.
func (c *Controller) changed() {
	v := c.session.View()
	if c.listener != nil {
		c.listener(v)
	}
	if v.Status != InFlight {
		c.releaseWaiters()
	}
}

func (c *Controller) releaseWaiters() {
	v := c.session.View()
	for ticket, ch := range c.waiters {
		ch <- v
		close(ch)
		delete(c.waiters, ticket)
	}
}

func (c *Controller) post(ev interface{}) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// call posts an event and waits until the loop has handled it.
func (c *Controller) call(ev interface{}, done chan struct{}) error {
	if !c.post(ev) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// SelectImage replaces the image, cancelling any in-flight request.
func (c *Controller) SelectImage(sel filehandler.Selection, info string) error {
	done := make(chan struct{})
	return c.call(evtSelectImage{sel: sel, info: info, done: done}, done)
}

// SelectUnit replaces the unit, cancelling any in-flight request.
func (c *Controller) SelectUnit(u units.Unit) error {
	done := make(chan struct{})
	return c.call(evtSelectUnit{unit: u, done: done}, done)
}

// AcquisitionFailed reports a failed or cancelled image pick.
func (c *Controller) AcquisitionFailed(err error) error {
	done := make(chan struct{})
	return c.call(evtAcquisitionFailed{err: err, done: done}, done)
}

// CancelInFlight aborts the outstanding request. The request settles as a
// transport failure.
func (c *Controller) CancelInFlight() error {
	done := make(chan struct{})
	return c.call(evtCancelInFlight{done: done}, done)
}

// Submit starts a measurement. On success the returned channel receives
// the view once the request is no longer in flight: settled, superseded by
// a selection change, or abandoned because the controller stopped.
// Precondition failures and ErrBusy are returned directly.
func (c *Controller) Submit() (<-chan View, error) {
	reply := make(chan submitReply, 1)
	if !c.post(evtSubmit{reply: reply}) {
		return nil, ErrStopped
	}
	select {
	case r := <-reply:
		return r.settled, r.err
	case <-c.done:
		return nil, ErrStopped
	}
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() (View, error) {
	reply := make(chan snapshotReply, 1)
	if !c.post(evtSnapshot{reply: reply}) {
		return View{}, ErrStopped
	}
	select {
	case r := <-reply:
		return r.view, r.err
	case <-c.done:
		return View{}, ErrStopped
	}
}
