package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/transport"
)

// Handlers is a subscriber bundle. Every callback is optional.
type Handlers[T any] struct {
	OnNext         func(value T)
	OnError        func(err *errors.Error)
	OnComplete     func()
	OnStatusChange func(status Status)
}

type subscriber[T any] struct {
	handlers Handlers[T]
	removed  atomic.Bool
}

// Subscription removes a subscriber bundle.
type Subscription struct {
	once   sync.Once
	remove func()
}

// Unsubscribe stops delivery to the bundle. It takes effect immediately,
// including for an event currently being delivered to other subscribers.
// Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.remove)
}

// Controller runs a stream Definition: it starts and stops a transport,
// hydrates raw values and fans events out to subscribers.
//
// All state changes and subscriber callbacks run one at a time. Calls made
// from inside a callback, or while another goroutine is delivering an event,
// are queued and run once the current event is done.
type Controller[Req, T any] struct {
	def     Definition[Req, T]
	id      string
	log     *logger.Logger
	metrics *observability.Metrics
	opts    options
	exec    executor

	mu        sync.RWMutex
	status    Status
	active    bool
	lastErr   *errors.Error
	transport transport.Transport

	// Owned by the executor.
	gen    uint64
	run    *observability.Run
	cancel context.CancelFunc

	subsMu sync.Mutex
	subs   []*subscriber[T]
}

// New validates def and returns an idle controller.
func New[Req, T any](def Definition[Req, T], opts ...Option) (*Controller[Req, T], error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.WithComponent("stream")
	}
	if o.factory == nil {
		o.factory = transport.New
	}

	id := uuid.NewString()
	return &Controller[Req, T]{
		def:     def,
		id:      id,
		log:     o.log.WithFields(logger.Fields(logger.FieldStream, def.name(), logger.FieldStreamID, id)),
		metrics: o.metrics,
		opts:    o,
		status:  StatusIdle,
	}, nil
}

// ID returns the controller identifier used in logs.
func (c *Controller[Req, T]) ID() string { return c.id }

// Definition returns the definition the controller was built from.
func (c *Controller[Req, T]) Definition() Definition[Req, T] { return c.def }

// Status returns the current status.
func (c *Controller[Req, T]) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// IsActive reports whether a run is in progress.
func (c *Controller[Req, T]) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// LastError returns the error that ended the latest run, if any.
func (c *Controller[Req, T]) LastError() *errors.Error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Start begins a run without a request. It is a no-op while active.
// Cancelling ctx aborts the run with a transport error.
//
// Start, StartWith and Stop take effect before they return, unless they are
// called from a callback or while another goroutine is delivering an event.
// In that case they are queued and Status reflects them only once that
// delivery ends.
func (c *Controller[Req, T]) Start(ctx context.Context) {
	c.exec.do(func() { c.start(ctx, nil) })
}

// StartWith begins a run and passes req through the request mapper.
func (c *Controller[Req, T]) StartWith(ctx context.Context, req Req) {
	c.exec.do(func() { c.start(ctx, &req) })
}

// Stop ends the current run. It is a no-op when nothing is running.
// See Start for when the stop takes effect.
func (c *Controller[Req, T]) Stop() {
	c.exec.do(c.stop)
}

// Subscribe registers h and returns its handle.
func (c *Controller[Req, T]) Subscribe(h Handlers[T]) *Subscription {
	s := &subscriber[T]{handlers: h}
	c.subsMu.Lock()
	c.subs = append(c.subs, s)
	c.subsMu.Unlock()

	return &Subscription{remove: func() {
		s.removed.Store(true)
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		for i, x := range c.subs {
			if x == s {
				// Copy so a fan-out iterating the old slice is unaffected.
				next := make([]*subscriber[T], 0, len(c.subs)-1)
				next = append(next, c.subs[:i]...)
				c.subs = append(next, c.subs[i+1:]...)
				return
			}
		}
	}}
}

// Send writes data to the active transport. Only duplex transports
// (WebSocket) accept it. Strings are sent as text, []byte as a binary frame
// and other values as JSON.
func (c *Controller[Req, T]) Send(data any) error {
	c.mu.RLock()
	tr := c.transport
	c.mu.RUnlock()

	if tr == nil {
		return errors.Transport("stream is not active", nil)
	}
	sender, ok := tr.(transport.Sender)
	if !ok {
		return errors.Transport(fmt.Sprintf("%s transport does not support send", c.def.Mode), nil)
	}
	return sender.Send(data)
}

func (c *Controller[Req, T]) start(ctx context.Context, req *Req) {
	if c.IsActive() {
		c.log.Debug("start ignored, stream already active")
		return
	}

	c.gen++
	gen := c.gen
	runID := uuid.NewString()
	c.run = observability.StartRun(ctx, c.opts.tracer, c.metrics, observability.RunInfo{
		Stream: c.def.name(),
		Mode:   string(c.def.Mode),
		RunID:  runID,
	})
	runLog := c.log.WithFields(logger.Fields(logger.FieldRunID, runID, logger.FieldMode, string(c.def.Mode)))

	c.mu.Lock()
	c.active = true
	c.lastErr = nil
	c.mu.Unlock()
	c.setStatus(StatusConnecting)

	tr, err := c.opts.factory(c.def.transportConfig(), transport.WithLogger(runLog))
	if err != nil {
		c.fail(errors.Wrap(err, errors.KindInternal, "create transport"))
		return
	}
	c.mu.Lock()
	c.transport = tr
	c.mu.Unlock()

	payload, perr := c.mapRequest(req)
	if perr != nil {
		c.fail(perr)
		return
	}

	runCtx, cancel := context.WithCancel(c.run.Context())
	c.cancel = cancel
	if err := tr.Connect(runCtx, c.handlersFor(gen), transport.ConnectOptions{Payload: payload}); err != nil {
		c.fail(errors.Wrap(err, errors.KindInternal, "connect transport"))
		return
	}

	// A connect call that returned cleanly counts as a live transport.
	if c.gen == gen && c.Status() == StatusConnecting {
		c.setStatus(StatusStreaming)
	}
	runLog.Debug("stream started", logger.Fields(logger.FieldEndpoint, c.def.Endpoint))
}

func (c *Controller[Req, T]) mapRequest(req *Req) (payload any, err *errors.Error) {
	if req == nil {
		return nil, nil
	}
	if c.def.RequestMapper == nil {
		return *req, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.FromPanic(r, errors.KindInternal, "request mapper panicked")
		}
	}()
	p, merr := c.def.RequestMapper(*req)
	if merr != nil {
		return nil, errors.Wrap(merr, errors.KindInternal, "map request")
	}
	return p, nil
}

// handlersFor binds driver callbacks to run gen. Callbacks from an older run
// are dropped.
func (c *Controller[Req, T]) handlersFor(gen uint64) transport.Handlers {
	return transport.Handlers{
		OnRaw: func(raw any) {
			c.exec.do(func() {
				if c.gen == gen {
					c.handleRaw(raw)
				}
			})
		},
		OnError: func(err *errors.Error) {
			c.exec.do(func() {
				if c.gen == gen {
					c.fail(err)
				}
			})
		},
		OnComplete: func() {
			c.exec.do(func() {
				if c.gen == gen {
					c.complete()
				}
			})
		},
	}
}

func (c *Controller[Req, T]) handleRaw(raw any) {
	prior := c.Status()
	value, err := c.hydrate(raw)
	if err != nil {
		c.fail(err.WithStatusBefore(string(prior)))
		return
	}
	if prior == StatusConnecting {
		c.setStatus(StatusStreaming)
	}
	c.run.Message()
	c.each(func(h Handlers[T]) {
		if h.OnNext != nil {
			h.OnNext(value)
		}
	})
}

func (c *Controller[Req, T]) hydrate(raw any) (value T, err *errors.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.FromPanic(r, errors.KindHydrate, "response hydrator panicked")
		}
	}()
	v, herr := c.def.ResponseHydrator(raw)
	if herr != nil {
		return value, errors.Hydrate("response hydration failed", herr)
	}
	return v, nil
}

// fail ends the run with err. Subscribers see status "error" first, then
// err, then any disconnect failure.
func (c *Controller[Req, T]) fail(err *errors.Error) {
	if err == nil {
		err = errors.Internal("unknown stream failure", nil)
	}
	if err.StatusBefore == "" {
		err = err.WithStatusBefore(string(c.Status()))
	}

	disconnectErr := c.release()
	c.mu.Lock()
	c.active = false
	c.lastErr = err
	c.mu.Unlock()
	c.setStatus(StatusError)

	c.log.Warn("stream failed", logger.Fields(logger.FieldKind, string(err.Kind), logger.FieldError, err.Error()))
	if c.run != nil {
		c.run.Error(string(err.Kind), err)
		c.run.End(string(StatusError), err)
	}
	c.emitError(err)
	if disconnectErr != nil {
		c.emitError(disconnectErr)
	}
}

func (c *Controller[Req, T]) complete() {
	disconnectErr := c.release()
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
	c.setStatus(StatusCompleted)

	c.log.Debug("stream completed")
	if c.run != nil {
		c.run.End(string(StatusCompleted), nil)
	}
	c.each(func(h Handlers[T]) {
		if h.OnComplete != nil {
			h.OnComplete()
		}
	})
	if disconnectErr != nil {
		c.emitError(disconnectErr)
	}
}

func (c *Controller[Req, T]) stop() {
	status := c.Status()
	if !c.IsActive() && status != StatusConnecting && status != StatusStreaming {
		return
	}

	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
	disconnectErr := c.release()
	c.setStatus(StatusStopped)

	c.log.Debug("stream stopped")
	if c.run != nil {
		c.run.End(string(StatusStopped), nil)
	}
	if disconnectErr != nil {
		c.emitError(disconnectErr)
	}
}

// release disconnects the current transport and invalidates its callbacks.
func (c *Controller[Req, T]) release() *errors.Error {
	c.gen++
	c.mu.Lock()
	tr := c.transport
	c.transport = nil
	c.mu.Unlock()

	var out *errors.Error
	if tr != nil {
		if err := tr.Disconnect(); err != nil {
			out = errors.Internal("transport disconnect failed", err)
			if e, ok := errors.As(err); ok && e.Kind == errors.KindInternal {
				out = e
			}
			c.log.Error("transport disconnect failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return out
}

func (c *Controller[Req, T]) setStatus(s Status) {
	c.mu.Lock()
	prev := c.status
	c.status = s
	c.mu.Unlock()
	if prev == s {
		return
	}

	c.log.Debug("status changed", logger.Fields("from", string(prev), logger.FieldStatus, string(s)))
	c.each(func(h Handlers[T]) {
		if h.OnStatusChange != nil {
			h.OnStatusChange(s)
		}
	})
}

func (c *Controller[Req, T]) emitError(err *errors.Error) {
	c.each(func(h Handlers[T]) {
		if h.OnError != nil {
			h.OnError(err)
		}
	})
}

// each calls fn for every subscriber registered when delivery starts and
// not removed before its turn.
func (c *Controller[Req, T]) each(fn func(Handlers[T])) {
	c.subsMu.Lock()
	subs := c.subs
	c.subsMu.Unlock()

	for _, s := range subs {
		if s.removed.Load() {
			continue
		}
		c.deliver(s, fn)
	}
}

func (c *Controller[Req, T]) deliver(s *subscriber[T], fn func(Handlers[T])) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("subscriber panicked", logger.Fields("panic", fmt.Sprint(r)))
		}
	}()
	fn(s.handlers)
}
