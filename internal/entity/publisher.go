package entity

import (
	"fmt"
	"log/slog"
	"sync"
)

// Subscriber receives the events of a subscription, one at a time and in
// publication order, on a goroutine owned by the subscription.
//
// Returning an error from OnEvent (or panicking) cancels the subscription;
// OnError is then called once with the cause. OnComplete is called once when
// the publisher closes and every queued event has been delivered.
type Subscriber[K comparable, E any] interface {
	OnEvent(ev Event[K, E]) error
	OnError(err error)
	OnComplete()
}

// SubscriberFuncs adapts plain functions to Subscriber. Nil fields are no-ops.
type SubscriberFuncs[K comparable, E any] struct {
	Event    func(ev Event[K, E]) error
	Error    func(err error)
	Complete func()
}

func (f SubscriberFuncs[K, E]) OnEvent(ev Event[K, E]) error {
	if f.Event == nil {
		return nil
	}
	return f.Event(ev)
}

func (f SubscriberFuncs[K, E]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f SubscriberFuncs[K, E]) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}

// Publisher fans events out to subscriptions. Publish never blocks on a
// subscriber: every subscription owns an unbounded FIFO and a goroutine.
type Publisher[K comparable, E any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[K, E]]struct{}
	seq    uint64
	muted  int
	closed bool
	logger *slog.Logger
}

// NewPublisher creates a new publisher.
func NewPublisher[K comparable, E any](logger *slog.Logger) *Publisher[K, E] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher[K, E]{
		subs:   make(map[*Subscription[K, E]]struct{}),
		logger: logger,
	}
}

// Subscribe registers sub with the given kinds activated. Kinds can be
// changed later with Activate and Deactivate.
func (p *Publisher[K, E]) Subscribe(sub Subscriber[K, E], kinds ...Kind) *Subscription[K, E] {
	s := p.newSubscription(sub, kinds)
	p.start(s)
	return s
}

// SubscribeChan forwards events to a channel with the given buffer. The
// channel is closed when the publisher completes, the subscriber fails or
// the subscription is cancelled.
func (p *Publisher[K, E]) SubscribeChan(buffer int, kinds ...Kind) (<-chan Event[K, E], *Subscription[K, E]) {
	cs := &chanSubscriber[K, E]{ch: make(chan Event[K, E], buffer)}
	s := p.newSubscription(cs, kinds)
	cs.stop = s.stop
	p.start(s)
	return cs.ch, s
}

func (p *Publisher[K, E]) newSubscription(sub Subscriber[K, E], kinds []Kind) *Subscription[K, E] {
	s := &Subscription[K, E]{
		pub:  p,
		sub:  sub,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.Activate(kinds...)
	return s
}

func (p *Publisher[K, E]) start(s *Subscription[K, E]) {
	p.mu.Lock()
	closed := p.closed
	if !closed {
		p.subs[s] = struct{}{}
	}
	p.mu.Unlock()

	go s.run()
	if closed {
		s.complete()
	}
}

// Publish assigns the next sequence number to ev and queues it for every
// subscription that activated ev.Kind. It reports false when the publisher
// is muted or closed.
func (p *Publisher[K, E]) Publish(ev Event[K, E]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.muted > 0 {
		return false
	}
	p.seq++
	ev.Seq = p.seq
	for s := range p.subs {
		s.enqueue(ev)
	}
	return true
}

// Mute suppresses publication until a matching Unmute. Calls nest.
func (p *Publisher[K, E]) Mute() {
	p.mu.Lock()
	p.muted++
	p.mu.Unlock()
}

// Unmute re-enables publication once every Mute has been matched.
func (p *Publisher[K, E]) Unmute() {
	p.mu.Lock()
	if p.muted > 0 {
		p.muted--
	}
	p.mu.Unlock()
}

// Subscribers returns the number of live subscriptions.
func (p *Publisher[K, E]) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Close completes every subscription. Events already queued are still
// delivered; nothing published afterwards is.
func (p *Publisher[K, E]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	subs := make([]*Subscription[K, E], 0, len(p.subs))
	for s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()

	for _, s := range subs {
		s.complete()
	}
}

func (p *Publisher[K, E]) remove(s *Subscription[K, E]) {
	p.mu.Lock()
	delete(p.subs, s)
	p.mu.Unlock()
}

// Subscription is one subscriber's registration with a Publisher.
type Subscription[K comparable, E any] struct {
	pub *Publisher[K, E]
	sub Subscriber[K, E]

	mu         sync.Mutex
	active     [kindCount]bool
	queue      []Event[K, E]
	completing bool
	cancelled  bool

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Activate starts delivery of the given kinds.
func (s *Subscription[K, E]) Activate(kinds ...Kind) {
	s.mu.Lock()
	for _, k := range kinds {
		if k.valid() {
			s.active[k] = true
		}
	}
	s.mu.Unlock()
}

// Deactivate stops delivery of the given kinds. Events already queued are
// still delivered.
func (s *Subscription[K, E]) Deactivate(kinds ...Kind) {
	s.mu.Lock()
	for _, k := range kinds {
		if k.valid() {
			s.active[k] = false
		}
	}
	s.mu.Unlock()
}

// Active reports whether kind is delivered to this subscription.
func (s *Subscription[K, E]) Active(kind Kind) bool {
	if !kind.valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[kind]
}

// Cancel ends the subscription. No event is delivered after Cancel returns,
// except one whose handler is already running. Safe to call repeatedly and
// from inside the handler.
func (s *Subscription[K, E]) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.queue = nil
	s.mu.Unlock()
	s.terminate()
}

// Cancelled reports whether the subscription has ended for any reason.
func (s *Subscription[K, E]) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Done is closed when the delivery goroutine has exited.
func (s *Subscription[K, E]) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription[K, E]) enqueue(ev Event[K, E]) {
	s.mu.Lock()
	if s.cancelled || s.completing || !s.active[ev.Kind] {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev.clone())
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription[K, E]) complete() {
	s.mu.Lock()
	s.completing = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription[K, E]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription[K, E]) terminate() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.pub.remove(s)
		s.signal()
	})
}

func (s *Subscription[K, E]) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		if s.cancelled {
			s.mu.Unlock()
			if h, ok := s.sub.(cancelHook); ok {
				s.notify(h.onCancel)
			}
			return
		}
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue[0] = Event[K, E]{}
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if err := s.deliver(ev); err != nil {
				s.fail(err)
				return
			}
			continue
		}
		if s.completing {
			s.cancelled = true
			s.mu.Unlock()
			s.terminate()
			s.notify(s.sub.OnComplete)
			return
		}
		s.mu.Unlock()

		<-s.wake
	}
}

func (s *Subscription[K, E]) deliver(ev Event[K, E]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return s.sub.OnEvent(ev)
}

func (s *Subscription[K, E]) fail(err error) {
	s.mu.Lock()
	s.cancelled = true
	s.queue = nil
	s.mu.Unlock()
	s.terminate()

	s.pub.logger.Warn("subscriber failed, subscription cancelled", "error", err)
	s.notify(func() { s.sub.OnError(err) })
}

// notify runs a terminal callback, keeping a panic inside it from
// escaping the delivery goroutine.
func (s *Subscription[K, E]) notify(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.pub.logger.Error("subscriber callback panicked", "panic", r)
		}
	}()
	fn()
}

// cancelHook is implemented by subscribers that must release resources
// when their subscription is cancelled by the caller.
type cancelHook interface {
	onCancel()
}

type chanSubscriber[K comparable, E any] struct {
	ch        chan Event[K, E]
	stop      <-chan struct{}
	closeOnce sync.Once
}

func (c *chanSubscriber[K, E]) OnEvent(ev Event[K, E]) error {
	select {
	case c.ch <- ev:
	case <-c.stop:
	}
	return nil
}

// The delivery goroutine is the only sender, so closing from its terminal
// callbacks cannot race a send.
func (c *chanSubscriber[K, E]) finish() { c.closeOnce.Do(func() { close(c.ch) }) }

func (c *chanSubscriber[K, E]) OnError(error) { c.finish() }
func (c *chanSubscriber[K, E]) OnComplete()   { c.finish() }
func (c *chanSubscriber[K, E]) onCancel()     { c.finish() }
