package entity

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type testEvent = Event[int, string]

func newTestPublisher() *Publisher[int, string] {
	return NewPublisher[int, string](slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// recorder collects everything a subscription sees.
type recorder struct {
	mu       sync.Mutex
	events   []testEvent
	errs     []error
	complete int

	onEvent func(ev testEvent) error
}

func (r *recorder) OnEvent(ev testEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	fn := r.onEvent
	r.mu.Unlock()
	if fn != nil {
		return fn(ev)
	}
	return nil
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) OnComplete() {
	r.mu.Lock()
	r.complete++
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]testEvent, []error, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]testEvent(nil), r.events...), append([]error(nil), r.errs...), r.complete
}

func event(kind Kind, id int, v string) testEvent {
	return testEvent{Kind: kind, Entities: map[int]string{id: v}}
}

func waitDone(t *testing.T, s *Subscription[int, string]) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(waitFor):
		t.Fatal("subscription did not finish")
	}
}

func TestPublisher_DeliversInOrder(t *testing.T) {
	p := newTestPublisher()
	rec := &recorder{}
	sub := p.Subscribe(rec, AllKinds...)

	for i := range 100 {
		require.True(t, p.Publish(event(KindUpdate, i, "v")))
	}
	p.Close()
	waitDone(t, sub)

	events, errs, complete := rec.snapshot()
	require.Len(t, events, 100)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
		id, _, ok := ev.Single()
		require.True(t, ok)
		assert.Equal(t, i, id)
	}
	assert.Empty(t, errs)
	assert.Equal(t, 1, complete)
	assert.True(t, sub.Cancelled())
	assert.Zero(t, p.Subscribers())
}

func TestPublisher_KindFilter(t *testing.T) {
	p := newTestPublisher()
	rec := &recorder{}
	sub := p.Subscribe(rec, KindDelete)

	p.Publish(event(KindCreate, 1, "a"))
	p.Publish(event(KindDelete, 1, "a"))
	sub.Activate(KindCreate)
	sub.Deactivate(KindDelete)
	p.Publish(event(KindCreate, 2, "b"))
	p.Publish(event(KindDelete, 2, "b"))
	p.Close()
	waitDone(t, sub)

	events, _, _ := rec.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, KindDelete, events[0].Kind)
	assert.Equal(t, KindCreate, events[1].Kind)
	assert.True(t, sub.Active(KindCreate))
	assert.False(t, sub.Active(KindDelete))
	assert.False(t, sub.Active(Kind(42)))
}

func TestPublisher_NoKindsDeliversNothing(t *testing.T) {
	p := newTestPublisher()
	rec := &recorder{}
	sub := p.Subscribe(rec)

	p.Publish(event(KindCreate, 1, "a"))
	p.Close()
	waitDone(t, sub)

	events, _, complete := rec.snapshot()
	assert.Empty(t, events)
	assert.Equal(t, 1, complete)
}

func TestPublisher_FailingSubscriberIsIsolated(t *testing.T) {
	p := newTestPublisher()
	boom := errors.New("boom")

	bad := &recorder{onEvent: func(testEvent) error { return boom }}
	panicky := &recorder{onEvent: func(testEvent) error { panic("kaboom") }}
	good := &recorder{}

	badSub := p.Subscribe(bad, AllKinds...)
	panicSub := p.Subscribe(panicky, AllKinds...)
	goodSub := p.Subscribe(good, AllKinds...)

	p.Publish(event(KindCreate, 1, "a"))
	waitDone(t, badSub)
	waitDone(t, panicSub)
	p.Publish(event(KindCreate, 2, "b"))
	p.Close()
	waitDone(t, goodSub)

	events, errs, complete := bad.snapshot()
	assert.Len(t, events, 1)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
	assert.Zero(t, complete)
	assert.True(t, badSub.Cancelled())

	_, errs, _ = panicky.snapshot()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "kaboom")

	events, errs, complete = good.snapshot()
	assert.Len(t, events, 2)
	assert.Empty(t, errs)
	assert.Equal(t, 1, complete)
}

func TestSubscription_CancelIsIdempotent(t *testing.T) {
	p := newTestPublisher()
	rec := &recorder{}
	sub := p.Subscribe(rec, AllKinds...)

	sub.Cancel()
	sub.Cancel()
	waitDone(t, sub)

	assert.True(t, sub.Cancelled())
	assert.Zero(t, p.Subscribers())

	p.Publish(event(KindCreate, 1, "a"))
	p.Close()

	events, errs, complete := rec.snapshot()
	assert.Empty(t, events)
	assert.Empty(t, errs)
	assert.Zero(t, complete, "cancelled subscriptions are not completed")
}

func TestSubscription_CancelFromHandler(t *testing.T) {
	p := newTestPublisher()
	var sub *Subscription[int, string]
	ready := make(chan struct{})
	rec := &recorder{onEvent: func(testEvent) error {
		<-ready
		sub.Cancel()
		return nil
	}}
	sub = p.Subscribe(rec, AllKinds...)
	close(ready)

	p.Publish(event(KindCreate, 1, "a"))
	p.Publish(event(KindCreate, 2, "b"))
	waitDone(t, sub)

	events, _, _ := rec.snapshot()
	assert.Len(t, events, 1)
	p.Close()
}

func TestPublisher_Mute(t *testing.T) {
	p := newTestPublisher()
	rec := &recorder{}
	sub := p.Subscribe(rec, AllKinds...)

	p.Mute()
	p.Mute()
	assert.False(t, p.Publish(event(KindCreate, 1, "a")))
	p.Unmute()
	assert.False(t, p.Publish(event(KindCreate, 2, "b")), "mutes nest")
	p.Unmute()
	assert.True(t, p.Publish(event(KindCreate, 3, "c")))
	p.Close()
	waitDone(t, sub)

	events, _, _ := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, uint64(1), events[0].Seq)
}

func TestPublisher_ClosedPublisher(t *testing.T) {
	p := newTestPublisher()
	p.Close()
	p.Close()

	assert.False(t, p.Publish(event(KindCreate, 1, "a")))

	rec := &recorder{}
	sub := p.Subscribe(rec, AllKinds...)
	waitDone(t, sub)
	_, _, complete := rec.snapshot()
	assert.Equal(t, 1, complete)
}

func TestPublisher_SubscribeChan(t *testing.T) {
	p := newTestPublisher()
	ch, sub := p.SubscribeChan(0, KindCreate, KindUpdate)

	p.Publish(event(KindCreate, 1, "a"))
	p.Publish(event(KindDelete, 1, "a"))
	p.Publish(event(KindUpdate, 1, "b"))
	p.Close()

	var got []Kind
	for ev := range ch {
		got = append(got, ev.Kind)
	}
	assert.Equal(t, []Kind{KindCreate, KindUpdate}, got)
	waitDone(t, sub)
}

func TestPublisher_SubscribeChanCancelUnblocks(t *testing.T) {
	p := newTestPublisher()
	_, sub := p.SubscribeChan(0, AllKinds...)

	// Nobody reads the channel; Cancel must release the delivery goroutine
	p.Publish(event(KindCreate, 1, "a"))
	sub.Cancel()
	waitDone(t, sub)
	p.Close()
}

func TestPublisher_SubscribeChanClosedOnCancel(t *testing.T) {
	p := newTestPublisher()
	defer p.Close()
	ch, sub := p.SubscribeChan(4, AllKinds...)

	p.Publish(event(KindCreate, 1, "a"))
	ev := <-ch
	assert.Equal(t, KindCreate, ev.Kind)

	sub.Cancel()
	waitDone(t, sub)

	drained := make(chan int)
	go func() {
		n := 0
		for range ch {
			n++
		}
		drained <- n
	}()
	select {
	case n := <-drained:
		assert.Zero(t, n)
	case <-time.After(waitFor):
		t.Fatal("channel still open after Cancel")
	}
}

// tape is an entity with a mutable payload, for checking event isolation.
type tape struct{ label string }

func (t *tape) Clone() *tape {
	c := *t
	return &c
}

func TestPublisher_EachSubscriptionGetsOwnPayload(t *testing.T) {
	p := NewPublisher[int, *tape](slog.New(slog.NewTextHandler(io.Discard, nil)))

	relabeled := make(chan struct{})
	vandal := SubscriberFuncs[int, *tape]{Event: func(ev Event[int, *tape]) error {
		ev.Entities[1].label = "scribbled"
		ev.Entities[2] = &tape{label: "extra"}
		close(relabeled)
		return nil
	}}
	seen := make(chan Event[int, *tape], 1)
	reader := SubscriberFuncs[int, *tape]{Event: func(ev Event[int, *tape]) error {
		<-relabeled
		seen <- ev
		return nil
	}}
	p.Subscribe(vandal, AllKinds...)
	p.Subscribe(reader, AllKinds...)

	original := &tape{label: "side A"}
	p.Publish(Event[int, *tape]{Kind: KindUpdate, Entities: map[int]*tape{1: original}})

	select {
	case ev := <-seen:
		require.Len(t, ev.Entities, 1)
		assert.Equal(t, "side A", ev.Entities[1].label)
	case <-time.After(waitFor):
		t.Fatal("event not delivered")
	}
	assert.Equal(t, "side A", original.label)
	p.Close()
}

func TestPublisher_SlowSubscriberDoesNotBlock(t *testing.T) {
	p := newTestPublisher()
	release := make(chan struct{})
	slow := &recorder{onEvent: func(testEvent) error {
		<-release
		return nil
	}}
	sub := p.Subscribe(slow, AllKinds...)

	done := make(chan struct{})
	go func() {
		for i := range 1000 {
			p.Publish(event(KindUpdate, i, "v"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("publish blocked on a slow subscriber")
	}
	close(release)
	p.Close()
	waitDone(t, sub)

	events, _, _ := slow.snapshot()
	assert.Len(t, events, 1000)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "CREATE", KindCreate.String())
	assert.Equal(t, "READ", KindRead.String())
	assert.Equal(t, "UPDATE", KindUpdate.String())
	assert.Equal(t, "DELETE", KindDelete.String())
	assert.Equal(t, "UNKNOWN", Kind(9).String())
}

func TestEvent_Single(t *testing.T) {
	_, _, ok := testEvent{Entities: map[int]string{1: "a", 2: "b"}}.Single()
	assert.False(t, ok)

	id, v, ok := event(KindRead, 3, "c").Single()
	require.True(t, ok)
	assert.Equal(t, 3, id)
	assert.Equal(t, "c", v)
}

func TestIDSequence(t *testing.T) {
	s := NewIDSequence(1)
	assert.Equal(t, 1, s.Next())
	assert.Equal(t, 2, s.Next())

	s.Observe(10)
	assert.Equal(t, 11, s.Peek())
	s.Observe(4)
	assert.Equal(t, 11, s.Next())
}
