package events

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
)

// Bus is a typed in-process event bus. Producers publish values without
// knowing who consumes them.
//
// Publish applies backpressure: it returns once every matching subscriber has
// accepted the event, the subscription ends or ctx is done. Close closes all
// subscription channels; a publisher blocked on one of them is released first.
type Bus struct {
	mu     sync.RWMutex
	subs   map[reflect.Type]map[uint64]*subscription
	nextID atomic.Uint64
	closed atomic.Bool
	once   sync.Once
}

type subscription struct {
	deliver func(ctx context.Context, evt any) error
	closeCh func()

	// done is closed when the subscription ends. mu is held for reading by
	// every in-flight send, so closeCh never runs concurrently with one.
	done     chan struct{}
	mu       sync.RWMutex
	finished bool
	once     sync.Once
}

// send runs fn unless the subscription already ended.
func (s *subscription) send(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.finished {
		return nil
	}
	return fn()
}

func (s *subscription) close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.finished = true
		s.closeCh()
		s.mu.Unlock()
	})
}

func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type]map[uint64]*subscription)}
}

// Subscribe registers for events of type T and returns the delivery channel
// plus an unsubscribe func. When T is an interface every published event
// implementing it is delivered; a concrete T matches only that exact type.
func Subscribe[T any](b *Bus, buffer int) (<-chan T, func()) {
	key := reflect.TypeFor[T]()
	ch := make(chan T, buffer)
	sub := &subscription{
		closeCh: func() { close(ch) },
		done:    make(chan struct{}),
	}
	sub.deliver = func(ctx context.Context, evt any) error {
		v, ok := evt.(T)
		if !ok {
			return ferrors.InternalError("event type mismatch").
				WithContext("expected", key.String()).
				WithContext("actual", reflect.TypeOf(evt).String()).
				Build()
		}
		return sub.send(func() error {
			select {
			case ch <- v:
				return nil
			case <-sub.done:
				return nil
			case <-ctx.Done():
				return ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "event publish canceled").
					WithContext("event_type", key.String()).
					Build()
			}
		})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		sub.close()
		return ch, func() {}
	}

	id := b.nextID.Add(1)
	if b.subs[key] == nil {
		b.subs[key] = make(map[uint64]*subscription)
	}
	b.subs[key][id] = sub

	var unsubOnce sync.Once
	unsubscribe := func() {
		unsubOnce.Do(func() {
			b.mu.Lock()
			if subs, ok := b.subs[key]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(b.subs, key)
				}
			}
			b.mu.Unlock()
			sub.close()
		})
	}
	return ch, unsubscribe
}

// SubscriberCount returns the number of active subscribers for exactly T.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[reflect.TypeFor[T]()])
}

// Publish delivers evt to every matching subscriber. Events without
// subscribers are dropped.
func (b *Bus) Publish(ctx context.Context, evt any) error {
	if evt == nil {
		return ferrors.ValidationError("event cannot be nil").Build()
	}
	if b.closed.Load() {
		return ferrors.DaemonError("event bus is closed").Build()
	}

	evtType := reflect.TypeOf(evt)
	b.mu.RLock()
	var targets []*subscription
	for key, subs := range b.subs {
		if key != evtType && (key.Kind() != reflect.Interface || !evtType.Implements(key)) {
			continue
		}
		for _, s := range subs {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.deliver(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the bus and every subscription channel. It is idempotent.
func (b *Bus) Close() {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed.Store(true)
		var all []*subscription
		for _, subs := range b.subs {
			for _, s := range subs {
				all = append(all, s)
			}
		}
		b.subs = make(map[reflect.Type]map[uint64]*subscription)
		b.mu.Unlock()

		for _, s := range all {
			s.close()
		}
	})
}

// Consume calls handle for every event received on ch until ch is closed or
// ctx is done.
func Consume[T any](ctx context.Context, ch <-chan T, handle func(context.Context, T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			handle(ctx, evt)
		}
	}
}
