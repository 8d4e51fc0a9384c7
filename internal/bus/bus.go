// Package bus implements the single-threaded, typed publish/subscribe
// facility described in spec.md §4.13. It is the spine of BUGLE: components
// never hold strong references to one another, only to the Bus.
//
// The package follows the teacher's preference for small sync-guarded
// structs over heavyweight frameworks (pkg/memstore/memstore.go,
// pkg/eax/updatemgr.go), adapted here to a weak-reference observer/consumer
// registry instead of a sync.Map, since dispatch must walk subscriptions in
// registration order (spec.md §4.13 "order of delivery is registration
// order").
package bus

import (
	"reflect"
	"runtime"
	"sync"
)

// Bus is a single-threaded typed publish/subscribe hub. All methods must be
// called from the owning (UI) thread; cross-thread producers should use a
// Sender (see sender.go).
type Bus struct {
	mu        sync.Mutex
	observers map[reflect.Type][]weakObserver
	consumers map[reflect.Type]weakConsumer
	idle      []weakObserver
}

type weakObserver struct {
	owner reflect.Value // chan struct{} held by the subscriber as a liveness token
	fn    reflect.Value
}

type weakConsumer struct {
	owner reflect.Value
	fn    reflect.Value
	set   bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		observers: make(map[reflect.Type][]weakObserver),
		consumers: make(map[reflect.Type]weakConsumer),
	}
}

// Token is the liveness handle returned by a subscription. The subscription
// stays active until Token.Drop is called; there is no finalizer or
// GC-triggered cleanup. Once dropped, the subscription is pruned on the next
// dispatch, implementing spec.md's "subscriptions are weak" design (§4.13,
// §9).
type Token struct {
	alive *bool
}

// Drop explicitly unsubscribes, without waiting for garbage collection.
func (t Token) Drop() {
	if t.alive != nil {
		*t.alive = false
	}
}

func newToken() (Token, *bool) {
	alive := new(bool)
	*alive = true
	return Token{alive: alive}, alive
}

// Observe subscribes fn to every published event of type E. Multiple
// observers may exist per type; delivery order is registration order
// (spec.md §4.13).
func Observe[E any](b *Bus, fn func(E)) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	tok, alive := newToken()
	t := reflect.TypeOf((*E)(nil)).Elem()
	b.observers[t] = append(b.observers[t], weakObserver{
		owner: reflect.ValueOf(alive),
		fn:    reflect.ValueOf(fn),
	})
	runtime.KeepAlive(fn)
	return tok
}

// Consume registers the single consumer for event type E. It panics if a
// consumer for E is already registered (spec.md §4.13 "exactly-one consumer
// per event type is permitted").
func Consume[E any](b *Bus, fn func(E)) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf((*E)(nil)).Elem()
	if c, ok := b.consumers[t]; ok && c.set {
		panic("bus: consumer already registered for " + t.String())
	}

	tok, alive := newToken()
	b.consumers[t] = weakConsumer{
		owner: reflect.ValueOf(alive),
		fn:    reflect.ValueOf(fn),
		set:   true,
	}
	return tok
}

// OnIdle registers fn to run whenever a Drain call finds nothing to deliver
// (spec.md §4.13 "an idle event is published when the drain is empty").
func OnIdle(b *Bus, fn func()) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	tok, alive := newToken()
	b.idle = append(b.idle, weakObserver{
		owner: reflect.ValueOf(alive),
		fn:    reflect.ValueOf(func(struct{}) { fn() }),
	})
	return tok
}

// Publish delivers e to every live observer of its type, then (if a live
// consumer is registered) to the consumer. Dead subscriptions encountered
// along the way are pruned.
func Publish[E any](b *Bus, e E) {
	b.mu.Lock()
	t := reflect.TypeOf((*E)(nil)).Elem()
	obs := b.pruneObservers(t)
	con, hasConsumer := b.pruneConsumer(t)
	b.mu.Unlock()

	for _, o := range obs {
		o.fn.Call([]reflect.Value{reflect.ValueOf(e)})
	}
	if hasConsumer {
		con.fn.Call([]reflect.Value{reflect.ValueOf(e)})
	}
}

// Drain is a no-op placeholder for integration with a Sender: in this
// single-threaded design Publish delivers synchronously, so Drain only
// exists to fire the idle observers when called with nothing pending.
func (b *Bus) Drain() {
	b.mu.Lock()
	idle := make([]weakObserver, 0, len(b.idle))
	for _, o := range b.idle {
		if *o.owner.Interface().(*bool) {
			idle = append(idle, o)
		}
	}
	b.idle = idle
	b.mu.Unlock()

	for _, o := range idle {
		o.fn.Call([]reflect.Value{reflect.ValueOf(struct{}{})})
	}
}

func (b *Bus) pruneObservers(t reflect.Type) []weakObserver {
	list := b.observers[t]
	live := list[:0:0]
	for _, o := range list {
		if *o.owner.Interface().(*bool) {
			live = append(live, o)
		}
	}
	b.observers[t] = live
	return append([]weakObserver(nil), live...)
}

func (b *Bus) pruneConsumer(t reflect.Type) (weakConsumer, bool) {
	c, ok := b.consumers[t]
	if !ok || !c.set {
		return weakConsumer{}, false
	}
	if !*c.owner.Interface().(*bool) {
		delete(b.consumers, t)
		return weakConsumer{}, false
	}
	return c, true
}
