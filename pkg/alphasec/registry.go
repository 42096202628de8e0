package alphasec

import (
	"sort"
	"sync"
)

// SubscriptionState is the lifecycle of a single channel subscription.
type SubscriptionState int

const (
	// SubscriptionRequested means the subscribe frame was issued (or is
	// pending until the connection is up) but no ack arrived yet.
	SubscriptionRequested SubscriptionState = iota

	// SubscriptionActive means the server acknowledged the channel.
	SubscriptionActive

	// SubscriptionClosed means the subscription was removed locally.
	SubscriptionClosed
)

// Subscription is the handle returned by Stream.Subscribe. Subscribing to
// the same channel twice returns the same handle.
type Subscription struct {
	ID      int64
	Channel string
}

// subscriptionRegistry tracks the channel set a stream should be subscribed
// to. It owns deduplication and the snapshot used on reconnect.
type subscriptionRegistry struct {
	mu     sync.Mutex
	nextID int64
	subs   map[string]*subscriptionEntry
}

type subscriptionEntry struct {
	sub   *Subscription
	state SubscriptionState
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{
		nextID: 1,
		subs:   make(map[string]*subscriptionEntry),
	}
}

// register returns the subscription handle of a channel. The second return
// value reports whether the channel is new and needs a subscribe frame.
func (r *subscriptionRegistry) register(channel string) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.subs[channel]; ok {
		return entry.sub, false
	}

	sub := &Subscription{ID: r.nextID, Channel: channel}
	r.nextID++
	r.subs[channel] = &subscriptionEntry{sub: sub, state: SubscriptionRequested}
	return sub, true
}

// remove forgets a channel. It reports whether the channel was present, so
// a second unsubscribe is a no-op.
func (r *subscriptionRegistry) remove(channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.subs[channel]
	if !ok {
		return false
	}

	entry.state = SubscriptionClosed
	delete(r.subs, channel)
	return true
}

// activate marks a channel acknowledged by the server.
func (r *subscriptionRegistry) activate(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.subs[channel]; ok {
		entry.state = SubscriptionActive
	}
}

// markRequested resets every channel to the requested state, used before a
// reconnect replays the subscribe frames.
func (r *subscriptionRegistry) markRequested() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.subs {
		entry.state = SubscriptionRequested
	}
}

// state reports the lifecycle state of a channel.
func (r *subscriptionRegistry) state(channel string) SubscriptionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.subs[channel]; ok {
		return entry.state
	}

	return SubscriptionClosed
}

// snapshot returns the current subscriptions ordered by id.
func (r *subscriptionRegistry) snapshot() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := make([]*Subscription, 0, len(r.subs))
	for _, entry := range r.subs {
		subs = append(subs, entry.sub)
	}

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs
}

func (r *subscriptionRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.subs {
		entry.state = SubscriptionClosed
	}
	r.subs = make(map[string]*subscriptionEntry)
}
