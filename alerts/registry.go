package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/onnwee/live-alerts/telemetry"
)

// LoadResult reports what EnsureLoaded did.
type LoadResult int

const (
	// LoadAlreadyLoaded means the registry held data and the store was not queried.
	LoadAlreadyLoaded LoadResult = iota
	// LoadEmpty means the store had no subscriptions.
	LoadEmpty
	// LoadPopulated means the registry was filled from the store.
	LoadPopulated
)

func (r LoadResult) String() string {
	switch r {
	case LoadAlreadyLoaded:
		return "already_loaded"
	case LoadEmpty:
		return "empty"
	case LoadPopulated:
		return "populated"
	default:
		return "unknown"
	}
}

type channelEntry struct {
	subs []Subscription
	live bool
}

// ChannelState is a read-only view of one registry entry.
type ChannelState struct {
	Channel       string         `json:"channel"`
	Live          bool           `json:"live"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// Registry is the in-memory index of subscriptions by channel.
type Registry struct {
	loader Loader

	loadMu sync.Mutex // serializes lazy loads

	mu       sync.Mutex
	channels map[string]*channelEntry
}

// NewRegistry returns an empty registry that loads from l on first use.
func NewRegistry(l Loader) *Registry {
	return &Registry{loader: l, channels: make(map[string]*channelEntry)}
}

// EnsureLoaded populates the registry from the store when it is empty. Once it
// holds any channel it never goes back to the store.
func (r *Registry) EnsureLoaded(ctx context.Context) (LoadResult, int, error) {
	if r.Len() > 0 {
		return LoadAlreadyLoaded, 0, nil
	}
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.Len() > 0 {
		return LoadAlreadyLoaded, 0, nil
	}
	subs, err := r.loader.LoadAll(ctx)
	if err != nil {
		return LoadAlreadyLoaded, 0, &StoreError{Op: "load", Err: err}
	}
	if len(subs) == 0 {
		return LoadEmpty, 0, nil
	}
	n := 0
	for _, s := range subs {
		if r.Upsert(s) {
			n++
		}
	}
	slog.Info("alert registry loaded", slog.Int("subscriptions", n), slog.Int("channels", r.Len()), slog.String("component", "alerts"))
	return LoadPopulated, n, nil
}

// Upsert adds sub unless the same subscriber already has it in the same target.
// It reports whether anything was added. New channels start out live.
func (r *Registry) Upsert(sub Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.channels[sub.Channel]
	if !ok {
		r.channels[sub.Channel] = &channelEntry{subs: []Subscription{sub}, live: true}
		r.updateGaugesLocked()
		return true
	}
	if indexOf(e.subs, sub) >= 0 {
		return false
	}
	e.subs = append(e.subs, sub)
	r.updateGaugesLocked()
	return true
}

// Contains reports whether sub is registered.
func (r *Registry) Contains(sub Subscription) bool { return r.Find(sub) >= 0 }

// Find returns the index of sub within its channel, or -1.
func (r *Registry) Find(sub Subscription) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.channels[sub.Channel]
	if !ok {
		return -1
	}
	return indexOf(e.subs, sub)
}

// RemoveAt drops the subscription at index i of channel and deletes the
// channel once nothing is left on it.
func (r *Registry) RemoveAt(channel string, i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.channels[channel]
	if !ok {
		return fmt.Errorf("channel %q not tracked", channel)
	}
	if i < 0 || i >= len(e.subs) {
		return fmt.Errorf("index %d out of range for channel %q", i, channel)
	}
	e.subs = append(e.subs[:i], e.subs[i+1:]...)
	if len(e.subs) == 0 {
		delete(r.channels, channel)
	}
	r.updateGaugesLocked()
	return nil
}

// ChannelsFor lists, sorted, the channels subscriberID follows in targetID.
func (r *Registry) ChannelsFor(subscriberID, targetID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for name, e := range r.channels {
		for _, s := range e.subs {
			if s.SubscriberID == subscriberID && s.TargetID == targetID {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Channels returns every tracked channel name, sorted.
func (r *Registry) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.channels))
	for name := range r.channels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Live returns the cached flag for channel; ok is false when it is not tracked.
func (r *Registry) Live(channel string) (live, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.channels[channel]
	if !ok {
		return false, false
	}
	return e.live, true
}

// SetLive overwrites the cached flag. Unknown channels are ignored.
func (r *Registry) SetLive(channel string, live bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.channels[channel]; ok {
		e.live = live
	}
}

// Subscriptions returns a copy of channel's subscriptions in insertion order.
func (r *Registry) Subscriptions(channel string) []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.channels[channel]
	if !ok {
		return nil
	}
	return append([]Subscription(nil), e.subs...)
}

// Snapshot returns every entry, sorted by channel.
func (r *Registry) Snapshot() []ChannelState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChannelState, 0, len(r.channels))
	for name, e := range r.channels {
		out = append(out, ChannelState{
			Channel:       name,
			Live:          e.live,
			Subscriptions: append([]Subscription(nil), e.subs...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Len returns the number of tracked channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Close drops all entries. A later EnsureLoaded reloads from the store.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = make(map[string]*channelEntry)
	r.updateGaugesLocked()
}

func (r *Registry) updateGaugesLocked() {
	subs := 0
	for _, e := range r.channels {
		subs += len(e.subs)
	}
	telemetry.SetRegistrySize(len(r.channels), subs)
}

func indexOf(subs []Subscription, sub Subscription) int {
	for i, s := range subs {
		if s.SubscriberID == sub.SubscriberID && s.TargetID == sub.TargetID {
			return i
		}
	}
	return -1
}
