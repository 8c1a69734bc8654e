package testutil

import (
	"context"
	"sync"

	"github.com/onnwee/live-alerts/alerts"
	"github.com/onnwee/live-alerts/twitchapi"
)

// FakeStore is an in-memory alerts.Store that records calls and can be made to fail.
type FakeStore struct {
	mu        sync.Mutex
	Rows      []alerts.Subscription
	Loads     int
	Inserts   int
	Deletes   int
	LoadErr   error
	InsertErr error
	DeleteErr error
}

var _ alerts.Store = (*FakeStore)(nil)

func (s *FakeStore) LoadAll(_ context.Context) ([]alerts.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Loads++
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return append([]alerts.Subscription(nil), s.Rows...), nil
}

func (s *FakeStore) Insert(_ context.Context, sub alerts.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Inserts++
	if s.InsertErr != nil {
		return s.InsertErr
	}
	for _, r := range s.Rows {
		if r == sub {
			return nil
		}
	}
	s.Rows = append(s.Rows, sub)
	return nil
}

func (s *FakeStore) Delete(_ context.Context, sub alerts.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	for i, r := range s.Rows {
		if r == sub {
			s.Rows = append(s.Rows[:i], s.Rows[i+1:]...)
			break
		}
	}
	return nil
}

// Snapshot returns a copy of the persisted rows.
func (s *FakeStore) Snapshot() []alerts.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]alerts.Subscription(nil), s.Rows...)
}

// FakeProvider is an in-memory alerts.Provider. Channels listed in Existing
// exist; channels with an entry in Streams are live.
type FakeProvider struct {
	mu          sync.Mutex
	Existing    map[string]bool
	Streams     map[string]*twitchapi.Stream
	ExistsErr   error
	StreamErr   error
	ExistsCalls int
	StreamCalls int
}

var _ alerts.Provider = (*FakeProvider)(nil)

// NewFakeProvider returns a provider where every name in existing exists and is offline.
func NewFakeProvider(existing ...string) *FakeProvider {
	p := &FakeProvider{Existing: make(map[string]bool), Streams: make(map[string]*twitchapi.Stream)}
	for _, e := range existing {
		p.Existing[e] = true
	}
	return p
}

func (p *FakeProvider) ChannelExists(_ context.Context, channel string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ExistsCalls++
	if p.ExistsErr != nil {
		return false, p.ExistsErr
	}
	return p.Existing[channel], nil
}

func (p *FakeProvider) GetStream(_ context.Context, channel string) (*twitchapi.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StreamCalls++
	if p.StreamErr != nil {
		return nil, p.StreamErr
	}
	return p.Streams[channel], nil
}

// SetLive marks channel live with a stream built from game and title.
func (p *FakeProvider) SetLive(channel, game, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Streams[channel] = &twitchapi.Stream{UserLogin: channel, DisplayName: channel, GameName: game, Title: title, Type: "live"}
}

// SetOffline clears channel's stream.
func (p *FakeProvider) SetOffline(channel string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.Streams, channel)
}

// Calls returns the ChannelExists and GetStream call counts.
func (p *FakeProvider) Calls() (exists, stream int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ExistsCalls, p.StreamCalls
}

// RecordingAnnouncer collects announcements.
type RecordingAnnouncer struct {
	mu  sync.Mutex
	Got []alerts.Announcement
	Err error
}

func (a *RecordingAnnouncer) Announce(_ context.Context, ann alerts.Announcement) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.Got = append(a.Got, ann)
	return nil
}

// Announcements returns a copy of what was announced.
func (a *RecordingAnnouncer) Announcements() []alerts.Announcement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]alerts.Announcement(nil), a.Got...)
}
