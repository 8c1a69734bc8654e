package alerts

import (
	"context"

	"github.com/onnwee/live-alerts/twitchapi"
)

// Subscription is one user's interest in one channel, scoped to the room the
// announcement should be delivered to. The triple is unique.
type Subscription struct {
	SubscriberID string `json:"subscriber_id"`
	Channel      string `json:"channel"`
	TargetID     string `json:"target_id"`
}

// Requester identifies who issued a command and where.
type Requester struct {
	SubscriberID string
	TargetID     string
}

func (r Requester) subscription(channel string) Subscription {
	return Subscription{SubscriberID: r.SubscriberID, Channel: channel, TargetID: r.TargetID}
}

// Loader reads every persisted subscription in one query.
type Loader interface {
	LoadAll(ctx context.Context) ([]Subscription, error)
}

// Store is the durable side of the registry.
type Store interface {
	Loader
	Insert(ctx context.Context, sub Subscription) error
	Delete(ctx context.Context, sub Subscription) error
}

// Provider answers the two questions the engine asks Twitch. GetStream returns
// nil when the channel is offline.
type Provider interface {
	ChannelExists(ctx context.Context, channel string) (bool, error)
	GetStream(ctx context.Context, channel string) (*twitchapi.Stream, error)
}
