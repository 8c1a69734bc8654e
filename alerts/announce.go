package alerts

import (
	"context"
	"fmt"

	"github.com/onnwee/live-alerts/twitchapi"
)

// TargetMentions lists the subscribers to mention in one target.
type TargetMentions struct {
	TargetID    string   `json:"target_id"`
	Subscribers []string `json:"subscribers"`
}

// Announcement is produced once per offline -> online transition.
type Announcement struct {
	Channel string           `json:"channel"`
	Message string           `json:"message"`
	Targets []TargetMentions `json:"targets"`
}

// Announcer delivers announcements, typically into chat.
type Announcer interface {
	Announce(ctx context.Context, a Announcement) error
}

// FormatAnnouncement renders the go-live line for a stream.
func FormatAnnouncement(s *twitchapi.Stream) string {
	return fmt.Sprintf("%s has come online! PogChamp %s || Game: %s || Title: %s",
		s.DisplayName, s.URL(), s.GameName, s.Title)
}

// groupByTarget groups subscribers by target in first-seen order. Each
// subscriber appears once per target.
func groupByTarget(subs []Subscription) []TargetMentions {
	idx := make(map[string]int)
	seen := make(map[[2]string]bool)
	var out []TargetMentions
	for _, s := range subs {
		i, ok := idx[s.TargetID]
		if !ok {
			i = len(out)
			idx[s.TargetID] = i
			out = append(out, TargetMentions{TargetID: s.TargetID})
		}
		key := [2]string{s.TargetID, s.SubscriberID}
		if seen[key] {
			continue
		}
		seen[key] = true
		out[i].Subscribers = append(out[i].Subscribers, s.SubscriberID)
	}
	return out
}
