package alerts

import "fmt"

// Outcome tags what an engine operation did. Negative outcomes such as
// OutcomeChannelNotFound are successful calls; failures come back as errors.
type Outcome int

const (
	OutcomeNoop Outcome = iota
	OutcomeAdded
	OutcomeChannelNotFound
	OutcomeAlreadySubscribed
	OutcomeRemoved
	OutcomeNotSubscribed
	OutcomeListed
	OutcomeNoAlerts
	OutcomeLoaded
)

var outcomeNames = map[Outcome]string{
	OutcomeNoop:              "noop",
	OutcomeAdded:             "added",
	OutcomeChannelNotFound:   "channel_not_found",
	OutcomeAlreadySubscribed: "already_subscribed",
	OutcomeRemoved:           "removed",
	OutcomeNotSubscribed:     "not_subscribed",
	OutcomeListed:            "listed",
	OutcomeNoAlerts:          "no_alerts",
	OutcomeLoaded:            "loaded",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// Result is the user-facing answer to a command.
type Result struct {
	Outcome Outcome
	Channel string
	Message string
}

// NoAlertsHelp is returned by ListAlerts when the requester has nothing in the
// current target. prefix is the chat command prefix.
func NoAlertsHelp(prefix string) string {
	return fmt.Sprintf("You have no alerts in this channel. %saddalert <twitchchannel> to add alerts.", prefix)
}

func added(channel string) Result {
	return Result{Outcome: OutcomeAdded, Channel: channel, Message: fmt.Sprintf("Alert added for %s.", channel)}
}

func channelNotFound(channel string) Result {
	return Result{Outcome: OutcomeChannelNotFound, Channel: channel, Message: fmt.Sprintf("Channel %s does not exist.", channel)}
}

func alreadySubscribed(channel string) Result {
	return Result{Outcome: OutcomeAlreadySubscribed, Channel: channel, Message: fmt.Sprintf("You already have an alert for channel %s.", channel)}
}

func removed(channel string) Result {
	return Result{Outcome: OutcomeRemoved, Channel: channel, Message: "Removed alert."}
}

func notSubscribed(channel string) Result {
	return Result{Outcome: OutcomeNotSubscribed, Channel: channel, Message: fmt.Sprintf("You don't have an alert for channel %s.", channel)}
}
