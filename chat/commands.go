package chat

import (
	"context"
	"strings"

	"github.com/onnwee/live-alerts/alerts"
	"github.com/onnwee/live-alerts/telemetry"
)

// Command names understood by the bot (without prefix).
const (
	CmdAddAlert    = "addalert"
	CmdRemoveAlert = "removealert"
	CmdAlerts      = "alerts"
	CmdCheckAlert  = "checkalert"
	CmdGetAlerts   = "getalerts"
)

// Command is a parsed chat command.
type Command struct {
	Name string
	Args []string
}

// Arg returns the i-th argument or "".
func (c Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// ParseCommand splits text into a command when it starts with prefix.
// Command names are case-insensitive.
func ParseCommand(prefix, text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return Command{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// normalizeChannel turns user input like "@Ninja" or "twitch.tv/ninja" into a login.
func normalizeChannel(arg string) string {
	arg = strings.TrimSpace(arg)
	if i := strings.LastIndex(arg, "twitch.tv/"); i >= 0 {
		arg = arg[i+len("twitch.tv/"):]
	}
	arg = strings.TrimPrefix(arg, "@")
	arg = strings.TrimRight(arg, "/")
	return strings.ToLower(arg)
}

// Commands maps chat commands onto the alert engine. It has no IRC dependency.
type Commands struct {
	Engine *alerts.Engine
	Prefix string
}

// Invocation is one command from one user in one room.
type Invocation struct {
	Command    Command
	Requester  alerts.Requester
	Privileged bool // broadcaster or moderator
}

// Handle runs inv. reply is what to say back to the user ("" for nothing);
// ann is set when a checkalert produced a go-live announcement. handled is
// false for commands this bot does not own.
func (c *Commands) Handle(ctx context.Context, inv Invocation) (reply string, ann *alerts.Announcement, handled bool, err error) {
	name := inv.Command.Name
	channel := normalizeChannel(inv.Command.Arg(0))

	var res alerts.Result
	switch name {
	case CmdAddAlert:
		res, err = c.Engine.AddAlert(ctx, inv.Requester, channel)
	case CmdRemoveAlert:
		res, err = c.Engine.RemoveAlert(ctx, inv.Requester, channel)
	case CmdAlerts:
		res, err = c.Engine.ListAlerts(ctx, inv.Requester)
	case CmdGetAlerts:
		if !inv.Privileged {
			telemetry.RecordChatCommand(name, "forbidden")
			return "", nil, true, nil
		}
		res, err = c.Engine.LoadAlerts(ctx)
	case CmdCheckAlert:
		if !inv.Privileged {
			telemetry.RecordChatCommand(name, "forbidden")
			return "", nil, true, nil
		}
		ann, err = c.Engine.CheckAlert(ctx, channel)
		if err != nil {
			telemetry.RecordChatCommand(name, "error")
			return "", nil, true, err
		}
		outcome := "no_transition"
		if ann != nil {
			outcome = "announced"
		}
		telemetry.RecordChatCommand(name, outcome)
		return "", ann, true, nil
	default:
		return "", nil, false, nil
	}
	if err != nil {
		telemetry.RecordChatCommand(name, "error")
		return "", nil, true, err
	}
	telemetry.RecordChatCommand(name, res.Outcome.String())
	return res.Message, nil, true, nil
}
