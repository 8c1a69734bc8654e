package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"golang.org/x/time/rate"

	"github.com/onnwee/live-alerts/alerts"
	"github.com/onnwee/live-alerts/config"
	"github.com/onnwee/live-alerts/telemetry"
)

// maxMessageLen is Twitch's PRIVMSG body limit.
const maxMessageLen = 500

const failureReply = "Something went wrong, try again later."

// Twitch allows 20 messages per 30 seconds for accounts without mod status.
const (
	sayInterval = 1500 * time.Millisecond
	sayBurst    = 20
)

// sayer is the part of the IRC client the bot writes through.
type sayer interface {
	Say(channel, text string)
}

// Bot is the Twitch IRC front end: it reads commands from the joined rooms and
// posts replies and announcements back into them.
type Bot struct {
	cmds     *Commands
	out      sayer
	limiter  *rate.Limiter // nil means unthrottled
	client   *twitch.Client
	channels []string

	mu  sync.Mutex
	ctx context.Context
}

// NewBot builds a bot from config. Call Run to connect.
func NewBot(cfg *config.Config, engine *alerts.Engine) *Bot {
	client := twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
	b := &Bot{
		cmds:     &Commands{Engine: engine, Prefix: cfg.CommandPrefix},
		out:      client,
		limiter:  rate.NewLimiter(rate.Every(sayInterval), sayBurst),
		client:   client,
		channels: cfg.TwitchChannels,
		ctx:      context.Background(),
	}
	client.OnConnect(func() {
		slog.Info("twitch chat connected", slog.Any("channels", b.channels), slog.String("component", "chat"))
	})
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		// Handlers hit the network; keep the IRC read loop free.
		go b.handleMessage(b.baseContext(), msg)
	})
	return b
}

func (b *Bot) baseContext() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

// Run joins the configured rooms and blocks until ctx is canceled or the
// connection fails.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.client.Disconnect()
	}()

	b.client.Join(b.channels...)
	err := b.client.Connect()
	if errors.Is(err, twitch.ErrClientDisconnected) || ctx.Err() != nil {
		return nil
	}
	return err
}

func (b *Bot) handleMessage(ctx context.Context, msg twitch.PrivateMessage) {
	cmd, ok := ParseCommand(b.cmds.Prefix, msg.Message)
	if !ok {
		return
	}
	inv := Invocation{
		Command:    cmd,
		Requester:  alerts.Requester{SubscriberID: msg.User.Name, TargetID: msg.Channel},
		Privileged: isPrivileged(msg.User.Badges),
	}
	b.dispatch(ctx, inv)
}

func (b *Bot) dispatch(ctx context.Context, inv Invocation) {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "chat"), slog.String("command", inv.Command.Name), slog.String("user", inv.Requester.SubscriberID), slog.String("room", inv.Requester.TargetID))
	reply, ann, handled, err := b.cmds.Handle(ctx, inv)
	if !handled {
		return
	}
	if err != nil {
		log.Error("chat command failed", slog.String("kind", alerts.ErrorKind(err)), slog.Any("err", err))
		reply = failureReply
	}
	if reply != "" {
		if err := b.say(ctx, inv.Requester.TargetID, "@"+inv.Requester.SubscriberID+" "+reply); err != nil {
			log.Warn("reply dropped", slog.Any("err", err))
		}
	}
	if ann != nil {
		if err := b.Announce(ctx, *ann); err != nil {
			log.Error("announce failed", slog.Any("err", err))
		}
	}
}

// Announce posts a go-live announcement into every target room, mentioning
// that room's subscribers. It blocks while the send budget is exhausted.
func (b *Bot) Announce(ctx context.Context, a alerts.Announcement) error {
	for _, t := range a.Targets {
		for _, line := range announcementLines(t.Subscribers, a.Message) {
			if err := b.say(ctx, t.TargetID, line); err != nil {
				return fmt.Errorf("announce %s in %s: %w", a.Channel, t.TargetID, err)
			}
		}
	}
	return nil
}

func (b *Bot) say(ctx context.Context, channel, text string) error {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	b.out.Say(channel, text)
	return nil
}

// announcementLines renders mentions plus message as one line when it fits,
// otherwise the message followed by as many mention-only lines as needed.
func announcementLines(subscribers []string, message string) []string {
	mentions := make([]string, 0, len(subscribers))
	for _, s := range subscribers {
		mentions = append(mentions, "@"+s)
	}
	single := strings.TrimSpace(strings.Join(mentions, " ") + " " + message)
	if len(single) <= maxMessageLen {
		return []string{single}
	}
	lines := []string{message}
	var cur strings.Builder
	for _, m := range mentions {
		if cur.Len() > 0 && cur.Len()+1+len(m) > maxMessageLen {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(m)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

func isPrivileged(badges map[string]int) bool {
	return badges["broadcaster"] > 0 || badges["moderator"] > 0
}
