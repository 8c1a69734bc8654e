// Package chat is the Twitch IRC front end for live alerts.
//
// The bot joins the rooms listed in TWITCH_CHANNELS and reacts to prefixed
// commands (default "!"):
//   - addalert <channel>: subscribe to go-live alerts for channel in this room.
//   - removealert <channel>: unsubscribe.
//   - alerts: list your channels in this room.
//   - checkalert <channel>: check a channel now (moderators/broadcaster).
//   - getalerts: load subscriptions from the database (moderators/broadcaster).
//
// The subscriber id is the user's login and the notify target is the room, so
// announcements mention "@login" in the room where the alert was added. The bot
// also implements alerts.Announcer for the background poller.
//
// Credentials: the IRC client requires a bot username and a user OAuth token with
// chat:read/chat:edit scopes.
package chat
