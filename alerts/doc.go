// Package alerts keeps track of which chat users want to hear about which Twitch
// channels going live, and turns live/offline observations into announcements.
//
// The pieces:
//   - Registry: in-memory index of subscriptions keyed by channel, plus the last
//     observed live flag per channel. It is populated lazily from the Store the
//     first time it is used while empty and is not re-synchronized afterwards.
//   - Engine: the operations behind the chat commands (add, remove, list, check,
//     load). Operations on the same channel are serialized; different channels
//     run independently.
//   - StartPoller: a ticker loop that checks every tracked channel and hands the
//     resulting announcements to an Announcer.
//
// A channel only produces an announcement on an offline -> online transition.
// New channel entries start out as live, so subscribing to a channel that is
// already streaming stays silent until the channel has been seen offline once.
package alerts
