package alerts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/live-alerts/alerts"
	"github.com/onnwee/live-alerts/testutil"
	"github.com/onnwee/live-alerts/twitchapi"
)

func TestEngineAgainstHelix(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewMockTwitchServer(t)
	srv.MockOAuthTokenResponse("app-token", 3600)
	srv.MockUsers("ninja")
	live := map[string]map[string]interface{}{}
	srv.MockStreams(live)

	helix := &twitchapi.HelixClient{
		AppTokenSource: &twitchapi.TokenSource{ClientID: "cid", ClientSecret: "secret", TokenURL: srv.URL + "/oauth2/token"},
		ClientID:       "cid",
		BaseURL:        srv.URL + "/helix",
	}
	store := &testutil.FakeStore{}
	e := alerts.NewEngine(alerts.NewRegistry(store), store, helix)
	u1 := alerts.Requester{SubscriberID: "U1", TargetID: "T1"}

	res, err := e.AddAlert(ctx, u1, "ghost")
	require.NoError(t, err)
	assert.Equal(t, alerts.OutcomeChannelNotFound, res.Outcome)

	res, err = e.AddAlert(ctx, u1, "ninja")
	require.NoError(t, err)
	assert.Equal(t, alerts.OutcomeAdded, res.Outcome)

	ann, err := e.CheckAlert(ctx, "ninja")
	require.NoError(t, err)
	assert.Nil(t, ann)

	srv.SetLive(live, "ninja", map[string]interface{}{
		"user_login": "ninja",
		"user_name":  "Ninja",
		"game_name":  "Fortnite",
		"title":      "dubs",
		"type":       "live",
	})
	ann, err = e.CheckAlert(ctx, "ninja")
	require.NoError(t, err)
	require.NotNil(t, ann)
	assert.Equal(t, "Ninja has come online! PogChamp https://www.twitch.tv/ninja || Game: Fortnite || Title: dubs", ann.Message)
	assert.Equal(t, []alerts.TargetMentions{{TargetID: "T1", Subscribers: []string{"U1"}}}, ann.Targets)

	assert.Equal(t, 1, srv.HitCount("/oauth2/token"), "app token is cached")
	assert.Equal(t, 2, srv.HitCount("/helix/users"))
	assert.Equal(t, 2, srv.HitCount("/helix/streams"))
}
