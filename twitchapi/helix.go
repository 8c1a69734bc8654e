// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for channel lookup and live status, using an app access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/live-alerts/telemetry"
)

// DefaultBaseURL is the Helix API root.
const DefaultBaseURL = "https://api.twitch.tv/helix"

// errNotFound marks a 404 from Helix; callers turn it into a negative answer.
var errNotFound = errors.New("not found")

var loginPattern = regexp.MustCompile(`^[a-z0-9_]{1,25}$`)

// ValidLogin reports whether login is shaped like a Twitch login. Helix answers
// 400 for anything else, so such names are never sent.
func ValidLogin(login string) bool { return loginPattern.MatchString(login) }

// HelixClient provides the two lookups the alert engine needs.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	BaseURL        string
	HTTPClient     *http.Client
}

// Stream is the live stream metadata for one channel.
type Stream struct {
	UserLogin   string    `json:"user_login"`
	DisplayName string    `json:"user_name"`
	GameName    string    `json:"game_name"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	ViewerCount int       `json:"viewer_count"`
	StartedAt   time.Time `json:"started_at"`
}

// URL is the public channel page.
func (s *Stream) URL() string { return "https://www.twitch.tv/" + s.UserLogin }

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) baseURL() string {
	if hc.BaseURL != "" {
		return strings.TrimRight(hc.BaseURL, "/")
	}
	return DefaultBaseURL
}

// ChannelExists reports whether a user with this login exists.
func (hc *HelixClient) ChannelExists(ctx context.Context, login string) (bool, error) {
	if login == "" {
		return false, fmt.Errorf("login empty")
	}
	if !ValidLogin(login) {
		return false, nil
	}
	var body struct {
		Data []struct {
			ID    string `json:"id"`
			Login string `json:"login"`
		} `json:"data"`
	}
	err := hc.getJSON(ctx, "users", url.Values{"login": {login}}, &body)
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(body.Data) > 0, nil
}

// GetStream returns the live stream for login, or nil when it is offline.
func (hc *HelixClient) GetStream(ctx context.Context, login string) (*Stream, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	if !ValidLogin(login) {
		return nil, nil
	}
	var body struct {
		Data []Stream `json:"data"`
	}
	err := hc.getJSON(ctx, "streams", url.Values{"user_login": {login}}, &body)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range body.Data {
		// Helix only lists live streams, but "type" is "" during outages.
		if body.Data[i].Type == "" || body.Data[i].Type == "live" {
			s := body.Data[i]
			if s.UserLogin == "" {
				s.UserLogin = login
			}
			return &s, nil
		}
	}
	return nil, nil
}

// getJSON performs an authenticated GET against endpoint and decodes the body
// into out. A 404 returns errNotFound; other non-2xx statuses and network
// failures return *TransportError; undecodable bodies return *ParseError.
func (hc *HelixClient) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	ctx, span := telemetry.StartSpan(ctx, "twitchapi", "helix."+endpoint)
	defer span.End()

	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.baseURL()+"/"+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return &TransportError{Op: endpoint, Err: err}
	}
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := hc.http().Do(req)
	if err != nil {
		telemetry.ObserveProviderRequest(endpoint, "error", time.Since(start))
		err = &TransportError{Op: endpoint, Err: err}
		telemetry.RecordError(span, err)
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	telemetry.ObserveProviderRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		// revoked or expired early; fetch a new one on the next call
		hc.AppTokenSource.Invalidate()
		err = &TransportError{Op: endpoint, Status: resp.StatusCode, Err: errors.New("unauthorized")}
		telemetry.RecordError(span, err)
		return err
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err = &TransportError{Op: endpoint, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(b)))}
		telemetry.RecordError(span, err)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		err = &ParseError{Op: endpoint, Err: err}
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}
