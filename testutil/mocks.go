package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockTwitchServer creates a test server that mocks Twitch Helix API responses.
// Point HelixClient.BaseURL at URL+"/helix" and TokenSource.TokenURL at URL+"/oauth2/token".
type MockTwitchServer struct {
	*httptest.Server

	mu       sync.Mutex
	Handlers map[string]http.HandlerFunc
	Hits     map[string]int
}

// NewMockTwitchServer creates a new mock Twitch API server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
		Hits:     make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.Hits[r.URL.Path]++
		handler, ok := m.Handlers[r.URL.Path]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// HitCount returns how many requests reached path.
func (m *MockTwitchServer) HitCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Hits[path]
}

func (m *MockTwitchServer) handle(path string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[path] = h
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}

// MockUsers answers /helix/users: logins in known exist, everything else is empty data.
func (m *MockTwitchServer) MockUsers(known ...string) {
	set := make(map[string]bool, len(known))
	for _, k := range known {
		set[k] = true
	}
	m.handle("/helix/users", func(w http.ResponseWriter, r *http.Request) {
		login := r.URL.Query().Get("login")
		data := []map[string]string{}
		if set[login] {
			data = append(data, map[string]string{"id": "id-" + login, "login": login})
		}
		writeJSON(w, map[string]interface{}{"data": data})
	})
}

// MockStreams answers /helix/streams from live, keyed by user_login. The map is
// read on every request, so tests can flip channels between calls via SetLive.
func (m *MockTwitchServer) MockStreams(live map[string]map[string]interface{}) {
	m.handle("/helix/streams", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		s, ok := live[r.URL.Query().Get("user_login")]
		m.mu.Unlock()
		data := []map[string]interface{}{}
		if ok && s != nil {
			data = append(data, s)
		}
		writeJSON(w, map[string]interface{}{"data": data})
	})
}

// SetLive mutates a map previously passed to MockStreams under the server lock.
func (m *MockTwitchServer) SetLive(live map[string]map[string]interface{}, login string, stream map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stream == nil {
		delete(live, login)
		return
	}
	live[login] = stream
}

// MockOAuthTokenResponse adds a handler for the client-credentials token endpoint.
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken string, expiresIn int) {
	m.handle("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "bearer",
		})
	})
}
