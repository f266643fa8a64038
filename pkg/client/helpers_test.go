package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type rawBody string

type apiCall struct {
	path    string
	payload map[string]any
}

// fakeAPI answers POSTs from per-path handlers and records every call in order.
type fakeAPI struct {
	mu     sync.Mutex
	routes map[string]func(payload map[string]any) (int, any)
	calls  []apiCall
	events *eventLog
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{routes: make(map[string]func(map[string]any) (int, any))}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func (f *fakeAPI) on(path string, fn func(payload map[string]any) (int, any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = fn
}

func (f *fakeAPI) record(events *eventLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = events
}

func (f *fakeAPI) reply(path string, status int, body any) {
	f.on(path, func(map[string]any) (int, any) { return status, body })
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{path: r.URL.Path, payload: payload})
	fn := f.routes[r.URL.Path]
	events := f.events
	f.mu.Unlock()

	if events != nil {
		rt, _ := payload["refreshToken"].(string)
		events.add("request " + r.URL.Path + " " + rt)
	}

	if fn == nil {
		http.NotFound(w, r)
		return
	}
	status, body := fn(payload)
	if raw, ok := body.(rawBody); ok {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(raw))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) callsTo(path string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.path == path {
			out = append(out, c)
		}
	}
	return out
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// recordingStore logs every write next to the server's request log.
type recordingStore struct {
	*MemorySessionStore
	events *eventLog
	setErr error
}

func (s *recordingStore) Set(pair TokenPair) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.events.add("set " + pair.RefreshToken)
	return s.MemorySessionStore.Set(pair)
}

func testCommunity(version int64, members ...string) Community {
	return Community{
		ID:      "c1",
		Title:   "go lang",
		Members: members,
		Version: version,
	}
}

func communityBody(c Community) map[string]any {
	return map[string]any{"success": true, "community": c}
}
