package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
)

const communityID = "6f1c3c4e-3f0a-4f39-9f57-2a3c5d2e8b11"

type mockSnapshots struct {
	findByIDFunc func(ctx context.Context, id string) (domain.Community, error)
}

func (m *mockSnapshots) FindByID(ctx context.Context, id string) (domain.Community, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return domain.Community{}, domain.ErrCommunityNotFound
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, "test", "error")
}

func newFeedServer(t *testing.T, hub *Hub, snapshots Snapshots) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(hub, snapshots, "http://localhost:3000", testLogger()).Mount(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, id string) *gorillaWS.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/communities/feed?communityID=" + id
	conn, _, err := gorillaWS.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorillaWS.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestFeed_SnapshotThenPublish(t *testing.T) {
	hub := NewHub(testLogger())
	snapshots := &mockSnapshots{
		findByIDFunc: func(ctx context.Context, id string) (domain.Community, error) {
			return domain.Community{ID: id, Members: []string{"u1"}, Version: 1}, nil
		},
	}
	srv := newFeedServer(t, hub, snapshots)
	conn := dial(t, srv, communityID)

	first := readMessage(t, conn)
	if first.Type != TypeCommunity || first.Community == nil || first.Community.Version != 1 {
		t.Fatalf("unexpected initial frame %+v", first)
	}

	hub.Publish(domain.Community{ID: communityID, Members: []string{"u1", "u2"}, Version: 2})

	next := readMessage(t, conn)
	if next.Community.Version != 2 || len(next.Community.Members) != 2 {
		t.Errorf("expected version 2 with two members, got %+v", next.Community)
	}
}

func TestFeed_UnknownCommunity(t *testing.T) {
	srv := newFeedServer(t, NewHub(testLogger()), &mockSnapshots{})

	resp, err := http.Get(srv.URL + "/communities/feed?communityID=" + communityID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestFeed_InvalidCommunityID(t *testing.T) {
	srv := newFeedServer(t, NewHub(testLogger()), &mockSnapshots{})

	resp, err := http.Get(srv.URL + "/communities/feed?communityID=nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHub_SkipsOlderSnapshots(t *testing.T) {
	hub := NewHub(testLogger())
	client := NewClient(hub, nil, "c1", testLogger())

	if !hub.Subscribe(client, domain.Community{ID: "c1", Version: 3}) {
		t.Fatal("expected subscribe to succeed")
	}
	<-client.send

	hub.Publish(domain.Community{ID: "c1", Version: 2})
	if len(client.send) != 0 {
		t.Errorf("expected older snapshot to be skipped, %d queued", len(client.send))
	}

	hub.Publish(domain.Community{ID: "c1", Version: 4})
	if len(client.send) != 1 {
		t.Errorf("expected newer snapshot to be queued, %d queued", len(client.send))
	}
}

func TestHub_PublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(testLogger())
	client := NewClient(hub, nil, "c1", testLogger())
	hub.Subscribe(client, domain.Community{ID: "c1", Version: 1})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for v := int64(2); v < int64(constants.FeedSendBufSize)+10; v++ {
			hub.Publish(domain.Community{ID: "c1", Version: v})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if len(client.send) != constants.FeedSendBufSize {
		t.Errorf("expected full buffer of %d, got %d", constants.FeedSendBufSize, len(client.send))
	}
}

func TestHub_UnsubscribeAndShutdown(t *testing.T) {
	hub := NewHub(testLogger())
	a := NewClient(hub, nil, "c1", testLogger())
	b := NewClient(hub, nil, "c1", testLogger())
	hub.Subscribe(a, domain.Community{ID: "c1", Version: 1})
	hub.Subscribe(b, domain.Community{ID: "c1", Version: 1})

	hub.Unsubscribe(a, "client_closed")
	hub.Unsubscribe(a, "client_closed")
	if n := hub.subscribers("c1"); n != 1 {
		t.Fatalf("expected one subscriber, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	if hub.Subscribe(NewClient(hub, nil, "c1", testLogger()), domain.Community{ID: "c1"}) {
		t.Error("expected subscribe to fail after shutdown")
	}
	for range b.send {
	}
}

func queuedVersion(t *testing.T, client *Client) int64 {
	t.Helper()
	select {
	case raw := <-client.send:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return msg.Community.Version
	default:
		t.Fatal("expected a queued frame")
		return 0
	}
}

func TestHub_LateSubscriberGetsNewestFrame(t *testing.T) {
	hub := NewHub(testLogger())
	a := NewClient(hub, nil, "c1", testLogger())
	b := NewClient(hub, nil, "c1", testLogger())

	hub.Subscribe(a, domain.Community{ID: "c1", Version: 4})
	hub.Publish(domain.Community{ID: "c1", Version: 5})
	hub.Subscribe(b, domain.Community{ID: "c1", Version: 4})

	if len(b.send) != 1 {
		t.Fatalf("expected one first frame, got %d", len(b.send))
	}
	if v := queuedVersion(t, b); v != 5 {
		t.Errorf("expected version 5 as first frame, got %d", v)
	}
}

func TestHub_PublishWithoutSubscribersIsRemembered(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Publish(domain.Community{ID: "c1", Version: 7})

	client := NewClient(hub, nil, "c1", testLogger())
	hub.Subscribe(client, domain.Community{ID: "c1", Version: 6})

	if v := queuedVersion(t, client); v != 7 {
		t.Errorf("expected version 7 as first frame, got %d", v)
	}
}
