package feed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/observability/metrics"
)

type frame struct {
	version int64
	payload []byte
}

// Hub fans committed community snapshots out to the clients watching that community.
// Snapshots older than the last one seen for a community are skipped, so subscribers
// never see the version go backwards.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[*Client]struct{}
	latest *expirable.LRU[string, frame]
	log    *logger.Logger
	closed bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		latest: expirable.NewLRU[string, frame](constants.FeedLatestSize, nil, 0),
		log:    log,
	}
}

// Subscribe registers client and queues its first frame: snapshot, or the newest frame
// already published when snapshot was read before that publish. It returns false once
// the hub has shut down.
func (h *Hub) Subscribe(client *Client, snapshot domain.Community) bool {
	payload, err := encode(snapshot)
	if err != nil {
		h.log.WithFields(context.Background(), logger.Fields{
			"community_id": snapshot.ID,
			"action":       "feed_marshal_failed",
		}).Errorf("feed failed to marshal snapshot: %v", err)
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}

	room, ok := h.rooms[client.communityID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.communityID] = room
	}
	room[client] = struct{}{}
	metrics.FeedConnectionsActive.Inc()

	if last, ok := h.latest.Get(client.communityID); ok && last.version > snapshot.Version {
		payload = last.payload
	} else {
		h.latest.Add(client.communityID, frame{version: snapshot.Version, payload: payload})
	}
	client.enqueue(payload)

	h.log.WithFields(context.Background(), logger.Fields{
		"community_id": client.communityID,
		"subscribers":  len(room),
		"action":       "feed_subscribe",
	}).Info("feed client subscribed")
	return true
}

func (h *Hub) Unsubscribe(client *Client, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.communityID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.communityID)
	}
	client.close()

	metrics.FeedConnectionsActive.Dec()
	metrics.FeedDisconnections.WithLabelValues(reason).Inc()
}

// Publish never blocks the committing request: a subscriber whose buffer is full misses
// the frame and catches up with the next snapshot.
func (h *Hub) Publish(community domain.Community) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	if last, ok := h.latest.Get(community.ID); ok && community.Version < last.version {
		return
	}

	payload, err := encode(community)
	if err != nil {
		h.log.WithFields(context.Background(), logger.Fields{
			"community_id": community.ID,
			"action":       "feed_marshal_failed",
		}).Errorf("feed failed to marshal snapshot: %v", err)
		return
	}
	h.latest.Add(community.ID, frame{version: community.Version, payload: payload})

	room := h.rooms[community.ID]
	if len(room) == 0 {
		return
	}
	metrics.FeedSnapshotsPublished.Inc()

	for client := range room {
		if !client.enqueue(payload) {
			metrics.FeedDroppedMessages.Inc()
			h.log.WithFields(context.Background(), logger.Fields{
				"community_id": community.ID,
				"version":      community.Version,
				"action":       "feed_message_dropped",
			}).Warn("feed subscriber too slow, snapshot dropped")
		}
	}
}

// Run blocks until ctx is done and then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.shutdown()
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	count := 0
	for id, room := range h.rooms {
		for client := range room {
			client.close()
			metrics.FeedConnectionsActive.Dec()
			metrics.FeedDisconnections.WithLabelValues("shutdown").Inc()
			count++
		}
		delete(h.rooms, id)
	}

	h.log.WithFields(context.Background(), logger.Fields{
		"clients": count,
		"action":  "feed_hub_shutdown",
	}).Info("feed hub shutdown completed")
}

func (h *Hub) subscribers(communityID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[communityID])
}

func encode(community domain.Community) ([]byte, error) {
	return json.Marshal(Message{Type: TypeCommunity, Community: &community})
}
