package feed

import (
	"context"
	"net/http"

	gorillaWS "github.com/gorilla/websocket"

	commonhttp "github.com/SoftwareFuze/ScrapBook/internal/common/http"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
)

type Snapshots interface {
	FindByID(ctx context.Context, id string) (domain.Community, error)
}

type Handler struct {
	hub       *Hub
	snapshots Snapshots
	upgrader  gorillaWS.Upgrader
	errors    *commonhttp.ErrorHandler
	log       *logger.Logger
}

// NewHandler accepts upgrades from allowedOrigin and from pages served by the API host.
func NewHandler(hub *Hub, snapshots Snapshots, allowedOrigin string, log *logger.Logger) *Handler {
	return &Handler{
		hub:       hub,
		snapshots: snapshots,
		upgrader: gorillaWS.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || origin == allowedOrigin {
					return true
				}
				return origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
		errors: commonhttp.NewErrorHandler(log),
		log:    log,
	}
}

func (h *Handler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/communities/feed", commonhttp.RequireMethod(http.MethodGet)(h.serveFeed))
}

// serveFeed checks the community before upgrading so unknown ids get a JSON error.
func (h *Handler) serveFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	communityID := r.URL.Query().Get("communityID")
	if err := commonhttp.ValidateUUID(communityID); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	snapshot, err := h.snapshots.FindByID(ctx, communityID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithFields(ctx, logger.Fields{
			"community_id": communityID,
			"action":       "feed_upgrade_failed",
		}).Warnf("feed websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, communityID, h.log)
	if !h.hub.Subscribe(client, snapshot) {
		conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	client.Start()
}
