package http

import (
	"context"
	"net/http"
	"net/url"
	"time"

	authhttp "github.com/SoftwareFuze/ScrapBook/internal/auth/http"
	commonhttp "github.com/SoftwareFuze/ScrapBook/internal/common/http"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/community/service"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

type CommunityService interface {
	Join(ctx context.Context, account userdomain.Account, communityID string) (domain.Community, error)
	Leave(ctx context.Context, account userdomain.Account, communityID string) (domain.Community, error)
	Create(ctx context.Context, account userdomain.Account, input service.CreateInput) (domain.Community, error)
	FindByTitle(ctx context.Context, title string) (domain.Community, error)
}

type membershipRequest struct {
	CommunityID string `json:"communityID" validate:"required,uuid"`
	authhttp.SessionTokens
}

type createRequest struct {
	Title     string   `json:"title" validate:"required,max=35"`
	Details   string   `json:"details" validate:"max=512"`
	Interests []string `json:"interests" validate:"required,min=1,dive,max=255"`
	authhttp.SessionTokens
}

type lookupRequest struct {
	Title string `json:"title" validate:"required"`
}

type communityResponse struct {
	Success   bool              `json:"success"`
	Community *domain.Community `json:"community,omitempty"`
	authhttp.RotatedTokens
}

type Handler struct {
	communities CommunityService
	verifier    authhttp.Authenticator
	errors      *commonhttp.ErrorHandler
	log         *logger.Logger
	timeout     time.Duration
}

func NewHandler(communities CommunityService, verifier authhttp.Authenticator, timeout time.Duration, log *logger.Logger) *Handler {
	return &Handler{
		communities: communities,
		verifier:    verifier,
		errors:      commonhttp.NewErrorHandler(log),
		log:         log,
		timeout:     timeout,
	}
}

func (h *Handler) Mount(mux *http.ServeMux, limiter *commonhttp.StrictRateLimiter) {
	limiter.Handle(mux, "/communities/join", commonhttp.Post(h.timeout, h.join))
	limiter.Handle(mux, "/communities/leave", commonhttp.Post(h.timeout, h.leave))
	limiter.Handle(mux, "/communities/create", commonhttp.Post(h.timeout, h.create))
	limiter.Handle(mux, "/communities/community", commonhttp.Post(h.timeout, h.community))
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, h.communities.Join)
}

func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, h.communities.Leave)
}

type membershipFunc func(ctx context.Context, account userdomain.Account, communityID string) (domain.Community, error)

func (h *Handler) membership(w http.ResponseWriter, r *http.Request, apply membershipFunc) {
	var req membershipRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	v, err := authhttp.Authenticate(r.Context(), h.verifier, req.SessionTokens)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	rotated := authhttp.RotatedFrom(v)

	community, err := apply(r.Context(), v.Account, req.CommunityID)
	if err != nil {
		h.errors.HandleError(w, r, err, rotated.Envelope())
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, communityResponse{
		Success:       true,
		Community:     &community,
		RotatedTokens: rotated,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	v, err := authhttp.Authenticate(r.Context(), h.verifier, req.SessionTokens)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	rotated := authhttp.RotatedFrom(v)

	community, err := h.communities.Create(r.Context(), v.Account, service.CreateInput{
		Title:     req.Title,
		Details:   req.Details,
		Interests: req.Interests,
	})
	if err != nil {
		h.errors.HandleError(w, r, err, rotated.Envelope())
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, communityResponse{
		Success:       true,
		Community:     &community,
		RotatedTokens: rotated,
	})
}

func (h *Handler) community(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	title := req.Title
	if decoded, err := url.PathUnescape(title); err == nil {
		title = decoded
	}

	community, err := h.communities.FindByTitle(r.Context(), title)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, communityResponse{Success: true, Community: &community})
}
