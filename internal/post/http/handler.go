package http

import (
	"context"
	"net/http"
	"time"

	authhttp "github.com/SoftwareFuze/ScrapBook/internal/auth/http"
	commonhttp "github.com/SoftwareFuze/ScrapBook/internal/common/http"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	communitydomain "github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/post/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/post/service"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

type PostService interface {
	Create(ctx context.Context, account userdomain.Account, input service.CreateInput) (service.Result, error)
	Like(ctx context.Context, account userdomain.Account, postID string) (service.Result, error)
	Unlike(ctx context.Context, account userdomain.Account, postID string) (service.Result, error)
	Comment(ctx context.Context, account userdomain.Account, postID, content string) (service.Result, error)
	LikeComment(ctx context.Context, account userdomain.Account, commentID string) (service.Result, error)
	Edit(ctx context.Context, account userdomain.Account, postID, content string) (service.Result, error)
	Delete(ctx context.Context, account userdomain.Account, postID string) (service.Result, error)
	Find(ctx context.Context, postID string) (domain.Post, error)
}

type createRequest struct {
	CommunityID string   `json:"communityID" validate:"required,uuid"`
	Content     string   `json:"content" validate:"required,max=100000"`
	Images      []string `json:"images" validate:"max=10,dive,url"`
	authhttp.SessionTokens
}

type postRequest struct {
	PostID string `json:"postID" validate:"required,uuid"`
	authhttp.SessionTokens
}

type contentRequest struct {
	PostID  string `json:"postID" validate:"required,uuid"`
	Content string `json:"content" validate:"required,max=100000"`
	authhttp.SessionTokens
}

type commentRequest struct {
	CommentID string `json:"commentID" validate:"required,uuid"`
	authhttp.SessionTokens
}

type findRequest struct {
	PostID string `json:"postID" validate:"required,uuid"`
}

type postResponse struct {
	Success   bool                       `json:"success"`
	Post      *domain.Post               `json:"post,omitempty"`
	Community *communitydomain.Community `json:"community,omitempty"`
	authhttp.RotatedTokens
}

type Handler struct {
	posts    PostService
	verifier authhttp.Authenticator
	errors   *commonhttp.ErrorHandler
	log      *logger.Logger
	timeout  time.Duration
}

func NewHandler(posts PostService, verifier authhttp.Authenticator, timeout time.Duration, log *logger.Logger) *Handler {
	return &Handler{
		posts:    posts,
		verifier: verifier,
		errors:   commonhttp.NewErrorHandler(log),
		log:      log,
		timeout:  timeout,
	}
}

func (h *Handler) Mount(mux *http.ServeMux, limiter *commonhttp.StrictRateLimiter) {
	limiter.Handle(mux, "/posts", commonhttp.Post(h.timeout, h.create))
	limiter.Handle(mux, "/posts/like", commonhttp.Post(h.timeout, h.like))
	limiter.Handle(mux, "/posts/unlike", commonhttp.Post(h.timeout, h.unlike))
	limiter.Handle(mux, "/posts/comment", commonhttp.Post(h.timeout, h.comment))
	limiter.Handle(mux, "/posts/likeComment", commonhttp.Post(h.timeout, h.likeComment))
	limiter.Handle(mux, "/posts/edit", commonhttp.Post(h.timeout, h.edit))
	limiter.Handle(mux, "/posts/delete", commonhttp.Post(h.timeout, h.delete))
	limiter.Handle(mux, "/posts/find", commonhttp.Post(h.timeout, h.find))
}

// mutation is the part of a handler that runs once the session is verified.
type mutation func(ctx context.Context, account userdomain.Account) (service.Result, error)

// serve decodes req, verifies its session and writes the result of apply. Rotated tokens
// go back to the caller on both success and failure.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, req any, tokens func() authhttp.SessionTokens, status int, apply mutation) {
	if err := commonhttp.DecodeAndValidate(r, req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	v, err := authhttp.Authenticate(r.Context(), h.verifier, tokens())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	rotated := authhttp.RotatedFrom(v)

	res, err := apply(r.Context(), v.Account)
	if err != nil {
		h.errors.HandleError(w, r, err, rotated.Envelope())
		return
	}

	commonhttp.WriteJSON(w, status, postResponse{
		Success:       true,
		Post:          res.Post,
		Community:     &res.Community,
		RotatedTokens: rotated,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	h.serve(w, r, &req, func() authhttp.SessionTokens { return req.SessionTokens }, http.StatusCreated,
		func(ctx context.Context, account userdomain.Account) (service.Result, error) {
			return h.posts.Create(ctx, account, service.CreateInput{
				CommunityID: req.CommunityID,
				Content:     req.Content,
				Images:      req.Images,
			})
		})
}

func (h *Handler) like(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	h.serve(w, r, &req, func() authhttp.SessionTokens { return req.SessionTokens }, http.StatusOK,
		func(ctx context.Context, account userdomain.Account) (service.Result, error) {
			return h.posts.Like(ctx, account, req.PostID)
		})
}

func (h *Handler) unlike(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	h.serve(w, r, &req, func() authhttp.SessionTokens { return req.SessionTokens }, http.StatusOK,
		func(ctx context.Context, account userdomain.Account) (service.Result, error) {
			return h.posts.Unlike(ctx, account, req.PostID)
		})
}

func (h *Handler) comment(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	h.serve(w, r, &req, func() authhttp.SessionTokens { return req.SessionTokens }, http.StatusCreated,
		func(ctx context.Context, account userdomain.Account) (service.Result, error) {
			return h.posts.Comment(ctx, account, req.PostID, req.Content)
		})
}

func (h *Handler) likeComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	h.serve(w, r, &req, func() authhttp.SessionTokens { return req.SessionTokens }, http.StatusOK,
		func(ctx context.Context, account userdomain.Account) (service.Result, error) {
			return h.posts.LikeComment(ctx, account, req.CommentID)
		})
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	h.serve(w, r, &req, func() authhttp.SessionTokens { return req.SessionTokens }, http.StatusOK,
		func(ctx context.Context, account userdomain.Account) (service.Result, error) {
			return h.posts.Edit(ctx, account, req.PostID, req.Content)
		})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	h.serve(w, r, &req, func() authhttp.SessionTokens { return req.SessionTokens }, http.StatusOK,
		func(ctx context.Context, account userdomain.Account) (service.Result, error) {
			return h.posts.Delete(ctx, account, req.PostID)
		})
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request) {
	var req findRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	post, err := h.posts.Find(r.Context(), req.PostID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, postResponse{Success: true, Post: &post})
}
