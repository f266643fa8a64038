package http

import (
	"context"
	"net/http"
	"time"

	authdomain "github.com/SoftwareFuze/ScrapBook/internal/auth/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/auth/service"
	commonhttp "github.com/SoftwareFuze/ScrapBook/internal/common/http"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (authdomain.Session, error)
	Login(ctx context.Context, input service.LoginInput) (authdomain.Session, error)
	Logout(ctx context.Context, tokens authdomain.TokenPair) error
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Avatar   string `json:"avatar" validate:"omitempty,url,max=2048"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Success      bool               `json:"success"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
	Account      userdomain.Account `json:"account"`
}

type accountResponse struct {
	LoggedIn bool                `json:"loggedIn"`
	Account  *userdomain.Account `json:"account,omitempty"`
	Redirect string              `json:"redirect,omitempty"`
	RotatedTokens
}

type successResponse struct {
	Success bool `json:"success"`
}

type Handler struct {
	auth     AuthService
	verifier Authenticator
	errors   *commonhttp.ErrorHandler
	log      *logger.Logger
	timeout  time.Duration
}

func NewHandler(auth AuthService, verifier Authenticator, timeout time.Duration, log *logger.Logger) *Handler {
	return &Handler{
		auth:     auth,
		verifier: verifier,
		errors:   commonhttp.NewErrorHandler(log),
		log:      log,
		timeout:  timeout,
	}
}

func (h *Handler) Mount(mux *http.ServeMux, limiter *commonhttp.StrictRateLimiter) {
	limiter.Handle(mux, "/users", commonhttp.Post(h.timeout, h.register))
	limiter.Handle(mux, "/auth/login", commonhttp.Post(h.timeout, h.login))
	limiter.Handle(mux, "/auth/account", commonhttp.Post(h.timeout, h.account))
	limiter.Handle(mux, "/auth/logout", commonhttp.Post(h.timeout, h.logout))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	session, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, newSessionResponse(session))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	session, err := h.auth.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, newSessionResponse(session))
}

func (h *Handler) account(w http.ResponseWriter, r *http.Request) {
	var req SessionTokens
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	v, err := h.verifier.Verify(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	resp := accountResponse{
		LoggedIn:      v.LoggedIn,
		Redirect:      v.Redirect,
		RotatedTokens: RotatedFrom(v),
	}
	if v.LoggedIn {
		account := v.Account
		resp.Account = &account
	}
	commonhttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req SessionTokens
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	if err := h.auth.Logout(r.Context(), req.Pair()); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

func newSessionResponse(session authdomain.Session) sessionResponse {
	return sessionResponse{
		Success:      true,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
		Account:      session.Account,
	}
}
