// AngelaMos | 2026
// handler.go

package identity

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/reseller-console/internal/core"
	"github.com/carterperez-dev/reseller-console/internal/middleware"
)

const maxAuthBody = 16 << 10

// LoadingReporter is satisfied by the authz registry.
type LoadingReporter interface {
	Loading() bool
}

type Handler struct {
	service   *Service
	state     LoadingReporter
	validator *validator.Validate
}

func NewHandler(service *Service, state LoadingReporter) *Handler {
	return &Handler{
		service:   service,
		state:     state,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetMe)
			r.Get("/state", h.GetState)
			r.Post("/logout", h.Logout)
		})
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	resp, err := h.service.SignIn(r.Context(), req, r.UserAgent(), middleware.ClientIP(r))
	if err != nil {
		core.JSONError(w, sessionError(err))
		return
	}
	core.OK(w, resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	resp, err := h.service.Refresh(
		r.Context(),
		req.RefreshToken,
		r.UserAgent(),
		middleware.ClientIP(r),
	)
	if err != nil {
		core.JSONError(w, sessionError(err))
		return
	}
	core.OK(w, resp)
}

// Logout accepts an optional refresh token in the body; the access token
// is always blacklisted.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		core.Unauthorized(w, "")
		return
	}

	var req RefreshRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	if err := h.service.SignOut(r.Context(), req.RefreshToken, claims); err != nil {
		core.JSONError(w, sessionError(err))
		return
	}
	core.NoContent(w)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		core.Unauthorized(w, "")
		return
	}
	core.OK(w, principal)
}

// GetState is what the console gate polls before rendering.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	core.OK(w, StateResponse{
		Loading:   h.state != nil && h.state.Loading(),
		Principal: middleware.GetPrincipal(r.Context()),
	})
}

// decode reads a bounded JSON body into dst. With optional set an empty
// body is accepted and validation is skipped.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody)).Decode(dst)
	switch {
	case optional && errors.Is(err, io.EOF):
		return true
	case err != nil:
		core.BadRequest(w, "invalid request body")
		return false
	case optional:
		return true
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func sessionError(err error) *core.AppError {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return core.UnauthorizedError("invalid email or password")
	case errors.Is(err, ErrTokenReuse):
		return core.NewAppError(
			core.ErrTokenRevoked,
			"refresh token reuse detected, session family revoked",
			http.StatusUnauthorized,
			"TOKEN_REUSE_DETECTED",
		)
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenRevoked):
		return core.TokenRevokedError()
	case errors.Is(err, core.ErrTokenInvalid):
		return core.TokenInvalidError()
	case errors.Is(err, core.ErrForbidden):
		return core.ForbiddenError("cannot revoke another identity's token")
	case errors.Is(err, core.ErrUnauthorized):
		return core.UnauthorizedError("")
	}
	return core.InternalError(err)
}
