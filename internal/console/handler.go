// AngelaMos | 2026
// handler.go

package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/carterperez-dev/reseller-console/internal/core"
	"github.com/carterperez-dev/reseller-console/internal/middleware"
)

const confirmHeader = "X-Confirm"

type HandlerConfig struct {
	Loop           *Loop
	Hub            *Hub
	ExportPrefix   string
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Handler struct {
	loop         *Loop
	hub          *Hub
	exportPrefix string
	upgrader     websocket.Upgrader
	validator    *validator.Validate
	logger       *slog.Logger
	now          func() time.Time
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	origins := slices.Clone(cfg.AllowedOrigins)

	return &Handler{
		loop:         cfg.Loop,
		hub:          cfg.Hub,
		exportPrefix: cfg.ExportPrefix,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" ||
					slices.Contains(origins, "*") ||
					slices.Contains(origins, origin)
			},
		},
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/console", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireAdmin)

		r.Get("/snapshot", h.GetSnapshot)
		r.Post("/refresh", h.Refresh)
		r.Get("/export", h.Export)
		r.Get("/ws", h.ServeWS)

		r.Put("/users/{userID}/membership", h.SetMembership)

		r.Post("/orders/confirm", h.ConfirmOrder)
		r.Post("/orders/{orderID}/reset", h.ResetOrder)
		r.Delete("/orders/{orderID}", h.DeleteOrder)

		r.Post("/offers", h.CreateOffer)
		r.Post("/offers/{offerID}/toggle", h.ToggleOffer)
		r.Delete("/offers/{offerID}", h.DeleteOffer)

		r.Post("/coupons", h.CreateCoupon)
		r.Post("/coupons/{couponID}/toggle", h.ToggleCoupon)
		r.Post("/coupons/{couponID}/reset", h.ResetCouponUsage)
		r.Delete("/coupons/{couponID}", h.DeleteCoupon)

		r.Post("/plans", h.CreatePlan)
		r.Put("/plans/{planID}", h.UpdatePlan)
		r.Delete("/plans/{planID}", h.DeletePlan)
	})
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.loop.Snapshot())
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.loop.Refresh(r.Context()); err != nil {
		core.JSONError(w, core.NewAppError(
			core.ErrUnavailable,
			"backing store unavailable",
			http.StatusServiceUnavailable,
			"UNAVAILABLE",
		))
		return
	}

	core.OK(w, h.loop.Snapshot())
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	now := h.now()

	var buf bytes.Buffer
	if err := WriteBackup(&buf, NewBackup(h.loop.Snapshot(), now), format); err != nil {
		core.InternalServerError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(
		`attachment; filename="%s"`,
		ExportFilename(h.exportPrefix, format, now),
	))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // best-effort response write
	_, _ = buf.WriteTo(w)
}

// ServeWS upgrades to the render stream. Authentication has already run,
// with the token taken from the access_token query parameter.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identityID := middleware.GetIdentityID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("render stream upgrade failed",
			"identity_id", identityID,
			"error", err,
		)
		return
	}

	client := NewClient(h.hub, conn, identityID)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

type membershipRequest struct {
	MembershipType string `json:"membershipType" validate:"omitempty,oneof=normal premium"`
}

func (h *Handler) SetMembership(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.loop.SetMembership(
		r.Context(),
		chi.URLParam(r, "userID"),
		req.MembershipType,
	)
	h.respond(w, res, err, "user")
}

type confirmOrderRequest struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	var req confirmOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.loop.ConfirmOrder(r.Context(), req.OrderID)
	if err == nil && !res.Applied && res.Message == MsgOrderNotFound {
		core.JSONError(w, core.NewAppError(
			core.ErrNotFound,
			MsgOrderNotFound,
			http.StatusNotFound,
			"NOT_FOUND",
		))
		return
	}
	h.respond(w, res, err, "order")
}

func (h *Handler) ResetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	h.destructive(w, r, PromptResetOrder, "order",
		func(ctx context.Context, c Confirmer) (Result, error) {
			return h.loop.ResetOrder(ctx, c, id)
		})
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	h.destructive(w, r, PromptDeleteOrder, "order",
		func(ctx context.Context, c Confirmer) (Result, error) {
			return h.loop.DeleteOrder(ctx, c, id)
		})
}

func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req OfferInput
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.loop.CreateOffer(r.Context(), req)
	h.respond(w, res, err, "offer")
}

func (h *Handler) ToggleOffer(w http.ResponseWriter, r *http.Request) {
	res, err := h.loop.ToggleOffer(r.Context(), chi.URLParam(r, "offerID"))
	h.respond(w, res, err, "offer")
}

func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "offerID")
	h.destructive(w, r, PromptDeleteOffer, "offer",
		func(ctx context.Context, c Confirmer) (Result, error) {
			return h.loop.DeleteOffer(ctx, c, id)
		})
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponInput
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.loop.CreateCoupon(r.Context(), req)
	h.respond(w, res, err, "coupon")
}

func (h *Handler) ToggleCoupon(w http.ResponseWriter, r *http.Request) {
	res, err := h.loop.ToggleCoupon(r.Context(), chi.URLParam(r, "couponID"))
	h.respond(w, res, err, "coupon")
}

func (h *Handler) ResetCouponUsage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "couponID")
	h.destructive(w, r, PromptResetCoupon, "coupon",
		func(ctx context.Context, c Confirmer) (Result, error) {
			return h.loop.ResetCouponUsage(ctx, c, id)
		})
}

func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "couponID")
	h.destructive(w, r, PromptDeleteCoupon, "coupon",
		func(ctx context.Context, c Confirmer) (Result, error) {
			return h.loop.DeleteCoupon(ctx, c, id)
		})
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanInput
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.loop.CreatePlan(r.Context(), req)
	h.respond(w, res, err, "plan")
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanInput
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.loop.UpdatePlan(r.Context(), chi.URLParam(r, "planID"), req)
	h.respond(w, res, err, "plan")
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "planID")
	h.destructive(w, r, PromptDeletePlan, "plan",
		func(ctx context.Context, c Confirmer) (Result, error) {
			return h.loop.DeletePlan(ctx, c, id)
		})
}

// destructive answers the confirmation from the request. A request that
// carries no answer gets 428 with the prompt so the caller can ask the
// operator and retry.
func (h *Handler) destructive(
	w http.ResponseWriter,
	r *http.Request,
	prompt, resource string,
	action func(context.Context, Confirmer) (Result, error),
) {
	answer, answered := confirmAnswer(r)
	if !answered {
		core.JSONError(w, core.ConfirmationRequiredError(prompt))
		return
	}

	res, err := action(r.Context(), ConfirmFunc(
		func(context.Context, string) bool { return answer },
	))
	h.respond(w, res, err, resource)
}

func confirmAnswer(r *http.Request) (answer, answered bool) {
	v := r.URL.Query().Get("confirm")
	if v == "" {
		v = r.Header.Get(confirmHeader)
	}

	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "1":
		return true, true
	case "false", "no", "0":
		return false, true
	}
	return false, false
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func (h *Handler) respond(w http.ResponseWriter, res Result, err error, resource string) {
	switch {
	case err == nil:
		core.OK(w, res)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, resource)
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError(resource))
	default:
		core.InternalServerError(w, err)
	}
}
