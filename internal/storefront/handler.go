// AngelaMos | 2026
// handler.go

package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/reseller-console/internal/core"
	"github.com/carterperez-dev/reseller-console/internal/member"
	"github.com/carterperez-dev/reseller-console/internal/middleware"
	"github.com/carterperez-dev/reseller-console/internal/order"
)

// Store is the slice of the backing store the storefront writes to.
type Store interface {
	GetUser(ctx context.Context, id string) (*member.Member, error)
	PlaceOrder(ctx context.Context, m *member.Member, o *order.Order) error
}

type Handler struct {
	store     Store
	validator *validator.Validate
	now       func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{
		store:     store,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/storefront", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Post("/orders", h.PlaceOrder)
	})
}

type PlaceOrderRequest struct {
	Type     string `json:"type"     validate:"required,oneof=minecraft vps domain"`
	PlanName string `json:"planName" validate:"required,max=200"`
	Username string `json:"username" validate:"omitempty,max=100"`
}

type PlaceOrderResponse struct {
	Order  *order.Order   `json:"order"`
	Member *member.Member `json:"member"`
}

// PlaceOrder records an order for the calling identity. The caller's member
// record is created on first purchase and its device refreshed after.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		core.Unauthorized(w, "")
		return
	}

	device := member.DeviceFromUserAgent(r.UserAgent())

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username, _, _ = strings.Cut(claims.Email, "@")
	}

	m := &member.Member{
		ID:         claims.IdentityID,
		Username:   username,
		Email:      claims.Email,
		DeviceInfo: device,
	}

	o := &order.Order{
		ID:         uuid.NewString(),
		OrderID:    order.NewOrderID(h.now()),
		MemberID:   claims.IdentityID,
		Type:       req.Type,
		PlanName:   req.PlanName,
		Status:     order.StatusPending,
		DeviceInfo: device,
	}

	if err := h.store.PlaceOrder(r.Context(), m, o); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("order"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, PlaceOrderResponse{Order: o, Member: m})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	identityID := middleware.GetIdentityID(r.Context())

	m, err := h.store.GetUser(r.Context(), identityID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "member")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, m)
}
