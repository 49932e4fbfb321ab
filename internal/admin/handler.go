// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/reseller-console/internal/authz"
	"github.com/carterperez-dev/reseller-console/internal/console"
	"github.com/carterperez-dev/reseller-console/internal/core"
)

// ConsoleState is the read side of the console loop.
type ConsoleState interface {
	Mounted() bool
	Snapshot() console.Snapshot
}

type ClientCounter interface {
	TotalClients() int
}

// Reresolver republishes a principal after its role record changed.
type Reresolver interface {
	Reresolve(identityID string)
}

type Handler struct {
	dbStats     func() sql.DBStats
	redisStats  func() *redis.PoolStats
	redisPing   func(ctx context.Context) error
	dbPing      func(ctx context.Context) error
	syncVersion func() int64
	console     ConsoleState
	hub         ClientCounter
	records     authz.RecordStore
	principals  Reresolver
	validator   *validator.Validate
	started     time.Time
}

type HandlerConfig struct {
	DBStats     func() sql.DBStats
	RedisStats  func() *redis.PoolStats
	RedisPing   func(ctx context.Context) error
	DBPing      func(ctx context.Context) error
	SyncVersion func() int64
	Console     ConsoleState
	Hub         ClientCounter
	Records     authz.RecordStore
	Principals  Reresolver
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:     cfg.DBStats,
		redisStats:  cfg.RedisStats,
		redisPing:   cfg.RedisPing,
		dbPing:      cfg.DBPing,
		syncVersion: cfg.SyncVersion,
		console:     cfg.Console,
		hub:         cfg.Hub,
		records:     cfg.Records,
		principals:  cfg.Principals,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		started:     time.Now(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly, superAdminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			r.Get("/system", h.GetSystemStatus)
			r.Get("/system/db", h.GetDatabaseStats)
			r.Get("/system/redis", h.GetRedisStats)
			r.Get("/system/runtime", h.GetRuntimeStats)
		})

		r.Group(func(r chi.Router) {
			r.Use(superAdminOnly)

			r.Get("/roles/{identityID}", h.GetRole)
			r.Put("/roles/{identityID}", h.PutRole)
			r.Delete("/roles/{identityID}", h.DeleteRole)
		})
	})
}

type PutRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin super_admin"`
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	record, err := h.records.GetRoleRecord(r.Context(), chi.URLParam(r, "identityID"))
	if err != nil {
		h.respondRecordError(w, err)
		return
	}

	core.OK(w, record)
}

// PutRole writes a role record and asks the registry to re-resolve the
// identity so the change is visible without a new sign-in.
func (h *Handler) PutRole(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "identityID")

	var req PutRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	record, err := h.records.PutRoleRecord(r.Context(), identityID, req.Role)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	if h.principals != nil {
		h.principals.Reresolve(identityID)
	}

	core.OK(w, record)
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "identityID")

	if err := h.records.DeleteRoleRecord(r.Context(), identityID); err != nil {
		h.respondRecordError(w, err)
		return
	}

	if h.principals != nil {
		h.principals.Reresolve(identityID)
	}

	core.NoContent(w)
}

func (h *Handler) respondRecordError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "role record")
		return
	}
	core.InternalServerError(w, err)
}
