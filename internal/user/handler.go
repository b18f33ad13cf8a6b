package user

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/respond"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/router"
)

// Handler exposes HTTP endpoints for registration, profiles and roles.
type Handler struct {
	svc    *UserService
	auth   *router.Authenticator
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, auth *router.Authenticator, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, auth: auth, logger: logger}
}

// Routes registers the user endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /roles", h.ListRoles)
	mux.HandleFunc("POST /roles", h.auth.Require(h.CreateRole))
	mux.HandleFunc("GET /users/me", h.auth.Require(h.Me))
	mux.HandleFunc("GET /users/{id}", h.auth.Require(h.Get))
	mux.HandleFunc("PATCH /users/{id}", h.auth.Require(h.Update))
	mux.HandleFunc("DELETE /users/{id}/soft", h.auth.Require(h.SoftDelete))
	mux.HandleFunc("POST /users/{id}/reactivate", h.auth.Require(h.Reactivate))
	mux.HandleFunc("DELETE /users/{id}/hard", h.auth.Require(h.HardDelete))
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	u, err := h.svc.SignupUser(r.Context(), req)
	if err != nil {
		h.logger.Debugw("signup failed", "email", req.Email, "err", err)
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("user registered", "user_id", u.ID)
	respond.JSON(w, http.StatusCreated, u)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	u, err := h.svc.Get(r.Context(), caller.UserID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	var req UpdateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	u, err := h.svc.Update(r.Context(), caller, id, req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	u, err := h.svc.SoftDelete(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("user deactivated", "user_id", id, "by", caller.UserID)
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	u, err := h.svc.Reactivate(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("user reactivated", "user_id", id, "by", caller.UserID)
	respond.JSON(w, http.StatusOK, u)
}

func (h *Handler) HardDelete(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	if err := h.svc.HardDelete(r.Context(), caller, id); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("user deleted", "user_id", id, "by", caller.UserID)
	respond.JSON(w, http.StatusOK, respond.ErrorBody{Detail: "User permanently deleted"})
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	var req RoleRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	role, err := h.svc.CreateRole(r.Context(), caller, req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, role)
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.ListRoles(r.Context())
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, roles)
}
