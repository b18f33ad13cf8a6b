package project

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/respond"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-kanban-go/pkg/token"
)

type Handler struct {
	svc    *Service
	auth   *router.Authenticator
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, auth *router.Authenticator, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, auth: auth, logger: logger}
}

func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /projects", h.auth.Require(h.Create))
	mux.HandleFunc("GET /projects", h.auth.Require(h.List))
	mux.HandleFunc("GET /projects/{id}", h.auth.Require(h.Get))
	mux.HandleFunc("PATCH /projects/{id}", h.auth.Require(h.Update))
	mux.HandleFunc("DELETE /projects/{id}", h.auth.Require(h.Delete))
	mux.HandleFunc("GET /projects/{id}/members", h.auth.Require(h.ListMembers))
	mux.HandleFunc("POST /projects/{id}/members", h.auth.Require(h.Invite))
	mux.HandleFunc("GET /projects/{id}/members/{user_id}", h.auth.Require(h.Permission))
	mux.HandleFunc("PATCH /projects/{id}/members/{user_id}", h.auth.Require(h.UpdateMember))
	mux.HandleFunc("DELETE /projects/{id}/members/{user_id}", h.auth.Require(h.DeleteMember))
}

// target resolves the caller and the {id} path value shared by most routes.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (token.Identity, int64, bool) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return caller, 0, false
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return caller, 0, false
	}
	return caller, id, true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	var req ProjectRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	p, err := h.svc.CreateProject(r.Context(), caller, req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("project created", "project_id", p.ID, "owner_id", p.OwnerID)
	respond.JSON(w, http.StatusCreated, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	out, err := h.svc.ListProjects(r.Context(), caller)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetProject(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req ProjectPatch
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	p, err := h.svc.UpdateProject(r.Context(), caller, id, req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteProject(r.Context(), caller, id); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("project deleted", "project_id", id, "by", caller.UserID)
	respond.JSON(w, http.StatusOK, respond.ErrorBody{Detail: "Project deleted"})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	out, err := h.svc.ListMembers(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req MemberRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	m, err := h.svc.InviteMember(r.Context(), caller, id, req)
	if err != nil {
		h.logger.Infow("invite rejected", "project_id", id, "user_id", req.UserID, "err", err)
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("member invited", "project_id", id, "user_id", m.UserID, "role", m.Role)
	respond.JSON(w, http.StatusCreated, m)
}

func (h *Handler) Permission(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	userID, err := respond.PathID(r, "user_id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	out, err := h.svc.Permission(r.Context(), caller, id, userID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	userID, err := respond.PathID(r, "user_id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	var req RoleRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	m, err := h.svc.UpdateMemberRole(r.Context(), caller, id, userID, req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	userID, err := respond.PathID(r, "user_id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	if err := h.svc.DeleteMember(r.Context(), caller, id, userID); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("member removed", "project_id", id, "user_id", userID, "by", caller.UserID)
	respond.JSON(w, http.StatusOK, respond.ErrorBody{Detail: "Member removed"})
}
