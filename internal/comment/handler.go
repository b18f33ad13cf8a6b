package comment

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/respond"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/router"
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
	mux.HandleFunc("POST /comments", h.auth.Require(h.Create))
	mux.HandleFunc("GET /comments/{id}", h.auth.Require(h.Get))
	mux.HandleFunc("PUT /comments/{id}", h.auth.Require(h.Update))
	mux.HandleFunc("PATCH /comments/{id}", h.auth.Require(h.Update))
	mux.HandleFunc("DELETE /comments/{id}", h.auth.Require(h.Delete))
	mux.HandleFunc("GET /tasks/{task_id}/comments", h.auth.Require(h.ListByTask))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	var req CommentRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	c, err := h.svc.Create(r.Context(), caller, req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
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
	c, err := h.svc.Get(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) ListByTask(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	taskID, err := respond.PathID(r, "task_id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	out, err := h.svc.ListByTask(r.Context(), caller, taskID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
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
	var req CommentPatch
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	c, err := h.svc.Update(r.Context(), caller, id, req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.svc.Delete(r.Context(), caller, id); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("comment deleted", "comment_id", id, "by", caller.UserID)
	respond.JSON(w, http.StatusOK, respond.ErrorBody{Detail: "Comment deleted"})
}
