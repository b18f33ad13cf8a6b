package board

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
	mux.HandleFunc("POST /boards", h.auth.Require(h.CreateBoard))
	mux.HandleFunc("GET /projects/{project_id}/boards", h.auth.Require(h.ListBoards))
	mux.HandleFunc("GET /boards/{id}", h.auth.Require(h.GetBoard))
	mux.HandleFunc("PATCH /boards/{id}", h.auth.Require(h.UpdateBoard))
	mux.HandleFunc("DELETE /boards/{id}", h.auth.Require(h.DeleteBoard))
	mux.HandleFunc("GET /boards/{id}/lists", h.auth.Require(h.ListLists))

	mux.HandleFunc("POST /lists", h.auth.Require(h.CreateList))
	mux.HandleFunc("GET /lists/{id}", h.auth.Require(h.GetList))
	mux.HandleFunc("PATCH /lists/{id}", h.auth.Require(h.UpdateList))
	mux.HandleFunc("DELETE /lists/{id}", h.auth.Require(h.DeleteList))
	mux.HandleFunc("GET /lists/{id}/tasks", h.auth.Require(h.ListTasks))

	mux.HandleFunc("POST /tasks", h.auth.Require(h.CreateTask))
	mux.HandleFunc("GET /tasks/{id}", h.auth.Require(h.GetTask))
	mux.HandleFunc("PATCH /tasks/{id}", h.auth.Require(h.UpdateTask))
	mux.HandleFunc("DELETE /tasks/{id}", h.auth.Require(h.DeleteTask))
	mux.HandleFunc("PUT /tasks/{id}/move", h.auth.Require(h.MoveTask))
	mux.HandleFunc("PUT /tasks/{id}/assign/{user_id}", h.auth.Require(h.AssignTask))
	mux.HandleFunc("GET /tasks/{id}/permission/{user_id}", h.auth.Require(h.TaskPermission))

	mux.HandleFunc("POST /tasks/{id}/labels", h.auth.Require(h.AddLabel))
	mux.HandleFunc("GET /tasks/{id}/labels", h.auth.Require(h.ListLabels))
	mux.HandleFunc("DELETE /labels/{id}", h.auth.Require(h.DeleteLabel))

	mux.HandleFunc("POST /tasks/{id}/attachments", h.auth.Require(h.AddAttachment))
	mux.HandleFunc("GET /tasks/{id}/attachments", h.auth.Require(h.ListAttachments))
	mux.HandleFunc("DELETE /attachments/{id}", h.auth.Require(h.DeleteAttachment))
}

// target resolves the caller and the named path id.
func (h *Handler) target(w http.ResponseWriter, r *http.Request, name string) (token.Identity, int64, bool) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return caller, 0, false
	}
	id, err := respond.PathID(r, name)
	if err != nil {
		respond.Error(w, h.logger, err)
		return caller, 0, false
	}
	return caller, id, true
}

// write sends v or the error.
func (h *Handler) write(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, status, v)
}

func (h *Handler) deleted(w http.ResponseWriter, err error, detail string) {
	h.write(w, http.StatusOK, respond.ErrorBody{Detail: detail}, err)
}

func (h *Handler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	var req BoardRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	b, err := h.svc.CreateBoard(r.Context(), caller, req)
	h.write(w, http.StatusCreated, b, err)
}

func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	caller, projectID, ok := h.target(w, r, "project_id")
	if !ok {
		return
	}
	out, err := h.svc.ListProjectBoards(r.Context(), caller, projectID)
	h.write(w, http.StatusOK, out, err)
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	b, err := h.svc.GetBoard(r.Context(), caller, id)
	h.write(w, http.StatusOK, b, err)
}

func (h *Handler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	var req BoardPatch
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	b, err := h.svc.UpdateBoard(r.Context(), caller, id, req)
	h.write(w, http.StatusOK, b, err)
}

func (h *Handler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	h.deleted(w, h.svc.DeleteBoard(r.Context(), caller, id), "Board deleted")
}

func (h *Handler) ListLists(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	out, err := h.svc.ListLists(r.Context(), caller, id)
	h.write(w, http.StatusOK, out, err)
}

func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	var req ListRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	l, err := h.svc.CreateList(r.Context(), caller, req)
	h.write(w, http.StatusCreated, l, err)
}

func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	l, err := h.svc.GetList(r.Context(), caller, id)
	h.write(w, http.StatusOK, l, err)
}

func (h *Handler) UpdateList(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	var req ListPatch
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	l, err := h.svc.UpdateList(r.Context(), caller, id, req)
	h.write(w, http.StatusOK, l, err)
}

func (h *Handler) DeleteList(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	h.deleted(w, h.svc.DeleteList(r.Context(), caller, id), "List deleted")
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	out, err := h.svc.ListTasks(r.Context(), caller, id)
	h.write(w, http.StatusOK, out, err)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	caller, err := router.Caller(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	var req TaskRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	t, err := h.svc.CreateTask(r.Context(), caller, req)
	h.write(w, http.StatusCreated, t, err)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetTask(r.Context(), caller, id)
	h.write(w, http.StatusOK, t, err)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	var req TaskPatch
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	t, err := h.svc.UpdateTask(r.Context(), caller, id, req)
	h.write(w, http.StatusOK, t, err)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	h.deleted(w, h.svc.DeleteTask(r.Context(), caller, id), "Task deleted")
}

func (h *Handler) MoveTask(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	var req MoveRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	t, err := h.svc.MoveTask(r.Context(), caller, id, req)
	h.write(w, http.StatusOK, t, err)
}

func (h *Handler) AssignTask(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	userID, err := respond.PathID(r, "user_id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	t, err := h.svc.AssignTask(r.Context(), caller, id, userID)
	h.write(w, http.StatusOK, t, err)
}

func (h *Handler) TaskPermission(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	userID, err := respond.PathID(r, "user_id")
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	p, err := h.svc.TaskPermission(r.Context(), caller, id, userID)
	h.write(w, http.StatusOK, p, err)
}

func (h *Handler) AddLabel(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	var req LabelRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	l, err := h.svc.AddLabel(r.Context(), caller, id, req)
	h.write(w, http.StatusCreated, l, err)
}

func (h *Handler) ListLabels(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	out, err := h.svc.ListLabels(r.Context(), caller, id)
	h.write(w, http.StatusOK, out, err)
}

func (h *Handler) DeleteLabel(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	h.deleted(w, h.svc.DeleteLabel(r.Context(), caller, id), "Label deleted")
}

func (h *Handler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	var req AttachmentRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	a, err := h.svc.AddAttachment(r.Context(), caller, id, req)
	h.write(w, http.StatusCreated, a, err)
}

func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	out, err := h.svc.ListAttachments(r.Context(), caller, id)
	h.write(w, http.StatusOK, out, err)
}

func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r, "id")
	if !ok {
		return
	}
	h.deleted(w, h.svc.DeleteAttachment(r.Context(), caller, id), "Attachment deleted")
}
