package login

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/respond"
)

type Handler struct {
	issuer *Issuer
	logger *zap.SugaredLogger
}

func NewHandler(issuer *Issuer, logger *zap.SugaredLogger) *Handler {
	return &Handler{issuer: issuer, logger: logger}
}

func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /token", h.Token)
	mux.HandleFunc("POST /introspect", h.Introspect)
}

// credentials reads username/password from a form body, or from JSON when
// the content type says so.
func credentials(r *http.Request) (string, string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", "", apperr.Validation("invalid payload").WithCause(err)
		}
		if body.Username == "" {
			body.Username = body.Email
		}
		return body.Username, body.Password, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", "", apperr.Validation("invalid payload").WithCause(err)
	}
	return r.PostForm.Get("username"), r.PostForm.Get("password"), nil
}

func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	username, password, err := credentials(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	if username == "" || password == "" {
		respond.Error(w, h.logger, apperr.Validation("username and password are required"))
		return
	}
	resp, err := h.issuer.IssueToken(r.Context(), username, password)
	if err != nil {
		h.logger.Infow("login rejected", "username", username, "err", err)
		if errors.Is(err, apperr.ErrAuthentication) {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		respond.Error(w, h.logger, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Introspect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respond.Error(w, h.logger, apperr.Validation("invalid payload").WithCause(err))
		return
	}
	raw := r.PostForm.Get("token")
	if raw == "" {
		respond.Error(w, h.logger, apperr.Validation("token is required"))
		return
	}
	respond.JSON(w, http.StatusOK, h.issuer.Introspect(raw))
}
