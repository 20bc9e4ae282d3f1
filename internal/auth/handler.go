package auth

import (
	"net/http"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	if base == nil {
		base = transport.NewBaseHandler(nil)
	}
	return &Handler{
		BaseHandler: base,
		Service:     svc,
	}
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	tokens, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// Register handles POST /auth/register. The response has no body.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := h.Service.Register(r.Context(), dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Refresh handles POST /auth/refresh behind a refresh-token guard.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	payload, ok := PayloadFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	tokens, err := h.Service.Refresh(r.Context(), payload)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}
