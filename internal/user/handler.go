package user

import (
	"net/http"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/ability"
	"github.com/frahmantamala/user-management/internal/transport"
	"github.com/go-chi/chi"
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

// Create handles POST /users
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	u, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, u)
}

// FindAll handles GET /users/all
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.FindAll(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, users)
}

// FindByID handles GET /users/{id}
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// FindByUsername handles GET /users?username=
func (h *Handler) FindByUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		h.WriteAppError(w, r, internal.NewBadRequestError("username query parameter is required", internal.ErrCodeMissingParameter))
		return
	}

	u, err := h.Service.FindByUsername(r.Context(), username)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// Update handles PUT /users/{id}. Non-admins may only update their own
// record, and only admins may change status or roles.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	var dto UpdateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	target, err := h.Service.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if !NewAbility(actor).Can(ability.UpdateOwn, target) {
		h.WriteAppError(w, r, internal.ErrPermissionDenied)
		return
	}
	if dto.Privileged() && !actor.HasAnyRole(RoleAdmin) {
		h.WriteAppError(w, r, internal.ErrPermissionDenied)
		return
	}

	updated, err := h.Service.Update(r.Context(), target.ID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /users/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrMissingToken)
		return
	}

	target, err := h.Service.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if !NewAbility(actor).Can(ability.DeleteOwn, target) {
		h.WriteAppError(w, r, internal.ErrPermissionDenied)
		return
	}

	if err := h.Service.Delete(r.Context(), target.ID); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
