package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/veduta/accounts-api/internal/domain/model"
)

// UsersServiceInterface defines the interface for user administration operations.
type UsersServiceInterface interface {
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// UserHandlers provides HTTP handlers for user administration.
type UserHandlers struct {
	Svc UsersServiceInterface
}

// List handles GET /api/v1/users.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	users, err := h.Svc.List(r.Context(), limit, offset)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	public := make([]model.PublicUser, len(users))
	for i, u := range users {
		public[i] = u.Public()
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"users": public},
	})
}

// Get handles GET /api/v1/users/{userId}.
func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.Svc.Get(r.Context(), r.PathValue("userId"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"user": user.Public()},
	})
}

// Deactivate handles PATCH /api/v1/users/{userId}/deactivate.
func (h *UserHandlers) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.SetActive(r.Context(), r.PathValue("userId"), false); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "User deactivated",
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
