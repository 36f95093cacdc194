package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/veduta/accounts-api/internal/data"
	"github.com/veduta/accounts-api/internal/domain/model"
	"github.com/veduta/accounts-api/internal/ports"
)

// UserService exposes account administration operations.
type UserService struct {
	users ports.UserRepository
}

// NewUserService constructs a new UserService.
func NewUserService(users ports.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns users ordered by creation time, newest first.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns a single user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, data.ErrUserNotFound) {
		return nil, reject(http.StatusNotFound, MsgRecoverUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// SetActive flips the account's active state. Deactivated accounts are
// refused at login and by the auth gate.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	err := s.users.SetActive(ctx, id, active)
	if errors.Is(err, data.ErrUserNotFound) {
		return reject(http.StatusNotFound, MsgRecoverUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}
