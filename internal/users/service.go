package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// UserDTO is the back-office view of an account.
type UserDTO struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	Username  string         `json:"username"`
	Role      enums.UserRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

type UserListResult struct {
	Users      []UserDTO `json:"users"`
	TotalUsers int64     `json:"total_users"`
	TotalPages int       `json:"total_pages"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
}

func FromModel(u *models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Service backs the admin user management screens.
type Service interface {
	ListUsers(ctx context.Context, search string, params pagination.Params) (*UserListResult, error)
	ChangeRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (*UserDTO, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type userStore interface {
	List(ctx context.Context, search string, params pagination.Params) ([]models.User, int64, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo userStore
}

func NewService(repo userStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListUsers(ctx context.Context, search string, params pagination.Params) (*UserListResult, error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, search, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return &UserListResult{
		Users:      out,
		TotalUsers: total,
		TotalPages: pagination.TotalPages(total, params.Limit),
		Page:       params.Page,
		Limit:      params.Limit,
	}, nil
}

func (s *service) ChangeRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be user or admin")
	}
	user, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, mapRepoError(err, "update user role")
	}
	dto := FromModel(user)
	return &dto, nil
}

func (s *service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, "delete user")
	}
	return nil
}

func mapRepoError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
