package user

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrEmailExists    = errors.New("a user with this email already exists")
)

type GetFilter struct {
	ID              string
	UsernameOrEmail []string
}

type QueryFilter struct {
	Roles    []string
	IsActive *bool
}

type Repository interface {
	CreateUser(ctx context.Context, usr User) (User, error)
	GetUser(ctx context.Context, filter GetFilter) (User, error)
	QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
	UpdateUser(ctx context.Context, usr User) (User, error)
	UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
}
