package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var ErrUserNotFound = errors.New("user not found")

// usernameのunique制約に当たったとき
var ErrUsernameTaken = errors.New("username already taken")

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	Create(ctx context.Context, u model.User) (int64, error)
}
