package repository

import (
	"context"

	"shop/internal/domain/model"
)

// 保存・取得を約束。見つからないときは(nil, nil)を返す。
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}
