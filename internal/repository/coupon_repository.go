package repository

import (
	"context"

	"shop/internal/domain/model"
)

// クーポンの永続化。checkout側からは読み取り専用。
type CouponRepository interface {
	// codeは正規化済み（大文字・trim済み）で渡す
	FindByCode(ctx context.Context, code string) (model.Coupon, error)

	Create(ctx context.Context, c model.Coupon) (model.Coupon, error)
	Update(ctx context.Context, c model.Coupon) error
	List(ctx context.Context, page int, limit int) ([]model.Coupon, int64, error)
}
