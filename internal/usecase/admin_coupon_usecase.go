package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

type AdminCouponUsecase struct {
	couponRepo repo.CouponRepository
}

func NewAdminCouponUsecase(couponRepo repo.CouponRepository) *AdminCouponUsecase {
	return &AdminCouponUsecase{couponRepo: couponRepo}
}

type AdminCouponInput struct {
	Code       string     `json:"code"`
	Type       string     `json:"type"`
	Value      int64      `json:"value"`
	Status     string     `json:"status"`
	UsageLimit int64      `json:"usage_limit"`
	StartsAt   *time.Time `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
}

func validateAdminCouponInput(in AdminCouponInput) error {
	if normalizeCouponCode(in.Code) == "" {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "code required")
	}

	switch model.CouponType(in.Type) {
	case model.CouponTypePercent:
		if in.Value <= 0 || in.Value > 100 {
			return NewAppError(http.StatusBadRequest, CodeValidationError, "percent value must be 1-100")
		}
	case model.CouponTypeBxgy:
		if in.Value <= 0 {
			return NewAppError(http.StatusBadRequest, CodeValidationError, "value must be positive")
		}
	default:
		return NewAppError(http.StatusBadRequest, CodeValidationError, "invalid type")
	}

	switch model.CouponStatus(in.Status) {
	case model.CouponStatusActive, model.CouponStatusDraft, model.CouponStatusExpired:
	default:
		return NewAppError(http.StatusBadRequest, CodeValidationError, "invalid status")
	}

	if in.UsageLimit < 0 {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "usage_limit must be >= 0")
	}
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "ends_at must be after starts_at")
	}
	return nil
}

func (u *AdminCouponUsecase) Create(ctx context.Context, in AdminCouponInput) (int64, error) {
	if err := validateAdminCouponInput(in); err != nil {
		return 0, err
	}

	now := time.Now()
	c, err := u.couponRepo.Create(ctx, model.Coupon{
		Code:       normalizeCouponCode(in.Code),
		Type:       model.CouponType(in.Type),
		Value:      in.Value,
		Status:     model.CouponStatus(in.Status),
		UsageLimit: in.UsageLimit,
		StartsAt:   in.StartsAt,
		EndsAt:     in.EndsAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		//codeのunique制約に当たった場合もここに来る
		return 0, NewAppError(http.StatusConflict, CodeConflict, "coupon code already exists")
	}
	return c.ID, nil
}

func (u *AdminCouponUsecase) List(ctx context.Context, page int, limit int) ([]model.Coupon, int64, error) {
	if page < 1 {
		return nil, 0, NewAppError(http.StatusBadRequest, CodeValidationError, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return nil, 0, NewAppError(http.StatusBadRequest, CodeValidationError, "invalid limit")
	}

	items, total, err := u.couponRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, errInternal()
	}
	return items, total, nil
}

// UpdateStatusはステータスのみ更新する（draft⇄active、expiredへの切替）
func (u *AdminCouponUsecase) UpdateStatus(ctx context.Context, code string, status string) error {
	code = normalizeCouponCode(code)
	if code == "" {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "code required")
	}
	switch model.CouponStatus(strings.TrimSpace(status)) {
	case model.CouponStatusActive, model.CouponStatusDraft, model.CouponStatusExpired:
	default:
		return NewAppError(http.StatusBadRequest, CodeValidationError, "invalid status")
	}

	c, err := u.couponRepo.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return NewAppError(http.StatusNotFound, CodeNotFound, "coupon not found")
	}
	if err != nil {
		return errInternal()
	}

	c.Status = model.CouponStatus(status)
	c.UpdatedAt = time.Now()
	if err := u.couponRepo.Update(ctx, c); err != nil {
		return errInternal()
	}
	return nil
}
