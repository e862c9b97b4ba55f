package model

import (
	"time"

	"gorm.io/gorm"
)

type CouponType string

const (
	CouponTypePercent CouponType = "percent"
	CouponTypeBxgy    CouponType = "bxgy"
)

type CouponStatus string

const (
	CouponStatusActive  CouponStatus = "active"
	CouponStatusDraft   CouponStatus = "draft"
	CouponStatusExpired CouponStatus = "expired"
)

// Couponは割引コード。codeは大文字に正規化して保存する。
// 利用回数はカウンタを持たず、そのコードを参照するOrderを数えて導出する。
type Coupon struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Code       string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	Type       CouponType     `gorm:"type:varchar(20);not null" json:"type"`
	Value      int64          `gorm:"not null" json:"value"`
	Status     CouponStatus   `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	UsageLimit int64          `gorm:"not null;default:0" json:"usage_limit"` // 0は無制限
	StartsAt   *time.Time     `json:"starts_at"`
	EndsAt     *time.Time     `json:"ends_at"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// WithinWindowはnowが有効期間内かを返す。境界がnilならその側は無制限。
func (c *Coupon) WithinWindow(now time.Time) bool {
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false
	}
	return true
}
