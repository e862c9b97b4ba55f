package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodStripe PaymentMethod = "stripe"
)

// ShippingAddressは注文に埋め込む配送先
type ShippingAddress struct {
	Name       string `gorm:"type:varchar(100)" json:"name"`
	Phone      string `gorm:"type:varchar(32)" json:"phone"`
	Line1      string `gorm:"type:varchar(255)" json:"line1"`
	City       string `gorm:"type:varchar(100)" json:"city"`
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`
}

type Order struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	UserID      int64           `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	Items       []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	Address     ShippingAddress `gorm:"embedded;embeddedPrefix:ship_" json:"address"`

	PaymentMethod   PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentIntentID string        `gorm:"type:varchar(255);index" json:"-"`
	ProviderStatus  string        `gorm:"type:varchar(64)" json:"provider_status"`

	Subtotal      int64 `gorm:"not null" json:"subtotal"`
	DiscountTotal int64 `gorm:"not null" json:"discount_total"`
	ShippingFee   int64 `gorm:"not null" json:"shipping_fee"`
	GrandTotal    int64 `gorm:"not null" json:"grand_total"`

	//クーポンのスナップショット（後でクーポンが消えても注文表示は変わらない）
	CouponCode  string     `gorm:"type:varchar(64);index" json:"coupon_code"`
	CouponType  CouponType `gorm:"type:varchar(20)" json:"coupon_type"`
	CouponValue int64      `json:"coupon_value"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// IsTerminalは終端ステータスかを返す
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}
