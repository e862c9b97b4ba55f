package model

import "time"

// OrderItemは注文時点のスナップショット。
// 後から商品が編集・削除されても過去の注文表示は変わらない。
type OrderItem struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64     `gorm:"not null;index" json:"order_id"`
	ProductID     int64     `gorm:"not null;index" json:"product_id"`
	VariantID     int64     `gorm:"not null" json:"variant_id"`
	VariantKey    string    `gorm:"type:varchar(100);not null" json:"variant_key"`
	TitleSnapshot string    `gorm:"type:varchar(255);not null" json:"title_snapshot"`
	SlugSnapshot  string    `gorm:"type:varchar(255);not null" json:"slug_snapshot"`
	ImageSnapshot string    `gorm:"type:varchar(512)" json:"image_snapshot"`
	UnitPrice     int64     `gorm:"not null" json:"unit_price"`
	Quantity      int64     `gorm:"not null" json:"quantity"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
