package model

import "time"

// 注文明細。注文時点の価格と小計を固定で持つ
type OrderItem struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID           int64     `gorm:"not null;index" json:"order_id"`
	ProductID         int64     `gorm:"not null;index" json:"product_id"`
	UnitPriceSnapshot int64     `gorm:"not null" json:"unit_price_snapshot"`
	Quantity          int64     `gorm:"not null" json:"quantity"`
	Subtotal          int64     `gorm:"not null" json:"subtotal"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
