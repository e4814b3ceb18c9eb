package model

import "time"

type OrderStatus string

const (
	//受付済み。厨房が取るまでの間だけキャンセル可
	OrderStatusQueued OrderStatus = "QUEUED"

	//厨房が着手した状態（現状のフローでは遷移させない）
	OrderStatusProcessing OrderStatus = "PROCESSING"

	//提供完了。終端
	OrderStatusDone OrderStatus = "DONE"

	//キャンセル済み。終端。在庫は戻し済み
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// 注文。total_priceは作成時に確定し、以後は再計算しない
type Order struct {
	ID         int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64       `gorm:"not null;index" json:"user_id"`
	Status     OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalPrice int64       `gorm:"not null" json:"total_price"`
	CreatedAt  time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
