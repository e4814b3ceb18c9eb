package repository

import (
	"context"

	"app/internal/domain/model"
)

// 商品名を引いた明細（left join products）
type OrderItemDetail struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)

	//商品名付きの明細一覧
	ListDetailByOrderID(ctx context.Context, orderID int64) ([]OrderItemDetail, error)

	DeleteAll(ctx context.Context) error
}
