package repository

import (
	"context"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	//1回のINSERTでまとめて入れる
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return err
	}
	return nil
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

// 商品名はproductsからleft joinで引く。明細ゼロなら空配列
func (r *OrderItemGormRepository) ListDetailByOrderID(ctx context.Context, orderID int64) ([]repo.OrderItemDetail, error) {
	details := make([]repo.OrderItemDetail, 0)
	err := r.db.WithContext(ctx).
		Model(&model.OrderItem{}).
		Select("order_items.product_id as product_id, products.name as name, order_items.unit_price_snapshot as unit_price, order_items.quantity as quantity").
		Joins("LEFT JOIN products ON products.id = order_items.product_id").
		Where("order_items.order_id = ?", orderID).
		Order("order_items.id asc").
		Scan(&details).Error
	if err != nil {
		return []repo.OrderItemDetail{}, err
	}
	return details, nil
}

func (r *OrderItemGormRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&model.OrderItem{}).Error
}
