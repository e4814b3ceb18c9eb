package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	//行ロック付きで取得（キャンセル・完了処理用）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)

	//QUEUEDの古い順にlimit件を行ロック付きで取得。
	//厨房が次に取る注文の集合をキャンセルと直列化するために使う
	ListQueueHeadForUpdate(ctx context.Context, limit int) ([]model.Order, error)

	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	ListAll(ctx context.Context) ([]model.Order, error)
	ListActive(ctx context.Context) ([]model.Order, error)
	ListActiveByUserID(ctx context.Context, userID int64) ([]model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	//全削除（管理者の初期化用。在庫は戻さない）
	DeleteAll(ctx context.Context) error
}
