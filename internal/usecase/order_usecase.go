package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 厨房が次に取りにいくQUEUED注文の件数。
// この集合に入った注文はステータスがQUEUEDのままでもキャンセル不可
const queueHeadSize = 3

type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type CheckoutItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CheckoutInput struct {
	Items []CheckoutItem
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID         int64             `json:"id"`
	UserID     int64             `json:"user_id"`
	Username   string            `json:"username"`
	Status     string            `json:"status"`
	TotalPrice int64             `json:"total_price"`
	CreatedAt  time.Time         `json:"created_at"`
	Items      []OrderItemOutput `json:"items"`
}

// Checkout はカートの内容から注文を1件作る。
// 在庫チェック・注文作成・明細作成・在庫減算までを1トランザクションで行い、
// 途中で失敗したら全部ロールバックする。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//バリデーション層を通った後でも最低限は再チェックする
	if len(in.Items) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "items must not be empty")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if it.Quantity <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be greater than 0")
		}
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//商品をまとめて1クエリで取得
		ids := make([]int64, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.ProductID)
		}

		products, err := r.Products().ListByIDs(ctx, ids)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//件数が合わない＝存在しないIDか重複がある
		if len(products) != len(in.Items) {
			return NewHTTPError(http.StatusBadRequest, "product not found")
		}

		byID := make(map[int64]model.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		//在庫チェックとスナップショット作成
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		var total int64 = 0

		for _, it := range in.Items {
			p, ok := byID[it.ProductID]
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "product not found")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "product not available")
			}
			if p.Stock < it.Quantity {
				return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("insufficient stock for %s", p.Name))
			}

			subtotal := p.Price * it.Quantity
			orderItems = append(orderItems, model.OrderItem{
				ProductID:         p.ID,
				UnitPriceSnapshot: p.Price,
				Quantity:          it.Quantity,
				Subtotal:          subtotal,
			})
			total += subtotal
		}

		//注文作成（QUEUEDで受付）
		now := time.Now()
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:     userID,
			Status:     model.OrderStatusQueued,
			TotalPrice: total,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//在庫減算。条件付きUPDATEなので同時注文で足りなくなっていたらここで失敗する
		for _, it := range orderItems {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				name := byID[it.ProductID].Name
				return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("insufficient stock for %s", name))
			}
		}

		//レスポンス用に購入者名を引く
		buyer, err := r.Users().FindByID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outItems := make([]OrderItemOutput, 0, len(orderItems))
		for _, it := range orderItems {
			outItems = append(outItems, OrderItemOutput{
				ProductID: it.ProductID,
				Name:      byID[it.ProductID].Name,
				UnitPrice: it.UnitPriceSnapshot,
				Quantity:  it.Quantity,
			})
		}

		out = OrderOutput{
			ID:         orderID,
			UserID:     userID,
			Username:   buyer.Username,
			Status:     string(model.OrderStatusQueued),
			TotalPrice: total,
			CreatedAt:  now,
			Items:      outItems,
		}
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// CancelOrder は自分のQUEUED注文をキャンセルして在庫を戻す。
// 注文行とキュー先頭をロックしてから判定するので、
// 同じ注文への同時キャンセルや厨房のピックアップとは直列化される。
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//対象注文を行ロック付きで取得
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//他人の注文はキャンセルできない
		if o.UserID != userID {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		if o.Status != model.OrderStatusQueued {
			return NewHTTPError(http.StatusBadRequest, "cannot cancel an order already processed")
		}

		//キュー先頭（厨房が取りにいく分）をロックして、対象が入っていないか確認する
		head, err := r.Orders().ListQueueHeadForUpdate(ctx, queueHeadSize)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, h := range head {
			if h.ID == o.ID {
				return NewHTTPError(http.StatusBadRequest, "order already being processed")
			}
		}

		//在庫戻し
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

// DoneOrder は注文を提供完了にする。在庫への副作用はない。
// すでにDONEならそのまま成功。CANCELLED済みは在庫を戻しているので完了にはできない
func (u *OrderUsecase) DoneOrder(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if o.Status == model.OrderStatusDone {
			return nil
		}
		if o.Status == model.OrderStatusCancelled {
			return NewHTTPError(http.StatusBadRequest, "cannot finish a cancelled order")
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusDone); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

// ListOrders は全注文を新しい順に返す（管理者の一覧用）。
func (u *OrderUsecase) ListOrders(ctx context.Context) ([]OrderOutput, error) {
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListAll(ctx)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs, err = u.buildOutputs(ctx, r, orders)
		return err
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// ListActiveWithItems は注文キュー（QUEUED/PROCESSING）を受付順に、明細付きで返す。
func (u *OrderUsecase) ListActiveWithItems(ctx context.Context) ([]OrderOutput, error) {
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListActive(ctx)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs, err = u.buildOutputs(ctx, r, orders)
		return err
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// ListMyActive は自分の進行中注文を明細付きで返す。
func (u *OrderUsecase) ListMyActive(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListActiveByUserID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs, err = u.buildOutputs(ctx, r, orders)
		return err
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// GetOrderItems は注文1件の明細を返す。
func (u *OrderUsecase) GetOrderItems(ctx context.Context, orderID int64) ([]OrderItemOutput, error) {
	if orderID <= 0 {
		return []OrderItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var outs []OrderItemOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Orders().FindByID(ctx, orderID); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "order not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		details, err := r.OrderItems().ListDetailByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderItemOutput, 0, len(details))
		for _, d := range details {
			outs = append(outs, OrderItemOutput{
				ProductID: d.ProductID,
				Name:      d.Name,
				UnitPrice: d.UnitPrice,
				Quantity:  d.Quantity,
			})
		}
		return nil
	})

	if err != nil {
		return []OrderItemOutput{}, err
	}
	return outs, nil
}

// GetMyOrderDetail は自分の注文詳細を返す。他人の注文は存在しない扱い
func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}

		outs, err := u.buildOutputs(ctx, r, []model.Order{o})
		if err != nil {
			return err
		}
		out = outs[0]
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ListMyOrders は自分の注文履歴を返す。
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs, err = u.buildOutputs(ctx, r, orders)
		return err
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// 注文一覧を明細・購入者名付きの出力に変換する
func (u *OrderUsecase) buildOutputs(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))

	//同じユーザーを何度も引かないようにキャッシュする
	usernames := make(map[int64]string)

	for _, o := range orders {
		name, ok := usernames[o.UserID]
		if !ok {
			buyer, err := r.Users().FindByID(ctx, o.UserID)
			if err != nil && err != repo.ErrUserNotFound {
				return nil, NewHTTPError(http.StatusInternalServerError, "db error")
			}
			name = buyer.Username
			usernames[o.UserID] = name
		}

		details, err := r.OrderItems().ListDetailByOrderID(ctx, o.ID)
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items := make([]OrderItemOutput, 0, len(details))
		for _, d := range details {
			items = append(items, OrderItemOutput{
				ProductID: d.ProductID,
				Name:      d.Name,
				UnitPrice: d.UnitPrice,
				Quantity:  d.Quantity,
			})
		}

		outs = append(outs, OrderOutput{
			ID:         o.ID,
			UserID:     o.UserID,
			Username:   name,
			Status:     string(o.Status),
			TotalPrice: o.TotalPrice,
			CreatedAt:  o.CreatedAt,
			Items:      items,
		})
	}
	return outs, nil
}
