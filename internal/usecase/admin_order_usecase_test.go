package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newAdminOrderUsecase(m orderMocks) *usecase.AdminOrderUsecase {
	return usecase.NewAdminOrderUsecase(m.tx, usecase.NewOrderUsecase(m.tx))
}

func TestAdminOrderUsecase_List_InvalidPage(t *testing.T) {
	m := newOrderMocks()
	uc := newAdminOrderUsecase(m)

	_, err := uc.List(context.Background(), repo.AdminOrderListFilter{Page: 0, Limit: 20})
	assertErrContains(t, err, "invalid page")
	m.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestAdminOrderUsecase_List_InvalidLimit(t *testing.T) {
	m := newOrderMocks()
	uc := newAdminOrderUsecase(m)

	_, err := uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 101})
	assertErrContains(t, err, "invalid limit")
}

func TestAdminOrderUsecase_List_Success(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()
	uc := newAdminOrderUsecase(m)

	f := repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "QUEUED"}

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("ListAdmin", mock.Anything, f).Return([]model.Order{
		{ID: 1, UserID: 7, Status: model.OrderStatusQueued, TotalPrice: 1500},
	}, int64(1), nil)
	m.users.On("FindByID", mock.Anything, int64(7)).Return(model.User{ID: 7, Username: "alice"}, nil)
	m.items.On("ListDetailByOrderID", mock.Anything, int64(1)).Return([]repo.OrderItemDetail{
		{ProductID: 10, Name: "coffee", UnitPrice: 500, Quantity: 3},
	}, nil)

	outs, err := uc.List(ctx, f)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(outs))
	assert.Equal(t, "alice", outs[0].Username)
	assert.Equal(t, 1, len(outs[0].Items))
}

func TestAdminOrderUsecase_UpdateStatus_InvalidStatus(t *testing.T) {
	m := newOrderMocks()
	uc := newAdminOrderUsecase(m)

	err := uc.UpdateStatus(context.Background(), 1, 5, usecase.AdminUpdateOrderStatusInput{Status: "SHIPPED"})
	assertErrContains(t, err, "invalid status")
	m.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()
	uc := newAdminOrderUsecase(m)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(99)).Return(model.Order{}, repo.ErrNotFound)

	err := uc.UpdateStatus(ctx, 1, 99, usecase.AdminUpdateOrderStatusInput{Status: "DONE"})
	assertErrContains(t, err, "order not found")
}

// 同じステータスへの変更は何もしないで成功
func TestAdminOrderUsecase_UpdateStatus_NoOpSameStatus(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()
	uc := newAdminOrderUsecase(m)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, Status: model.OrderStatusProcessing,
	}, nil)

	err := uc.UpdateStatus(ctx, 1, 5, usecase.AdminUpdateOrderStatusInput{Status: "PROCESSING"})
	assert.NoError(t, err)

	m.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	m.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_TerminalGuards(t *testing.T) {
	cases := []struct {
		name    string
		current model.OrderStatus
		wantErr string
	}{
		{"cancelled", model.OrderStatusCancelled, "cannot change cancelled order"},
		{"done", model.OrderStatusDone, "cannot change finished order"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			m := newOrderMocks()
			uc := newAdminOrderUsecase(m)

			m.tx.On("WithinTx", mock.Anything).Return(nil)
			m.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{
				ID: 5, Status: tc.current,
			}, nil)

			err := uc.UpdateStatus(ctx, 1, 5, usecase.AdminUpdateOrderStatusInput{Status: "QUEUED"})
			assertErrContains(t, err, tc.wantErr)
		})
	}
}

// 管理者キャンセルは在庫を戻してから監査ログを残す
func TestAdminOrderUsecase_UpdateStatus_CancelRestoresStock(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()
	uc := newAdminOrderUsecase(m)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, UserID: 7, Status: model.OrderStatusQueued,
	}, nil)
	m.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{
		{ProductID: 10, Quantity: 2},
	}, nil)
	m.inventory.On("IncreaseStock", mock.Anything, int64(10), int64(2)).Return(nil)
	m.orders.On("UpdateStatus", mock.Anything, int64(5), model.OrderStatusCancelled).Return(nil)
	m.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == 99 &&
			l.Action == model.AuditActionUpdateOrderStatus &&
			l.ResourceID == 5 &&
			l.BeforeJSON == `{"status":"QUEUED"}` &&
			l.AfterJSON == `{"status":"CANCELLED"}`
	})).Return(nil)

	err := uc.UpdateStatus(ctx, 99, 5, usecase.AdminUpdateOrderStatusInput{Status: "CANCELLED"})
	assert.NoError(t, err)

	m.inventory.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.audit.AssertExpectations(t)
}

// DONEへの変更は在庫に触らない
func TestAdminOrderUsecase_UpdateStatus_DoneDoesNotTouchStock(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()
	uc := newAdminOrderUsecase(m)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, Status: model.OrderStatusProcessing,
	}, nil)
	m.orders.On("UpdateStatus", mock.Anything, int64(5), model.OrderStatusDone).Return(nil)
	m.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := uc.UpdateStatus(ctx, 99, 5, usecase.AdminUpdateOrderStatusInput{Status: "DONE"})
	assert.NoError(t, err)

	m.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_ListAuditLogs(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()
	uc := newAdminOrderUsecase(m)

	f := repo.AuditLogFilter{Page: 1, Limit: 50, Action: "UPDATE_STOCK"}

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.audit.On("List", mock.Anything, f).Return([]model.AuditLog{
		{ID: 1, ActorUserID: 99, Action: model.AuditActionUpdateStock},
	}, nil)

	logs, err := uc.ListAuditLogs(ctx, f)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(logs))

	_, err = uc.ListAuditLogs(ctx, repo.AuditLogFilter{Page: 0, Limit: 50})
	assertErrContains(t, err, "invalid page")
}

func TestAdminOrderUsecase_DeleteAll(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()
	uc := newAdminOrderUsecase(m)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.items.On("DeleteAll", mock.Anything).Return(nil)
	m.orders.On("DeleteAll", mock.Anything).Return(nil)
	m.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionDeleteAllOrders && l.ActorUserID == 99
	})).Return(nil)

	err := uc.DeleteAll(ctx, 99)
	assert.NoError(t, err)

	m.items.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.audit.AssertExpectations(t)
}
