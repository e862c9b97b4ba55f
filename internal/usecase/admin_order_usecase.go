package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

type AdminOrderUsecase struct {
	tx repo.TransactionManager
}

func NewAdminOrderUsecase(tx repo.TransactionManager) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// 許可する遷移表。
// pending → paid/cancelled、placed/paid → fulfilled/cancelled、
// fulfilled → completed/cancelled。終端からは動かせない。
var allowedTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:   {model.OrderStatusPaid, model.OrderStatusCancelled},
	model.OrderStatusPlaced:    {model.OrderStatusFulfilled, model.OrderStatusCancelled},
	model.OrderStatusPaid:      {model.OrderStatusFulfilled, model.OrderStatusCancelled},
	model.OrderStatusFulfilled: {model.OrderStatusCompleted, model.OrderStatusCancelled},
	model.OrderStatusCompleted: {},
	model.OrderStatusCancelled: {},
}

func canTransition(from model.OrderStatus, to model.OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// 注文一覧（管理者）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	if f.Page < 1 {
		return []OrderOutput{}, NewAppError(http.StatusBadRequest, CodeValidationError, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewAppError(http.StatusBadRequest, CodeValidationError, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return errInternal()
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return errInternal()
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// UpdateStatusは遷移表に従ってステータスを更新する。
// 在庫を押さえている注文（placed/paid/fulfilled）のキャンセルは在庫を戻す。
// pendingのキャンセルは在庫未確保なので戻さない。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, orderID int64, in AdminUpdateOrderStatusInput) error {
	if orderID <= 0 {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "invalid id")
	}

	newStatus := model.OrderStatus(strings.TrimSpace(in.Status))
	switch newStatus {
	case model.OrderStatusPending, model.OrderStatusPlaced, model.OrderStatusPaid,
		model.OrderStatusFulfilled, model.OrderStatusCompleted, model.OrderStatusCancelled:
		// OK
	default:
		return NewAppError(http.StatusBadRequest, CodeValidationError, "invalid status")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewAppError(http.StatusNotFound, CodeOrderNotFound, "order not found")
		}
		if err != nil {
			return errInternal()
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			return nil
		}

		if !canTransition(o.Status, newStatus) {
			return NewAppErrorWithDetails(http.StatusConflict, CodeConflict, "illegal status transition",
				map[string]interface{}{"from": string(o.Status), "to": string(newStatus)})
		}

		//在庫確保済みの注文のキャンセルだけ在庫戻し
		if newStatus == model.OrderStatusCancelled && o.Status != model.OrderStatusPending {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return errInternal()
			}

			for _, it := range items {
				err := r.Inventory().IncreaseStock(ctx, it.VariantID, it.Quantity)
				if err == repo.ErrNotFound {
					//Variantが消えていたら戻し先がないのでスキップ
					continue
				}
				if err != nil {
					return errInternal()
				}
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if err == repo.ErrNotFound {
				return NewAppError(http.StatusNotFound, CodeOrderNotFound, "order not found")
			}
			return errInternal()
		}

		return nil
	})
}

// 期間パラメータでtime.Timeが必要なら、handlerでtime.Parseしてここに入れる
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
