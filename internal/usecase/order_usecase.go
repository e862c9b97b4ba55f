package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	"shop/internal/metrics"
	repo "shop/internal/repository"
)

// IDGeneratorは注文番号のサフィックスなどに使う
type IDGenerator interface {
	NewID() string
}

type PlaceOrderInput struct {
	Items      []CheckoutItemInput
	CouponCode string
	Address    model.ShippingAddress
}

type OrderItemOutput struct {
	ProductID  int64  `json:"product_id"`
	VariantKey string `json:"variant_key"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Image      string `json:"image"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int64  `json:"quantity"`
}

type OrderOutput struct {
	ID            int64                 `json:"id"`
	OrderNumber   string                `json:"order_number"`
	UserID        int64                 `json:"user_id"`
	Status        string                `json:"status"`
	PaymentMethod string                `json:"payment_method"`
	Address       model.ShippingAddress `json:"address"`
	Subtotal      int64                 `json:"subtotal"`
	DiscountTotal int64                 `json:"discount_total"`
	ShippingFee   int64                 `json:"shipping_fee"`
	GrandTotal    int64                 `json:"grand_total"`
	Coupon        *CouponOutput         `json:"coupon,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	Items         []OrderItemOutput     `json:"items"`
}

type OrderUsecase struct {
	tx          repo.TransactionManager
	clock       Clock
	idGen       IDGenerator
	shippingFee int64
}

func NewOrderUsecase(tx repo.TransactionManager, clock Clock, idGen IDGenerator, shippingFee int64) *OrderUsecase {
	return &OrderUsecase{tx: tx, clock: clock, idGen: idGen, shippingFee: shippingFee}
}

// PlaceOrderは代引き（COD）注文。
// tx内で再検証し、在庫を条件付きUPDATEで確定し、placedで注文を作る。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, errUnauthorized()
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//合計はここで計算し直す（クライアントの金額は信用しない）
		res, err := validateCart(ctx, r.Products(), r.Coupons(), r.Orders(),
			CheckoutInput{Items: in.Items, CouponCode: in.CouponCode},
			u.clock.Now(), u.shippingFee)
		if err != nil {
			return err
		}

		//在庫確定。validateの在庫チェックはadvisoryなのでここが本番。
		//1件でも足りなければtxごとロールバック。
		for _, item := range res.Items {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, item.VariantID, item.Qty)
			if err != nil {
				return errInternal()
			}
			if !ok {
				metrics.StockRejectionsTotal.Inc()
				return NewAppErrorWithDetails(http.StatusConflict, CodeOutOfStock, "out of stock",
					map[string]interface{}{"variant_key": item.VariantKey})
			}
		}

		order, items := buildOrder(res, userID, in.Address, model.PaymentMethodCOD,
			model.OrderStatusPlaced, newOrderNumber(u.idGen, u.clock.Now()), u.clock.Now())

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return errInternal()
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return errInternal()
		}

		order.ID = orderID
		out = toOrderOutput(order, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	metrics.OrdersCreatedTotal.WithLabelValues(string(model.PaymentMethodCOD)).Inc()
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, errUnauthorized()
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
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

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, errUnauthorized()
	}
	if orderID <= 0 {
		return OrderOutput{}, NewAppError(http.StatusBadRequest, CodeValidationError, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewAppError(http.StatusNotFound, CodeOrderNotFound, "order not found")
		}
		if err != nil {
			return errInternal()
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewAppError(http.StatusNotFound, CodeOrderNotFound, "order not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return errInternal()
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// newOrderNumberは表示用の注文番号を作る。
// 短いランダム英数サフィックスで実用上衝突しない（主キーではない）。
func newOrderNumber(idGen IDGenerator, now time.Time) string {
	raw := strings.ToUpper(strings.ReplaceAll(idGen.NewID(), "-", ""))
	if len(raw) > 8 {
		raw = raw[:8]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), raw)
}

// buildOrderは検証結果からOrderとスナップショット明細を組み立てる
func buildOrder(
	res validationResult,
	userID int64,
	addr model.ShippingAddress,
	method model.PaymentMethod,
	status model.OrderStatus,
	orderNumber string,
	now time.Time,
) (model.Order, []model.OrderItem) {
	order := model.Order{
		OrderNumber:   orderNumber,
		UserID:        userID,
		Status:        status,
		Address:       addr,
		PaymentMethod: method,
		Subtotal:      res.Totals.Subtotal,
		DiscountTotal: res.Totals.DiscountTotal,
		ShippingFee:   res.Totals.ShippingFee,
		GrandTotal:    res.Totals.GrandTotal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if res.Coupon != nil {
		order.CouponCode = res.Coupon.Code
		order.CouponType = res.Coupon.Type
		order.CouponValue = res.Coupon.Value
	}

	items := make([]model.OrderItem, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, model.OrderItem{
			ProductID:     it.ProductID,
			VariantID:     it.VariantID,
			VariantKey:    it.VariantKey,
			TitleSnapshot: it.Title,
			SlugSnapshot:  it.Slug,
			ImageSnapshot: it.Image,
			UnitPrice:     it.UnitPrice,
			Quantity:      it.Qty,
			CreatedAt:     now,
		})
	}

	return order, items
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:  it.ProductID,
			VariantKey: it.VariantKey,
			Title:      it.TitleSnapshot,
			Slug:       it.SlugSnapshot,
			Image:      it.ImageSnapshot,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
		})
	}

	out := OrderOutput{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		Address:       o.Address,
		Subtotal:      o.Subtotal,
		DiscountTotal: o.DiscountTotal,
		ShippingFee:   o.ShippingFee,
		GrandTotal:    o.GrandTotal,
		CreatedAt:     o.CreatedAt,
		Items:         outItems,
	}
	if o.CouponCode != "" {
		out.Coupon = &CouponOutput{
			Code:  o.CouponCode,
			Type:  string(o.CouponType),
			Value: o.CouponValue,
		}
	}
	return out
}
