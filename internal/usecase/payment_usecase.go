package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"shop/internal/domain/model"
	"shop/internal/metrics"
	"shop/internal/notify"
	"shop/internal/payment"
	repo "shop/internal/repository"

	"go.uber.org/zap"
)

// 価格は通常単位で持っているのでプロバイダへはminor単位（×100）で送る
const minorUnitFactor = 100

type CreateIntentInput struct {
	Items      []CheckoutItemInput
	CouponCode string
	Address    model.ShippingAddress
}

type CreateIntentOutput struct {
	Order        OrderOutput `json:"order"`
	IntentID     string      `json:"intent_id"`
	ClientSecret string      `json:"client_secret"`
}

type PaymentUsecase struct {
	tx          repo.TransactionManager
	products    repo.ProductRepository
	coupons     repo.CouponRepository
	orders      repo.OrderRepository
	users       repo.UserRepository
	provider    payment.Provider
	notifier    notify.Notifier
	logger      *zap.Logger
	clock       Clock
	idGen       IDGenerator
	shippingFee int64
	currency    string
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	products repo.ProductRepository,
	coupons repo.CouponRepository,
	orders repo.OrderRepository,
	users repo.UserRepository,
	provider payment.Provider,
	notifier notify.Notifier,
	logger *zap.Logger,
	clock Clock,
	idGen IDGenerator,
	shippingFee int64,
	currency string,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:          tx,
		products:    products,
		coupons:     coupons,
		orders:      orders,
		users:       users,
		provider:    provider,
		notifier:    notifier,
		logger:      logger,
		clock:       clock,
		idGen:       idGen,
		shippingFee: shippingFee,
		currency:    currency,
	}
}

// CreateIntentはカード決済の開始。
// 注文はpendingで作り、在庫はまだ押さえない（webhook確定時に減算する）。
func (u *PaymentUsecase) CreateIntent(ctx context.Context, userID int64, in CreateIntentInput) (CreateIntentOutput, error) {
	if userID <= 0 {
		return CreateIntentOutput{}, errUnauthorized()
	}

	now := u.clock.Now()

	//合計はサーバ側で再計算
	res, err := validateCart(ctx, u.products, u.coupons, u.orders,
		CheckoutInput{Items: in.Items, CouponCode: in.CouponCode}, now, u.shippingFee)
	if err != nil {
		return CreateIntentOutput{}, err
	}

	orderNumber := newOrderNumber(u.idGen, now)

	//金額は検証済みgrandTotalからminor単位で計算（クライアントからは受け取らない）
	intent, err := u.provider.CreateIntent(ctx, res.Totals.GrandTotal*minorUnitFactor, u.currency,
		map[string]string{"order_number": orderNumber})
	if err != nil {
		u.logger.Error("create payment intent failed", zap.Error(err))
		return CreateIntentOutput{}, errInternal()
	}

	var out CreateIntentOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, items := buildOrder(res, userID, in.Address, model.PaymentMethodStripe,
			model.OrderStatusPending, orderNumber, now)
		order.PaymentIntentID = intent.ID

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return errInternal()
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return errInternal()
		}

		order.ID = orderID
		out = CreateIntentOutput{
			Order:        toOrderOutput(order, items),
			IntentID:     intent.ID,
			ClientSecret: intent.ClientSecret,
		}
		return nil
	})

	if err != nil {
		return CreateIntentOutput{}, err
	}

	metrics.OrdersCreatedTotal.WithLabelValues(string(model.PaymentMethodStripe)).Inc()
	return out, nil
}

// HandleWebhookはプロバイダからの決済イベントを突き合わせる。
// 署名検証 → 注文特定 → 冪等なpaid遷移 → 後払いの在庫減算、の順。
// 同じイベントが二重配送されても「すでにpaid」のチェックで減算は一度しか起きない。
func (u *PaymentUsecase) HandleWebhook(ctx context.Context, payloadBody []byte, sigHeader string) error {
	event, err := u.provider.VerifyWebhookSignature(payloadBody, sigHeader)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			metrics.WebhookRejectedTotal.WithLabelValues("signature").Inc()
			return NewAppError(http.StatusUnauthorized, CodeInvalidSignature, "invalid signature")
		}
		u.logger.Error("webhook payload parse failed", zap.Error(err))
		return NewAppError(http.StatusBadRequest, CodeValidationError, "invalid payload")
	}

	//成功イベント以外はackだけ返す
	if event.Type != payment.EventPaymentSucceeded {
		return nil
	}

	var paidOrder *model.Order
	duplicate := false

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByPaymentIntentID(ctx, event.IntentID)
		if err == repo.ErrNotFound {
			metrics.WebhookRejectedTotal.WithLabelValues("order_not_found").Inc()
			return NewAppError(http.StatusNotFound, CodeOrderNotFound, "order not found")
		}
		if err != nil {
			return errInternal()
		}

		//二重配送の防壁はここだけ。すでにpaidなら何もしないで成功を返す。
		if o.Status == model.OrderStatusPaid {
			duplicate = true
			return nil
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return errInternal()
		}

		//後払いの在庫減算。0床・best-effort。
		//商品やVariantが消えていてもスキップして注文自体はpaidにする。
		for _, it := range items {
			err := r.Inventory().DecreaseStockFloored(ctx, it.VariantID, it.Quantity)
			if err == repo.ErrNotFound {
				u.logger.Warn("variant missing at payment confirm, skipping stock decrement",
					zap.Int64("order_id", o.ID),
					zap.Int64("variant_id", it.VariantID))
				continue
			}
			if err != nil {
				return errInternal()
			}
		}

		if err := r.Orders().UpdatePayment(ctx, o.ID, model.OrderStatusPaid, event.Status); err != nil {
			return errInternal()
		}

		o.Status = model.OrderStatusPaid
		o.ProviderStatus = event.Status
		paidOrder = &o
		return nil
	})

	if err != nil {
		return err
	}

	if duplicate {
		metrics.WebhookDuplicatesTotal.Inc()
		return nil
	}

	metrics.PaymentsConfirmedTotal.Inc()

	if paidOrder != nil {
		u.sendPaidNotification(ctx, *paidOrder)
	}
	return nil
}

// sendPaidNotificationは確定通知を送る。
// 失敗してもログだけ残して握りつぶす。決済確定は巻き戻さない。
func (u *PaymentUsecase) sendPaidNotification(ctx context.Context, o model.Order) {
	user, err := u.users.FindByID(ctx, o.UserID)
	if err != nil || user == nil {
		metrics.NotificationsFailedTotal.Inc()
		u.logger.Warn("payment notification skipped: user lookup failed",
			zap.Int64("order_id", o.ID),
			zap.Error(err))
		return
	}

	msg := notify.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("お支払い確認 %s", o.OrderNumber),
		Text:    fmt.Sprintf("ご注文 %s のお支払いを確認しました。合計 %d", o.OrderNumber, o.GrandTotal),
	}
	if err := u.notifier.Send(ctx, msg); err != nil {
		metrics.NotificationsFailedTotal.Inc()
		u.logger.Warn("payment notification send failed",
			zap.Int64("order_id", o.ID),
			zap.Error(err))
	}
}
