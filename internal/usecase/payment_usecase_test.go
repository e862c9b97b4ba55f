package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"shop/internal/domain/model"
	"shop/internal/notify"
	"shop/internal/payment"
	repo "shop/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type paymentMocks struct {
	products   *productRepoMock
	coupons    *couponRepoMock
	orders     *orderRepoMock
	orderItems *orderItemRepoMock
	inventory  *inventoryRepoMock
	users      *userRepoMock
	provider   *providerMock
	notifier   *notifierMock
}

func newPaymentUC(m *paymentMocks) *PaymentUsecase {
	tx := &txManagerMock{Repos: &txReposMock{
		orders:     m.orders,
		orderItems: m.orderItems,
		products:   m.products,
		coupons:    m.coupons,
		inventory:  m.inventory,
	}}
	return NewPaymentUsecase(tx, m.products, m.coupons, m.orders, m.users,
		m.provider, m.notifier, zap.NewNop(),
		&fixedClock{t: testNow}, &fixedIDGen{id: "a1b2c3d4-e5f6-7890-abcd-ef1234567890"},
		60, "thb")
}

func newPaymentMocks() *paymentMocks {
	return &paymentMocks{
		products:   &productRepoMock{},
		coupons:    &couponRepoMock{},
		orders:     &orderRepoMock{},
		orderItems: &orderItemRepoMock{},
		inventory:  &inventoryRepoMock{},
		users:      &userRepoMock{},
		provider:   &providerMock{},
		notifier:   &notifierMock{},
	}
}

func TestCreateIntent(t *testing.T) {
	m := newPaymentMocks()
	m.products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	//金額はgrandTotal 1860のminor単位
	m.provider.On("CreateIntent", mock.Anything, int64(186000), "thb",
		map[string]string{"order_number": "ORD-20250601-A1B2C3D4"}).
		Return(payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil)

	m.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Status == model.OrderStatusPending &&
			o.PaymentMethod == model.PaymentMethodStripe &&
			o.PaymentIntentID == "pi_123"
	})).Return(int64(200), nil)
	m.orderItems.On("CreateBulk", mock.Anything, int64(200), mock.Anything).Return(nil)

	uc := newPaymentUC(m)

	out, err := uc.CreateIntent(context.Background(), 7, CreateIntentInput{
		Items:   []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
		Address: testAddress(),
	})

	assert.NoError(t, err)
	assert.Equal(t, "pi_123", out.IntentID)
	assert.Equal(t, "pi_123_secret", out.ClientSecret)
	assert.Equal(t, "pending", out.Order.Status)
	//カード注文は作成時点で在庫を触らない
	m.inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
	m.provider.AssertExpectations(t)
	m.orders.AssertExpectations(t)
}

func TestCreateIntent_ValidationFailsBeforeProvider(t *testing.T) {
	m := newPaymentMocks()
	uc := newPaymentUC(m)

	_, err := uc.CreateIntent(context.Background(), 7, CreateIntentInput{})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeEmptyCart, ae.Code)
	m.provider.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func pendingCardOrder() model.Order {
	return model.Order{
		ID:              300,
		OrderNumber:     "ORD-20250601-CAFEBABE",
		UserID:          7,
		Status:          model.OrderStatusPending,
		PaymentMethod:   model.PaymentMethodStripe,
		PaymentIntentID: "pi_123",
		GrandTotal:      1860,
	}
}

func TestHandleWebhook_ConfirmsPayment(t *testing.T) {
	m := newPaymentMocks()
	m.provider.On("VerifyWebhookSignature", []byte(`{}`), "sig").Return(payment.Event{
		ID: "evt_1", Type: payment.EventPaymentSucceeded, IntentID: "pi_123", Status: "succeeded",
	}, nil)

	m.orders.On("FindByPaymentIntentID", mock.Anything, "pi_123").Return(pendingCardOrder(), nil)
	m.orderItems.On("ListByOrderID", mock.Anything, int64(300)).Return([]model.OrderItem{
		{OrderID: 300, VariantID: 11, Quantity: 1},
	}, nil)
	m.inventory.On("DecreaseStockFloored", mock.Anything, int64(11), int64(1)).Return(nil)
	m.orders.On("UpdatePayment", mock.Anything, int64(300), model.OrderStatusPaid, "succeeded").Return(nil)

	m.users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, Email: "user@example.com"}, nil)
	m.notifier.On("Send", mock.Anything, mock.MatchedBy(func(msg notify.Message) bool {
		return msg.To == "user@example.com"
	})).Return(nil)

	uc := newPaymentUC(m)

	err := uc.HandleWebhook(context.Background(), []byte(`{}`), "sig")

	assert.NoError(t, err)
	m.inventory.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
}

func TestHandleWebhook_DuplicateDelivery(t *testing.T) {
	m := newPaymentMocks()
	m.provider.On("VerifyWebhookSignature", mock.Anything, mock.Anything).Return(payment.Event{
		ID: "evt_1", Type: payment.EventPaymentSucceeded, IntentID: "pi_123", Status: "succeeded",
	}, nil)

	paid := pendingCardOrder()
	paid.Status = model.OrderStatusPaid
	m.orders.On("FindByPaymentIntentID", mock.Anything, "pi_123").Return(paid, nil)

	uc := newPaymentUC(m)

	//二重配送：成功を返すが在庫もステータスも触らない
	err := uc.HandleWebhook(context.Background(), []byte(`{}`), "sig")

	assert.NoError(t, err)
	m.inventory.AssertNotCalled(t, "DecreaseStockFloored", mock.Anything, mock.Anything, mock.Anything)
	m.orders.AssertNotCalled(t, "UpdatePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	m := newPaymentMocks()
	m.provider.On("VerifyWebhookSignature", mock.Anything, mock.Anything).
		Return(payment.Event{}, payment.ErrInvalidSignature)

	uc := newPaymentUC(m)

	err := uc.HandleWebhook(context.Background(), []byte(`{}`), "bad")

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeInvalidSignature, ae.Code)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	m.orders.AssertNotCalled(t, "FindByPaymentIntentID", mock.Anything, mock.Anything)
}

func TestHandleWebhook_UnknownIntent(t *testing.T) {
	m := newPaymentMocks()
	m.provider.On("VerifyWebhookSignature", mock.Anything, mock.Anything).Return(payment.Event{
		ID: "evt_1", Type: payment.EventPaymentSucceeded, IntentID: "pi_missing", Status: "succeeded",
	}, nil)
	m.orders.On("FindByPaymentIntentID", mock.Anything, "pi_missing").Return(model.Order{}, repo.ErrNotFound)

	uc := newPaymentUC(m)

	err := uc.HandleWebhook(context.Background(), []byte(`{}`), "sig")

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeOrderNotFound, ae.Code)
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	m := newPaymentMocks()
	m.provider.On("VerifyWebhookSignature", mock.Anything, mock.Anything).Return(payment.Event{
		ID: "evt_2", Type: "payment_intent.created", IntentID: "pi_123",
	}, nil)

	uc := newPaymentUC(m)

	err := uc.HandleWebhook(context.Background(), []byte(`{}`), "sig")

	assert.NoError(t, err)
	m.orders.AssertNotCalled(t, "FindByPaymentIntentID", mock.Anything, mock.Anything)
}

func TestHandleWebhook_MissingVariantSkipped(t *testing.T) {
	//Variantが消えていても決済確定は止めない
	m := newPaymentMocks()
	m.provider.On("VerifyWebhookSignature", mock.Anything, mock.Anything).Return(payment.Event{
		ID: "evt_1", Type: payment.EventPaymentSucceeded, IntentID: "pi_123", Status: "succeeded",
	}, nil)
	m.orders.On("FindByPaymentIntentID", mock.Anything, "pi_123").Return(pendingCardOrder(), nil)
	m.orderItems.On("ListByOrderID", mock.Anything, int64(300)).Return([]model.OrderItem{
		{OrderID: 300, VariantID: 11, Quantity: 1},
		{OrderID: 300, VariantID: 99, Quantity: 2},
	}, nil)
	m.inventory.On("DecreaseStockFloored", mock.Anything, int64(11), int64(1)).Return(nil)
	m.inventory.On("DecreaseStockFloored", mock.Anything, int64(99), int64(2)).Return(repo.ErrNotFound)
	m.orders.On("UpdatePayment", mock.Anything, int64(300), model.OrderStatusPaid, "succeeded").Return(nil)
	m.users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, Email: "user@example.com"}, nil)
	m.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	uc := newPaymentUC(m)

	err := uc.HandleWebhook(context.Background(), []byte(`{}`), "sig")

	assert.NoError(t, err)
	m.orders.AssertExpectations(t)
}

func TestHandleWebhook_NotificationFailureSwallowed(t *testing.T) {
	m := newPaymentMocks()
	m.provider.On("VerifyWebhookSignature", mock.Anything, mock.Anything).Return(payment.Event{
		ID: "evt_1", Type: payment.EventPaymentSucceeded, IntentID: "pi_123", Status: "succeeded",
	}, nil)
	m.orders.On("FindByPaymentIntentID", mock.Anything, "pi_123").Return(pendingCardOrder(), nil)
	m.orderItems.On("ListByOrderID", mock.Anything, int64(300)).Return([]model.OrderItem{}, nil)
	m.orders.On("UpdatePayment", mock.Anything, int64(300), model.OrderStatusPaid, "succeeded").Return(nil)
	m.users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, Email: "user@example.com"}, nil)
	m.notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	uc := newPaymentUC(m)

	//通知失敗は決済確定を巻き戻さない
	err := uc.HandleWebhook(context.Background(), []byte(`{}`), "sig")

	assert.NoError(t, err)
	m.orders.AssertExpectations(t)
}
