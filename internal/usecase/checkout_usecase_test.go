package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testProduct() model.Product {
	return model.Product{
		ID:     1,
		Slug:   "basic-tee",
		Title:  "ベーシックTシャツ",
		Image:  "/img/basic-tee.jpg",
		Status: model.ProductStatusPublished,
		Variants: []model.Variant{
			{ID: 11, ProductID: 1, Key: "m", Price: 1800, Stock: 10},
			{ID: 12, ProductID: 1, Key: "l", Price: 1800, Stock: 2},
		},
	}
}

func newCheckoutUC(products *productRepoMock, coupons *couponRepoMock, orders *orderRepoMock) *CheckoutUsecase {
	return NewCheckoutUsecase(products, coupons, orders, &fixedClock{t: testNow}, 60)
}

func TestValidate_NoCoupon(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	uc := newCheckoutUC(products, &couponRepoMock{}, &orderRepoMock{})

	out, err := uc.Validate(context.Background(), CheckoutInput{
		Items: []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1800), out.Subtotal)
	assert.Equal(t, int64(60), out.ShippingFee)
	assert.Equal(t, int64(0), out.DiscountTotal)
	assert.Equal(t, int64(1860), out.GrandTotal)
	assert.Nil(t, out.Coupon)
}

func TestValidate_PercentCoupon(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	coupons := &couponRepoMock{}
	coupons.On("FindByCode", mock.Anything, "SAVE10").Return(model.Coupon{
		ID: 5, Code: "SAVE10", Type: model.CouponTypePercent, Value: 10,
		Status: model.CouponStatusActive,
	}, nil)

	uc := newCheckoutUC(products, coupons, &orderRepoMock{})

	//小文字・空白込みでも正規化される
	out, err := uc.Validate(context.Background(), CheckoutInput{
		Items:      []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
		CouponCode: "  save10 ",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(180), out.DiscountTotal)
	assert.Equal(t, int64(1680), out.GrandTotal)
	if assert.NotNil(t, out.Coupon) {
		assert.Equal(t, "SAVE10", out.Coupon.Code)
	}
}

func TestValidate_EmptyCart(t *testing.T) {
	uc := newCheckoutUC(&productRepoMock{}, &couponRepoMock{}, &orderRepoMock{})

	_, err := uc.Validate(context.Background(), CheckoutInput{})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeEmptyCart, ae.Code)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
}

func TestValidate_ProductNotFound(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(99)).Return(model.Product{}, repo.ErrNotFound)
	products.On("FindBySlug", mock.Anything, "99").Return(model.Product{}, repo.ErrNotFound)

	uc := newCheckoutUC(products, &couponRepoMock{}, &orderRepoMock{})

	_, err := uc.Validate(context.Background(), CheckoutInput{
		Items: []CheckoutItemInput{{ProductRef: "99", VariantKey: "m", Qty: 1}},
	})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeProductNotFound, ae.Code)
	assert.Equal(t, http.StatusNotFound, ae.Status)
}

func TestValidate_ResolvesBySlug(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindBySlug", mock.Anything, "basic-tee").Return(testProduct(), nil)

	uc := newCheckoutUC(products, &couponRepoMock{}, &orderRepoMock{})

	out, err := uc.Validate(context.Background(), CheckoutInput{
		Items: []CheckoutItemInput{{ProductRef: "basic-tee", VariantKey: "m", Qty: 2}},
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(3600), out.Subtotal)
}

func TestValidate_VariantNotFound(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	uc := newCheckoutUC(products, &couponRepoMock{}, &orderRepoMock{})

	_, err := uc.Validate(context.Background(), CheckoutInput{
		Items: []CheckoutItemInput{{ProductRef: "1", VariantKey: "xxl", Qty: 1}},
	})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeVariantNotFound, ae.Code)
}

func TestValidate_OutOfStockAdvisory(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	uc := newCheckoutUC(products, &couponRepoMock{}, &orderRepoMock{})

	//variant "l" はstock 2
	_, err := uc.Validate(context.Background(), CheckoutInput{
		Items: []CheckoutItemInput{{ProductRef: "1", VariantKey: "l", Qty: 5}},
	})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeOutOfStock, ae.Code)
	assert.Equal(t, http.StatusConflict, ae.Status)
}

func TestValidate_CouponExpired(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	past := testNow.Add(-24 * time.Hour)
	coupons := &couponRepoMock{}
	coupons.On("FindByCode", mock.Anything, "OLD").Return(model.Coupon{
		Code: "OLD", Type: model.CouponTypePercent, Value: 10,
		Status: model.CouponStatusActive, EndsAt: &past,
	}, nil)

	uc := newCheckoutUC(products, coupons, &orderRepoMock{})

	_, err := uc.Validate(context.Background(), CheckoutInput{
		Items:      []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
		CouponCode: "OLD",
	})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeInvalidCoupon, ae.Code)
}

func TestValidate_CouponWithoutWindowAccepted(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	//startsAt/endsAtなし = 無期限
	coupons := &couponRepoMock{}
	coupons.On("FindByCode", mock.Anything, "EVERGREEN").Return(model.Coupon{
		Code: "EVERGREEN", Type: model.CouponTypePercent, Value: 10,
		Status: model.CouponStatusActive,
	}, nil)

	uc := newCheckoutUC(products, coupons, &orderRepoMock{})

	out, err := uc.Validate(context.Background(), CheckoutInput{
		Items:      []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
		CouponCode: "EVERGREEN",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(180), out.DiscountTotal)
}

func TestValidate_DraftCouponRejected(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	coupons := &couponRepoMock{}
	coupons.On("FindByCode", mock.Anything, "DRAFT").Return(model.Coupon{
		Code: "DRAFT", Type: model.CouponTypePercent, Value: 10,
		Status: model.CouponStatusDraft,
	}, nil)

	uc := newCheckoutUC(products, coupons, &orderRepoMock{})

	_, err := uc.Validate(context.Background(), CheckoutInput{
		Items:      []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
		CouponCode: "DRAFT",
	})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeInvalidCoupon, ae.Code)
}

func TestValidate_CouponLimitReached(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	coupons := &couponRepoMock{}
	coupons.On("FindByCode", mock.Anything, "ONCE").Return(model.Coupon{
		Code: "ONCE", Type: model.CouponTypePercent, Value: 10,
		Status: model.CouponStatusActive, UsageLimit: 1,
	}, nil)

	orders := &orderRepoMock{}
	orders.On("CountByCouponCode", mock.Anything, "ONCE").Return(int64(1), nil)

	uc := newCheckoutUC(products, coupons, orders)

	_, err := uc.Validate(context.Background(), CheckoutInput{
		Items:      []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
		CouponCode: "ONCE",
	})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeCouponLimit, ae.Code)
}

func TestValidate_DiscountClampedToSubtotal(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	//DBに異常値が入っていても割引はsubtotalを超えない
	coupons := &couponRepoMock{}
	coupons.On("FindByCode", mock.Anything, "BROKEN").Return(model.Coupon{
		Code: "BROKEN", Type: model.CouponTypePercent, Value: 150,
		Status: model.CouponStatusActive,
	}, nil)

	uc := newCheckoutUC(products, coupons, &orderRepoMock{})

	out, err := uc.Validate(context.Background(), CheckoutInput{
		Items:      []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
		CouponCode: "BROKEN",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1800), out.DiscountTotal)
	assert.Equal(t, int64(60), out.GrandTotal) //max(0, 1800-1800) + 60
}

func TestValidate_Idempotent(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	uc := newCheckoutUC(products, &couponRepoMock{}, &orderRepoMock{})

	in := CheckoutInput{
		Items: []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 3}},
	}

	first, err1 := uc.Validate(context.Background(), in)
	second, err2 := uc.Validate(context.Background(), in)

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestValidate_UsesLivePriceNotClientPrice(t *testing.T) {
	//入力に価格のフィールド自体がないので、合計は常にストアの現在価格から出る
	p := testProduct()
	p.Variants[0].Price = 2500

	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(p, nil)

	uc := newCheckoutUC(products, &couponRepoMock{}, &orderRepoMock{})

	out, err := uc.Validate(context.Background(), CheckoutInput{
		Items: []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(2500), out.Subtotal)
	assert.Equal(t, int64(2560), out.GrandTotal)
}

func TestValidate_BxgyCouponNoCartDiscount(t *testing.T) {
	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(testProduct(), nil)

	coupons := &couponRepoMock{}
	coupons.On("FindByCode", mock.Anything, "B1G1").Return(model.Coupon{
		Code: "B1G1", Type: model.CouponTypeBxgy, Value: 1,
		Status: model.CouponStatusActive,
	}, nil)

	uc := newCheckoutUC(products, coupons, &orderRepoMock{})

	out, err := uc.Validate(context.Background(), CheckoutInput{
		Items:      []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
		CouponCode: "B1G1",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(0), out.DiscountTotal)
	if assert.NotNil(t, out.Coupon) {
		assert.Equal(t, "bxgy", out.Coupon.Type)
	}
}

func TestValidate_DraftProductHidden(t *testing.T) {
	p := testProduct()
	p.Status = model.ProductStatusDraft

	products := &productRepoMock{}
	products.On("FindByID", mock.Anything, int64(1)).Return(p, nil)

	uc := newCheckoutUC(products, &couponRepoMock{}, &orderRepoMock{})

	_, err := uc.Validate(context.Background(), CheckoutInput{
		Items: []CheckoutItemInput{{ProductRef: "1", VariantKey: "m", Qty: 1}},
	})

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeProductNotFound, ae.Code)
}
