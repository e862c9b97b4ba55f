package usecase

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// Clockはテストでnowを差し替えるための注入点
type Clock interface {
	Now() time.Time
}

type CheckoutItemInput struct {
	ProductRef string `json:"product"` // idでもslugでも良い
	VariantKey string `json:"variant_key"`
	Qty        int64  `json:"qty"`
}

type CheckoutInput struct {
	Items      []CheckoutItemInput `json:"items"`
	CouponCode string              `json:"coupon_code"`
}

type CouponOutput struct {
	Code  string `json:"code"`
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

type CheckoutTotals struct {
	Subtotal      int64         `json:"subtotal"`
	ShippingFee   int64         `json:"shipping_fee"`
	DiscountTotal int64         `json:"discount_total"`
	GrandTotal    int64         `json:"grand_total"`
	Coupon        *CouponOutput `json:"coupon,omitempty"`
}

// resolvedItemは検証済みのカート行。注文スナップショットの元になる。
type resolvedItem struct {
	ProductID  int64
	VariantID  int64
	VariantKey string
	Title      string
	Slug       string
	Image      string
	UnitPrice  int64
	Qty        int64
}

type validationResult struct {
	Totals CheckoutTotals
	Coupon *model.Coupon
	Items  []resolvedItem
}

type CheckoutUsecase struct {
	products    repo.ProductRepository
	coupons     repo.CouponRepository
	orders      repo.OrderRepository
	clock       Clock
	shippingFee int64
}

func NewCheckoutUsecase(
	products repo.ProductRepository,
	coupons repo.CouponRepository,
	orders repo.OrderRepository,
	clock Clock,
	shippingFee int64,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		products:    products,
		coupons:     coupons,
		orders:      orders,
		clock:       clock,
		shippingFee: shippingFee,
	}
}

// Validateはカートを検証して合計を再計算する。
// 読み取りのみで副作用はない。在庫チェックはadvisoryで、確定は注文時の条件付きUPDATE。
func (u *CheckoutUsecase) Validate(ctx context.Context, in CheckoutInput) (CheckoutTotals, error) {
	res, err := validateCart(ctx, u.products, u.coupons, u.orders, in, u.clock.Now(), u.shippingFee)
	if err != nil {
		return CheckoutTotals{}, err
	}
	return res.Totals, nil
}

// validateCartは検証の本体。
// 公開エンドポイントとPlaceOrder（tx内の再検証）の両方から使う。
func validateCart(
	ctx context.Context,
	products repo.ProductRepository,
	coupons repo.CouponRepository,
	orders repo.OrderRepository,
	in CheckoutInput,
	now time.Time,
	shippingFee int64,
) (validationResult, error) {
	if len(in.Items) == 0 {
		return validationResult{}, NewAppError(http.StatusBadRequest, CodeEmptyCart, "cart is empty")
	}

	resolved := make([]resolvedItem, 0, len(in.Items))
	var subtotal int64 = 0

	for _, item := range in.Items {
		if item.Qty <= 0 {
			return validationResult{}, NewAppError(http.StatusBadRequest, CodeValidationError, "qty must be positive")
		}

		p, err := resolveProduct(ctx, products, item.ProductRef)
		if err == repo.ErrNotFound {
			return validationResult{}, NewAppErrorWithDetails(http.StatusNotFound, CodeProductNotFound, "product not found",
				map[string]interface{}{"product": item.ProductRef})
		}
		if err != nil {
			return validationResult{}, errInternal()
		}
		//draftは購買対象外
		if p.Status != model.ProductStatusPublished {
			return validationResult{}, NewAppErrorWithDetails(http.StatusNotFound, CodeProductNotFound, "product not found",
				map[string]interface{}{"product": item.ProductRef})
		}

		v, ok := p.FindVariant(item.VariantKey)
		if !ok {
			return validationResult{}, NewAppErrorWithDetails(http.StatusNotFound, CodeVariantNotFound, "variant not found",
				map[string]interface{}{"product": item.ProductRef, "variant_key": item.VariantKey})
		}

		//advisoryな在庫チェック（確定時に条件付きUPDATEで再チェックされる）
		if v.Stock < item.Qty {
			return validationResult{}, NewAppErrorWithDetails(http.StatusConflict, CodeOutOfStock, "out of stock",
				map[string]interface{}{"product": item.ProductRef, "variant_key": item.VariantKey, "stock": v.Stock})
		}

		//価格は常にサーバ側の現在値。クライアントの値は見ない。
		subtotal += v.Price * item.Qty

		resolved = append(resolved, resolvedItem{
			ProductID:  p.ID,
			VariantID:  v.ID,
			VariantKey: v.Key,
			Title:      p.Title,
			Slug:       p.Slug,
			Image:      p.Image,
			UnitPrice:  v.Price,
			Qty:        item.Qty,
		})
	}

	var discount int64 = 0
	var coupon *model.Coupon

	if code := normalizeCouponCode(in.CouponCode); code != "" {
		c, err := coupons.FindByCode(ctx, code)
		if err == repo.ErrNotFound {
			return validationResult{}, NewAppError(http.StatusBadRequest, CodeInvalidCoupon, "invalid coupon")
		}
		if err != nil {
			return validationResult{}, errInternal()
		}
		if c.Status != model.CouponStatusActive || !c.WithinWindow(now) {
			return validationResult{}, NewAppError(http.StatusBadRequest, CodeInvalidCoupon, "invalid coupon")
		}

		//利用回数はOrderを数えて導出（ロックなし・同時実行で上限超過しうる）
		if c.UsageLimit > 0 {
			used, err := orders.CountByCouponCode(ctx, code)
			if err != nil {
				return validationResult{}, errInternal()
			}
			if used >= c.UsageLimit {
				return validationResult{}, NewAppError(http.StatusConflict, CodeCouponLimit, "coupon usage limit reached")
			}
		}

		discount = couponDiscount(c, subtotal)
		coupon = &c
	}

	grand := subtotal - discount
	if grand < 0 {
		grand = 0
	}
	grand += shippingFee

	totals := CheckoutTotals{
		Subtotal:      subtotal,
		ShippingFee:   shippingFee,
		DiscountTotal: discount,
		GrandTotal:    grand,
	}
	if coupon != nil {
		totals.Coupon = &CouponOutput{
			Code:  coupon.Code,
			Type:  string(coupon.Type),
			Value: coupon.Value,
		}
	}

	return validationResult{Totals: totals, Coupon: coupon, Items: resolved}, nil
}

// resolveProductはidで引き、だめならslugで引く
func resolveProduct(ctx context.Context, products repo.ProductRepository, ref string) (model.Product, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Product{}, repo.ErrNotFound
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		p, err := products.FindByID(ctx, id)
		if err == nil {
			return p, nil
		}
		if err != repo.ErrNotFound {
			return model.Product{}, err
		}
		//idで見つからなければslugとして試す
	}

	return products.FindBySlug(ctx, ref)
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// couponDiscountは割引額を計算する。subtotalは超えない。
func couponDiscount(c model.Coupon, subtotal int64) int64 {
	var d int64
	switch c.Type {
	case model.CouponTypePercent:
		d = subtotal * c.Value / 100
	case model.CouponTypeBxgy:
		//bxgyは金額割引ではなくおまけ付与なのでカート合計には影響しない
		d = 0
	default:
		d = 0
	}

	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		d = 0
	}
	return d
}
