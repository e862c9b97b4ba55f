package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラーコード（レスポンスのerror.codeにそのまま出る）
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeEmptyCart        = "EMPTY_CART"
	CodeProductNotFound  = "PRODUCT_NOT_FOUND"
	CodeVariantNotFound  = "VARIANT_NOT_FOUND"
	CodeOutOfStock       = "OUT_OF_STOCK"
	CodeInvalidCoupon    = "INVALID_COUPON"
	CodeCouponLimit      = "COUPON_LIMIT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInvalidSignature = "INVALID_SIGNATURE"
	CodeOrderNotFound    = "ORDER_NOT_FOUND"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInternalError    = "INTERNAL_ERROR"
)

// AppErrorはドメインエラー。handlerの境界で一度だけJSONに直す。
type AppError struct {
	Status  int
	Code    string
	Message string
	Details map[string]interface{}
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func NewAppError(status int, code string, message string) error {
	return &AppError{Status: status, Code: code, Message: message}
}

func NewAppErrorWithDetails(status int, code string, message string, details map[string]interface{}) error {
	return &AppError{Status: status, Code: code, Message: message, Details: details}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// よく使うやつのショートカット
func errUnauthorized() error {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
}

func errInternal() error {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal error")
}
