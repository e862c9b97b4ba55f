package handler

import (
	"net/http"

	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/checkout/validate", h.validate)
}

// POST /checkout/validate
// 読み取りのみ。合計はサーバ側の現在価格から再計算して返す。
func (h *CheckoutHandler) validate(c echo.Context) error {
	var req usecase.CheckoutInput
	if err := c.Bind(&req); err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid body")
	}

	out, err := h.uc.Validate(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	return writeData(c, http.StatusOK, out)
}
