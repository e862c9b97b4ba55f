package handler

import (
	"io"
	"net/http"

	"shop/internal/config"
	"shop/internal/domain/model"
	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type CreateIntentRequest struct {
	Items      []usecase.CheckoutItemInput `json:"items"`
	CouponCode string                      `json:"coupon_code"`
	Address    model.ShippingAddress       `json:"address"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payments/provider")

	//webhookは認証なし（署名で真正性を検証する）
	g.POST("/webhook", h.webhook)

	auth := g.Group("")
	auth.Use(middleware.AuthJWT(cfg))
	auth.POST("/create-intent", h.createIntent)
}

// POST /payments/provider/create-intent
// カード注文はpendingで作成。在庫はwebhook確定まで押さえない。
func (h *PaymentHandler) createIntent(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return writeErrorCode(c, http.StatusUnauthorized, usecase.CodeUnauthorized, "unauthorized")
	}

	var req CreateIntentRequest
	if err := c.Bind(&req); err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid body")
	}

	out, err := h.uc.CreateIntent(c.Request().Context(), userID, usecase.CreateIntentInput{
		Items:      req.Items,
		CouponCode: req.CouponCode,
		Address:    req.Address,
	})
	if err != nil {
		return writeError(c, err)
	}

	return writeData(c, http.StatusCreated, out)
}

// POST /payments/provider/webhook
// 署名検証のために生のbodyをそのまま渡す（Bindすると壊れる）。
func (h *PaymentHandler) webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid body")
	}

	sig := c.Request().Header.Get("Stripe-Signature")

	if err := h.uc.HandleWebhook(c.Request().Context(), body, sig); err != nil {
		return writeError(c, err)
	}

	return writeData(c, http.StatusOK, map[string]bool{"received": true})
}
