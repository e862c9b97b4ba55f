package handler

import (
	"net/http"
	"strconv"

	"shop/internal/config"
	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminCouponHandler struct {
	uc *usecase.AdminCouponUsecase
}

func NewAdminCouponHandler(uc *usecase.AdminCouponUsecase) *AdminCouponHandler {
	return &AdminCouponHandler{uc: uc}
}

func (h *AdminCouponHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/admin/coupons")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.AdminRoleGuard())

	g.POST("", h.create)
	g.GET("", h.list)
	g.PATCH("/:code/status", h.updateStatus)
}

func (h *AdminCouponHandler) create(c echo.Context) error {
	var req usecase.AdminCouponInput
	if err := c.Bind(&req); err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid body")
	}

	id, err := h.uc.Create(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return writeData(c, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AdminCouponHandler) list(c echo.Context) error {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid page")
		}
		page = p
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid limit")
		}
		limit = l
	}

	items, total, err := h.uc.List(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return writeData(c, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

type couponStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminCouponHandler) updateStatus(c echo.Context) error {
	var req couponStatusRequest
	if err := c.Bind(&req); err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid body")
	}

	if err := h.uc.UpdateStatus(c.Request().Context(), c.Param("code"), req.Status); err != nil {
		return writeError(c, err)
	}
	return writeData(c, http.StatusOK, map[string]bool{"updated": true})
}
