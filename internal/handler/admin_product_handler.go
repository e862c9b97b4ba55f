package handler

import (
	"net/http"
	"strconv"

	"shop/internal/config"
	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/admin/products")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.AdminRoleGuard())

	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PATCH("/:id/stock", h.setStock)
}

func (h *AdminProductHandler) create(c echo.Context) error {
	var req usecase.AdminProductInput
	if err := c.Bind(&req); err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid body")
	}

	id, err := h.uc.AdminCreateProduct(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return writeData(c, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AdminProductHandler) update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid id")
	}

	var req usecase.AdminProductInput
	if err := c.Bind(&req); err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid body")
	}

	if err := h.uc.AdminUpdateProduct(c.Request().Context(), id, req); err != nil {
		return writeError(c, err)
	}
	return writeData(c, http.StatusOK, map[string]bool{"updated": true})
}

func (h *AdminProductHandler) delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid id")
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return writeData(c, http.StatusOK, map[string]bool{"deleted": true})
}

type setStockRequest struct {
	VariantKey string `json:"variant_key"`
	Stock      int64  `json:"stock"`
}

func (h *AdminProductHandler) setStock(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid id")
	}

	var req setStockRequest
	if err := c.Bind(&req); err != nil {
		return writeErrorCode(c, http.StatusBadRequest, usecase.CodeValidationError, "invalid body")
	}

	if err := h.uc.AdminSetStock(c.Request().Context(), id, req.VariantKey, req.Stock); err != nil {
		return writeError(c, err)
	}
	return writeData(c, http.StatusOK, map[string]bool{"updated": true})
}
