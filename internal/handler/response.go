package handler

import (
	"net/http"

	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 成功は {success:true, data}、失敗は {success:false, error:{code,message,details}}
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

func writeData(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, SuccessResponse{Success: true, Data: data})
}

// writeErrorはドメインエラーを封筒に直す唯一の場所。
// AppError以外は詳細を伏せて500にする。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := usecase.AsAppError(err); ok {
		return c.JSON(ae.Status, ErrorResponse{
			Success: false,
			Error:   ErrorBody{Code: ae.Code, Message: ae.Message, Details: ae.Details},
		})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   ErrorBody{Code: usecase.CodeInternalError, Message: "internal error"},
	})
}

func writeErrorCode(c echo.Context, status int, code string, msg string) error {
	return c.JSON(status, ErrorResponse{
		Success: false,
		Error:   ErrorBody{Code: code, Message: msg},
	})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	id, ok := v.(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
