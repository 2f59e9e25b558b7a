package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cseek/xfms/internal/service"
)

// HandleServiceError 把服务层错误翻译为统一的 JSON 错误响应。
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrDuplicateName),
		errors.Is(err, service.ErrDuplicateUsername),
		errors.Is(err, service.ErrCatalogInUse):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrModuleNotFound),
		errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrFirmwareNotFound),
		errors.Is(err, service.ErrFileNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStateConflict):
		ErrorResponse(c, http.StatusConflict, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
