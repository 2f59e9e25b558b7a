// Package http 封装全部 HTTP 处理逻辑: 请求绑定、身份获取、
// 服务调用和错误翻译。
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cseek/xfms/internal/middleware"
	"github.com/cseek/xfms/internal/service"
)

// AuthHandler 封装了登录/退出/身份检查的 HTTP 处理逻辑
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest 登录请求体
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理登录: 校验凭据，下发 token (响应体 + cookie)。
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Login: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: username and password required")
		return
	}

	token, identity, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	// cookie 有效期与 token 一致 (24 小时)。
	c.SetCookie(middleware.TokenCookieName, token, int((24 * time.Hour).Seconds()), "/", "", false, true)
	SuccessResponse(c, http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    identity,
	})
}

// Logout 处理退出: 吊销当前 token 并清除 cookie。
func (h *AuthHandler) Logout(c *gin.Context) {
	jti := c.GetString(middleware.ContextTokenJTI)
	expUnix := c.GetInt64(middleware.ContextTokenExp)

	if err := h.authService.Logout(c.Request.Context(), jti, time.Unix(expUnix, 0)); err != nil {
		HandleServiceError(c, err)
		return
	}

	c.SetCookie(middleware.TokenCookieName, "", -1, "/", "", false, true)
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Logout successful"})
}

// Check 返回当前会话的用户身份。
func (h *AuthHandler) Check(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	SuccessResponse(c, http.StatusOK, identity)
}
