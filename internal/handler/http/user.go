package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cseek/xfms/internal/middleware"
	"github.com/cseek/xfms/internal/service"
)

// UserHandler 封装了用户管理的 HTTP 处理逻辑
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler 创建 UserHandler 实例
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List 返回全部用户。
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, users)
}

// ListTesters 返回全部测试人员，委派弹窗的候选列表。
func (h *UserHandler) ListTesters(c *gin.Context) {
	testers, err := h.userService.ListTesters(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	type testerView struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	views := make([]testerView, 0, len(testers))
	for _, t := range testers {
		views = append(views, testerView{ID: t.ID, Username: t.Username, Email: t.Email})
	}
	SuccessResponse(c, http.StatusOK, views)
}

// CreateUserRequest 创建用户请求体
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=4"`
	Role     string `json:"role" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// Create 创建用户 (仅管理员)。
func (h *UserHandler) Create(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateUser: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: username, password and role are required")
		return
	}

	user, err := h.userService.Create(c.Request.Context(), identity, req.Username, req.Password, req.Role, req.Email)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"message": "User created successfully",
		"userId":  user.ID,
	})
}

// UpdateUserRequest 更新用户请求体
type UpdateUserRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password"`
}

// Update 更新用户 (仅管理员)。
func (h *UserHandler) Update(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.UpdateUser: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}

	if err := h.userService.Update(c.Request.Context(), identity, id, req.Role, req.Email, req.Password); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "User updated successfully"})
}

// Delete 删除用户 (仅管理员，不能删除自己)。
func (h *UserHandler) Delete(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.userService.Delete(c.Request.Context(), identity, id); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// parseIDParam 解析路径中的 :id 参数。
func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(id), nil
}
