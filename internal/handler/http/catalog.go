package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cseek/xfms/internal/dto"
	"github.com/cseek/xfms/internal/middleware"
	"github.com/cseek/xfms/internal/service"
)

// CatalogHandler 封装了模块与项目管理的 HTTP 处理逻辑
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler 实例
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// CatalogRequest 模块/项目创建与更新共用的请求体
type CatalogRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// listParams 解析分页与搜索参数。pageSize 为 0 表示不分页。
func listParams(c *gin.Context) (search string, page, pageSize int) {
	search = c.Query("search")
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "0"))
	return search, page, pageSize
}

// --- 模块 ---

// ListModules 返回模块列表 (可选搜索/分页)。
func (h *CatalogHandler) ListModules(c *gin.Context) {
	search, page, pageSize := listParams(c)
	result, err := h.catalogService.ListModules(c.Request.Context(), search, page, pageSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if pageSize > 0 {
		SuccessResponse(c, http.StatusOK, gin.H{
			"data":       result.Items,
			"pagination": dto.NewPagination(page, pageSize, result.Total),
		})
		return
	}
	SuccessResponse(c, http.StatusOK, result.Items)
}

// CreateModule 创建模块。
func (h *CatalogHandler) CreateModule(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	var req CatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateModule: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	module, err := h.catalogService.CreateModule(c.Request.Context(), identity, req.Name, req.Description)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"message":  "Module created successfully",
		"moduleId": module.ID,
	})
}

// UpdateModule 更新模块。
func (h *CatalogHandler) UpdateModule(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid module id")
		return
	}
	var req CatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	if err := h.catalogService.UpdateModule(c.Request.Context(), identity, id, req.Name, req.Description); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Module updated successfully"})
}

// DeleteModule 删除模块，仍被固件引用时返回 400。
func (h *CatalogHandler) DeleteModule(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid module id")
		return
	}

	if err := h.catalogService.DeleteModule(c.Request.Context(), identity, id); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Module deleted successfully"})
}

// --- 项目 ---

// ListProjects 返回项目列表 (可选搜索/分页)。
func (h *CatalogHandler) ListProjects(c *gin.Context) {
	search, page, pageSize := listParams(c)
	result, err := h.catalogService.ListProjects(c.Request.Context(), search, page, pageSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if pageSize > 0 {
		SuccessResponse(c, http.StatusOK, gin.H{
			"data":       result.Items,
			"pagination": dto.NewPagination(page, pageSize, result.Total),
		})
		return
	}
	SuccessResponse(c, http.StatusOK, result.Items)
}

// CreateProject 创建项目。
func (h *CatalogHandler) CreateProject(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	var req CatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateProject: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	project, err := h.catalogService.CreateProject(c.Request.Context(), identity, req.Name, req.Description)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"message":   "Project created successfully",
		"projectId": project.ID,
	})
}

// UpdateProject 更新项目。
func (h *CatalogHandler) UpdateProject(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid project id")
		return
	}
	var req CatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	if err := h.catalogService.UpdateProject(c.Request.Context(), identity, id, req.Name, req.Description); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Project updated successfully"})
}

// DeleteProject 删除项目，仍被固件引用时返回 400。
func (h *CatalogHandler) DeleteProject(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid project id")
		return
	}

	if err := h.catalogService.DeleteProject(c.Request.Context(), identity, id); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Project deleted successfully"})
}
