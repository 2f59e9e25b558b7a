package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cseek/xfms/internal/dto"
	"github.com/cseek/xfms/internal/middleware"
	"github.com/cseek/xfms/internal/repository"
	"github.com/cseek/xfms/internal/service"
)

// FirmwareHandler 封装了固件生命周期的 HTTP 处理逻辑
type FirmwareHandler struct {
	firmwareService *service.FirmwareService
	maxFirmwareSize int64
	maxReportSize   int64
}

// NewFirmwareHandler 创建 FirmwareHandler 实例
func NewFirmwareHandler(firmwareService *service.FirmwareService, maxFirmwareSize, maxReportSize int64) *FirmwareHandler {
	return &FirmwareHandler{
		firmwareService: firmwareService,
		maxFirmwareSize: maxFirmwareSize,
		maxReportSize:   maxReportSize,
	}
}

// List 返回固件分页列表，响应行按状态做变体视图。
func (h *FirmwareHandler) List(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "8"))

	filter := repository.FirmwareFilter{
		UploadedBy: c.Query("uploaded_by"),
		TestedBy:   c.Query("tested_by"),
		ReleasedBy: c.Query("released_by"),
		Search:     c.Query("search"),
	}
	if v, err := strconv.ParseUint(c.Query("module_id"), 10, 32); err == nil {
		filter.ModuleID = uint(v)
	}
	if v, err := strconv.ParseUint(c.Query("project_id"), 10, 32); err == nil {
		filter.ProjectID = uint(v)
	}
	// status 支持单个值或逗号分隔的多个值
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, s)
			}
		}
	}
	// "与我相关" 模式: 上传者或被委派者为当前用户
	if c.Query("related") == "true" {
		filter.RelatedTo = identity.ID
	}

	result, err := h.firmwareService.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"data":       dto.FirmwareViewsFrom(result.Items),
		"pagination": dto.NewPagination(page, pageSize, result.Total),
	})
}

// Get 返回单条固件详情。
func (h *FirmwareHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid firmware id")
		return
	}
	fw, err := h.firmwareService.Get(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.FirmwareViewFrom(fw))
}

// Upload 处理固件上传 (multipart)。
func (h *FirmwareHandler) Upload(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}

	moduleID, _ := strconv.ParseUint(c.PostForm("module_id"), 10, 32)
	projectID, _ := strconv.ParseUint(c.PostForm("project_id"), 10, 32)
	version := c.PostForm("version")
	description := c.PostForm("description")

	fileHeader, err := c.FormFile("firmware")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Firmware file is required")
		return
	}
	if fileHeader.Size > h.maxFirmwareSize {
		ErrorResponse(c, http.StatusBadRequest, "Firmware file exceeds the size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logrus.WithError(err).Error("Handler.UploadFirmware: failed to open multipart file")
		ErrorResponse(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	result, err := h.firmwareService.Upload(c.Request.Context(), identity, service.UploadInput{
		ModuleID:    uint(moduleID),
		ProjectID:   uint(projectID),
		Version:     version,
		Description: description,
		Filename:    fileHeader.Filename,
		File:        file,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"message":    "Firmware uploaded successfully",
		"firmwareId": result.FirmwareID,
		"md5":        result.MD5,
	})
}

// Download 下载固件文件，按原始文件名返回附件。
func (h *FirmwareHandler) Download(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid firmware id")
		return
	}

	rc, filename, size, err := h.firmwareService.Download(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	defer rc.Close()

	streamAttachment(c, rc, filename, size)
}

// AssignRequest 委派请求体
type AssignRequest struct {
	AssignedTo uint   `json:"assigned_to" binding:"required"`
	AssignNote string `json:"assign_note" binding:"required"`
}

// Assign 把固件委派给测试人员。
func (h *FirmwareHandler) Assign(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid firmware id")
		return
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: assigned_to and assign_note are required")
		return
	}

	tester, err := h.firmwareService.Assign(c.Request.Context(), identity, id, req.AssignedTo, req.AssignNote)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"message":     "Firmware assigned successfully",
		"assigned_to": tester.Username,
	})
}

// UpdateStatusRequest 发布/驳回请求体。
// release_notes 是 test_notes 的别名，两者择一。
type UpdateStatusRequest struct {
	Status       string `json:"status" binding:"required"`
	TestNotes    string `json:"test_notes"`
	ReleaseNotes string `json:"release_notes"`
	RejectReason string `json:"reject_reason"`
}

// UpdateStatus 把固件置为 released 或 rejected。
func (h *FirmwareHandler) UpdateStatus(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid firmware id")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: status is required")
		return
	}

	testNotes := req.TestNotes
	if testNotes == "" {
		testNotes = req.ReleaseNotes
	}

	err = h.firmwareService.UpdateStatus(c.Request.Context(), identity, id, service.StatusInput{
		Status:       req.Status,
		TestNotes:    testNotes,
		RejectReason: req.RejectReason,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Status updated successfully"})
}

// UploadTestReport 上传测试报告 (multipart)。
func (h *FirmwareHandler) UploadTestReport(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid firmware id")
		return
	}

	fileHeader, err := c.FormFile("test_report")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Test report file is required")
		return
	}
	if fileHeader.Size > h.maxReportSize {
		ErrorResponse(c, http.StatusBadRequest, "Test report file exceeds the size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logrus.WithError(err).Error("Handler.UploadTestReport: failed to open multipart file")
		ErrorResponse(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	if err := h.firmwareService.UploadTestReport(c.Request.Context(), identity, id, fileHeader.Filename, file); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Test report uploaded successfully"})
}

// DownloadTestReport 下载测试报告。
func (h *FirmwareHandler) DownloadTestReport(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid firmware id")
		return
	}

	rc, filename, size, err := h.firmwareService.DownloadTestReport(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	defer rc.Close()

	streamAttachment(c, rc, filename, size)
}

// Delete 删除固件记录及文件。
func (h *FirmwareHandler) Delete(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid firmware id")
		return
	}

	if err := h.firmwareService.Delete(c.Request.Context(), identity, id); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Firmware deleted successfully"})
}

// streamAttachment 按附件头把文件流写给客户端。
func streamAttachment(c *gin.Context, r io.Reader, filename string, size int64) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.DataFromReader(http.StatusOK, size, "application/octet-stream", r, nil)
}
