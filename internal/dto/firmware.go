// Package dto 定义对外的响应结构。
package dto

import (
	"time"

	"github.com/cseek/xfms/internal/domain"
)

// Pagination 分页元信息。
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination 由总数计算分页元信息。
func NewPagination(page, pageSize int, total int64) Pagination {
	if pageSize <= 0 {
		pageSize = 8
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// FirmwareView 是固件的对外视图。公共字段始终存在，
// Assignment/Release/Rejection 是按状态出现的变体块:
// pending 三者皆空; assigned 带 Assignment; released 带
// Assignment+Release; rejected 带 Assignment+Rejection。
type FirmwareView struct {
	ID          uint      `json:"id"`
	ModuleID    uint      `json:"module_id"`
	ModuleName  string    `json:"module_name"`
	ProjectID   uint      `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	MD5         string    `json:"md5"`
	Status      string    `json:"status"`
	StatusLabel string    `json:"status_label"`
	UploadedBy  uint      `json:"uploaded_by"`
	Uploader    string    `json:"uploader_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Assignment *AssignmentView `json:"assignment,omitempty"`
	Release    *ReleaseView    `json:"release,omitempty"`
	Rejection  *RejectionView  `json:"rejection,omitempty"`
}

// AssignmentView 委派信息，固件进入 assigned 之后可见。
type AssignmentView struct {
	AssignedTo uint   `json:"assigned_to"`
	TesterName string `json:"tester_name"`
	AssignNote string `json:"assign_note"`
	HasReport  bool   `json:"has_report"`
	ReportName string `json:"report_name,omitempty"`
}

// ReleaseView 发布信息。
type ReleaseView struct {
	ReleasedBy   uint       `json:"released_by"`
	ReleaserName string     `json:"releaser_name"`
	ReleasedAt   *time.Time `json:"released_at"`
	TestNotes    string     `json:"test_notes"`
}

// RejectionView 驳回信息。委派块同时保留，详情页可追溯。
type RejectionView struct {
	RejectedBy   uint   `json:"rejected_by"`
	RejecterName string `json:"rejecter_name"`
	RejectReason string `json:"reject_reason"`
}

// FirmwareViewFrom 按状态构造对应的视图变体。
func FirmwareViewFrom(fw *domain.Firmware) FirmwareView {
	view := FirmwareView{
		ID:          fw.ID,
		ModuleID:    fw.ModuleID,
		ModuleName:  fw.ModuleName,
		ProjectID:   fw.ProjectID,
		ProjectName: fw.ProjectName,
		Version:     fw.Version,
		Description: fw.Description,
		FileName:    fw.FileName,
		FileSize:    fw.FileSize,
		MD5:         fw.MD5,
		Status:      fw.Status,
		StatusLabel: domain.StatusLabel(fw.Status),
		UploadedBy:  fw.UploadedBy,
		Uploader:    fw.UploaderName,
		CreatedAt:   fw.CreatedAt,
		UpdatedAt:   fw.UpdatedAt,
	}

	if fw.Status == domain.StatusPending {
		return view
	}

	if fw.AssignedTo != nil {
		view.Assignment = &AssignmentView{
			AssignedTo: *fw.AssignedTo,
			TesterName: fw.TesterName,
			AssignNote: fw.AssignNote,
			HasReport:  fw.ReportKey != "",
			ReportName: fw.ReportName,
		}
	}

	switch fw.Status {
	case domain.StatusReleased:
		var releasedBy uint
		if fw.ReleasedBy != nil {
			releasedBy = *fw.ReleasedBy
		}
		view.Release = &ReleaseView{
			ReleasedBy:   releasedBy,
			ReleaserName: fw.ReleaserName,
			ReleasedAt:   fw.ReleasedAt,
			TestNotes:    fw.TestNotes,
		}
	case domain.StatusRejected:
		var rejectedBy uint
		if fw.RejectedBy != nil {
			rejectedBy = *fw.RejectedBy
		}
		view.Rejection = &RejectionView{
			RejectedBy:   rejectedBy,
			RejecterName: fw.RejecterName,
			RejectReason: fw.RejectReason,
		}
	}
	return view
}

// FirmwareViewsFrom 批量构造视图。
func FirmwareViewsFrom(fws []domain.Firmware) []FirmwareView {
	views := make([]FirmwareView, 0, len(fws))
	for i := range fws {
		views = append(views, FirmwareViewFrom(&fws[i]))
	}
	return views
}
