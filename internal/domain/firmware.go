package domain

import (
	"regexp"
	"time"
)

// 固件状态。状态只沿 pending → assigned → {released|rejected} 前进，
// 终态不可重开。
const (
	StatusPending  = "pending"  // 待委派
	StatusAssigned = "assigned" // 待发布
	StatusReleased = "released" // 已发布
	StatusRejected = "rejected" // 已驳回
)

// statusLabels 状态对应的中文展示名，供前端列表/详情使用。
var statusLabels = map[string]string{
	StatusPending:  "待委派",
	StatusAssigned: "待发布",
	StatusReleased: "已发布",
	StatusRejected: "已驳回",
}

// StatusLabel 返回状态的中文展示名，未知状态原样返回。
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// IsValidStatus 判断状态字符串是否为已知状态。
func IsValidStatus(status string) bool {
	_, ok := statusLabels[status]
	return ok
}

// versionPattern 版本号格式: v主版本.次版本.修订版本，例如 v1.5.1。
var versionPattern = regexp.MustCompile(`^v\d+\.\d+\.\d+$`)

// IsValidVersion 校验版本号格式。
func IsValidVersion(version string) bool {
	return versionPattern.MatchString(version)
}

// Firmware 表示一次固件上传及其后续的委派/发布/驳回生命周期。
//
// FileKey/ReportKey 是存储层的不透明键，不是文件系统路径；
// 具体落盘位置由 FileStore 实现解析。
type Firmware struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ModuleID    uint   `gorm:"index;not null" json:"module_id"`
	ProjectID   uint   `gorm:"index;not null" json:"project_id"`
	Version     string `gorm:"type:varchar(50);not null" json:"version"`
	Description string `gorm:"type:text" json:"description"`

	FileKey  string `gorm:"type:varchar(512);not null" json:"-"`
	FileName string `gorm:"type:varchar(255);not null" json:"file_name"`
	FileSize int64  `json:"file_size"`
	MD5      string `gorm:"type:varchar(32)" json:"md5"`

	Status     string `gorm:"type:varchar(20);index;not null;default:pending" json:"status"`
	UploadedBy uint   `gorm:"index;not null" json:"uploaded_by"`

	// 委派信息: AssignedTo 一旦设置必须指向 role=tester 的用户。
	AssignedTo *uint  `gorm:"index" json:"assigned_to,omitempty"`
	AssignNote string `gorm:"type:text" json:"assign_note,omitempty"`

	// 测试报告 (可选)。
	ReportKey  string `gorm:"type:varchar(512)" json:"-"`
	ReportName string `gorm:"type:varchar(255)" json:"report_name,omitempty"`

	// 发布信息。
	ReleasedBy *uint      `json:"released_by,omitempty"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	TestNotes  string     `gorm:"type:text" json:"test_notes,omitempty"`

	// 驳回信息。委派字段在驳回后保留，详情页仍可追溯。
	RejectedBy   *uint  `json:"rejected_by,omitempty"`
	RejectReason string `gorm:"type:text" json:"reject_reason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 联表查询填充的展示字段，不建列。
	ModuleName   string `gorm:"->;-:migration" json:"module_name,omitempty"`
	ProjectName  string `gorm:"->;-:migration" json:"project_name,omitempty"`
	UploaderName string `gorm:"->;-:migration" json:"uploader_name,omitempty"`
	TesterName   string `gorm:"->;-:migration" json:"tester_name,omitempty"`
	ReleaserName string `gorm:"->;-:migration" json:"releaser_name,omitempty"`
	RejecterName string `gorm:"->;-:migration" json:"rejecter_name,omitempty"`
}
