package repository

import (
	"context"
	"time"

	"github.com/cseek/xfms/internal/domain"
)

// FirmwareFilter 是固件列表查询的过滤条件，零值字段不参与过滤。
type FirmwareFilter struct {
	ModuleID   uint
	ProjectID  uint
	Statuses   []string // 单个或多个状态 (来自逗号分隔的查询参数)
	UploadedBy string   // 上传者用户名
	TestedBy   string   // 测试者用户名 (匹配 assigned_to)
	ReleasedBy string   // 发布者用户名 (匹配 released_by)
	Search     string   // 描述字段的子串搜索
	RelatedTo  uint     // "与我相关": 上传者或被委派者为该用户 ID
}

// FirmwarePage 是固件列表查询的分页结果。
type FirmwarePage struct {
	Items []domain.Firmware
	Total int64
}

// AssignUpdate 描述一次委派操作要写入的字段。
type AssignUpdate struct {
	AssignedTo uint
	AssignNote string
	// UploaderID 非零时额外要求 uploaded_by 匹配 (开发者只能委派自己上传的固件)。
	UploaderID uint
}

// StatusUpdate 描述一次发布/驳回操作要写入的字段。
type StatusUpdate struct {
	Status       string // domain.StatusReleased 或 domain.StatusRejected
	ActorID      uint   // 写入 released_by / rejected_by
	TestNotes    string
	RejectReason string
	ReleasedAt   time.Time
	// AssigneeID 非零时额外要求 assigned_to 匹配 (测试人员只能操作委派给自己的固件)。
	AssigneeID uint
}

// FirmwareRepository 定义了固件数据的存储和检索操作。
//
// Assign/UpdateStatus/DeleteOwned 均以单条带条件的 UPDATE/DELETE 实现，
// 权限与状态前置条件进入 WHERE 子句，避免先查后写的竞争窗口。
// 条件不满足时返回 ErrPreconditionFailed，调用方重查记录以区分原因。
type FirmwareRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Firmware, error)

	// List 按 created_at 倒序返回匹配过滤条件的固件分页，
	// 并联表填充模块/项目/相关人员的展示名。
	List(ctx context.Context, filter FirmwareFilter, page, pageSize int) (*FirmwarePage, error)

	Create(ctx context.Context, fw *domain.Firmware) error

	// Assign 执行 pending → assigned 转移。
	Assign(ctx context.Context, id uint, upd AssignUpdate) error

	// UpdateStatus 执行 assigned → released/rejected 转移。
	UpdateStatus(ctx context.Context, id uint, upd StatusUpdate) error

	// SetReport 记录测试报告的存储键。固件不存在时返回 ErrPreconditionFailed。
	SetReport(ctx context.Context, id uint, key, name string) error

	// Delete 无条件删除 (管理员)。
	Delete(ctx context.Context, id uint) error

	// DeleteOwned 删除指定上传者的、状态非 released 的固件 (开发者)。
	DeleteOwned(ctx context.Context, id, uploaderID uint) error
}
