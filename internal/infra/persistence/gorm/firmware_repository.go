package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
)

// GormFirmwareRepository 是 FirmwareRepository 接口的 GORM 实现。
//
// 状态转移 (Assign/UpdateStatus) 和受限删除 (DeleteOwned) 把前置条件
// 放进 WHERE 子句，用单条语句完成检查加写入，消除并发请求下
// 先查后写的竞争窗口。
type GormFirmwareRepository struct {
	db *gorm.DB
}

// NewGormFirmwareRepository 创建 GormFirmwareRepository 实例
func NewGormFirmwareRepository(db *gorm.DB) *GormFirmwareRepository {
	if db == nil {
		panic("database connection cannot be nil for GormFirmwareRepository")
	}
	return &GormFirmwareRepository{db: db}
}

// selectWithNames 联表填充模块/项目/人员的展示名。
const selectWithNames = `firmwares.*,
	m.name AS module_name,
	p.name AS project_name,
	up.username AS uploader_name,
	tu.username AS tester_name,
	ru.username AS releaser_name,
	ju.username AS rejecter_name`

func (r *GormFirmwareRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&domain.Firmware{}).
		Select(selectWithNames).
		Joins("LEFT JOIN modules m ON firmwares.module_id = m.id").
		Joins("LEFT JOIN projects p ON firmwares.project_id = p.id").
		Joins("LEFT JOIN users up ON firmwares.uploaded_by = up.id").
		Joins("LEFT JOIN users tu ON firmwares.assigned_to = tu.id").
		Joins("LEFT JOIN users ru ON firmwares.released_by = ru.id").
		Joins("LEFT JOIN users ju ON firmwares.rejected_by = ju.id")
}

// FindByID 返回带展示名的单条固件记录
func (r *GormFirmwareRepository) FindByID(ctx context.Context, id uint) (*domain.Firmware, error) {
	var fw domain.Firmware
	err := r.joined(ctx).Where("firmwares.id = ?", id).First(&fw).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrFirmwareNotFound
		}
		return nil, fmt.Errorf("gorm: find firmware by id %d: %w", id, err)
	}
	return &fw, nil
}

// List 按过滤条件分页查询固件
func (r *GormFirmwareRepository) List(ctx context.Context, filter repository.FirmwareFilter, page, pageSize int) (*repository.FirmwarePage, error) {
	query := r.joined(ctx)

	if filter.ModuleID != 0 {
		query = query.Where("firmwares.module_id = ?", filter.ModuleID)
	}
	if filter.ProjectID != 0 {
		query = query.Where("firmwares.project_id = ?", filter.ProjectID)
	}
	if len(filter.Statuses) == 1 {
		query = query.Where("firmwares.status = ?", filter.Statuses[0])
	} else if len(filter.Statuses) > 1 {
		query = query.Where("firmwares.status IN ?", filter.Statuses)
	}
	if filter.UploadedBy != "" {
		query = query.Where("up.username = ?", filter.UploadedBy)
	}
	if filter.TestedBy != "" {
		query = query.Where("tu.username = ?", filter.TestedBy)
	}
	if filter.ReleasedBy != "" {
		query = query.Where("ru.username = ?", filter.ReleasedBy)
	}
	if filter.Search != "" {
		query = query.Where("firmwares.description LIKE ?", "%"+filter.Search+"%")
	}
	if filter.RelatedTo != 0 {
		query = query.Where("firmwares.uploaded_by = ? OR firmwares.assigned_to = ?",
			filter.RelatedTo, filter.RelatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("gorm: count firmwares: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 8
	}

	var items []domain.Firmware
	err := query.Order("firmwares.created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list firmwares: %w", err)
	}
	return &repository.FirmwarePage{Items: items, Total: total}, nil
}

// Create 插入固件记录
func (r *GormFirmwareRepository) Create(ctx context.Context, fw *domain.Firmware) error {
	if err := r.db.WithContext(ctx).Create(fw).Error; err != nil {
		return fmt.Errorf("gorm: create firmware (version: %s): %w", fw.Version, err)
	}
	return nil
}

// Assign 执行 pending → assigned 转移。
// UploaderID 非零时附带上传者归属条件 (开发者路径)。
func (r *GormFirmwareRepository) Assign(ctx context.Context, id uint, upd repository.AssignUpdate) error {
	query := r.db.WithContext(ctx).Model(&domain.Firmware{}).
		Where("id = ? AND status = ?", id, domain.StatusPending)
	if upd.UploaderID != 0 {
		query = query.Where("uploaded_by = ?", upd.UploaderID)
	}

	result := query.Updates(map[string]interface{}{
		"status":      domain.StatusAssigned,
		"assigned_to": upd.AssignedTo,
		"assign_note": upd.AssignNote,
	})
	if result.Error != nil {
		return fmt.Errorf("gorm: assign firmware %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrPreconditionFailed
	}
	return nil
}

// UpdateStatus 执行 assigned → released/rejected 转移。
// AssigneeID 非零时附带被委派者条件 (测试人员路径)。
func (r *GormFirmwareRepository) UpdateStatus(ctx context.Context, id uint, upd repository.StatusUpdate) error {
	query := r.db.WithContext(ctx).Model(&domain.Firmware{}).
		Where("id = ? AND status = ?", id, domain.StatusAssigned)
	if upd.AssigneeID != 0 {
		query = query.Where("assigned_to = ?", upd.AssigneeID)
	}

	var fields map[string]interface{}
	switch upd.Status {
	case domain.StatusReleased:
		fields = map[string]interface{}{
			"status":      domain.StatusReleased,
			"released_by": upd.ActorID,
			"released_at": upd.ReleasedAt,
			"test_notes":  upd.TestNotes,
		}
	case domain.StatusRejected:
		// 委派字段保留，驳回后详情页仍可追溯测试人员与委派说明。
		fields = map[string]interface{}{
			"status":        domain.StatusRejected,
			"rejected_by":   upd.ActorID,
			"reject_reason": upd.RejectReason,
		}
	default:
		return fmt.Errorf("gorm: unsupported target status %q", upd.Status)
	}

	result := query.Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("gorm: update firmware %d status to %s: %w", id, upd.Status, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrPreconditionFailed
	}
	return nil
}

// SetReport 记录测试报告的存储键
func (r *GormFirmwareRepository) SetReport(ctx context.Context, id uint, key, name string) error {
	result := r.db.WithContext(ctx).Model(&domain.Firmware{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"report_key":  key,
			"report_name": name,
		})
	if result.Error != nil {
		return fmt.Errorf("gorm: set report for firmware %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrPreconditionFailed
	}
	return nil
}

// Delete 无条件删除 (管理员)
func (r *GormFirmwareRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Firmware{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete firmware %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrFirmwareNotFound
	}
	return nil
}

// DeleteOwned 删除指定上传者的、状态非 released 的固件 (开发者)
func (r *GormFirmwareRepository) DeleteOwned(ctx context.Context, id, uploaderID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND uploaded_by = ? AND status <> ?", id, uploaderID, domain.StatusReleased).
		Delete(&domain.Firmware{})
	if result.Error != nil {
		return fmt.Errorf("gorm: delete owned firmware %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrPreconditionFailed
	}
	return nil
}
