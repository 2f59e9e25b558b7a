package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
)

// FirmwareService 实现固件生命周期:
// 上传 (pending) → 委派 (assigned) → 发布/驳回 (released/rejected)。
type FirmwareService struct {
	fwRepo      repository.FirmwareRepository
	userRepo    repository.UserRepository
	moduleRepo  repository.ModuleRepository
	projectRepo repository.ProjectRepository
	files       repository.FileStore
	notifier    Notifier
}

// NewFirmwareService 创建 FirmwareService 实例
func NewFirmwareService(
	fwRepo repository.FirmwareRepository,
	userRepo repository.UserRepository,
	moduleRepo repository.ModuleRepository,
	projectRepo repository.ProjectRepository,
	files repository.FileStore,
	notifier Notifier,
) *FirmwareService {
	if fwRepo == nil || userRepo == nil || moduleRepo == nil || projectRepo == nil || files == nil {
		panic("dependencies cannot be nil for FirmwareService")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &FirmwareService{
		fwRepo:      fwRepo,
		userRepo:    userRepo,
		moduleRepo:  moduleRepo,
		projectRepo: projectRepo,
		files:       files,
		notifier:    notifier,
	}
}

// UploadInput 是一次固件上传的全部输入。
type UploadInput struct {
	ModuleID    uint
	ProjectID   uint
	Version     string
	Description string
	Filename    string
	File        io.Reader
}

// UploadResult 上传成功的返回值。
type UploadResult struct {
	FirmwareID uint
	MD5        string
}

// Upload 接收固件文件并创建 pending 状态的记录。
// 文件落盘之后的任何校验/入库失败都会把上传目录整个删掉，
// 失败的上传不留孤儿文件。
func (s *FirmwareService) Upload(ctx context.Context, actor domain.Identity, input UploadInput) (*UploadResult, error) {
	if !actor.CanUploadFirmware() {
		return nil, ErrPermissionDenied
	}
	if input.ModuleID == 0 || input.ProjectID == 0 || input.Version == "" {
		return nil, fmt.Errorf("%w: module, project and version are required", ErrInvalidInput)
	}
	if !domain.IsValidVersion(input.Version) {
		return nil, fmt.Errorf("%w: version must look like v1.5.1 (vMAJOR.MINOR.PATCH)", ErrInvalidInput)
	}
	if input.File == nil || input.Filename == "" {
		return nil, fmt.Errorf("%w: firmware file is required", ErrInvalidInput)
	}

	if _, err := s.moduleRepo.FindByID(ctx, input.ModuleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrModuleNotFound
		}
		logrus.WithError(err).Error("FirmwareService.Upload: module lookup failed")
		return nil, ErrInternalServer
	}
	if _, err := s.projectRepo.FindByID(ctx, input.ProjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		logrus.WithError(err).Error("FirmwareService.Upload: project lookup failed")
		return nil, ErrInternalServer
	}

	key, md5sum, size, err := s.files.Save(ctx, repository.FileCategoryFirmware, input.Filename, input.File)
	if err != nil {
		logrus.WithError(err).Error("FirmwareService.Upload: failed to store file")
		return nil, ErrInternalServer
	}

	fw := &domain.Firmware{
		ModuleID:    input.ModuleID,
		ProjectID:   input.ProjectID,
		Version:     input.Version,
		Description: input.Description,
		FileKey:     key,
		FileName:    input.Filename,
		FileSize:    size,
		MD5:         md5sum,
		Status:      domain.StatusPending,
		UploadedBy:  actor.ID,
	}
	if err := s.fwRepo.Create(ctx, fw); err != nil {
		s.cleanupFile(key)
		logrus.WithError(err).Error("FirmwareService.Upload: database error")
		return nil, ErrInternalServer
	}

	logrus.WithFields(logrus.Fields{
		"firmware_id": fw.ID,
		"version":     fw.Version,
		"md5":         md5sum,
		"size":        size,
		"uploaded_by": actor.ID,
	}).Info("Firmware uploaded")

	if enriched, err := s.fwRepo.FindByID(ctx, fw.ID); err == nil {
		s.notifier.FirmwareUploaded(enriched)
	}

	return &UploadResult{FirmwareID: fw.ID, MD5: md5sum}, nil
}

// Assign 把 pending 固件委派给测试人员。
// 开发者只能委派自己上传的固件；委派说明必填。
func (s *FirmwareService) Assign(ctx context.Context, actor domain.Identity, firmwareID, assignedTo uint, assignNote string) (*domain.User, error) {
	if !actor.CanUploadFirmware() {
		return nil, ErrPermissionDenied
	}
	if assignedTo == 0 {
		return nil, fmt.Errorf("%w: assignee is required", ErrInvalidInput)
	}
	if assignNote == "" {
		return nil, fmt.Errorf("%w: assign note is required", ErrInvalidInput)
	}

	tester, err := s.userRepo.FindByID(ctx, assignedTo)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).Error("FirmwareService.Assign: assignee lookup failed")
		return nil, ErrInternalServer
	}
	if tester.Role != domain.RoleTester {
		return nil, fmt.Errorf("%w: firmware can only be assigned to a tester", ErrInvalidInput)
	}

	upd := repository.AssignUpdate{AssignedTo: assignedTo, AssignNote: assignNote}
	if actor.Role == domain.RoleDeveloper {
		upd.UploaderID = actor.ID
	}

	if err := s.fwRepo.Assign(ctx, firmwareID, upd); err != nil {
		if errors.Is(err, repository.ErrPreconditionFailed) {
			return nil, s.classifyAssignFailure(ctx, actor, firmwareID)
		}
		logrus.WithError(err).Error("FirmwareService.Assign: database error")
		return nil, ErrInternalServer
	}

	logrus.WithFields(logrus.Fields{
		"firmware_id": firmwareID,
		"assigned_to": assignedTo,
		"assigned_by": actor.ID,
	}).Info("Firmware assigned")

	if fw, err := s.fwRepo.FindByID(ctx, firmwareID); err == nil {
		s.notifier.FirmwareAssigned(fw, tester, assignNote)
	}
	return tester, nil
}

// classifyAssignFailure 把条件更新失败还原为具体错误。
func (s *FirmwareService) classifyAssignFailure(ctx context.Context, actor domain.Identity, firmwareID uint) error {
	fw, err := s.fwRepo.FindByID(ctx, firmwareID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFirmwareNotFound
		}
		return ErrInternalServer
	}
	if fw.Status != domain.StatusPending {
		return ErrStateConflict
	}
	// pending 但更新没命中: 开发者不是上传者。
	if actor.Role == domain.RoleDeveloper && fw.UploadedBy != actor.ID {
		return ErrPermissionDenied
	}
	return ErrInternalServer
}

// StatusInput 发布/驳回操作的输入。
type StatusInput struct {
	Status       string // released 或 rejected
	TestNotes    string
	RejectReason string
}

// UpdateStatus 把 assigned 固件置为 released 或 rejected。
// 测试人员只能操作委派给自己的固件，归属检查在条件更新里完成。
func (s *FirmwareService) UpdateStatus(ctx context.Context, actor domain.Identity, firmwareID uint, input StatusInput) error {
	if !actor.CanTestFirmware() {
		return ErrPermissionDenied
	}
	if input.Status != domain.StatusReleased && input.Status != domain.StatusRejected {
		return fmt.Errorf("%w: target status must be released or rejected", ErrInvalidInput)
	}

	upd := repository.StatusUpdate{
		Status:       input.Status,
		ActorID:      actor.ID,
		TestNotes:    input.TestNotes,
		RejectReason: input.RejectReason,
		ReleasedAt:   time.Now(),
	}
	if actor.Role == domain.RoleTester {
		upd.AssigneeID = actor.ID
	}

	if err := s.fwRepo.UpdateStatus(ctx, firmwareID, upd); err != nil {
		if errors.Is(err, repository.ErrPreconditionFailed) {
			return s.classifyStatusFailure(ctx, actor, firmwareID)
		}
		logrus.WithError(err).Error("FirmwareService.UpdateStatus: database error")
		return ErrInternalServer
	}

	logrus.WithFields(logrus.Fields{
		"firmware_id": firmwareID,
		"status":      input.Status,
		"actor_id":    actor.ID,
	}).Info("Firmware status updated")

	if fw, err := s.fwRepo.FindByID(ctx, firmwareID); err == nil {
		if uploader, uerr := s.userRepo.FindByID(ctx, fw.UploadedBy); uerr == nil {
			s.notifier.FirmwareStatusChanged(fw, input.Status, uploader.Email)
		}
	}
	return nil
}

// classifyStatusFailure 把条件更新失败还原为具体错误。
func (s *FirmwareService) classifyStatusFailure(ctx context.Context, actor domain.Identity, firmwareID uint) error {
	fw, err := s.fwRepo.FindByID(ctx, firmwareID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFirmwareNotFound
		}
		return ErrInternalServer
	}
	if fw.Status != domain.StatusAssigned {
		return ErrStateConflict
	}
	// assigned 但更新没命中: 测试人员不是被委派者。
	if actor.Role == domain.RoleTester &&
		(fw.AssignedTo == nil || *fw.AssignedTo != actor.ID) {
		return ErrPermissionDenied
	}
	return ErrInternalServer
}

// Delete 删除固件记录及其文件目录 (含测试报告目录)。
// 管理员可删任意固件；开发者只能删自己上传且未发布的固件。
func (s *FirmwareService) Delete(ctx context.Context, actor domain.Identity, firmwareID uint) error {
	fw, err := s.fwRepo.FindByID(ctx, firmwareID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFirmwareNotFound
		}
		logrus.WithError(err).Error("FirmwareService.Delete: database error")
		return ErrInternalServer
	}

	switch actor.Role {
	case domain.RoleAdmin:
		if err := s.fwRepo.Delete(ctx, firmwareID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrFirmwareNotFound
			}
			logrus.WithError(err).Error("FirmwareService.Delete: database error")
			return ErrInternalServer
		}
	case domain.RoleDeveloper:
		if fw.UploadedBy != actor.ID || fw.Status == domain.StatusReleased {
			return ErrPermissionDenied
		}
		if err := s.fwRepo.DeleteOwned(ctx, firmwareID, actor.ID); err != nil {
			if errors.Is(err, repository.ErrPreconditionFailed) {
				// 查询和删除之间记录被改动: 重新判定。
				if _, ferr := s.fwRepo.FindByID(ctx, firmwareID); errors.Is(ferr, repository.ErrNotFound) {
					return ErrFirmwareNotFound
				}
				return ErrPermissionDenied
			}
			logrus.WithError(err).Error("FirmwareService.Delete: database error")
			return ErrInternalServer
		}
	default:
		return ErrPermissionDenied
	}

	s.cleanupFile(fw.FileKey)
	if fw.ReportKey != "" {
		s.cleanupFile(fw.ReportKey)
	}

	logrus.WithFields(logrus.Fields{
		"firmware_id": firmwareID,
		"deleted_by":  actor.ID,
		"role":        actor.Role,
	}).Info("Firmware deleted")
	return nil
}

// UploadTestReport 保存测试报告并记录到固件行。
// 固件不存在时清理已写入的文件。
func (s *FirmwareService) UploadTestReport(ctx context.Context, actor domain.Identity, firmwareID uint, filename string, file io.Reader) error {
	if !actor.CanTestFirmware() {
		return ErrPermissionDenied
	}
	if file == nil || filename == "" {
		return fmt.Errorf("%w: test report file is required", ErrInvalidInput)
	}

	key, _, _, err := s.files.Save(ctx, repository.FileCategoryTestReport, filename, file)
	if err != nil {
		logrus.WithError(err).Error("FirmwareService.UploadTestReport: failed to store file")
		return ErrInternalServer
	}

	if err := s.fwRepo.SetReport(ctx, firmwareID, key, filename); err != nil {
		s.cleanupFile(key)
		if errors.Is(err, repository.ErrPreconditionFailed) {
			return ErrFirmwareNotFound
		}
		logrus.WithError(err).Error("FirmwareService.UploadTestReport: database error")
		return ErrInternalServer
	}

	logrus.WithFields(logrus.Fields{
		"firmware_id": firmwareID,
		"uploaded_by": actor.ID,
		"report":      filename,
	}).Info("Test report uploaded")
	return nil
}

// Download 打开固件文件供下载，返回读取器、原始文件名和大小。
func (s *FirmwareService) Download(ctx context.Context, firmwareID uint) (io.ReadCloser, string, int64, error) {
	fw, err := s.fwRepo.FindByID(ctx, firmwareID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", 0, ErrFirmwareNotFound
		}
		logrus.WithError(err).Error("FirmwareService.Download: database error")
		return nil, "", 0, ErrInternalServer
	}

	rc, size, err := s.files.Open(ctx, fw.FileKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", 0, ErrFileNotFound
		}
		logrus.WithError(err).Error("FirmwareService.Download: failed to open stored file")
		return nil, "", 0, ErrInternalServer
	}
	return rc, fw.FileName, size, nil
}

// DownloadTestReport 打开测试报告供下载。
func (s *FirmwareService) DownloadTestReport(ctx context.Context, firmwareID uint) (io.ReadCloser, string, int64, error) {
	fw, err := s.fwRepo.FindByID(ctx, firmwareID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", 0, ErrFirmwareNotFound
		}
		logrus.WithError(err).Error("FirmwareService.DownloadTestReport: database error")
		return nil, "", 0, ErrInternalServer
	}
	if fw.ReportKey == "" {
		return nil, "", 0, ErrFileNotFound
	}

	rc, size, err := s.files.Open(ctx, fw.ReportKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", 0, ErrFileNotFound
		}
		logrus.WithError(err).Error("FirmwareService.DownloadTestReport: failed to open stored file")
		return nil, "", 0, ErrInternalServer
	}
	return rc, fw.ReportName, size, nil
}

// Get 返回单条固件记录 (带展示名)。
func (s *FirmwareService) Get(ctx context.Context, firmwareID uint) (*domain.Firmware, error) {
	fw, err := s.fwRepo.FindByID(ctx, firmwareID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFirmwareNotFound
		}
		logrus.WithError(err).Error("FirmwareService.Get: database error")
		return nil, ErrInternalServer
	}
	return fw, nil
}

// List 按过滤条件返回固件分页。
func (s *FirmwareService) List(ctx context.Context, filter repository.FirmwareFilter, page, pageSize int) (*repository.FirmwarePage, error) {
	result, err := s.fwRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		logrus.WithError(err).Error("FirmwareService.List: database error")
		return nil, ErrInternalServer
	}
	return result, nil
}

// cleanupFile 删除文件目录，失败只记日志。
func (s *FirmwareService) cleanupFile(key string) {
	if key == "" {
		return
	}
	if err := s.files.Remove(context.Background(), key); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to clean up stored file")
	}
}
