package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
	"github.com/cseek/xfms/internal/repository/mocks"
)

type firmwareFixture struct {
	fwRepo      *mocks.MockFirmwareRepository
	userRepo    *mocks.MockUserRepository
	moduleRepo  *mocks.MockModuleRepository
	projectRepo *mocks.MockProjectRepository
	files       *mocks.MockFileStore
	svc         *FirmwareService
}

func newFirmwareFixture() *firmwareFixture {
	f := &firmwareFixture{
		fwRepo:      new(mocks.MockFirmwareRepository),
		userRepo:    new(mocks.MockUserRepository),
		moduleRepo:  new(mocks.MockModuleRepository),
		projectRepo: new(mocks.MockProjectRepository),
		files:       new(mocks.MockFileStore),
	}
	f.svc = NewFirmwareService(f.fwRepo, f.userRepo, f.moduleRepo, f.projectRepo, f.files, NopNotifier{})
	return f
}

var (
	adminIdentity     = domain.Identity{ID: 1, Username: "admin", Role: domain.RoleAdmin}
	developerIdentity = domain.Identity{ID: 2, Username: "dev1", Role: domain.RoleDeveloper}
	testerIdentity    = domain.Identity{ID: 3, Username: "qa1", Role: domain.RoleTester}
	readonlyIdentity  = domain.Identity{ID: 4, Username: "viewer", Role: domain.RoleUser}
)

func validUpload() UploadInput {
	return UploadInput{
		ModuleID:    1,
		ProjectID:   2,
		Version:     "v1.5.1",
		Description: "WiFi 驱动修复",
		Filename:    "fw.bin",
		File:        strings.NewReader("binary-content"),
	}
}

func TestFirmwareService_Upload_InvalidVersion(t *testing.T) {
	f := newFirmwareFixture()

	input := validUpload()
	input.Version = "1.5.1" // 缺少前缀 v

	_, err := f.svc.Upload(context.Background(), developerIdentity, input)

	assert.ErrorIs(t, err, ErrInvalidInput)
	// 校验失败发生在落盘之前，不应产生文件
	f.files.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFirmwareService_Upload_PermissionDenied(t *testing.T) {
	f := newFirmwareFixture()

	for _, actor := range []domain.Identity{testerIdentity, readonlyIdentity} {
		_, err := f.svc.Upload(context.Background(), actor, validUpload())
		assert.ErrorIs(t, err, ErrPermissionDenied, "role %s must not upload", actor.Role)
	}
}

func TestFirmwareService_Upload_CleansUpFileOnDBError(t *testing.T) {
	f := newFirmwareFixture()

	f.moduleRepo.On("FindByID", mock.Anything, uint(1)).Return(&domain.Module{ID: 1}, nil)
	f.projectRepo.On("FindByID", mock.Anything, uint(2)).Return(&domain.Project{ID: 2}, nil)
	f.files.On("Save", mock.Anything, repository.FileCategoryFirmware, "fw.bin", mock.Anything).
		Return("firmwares/xyz/fw.bin", "d41d8cd98f00b204e9800998ecf8427e", int64(14), nil)
	f.fwRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Firmware")).
		Return(assert.AnError)
	f.files.On("Remove", mock.Anything, "firmwares/xyz/fw.bin").Return(nil)

	_, err := f.svc.Upload(context.Background(), developerIdentity, validUpload())

	assert.ErrorIs(t, err, ErrInternalServer)
	f.files.AssertCalled(t, "Remove", mock.Anything, "firmwares/xyz/fw.bin")
}

func TestFirmwareService_Upload_Success(t *testing.T) {
	f := newFirmwareFixture()

	f.moduleRepo.On("FindByID", mock.Anything, uint(1)).Return(&domain.Module{ID: 1}, nil)
	f.projectRepo.On("FindByID", mock.Anything, uint(2)).Return(&domain.Project{ID: 2}, nil)
	f.files.On("Save", mock.Anything, repository.FileCategoryFirmware, "fw.bin", mock.Anything).
		Return("firmwares/xyz/fw.bin", "0cc175b9c0f1b6a831c399e269772661", int64(14), nil)
	f.fwRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Firmware")).
		Run(func(args mock.Arguments) {
			fw := args.Get(1).(*domain.Firmware)
			fw.ID = 42
			assert.Equal(t, domain.StatusPending, fw.Status)
			assert.Equal(t, uint(2), fw.UploadedBy)
		}).Return(nil)
	f.fwRepo.On("FindByID", mock.Anything, uint(42)).Return(&domain.Firmware{ID: 42}, nil)

	result, err := f.svc.Upload(context.Background(), developerIdentity, validUpload())

	require.NoError(t, err)
	assert.Equal(t, uint(42), result.FirmwareID)
	assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661", result.MD5)
	f.fwRepo.AssertExpectations(t)
}

func TestFirmwareService_Assign_EmptyNoteRejected(t *testing.T) {
	f := newFirmwareFixture()

	_, err := f.svc.Assign(context.Background(), developerIdentity, 42, 3, "")

	assert.ErrorIs(t, err, ErrInvalidInput)
	f.fwRepo.AssertNotCalled(t, "Assign", mock.Anything, mock.Anything, mock.Anything)
}

func TestFirmwareService_Assign_AssigneeMustBeTester(t *testing.T) {
	f := newFirmwareFixture()

	f.userRepo.On("FindByID", mock.Anything, uint(5)).
		Return(&domain.User{ID: 5, Username: "dev2", Role: domain.RoleDeveloper}, nil)

	_, err := f.svc.Assign(context.Background(), developerIdentity, 42, 5, "请验证")

	assert.ErrorIs(t, err, ErrInvalidInput)
	f.fwRepo.AssertNotCalled(t, "Assign", mock.Anything, mock.Anything, mock.Anything)
}

func TestFirmwareService_Assign_DeveloperScopedToOwnUploads(t *testing.T) {
	f := newFirmwareFixture()

	tester := &domain.User{ID: 3, Username: "qa1", Role: domain.RoleTester}
	f.userRepo.On("FindByID", mock.Anything, uint(3)).Return(tester, nil)
	// 开发者委派时条件更新必须带上传者限定
	f.fwRepo.On("Assign", mock.Anything, uint(42),
		repository.AssignUpdate{AssignedTo: 3, AssignNote: "请验证", UploaderID: 2}).Return(nil)
	f.fwRepo.On("FindByID", mock.Anything, uint(42)).Return(&domain.Firmware{ID: 42}, nil)

	got, err := f.svc.Assign(context.Background(), developerIdentity, 42, 3, "请验证")

	require.NoError(t, err)
	assert.Equal(t, "qa1", got.Username)
	f.fwRepo.AssertExpectations(t)
}

func TestFirmwareService_Assign_NotPendingIsConflict(t *testing.T) {
	f := newFirmwareFixture()

	tester := &domain.User{ID: 3, Role: domain.RoleTester}
	f.userRepo.On("FindByID", mock.Anything, uint(3)).Return(tester, nil)
	f.fwRepo.On("Assign", mock.Anything, uint(42), mock.Anything).
		Return(repository.ErrPreconditionFailed)
	f.fwRepo.On("FindByID", mock.Anything, uint(42)).
		Return(&domain.Firmware{ID: 42, Status: domain.StatusReleased}, nil)

	_, err := f.svc.Assign(context.Background(), adminIdentity, 42, 3, "请验证")

	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestFirmwareService_Assign_OtherDevelopersUploadDenied(t *testing.T) {
	f := newFirmwareFixture()

	tester := &domain.User{ID: 3, Role: domain.RoleTester}
	f.userRepo.On("FindByID", mock.Anything, uint(3)).Return(tester, nil)
	f.fwRepo.On("Assign", mock.Anything, uint(42), mock.Anything).
		Return(repository.ErrPreconditionFailed)
	// 固件仍是 pending，但上传者是别人
	f.fwRepo.On("FindByID", mock.Anything, uint(42)).
		Return(&domain.Firmware{ID: 42, Status: domain.StatusPending, UploadedBy: 99}, nil)

	_, err := f.svc.Assign(context.Background(), developerIdentity, 42, 3, "请验证")

	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestFirmwareService_UpdateStatus_InvalidTarget(t *testing.T) {
	f := newFirmwareFixture()

	err := f.svc.UpdateStatus(context.Background(), testerIdentity, 42, StatusInput{Status: "pending"})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFirmwareService_UpdateStatus_TesterScopedToOwnAssignments(t *testing.T) {
	f := newFirmwareFixture()

	f.fwRepo.On("UpdateStatus", mock.Anything, uint(42),
		mock.MatchedBy(func(upd repository.StatusUpdate) bool {
			return upd.Status == domain.StatusReleased && upd.ActorID == 3 && upd.AssigneeID == 3
		})).Return(nil)
	f.fwRepo.On("FindByID", mock.Anything, uint(42)).
		Return(&domain.Firmware{ID: 42, UploadedBy: 2}, nil)
	f.userRepo.On("FindByID", mock.Anything, uint(2)).
		Return(&domain.User{ID: 2, Email: "dev1@example.com"}, nil)

	err := f.svc.UpdateStatus(context.Background(), testerIdentity, 42, StatusInput{
		Status:    domain.StatusReleased,
		TestNotes: "全部用例通过",
	})

	require.NoError(t, err)
	f.fwRepo.AssertExpectations(t)
}

func TestFirmwareService_UpdateStatus_AlreadyReleasedIsConflict(t *testing.T) {
	f := newFirmwareFixture()

	// 两个测试人员并发发布同一固件: 后到的条件更新落空
	f.fwRepo.On("UpdateStatus", mock.Anything, uint(42), mock.Anything).
		Return(repository.ErrPreconditionFailed)
	f.fwRepo.On("FindByID", mock.Anything, uint(42)).
		Return(&domain.Firmware{ID: 42, Status: domain.StatusReleased}, nil)

	err := f.svc.UpdateStatus(context.Background(), testerIdentity, 42, StatusInput{
		Status: domain.StatusReleased,
	})

	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestFirmwareService_UpdateStatus_WrongAssigneeDenied(t *testing.T) {
	f := newFirmwareFixture()

	other := uint(99)
	f.fwRepo.On("UpdateStatus", mock.Anything, uint(42), mock.Anything).
		Return(repository.ErrPreconditionFailed)
	f.fwRepo.On("FindByID", mock.Anything, uint(42)).
		Return(&domain.Firmware{ID: 42, Status: domain.StatusAssigned, AssignedTo: &other}, nil)

	err := f.svc.UpdateStatus(context.Background(), testerIdentity, 42, StatusInput{
		Status: domain.StatusRejected,
	})

	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestFirmwareService_Delete_DeveloperCannotDeleteReleased(t *testing.T) {
	f := newFirmwareFixture()

	f.fwRepo.On("FindByID", mock.Anything, uint(42)).
		Return(&domain.Firmware{ID: 42, UploadedBy: 2, Status: domain.StatusReleased}, nil)

	err := f.svc.Delete(context.Background(), developerIdentity, 42)

	assert.ErrorIs(t, err, ErrPermissionDenied)
	f.fwRepo.AssertNotCalled(t, "DeleteOwned", mock.Anything, mock.Anything, mock.Anything)
}

func TestFirmwareService_Delete_DeveloperCannotDeleteOthersUpload(t *testing.T) {
	f := newFirmwareFixture()

	f.fwRepo.On("FindByID", mock.Anything, uint(42)).
		Return(&domain.Firmware{ID: 42, UploadedBy: 99, Status: domain.StatusPending}, nil)

	err := f.svc.Delete(context.Background(), developerIdentity, 42)

	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestFirmwareService_Delete_AdminRemovesFiles(t *testing.T) {
	f := newFirmwareFixture()

	f.fwRepo.On("FindByID", mock.Anything, uint(42)).Return(&domain.Firmware{
		ID:        42,
		Status:    domain.StatusReleased,
		FileKey:   "firmwares/a/fw.bin",
		ReportKey: "test-reports/b/report.pdf",
	}, nil)
	f.fwRepo.On("Delete", mock.Anything, uint(42)).Return(nil)
	f.files.On("Remove", mock.Anything, "firmwares/a/fw.bin").Return(nil)
	f.files.On("Remove", mock.Anything, "test-reports/b/report.pdf").Return(nil)

	err := f.svc.Delete(context.Background(), adminIdentity, 42)

	require.NoError(t, err)
	f.files.AssertExpectations(t)
}

func TestFirmwareService_Delete_ReadonlyDenied(t *testing.T) {
	f := newFirmwareFixture()

	f.fwRepo.On("FindByID", mock.Anything, uint(42)).
		Return(&domain.Firmware{ID: 42}, nil)

	err := f.svc.Delete(context.Background(), readonlyIdentity, 42)

	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestFirmwareService_UploadTestReport_MissingFirmwareCleansUp(t *testing.T) {
	f := newFirmwareFixture()

	f.files.On("Save", mock.Anything, repository.FileCategoryTestReport, "report.pdf", mock.Anything).
		Return("test-reports/c/report.pdf", "md5", int64(10), nil)
	f.fwRepo.On("SetReport", mock.Anything, uint(404), "test-reports/c/report.pdf", "report.pdf").
		Return(repository.ErrPreconditionFailed)
	f.files.On("Remove", mock.Anything, "test-reports/c/report.pdf").Return(nil)

	err := f.svc.UploadTestReport(context.Background(), testerIdentity, 404, "report.pdf", strings.NewReader("pdf"))

	assert.ErrorIs(t, err, ErrFirmwareNotFound)
	f.files.AssertCalled(t, "Remove", mock.Anything, "test-reports/c/report.pdf")
}

func TestFirmwareService_Download_MissingFileIs404(t *testing.T) {
	f := newFirmwareFixture()

	f.fwRepo.On("FindByID", mock.Anything, uint(42)).
		Return(&domain.Firmware{ID: 42, FileKey: "firmwares/a/fw.bin", FileName: "fw.bin"}, nil)
	f.files.On("Open", mock.Anything, "firmwares/a/fw.bin").
		Return(nil, int64(0), repository.ErrNotFound)

	_, _, _, err := f.svc.Download(context.Background(), 42)

	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFirmwareService_DownloadTestReport_NoReportIs404(t *testing.T) {
	f := newFirmwareFixture()

	f.fwRepo.On("FindByID", mock.Anything, uint(42)).
		Return(&domain.Firmware{ID: 42, FileKey: "firmwares/a/fw.bin"}, nil)

	_, _, _, err := f.svc.DownloadTestReport(context.Background(), 42)

	assert.ErrorIs(t, err, ErrFileNotFound)
}
