package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cseek/xfms/internal/domain"
)

func baseFirmware() domain.Firmware {
	return domain.Firmware{
		ID:          42,
		ModuleID:    1,
		ModuleName:  "WiFi模块",
		ProjectID:   2,
		ProjectName: "Smart Home Hub",
		Version:     "v1.5.1",
		FileName:    "fw.bin",
		FileSize:    1024,
		MD5:         "abc",
		UploadedBy:  2,
	}
}

func TestFirmwareViewFrom_Pending(t *testing.T) {
	fw := baseFirmware()
	fw.Status = domain.StatusPending

	view := FirmwareViewFrom(&fw)

	assert.Equal(t, "待委派", view.StatusLabel)
	assert.Nil(t, view.Assignment)
	assert.Nil(t, view.Release)
	assert.Nil(t, view.Rejection)
}

func TestFirmwareViewFrom_Assigned(t *testing.T) {
	fw := baseFirmware()
	fw.Status = domain.StatusAssigned
	tester := uint(3)
	fw.AssignedTo = &tester
	fw.AssignNote = "请验证 WiFi 连接稳定性"
	fw.TesterName = "qa1"

	view := FirmwareViewFrom(&fw)

	require.NotNil(t, view.Assignment)
	assert.Equal(t, uint(3), view.Assignment.AssignedTo)
	assert.Equal(t, "qa1", view.Assignment.TesterName)
	assert.False(t, view.Assignment.HasReport)
	assert.Nil(t, view.Release)
	assert.Nil(t, view.Rejection)
}

func TestFirmwareViewFrom_Released(t *testing.T) {
	fw := baseFirmware()
	fw.Status = domain.StatusReleased
	tester := uint(3)
	now := time.Now()
	fw.AssignedTo = &tester
	fw.ReleasedBy = &tester
	fw.ReleasedAt = &now
	fw.TestNotes = "全部用例通过"
	fw.ReportKey = "test-reports/a/report.pdf"
	fw.ReportName = "report.pdf"

	view := FirmwareViewFrom(&fw)

	require.NotNil(t, view.Assignment)
	assert.True(t, view.Assignment.HasReport)
	require.NotNil(t, view.Release)
	assert.Equal(t, "全部用例通过", view.Release.TestNotes)
	assert.Nil(t, view.Rejection)
}

func TestFirmwareViewFrom_RejectedKeepsAssignment(t *testing.T) {
	fw := baseFirmware()
	fw.Status = domain.StatusRejected
	tester := uint(3)
	fw.AssignedTo = &tester
	fw.AssignNote = "请验证"
	fw.RejectedBy = &tester
	fw.RejectReason = "启动失败"

	view := FirmwareViewFrom(&fw)

	// 驳回后委派信息保留，详情页可追溯
	require.NotNil(t, view.Assignment)
	require.NotNil(t, view.Rejection)
	assert.Equal(t, "启动失败", view.Rejection.RejectReason)
	assert.Nil(t, view.Release)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 8, 17)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(17), p.Total)

	// 非法参数回退到默认值，不 panic
	p = NewPagination(0, 0, 17)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 8, p.PageSize)
	assert.Equal(t, 3, p.TotalPages)

	p = NewPagination(1, 8, 0)
	assert.Equal(t, 0, p.TotalPages)
}
