package service

import "github.com/cseek/xfms/internal/domain"

// Notifier 在固件生命周期事件发生时发出通知 (邮件等)。
// 通知是尽力而为的，实现不得阻塞调用方或返回错误。
type Notifier interface {
	FirmwareUploaded(fw *domain.Firmware)
	FirmwareAssigned(fw *domain.Firmware, tester *domain.User, note string)
	FirmwareStatusChanged(fw *domain.Firmware, newStatus, recipient string)
}

// NopNotifier 是未配置邮件时使用的空实现。
type NopNotifier struct{}

func (NopNotifier) FirmwareUploaded(*domain.Firmware)                       {}
func (NopNotifier) FirmwareAssigned(*domain.Firmware, *domain.User, string) {}
func (NopNotifier) FirmwareStatusChanged(*domain.Firmware, string, string)  {}
