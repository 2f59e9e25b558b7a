package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示尝试插入或更新的数据违反了唯一约束
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrPreconditionFailed 表示条件更新/删除没有匹配到任何行:
	// 要么记录不存在，要么 WHERE 条件 (状态/归属) 不满足。
	// 调用方需要重新查询记录来区分这两种情况。
	ErrPreconditionFailed = errors.New("repository: precondition failed")
)

// 特定资源的错误 (基于通用错误)
var (
	ErrUserNotFound     = ErrNotFound
	ErrModuleNotFound   = ErrNotFound
	ErrProjectNotFound  = ErrNotFound
	ErrFirmwareNotFound = ErrNotFound
)
