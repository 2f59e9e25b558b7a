package repository

import (
	"context"
	"io"
)

// 文件存储的逻辑类别，对应存储根目录下的两个顶层前缀。
const (
	FileCategoryFirmware   = "firmwares"
	FileCategoryTestReport = "test-reports"
)

// FileStore 把固件二进制和测试报告的落盘细节与数据库记录解耦。
// 数据库只保存 Save 返回的不透明键；键如何映射到实际存储位置
// 由实现决定。
type FileStore interface {
	// Save 将 r 的内容写入 category 下一个新生成的唯一目录，
	// 保留原始文件名，返回不透明键、流式计算的 MD5 和字节数。
	// 写入失败时不留下任何残余目录。
	Save(ctx context.Context, category, filename string, r io.Reader) (key string, md5sum string, size int64, err error)

	// Open 按键打开文件供下载。键无效或文件已不在时返回 ErrNotFound。
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Remove 删除键所在的整个目录 (而不是单个文件)，避免留下空目录。
	// 键对应的目录不存在时不报错。
	Remove(ctx context.Context, key string) error
}
