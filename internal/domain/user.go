// Package domain 定义了应用程序中使用的数据结构 (数据库模型)。
package domain

import "time"

// 用户角色。
const (
	RoleAdmin     = "admin"     // 管理员
	RoleDeveloper = "developer" // 开发者 (上传/委派固件)
	RoleTester    = "tester"    // 测试人员 (发布/驳回固件)
	RoleUser      = "user"      // 普通用户 (只读)
)

// IsValidRole 判断角色字符串是否为已知角色。
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDeveloper, RoleTester, RoleUser:
		return true
	}
	return false
}

// User 表示系统中的一个账号。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null" json:"username"`
	Password  string    `gorm:"type:text;not null" json:"-"` // bcrypt 哈希，永不序列化
	Role      string    `gorm:"type:varchar(20);not null" json:"role"`
	Email     string    `gorm:"type:varchar(191)" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// Identity 是注入到每个请求上下文中的用户身份，
// 替代原系统的全局 session 对象。
type Identity struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"email"`
}

// CanUploadFirmware 上传/委派固件的权限 (管理员或开发者)。
func (i Identity) CanUploadFirmware() bool {
	return i.Role == RoleAdmin || i.Role == RoleDeveloper
}

// CanTestFirmware 测试操作的权限 (管理员或测试人员)。
func (i Identity) CanTestFirmware() bool {
	return i.Role == RoleAdmin || i.Role == RoleTester
}

// IsAdmin 管理员判断。
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
