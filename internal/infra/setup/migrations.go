package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cseek/xfms/internal/domain"
)

// MigrateDB 迁移全部表结构。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	err := db.AutoMigrate(
		&domain.User{},
		&domain.Module{},
		&domain.Project{},
		&domain.Firmware{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedDB 在空库时写入引导数据: 默认管理员账号和示例模块/项目。
// 已有数据时不做任何事，可以安全地在每次启动时调用。
func SeedDB(db *gorm.DB) error {
	var userCount int64
	if err := db.Model(&domain.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if userCount == 0 {
		hashed, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash bootstrap admin password: %w", err)
		}
		admin := domain.User{
			Username: "admin",
			Password: string(hashed),
			Role:     domain.RoleAdmin,
			Email:    "admin@example.com",
		}
		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("create bootstrap admin: %w", err)
		}
		logrus.WithField("user_id", admin.ID).Warn("Bootstrap admin created with default password, change it")
	}

	var moduleCount int64
	if err := db.Model(&domain.Module{}).Count(&moduleCount).Error; err != nil {
		return fmt.Errorf("count modules: %w", err)
	}
	if moduleCount == 0 {
		modules := []domain.Module{
			{Name: "WiFi Module", Description: "Wireless communication module"},
			{Name: "BLE Module", Description: "Bluetooth Low Energy module"},
			{Name: "GPS Module", Description: "Global Positioning System module"},
		}
		if err := db.Create(&modules).Error; err != nil {
			return fmt.Errorf("seed modules: %w", err)
		}
	}

	var projectCount int64
	if err := db.Model(&domain.Project{}).Count(&projectCount).Error; err != nil {
		return fmt.Errorf("count projects: %w", err)
	}
	if projectCount == 0 {
		projects := []domain.Project{
			{Name: "Smart Home Hub", Description: "Central control unit for smart home"},
			{Name: "IoT Sensor Node", Description: "Remote sensor monitoring device"},
			{Name: "Wearable Device", Description: "Smart wearable technology"},
		}
		if err := db.Create(&projects).Error; err != nil {
			return fmt.Errorf("seed projects: %w", err)
		}
	}

	return nil
}
