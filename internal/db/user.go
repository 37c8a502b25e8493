package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型，Username 使用邮箱或登录名
type User struct {
	gorm.Model
	Username    string `gorm:"size:190;unique;not null"`
	Password    string `gorm:"not null"`
	DisplayName string `gorm:"size:100"`
	// IsAdmin 只由 EnsureUser 设置，公开注册的账号始终为 false
	IsAdmin bool `gorm:"not null;default:false"`
}

// EnsureUser 确保管理员账号存在：不存在时创建 bcrypt 哈希的用户，已存在的普通账号提升为管理员。
// 用户名按小写邮箱保存以便登录时匹配，用户名或密码为空时直接跳过。
func EnsureUser(gdb *gorm.DB, username, password string) (bool, error) {
	trimmedUser := strings.ToLower(strings.TrimSpace(username))
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return false, nil
	}

	if gdb == nil {
		return false, errors.New("database not initialized")
	}

	var existing User
	if err := gdb.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return false, err
		}

		if err := gdb.Create(&User{Username: trimmedUser, Password: string(hashed), DisplayName: trimmedUser, IsAdmin: true}).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	if !existing.IsAdmin {
		if err := gdb.Model(&existing).Update("is_admin", true).Error; err != nil {
			return false, err
		}
	}
	return false, nil
}
