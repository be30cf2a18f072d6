// Package domain 定义了应用的数据库模型。
package domain

import "time"

// User 表示一个注册用户。
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"type:varchar(191);uniqueIndex:idx_username;not null"`
	Password  string `gorm:"type:text;not null"` // bcrypt 哈希，不存明文
	Email     string `gorm:"type:varchar(191);uniqueIndex:idx_email"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
