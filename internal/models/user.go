package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户（持券人）
// 说明：认证由账号协作方完成，这里只保留引擎需要的持有者记录。
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`                   // 主键
	Nickname  string         `gorm:"not null" json:"nickname"`               // 昵称
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`      // 邮箱
	Status    string         `gorm:"not null;default:active" json:"status"`  // 状态（active/disabled）
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                         // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
