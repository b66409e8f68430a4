package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// 用户状态
const (
	UserStatusNormal = 0
	UserStatusMuted  = 1 // 禁言：不能发帖和评论
	UserStatusBanned = 2
)

// User 作者信息，账号体系在外部，这里只保留发布内容需要的字段
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Username  string    `gorm:"size:64;not null" json:"username"`
	Role      string    `gorm:"size:20;default:'user';not null" json:"role"` // user, admin
	Status    int       `gorm:"default:0" json:"status"`                     // 0:正常, 1:禁言, 2:封禁
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) CanPost() bool { return u.Status == UserStatusNormal }
