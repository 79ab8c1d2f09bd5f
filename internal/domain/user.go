package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleHR    = "hr"
	RoleAdmin = "admin"
)

type User struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	Email        string         `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Username     string         `gorm:"uniqueIndex;size:64;not null" json:"username"`
	PasswordHash string         `gorm:"size:191;not null" json:"-"`
	Role         string         `gorm:"size:16;not null;default:user" json:"role"` // user / hr / admin
	Phone        *string        `gorm:"size:32" json:"phone,omitempty"`
	AvatarURL    *string        `gorm:"size:512" json:"avatar_url,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// UserFilter 管理端用户列表筛选
type UserFilter struct {
	Offset      int
	Limit       int
	Q           string // email / username 模糊搜
	WithDeleted bool
}

// 查询方法在记录不存在时返回 (nil, nil)
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, f UserFilter) ([]User, int64, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	SoftDelete(ctx context.Context, id string) (bool, error)
}
