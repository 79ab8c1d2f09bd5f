package domain

import (
	"context"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review 与 HiringRecord 一对一
type Review struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"size:36;index;not null" json:"user_id"`
	AIEmployeeID   uint      `gorm:"index;not null" json:"ai_employee_id"`
	HiringRecordID uint      `gorm:"uniqueIndex;not null" json:"hiring_record_id"`
	Rating         int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment        *string   `gorm:"type:text" json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	User     *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Employee *AIEmployee `gorm:"foreignKey:AIEmployeeID" json:"ai_employee,omitempty"`
}

func (Review) TableName() string { return "reviews" }

type ReviewRepository interface {
	Create(ctx context.Context, r *Review) error
	FindByID(ctx context.Context, id uint) (*Review, error)
	FindOwned(ctx context.Context, id uint, userID string) (*Review, error)
	ExistsForHiring(ctx context.Context, hiringID uint) (bool, error)
	// Update 只写入 fields 中出现的列
	Update(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
	Ratings(ctx context.Context, employeeID uint) ([]int, error)
	Distribution(ctx context.Context, employeeID uint) (map[int]int64, error)
	ListByEmployee(ctx context.Context, employeeID uint, offset, limit int) ([]Review, int64, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]Review, int64, error)
	UserRatings(ctx context.Context, userID string) ([]int, error)
}
