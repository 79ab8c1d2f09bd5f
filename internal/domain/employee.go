package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

type EmployeeStatus string

const (
	EmployeeAvailable EmployeeStatus = "available"
	EmployeeBusy      EmployeeStatus = "busy"
)

// AIEmployee 可聘用的 AI 员工。Rating / TotalReviews 只由评分聚合写入。
type AIEmployee struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	EmployeeNo   string         `gorm:"uniqueIndex;size:32;not null" json:"employee_id"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Category     string         `gorm:"size:50;index;not null" json:"category"`
	AvatarURL    string         `gorm:"size:512" json:"avatar_url"`
	Description  string         `gorm:"type:text" json:"description"`
	Skills       datatypes.JSON `json:"skills"`
	HourlyRate   float64        `gorm:"not null;default:0" json:"hourly_rate"`
	MonthlyRate  float64        `gorm:"not null;default:0" json:"monthly_rate"`
	Status       EmployeeStatus `gorm:"size:16;index;not null;default:available" json:"status"`
	Rating       float64        `gorm:"not null;default:0" json:"rating"`
	TotalReviews int            `gorm:"not null;default:0" json:"total_reviews"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (AIEmployee) TableName() string { return "ai_employees" }

type EmployeeFilter struct {
	Offset    int
	Limit     int
	Category  string
	Status    EmployeeStatus
	MinRate   *float64
	MaxRate   *float64
	Search    string
	SortBy    string // 已经过白名单校验的列名
	SortOrder string // asc / desc
}

type EmployeeRepository interface {
	Create(ctx context.Context, e *AIEmployee) error
	FindByID(ctx context.Context, id uint) (*AIEmployee, error)
	FindByNo(ctx context.Context, no string) (*AIEmployee, error)
	List(ctx context.Context, f EmployeeFilter) ([]AIEmployee, int64, error)
	Featured(ctx context.Context, minRating float64, limit int) ([]AIEmployee, error)
	IDs(ctx context.Context) ([]uint, error)

	// Reserve 原子地把 available 置为 busy，返回是否抢占成功
	Reserve(ctx context.Context, id uint) (bool, error)
	Release(ctx context.Context, id uint) error
	SetRatingAggregate(ctx context.Context, id uint, rating float64, total int) error
}
