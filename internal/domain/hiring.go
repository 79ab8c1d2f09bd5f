package domain

import (
	"context"
	"fmt"
	"time"
)

type HireType string

const (
	HireHourly  HireType = "hourly"
	HireMonthly HireType = "monthly"
)

func (t HireType) Valid() bool { return t == HireHourly || t == HireMonthly }

type HiringStatus string

const (
	HiringActive    HiringStatus = "active"
	HiringCompleted HiringStatus = "completed"
	HiringCancelled HiringStatus = "cancelled"
)

// 合法迁移表：只允许从 active 进入终态
var hiringTransitions = map[HiringStatus]map[HiringStatus]struct{}{
	HiringActive: {
		HiringCompleted: {},
		HiringCancelled: {},
	},
	HiringCompleted: {},
	HiringCancelled: {},
}

func ParseHiringStatus(s string) (HiringStatus, error) {
	st := HiringStatus(s)
	if _, ok := hiringTransitions[st]; !ok {
		return "", fmt.Errorf("unknown hiring status %q", s)
	}
	return st, nil
}

func (s HiringStatus) Terminal() bool { return s == HiringCompleted || s == HiringCancelled }

func (s HiringStatus) CanTransitionTo(next HiringStatus) bool {
	_, ok := hiringTransitions[s][next]
	return ok
}

type HiringRecord struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	UserID          string       `gorm:"size:36;index;not null" json:"user_id"`
	AIEmployeeID    uint         `gorm:"index;not null" json:"ai_employee_id"`
	HireType        HireType     `gorm:"size:16;not null" json:"hire_type"`
	Rate            float64      `gorm:"not null" json:"rate"`
	StartDate       time.Time    `gorm:"not null" json:"start_date"`
	EndDate         *time.Time   `json:"end_date"`
	TaskDescription string       `gorm:"type:text" json:"task_description"`
	Status          HiringStatus `gorm:"size:16;index;not null;default:active" json:"status"`
	TotalCost       *float64     `json:"total_cost"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	Employee *AIEmployee `gorm:"foreignKey:AIEmployeeID" json:"ai_employee,omitempty"`
	User     *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Review   *Review     `gorm:"foreignKey:HiringRecordID" json:"review,omitempty"`
}

func (HiringRecord) TableName() string { return "hiring_records" }

type HiringFilter struct {
	UserID    string
	Offset    int
	Limit     int
	Status    HiringStatus
	HireType  HireType
	SortBy    string
	SortOrder string
}

type HiringStats struct {
	TotalHires  int64
	TotalCost   float64
	ActiveCount int64
}

type HiringRepository interface {
	Create(ctx context.Context, r *HiringRecord) error
	// FindOwned 按 id + user 查询，预加载员工、用户摘要和评价
	FindOwned(ctx context.Context, id uint, userID string) (*HiringRecord, error)
	FindCompleted(ctx context.Context, id uint, userID string, employeeID uint) (*HiringRecord, error)
	// Transition 条件更新：仅当当前状态仍为 from 时写入，返回是否命中
	Transition(ctx context.Context, id uint, userID string, from, to HiringStatus, fields map[string]any) (bool, error)
	List(ctx context.Context, f HiringFilter) ([]HiringRecord, int64, error)
	Stats(ctx context.Context, userID string) (HiringStats, error)
	Recent(ctx context.Context, userID string, limit int) ([]HiringRecord, error)
	PendingReview(ctx context.Context, userID string, limit int) ([]HiringRecord, error)
}
