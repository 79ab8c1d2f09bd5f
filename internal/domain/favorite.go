package domain

import (
	"context"
	"time"
)

type Favorite struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"size:36;not null;uniqueIndex:idx_favorites_user_employee" json:"user_id"`
	AIEmployeeID uint      `gorm:"not null;uniqueIndex:idx_favorites_user_employee" json:"ai_employee_id"`
	CreatedAt    time.Time `json:"created_at"`

	Employee *AIEmployee `gorm:"foreignKey:AIEmployeeID" json:"ai_employee,omitempty"`
}

func (Favorite) TableName() string { return "favorites" }

type FavoriteRepository interface {
	Create(ctx context.Context, f *Favorite) error
	Exists(ctx context.Context, userID string, employeeID uint) (bool, error)
	Delete(ctx context.Context, userID string, employeeID uint) (bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Favorite, error)
}
