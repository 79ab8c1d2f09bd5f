package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Anlan01819/AIteammate/internal/domain"
)

type FavoriteInput struct {
	AIEmployeeID uint `json:"ai_employee_id"`
}

type FavoriteService struct {
	Deps
}

func NewFavoriteService(d Deps) *FavoriteService {
	d.normalize()
	return &FavoriteService{Deps: d}
}

func (s *FavoriteService) List(ctx context.Context, uid string) ([]domain.Favorite, error) {
	list, err := s.Store.Favorites().ListByUser(ctx, uid, 0)
	return nonNil(list), err
}

func (s *FavoriteService) Add(ctx context.Context, uid string, in FavoriteInput) (*domain.Favorite, error) {
	if in.AIEmployeeID == 0 {
		return nil, domain.Invalid("ai_employee_id", "must be a positive integer")
	}
	e, err := s.Store.Employees().FindByID(ctx, in.AIEmployeeID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: ai employee", domain.ErrNotFound)
	}
	exists, err := s.Store.Favorites().Exists(ctx, uid, in.AIEmployeeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.Invalid("ai_employee_id", "already in favorites")
	}
	f := &domain.Favorite{UserID: uid, AIEmployeeID: in.AIEmployeeID}
	if err := s.Store.Favorites().Create(ctx, f); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Invalid("ai_employee_id", "already in favorites")
		}
		return nil, err
	}
	f.Employee = e
	return f, nil
}

func (s *FavoriteService) Remove(ctx context.Context, uid string, employeeID uint) error {
	ok, err := s.Store.Favorites().Delete(ctx, uid, employeeID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: favorite", domain.ErrNotFound)
	}
	return nil
}
