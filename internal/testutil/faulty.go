package testutil

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/Anlan01819/AIteammate/internal/domain"
)

// ErrInjected 由 FaultyStore 注入的故障
var ErrInjected = errors.New("injected store failure")

// FaultyStore 包装真实 Store；开启后员工评分聚合写回一律失败，事务内同样生效
type FaultyStore struct {
	domain.Store
	failAggregate *atomic.Bool
}

func NewFaultyStore(s domain.Store) *FaultyStore {
	return &FaultyStore{Store: s, failAggregate: new(atomic.Bool)}
}

func (s *FaultyStore) FailAggregates(on bool) { s.failAggregate.Store(on) }

func (s *FaultyStore) Employees() domain.EmployeeRepository {
	return faultyEmployees{EmployeeRepository: s.Store.Employees(), fail: s.failAggregate}
}

func (s *FaultyStore) Tx(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.Store.Tx(ctx, func(tx domain.Store) error {
		return fn(&FaultyStore{Store: tx, failAggregate: s.failAggregate})
	})
}

type faultyEmployees struct {
	domain.EmployeeRepository
	fail *atomic.Bool
}

func (r faultyEmployees) SetRatingAggregate(ctx context.Context, id uint, rating float64, total int) error {
	if r.fail.Load() {
		return ErrInjected
	}
	return r.EmployeeRepository.SetRatingAggregate(ctx, id, rating, total)
}
