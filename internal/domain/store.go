package domain

import "context"

// Store 持久化入口。Tx 内回调拿到的 Store 共享同一事务。
type Store interface {
	Users() UserRepository
	Employees() EmployeeRepository
	Hirings() HiringRepository
	Reviews() ReviewRepository
	Favorites() FavoriteRepository

	Tx(ctx context.Context, fn func(tx Store) error) error
}
