package database

import (
	"context"

	"stashbot/internal/models"
)

// ItemRepositoryInterface defines the store contract the core components
// depend on. It exists so tests can substitute in-memory fakes.
type ItemRepositoryInterface interface {
	Create(ctx context.Context, item *models.Item) error
	GetByOwnerID(ctx context.Context, owner string, id int64) (*models.Item, error)
	ListByOwner(ctx context.Context, owner string, kind *models.Kind, status models.StatusFilter, page, pageSize int) ([]*models.Item, int, error)
	ListAllByOwner(ctx context.Context, owner string) ([]*models.Item, error)
	ActiveTasks(ctx context.Context, owner string) ([]*models.Item, error)
	UpdateTask(ctx context.Context, owner string, id int64, mutate func(*models.Item) error) (*models.Item, error)
	DeleteByIDs(ctx context.Context, owner string, kind models.Kind, ids []int64) (int64, error)
	DeleteAllOfKind(ctx context.Context, owner string, kind models.Kind) (int64, error)
}

var _ ItemRepositoryInterface = (*ItemRepository)(nil)
