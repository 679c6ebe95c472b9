package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"time"

	"stashbot/internal/database"
	"stashbot/internal/models"
	"stashbot/internal/request"
)

// memRepo is an in-memory ItemRepositoryInterface for handler tests
type memRepo struct {
	items  map[int64]*models.Item
	nextID int64
}

func newMemRepo(items ...*models.Item) *memRepo {
	repo := &memRepo{items: make(map[int64]*models.Item)}
	for _, item := range items {
		repo.items[item.ID] = item
		if item.ID > repo.nextID {
			repo.nextID = item.ID
		}
	}
	return repo
}

func (m *memRepo) Create(ctx context.Context, item *models.Item) error {
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = item
	return nil
}

func (m *memRepo) GetByOwnerID(ctx context.Context, owner string, id int64) (*models.Item, error) {
	item, ok := m.items[id]
	if !ok || item.Owner != owner {
		return nil, database.ErrNotFound
	}
	return item, nil
}

func (m *memRepo) ListByOwner(ctx context.Context, owner string, kind *models.Kind, status models.StatusFilter, page, pageSize int) ([]*models.Item, int, error) {
	all := m.ownerItems(owner)
	var filtered []*models.Item
	for _, item := range all {
		if kind != nil && item.Kind != *kind {
			continue
		}
		if item.Task != nil && !item.Task.Matches(status) {
			continue
		}
		filtered = append(filtered, item)
	}
	total := len(filtered)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

func (m *memRepo) ListAllByOwner(ctx context.Context, owner string) ([]*models.Item, error) {
	return m.ownerItems(owner), nil
}

func (m *memRepo) ActiveTasks(ctx context.Context, owner string) ([]*models.Item, error) {
	var tasks []*models.Item
	for _, item := range m.ownerItems(owner) {
		if item.Kind == models.KindTask && item.Task != nil && item.Task.IsActive() {
			tasks = append(tasks, item)
		}
	}
	return tasks, nil
}

func (m *memRepo) UpdateTask(ctx context.Context, owner string, id int64, mutate func(*models.Item) error) (*models.Item, error) {
	item, err := m.GetByOwnerID(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (m *memRepo) DeleteByIDs(ctx context.Context, owner string, kind models.Kind, ids []int64) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if item, ok := m.items[id]; ok && item.Owner == owner && item.Kind == kind {
			delete(m.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memRepo) DeleteAllOfKind(ctx context.Context, owner string, kind models.Kind) (int64, error) {
	var deleted int64
	for id, item := range m.items {
		if item.Owner == owner && item.Kind == kind {
			delete(m.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memRepo) ownerItems(owner string) []*models.Item {
	var items []*models.Item
	for _, item := range m.items {
		if item.Owner == owner {
			items = append(items, item)
		}
	}
	// newest first, matching the store's listing order
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items
}

var _ database.ItemRepositoryInterface = (*memRepo)(nil)

func pendingTask(id int64, owner, title string, deadline *time.Time) *models.Item {
	return &models.Item{
		ID:    id,
		Owner: owner,
		Kind:  models.KindTask,
		Title: title,
		Text:  title,
		Task: &models.TaskFields{
			Importance: 3,
			Urgency:    3,
			Deadline:   deadline,
			Status:     models.TaskStatusPending,
		},
	}
}

// doRequest runs req through handler with the owner on the context
func doRequest(handler http.Handler, req *http.Request, owner string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req = req.WithContext(request.WithOwner(req.Context(), owner))
	handler.ServeHTTP(rec, req)
	return rec
}
