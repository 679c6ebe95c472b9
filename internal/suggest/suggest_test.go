package suggest

import (
	"context"
	"testing"
	"time"

	"stashbot/internal/database"
	"stashbot/internal/models"
	"stashbot/internal/priority"
)

type stubRepo struct {
	tasks []*models.Item
	items []*models.Item
}

func (s *stubRepo) Create(ctx context.Context, item *models.Item) error { return nil }

func (s *stubRepo) GetByOwnerID(ctx context.Context, owner string, id int64) (*models.Item, error) {
	return nil, database.ErrNotFound
}

func (s *stubRepo) ListByOwner(ctx context.Context, owner string, kind *models.Kind, status models.StatusFilter, page, pageSize int) ([]*models.Item, int, error) {
	start := (page - 1) * pageSize
	if start >= len(s.items) {
		return nil, len(s.items), nil
	}
	end := start + pageSize
	if end > len(s.items) {
		end = len(s.items)
	}
	return s.items[start:end], len(s.items), nil
}

func (s *stubRepo) ListAllByOwner(ctx context.Context, owner string) ([]*models.Item, error) {
	return s.items, nil
}

func (s *stubRepo) ActiveTasks(ctx context.Context, owner string) ([]*models.Item, error) {
	return s.tasks, nil
}

func (s *stubRepo) UpdateTask(ctx context.Context, owner string, id int64, mutate func(*models.Item) error) (*models.Item, error) {
	return nil, database.ErrNotFound
}

func (s *stubRepo) DeleteByIDs(ctx context.Context, owner string, kind models.Kind, ids []int64) (int64, error) {
	return 0, nil
}

func (s *stubRepo) DeleteAllOfKind(ctx context.Context, owner string, kind models.Kind) (int64, error) {
	return 0, nil
}

var _ database.ItemRepositoryInterface = (*stubRepo)(nil)

var suggestNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func activeTask(id int64, importance, urgency int, deadline *time.Time) *models.Item {
	return &models.Item{
		ID:    id,
		Owner: "owner-1",
		Kind:  models.KindTask,
		Task: &models.TaskFields{
			Importance: importance,
			Urgency:    urgency,
			Deadline:   deadline,
			Priority:   priority.Score(importance, urgency, deadline, suggestNow),
			Status:     models.TaskStatusPending,
		},
	}
}

func newTestEngine(repo *stubRepo) *Engine {
	engine := NewEngine(repo)
	engine.now = func() time.Time { return suggestNow }
	return engine
}

func deadlineIn(d time.Duration) *time.Time {
	deadline := suggestNow.Add(d)
	return &deadline
}

func TestSuggestOrdering(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{tasks: []*models.Item{
		activeTask(1, 2, 2, nil),                     // low
		activeTask(2, 5, 5, deadlineIn(time.Hour)),   // highest: max scores plus boost
		activeTask(3, 5, 5, nil),                     // high, no deadline
		activeTask(4, 3, 3, deadlineIn(2*time.Hour)), // boosted midrange
	}}

	tasks, err := newTestEngine(repo).Suggest(context.Background(), "owner-1", 10)
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}

	expected := []int64{2, 3, 4, 1}
	if len(tasks) != len(expected) {
		t.Fatalf("got %d tasks, expected %d", len(tasks), len(expected))
	}
	for i, id := range expected {
		if tasks[i].ID != id {
			t.Errorf("position %d: got id %d, expected %d", i, tasks[i].ID, id)
		}
	}
}

func TestSuggestTieBreaks(t *testing.T) {
	t.Parallel()

	// Equal priority: nearer deadline wins, nil deadline sorts last,
	// then lower id.
	repo := &stubRepo{tasks: []*models.Item{
		activeTask(5, 3, 3, nil),
		activeTask(3, 3, 3, deadlineIn(48*time.Hour)),
		activeTask(4, 3, 3, deadlineIn(24*time.Hour)),
		activeTask(2, 3, 3, nil),
	}}

	tasks, err := newTestEngine(repo).Suggest(context.Background(), "owner-1", 10)
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}

	// ids 3 and 4 carry the deadline boost so they rank first
	expected := []int64{4, 3, 2, 5}
	for i, id := range expected {
		if tasks[i].ID != id {
			t.Errorf("position %d: got id %d, expected %d", i, tasks[i].ID, id)
		}
	}
}

func TestSuggestDeterministic(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{tasks: []*models.Item{
		activeTask(1, 3, 3, nil),
		activeTask(2, 3, 3, nil),
		activeTask(3, 3, 3, nil),
	}}
	engine := newTestEngine(repo)

	first, err := engine.Suggest(context.Background(), "owner-1", 10)
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := engine.Suggest(context.Background(), "owner-1", 10)
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}
		for i := range first {
			if again[i].ID != first[i].ID {
				t.Fatalf("run %d: order changed at position %d", run, i)
			}
		}
	}
}

func TestSuggestLimits(t *testing.T) {
	t.Parallel()

	var all []*models.Item
	for id := int64(1); id <= 30; id++ {
		all = append(all, activeTask(id, 3, 3, nil))
	}
	engine := newTestEngine(&stubRepo{tasks: all})

	tasks, err := engine.Suggest(context.Background(), "owner-1", 0)
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	if len(tasks) != DefaultLimit {
		t.Errorf("zero limit yielded %d tasks, expected default %d", len(tasks), DefaultLimit)
	}

	tasks, err = engine.Suggest(context.Background(), "owner-1", 1000)
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	if len(tasks) != MaxLimit {
		t.Errorf("oversized limit yielded %d tasks, expected cap %d", len(tasks), MaxLimit)
	}
}

func TestSuggestRescoresAtReadTime(t *testing.T) {
	t.Parallel()

	// The stored priority predates the deadline entering the boost
	// window; ranking must use the recomputed score.
	deadline := suggestNow.Add(24 * time.Hour)
	stale := activeTask(1, 3, 3, &deadline)
	stale.Task.Priority = 3.0 // stored before the window opened
	fresh := activeTask(2, 4, 4, nil)

	tasks, err := newTestEngine(&stubRepo{tasks: []*models.Item{fresh, stale}}).Suggest(context.Background(), "owner-1", 10)
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	if tasks[0].ID != 1 {
		t.Errorf("stale stored priority won over recomputed score: first id = %d", tasks[0].ID)
	}
}

func TestSuggestToday(t *testing.T) {
	t.Parallel()

	todayDeadline := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	tomorrowDeadline := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)

	dueToday := activeTask(1, 1, 1, &todayDeadline)         // low score but due today
	highNoDeadline := activeTask(2, 5, 5, nil)              // 5.0 >= threshold
	tomorrowLow := activeTask(3, 1, 1, &tomorrowDeadline)   // boosted but only 3.0
	farAndLow := activeTask(4, 2, 2, deadlineIn(30*24*time.Hour))

	tasks, err := newTestEngine(&stubRepo{tasks: []*models.Item{dueToday, highNoDeadline, tomorrowLow, farAndLow}}).SuggestToday(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("SuggestToday returned error: %v", err)
	}

	got := make(map[int64]bool)
	for _, task := range tasks {
		got[task.ID] = true
	}
	if !got[1] {
		t.Error("task due today missing from the daily view")
	}
	if !got[2] {
		t.Error("high-priority task without a deadline missing from the daily view")
	}
	if got[3] || got[4] {
		t.Errorf("daily view includes tasks that are neither due today nor high priority: %v", got)
	}
}

func TestListPagination(t *testing.T) {
	t.Parallel()

	var items []*models.Item
	for id := int64(1); id <= 25; id++ {
		items = append(items, &models.Item{ID: id, Owner: "owner-1", Kind: models.KindNote})
	}
	engine := newTestEngine(&stubRepo{items: items})

	page, err := engine.List(context.Background(), "owner-1", nil, models.StatusFilterAll, 3)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if page.Total != 25 || page.TotalPages != 3 {
		t.Errorf("total = %d pages = %d, expected 25/3", page.Total, page.TotalPages)
	}
	if len(page.Items) != 5 {
		t.Errorf("last page holds %d items, expected 5", len(page.Items))
	}
	if page.PageSize != PageSize {
		t.Errorf("page size = %d, expected fixed %d", page.PageSize, PageSize)
	}
}

func TestListEmpty(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&stubRepo{})
	page, err := engine.List(context.Background(), "owner-1", nil, models.StatusFilterAll, 1)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if page.TotalPages != 1 {
		t.Errorf("empty store reports %d pages, expected 1", page.TotalPages)
	}
}
