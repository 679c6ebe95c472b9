// Package suggest ranks active tasks and paginates item listings.
package suggest

import (
	"context"
	"sort"
	"time"

	"stashbot/internal/database"
	"stashbot/internal/models"
	"stashbot/internal/priority"
)

const (
	// DefaultLimit is the suggestion count when the caller gives none
	DefaultLimit = 5
	// MaxLimit caps one suggestion response
	MaxLimit = 20
	// PageSize is the fixed page size for item listings
	PageSize = 10
)

// Page is one page of an item listing
type Page struct {
	Items      []*models.Item `json:"items"`
	Number     int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// Engine ranks and lists items from the store. Deadline-proximity
// scoring is recomputed lazily with the caller's "now" — there is no
// background re-scoring job to go stale.
type Engine struct {
	repo database.ItemRepositoryInterface
	now  func() time.Time
}

// NewEngine creates a suggestion engine
func NewEngine(repo database.ItemRepositoryInterface) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// Suggest returns the top-limit active tasks ordered by effective
// priority descending, ties broken by nearer deadline, then by lower id
// so the order is deterministic.
func (e *Engine) Suggest(ctx context.Context, owner string, limit int) ([]*models.Item, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	tasks, err := e.repo.ActiveTasks(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := e.now()
	rankTasks(tasks, now)

	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// SuggestToday returns active tasks that are due today or whose
// effective priority clears the high-priority threshold. The two
// conditions are an explicit OR of independent predicates.
func (e *Engine) SuggestToday(ctx context.Context, owner string) ([]*models.Item, error) {
	tasks, err := e.repo.ActiveTasks(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var today []*models.Item
	for _, task := range tasks {
		if priority.DueToday(task.Task.Deadline, now) || effectivePriority(task, now) >= priority.HighPriorityThreshold {
			today = append(today, task)
		}
	}

	rankTasks(today, now)
	return today, nil
}

// List returns one fixed-size page of items, newest first. Page
// boundaries are stable across calls while no items are mutated.
func (e *Engine) List(ctx context.Context, owner string, kind *models.Kind, status models.StatusFilter, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	items, total, err := e.repo.ListByOwner(ctx, owner, kind, status, page, PageSize)
	if err != nil {
		return nil, err
	}

	totalPages := (total + PageSize - 1) / PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	return &Page{
		Items:      items,
		Number:     page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// rankTasks sorts by effective priority desc, nearer deadline (nil
// last), then lower id.
func rankTasks(tasks []*models.Item, now time.Time) {
	sort.SliceStable(tasks, func(i, j int) bool {
		pi := effectivePriority(tasks[i], now)
		pj := effectivePriority(tasks[j], now)
		if pi != pj {
			return pi > pj
		}
		di, dj := tasks[i].Task.Deadline, tasks[j].Task.Deadline
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// effectivePriority recomputes the score with the caller's now, so a
// deadline that entered the boost window since the last write still
// ranks correctly.
func effectivePriority(item *models.Item, now time.Time) float64 {
	return priority.Score(item.Task.Importance, item.Task.Urgency, item.Task.Deadline, now)
}
