// Package lifecycle applies state transitions to stored tasks.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stashbot/internal/database"
	"stashbot/internal/events"
	"stashbot/internal/models"
	"stashbot/internal/priority"
)

// ErrInvalidTransition indicates an illegal lifecycle move. It is
// surfaced to the caller and leaves the task unchanged.
var ErrInvalidTransition = errors.New("invalid transition")

// DefaultSnooze is how far snooze pushes a deadline when no duration is given
const DefaultSnooze = 24 * time.Hour

// Manager mutates task state through the store's per-id critical
// section, recomputing priority whenever its inputs change.
type Manager struct {
	repo      database.ItemRepositoryInterface
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewManager creates a task lifecycle manager
func NewManager(repo database.ItemRepositoryInterface, publisher events.Publisher, logger *zap.Logger) *Manager {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Manager{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Accept moves a pending task to accepted. Accepting an accepted task
// is a no-op success; accepting a done task fails.
func (m *Manager) Accept(ctx context.Context, owner string, id int64) (*models.Item, error) {
	return m.repo.UpdateTask(ctx, owner, id, func(item *models.Item) error {
		if item.Task == nil {
			return fmt.Errorf("%w: item %d is not a task", ErrInvalidTransition, item.ID)
		}
		switch item.Task.Status {
		case models.TaskStatusPending:
			item.Task.Status = models.TaskStatusAccepted
		case models.TaskStatusAccepted:
			// idempotent
		case models.TaskStatusDone:
			return fmt.Errorf("%w: cannot accept a done task", ErrInvalidTransition)
		}
		return nil
	})
}

// Snooze shifts a task's deadline forward by the given duration
// (DefaultSnooze when zero or negative), sets one relative to now when
// the task has none, and re-scores. Status is untouched.
func (m *Manager) Snooze(ctx context.Context, owner string, id int64, by time.Duration) (*models.Item, error) {
	if by <= 0 {
		by = DefaultSnooze
	}
	now := m.now()
	return m.repo.UpdateTask(ctx, owner, id, func(item *models.Item) error {
		if item.Task == nil {
			return fmt.Errorf("%w: item %d is not a task", ErrInvalidTransition, item.ID)
		}
		if item.Task.Status == models.TaskStatusDone {
			return fmt.Errorf("%w: cannot snooze a done task", ErrInvalidTransition)
		}
		var deadline time.Time
		if item.Task.Deadline != nil {
			deadline = item.Task.Deadline.Add(by)
		} else {
			deadline = now.Add(by)
		}
		item.Task.Deadline = &deadline
		item.Task.Priority = priority.Score(item.Task.Importance, item.Task.Urgency, item.Task.Deadline, now)
		return nil
	})
}

// Complete moves a task to done from any state; completing a done task
// is a no-op success. Completed tasks stay queryable under the done
// filter.
func (m *Manager) Complete(ctx context.Context, owner string, id int64) (*models.Item, error) {
	now := m.now()
	item, err := m.repo.UpdateTask(ctx, owner, id, func(item *models.Item) error {
		if item.Task == nil {
			return fmt.Errorf("%w: item %d is not a task", ErrInvalidTransition, item.ID)
		}
		if item.Task.Status == models.TaskStatusDone {
			return nil
		}
		item.Task.Status = models.TaskStatusDone
		completedAt := now
		item.Task.CompletedAt = &completedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := m.publisher.Publish(ctx, events.NewEvent(events.EventTaskCompleted, owner, item.ID, item.Kind)); err != nil {
		m.logger.Warn("event_publish_failed",
			zap.String("event_type", string(events.EventTaskCompleted)),
			zap.Error(err),
		)
	}

	return item, nil
}
