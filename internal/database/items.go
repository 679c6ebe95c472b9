package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"stashbot/internal/models"
)

// ErrNotFound is returned for unknown ids and cross-owner access.
// The id space is not visible across owners, so both cases look the same.
var ErrNotFound = errors.New("item not found")

const itemColumns = `id, owner, kind, title, text, tags, degraded,
	importance, urgency, deadline, priority, status, analysis_reason,
	estimated_minutes, completed_at, created_at`

// ItemRepository handles item database operations
type ItemRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db, logger: zap.NewNop()}
}

// SetLogger sets the logger for repository operations
func (r *ItemRepository) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Create persists a new item and assigns its id from the store sequence
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	tagsJSON, err := json.Marshal(tagsOrEmpty(item.Tags))
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	var (
		importance, urgency, estMinutes sql.NullInt64
		deadline, completedAt           sql.NullTime
		priority                        sql.NullFloat64
		status, reason                  sql.NullString
	)
	if item.Task != nil {
		importance = sql.NullInt64{Int64: int64(item.Task.Importance), Valid: true}
		urgency = sql.NullInt64{Int64: int64(item.Task.Urgency), Valid: true}
		priority = sql.NullFloat64{Float64: item.Task.Priority, Valid: true}
		status = sql.NullString{String: string(item.Task.Status), Valid: true}
		reason = sql.NullString{String: item.Task.AnalysisReason, Valid: true}
		if item.Task.Deadline != nil {
			deadline = sql.NullTime{Time: *item.Task.Deadline, Valid: true}
		}
		if item.Task.EstimatedMinutes != nil {
			estMinutes = sql.NullInt64{Int64: int64(*item.Task.EstimatedMinutes), Valid: true}
		}
		if item.Task.CompletedAt != nil {
			completedAt = sql.NullTime{Time: *item.Task.CompletedAt, Valid: true}
		}
	}

	query := r.db.rebind(`
		INSERT INTO items (owner, kind, title, text, tags, degraded,
			importance, urgency, deadline, priority, status, analysis_reason,
			estimated_minutes, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`)

	err = r.db.QueryRowContext(ctx, query,
		item.Owner,
		item.Kind,
		item.Title,
		item.Text,
		string(tagsJSON),
		item.Degraded,
		importance,
		urgency,
		deadline,
		priority,
		status,
		reason,
		estMinutes,
		completedAt,
		item.CreatedAt,
	).Scan(&item.ID)

	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetByOwnerID retrieves an item by (owner, id). Another owner's id
// yields ErrNotFound, never a permission error.
func (r *ItemRepository) GetByOwnerID(ctx context.Context, owner string, id int64) (*models.Item, error) {
	query := r.db.rebind(`SELECT ` + itemColumns + ` FROM items WHERE owner = $1 AND id = $2`)
	return r.scanOne(r.db.QueryRowContext(ctx, query, owner, id))
}

// ListByOwner retrieves items for an owner, newest first, optionally
// filtered by kind and task status, paginated with stable boundaries.
func (r *ItemRepository) ListByOwner(ctx context.Context, owner string, kind *models.Kind, status models.StatusFilter, page, pageSize int) ([]*models.Item, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	where := "owner = $1"
	args := []any{owner}
	argIndex := 2

	if kind != nil {
		where += fmt.Sprintf(" AND kind = $%d", argIndex)
		args = append(args, string(*kind))
		argIndex++
	}

	switch status {
	case models.StatusFilterActive:
		where += fmt.Sprintf(" AND (status IS NULL OR status IN ($%d, $%d))", argIndex, argIndex+1)
		args = append(args, string(models.TaskStatusPending), string(models.TaskStatusAccepted))
		argIndex += 2
	case models.StatusFilterDone:
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, string(models.TaskStatusDone))
		argIndex++
	}

	var total int
	countQuery := r.db.rebind("SELECT COUNT(*) FROM items WHERE " + where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	query := r.db.rebind(fmt.Sprintf(
		"SELECT "+itemColumns+" FROM items WHERE "+where+
			" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		argIndex, argIndex+1,
	))
	args = append(args, pageSize, (page-1)*pageSize)

	items, err := r.queryItems(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListAllByOwner retrieves every item for an owner, newest first.
// Search scans this linearly; no inverted index at this scale.
func (r *ItemRepository) ListAllByOwner(ctx context.Context, owner string) ([]*models.Item, error) {
	query := r.db.rebind(`SELECT ` + itemColumns + ` FROM items WHERE owner = $1 ORDER BY created_at DESC, id DESC`)
	return r.queryItems(ctx, query, owner)
}

// ActiveTasks retrieves pending and accepted tasks for ranking
func (r *ItemRepository) ActiveTasks(ctx context.Context, owner string) ([]*models.Item, error) {
	query := r.db.rebind(`
		SELECT ` + itemColumns + ` FROM items
		WHERE owner = $1 AND kind = $2 AND status IN ($3, $4)
		ORDER BY priority DESC, id ASC
	`)
	return r.queryItems(ctx, query, owner,
		string(models.KindTask),
		string(models.TaskStatusPending),
		string(models.TaskStatusAccepted),
	)
}

// UpdateTask applies mutate to a task under a per-id critical section:
// the row is read inside a transaction (with a row lock on Postgres),
// mutated, and written back, so concurrent lifecycle transitions on the
// same id cannot interleave.
func (r *ItemRepository) UpdateTask(ctx context.Context, owner string, id int64, mutate func(*models.Item) error) (*models.Item, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			_ = rbErr
		}
	}()

	query := r.db.rebind(`SELECT `+itemColumns+` FROM items WHERE owner = $1 AND id = $2`) + r.db.lockClause()
	item, err := r.scanOne(tx.QueryRowContext(ctx, query, owner, id))
	if err != nil {
		return nil, err
	}

	if err := mutate(item); err != nil {
		return nil, err
	}

	var (
		importance, urgency sql.NullInt64
		deadline, completed sql.NullTime
		priority            sql.NullFloat64
		status              sql.NullString
	)
	if item.Task != nil {
		importance = sql.NullInt64{Int64: int64(item.Task.Importance), Valid: true}
		urgency = sql.NullInt64{Int64: int64(item.Task.Urgency), Valid: true}
		priority = sql.NullFloat64{Float64: item.Task.Priority, Valid: true}
		status = sql.NullString{String: string(item.Task.Status), Valid: true}
		if item.Task.Deadline != nil {
			deadline = sql.NullTime{Time: *item.Task.Deadline, Valid: true}
		}
		if item.Task.CompletedAt != nil {
			completed = sql.NullTime{Time: *item.Task.CompletedAt, Valid: true}
		}
	}

	updateQuery := r.db.rebind(`
		UPDATE items
		SET importance = $3, urgency = $4, deadline = $5, priority = $6,
			status = $7, completed_at = $8
		WHERE owner = $1 AND id = $2
	`)
	if _, err := tx.ExecContext(ctx, updateQuery, owner, id,
		importance, urgency, deadline, priority, status, completed); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	if item.Task != nil {
		r.logger.Debug("task_updated",
			zap.Int64("item_id", item.ID),
			zap.String("status", string(item.Task.Status)),
			zap.Float64("priority", item.Task.Priority),
		)
	}

	return item, nil
}

// DeleteByIDs deletes the given items of one kind for an owner and
// returns the number removed. Unknown ids are skipped, not errors, so
// one bad id never blocks the rest of the request.
func (r *ItemRepository) DeleteByIDs(ctx context.Context, owner string, kind models.Kind, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := []any{owner, string(kind)}
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}

	query := r.db.rebind(fmt.Sprintf(
		"DELETE FROM items WHERE owner = $1 AND kind = $2 AND id IN (%s)",
		strings.Join(placeholders, ", "),
	))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete items: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}

// DeleteAllOfKind deletes every item of a kind for an owner and returns
// the count. Freed ids are never reassigned.
func (r *ItemRepository) DeleteAllOfKind(ctx context.Context, owner string, kind models.Kind) (int64, error) {
	query := r.db.rebind(`DELETE FROM items WHERE owner = $1 AND kind = $2`)

	result, err := r.db.ExecContext(ctx, query, owner, string(kind))
	if err != nil {
		return 0, fmt.Errorf("failed to delete items: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ItemRepository) scanOne(row rowScanner) (*models.Item, error) {
	item := &models.Item{}
	var (
		tagsJSON                        string
		importance, urgency, estMinutes sql.NullInt64
		deadline, completedAt           sql.NullTime
		priority                        sql.NullFloat64
		status, reason                  sql.NullString
	)

	err := row.Scan(
		&item.ID,
		&item.Owner,
		&item.Kind,
		&item.Title,
		&item.Text,
		&tagsJSON,
		&item.Degraded,
		&importance,
		&urgency,
		&deadline,
		&priority,
		&status,
		&reason,
		&estMinutes,
		&completedAt,
		&item.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	if item.Kind == models.KindTask {
		task := &models.TaskFields{
			Importance: int(importance.Int64),
			Urgency:    int(urgency.Int64),
			Priority:   priority.Float64,
			Status:     models.TaskStatus(status.String),
		}
		if deadline.Valid {
			d := deadline.Time
			task.Deadline = &d
		}
		if reason.Valid {
			task.AnalysisReason = reason.String
		}
		if estMinutes.Valid {
			m := int(estMinutes.Int64)
			task.EstimatedMinutes = &m
		}
		if completedAt.Valid {
			c := completedAt.Time
			task.CompletedAt = &c
		}
		item.Task = task
	}

	return item, nil
}

func (r *ItemRepository) queryItems(ctx context.Context, query string, args ...any) ([]*models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
