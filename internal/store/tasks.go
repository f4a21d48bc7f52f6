package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/clavrr/clavr/internal/logging"
)

// TaskRepository provides persistence for tasks.
type TaskRepository struct {
	db     *gorm.DB
	logger logging.Logger
}

// TaskFilter narrows List results. Zero values match everything.
type TaskFilter struct {
	// Done filters by completion state when set.
	Done *bool
	// DueBefore keeps tasks due strictly before the given time.
	DueBefore *time.Time
	// Limit caps the result set; zero means no cap.
	Limit int
}

// Create persists a new task for a user.
func (r *TaskRepository) Create(ctx context.Context, task *Task) error {
	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("task title is required")
	}
	if task.UserID == "" {
		return fmt.Errorf("task user id is required")
	}

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	r.logger.Info("task created", "task_id", task.ID, "user_id", task.UserID)
	return nil
}

// Get fetches a task by ID, scoped to the owning user.
func (r *TaskRepository) Get(ctx context.Context, userID, id string) (*Task, error) {
	var task Task
	err := r.db.WithContext(ctx).First(&task, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// List returns a user's tasks, pending first, then by due date.
func (r *TaskRepository) List(ctx context.Context, userID string, filter TaskFilter) ([]Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Done != nil {
		q = q.Where("done = ?", *filter.Done)
	}
	if filter.DueBefore != nil {
		q = q.Where("due IS NOT NULL AND due < ?", *filter.DueBefore)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var tasks []Task
	if err := q.Order("done asc, due asc, created_at asc").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Update modifies a task's title, notes, and due date.
func (r *TaskRepository) Update(ctx context.Context, task *Task) error {
	res := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND user_id = ?", task.ID, task.UserID).
		Updates(map[string]any{
			"title": task.Title,
			"notes": task.Notes,
			"due":   task.Due,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Complete marks a task done and records the completion time. Completing an
// already-done task is a no-op.
func (r *TaskRepository) Complete(ctx context.Context, userID, id string, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND user_id = ? AND done = ?", id, userID, false).
		Updates(map[string]any{
			"done":         true,
			"completed_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to complete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish missing from already done.
		if _, err := r.Get(ctx, userID, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a task.
func (r *TaskRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Delete(&Task{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
