package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clavrr/clavr/internal/parser"
	"github.com/clavrr/clavr/internal/store"
	"github.com/clavrr/clavr/internal/webhook"
)

// runTask executes a task store action.
func (a *Assistant) runTask(ctx context.Context, userID string, act parser.TaskAction, ref time.Time) (*Result, error) {
	switch act.Op {
	case parser.TaskOpCreate:
		return a.createTask(ctx, userID, act)
	case parser.TaskOpList:
		return a.listTasks(ctx, userID, act)
	case parser.TaskOpComplete:
		return a.completeTask(ctx, userID, act, ref)
	case parser.TaskOpDue:
		return a.setTaskDue(ctx, userID, act)
	}
	return nil, fmt.Errorf("unsupported task operation %q", act.Op)
}

func (a *Assistant) createTask(ctx context.Context, userID string, act parser.TaskAction) (*Result, error) {
	task := &store.Task{UserID: userID, Title: act.Title}
	if !act.Due.IsZero() {
		due := act.Due
		task.Due = &due
	}
	if err := a.store.Tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	a.events.Publish(ctx, webhook.Event{
		Type:    webhook.EventTaskCreated,
		UserID:  userID,
		Payload: taskPayload(task),
	})

	msg := fmt.Sprintf("Added %q.", task.Title)
	if task.Due != nil {
		msg = fmt.Sprintf("Added %q, due %s.", task.Title, task.Due.Format("Mon Jan 2"))
	}
	return &Result{Message: msg, Data: task}, nil
}

func (a *Assistant) listTasks(ctx context.Context, userID string, act parser.TaskAction) (*Result, error) {
	pending := false
	filter := store.TaskFilter{Done: &pending}
	if !act.DueBefore.IsZero() {
		due := act.DueBefore
		filter.DueBefore = &due
	}

	tasks, err := a.store.Tasks.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return &Result{
		Message: fmt.Sprintf("You have %d open tasks.", len(tasks)),
		Data:    tasks,
	}, nil
}

func (a *Assistant) completeTask(ctx context.Context, userID string, act parser.TaskAction, ref time.Time) (*Result, error) {
	task, err := a.findTask(ctx, userID, act.TaskQuery)
	if err != nil {
		return nil, err
	}
	if err := a.store.Tasks.Complete(ctx, userID, task.ID, ref); err != nil {
		return nil, err
	}

	a.events.Publish(ctx, webhook.Event{
		Type:    webhook.EventTaskCompleted,
		UserID:  userID,
		Payload: taskPayload(task),
	})

	return &Result{
		Message: fmt.Sprintf("Marked %q as done.", task.Title),
		Data:    map[string]string{"task_id": task.ID, "title": task.Title},
	}, nil
}

func (a *Assistant) setTaskDue(ctx context.Context, userID string, act parser.TaskAction) (*Result, error) {
	task, err := a.findTask(ctx, userID, act.TaskQuery)
	if err != nil {
		return nil, err
	}

	due := act.Due
	task.Due = &due
	if err := a.store.Tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return &Result{
		Message: fmt.Sprintf("%q is now due %s.", task.Title, due.Format("Mon Jan 2")),
		Data:    task,
	}, nil
}

// findTask resolves a spoken task name to the most recent open task whose
// title contains the phrase, case-insensitively.
func (a *Assistant) findTask(ctx context.Context, userID, query string) (*store.Task, error) {
	pending := false
	tasks, err := a.store.Tasks.List(ctx, userID, store.TaskFilter{Done: &pending})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	for i := range tasks {
		if strings.Contains(strings.ToLower(tasks[i].Title), needle) {
			return &tasks[i], nil
		}
	}
	return nil, fmt.Errorf("no open task matches %q", query)
}

func taskPayload(task *store.Task) map[string]any {
	payload := map[string]any{
		"task_id": task.ID,
		"title":   task.Title,
	}
	if task.Due != nil {
		payload["due"] = task.Due.Format(time.RFC3339)
	}
	return payload
}
