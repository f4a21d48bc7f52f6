package parser

import (
	"fmt"
	"time"
)

// TaskOp enumerates the task store operations the assistant performs.
type TaskOp string

const (
	TaskOpCreate   TaskOp = "create"
	TaskOpList     TaskOp = "list"
	TaskOpComplete TaskOp = "complete"
	TaskOpDue      TaskOp = "due"
)

// TaskAction is an executable task store request.
type TaskAction struct {
	Op TaskOp

	// Title names a task to create; TaskQuery matches an existing task for
	// complete and due-date changes.
	Title     string
	TaskQuery string

	// Due is the resolved due date; zero means none.
	Due time.Time

	// DueBefore bounds list results; zero means no bound.
	DueBefore time.Time
}

// Domain implements Action.
func (TaskAction) Domain() string { return "task" }

// buildTaskAction maps a task intent and its slots to a TaskAction.
func buildTaskAction(c Classification, ref time.Time) (Action, error) {
	date, err := resolveDateSlot(c, SlotDate, ref)
	if err != nil {
		return nil, err
	}

	switch c.Intent {
	case IntentTaskCreate:
		if c.Slot(SlotTitle) == "" {
			return nil, fmt.Errorf("task creation requires a title")
		}
		return TaskAction{Op: TaskOpCreate, Title: c.Slot(SlotTitle), Due: date}, nil

	case IntentTaskList:
		action := TaskAction{Op: TaskOpList}
		if !date.IsZero() {
			// "what's due friday" bounds the list to end of that day.
			_, end := DayRange(date)
			action.DueBefore = end
		}
		return action, nil

	case IntentTaskComplete:
		if c.Slot(SlotTask) == "" {
			return nil, fmt.Errorf("completion requires a task")
		}
		return TaskAction{Op: TaskOpComplete, TaskQuery: c.Slot(SlotTask)}, nil

	case IntentTaskDue:
		if c.Slot(SlotTask) == "" {
			return nil, fmt.Errorf("due-date change requires a task")
		}
		if date.IsZero() {
			return nil, fmt.Errorf("due-date change requires a date")
		}
		return TaskAction{Op: TaskOpDue, TaskQuery: c.Slot(SlotTask), Due: date}, nil
	}

	return nil, fmt.Errorf("no task action for intent %q", c.Intent)
}
