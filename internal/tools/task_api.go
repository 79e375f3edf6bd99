package tools

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rookhq/rook/pkg/models"
)

// TaskService is the opaque task-creation boundary. The core only needs
// an acknowledgement per record.
type TaskService interface {
	CreateTask(req models.TaskRequest) models.TaskAck
	Reassign(taskID, assignee string) models.TaskAck
}

// DeriveTasks converts plan actions into task-service requests. This is a
// pure transformation; no model call happens here. Budget actions are
// handled by ApplyBudgetActions and email actions by the drafting stage,
// so neither derives a task.
func DeriveTasks(plan models.Plan) []models.TaskRequest {
	var reqs []models.TaskRequest
	for _, a := range plan.Actions {
		switch a.Type {
		case models.ActionCreateTask, models.ActionRunAnalysis:
			desc := a.Task
			if desc == "" {
				desc = a.Reason
			}
			if desc == "" {
				desc = "Auto-created task"
			}
			reqs = append(reqs, models.TaskRequest{
				TaskDescription: desc,
				Assignee:        a.Assignee,
				SourceAction:    a,
			})
		case models.ActionReassignTask:
			reqs = append(reqs, models.TaskRequest{
				TaskDescription: a.Reason,
				Assignee:        firstNonEmpty(a.DetailString("to"), a.Assignee),
				TaskID:          a.TaskID,
				SourceAction:    a,
			})
		}
	}
	return reqs
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// InMemoryTaskAPI is the simulated task service.
type InMemoryTaskAPI struct {
	mu    sync.Mutex
	tasks map[string]models.TaskRequest
}

// NewInMemoryTaskAPI creates an empty simulated task service.
func NewInMemoryTaskAPI() *InMemoryTaskAPI {
	return &InMemoryTaskAPI{tasks: make(map[string]models.TaskRequest)}
}

// CreateTask stores the task and acknowledges with a generated ID.
func (t *InMemoryTaskAPI) CreateTask(req models.TaskRequest) models.TaskAck {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := req.TaskID
	if id == "" {
		id = uuid.New().String()[:8]
	}
	t.tasks[id] = req
	return models.TaskAck{Accepted: true, TaskID: id}
}

// Reassign moves an existing task to a new assignee. A reassignment of an
// unknown task falls back to creating a fresh task for the new assignee,
// so a stale plan reference never drops work.
func (t *InMemoryTaskAPI) Reassign(taskID, assignee string) models.TaskAck {
	t.mu.Lock()
	defer t.mu.Unlock()

	if req, ok := t.tasks[taskID]; ok {
		req.Assignee = assignee
		t.tasks[taskID] = req
		return models.TaskAck{Accepted: true, TaskID: taskID}
	}

	id := uuid.New().String()[:8]
	t.tasks[id] = models.TaskRequest{TaskDescription: "Reassigned task", Assignee: assignee, TaskID: id}
	return models.TaskAck{Accepted: true, TaskID: id, Reason: "original task not found, created new"}
}

// Count returns the number of stored tasks.
func (t *InMemoryTaskAPI) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}

// Compile-time verification.
var _ TaskService = (*InMemoryTaskAPI)(nil)
