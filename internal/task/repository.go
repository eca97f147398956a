package task

import "context"

type Repository interface {
	// List returns tasks newest first. An empty email matches every task.
	List(ctx context.Context, email string) ([]*Task, error)
	// Get returns (nil, nil) when no task has the id.
	Get(ctx context.Context, id string) (*Task, error)
	// Insert assigns t.ID.
	Insert(ctx context.Context, t *Task) (*InsertResult, error)
	UpdateStatus(ctx context.Context, id, status string) (*UpdateResult, error)
	Replace(ctx context.Context, id string, f Fields) (*UpdateResult, error)
	Delete(ctx context.Context, id string) (*DeleteResult, error)
	Ping(ctx context.Context) error
}
