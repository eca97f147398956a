package repositoryimpl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskmanagement/internal/task"
	"github.com/kazz187/taskmanagement/pkg/cerr"
	"github.com/kazz187/taskmanagement/pkg/storage"
)

const tasksPrefix = "tasks"

// YAMLRepository stores each task as tasks/<ulid>.yaml on a storage.Storage.
// ULIDs sort by creation time, which gives the newest-first listing.
type YAMLRepository struct {
	storage storage.Storage
	// mu serializes read-modify-write cycles and deletes so a stale copy
	// is never written back over a newer one or a deleted file.
	mu sync.Mutex
}

var _ task.Repository = (*YAMLRepository)(nil)

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func taskPath(id string) string {
	return fmt.Sprintf("%s/%s.yaml", tasksPrefix, id)
}

func parseID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return cerr.NewError(cerr.InvalidArgument, "invalid task id", err)
	}
	return nil
}

func (r *YAMLRepository) List(ctx context.Context, email string) ([]*task.Task, error) {
	paths, err := r.storage.List(ctx, tasksPrefix)
	if err != nil {
		return nil, cerr.WrapStorageListError("tasks", err)
	}
	slices.Sort(paths)
	slices.Reverse(paths)

	tasks := make([]*task.Task, 0, len(paths))
	for _, p := range paths {
		if !strings.HasSuffix(p, ".yaml") {
			continue
		}
		t, err := r.read(ctx, p)
		if err != nil {
			// Deleted between List and Read, or unreadable: skip it rather than
			// failing the whole listing.
			slog.WarnContext(ctx, "skipping task file", "path", p, "error", err)
			continue
		}
		if email != "" && t.Email != email {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}
	t, err := r.read(ctx, taskPath(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *YAMLRepository) Insert(ctx context.Context, t *task.Task) (*task.InsertResult, error) {
	t.ID = ulid.Make().String()
	if err := r.write(ctx, t); err != nil {
		return nil, err
	}
	return &task.InsertResult{Acknowledged: true, InsertedID: t.ID}, nil
}

func (r *YAMLRepository) UpdateStatus(ctx context.Context, id, status string) (*task.UpdateResult, error) {
	return r.update(ctx, id, func(t *task.Task) bool {
		if t.Status == status {
			return false
		}
		t.Status = status
		return true
	})
}

func (r *YAMLRepository) Replace(ctx context.Context, id string, f task.Fields) (*task.UpdateResult, error) {
	return r.update(ctx, id, func(t *task.Task) bool {
		if t.Fields == f {
			return false
		}
		t.Fields = f
		return true
	})
}

// update applies mutate to the stored task and reports counts the way a
// document database does: an unchanged document is matched but not modified.
func (r *YAMLRepository) update(ctx context.Context, id string, mutate func(*task.Task) bool) (*task.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &task.UpdateResult{Acknowledged: true}
	if t == nil {
		return res, nil
	}
	res.MatchedCount = 1
	if !mutate(t) {
		return res, nil
	}
	if err := r.write(ctx, t); err != nil {
		return nil, err
	}
	res.ModifiedCount = 1
	return res, nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) (*task.DeleteResult, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &task.DeleteResult{Acknowledged: true}
	if err := r.storage.Delete(ctx, taskPath(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return res, nil
		}
		return nil, cerr.WrapStorageDeleteError("task", err)
	}
	res.DeletedCount = 1
	return res, nil
}

func (r *YAMLRepository) Ping(ctx context.Context) error {
	if _, err := r.storage.Exists(ctx, tasksPrefix); err != nil {
		return fmt.Errorf("storage unavailable: %w", err)
	}
	return nil
}

func (r *YAMLRepository) read(ctx context.Context, p string) (*task.Task, error) {
	data, err := r.storage.Read(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, cerr.WrapStorageReadError("task", err)
	}
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal %s: %w", p, err))
	}
	if t.ID == "" {
		t.ID = strings.TrimSuffix(path.Base(p), ".yaml")
	}
	return &t, nil
}

func (r *YAMLRepository) write(ctx context.Context, t *task.Task) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.storage.Write(ctx, taskPath(t.ID), data); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}
