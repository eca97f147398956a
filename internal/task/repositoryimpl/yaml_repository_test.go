package repositoryimpl

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kazz187/taskmanagement/internal/task"
	"github.com/kazz187/taskmanagement/pkg/cerr"
	"github.com/kazz187/taskmanagement/pkg/storage"
)

func newTestYAMLRepository(t *testing.T) (*YAMLRepository, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("Failed to create local storage: %v", err)
	}
	return NewYAMLRepository(store), dir
}

func TestYAMLRepository(t *testing.T) {
	ctx := context.Background()
	repo, dir := newTestYAMLRepository(t)

	// Insert
	tk := &task.Task{
		Fields: task.Fields{
			Name:     "A",
			Email:    "a@x.com",
			Title:    "Test Task",
			DateForm: "2024-01-01",
			DateToo:  "2024-01-31",
			Priority: "high",
		},
		Status: task.DefaultStatus,
	}
	ins, err := repo.Insert(ctx, tk)
	if err != nil {
		t.Fatalf("Failed to insert task: %v", err)
	}
	if !ins.Acknowledged || ins.InsertedID == "" || ins.InsertedID != tk.ID {
		t.Fatalf("Unexpected insert result: %+v (task id %q)", ins, tk.ID)
	}
	if _, err := os.Stat(filepath.Join(dir, "tasks", tk.ID+".yaml")); err != nil {
		t.Fatalf("Expected task file on disk: %v", err)
	}

	// Get
	got, err := repo.Get(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got == nil {
		t.Fatal("Expected task, got nil")
	}
	if got.ID != tk.ID || got.Fields != tk.Fields || got.Status != task.DefaultStatus {
		t.Errorf("Expected %+v, got %+v", tk, got)
	}

	// UpdateStatus
	upd, err := repo.UpdateStatus(ctx, tk.ID, "in-progress")
	if err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}
	if upd.MatchedCount != 1 || upd.ModifiedCount != 1 {
		t.Errorf("Expected 1/1, got %d/%d", upd.MatchedCount, upd.ModifiedCount)
	}
	upd, err = repo.UpdateStatus(ctx, tk.ID, "in-progress")
	if err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}
	if upd.MatchedCount != 1 || upd.ModifiedCount != 0 {
		t.Errorf("Expected unchanged status to match without modifying, got %d/%d", upd.MatchedCount, upd.ModifiedCount)
	}

	// Replace keeps status
	newFields := task.Fields{Name: "B", Title: "Renamed", Priority: "low"}
	upd, err = repo.Replace(ctx, tk.ID, newFields)
	if err != nil {
		t.Fatalf("Failed to replace task: %v", err)
	}
	if upd.ModifiedCount != 1 || upd.UpsertedID != nil {
		t.Errorf("Unexpected replace result: %+v", upd)
	}
	got, err = repo.Get(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Failed to get replaced task: %v", err)
	}
	if got.Fields != newFields {
		t.Errorf("Expected fields %+v, got %+v", newFields, got.Fields)
	}
	if got.Status != "in-progress" {
		t.Errorf("Expected status in-progress, got %s", got.Status)
	}

	// Delete
	del, err := repo.Delete(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}
	if del.DeletedCount != 1 {
		t.Errorf("Expected deletedCount 1, got %d", del.DeletedCount)
	}
	got, err = repo.Get(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil after delete, got %+v", got)
	}
	del, err = repo.Delete(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}
	if del.DeletedCount != 0 {
		t.Errorf("Expected deletedCount 0, got %d", del.DeletedCount)
	}
}

func TestYAMLRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo, dir := newTestYAMLRepository(t)

	tasks, err := repo.List(ctx, "")
	if err != nil {
		t.Fatalf("Failed to list empty repository: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("Expected no tasks, got %d", len(tasks))
	}

	var ids []string
	for _, email := range []string{"a@x.com", "b@x.com", "a@x.com"} {
		tk := &task.Task{Fields: task.Fields{Email: email, Title: "t"}, Status: task.DefaultStatus}
		if _, err := repo.Insert(ctx, tk); err != nil {
			t.Fatalf("Failed to insert task: %v", err)
		}
		ids = append(ids, tk.ID)
	}

	// Garbage in the directory is skipped.
	if err := os.WriteFile(filepath.Join(dir, "tasks", "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write stray file: %v", err)
	}

	tasks, err = repo.List(ctx, "")
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(tasks))
	}
	for i, tk := range tasks {
		if want := ids[len(ids)-1-i]; tk.ID != want {
			t.Errorf("Expected newest first: position %d want %s got %s", i, want, tk.ID)
		}
	}

	tasks, err = repo.List(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Failed to list by email: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks for a@x.com, got %d", len(tasks))
	}
	for _, tk := range tasks {
		if tk.Email != "a@x.com" {
			t.Errorf("Unexpected email %s", tk.Email)
		}
	}

	tasks, err = repo.List(ctx, "A@X.COM")
	if err != nil {
		t.Fatalf("Failed to list by email: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Expected email match to be exact, got %d tasks", len(tasks))
	}
}

func TestYAMLRepositoryUnknownAndInvalidID(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestYAMLRepository(t)

	const unknown = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	got, err := repo.Get(ctx, unknown)
	if err != nil || got != nil {
		t.Errorf("Expected nil, nil for unknown id, got %+v, %v", got, err)
	}

	upd, err := repo.UpdateStatus(ctx, unknown, "done")
	if err != nil {
		t.Fatalf("UpdateStatus on unknown id failed: %v", err)
	}
	if upd.MatchedCount != 0 || upd.ModifiedCount != 0 {
		t.Errorf("Expected 0/0 for unknown id, got %d/%d", upd.MatchedCount, upd.ModifiedCount)
	}

	for name, fn := range map[string]func() error{
		"get":     func() error { _, err := repo.Get(ctx, "not-an-id"); return err },
		"status":  func() error { _, err := repo.UpdateStatus(ctx, "not-an-id", "done"); return err },
		"replace": func() error { _, err := repo.Replace(ctx, "../escape", task.Fields{}); return err },
		"delete":  func() error { _, err := repo.Delete(ctx, "not-an-id"); return err },
	} {
		if err := fn(); !cerr.IsCode(err, cerr.InvalidArgument) {
			t.Errorf("%s: expected invalid argument, got %v", name, err)
		}
	}
}

func TestYAMLRepositoryPing(t *testing.T) {
	repo, _ := newTestYAMLRepository(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

// interleavingStorage calls onRead once, right after the first read of path,
// so a second operation can run between another one's read and its write.
type interleavingStorage struct {
	storage.Storage
	mu     sync.Mutex
	path   string
	onRead func()
}

func (s *interleavingStorage) Read(ctx context.Context, p string) ([]byte, error) {
	data, err := s.Storage.Read(ctx, p)
	s.mu.Lock()
	var fn func()
	if p == s.path {
		fn, s.onRead = s.onRead, nil
	}
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return data, err
}

func TestYAMLRepositoryInterleavedWrites(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*YAMLRepository, *interleavingStorage, string) {
		t.Helper()
		local, err := storage.NewLocalStorage(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create local storage: %v", err)
		}
		s := &interleavingStorage{Storage: local}
		repo := NewYAMLRepository(s)
		tk := &task.Task{Fields: task.Fields{Title: "old"}, Status: task.DefaultStatus}
		if _, err := repo.Insert(ctx, tk); err != nil {
			t.Fatalf("Failed to insert task: %v", err)
		}
		s.path = taskPath(tk.ID)
		return repo, s, tk.ID
	}

	// runBetween starts op in the background and gives it a moment to finish
	// before the interrupted operation continues to its write.
	runBetween := func(op func() error) (arm func(), wait func() error) {
		done := make(chan struct{})
		var opErr error
		arm = func() {
			go func() {
				defer close(done)
				opErr = op()
			}()
			select {
			case <-done:
			case <-time.After(100 * time.Millisecond):
			}
		}
		wait = func() error {
			<-done
			return opErr
		}
		return arm, wait
	}

	t.Run("status change during replace", func(t *testing.T) {
		repo, s, id := setup(t)
		arm, wait := runBetween(func() error {
			_, err := repo.UpdateStatus(ctx, id, "done")
			return err
		})
		s.onRead = arm

		if _, err := repo.Replace(ctx, id, task.Fields{Title: "new"}); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		if err := wait(); err != nil {
			t.Fatalf("UpdateStatus failed: %v", err)
		}

		got, err := repo.Get(ctx, id)
		if err != nil || got == nil {
			t.Fatalf("Get failed: %+v, %v", got, err)
		}
		if got.Status != "done" || got.Title != "new" {
			t.Errorf("Expected status done and title new, got status %q title %q", got.Status, got.Title)
		}
	})

	t.Run("delete during status change", func(t *testing.T) {
		repo, s, id := setup(t)
		arm, wait := runBetween(func() error {
			_, err := repo.Delete(ctx, id)
			return err
		})
		s.onRead = arm

		if _, err := repo.UpdateStatus(ctx, id, "done"); err != nil {
			t.Fatalf("UpdateStatus failed: %v", err)
		}
		if err := wait(); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		got, err := repo.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected deleted task to stay deleted, got %+v", got)
		}
	})
}
