package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskmanagement/pkg/cerr"
	"github.com/kazz187/taskmanagement/pkg/clog"
	"github.com/kazz187/taskmanagement/pkg/validate"
)

const (
	msgInvalidBody        = "invalid request body"
	msgInsertFailed       = "Failed to insert task"
	msgStatusRequired     = "Status is required"
	msgStatusNotModified  = "Task not found or already updated"
	msgStatusUpdateFailed = "Failed to update task status"
	msgStatusUpdated      = "Task status updated successfully"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

// Mount registers the /allTask routes. Handlers report through cerr, so the
// router must carry cerr.NewJSONResponseChiMiddleware.
func (s *Server) Mount(r chi.Router) {
	r.Route("/allTask", func(r chi.Router) {
		r.Get("/", s.ListTasks)
		r.Post("/", s.CreateTask)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetTask)
			r.Patch("/", s.UpdateTaskStatus)
			r.Put("/", s.ReplaceTask)
			r.Delete("/", s.DeleteTask)
		})
	})
}

type statusResponse struct {
	Message string `json:"message"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.URL.Query().Get("email")
	tasks, err := s.repo.List(ctx, email)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	clog.AddAttribute(ctx, "task_count", len(tasks))
	cerr.SetJSONResponse(ctx, tasks)
}

func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := taskID(r)
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	// A missing task is answered with a JSON null, not 404.
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var f Fields
	if err := decodeJSON(r, &f); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	// Any client supplied status is dropped.
	t := &Task{Fields: f, Status: DefaultStatus}
	res, err := s.repo.Insert(ctx, t)
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.Internal, msgInsertFailed, err)
		return
	}
	clog.AddAttribute(ctx, "task_id", res.InsertedID)
	cerr.SetJSONResponse(ctx, res)
}

func (s *Server) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := taskID(r)
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := validate.Struct(req, msgStatusRequired); err != nil {
		clog.AddAttribute(ctx, "invalid_fields", validate.Fields(err))
		cerr.SetJSONError(ctx, err)
		return
	}
	res, err := s.repo.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		if cerr.IsCode(err, cerr.InvalidArgument) {
			cerr.SetJSONError(ctx, err)
			return
		}
		cerr.SetNewJSONError(ctx, cerr.Internal, msgStatusUpdateFailed, err)
		return
	}
	if res.ModifiedCount == 0 {
		cerr.SetNewJSONError(ctx, cerr.NotFound, msgStatusNotModified, nil)
		return
	}
	cerr.SetJSONResponse(ctx, statusResponse{Message: msgStatusUpdated})
}

func (s *Server) ReplaceTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := taskID(r)
	var f Fields
	if err := decodeJSON(r, &f); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	res, err := s.repo.Replace(ctx, id, f)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, res)
}

func (s *Server) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.repo.Delete(ctx, taskID(r))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, res)
}

func taskID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	clog.AddAttribute(r.Context(), "task_id", id)
	return id
}

// decodeJSON treats an empty body as an empty object.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return cerr.NewError(cerr.InvalidArgument, msgInvalidBody, fmt.Errorf("failed to decode request body: %w", err))
	}
	return nil
}
