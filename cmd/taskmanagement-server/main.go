package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	server "github.com/kazz187/taskmanagement/internal"
	"github.com/kazz187/taskmanagement/internal/config"
	"github.com/kazz187/taskmanagement/internal/task"
	taskrepo "github.com/kazz187/taskmanagement/internal/task/repositoryimpl"
	"github.com/kazz187/taskmanagement/pkg/clog"
	"github.com/kazz187/taskmanagement/pkg/panicerr"
	"github.com/kazz187/taskmanagement/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == config.EnvLocal {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	repo, closeRepo, err := newRepository(ctx, env)
	if err != nil {
		slog.Error("failed to set up task repository", "storage_type", env.StorageEnv.Type, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	taskServer := task.NewServer(repo)
	srv := server.NewServer(env, taskServer, repo)

	go func() {
		err := panicerr.SafeContext(srv.ListenAndServe)(ctx)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()
	slog.Info("server is running", "port", env.HTTPPort)

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newRepository picks the task backend from STORAGE_TYPE. The returned func
// releases whatever the backend holds open.
func newRepository(ctx context.Context, env *config.Env) (task.Repository, func(), error) {
	switch env.StorageEnv.Type {
	case config.StorageTypeS3:
		store, err := storage.NewS3Storage(ctx, storage.S3Options{
			Bucket:   env.StorageEnv.S3Bucket,
			Prefix:   env.StorageEnv.S3Prefix,
			Region:   env.StorageEnv.S3Region,
			Endpoint: env.StorageEnv.S3Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return taskrepo.NewYAMLRepository(store), func() {}, nil
	case config.StorageTypeLocal:
		store, err := storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			return nil, nil, err
		}
		return taskrepo.NewYAMLRepository(store), func() {}, nil
	default:
		client, err := taskrepo.ConnectMongo(ctx, env.MongoEnv.URI, env.MongoEnv.ConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Pinged your deployment. You successfully connected to MongoDB!",
			"database", env.MongoEnv.Database,
			"collection", env.MongoEnv.Collection)
		repo := taskrepo.NewMongoRepository(client, env.MongoEnv.Database, env.MongoEnv.Collection)
		return repo, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.Close(ctx); err != nil {
				slog.Error("failed to disconnect from mongodb", "error", err)
			}
		}, nil
	}
}
