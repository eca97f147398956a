package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvLocal = "local"

	StorageTypeMongo = "mongo"
	StorageTypeLocal = "local"
	StorageTypeS3    = "s3"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"PORT" default:"5000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
}

type MongoEnv struct {
	URI            string        `envconfig:"DB_URI"`
	Database       string        `envconfig:"DB_NAME" default:"task-management"`
	Collection     string        `envconfig:"DB_COLLECTION" default:"allTask"`
	ConnectTimeout time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"10s"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"mongo"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskmanagement/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket   string `envconfig:"S3_BUCKET"`
	S3Prefix   string `envconfig:"S3_PREFIX" default:"taskmanagement/"`
	S3Region   string `envconfig:"S3_REGION" default:"ap-northeast-1"`
	S3Endpoint string `envconfig:"S3_ENDPOINT"`
}

type Env struct {
	BaseEnv
	MongoEnv
	StorageEnv
}

// LoadEnv reads the process environment. Variable names carry no prefix so
// PORT and DB_URI work as they do on common hosting platforms.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) Validate() error {
	switch e.StorageEnv.Type {
	case StorageTypeMongo:
		if e.MongoEnv.URI == "" {
			return errors.New("DB_URI is required when STORAGE_TYPE is mongo")
		}
	case StorageTypeLocal:
		if e.StorageEnv.BaseDir == "" {
			return errors.New("STORAGE_BASE_DIR is required when STORAGE_TYPE is local")
		}
	case StorageTypeS3:
		if e.StorageEnv.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when STORAGE_TYPE is s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", e.StorageEnv.Type)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}
