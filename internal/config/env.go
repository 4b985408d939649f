package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	// When empty, the API key middleware is disabled. Token issuance
	// lives in a separate credential service.
	APIKey string `envconfig:"API_KEY"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".dispatch/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"dispatch/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type AssignEnv struct {
	// AutoAssign makes the dispatcher try an assignment as soon as a
	// task is created.
	AutoAssign bool `envconfig:"AUTO_ASSIGN" default:"true"`
	LoadCap    int  `envconfig:"LOAD_CAP" default:"3"`
	// ExperienceThreshold is the years-of-experience midpoint of the
	// diminishing-returns curve.
	ExperienceThreshold float64 `envconfig:"EXPERIENCE_THRESHOLD" default:"10"`
	WeightExpertise     float64 `envconfig:"WEIGHT_EXPERTISE" default:"0.4"`
	WeightAvailability  float64 `envconfig:"WEIGHT_AVAILABILITY" default:"0.3"`
	WeightLoad          float64 `envconfig:"WEIGHT_LOAD" default:"0.15"`
	WeightExperience    float64 `envconfig:"WEIGHT_EXPERIENCE" default:"0.15"`
	// WeightsFile points at an optional YAML file overriding the
	// weights above; it is watched and hot-reloaded.
	WeightsFile string `envconfig:"WEIGHTS_FILE"`
}

type Env struct {
	BaseEnv
	StorageEnv
	AssignEnv
}

const namespace = "DISPATCH"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
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
