package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"backoffice/internal/db"
	"backoffice/internal/domain"
)

type Env struct {
	AppAddr string `env:"APP_ADDR" envDefault:":8080"`
	GinMode string `env:"GIN_MODE"`

	DBDriver string `env:"DB_DRIVER" envDefault:"mysql"`
	DBDSN    string `env:"DB_DSN"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"local"`
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"uploads"`
	S3Bucket      string `env:"S3_BUCKET"`
	S3Region      string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint    string `env:"S3_ENDPOINT"`
	S3Prefix      string `env:"S3_PREFIX"`

	NATSURL      string `env:"NATS_URL"`
	AuditSubject string `env:"AUDIT_SUBJECT" envDefault:"backoffice.audit"`

	JWTSecret          string   `env:"JWT_SECRET"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// LoadEnv reads the process environment.
func LoadEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if err := cfg.Validate(); err != nil {
		return Env{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (e Env) Validate() error {
	switch db.Dialect(e.DBDriver) {
	case db.MySQL, db.SQLite:
	default:
		return domain.ConfigurationError{Component: "env", Msg: fmt.Sprintf("DB_DRIVER %q is not mysql or sqlite", e.DBDriver)}
	}
	switch e.StorageDriver {
	case "local", "memory":
	case "s3":
		if strings.TrimSpace(e.S3Bucket) == "" {
			return domain.ConfigurationError{Component: "env", Msg: "STORAGE_DRIVER=s3 needs S3_BUCKET"}
		}
	default:
		return domain.ConfigurationError{Component: "env", Msg: fmt.Sprintf("STORAGE_DRIVER %q is not local, memory or s3", e.StorageDriver)}
	}
	return nil
}

// Dialect returns the configured relational store.
func (e Env) Dialect() db.Dialect {
	return db.Dialect(e.DBDriver)
}
