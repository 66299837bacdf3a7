package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/dezh-tech/immortal/pkg/logger"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ephemera/internal/application/changefeed"
	"ephemera/internal/application/reconcile"
	"ephemera/internal/application/usecase"
	"ephemera/internal/infrastructure/broker"
	"ephemera/internal/infrastructure/database"
	"ephemera/internal/infrastructure/minio"
)

// Config represents the configs used by services on system.
type Config struct {
	Environment     string                 `yaml:"environment"`
	Default         DefaultConfig          `yaml:"default"`
	Content         usecase.Config         `yaml:"content"`
	MinIOClient     minio.ClientConfig     `yaml:"minio_client"`
	MinIOUploader   minio.UploaderConfig   `yaml:"minio_uploader"`
	MinIORemover    minio.RemoverConfig    `yaml:"minio_remover"`
	DBConfig        database.Config        `yaml:"db_config"`
	BrokerConfig    broker.Config          `yaml:"redis_broker_config"`
	PublisherConfig broker.PublisherConfig `yaml:"publisher_config"`
	QueueCapacity   int                    `yaml:"queue_capacity"`
	Reconciler      reconcile.Config       `yaml:"reconciler"`
	Watcher         changefeed.Config      `yaml:"watcher"`
	Admin           AdminConfig            `yaml:"admin"`
	Logger          logger.Config          `yaml:"logger"`
}

type DefaultConfig struct {
	Address   string  `yaml:"address"`
	BodyLimit string  `yaml:"body_limit"`
	RateLimit float64 `yaml:"rate_limit"`
}

// AdminConfig holds the operator api key, read from ADMIN_API_KEY. An empty
// key disables the admin endpoints.
type AdminConfig struct {
	APIKey string
}

func defaults() *Config {
	return &Config{
		Default: DefaultConfig{
			Address:   ":8080",
			BodyLimit: "50M",
			RateLimit: 20,
		},
		Content: usecase.Config{
			RequireDescription:   true,
			MaxMedia:             10,
			DefaultTTL:           86400,
			UploadAttempts:       3,
			DeleteAttempts:       3,
			RetryInitialInterval: 200,
			RetryMaxInterval:     2000,
		},
		MinIOClient:     minio.ClientConfig{Timeout: 5000},
		MinIOUploader:   minio.UploaderConfig{Timeout: 10000},
		MinIORemover:    minio.RemoverConfig{Timeout: 5000},
		DBConfig:        database.Config{DBName: "ephemera", ConnectionTimeout: 10000, QueryTimeout: 5000},
		BrokerConfig:    broker.Config{StreamName: "ephemera:deletions", GroupName: "reconciler", BlockTime: 5000, ClaimIdle: 60000},
		PublisherConfig: broker.PublisherConfig{Timeout: 3000},
		QueueCapacity:   1024,
		Reconciler: reconcile.Config{
			Workers:              4,
			ConsumerName:         "reconciler",
			MaxAttempts:          5,
			RetryInitialInterval: 500,
			RetryMaxInterval:     30000,
			BlobConcurrency:      4,
			ScanGrace:            3600,
			DrainTimeout:         30,
		},
		Watcher: changefeed.Config{
			CheckpointName:           "content_deletions",
			ReconnectInitialInterval: 500,
			ReconnectMaxInterval:     30000,
		},
	}
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Error{
			reason: err.Error(),
		}
	}
	defer file.Close()

	config := defaults()

	decoder := yaml.NewDecoder(file)

	if err := decoder.Decode(config); err != nil {
		return nil, Error{
			reason: err.Error(),
		}
	}

	if config.Environment != "prod" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, Error{
				reason: err.Error(),
			}
		}
	}

	config.MinIOClient.AccessKey = os.Getenv("MINIO_ROOT_USER")
	config.MinIOClient.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")
	config.DBConfig.URI = os.Getenv("DATABASE_URI")
	config.BrokerConfig.URI = os.Getenv("BROKER_URI")
	config.Admin.APIKey = os.Getenv("ADMIN_API_KEY")

	if err = config.basicCheck(); err != nil {
		return nil, Error{
			reason: err.Error(),
		}
	}

	return config, nil
}

// basicCheck validates the basic stuff in config.
func (c *Config) basicCheck() error {
	switch {
	case c.DBConfig.URI == "":
		return errors.New("DATABASE_URI is required")
	case c.MinIOClient.Endpoint == "":
		return errors.New("minio_client.endpoint is required")
	case c.MinIOClient.Bucket == "":
		return errors.New("minio_client.bucket is required")
	case c.Content.MaxMedia <= 0:
		return errors.New("content.max_media must be positive")
	case c.Content.DefaultTTL < 0:
		return errors.New("content.default_ttl_in_second must not be negative")
	case c.Content.UploadAttempts <= 0 || c.Content.DeleteAttempts <= 0:
		return errors.New("content upload and delete attempts must be positive")
	case c.Reconciler.Workers <= 0:
		return errors.New("reconciler.workers must be positive")
	case c.Reconciler.MaxAttempts <= 0:
		return errors.New("reconciler.max_attempts must be positive")
	case c.QueueCapacity <= 0 && c.BrokerConfig.URI == "":
		return errors.New("queue_capacity must be positive without a broker")
	case c.DBConfig.ConnectionTimeout <= 0 || c.DBConfig.QueryTimeout <= 0:
		return errors.New("db_config timeouts must be positive")
	}

	return nil
}
