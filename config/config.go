// Package config loads yardd settings from config.yaml, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	AllowOrigins []string      `mapstructure:"allowOrigins"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlitePath"`
	PostgresDSN string `mapstructure:"postgresDSN"`
	MongoURI    string `mapstructure:"mongoURI"`
	MongoDB     string `mapstructure:"mongoDB"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"pathStyle"`
	AccessKeyID     string `mapstructure:"accessKeyID"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
}

type BlobConfig struct {
	Driver    string        `mapstructure:"driver"`
	FSRoot    string        `mapstructure:"fsRoot"`
	URLExpiry time.Duration `mapstructure:"urlExpiry"`
	S3        S3Config      `mapstructure:"s3"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"groupID"`
}

type AuthConfig struct {
	// Secret enables HS256 bearer checks when non-empty.
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the full process configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Blob    BlobConfig    `mapstructure:"blob"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
}

// env maps config keys to their environment variables.
var env = map[string]string{
	"server.port":             "SERVER_PORT",
	"server.allowOrigins":     "SERVER_ALLOW_ORIGINS",
	"storage.driver":          "STORAGE_DRIVER",
	"storage.sqlitePath":      "SQLITE_PATH",
	"storage.postgresDSN":     "POSTGRES_DSN",
	"storage.mongoURI":        "MONGO_URI",
	"storage.mongoDB":         "MONGO_DBNAME",
	"blob.driver":             "BLOB_DRIVER",
	"blob.fsRoot":             "BLOB_FS_ROOT",
	"blob.urlExpiry":          "BLOB_URL_EXPIRY",
	"blob.s3.bucket":          "S3_BUCKET",
	"blob.s3.region":          "S3_REGION",
	"blob.s3.endpoint":        "S3_ENDPOINT",
	"blob.s3.pathStyle":       "S3_PATH_STYLE",
	"blob.s3.accessKeyID":     "S3_ACCESS_KEY_ID",
	"blob.s3.secretAccessKey": "S3_SECRET_ACCESS_KEY",
	"kafka.brokers":           "KAFKA_BROKERS",
	"kafka.topic":             "KAFKA_TOPIC",
	"kafka.groupID":           "KAFKA_GROUP_ID",
	"auth.secret":             "JWT_SECRET",
	"auth.issuer":             "JWT_ISSUER",
	"log.level":               "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowOrigins", []string{"*"})
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlitePath", "./data/yardops.db")
	v.SetDefault("storage.mongoDB", "yardops")
	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.fsRoot", "./data/reports")
	v.SetDefault("blob.urlExpiry", 15*time.Minute)
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("kafka.topic", "yard-events")
	v.SetDefault("kafka.groupID", "yard-events-tail")
	v.SetDefault("auth.issuer", "yardops")
	v.SetDefault("log.level", "info")
}

// Load reads config.yaml from path (optional), then .env in the working
// directory (optional), then the process environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.AllowOrigins = splitList(cfg.Server.AllowOrigins)
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	return cfg, cfg.Validate()
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgresDSN is required for the postgres driver")
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return errors.New("storage.mongoURI is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		return errors.New("blob.s3.bucket is required for the s3 driver")
	}
	return nil
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
