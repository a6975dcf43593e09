package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	structValidator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"
)

const (
	CONFIG_PATH = "./res/config.yaml"
	ENV_PATH    = ".env"

	DatabaseTypeMongo    = "mongo"
	DatabaseTypePostgres = "postgres"

	DefaultMongoPoolSize = 5
)

// ServiceConfig holds the configuration for the service.
type ServiceConfig struct {
	ServiceName string          `yaml:"service_name" validate:"required"`
	LogLevel    string          `yaml:"loglevel" validate:"required"`
	Host        string          `yaml:"host" validate:"required"`
	Port        string          `yaml:"port" validate:"required"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Database    Database        `yaml:"database" validate:"required"`
	Cache       CacheConfig     `yaml:"cache"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

type Database struct {
	Type string `yaml:"type" validate:"required,oneof=mongo postgres"`
	// For MongoDB
	MongoDB MongoDBConfig `yaml:"mongodb_config" validate:"-"`
	// For PostgreSQL
	Postgres PostgresConfig `yaml:"postgres_config" validate:"-"`
}

// MongoDBConfig holds the MongoDB connection settings.
type MongoDBConfig struct {
	Host         string             `yaml:"host"`
	Port         int                `yaml:"port" validate:"gte=0,lte=65535"`
	DatabaseName string             `yaml:"database_name" validate:"required"`
	User         string             `yaml:"user"`
	Password     string             `yaml:"password"`
	AuthSource   string             `yaml:"auth_source"`
	PoolSize     uint64             `yaml:"pool_size"`
	Timeout      time.Duration      `yaml:"timeout"`
	ReplicaSet   ReplicaSetConfig   `yaml:"replica_set"`
	Options      MongoServerOptions `yaml:"mongo_server_options"`
}

type ReplicaSetConfig struct {
	Name    string          `yaml:"name"`
	Members []ReplicaMember `yaml:"members" validate:"dive"`
}

type ReplicaMember struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required,gt=0,lte=65535"`
}

type PostgresConfig struct {
	DSN     string                `yaml:"dsn" validate:"required"`
	Options PostgresServerOptions `yaml:"postgres_server_options"`
}

type MongoServerOptions struct {
	APIVersion           string `yaml:"api_version"`
	SetStrict            bool   `yaml:"set_strict"`
	SetDeprecationErrors bool   `yaml:"set_deprecation_errors"`
}

type PostgresServerOptions struct {
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig configures the optional Redis read cache.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr" validate:"required_if=Enabled true"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	TTL          time.Duration `yaml:"ttl"`
	KeyPrefix    string        `yaml:"key_prefix"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ReadLocalConfig reads the service configuration from a YAML file at the specified path.
// It unmarshals the YAML content into a ServiceConfig struct and returns it.
// If there is an error reading the file or unmarshaling the content, it returns an error.
func ReadLocalConfig(configPath string) (*ServiceConfig, error) {
	config := &ServiceConfig{}

	yamlFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(yamlFile, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration, including the settings of the selected database only.
func (c *ServiceConfig) Validate(validator *structValidator.Validate) error {
	if err := validator.Struct(c); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	switch c.Database.Type {
	case DatabaseTypeMongo:
		mongoCfg := c.Database.MongoDB
		if err := validator.Struct(mongoCfg); err != nil {
			return fmt.Errorf("mongodb_config validation error: %w", err)
		}
		if mongoCfg.ReplicaSet.Name == "" && (mongoCfg.Host == "" || mongoCfg.Port == 0) {
			return fmt.Errorf("mongodb_config validation error: host and port are required without a replica set")
		}
		if mongoCfg.ReplicaSet.Name != "" && len(mongoCfg.ReplicaSet.Members) == 0 {
			return fmt.Errorf("mongodb_config validation error: replica set %q has no members", mongoCfg.ReplicaSet.Name)
		}
	case DatabaseTypePostgres:
		if err := validator.Struct(c.Database.Postgres); err != nil {
			return fmt.Errorf("postgres_config validation error: %w", err)
		}
	}

	return nil
}

// ApplyEnvOverrides loads envPath (when present) into the environment and lets
// environment variables override credentials and addresses from the file.
func ApplyEnvOverrides(c *ServiceConfig, envPath string) {
	// a missing .env file is normal
	_ = godotenv.Load(envPath)

	if v := os.Getenv("MONGO_HOST"); v != "" {
		c.Database.MongoDB.Host = v
	}
	if v := os.Getenv("MONGO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.MongoDB.Port = port
		}
	}
	if v := os.Getenv("MONGO_USER"); v != "" {
		c.Database.MongoDB.User = v
	}
	if v := os.Getenv("MONGO_PASSWORD"); v != "" {
		c.Database.MongoDB.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Database.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// BuildMongoURI concatenates the connection settings into a MongoDB URI.
// With a replica set configured every member host:port is listed;
// the replica set name itself is passed as a client option.
func BuildMongoURI(cfg MongoDBConfig) string {
	var hosts string
	if cfg.ReplicaSet.Name != "" {
		members := make([]string, 0, len(cfg.ReplicaSet.Members))
		for _, member := range cfg.ReplicaSet.Members {
			members = append(members, fmt.Sprintf("%s:%d", member.Host, member.Port))
		}
		hosts = strings.Join(members, ",")
	} else {
		hosts = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	return "mongodb://" + hosts + "/" + cfg.DatabaseName
}

func BuildServerAPIOptions(cfg MongoServerOptions) *options.ServerAPIOptions {
	if cfg.APIVersion == "" {
		return nil
	}
	opts := options.ServerAPI(options.ServerAPIVersion(cfg.APIVersion))
	opts.SetStrict(cfg.SetStrict)
	opts.SetDeprecationErrors(cfg.SetDeprecationErrors)

	return opts
}
