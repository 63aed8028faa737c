package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/aalemi-dev/portmeta/kafka"
	"github.com/aalemi-dev/portmeta/logger"
	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/metrics"
	"github.com/aalemi-dev/portmeta/minio"
	"github.com/aalemi-dev/portmeta/rediscache"
	"github.com/aalemi-dev/portmeta/registry"
	"github.com/aalemi-dev/portmeta/store"
	"github.com/aalemi-dev/portmeta/tracer"
	"github.com/aalemi-dev/portmeta/updaters"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. PORTMETA_LOGGER_LEVEL
	EnvPrefix = "PORTMETA"

	// FileName is the configuration file name searched for without an explicit path
	FileName = "portmeta"
)

// SearchPaths are the directories searched for FileName, in order.
var SearchPaths = []string{".", "/etc/portmeta"}

// Config is the complete portmeta configuration.
type Config struct {
	Metadata  metadata.Config          `mapstructure:"metadata"`
	Logger    logger.Config            `mapstructure:"logger"`
	Metrics   metrics.Config           `mapstructure:"metrics"`
	Tracer    tracer.Config            `mapstructure:"tracer"`
	Retry     updaters.RetryPolicy     `mapstructure:"retry"`
	Authority registry.AuthorityConfig `mapstructure:"authority"`
	Backends  Backends                 `mapstructure:"backends"`
}

// Backends selects the Updater and Loader backends of the serve command.
type Backends struct {
	Registry RegistryBackend `mapstructure:"registry"`
	Kafka    KafkaBackend    `mapstructure:"kafka"`
	Store    StoreBackend    `mapstructure:"store"`
	Minio    MinioBackend    `mapstructure:"minio"`
	Redis    RedisBackend    `mapstructure:"redis"`
}

// RegistryBackend pushes to and loads from a metadata authority.
type RegistryBackend struct {
	Enabled         bool `mapstructure:"enabled"`
	registry.Config `mapstructure:",squash"`
}

// KafkaBackend publishes updates and, with Follow, applies peer updates.
type KafkaBackend struct {
	Enabled      bool `mapstructure:"enabled"`
	Follow       bool `mapstructure:"follow"`
	kafka.Config `mapstructure:",squash"`
}

// StoreBackend persists metadata in a SQL database.
type StoreBackend struct {
	Enabled      bool `mapstructure:"enabled"`
	store.Config `mapstructure:",squash"`
}

// MinioBackend archives metadata in an object store.
type MinioBackend struct {
	Enabled      bool `mapstructure:"enabled"`
	minio.Config `mapstructure:",squash"`
}

// RedisBackend shares metadata through Redis and, with Follow, applies peer updates.
type RedisBackend struct {
	Enabled           bool `mapstructure:"enabled"`
	Follow            bool `mapstructure:"follow"`
	rediscache.Config `mapstructure:",squash"`
}

// Load reads the configuration from path, or from FileName in SearchPaths when path
// is empty, and overlays PORTMETA_* environment variables. A missing file is only an
// error when path is given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, p := range SearchPaths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, reflect.TypeOf(Config{}), "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("metadata.push_timeout", metadata.DefaultPushTimeout)
	v.SetDefault("metadata.reconcile_interval", metadata.DefaultReconcileInterval)
	v.SetDefault("metadata.flush_on_stop", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("logger.service_name", "portmeta")

	v.SetDefault("metrics.namespace", metrics.DefaultNamespace)
	v.SetDefault("metrics.service_name", "portmeta")

	v.SetDefault("tracer.service_name", "portmeta")
	v.SetDefault("tracer.sample_ratio", 1.0)

	v.SetDefault("retry.max_retries", updaters.DefaultMaxRetries)
	v.SetDefault("retry.initial", updaters.DefaultInitial)
	v.SetDefault("retry.max", updaters.DefaultMax)
	v.SetDefault("retry.multiplier", updaters.DefaultMultiplier)

	v.SetDefault("authority.address", registry.DefaultAuthorityAddress)
	v.SetDefault("authority.read_timeout", registry.DefaultReadTimeout)

	v.SetDefault("backends.registry.timeout", registry.DefaultTimeout)
	v.SetDefault("backends.registry.token_ttl", registry.DefaultTokenTTL)
	v.SetDefault("backends.registry.subject", registry.DefaultSubject)

	v.SetDefault("backends.kafka.topic", kafka.DefaultTopic)
	v.SetDefault("backends.kafka.batch_timeout", kafka.DefaultBatchTimeout)
	v.SetDefault("backends.kafka.max_attempts", kafka.DefaultMaxAttempts)
	v.SetDefault("backends.kafka.encoding", kafka.DefaultEncoding)

	v.SetDefault("backends.store.driver", store.DriverPostgres)
	v.SetDefault("backends.store.auto_migrate", true)
	v.SetDefault("backends.store.health_check_interval", store.DefaultHealthCheckInterval)

	v.SetDefault("backends.minio.prefix", minio.DefaultPrefix)
	v.SetDefault("backends.minio.timeout", minio.DefaultTimeout)

	v.SetDefault("backends.redis.addr", rediscache.DefaultAddr)
	v.SetDefault("backends.redis.prefix", rediscache.DefaultPrefix)
	v.SetDefault("backends.redis.channel", rediscache.DefaultChannel)
}

// bindEnvs binds every mapstructure key of t so that environment variables are seen
// by Unmarshal even when the key has no default and is absent from the file.
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("mapstructure")
		name, opts, _ := strings.Cut(tag, ",")

		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		if opts == "squash" {
			bindEnvs(v, ft, prefix)
			continue
		}
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(time.Time{}) {
			bindEnvs(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// validate checks the settings that the backends cannot default.
func validate(cfg *Config) error {
	b := cfg.Backends
	switch {
	case b.Registry.Enabled && b.Registry.URL == "":
		return errors.New("backends.registry.url is required when the registry backend is enabled")
	case b.Kafka.Enabled && len(b.Kafka.Brokers) == 0:
		return errors.New("backends.kafka.brokers is required when the kafka backend is enabled")
	case b.Kafka.Follow && b.Kafka.GroupID == "":
		return errors.New("backends.kafka.group_id is required to follow kafka")
	case b.Minio.Enabled && b.Minio.Bucket == "":
		return errors.New("backends.minio.bucket is required when the minio backend is enabled")
	case b.Store.Enabled && b.Store.Driver != store.DriverPostgres && b.Store.Driver != store.DriverMySQL:
		return fmt.Errorf("backends.store.driver %q is not supported", b.Store.Driver)
	}
	return nil
}

// Enabled returns the names of the enabled backends in a fixed order.
func (b Backends) Enabled() []string {
	var names []string
	if b.Registry.Enabled {
		names = append(names, "registry")
	}
	if b.Kafka.Enabled {
		names = append(names, "kafka")
	}
	if b.Store.Enabled {
		names = append(names, "store")
	}
	if b.Minio.Enabled {
		names = append(names, "minio")
	}
	if b.Redis.Enabled {
		names = append(names, "redis")
	}
	return names
}
