package store

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aalemi-dev/portmeta/observability"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store persists published metadata in a SQL database through gorm.
// It implements metadata.Updater and metadata.Loader.
//
// Concurrency: the active *gorm.DB is kept in an atomic pointer and swapped by
// MonitorConnection on reconnection without blocking readers.
type Store struct {
	cfg      Config
	client   atomic.Pointer[gorm.DB]
	observer observability.Observer
	logger   Logger

	shutdownSignal    chan struct{}
	closeShutdownOnce sync.Once
}

// NewStore connects to the configured database.
//
// Returns the concrete *Store type.
func NewStore(cfg Config) (*Store, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return newStoreWithDB(cfg, conn), nil
}

func newStoreWithDB(cfg Config, db *gorm.DB) *Store {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = DefaultHealthCheckInterval
	}
	s := &Store{
		cfg:            cfg,
		shutdownSignal: make(chan struct{}),
	}
	s.client.Store(db)
	return s
}

// dialector returns the gorm dialector for the configured driver.
func dialector(cfg Config) (gorm.Dialector, error) {
	c := cfg.Connection
	switch cfg.Driver {
	case DriverPostgres, "":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DbName, sslMode)
		return postgres.Open(dsn), nil
	case DriverMySQL:
		mc := mysqldriver.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, c.Port)
		mc.DBName = c.DbName
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.TLSConfig = c.TLS
		return mysql.Open(mc.FormatDSN()), nil
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", ErrConfigurationError, cfg.Driver)
	}
}

// connect opens the database and configures the connection pool.
func connect(cfg Config) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s database instance: %w", cfg.Driver, err)
	}

	maxOpen := cfg.ConnectionDetails.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = DefaultMaxOpenConns
	}
	maxIdle := cfg.ConnectionDetails.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = DefaultMaxIdleConns
	}
	maxLifetime := cfg.ConnectionDetails.ConnMaxLifetime
	if maxLifetime == 0 {
		maxLifetime = DefaultConnMaxLifetime
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)

	return db, nil
}

// DB returns the active connection.
func (s *Store) DB() *gorm.DB {
	return s.client.Load()
}

// WithObserver attaches an observer to the store.
func (s *Store) WithObserver(observer observability.Observer) *Store {
	s.observer = observer
	return s
}

// WithLogger attaches a logger to the store.
func (s *Store) WithLogger(logger Logger) *Store {
	s.logger = logger
	return s
}

// MonitorConnection checks the connection every HealthCheckInterval and reconnects
// when the check fails. It returns when ctx is done or the store is closed.
func (s *Store) MonitorConnection(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdownSignal:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.healthCheck(ctx)
			if err == nil {
				continue
			}
			s.logWarn(ctx, "Metadata store health check failed", err, nil)

			conn, err := connect(s.cfg)
			if err != nil {
				s.logError(ctx, "Metadata store reconnection failed", err, nil)
				continue
			}
			old := s.client.Swap(conn)
			closeDB(old)
			s.logInfo(ctx, "Reconnected to metadata store", nil)
		}
	}
}

// healthCheck pings the active connection with a 5 second timeout.
func (s *Store) healthCheck(ctx context.Context) error {
	db := s.DB()
	if db == nil {
		return fmt.Errorf("database client is not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance during health check: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed during health check: %w", err)
	}
	return nil
}

// Close stops MonitorConnection and closes the connection pool.
func (s *Store) Close() error {
	s.closeShutdownOnce.Do(func() {
		close(s.shutdownSignal)
	})

	db := s.DB()
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *Store) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (s *Store) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (s *Store) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
