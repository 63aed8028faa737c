package minio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/tracer"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive keeps one JSON document per published type in a MinIO/S3 bucket.
// It implements metadata.Updater and metadata.Loader.
//
// Pushes from one Archive are serialized. Archives in different processes writing
// to the same bucket are not coordinated: the last writer of a document wins.
type Archive struct {
	cfg     Config
	objects objectAPI

	// pushMutex serializes read-merge-write cycles
	pushMutex sync.Mutex

	// observer provides optional observability hooks for tracking operations
	observer observability.Observer

	// logger provides optional context-aware logging capabilities
	logger Logger

	// tracer copies trace context into object metadata when set
	tracer tracer.Tracer

	shutdownSignal    chan struct{}
	closeShutdownOnce sync.Once
}

// NewArchive connects to MinIO and checks that the bucket exists, creating it
// when CreateBucket is set.
//
// Returns the concrete *Archive type.
//
// Example:
//
//	archive, err := minio.NewArchive(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to initialize metadata archive: %w", err)
//	}
//	archive = archive.WithLogger(log).WithObserver(metrics)
func NewArchive(cfg Config) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrConfigurationError)
	}
	client, err := connectToMinio(cfg)
	if err != nil {
		return nil, err
	}

	a := newArchiveWithObjects(cfg, &minioObjects{client: client})

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Timeout)
	defer cancel()
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func newArchiveWithObjects(cfg Config, objects objectAPI) *Archive {
	return &Archive{
		cfg:            cfg.withDefaults(),
		objects:        objects,
		shutdownSignal: make(chan struct{}),
	}
}

// connectToMinio creates the MinIO client. No request is made.
func connectToMinio(cfg Config) (*minio.Client, error) {
	if cfg.Connection.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrConfigurationError)
	}
	client, err := minio.New(cfg.Connection.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Connection.AccessKeyID, cfg.Connection.SecretAccessKey, ""),
		Secure: cfg.Connection.UseSSL,
		Region: cfg.Connection.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return client, nil
}

// ensureBucket fails with ErrBucketNotFound when the bucket is missing and
// CreateBucket is not set.
func (a *Archive) ensureBucket(ctx context.Context) error {
	exists, err := a.objects.bucketExists(ctx, a.cfg.Bucket)
	if err != nil {
		return TranslateError(err)
	}
	if exists {
		return nil
	}
	if !a.cfg.CreateBucket {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, a.cfg.Bucket)
	}
	if err := a.objects.makeBucket(ctx, a.cfg.Bucket, a.cfg.Connection.Region); err != nil {
		err = TranslateError(err)
		if err != nil && !isBucketAlreadyExists(err) {
			return err
		}
	}
	a.logInfo(ctx, "Created metadata archive bucket", map[string]interface{}{
		"bucket": a.cfg.Bucket,
	})
	return nil
}

// WithObserver attaches an observer to the archive.
func (a *Archive) WithObserver(observer observability.Observer) *Archive {
	a.observer = observer
	return a
}

// WithLogger attaches a logger to the archive.
func (a *Archive) WithLogger(logger Logger) *Archive {
	a.logger = logger
	return a
}

// WithTracer attaches a tracer whose carrier is stored as object metadata.
func (a *Archive) WithTracer(t tracer.Tracer) *Archive {
	a.tracer = t
	return a
}

// monitorConnection periodically checks that the bucket is reachable and logs
// failures. minio-go reconnects on its own, so nothing is swapped here.
func (a *Archive) monitorConnection(ctx context.Context) {
	ticker := time.NewTicker(connectionHealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := a.objects.bucketExists(checkCtx, a.cfg.Bucket)
			cancel()
			if err != nil {
				a.logError(ctx, "MinIO connection health check failed", TranslateError(err), map[string]interface{}{
					"endpoint": a.cfg.Connection.Endpoint,
				})
			}

		case <-a.shutdownSignal:
			return

		case <-ctx.Done():
			return
		}
	}
}

// GracefulShutdown stops the connection monitor. It is safe to call more than once.
func (a *Archive) GracefulShutdown() {
	a.closeShutdownOnce.Do(func() {
		close(a.shutdownSignal)
	})
}

func (a *Archive) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if a.logger != nil {
		a.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (a *Archive) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if a.logger != nil {
		a.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (a *Archive) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if a.logger != nil {
		a.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
