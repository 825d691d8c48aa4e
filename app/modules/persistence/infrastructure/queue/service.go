package persistencequeue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

// Metrics is the operation metrics surface used by the queue.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// Config controls the periodic backup.
type Config struct {
	// Interval between automatic backups. Zero disables the periodic job;
	// TriggerBackup still works.
	Interval time.Duration
	Dir      string
	Keep     int
}

// QueueService schedules and runs backup jobs.
type QueueService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	TriggerBackup(ctx context.Context) (int64, error)
	HealthCheck(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service runs the backup jobs on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	cfg     Config
	logger  *slog.Logger
	metrics Metrics
}

// NewService connects to dsn, migrates the River schema and builds the client.
func NewService(ctx context.Context, logger *slog.Logger, dsn string, metrics Metrics, creator BackupCreator, cfg Config) (*Service, error) {
	logger = logger.With(slog.String("component", "river_queue"))

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to run River migrations: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewAutoBackupWorker(creator, logger, metrics))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
		},
		Workers:      workers,
		PeriodicJobs: PeriodicJobs(cfg),
	})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))
	logger.Info("Backup queue service initialized", slog.Duration("interval", cfg.Interval))

	return &Service{
		client:  riverClient,
		pool:    pool,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// PeriodicJobs returns the periodic backup job for cfg, or nothing when the
// interval is zero.
func PeriodicJobs(cfg Config) []*river.PeriodicJob {
	if cfg.Interval <= 0 {
		return nil
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(cfg.Interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return AutoBackupJob{Dir: cfg.Dir, Keep: cfg.Keep}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	return s.record(ctx, "start_service", func() error {
		if err := s.client.Start(ctx); err != nil {
			return fmt.Errorf("failed to start River client: %w", err)
		}
		return nil
	})
}

// Stop stops the River client and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	return s.record(ctx, "stop_service", func() error {
		defer s.pool.Close()
		if err := s.client.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop River client: %w", err)
		}
		return nil
	})
}

// TriggerBackup enqueues an immediate backup and returns the job id.
func (s *Service) TriggerBackup(ctx context.Context) (int64, error) {
	var jobID int64
	err := s.record(ctx, "trigger_backup", func() error {
		res, err := s.client.Insert(ctx, AutoBackupJob{Dir: s.cfg.Dir, Keep: s.cfg.Keep}, nil)
		if err != nil {
			return fmt.Errorf("failed to enqueue backup job: %w", err)
		}
		jobID = res.Job.ID
		return nil
	})
	return jobID, err
}

// HealthCheck pings the queue database.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.record(ctx, "health_check", func() error {
		if err := s.pool.Ping(ctx); err != nil {
			return fmt.Errorf("queue service health check failed: %w", err)
		}
		return nil
	})
}

func (s *Service) record(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, op, "river")
	if err := fn(); err != nil {
		s.logger.ErrorContext(ctx, "Queue operation failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordOperationFailure(ctx, op, "river")
		return err
	}
	s.metrics.RecordOperationSuccess(ctx, op, "river")
	s.metrics.RecordOperationDuration(ctx, op, "river", time.Since(start))
	return nil
}
