package persistencequeue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/riverqueue/river"
)

// BackupCreator produces a serialized backup document.
type BackupCreator interface {
	CreateBackup(ctx context.Context) ([]byte, error)
}

// AutoBackupWorker runs AutoBackupJob.
type AutoBackupWorker struct {
	river.WorkerDefaults[AutoBackupJob]

	creator BackupCreator
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time
}

// NewAutoBackupWorker creates an AutoBackupWorker.
func NewAutoBackupWorker(creator BackupCreator, logger *slog.Logger, metrics Metrics) *AutoBackupWorker {
	return &AutoBackupWorker{
		creator: creator,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Timeout bounds a single backup run.
func (w *AutoBackupWorker) Timeout(*river.Job[AutoBackupJob]) time.Duration {
	return 2 * time.Minute
}

// Work writes one backup file and prunes old ones.
func (w *AutoBackupWorker) Work(ctx context.Context, job *river.Job[AutoBackupJob]) error {
	start := time.Now()
	w.metrics.RecordOperationAttempt(ctx, "auto_backup", "river")

	path, err := w.run(ctx, job.Args)
	if err != nil {
		w.logger.ErrorContext(ctx, "Auto backup failed",
			slog.String("dir", job.Args.Dir),
			slog.String("error", err.Error()),
		)
		w.metrics.RecordOperationFailure(ctx, "auto_backup", "river")
		return err
	}

	w.metrics.RecordOperationSuccess(ctx, "auto_backup", "river")
	w.metrics.RecordOperationDuration(ctx, "auto_backup", "river", time.Since(start))
	w.logger.InfoContext(ctx, "Auto backup written", slog.String("path", path))
	return nil
}

// WriteNow writes one backup outside the queue and returns its path.
func (w *AutoBackupWorker) WriteNow(ctx context.Context, dir string, keep int) (string, error) {
	return w.run(ctx, AutoBackupJob{Dir: dir, Keep: keep})
}

func (w *AutoBackupWorker) run(ctx context.Context, args AutoBackupJob) (string, error) {
	if args.Dir == "" {
		return "", fmt.Errorf("auto backup: no directory configured")
	}
	data, err := w.creator.CreateBackup(ctx)
	if err != nil {
		return "", fmt.Errorf("auto backup: %w", err)
	}
	if err := os.MkdirAll(args.Dir, 0o750); err != nil {
		return "", fmt.Errorf("auto backup: %w", err)
	}

	name := BackupFilePrefix + w.now().UTC().Format("20060102T150405Z") + BackupFileSuffix
	path := filepath.Join(args.Dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("auto backup: %w", err)
	}

	if args.Keep > 0 {
		if err := pruneBackups(args.Dir, args.Keep); err != nil {
			// The new backup is on disk; a failed prune only leaves extra files.
			w.logger.WarnContext(ctx, "Failed to prune old backups", slog.String("error", err.Error()))
		}
	}
	return path, nil
}

// pruneBackups removes all but the newest keep backup files in dir. File
// names embed a sortable UTC timestamp.
func pruneBackups(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), BackupFilePrefix) || !strings.HasSuffix(e.Name(), BackupFileSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) <= keep {
		return nil
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
