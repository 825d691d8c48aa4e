package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	kvservice "github.com/matchops/matchops/app/modules/kvstore/application"
	kvbackends "github.com/matchops/matchops/app/modules/kvstore/infrastructure/backends"
	persistenceservice "github.com/matchops/matchops/app/modules/persistence/application"
	persistencehandlers "github.com/matchops/matchops/app/modules/persistence/infrastructure/handlers"
	persistencehttp "github.com/matchops/matchops/app/modules/persistence/infrastructure/httpapi"
	persistencenotify "github.com/matchops/matchops/app/modules/persistence/infrastructure/notify"
	persistencequeue "github.com/matchops/matchops/app/modules/persistence/infrastructure/queue"
	persistencerouter "github.com/matchops/matchops/app/modules/persistence/infrastructure/router"
	remoteservice "github.com/matchops/matchops/app/modules/remote/application"
	remotedb "github.com/matchops/matchops/app/modules/remote/infrastructure/repositories"
	storageservice "github.com/matchops/matchops/app/modules/storage/application"
	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/metrics"
	"github.com/matchops/matchops/config"
	"github.com/nats-io/nats.go"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Module represents the persistence module.
type Module struct {
	Service  *persistenceservice.Service
	Router   *persistencerouter.PersistenceRouter
	// Queue is nil when no Postgres DSN is configured.
	Queue    persistencequeue.QueueService
	HTTP     *persistencehttp.Handlers
	DeviceID string

	kv          *kvservice.Adapter
	eventBus    eventbus.EventBus
	natsConn    *nats.Conn
	bridge      *persistencenotify.Bridge
	currentUser remoteservice.UserResolver
	config      *config.Config
	cancelFunc  context.CancelFunc
	logger      *slog.Logger
}

// NewPersistenceModule wires storage, the persistence service and its event
// handlers. db is required in remote storage mode and ignored otherwise.
// router may be nil for one-shot CLI commands that need no event handling.
func NewPersistenceModule(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
	eventBus eventbus.EventBus,
	router *message.Router,
	db *bun.DB,
	currentUser remoteservice.UserResolver,
	session persistencehandlers.SessionSource,
) (*Module, error) {
	logger.InfoContext(ctx, "persistence.NewPersistenceModule initializing",
		slog.String("storage_mode", cfg.Storage.Mode),
	)

	// 1. Local key-value storage
	opener, err := kvbackends.NewOpener(kvbackends.Options{
		Driver:     kvbackends.Kind(cfg.Storage.Driver),
		Path:       cfg.Storage.Path,
		QuotaBytes: cfg.Storage.QuotaBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure local storage: %w", err)
	}
	kv := kvservice.NewAdapter(opener, logger)

	// 2. Transactions and the entity backend for the selected mode
	tx := storageservice.NewTransactionManager(logger, m, tracer, cfg.Transaction.Timeout)

	var (
		entities persistenceservice.EntityStore
		generic  remoteservice.GenericStore
	)
	if cfg.RemoteEnabled() {
		if db == nil {
			return nil, errors.New("remote storage mode requires a database")
		}
		var limiter *rate.Limiter
		if cfg.Remote.Rate > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.Remote.Rate), max(cfg.Remote.Burst, 1))
		}
		remote := remoteservice.NewRemoteClient(remotedb.NewRepository(db), db, currentUser, limiter, logger, m, tracer)
		entities = persistenceservice.NewRemoteEntityStore(remote)
		generic = remote
	} else {
		entities = persistenceservice.NewLocalEntityStore(kv, logger)
	}

	storage := storageservice.NewUnifiedStorage(kv, generic, tx, storageservice.NewConflictResolver(logger), logger)
	if generic != nil && currentUser != nil {
		storage = storage.WithUserScope(currentUser)
	}

	// 3. Service
	var publisher message.Publisher
	if eventBus != nil {
		publisher = eventBus
	}
	service := persistenceservice.NewService(entities, storage, tx, publisher, logger, m, tracer)

	module := &Module{
		Service:     service,
		HTTP:        persistencehttp.NewHandlers(service, logger, tracer),
		DeviceID:    cfg.NATS.DeviceID,
		kv:          kv,
		eventBus:    eventBus,
		currentUser: currentUser,
		config:      cfg,
		logger:      logger,
	}
	if module.DeviceID == "" {
		module.DeviceID = uuid.NewString()
	}

	// 4. Handlers and router
	if router != nil && eventBus != nil {
		handlers := persistencehandlers.NewPersistenceHandlers(service, session, module.DeviceID, logger, tracer)
		module.Router = persistencerouter.NewPersistenceRouter(logger, router, eventBus, eventBus, tracer)
		if err := module.Router.Configure(ctx, handlers); err != nil {
			return nil, fmt.Errorf("failed to configure persistence router: %w", err)
		}
	}

	// 5. Auto-backup queue
	if cfg.Postgres.DSN != "" && (cfg.Backup.Interval > 0 || cfg.RemoteEnabled()) {
		queue, err := persistencequeue.NewService(ctx, logger, cfg.Postgres.DSN, m, service, persistencequeue.Config{
			Interval: cfg.Backup.Interval,
			Dir:      cfg.Backup.Dir,
			Keep:     cfg.Backup.Keep,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create backup queue: %w", err)
		}
		module.Queue = queue
	}

	return module, nil
}

// Run loads the caches and starts the notifier and the backup queue, then
// blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting persistence module", slog.String("device_id", m.DeviceID))

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if err := m.Service.LoadAll(ctx); err != nil {
		m.logger.WarnContext(ctx, "Initial load was incomplete", slog.String("error", err.Error()))
	}

	if m.config.NATS.URL != "" && m.eventBus != nil {
		if err := m.startNotifier(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Cross-device notifier disabled", slog.String("error", err.Error()))
		}
	}

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start backup queue", slog.String("error", err.Error()))
		}
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Persistence module goroutine stopped")
}

func (m *Module) startNotifier(ctx context.Context) error {
	conn, err := persistencenotify.Connect(persistencenotify.Config{
		URL:           m.config.NATS.URL,
		SubjectPrefix: m.config.NATS.SubjectPrefix,
		NKeySeed:      m.config.NATS.NKeySeed,
		UserJWT:       m.config.NATS.UserJWT,
		Name:          "matchops-" + m.DeviceID,
	}, m.logger)
	if err != nil {
		return err
	}

	var userID string
	if m.currentUser != nil {
		userID, _ = m.currentUser(ctx)
	}
	bridge := persistencenotify.NewBridge(conn, m.eventBus, persistencenotify.Subject(m.config.NATS.SubjectPrefix, userID), m.logger)
	if err := bridge.Start(ctx); err != nil {
		conn.Close()
		return err
	}
	m.natsConn = conn
	m.bridge = bridge
	return nil
}

// Close shuts down the module.
func (m *Module) Close() error {
	m.logger.Info("Stopping persistence module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	var errs []error
	if m.bridge != nil {
		errs = append(errs, m.bridge.Close())
	}
	if m.natsConn != nil {
		m.natsConn.Close()
	}
	if m.Queue != nil {
		errs = append(errs, m.Queue.Stop(context.Background()))
	}
	if m.Router != nil {
		errs = append(errs, m.Router.Close())
	}
	errs = append(errs, m.kv.Close())

	if err := errors.Join(errs...); err != nil {
		m.logger.Error("Error stopping persistence module", "error", err)
		return fmt.Errorf("error stopping persistence module: %w", err)
	}
	m.logger.Info("Persistence module stopped")
	return nil
}
