package persistencerouter

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	persistencehandlers "github.com/matchops/matchops/app/modules/persistence/infrastructure/handlers"
	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// PersistenceRouter handles Watermill handler registration for persistence events.
type PersistenceRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	tracer     trace.Tracer
}

// NewPersistenceRouter creates a new PersistenceRouter. Handler results are
// published through an eventbus.NewTopicPublisher wrapper around publisher.
func NewPersistenceRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
) *PersistenceRouter {
	return &PersistenceRouter{
		logger:     logger,
		router:     router,
		subscriber: subscriber,
		publisher:  eventbus.NewTopicPublisher(publisher),
		tracer:     tracer,
	}
}

// Configure sets up the router with handlers.
func (r *PersistenceRouter) Configure(_ context.Context, handlers persistencehandlers.Handlers) error {
	r.registerHandlers(handlers)
	return nil
}

// handlerDeps bundles dependencies for handler registration.
type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Topics lists every topic the persistence router consumes.
var Topics = []string{
	eventbus.TopicAutosaveRequestedV1,
	eventbus.TopicGameSavedV1,
	eventbus.TopicGameDeletedV1,
	eventbus.TopicRosterChangedV1,
	eventbus.TopicDataImportedV1,
	eventbus.TopicRemoteChangedV1,
}

func (r *PersistenceRouter) registerHandlers(handlers persistencehandlers.Handlers) {
	deps := handlerDeps{
		router:     r.router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
	}

	r.logger.Info("Registering persistence module handlers", slog.Any("topics", Topics))

	registerHandler(deps, eventbus.TopicAutosaveRequestedV1, handlers.HandleAutosaveRequested)
	registerHandler(deps, eventbus.TopicGameSavedV1, handlers.HandleGameSaved)
	registerHandler(deps, eventbus.TopicGameDeletedV1, handlers.HandleGameDeleted)
	registerHandler(deps, eventbus.TopicRosterChangedV1, handlers.HandleRosterChanged)
	registerHandler(deps, eventbus.TopicDataImportedV1, handlers.HandleDataImported)
	registerHandler(deps, eventbus.TopicRemoteChangedV1, handlers.HandleRemoteChanged)

	r.logger.Info("Persistence module handlers registered successfully")
}

// registerHandler is a generic function for type-safe Watermill handler registration.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "persistence." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"",
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			handler,
		),
	)
}

// Close shuts down the router.
func (r *PersistenceRouter) Close() error {
	return r.router.Close()
}
