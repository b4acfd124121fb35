// Package dispatch resolves (entity, operation) pairs from incoming requests
// to validated, persisted operations with uniform envelope results. The
// operation set is a closed enumeration resolved from a fixed table, so an
// unknown route fails with a typed 404 envelope instead of reaching a
// runtime map-miss branch.
package dispatch

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/shopcore/shopcore/internal/audit"
	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/entity"
	"github.com/shopcore/shopcore/internal/repository"
	"github.com/shopcore/shopcore/internal/response"
)

// Operation names one of the supported generic entity operations.
type Operation string

const (
	OpCreate   Operation = "create"
	OpFetch    Operation = "fetch"
	OpFetchAll Operation = "fetch_all"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
	OpTotal    Operation = "total"
	OpLimited  Operation = "get_limited_records"
	OpFiltered Operation = "get_filtered_records"
)

// Params are the request-scoped behavior flags parsed from headers.
// ResolveEnums and ResolveRelationships are recognized on the wire but have
// no downstream consumer yet.
type Params struct {
	IncludeDeleted       bool
	ResolveEnums         bool
	ResolveRelationships bool
}

// Request carries everything one dispatched operation may need: the path ID,
// the decoded JSON body, query parameters, header params, and the
// authenticated actor.
type Request struct {
	ID     string
	Body   map[string]any
	Query  url.Values
	Params Params
	Actor  *auth.Actor
}

// Store is the persistence capability set an operation runs against. It is
// satisfied by *repository.Repository; tests substitute a fake.
type Store interface {
	Insert(ctx context.Context, d *entity.Descriptor, rec repository.Record) (repository.Record, error)
	GetByID(ctx context.Context, d *entity.Descriptor, id string, includeDeleted bool) (repository.Record, error)
	List(ctx context.Context, d *entity.Descriptor, opts repository.ListOptions) ([]repository.Record, error)
	Count(ctx context.Context, d *entity.Descriptor, opts repository.ListOptions) (int64, error)
	Update(ctx context.Context, d *entity.Descriptor, id string, changes repository.Record) (repository.Record, error)
	SoftDelete(ctx context.Context, d *entity.Descriptor, id, deletedBy string) (repository.Record, error)
	GetByColumn(ctx context.Context, d *entity.Descriptor, column string, value any, includeDeleted bool) (repository.Record, error)
}

type operationFunc func(ctx context.Context, store Store, d *entity.Descriptor, req *Request) response.Envelope

// Auditor records entity mutations asynchronously.
type Auditor interface {
	PublishAsync(ev audit.Event)
}

// Dispatcher routes entity operations. The handler table is identical for
// every entity; descriptors supply the per-entity differences.
type Dispatcher struct {
	logger   *slog.Logger
	auditor  Auditor
	handlers map[Operation]operationFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAuditor attaches an audit trail publisher. Successful create, update,
// and delete operations emit an audit event.
func WithAuditor(a Auditor) Option {
	return func(dp *Dispatcher) {
		dp.auditor = a
	}
}

// New creates a Dispatcher.
func New(logger *slog.Logger, opts ...Option) *Dispatcher {
	dp := &Dispatcher{
		logger: logger,
		handlers: map[Operation]operationFunc{
			OpCreate:   opCreate,
			OpFetch:    opFetch,
			OpFetchAll: opFetchAll,
			OpUpdate:   opUpdate,
			OpDelete:   opDelete,
			OpTotal:    opTotal,
			OpLimited:  opLimited,
			OpFiltered: opFiltered,
		},
	}
	for _, opt := range opts {
		opt(dp)
	}
	return dp
}

// Dispatch resolves and runs one operation. It never lets a panic escape;
// anything recovered becomes a 500 envelope.
func (dp *Dispatcher) Dispatch(ctx context.Context, store Store, entityName, operationName string, req *Request) (env response.Envelope) {
	defer func() {
		if rvr := recover(); rvr != nil {
			dp.logger.Error("panic in entity operation",
				slog.String("entity", entityName),
				slog.String("operation", operationName),
				slog.Any("panic", rvr),
				slog.String("stack", string(debug.Stack())),
			)
			env = response.InternalError("unexpected failure")
		}
	}()

	d, ok := entity.Lookup(entityName)
	if !ok {
		return response.NotFound("Entity " + entityName + " not found.")
	}
	handler, ok := dp.handlers[Operation(operationName)]
	if !ok {
		return response.NotFound("Operation " + operationName + " not found for entity " + entityName + ".")
	}

	dp.logger.Debug("dispatching entity operation",
		slog.String("entity", entityName),
		slog.String("operation", operationName),
	)

	env = handler(ctx, store, d, req)
	dp.recordAudit(d, Operation(operationName), req, env)
	return env
}

// recordAudit publishes an audit event for a successful mutation. Mutations
// of audit_log itself are not recorded; that would loop.
func (dp *Dispatcher) recordAudit(d *entity.Descriptor, op Operation, req *Request, env response.Envelope) {
	if dp.auditor == nil || env.Code != http.StatusOK || d.Name == "audit_log" {
		return
	}

	var action string
	switch op {
	case OpCreate:
		action = audit.ActionCreate
	case OpUpdate:
		action = audit.ActionUpdate
	case OpDelete:
		action = audit.ActionDelete
	default:
		return
	}

	entityID := ""
	if rec, ok := env.Data[d.Name].(map[string]any); ok {
		entityID, _ = rec[d.PrimaryKey()].(string)
	}
	if entityID == "" {
		return
	}

	ev := audit.Event{
		EntityName: d.Name,
		EntityID:   entityID,
		Action:     action,
		OccurredAt: time.Now().UnixMilli(),
	}
	if req.Actor != nil {
		ev.ActorID = req.Actor.UserID
	}
	dp.auditor.PublishAsync(ev)
}
