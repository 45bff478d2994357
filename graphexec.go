package graphexec

import (
	"context"
	"time"

	abstractlogger "github.com/jensneuse/abstractlogger"
	"go.uber.org/zap"

	eventbus "github.com/hanpama/graphexec/internal/eventbus"
	events "github.com/hanpama/graphexec/internal/events"
	execid "github.com/hanpama/graphexec/internal/execid"
	executor "github.com/hanpama/graphexec/internal/executor"
	language "github.com/hanpama/graphexec/internal/language"
	tracing "github.com/hanpama/graphexec/internal/otel"
	plan "github.com/hanpama/graphexec/internal/plan"
	schema "github.com/hanpama/graphexec/internal/schema"
)

// Re-exported surface types. The engine machinery lives under internal/;
// these aliases are the supported entry points.
type (
	Schema       = schema.Schema
	Config       = schema.Config
	Resolver     = schema.Resolver
	ScalarConfig = schema.ScalarConfig

	Plan       = plan.CompiledPlan
	CacheStats = plan.Stats

	Response = executor.Response
	Error    = executor.Error
	Location = executor.Location
	Path     = executor.Path
)

// BuildFromSDL parses an SDL document and binds resolvers and scalar hooks
// into an executable schema.
func BuildFromSDL(sdl string, cfg Config) (*Schema, error) {
	return schema.BuildFromSDL(sdl, cfg)
}

const (
	DefaultPlanCacheSize = 256
	DefaultPlanCacheTTL  = 0 // no expiry
)

type Option func(*options)

type options struct {
	cacheSize int
	cacheTTL  time.Duration
	log       abstractlogger.Logger
}

// WithPlanCacheSize bounds the number of cached plans.
func WithPlanCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithPlanCacheTTL expires cached plans after d. Zero disables expiry.
func WithPlanCacheTTL(d time.Duration) Option {
	return func(o *options) { o.cacheTTL = d }
}

// WithLogger installs a logger for compile and execute outcomes. The default
// is a noop logger.
func WithLogger(log abstractlogger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithZapLogger is WithLogger for a zap logger.
func WithZapLogger(l *zap.Logger) Option {
	return WithLogger(abstractlogger.NewZapLogger(l, abstractlogger.InfoLevel))
}

// Engine compiles operations into reusable plans and executes them. An
// Engine is immutable after New and safe for concurrent use.
type Engine struct {
	schema *Schema
	exec   *executor.Executor
	cache  *plan.Cache
	log    abstractlogger.Logger
}

// New creates an engine over an executable schema.
func New(s *Schema, opts ...Option) *Engine {
	o := options{
		cacheSize: DefaultPlanCacheSize,
		cacheTTL:  DefaultPlanCacheTTL,
		log:       abstractlogger.Noop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		schema: s,
		exec:   executor.New(s),
		cache:  plan.NewCache(o.cacheSize, o.cacheTTL),
		log:    o.log,
	}
}

// Compile parses query and returns the compiled plan for the named operation,
// reusing a cached plan when the operation and its referenced fragments have
// been compiled before. Cache keys are independent of variable values.
func (e *Engine) Compile(ctx context.Context, query string, operationName string) (*Plan, error) {
	document, err := language.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	return e.CompileDocument(ctx, document, operationName)
}

// CompileDocument is Compile for an already parsed document.
func (e *Engine) CompileDocument(ctx context.Context, document *language.QueryDocument, operationName string) (*Plan, error) {
	ctx = ensureExecID(ctx)
	sig := plan.Signature(document, operationName)

	eventbus.Publish(ctx, events.CompileStart{OperationName: operationName, Signature: sig})
	start := time.Now()
	p, hit, err := e.cache.GetOrCompile(sig, func() (*Plan, error) {
		return plan.Compile(e.schema, document, operationName)
	})
	eventbus.Publish(ctx, events.CompileFinish{
		OperationName: operationName,
		Signature:     sig,
		CacheHit:      hit,
		Err:           err,
		Duration:      time.Since(start),
	})
	if err != nil {
		e.log.Error("graphexec: compile failed",
			abstractlogger.String("operationName", operationName),
			abstractlogger.Error(err),
		)
		return nil, err
	}
	e.log.Debug("graphexec: compile",
		abstractlogger.String("operationName", operationName),
		abstractlogger.Bool("cacheHit", hit),
	)
	return p, nil
}

// ensureExecID threads one execution id through the lifecycle events of a
// compile-and-execute pair, so subscribers can correlate them.
func ensureExecID(ctx context.Context) context.Context {
	if _, ok := execid.FromContext(ctx); ok {
		return ctx
	}
	ctx, _ = execid.NewContext(ctx)
	return ctx
}

// Execute runs a compiled plan against the root value with the given raw
// variables. The same plan may execute concurrently from many goroutines.
func (e *Engine) Execute(ctx context.Context, p *Plan, root any, variables map[string]any) *Response {
	ctx = ensureExecID(ctx)
	eventbus.Publish(ctx, events.ExecuteStart{
		OperationName: p.OperationName,
		OperationType: string(p.Operation),
	})
	start := time.Now()

	resp := e.exec.Execute(ctx, p, variables, root)

	eventbus.Publish(ctx, events.ExecuteFinish{
		OperationName: p.OperationName,
		OperationType: string(p.Operation),
		ErrorCount:    len(resp.Errors),
		Rejected:      resp.Rejected(),
		Duration:      time.Since(start),
	})
	if len(resp.Errors) > 0 {
		e.log.Debug("graphexec: execute finished with errors",
			abstractlogger.String("operationName", p.OperationName),
			abstractlogger.Int("errorCount", len(resp.Errors)),
		)
	}
	return resp
}

// Do compiles and executes in one call. Compile failures are returned as a
// rejected response, matching the shape of variable coercion failures.
func (e *Engine) Do(ctx context.Context, query string, operationName string, root any, variables map[string]any) *Response {
	ctx = ensureExecID(ctx)
	p, err := e.Compile(ctx, query, operationName)
	if err != nil {
		return executor.Reject(Error{Message: err.Error()})
	}
	return e.Execute(ctx, p, root, variables)
}

// Tracing exports compile and execution spans over OTLP by subscribing to the
// engine lifecycle events. The returned function flushes and shuts the
// exporter down. An empty endpoint leaves telemetry disabled.
func Tracing(endpoint, service string) (func(context.Context) error, error) {
	return tracing.Setup(endpoint, service)
}

// CacheStats reports plan cache effectiveness counters.
func (e *Engine) CacheStats() CacheStats { return e.cache.Stats() }

// PurgePlans drops all cached plans, e.g. after swapping resolvers.
func (e *Engine) PurgePlans() { e.cache.Purge() }
