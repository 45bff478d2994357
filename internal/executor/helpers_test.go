package executor_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	executor "github.com/hanpama/graphexec/internal/executor"
	language "github.com/hanpama/graphexec/internal/language"
	plan "github.com/hanpama/graphexec/internal/plan"
	schema "github.com/hanpama/graphexec/internal/schema"
)

func buildSchema(t *testing.T, sdl string, cfg schema.Config) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(sdl, cfg)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return s
}

func mustCompile(t *testing.T, s *schema.Schema, query, operationName string) *plan.CompiledPlan {
	t.Helper()
	doc, err := language.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	p, err := plan.Compile(s, doc, operationName)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return p
}

// run compiles and executes query against a schema built from sdl.
func run(t *testing.T, sdl string, cfg schema.Config, query string, vars map[string]any, root any) *executor.Response {
	t.Helper()
	s := buildSchema(t, sdl, cfg)
	p := mustCompile(t, s, query, "")
	return executor.New(s).Execute(context.Background(), p, vars, root)
}

// dataJSON serializes only the data portion, which also pins response key
// order.
func dataJSON(t *testing.T, resp *executor.Response) string {
	t.Helper()
	b, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	return string(b)
}

func responseJSON(t *testing.T, resp *executor.Response) string {
	t.Helper()
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return string(b)
}

// stripLocations drops source locations so error assertions focus on message
// and path.
func stripLocations(errs []executor.Error) []executor.Error {
	out := make([]executor.Error, len(errs))
	for i, e := range errs {
		e.Locations = nil
		out[i] = e
	}
	return out
}

// callLog records resolver invocations in completion order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func valueResolver(v any) schema.Resolver {
	return schema.Resolver{
		Fn: func(ctx context.Context, source any, args map[string]any) (any, error) {
			return v, nil
		},
	}
}

func errorResolver(err error) schema.Resolver {
	return schema.Resolver{
		Fn: func(ctx context.Context, source any, args map[string]any) (any, error) {
			return nil, err
		},
	}
}

func asyncResolver(fn schema.ResolveFunc) schema.Resolver {
	return schema.Resolver{Fn: fn, Async: true}
}
