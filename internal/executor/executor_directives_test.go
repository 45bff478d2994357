package executor_test

import (
	"context"
	"testing"

	schema "github.com/hanpama/graphexec/internal/schema"
)

func TestExecute_VariableDirectives(t *testing.T) {
	const sdl = `type Query { a: String b: String }`
	cfg := schema.Config{
		Resolvers: map[string]schema.Resolver{
			"Query.a": valueResolver("A"),
			"Query.b": valueResolver("B"),
		},
	}
	const q = `query($withA: Boolean!, $skipB: Boolean!) {
		a @include(if: $withA)
		b @skip(if: $skipB)
	}`

	cases := []struct {
		name string
		vars map[string]any
		want string
	}{
		{"both included", map[string]any{"withA": true, "skipB": false}, `{"a":"A","b":"B"}`},
		{"a excluded", map[string]any{"withA": false, "skipB": false}, `{"b":"B"}`},
		{"b skipped", map[string]any{"withA": true, "skipB": true}, `{"a":"A"}`},
		{"all excluded", map[string]any{"withA": false, "skipB": true}, `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := run(t, sdl, cfg, q, tc.vars, nil)
			if len(resp.Errors) != 0 {
				t.Fatalf("unexpected errors: %v", resp.Errors)
			}
			if got := dataJSON(t, resp); got != tc.want {
				t.Fatalf("data mismatch:\n want %s\n got  %s", tc.want, got)
			}
		})
	}
}

func TestExecute_MergedOccurrenceDirectives(t *testing.T) {
	// The two occurrences of user merge under one response key, but each
	// occurrence's condition still governs only its own sub-selections.
	const sdl = `
		type Query { user: User }
		type User { name: String id: ID }
	`
	cfg := schema.Config{
		Resolvers: map[string]schema.Resolver{
			"Query.user": valueResolver(map[string]any{"name": "Luke", "id": "1"}),
		},
	}
	const q = `query($a: Boolean!, $b: Boolean!) {
		user @include(if: $a) { name }
		user @include(if: $b) { id }
	}`

	cases := []struct {
		name string
		vars map[string]any
		want string
	}{
		{"both included", map[string]any{"a": true, "b": true}, `{"user":{"name":"Luke","id":"1"}}`},
		{"second occurrence excluded", map[string]any{"a": true, "b": false}, `{"user":{"name":"Luke"}}`},
		{"first occurrence excluded", map[string]any{"a": false, "b": true}, `{"user":{"id":"1"}}`},
		{"both excluded", map[string]any{"a": false, "b": false}, `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := run(t, sdl, cfg, q, tc.vars, nil)
			if len(resp.Errors) != 0 {
				t.Fatalf("unexpected errors: %v", resp.Errors)
			}
			if got := dataJSON(t, resp); got != tc.want {
				t.Fatalf("data mismatch:\n want %s\n got  %s", tc.want, got)
			}
		})
	}
}

func TestExecute_RepeatedFragmentSpreadConditions(t *testing.T) {
	// Spreading the same fragment twice under different conditions includes
	// its fields when either condition passes.
	resp := run(t, `type Query { a: String b: String }`, schema.Config{
		Resolvers: map[string]schema.Resolver{
			"Query.a": valueResolver("A"),
			"Query.b": valueResolver("B"),
		},
	}, `
		query($x: Boolean!, $y: Boolean!) {
			a
			...Extra @include(if: $x)
			...Extra @include(if: $y)
		}
		fragment Extra on Query { b }
	`, map[string]any{"x": false, "y": true}, nil)

	if len(resp.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", resp.Errors)
	}
	if got := dataJSON(t, resp); got != `{"a":"A","b":"B"}` {
		t.Fatalf("data mismatch: %s", got)
	}
}

func TestExecute_FragmentDirectives(t *testing.T) {
	resp := run(t, `type Query { a: String b: String }`, schema.Config{
		Resolvers: map[string]schema.Resolver{
			"Query.a": valueResolver("A"),
			"Query.b": valueResolver("B"),
		},
	}, `
		query($v: Boolean!) {
			a
			...Extra @include(if: $v)
		}
		fragment Extra on Query { b }
	`, map[string]any{"v": false}, nil)

	if got := dataJSON(t, resp); got != `{"a":"A"}` {
		t.Fatalf("data mismatch: %s", got)
	}
}

func TestExecute_DirectiveConditionDoesNotInvokeResolver(t *testing.T) {
	log := &callLog{}
	resp := run(t, `type Query { a: String }`, schema.Config{
		Resolvers: map[string]schema.Resolver{
			"Query.a": {Fn: func(ctx context.Context, source any, args map[string]any) (any, error) {
				log.add("a")
				return "A", nil
			}},
		},
	}, `query($v: Boolean!) { a @include(if: $v) }`, map[string]any{"v": false}, nil)

	if got := dataJSON(t, resp); got != `{}` {
		t.Fatalf("data mismatch: %s", got)
	}
	if len(log.list()) != 0 {
		t.Fatalf("excluded field must not resolve, got calls %v", log.list())
	}
}
