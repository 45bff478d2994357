package plan_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

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

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func mustCompile(t *testing.T, s *schema.Schema, query, operationName string) *plan.CompiledPlan {
	t.Helper()
	p, err := plan.Compile(s, mustParseQuery(t, query), operationName)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return p
}

func responseKeys(p *plan.CompiledObjectPlan) []string {
	keys := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		keys[i] = f.ResponseKey
	}
	return keys
}

const petSDL = `
type Query {
	user: User
	pets: [Pet!]
}

type User {
	id: ID!
	name: String!
	email: String
}

interface Pet {
	name: String!
}

type Dog implements Pet {
	name: String!
	barks: Boolean!
}

type Cat implements Pet {
	name: String!
	lives: Int!
}
`

func TestCompile_FlattensFragments(t *testing.T) {
	s := buildSchema(t, petSDL, schema.Config{})
	p := mustCompile(t, s, `
		query Q {
			user {
				...Names
				id
				... on User { email }
			}
		}
		fragment Names on User { id name }
	`, "Q")

	user := p.Root.Fields[0]
	userPlan := user.Plans["User"]
	if userPlan == nil {
		t.Fatalf("expected child plan for User")
	}
	// Fragment expansion in document order, duplicate response keys merged.
	want := []string{"id", "name", "email"}
	if diff := cmp.Diff(want, responseKeys(userPlan)); diff != "" {
		t.Fatalf("response keys mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_AbstractMemberPlans(t *testing.T) {
	s := buildSchema(t, petSDL, schema.Config{})
	p := mustCompile(t, s, `
		{
			pets {
				__typename
				name
				... on Dog { barks }
				... on Cat { lives }
			}
		}
	`, "")

	pets := p.Root.Fields[0]
	if pets.AbstractType != "Pet" {
		t.Fatalf("expected abstract type Pet, got %q", pets.AbstractType)
	}
	if len(pets.Plans) != 2 {
		t.Fatalf("expected one plan per member type, got %d", len(pets.Plans))
	}
	if diff := cmp.Diff([]string{"__typename", "name", "barks"}, responseKeys(pets.Plans["Dog"])); diff != "" {
		t.Fatalf("Dog plan mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"__typename", "name", "lives"}, responseKeys(pets.Plans["Cat"])); diff != "" {
		t.Fatalf("Cat plan mismatch (-want +got):\n%s", diff)
	}
	if !pets.Plans["Dog"].Fields[0].Typename {
		t.Fatalf("expected __typename field to be marked")
	}
}

func TestCompile_LiteralDirectivesFolded(t *testing.T) {
	s := buildSchema(t, `type Query { a: String b: String c: String }`, schema.Config{})
	p := mustCompile(t, s, `{ a @include(if: false) b @skip(if: false) c @skip(if: true) }`, "")

	if diff := cmp.Diff([]string{"b"}, responseKeys(p.Root)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if p.Root.Fields[0].Condition != nil {
		t.Fatalf("literal directives must leave no runtime condition")
	}
}

func TestCompile_VariableDirectiveConditions(t *testing.T) {
	s := buildSchema(t, `type Query { a: String }`, schema.Config{})
	p := mustCompile(t, s, `query($v: Boolean!) { a @include(if: $v) }`, "")

	cond := p.Root.Fields[0].Condition
	if cond == nil {
		t.Fatalf("expected a runtime condition for variable directive")
	}
	if !cond(map[string]any{"v": true}) {
		t.Fatalf("expected inclusion for v=true")
	}
	if cond(map[string]any{"v": false}) {
		t.Fatalf("expected exclusion for v=false")
	}

	// @skip inverts the argument.
	p = mustCompile(t, s, `query($v: Boolean!) { a @skip(if: $v) }`, "")
	cond = p.Root.Fields[0].Condition
	if cond(map[string]any{"v": true}) {
		t.Fatalf("expected exclusion for skip v=true")
	}
	if !cond(map[string]any{"v": false}) {
		t.Fatalf("expected inclusion for skip v=false")
	}
}

func TestCompile_MergedOccurrenceConditions(t *testing.T) {
	s := buildSchema(t, petSDL, schema.Config{})
	p := mustCompile(t, s, `query($a: Boolean!, $b: Boolean!) {
		user @include(if: $a) { name }
		user @include(if: $b) { id }
	}`, "")

	user := p.Root.Fields[0]
	if user.Condition == nil {
		t.Fatalf("merged group must keep a runtime condition")
	}
	if !user.Condition(map[string]any{"a": true, "b": false}) {
		t.Fatalf("group is included when either occurrence passes")
	}
	if user.Condition(map[string]any{"a": false, "b": false}) {
		t.Fatalf("group is excluded when every occurrence fails")
	}

	// Each occurrence's sub-selection keeps that occurrence's own condition.
	userPlan := user.Plans["User"]
	if diff := cmp.Diff([]string{"name", "id"}, responseKeys(userPlan)); diff != "" {
		t.Fatalf("child keys mismatch (-want +got):\n%s", diff)
	}
	name, id := userPlan.Fields[0], userPlan.Fields[1]
	if name.Condition == nil || id.Condition == nil {
		t.Fatalf("merged child fields must carry their occurrence conditions")
	}
	if !name.Condition(map[string]any{"a": true, "b": false}) || name.Condition(map[string]any{"a": false, "b": true}) {
		t.Fatalf("name must follow the first occurrence's condition")
	}
	if !id.Condition(map[string]any{"a": false, "b": true}) || id.Condition(map[string]any{"a": true, "b": false}) {
		t.Fatalf("id must follow the second occurrence's condition")
	}
}

func TestCompile_FragmentCycleTerminates(t *testing.T) {
	s := buildSchema(t, `type Query { a: String }`, schema.Config{})
	p := mustCompile(t, s, `{ ...F } fragment F on Query { a ...F }`, "")
	if diff := cmp.Diff([]string{"a"}, responseKeys(p.Root)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_Errors(t *testing.T) {
	s := buildSchema(t, `type Query { x: String y: String } type Mutation { m: String }`, schema.Config{})

	cases := []struct {
		name  string
		query string
		op    string
	}{
		{"conflicting response key", `{ a: x a: y }`, ""},
		{"unknown field", `{ nope }`, ""},
		{"unknown operation", `query Q { x }`, "Other"},
		{"unknown fragment", `{ ...Missing }`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := plan.Compile(s, mustParseQuery(t, tc.query), tc.op)
			if err == nil {
				t.Fatalf("expected compile error")
			}
			var ce *plan.CompileError
			if !asCompileError(err, &ce) {
				t.Fatalf("expected *CompileError, got %T: %v", err, err)
			}
		})
	}
}

func asCompileError(err error, target **plan.CompileError) bool {
	ce, ok := err.(*plan.CompileError)
	if ok {
		*target = ce
	}
	return ok
}

func TestCompile_MutationRoot(t *testing.T) {
	s := buildSchema(t, `type Query { x: String } type Mutation { m: String }`, schema.Config{})
	p := mustCompile(t, s, `mutation { m }`, "")
	if p.Operation != language.Mutation {
		t.Fatalf("expected mutation operation, got %s", p.Operation)
	}
	if p.RootTypeName != "Mutation" {
		t.Fatalf("expected Mutation root, got %s", p.RootTypeName)
	}
}

func TestCompile_AsyncFlags(t *testing.T) {
	noop := func(async bool) schema.Resolver {
		return schema.Resolver{
			Fn:    func(ctx context.Context, source any, args map[string]any) (any, error) { return nil, nil },
			Async: async,
		}
	}
	s := buildSchema(t, `
		type Query { user: User fast: String }
		type User { slow: String quick: String }
	`, schema.Config{
		Resolvers: map[string]schema.Resolver{
			"User.slow": noop(true),
		},
	})

	p := mustCompile(t, s, `{ user { slow quick } fast }`, "")

	if p.Root.Async {
		t.Fatalf("root plan has no async fields of its own")
	}
	if !p.Root.DeepAsync {
		t.Fatalf("async work below the root must set DeepAsync")
	}

	user := p.Root.Fields[0]
	if user.Async {
		t.Fatalf("user field resolver is sync")
	}
	if !user.ChildAsync || !user.DeepAsync {
		t.Fatalf("user field must carry child async markers")
	}
	userPlan := user.Plans["User"]
	if !userPlan.Async {
		t.Fatalf("User plan has an async field")
	}
}

func TestCompile_Deterministic(t *testing.T) {
	s := buildSchema(t, petSDL, schema.Config{})
	const q = `{ user { id name } pets { name ... on Dog { barks } } }`
	a := mustCompile(t, s, q, "")
	b := mustCompile(t, s, q, "")

	if diff := cmp.Diff(planShape(a.Root), planShape(b.Root)); diff != "" {
		t.Fatalf("repeated compiles differ (-first +second):\n%s", diff)
	}
}

// planShape projects the structure of a compiled plan into comparable data.
func planShape(p *plan.CompiledObjectPlan) map[string]any {
	shape := map[string]any{"type": p.TypeName, "async": p.Async, "deepAsync": p.DeepAsync}
	fields := make([]map[string]any, len(p.Fields))
	for i, f := range p.Fields {
		fs := map[string]any{
			"key":      f.ResponseKey,
			"field":    f.FieldName,
			"typename": f.Typename,
			"abstract": f.AbstractType,
		}
		children := map[string]any{}
		for name, child := range f.Plans {
			children[name] = planShape(child)
		}
		if len(children) > 0 {
			fs["plans"] = children
		}
		fields[i] = fs
	}
	shape["fields"] = fields
	return shape
}
