package plan

import (
	language "github.com/hanpama/graphexec/internal/language"
	schema "github.com/hanpama/graphexec/internal/schema"
)

// ConditionFunc evaluates a variable-dependent @skip/@include condition.
// A nil ConditionFunc on a compiled field means unconditionally included;
// conditions with literal arguments are folded away at compile time.
type ConditionFunc func(vars map[string]any) bool

// ArgumentEvaluator produces the coerced argument map for one field
// invocation. Literal arguments and defaults are coerced once at compile
// time; only variable references are resolved per execution.
type ArgumentEvaluator func(vars map[string]any) (map[string]any, error)

// CompiledPlan is the immutable, schema-bound representation of one operation
// ready for repeated execution. Plans are shared read-only across concurrent
// executions.
type CompiledPlan struct {
	Operation     language.Operation
	OperationName string
	RootTypeName  string
	Root          *CompiledObjectPlan
	VariableDefs  language.VariableDefinitionList
}

// CompiledObjectPlan is the ordered field sequence compiled for one concrete
// object type.
type CompiledObjectPlan struct {
	TypeName string
	Fields   []*CompiledField

	// Async is set when any field in this plan has an async resolver;
	// DeepAsync when async work exists anywhere in the subtree. Plans where
	// both are false execute with no concurrency machinery at all.
	Async     bool
	DeepAsync bool
}

// CompiledField is one field occurrence in a compiled plan, with its
// nullability, resolver handle, and argument evaluator pre-bound.
type CompiledField struct {
	ResponseKey string
	FieldName   string
	Type        *schema.TypeRef

	Resolve schema.ResolveFunc
	Async   bool
	// DeepAsync marks async resolvers on this field or anywhere below it;
	// ChildAsync marks async work strictly below, which decides whether list
	// elements are completed concurrently.
	DeepAsync  bool
	ChildAsync bool

	Arguments ArgumentEvaluator // nil when the field binds no arguments
	Condition ConditionFunc     // nil when unconditionally included

	// Plans holds the child plan per concrete object type the field can
	// complete into: a single entry for object-typed fields, one entry per
	// possible member type when AbstractType is set, nil for leaves. List
	// nesting is driven by Type at completion time and reuses these plans
	// for the innermost named type.
	Plans        map[string]*CompiledObjectPlan
	AbstractType string       // named interface/union type, if abstract
	Leaf         *schema.Type // named scalar/enum type, if leaf

	// Typename marks the __typename meta field, answered from the concrete
	// plan without invoking a resolver.
	Typename bool

	Line   int
	Column int
}
