package plan

import (
	"fmt"

	language "github.com/hanpama/graphexec/internal/language"
	schema "github.com/hanpama/graphexec/internal/schema"
)

// CompileError reports a plan compilation failure. It should not occur for
// operations that passed validation; when it does, the invocation fails as a
// whole with no partial response.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return e.Message }

func compileErrorf(format string, args ...any) error {
	return &CompileError{Message: fmt.Sprintf(format, args...)}
}

// Compile builds the executable plan for one operation of a validated query
// document. Compilation is pure and deterministic: it depends only on the
// operation AST, the fragment set, and the type model, never on variable
// values, so structurally equal plans result from repeated compiles and
// caching is sound.
func Compile(s *schema.Schema, document *language.QueryDocument, operationName string) (*CompiledPlan, error) {
	operation := getOperation(document, operationName)
	if operation == nil {
		if operationName == "" {
			return nil, compileErrorf("operation not found")
		}
		return nil, compileErrorf("operation %q not found", operationName)
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = s.GetQueryType()
	case language.Mutation:
		rootType = s.GetMutationType()
	default:
		return nil, compileErrorf("unsupported operation type: %s", operation.Operation)
	}
	if rootType == nil {
		return nil, compileErrorf("root type not found for %s operation", operation.Operation)
	}

	c := &compiler{schema: s, document: document}
	root, err := c.compileObjectPlan(rootType, []conditioned{{set: operation.SelectionSet}})
	if err != nil {
		return nil, err
	}

	return &CompiledPlan{
		Operation:     operation.Operation,
		OperationName: operation.Name,
		RootTypeName:  rootType.Name,
		Root:          root,
		VariableDefs:  operation.VariableDefinitions,
	}, nil
}

type compiler struct {
	schema   *schema.Schema
	document *language.QueryDocument
}

func (c *compiler) compileObjectPlan(objectType *schema.Type, sets []conditioned) (*CompiledObjectPlan, error) {
	groups, err := collectFields(c.schema, c.document, objectType, sets)
	if err != nil {
		return nil, &CompileError{Message: err.Error()}
	}

	p := &CompiledObjectPlan{TypeName: objectType.Name}
	for _, g := range groups {
		f, err := c.compileField(objectType, g)
		if err != nil {
			return nil, err
		}
		p.Fields = append(p.Fields, f)
		p.Async = p.Async || f.Async
		p.DeepAsync = p.DeepAsync || f.DeepAsync
	}
	return p, nil
}

func (c *compiler) compileField(objectType *schema.Type, g *collectedGroup) (*CompiledField, error) {
	first := g.Fields[0]
	for _, f := range g.Fields[1:] {
		if f.Name != first.Name {
			return nil, compileErrorf("fields for response key %q conflict: %q and %q on type %s",
				g.ResponseKey, first.Name, f.Name, objectType.Name)
		}
	}

	cf := &CompiledField{
		ResponseKey: g.ResponseKey,
		FieldName:   first.Name,
		Condition:   g.condition(),
	}
	if first.Position != nil {
		cf.Line = first.Position.Line
		cf.Column = first.Position.Column
	}

	if first.Name == "__typename" {
		cf.Typename = true
		return cf, nil
	}

	fieldDef := objectType.Field(first.Name)
	if fieldDef == nil {
		return nil, compileErrorf("Cannot query field %q on type %q", first.Name, objectType.Name)
	}
	cf.Type = fieldDef.Type
	cf.Resolve = fieldDef.Resolve
	cf.Async = fieldDef.Async
	cf.DeepAsync = fieldDef.Async

	eval, err := compileArguments(c.schema, fieldDef, first.Arguments)
	if err != nil {
		return nil, err
	}
	cf.Arguments = eval

	named := c.schema.Types[schema.GetNamedType(fieldDef.Type)]
	if named == nil {
		return nil, compileErrorf("unknown type %q", schema.GetNamedType(fieldDef.Type))
	}

	switch {
	case named.Kind.IsLeaf():
		cf.Leaf = named

	case named.Kind == schema.TypeKindObject:
		child, err := c.compileObjectPlan(named, g.childSets())
		if err != nil {
			return nil, err
		}
		cf.Plans = map[string]*CompiledObjectPlan{named.Name: child}
		cf.ChildAsync = child.DeepAsync
		cf.DeepAsync = cf.DeepAsync || child.DeepAsync

	case named.Kind.IsAbstract():
		cf.AbstractType = named.Name
		cf.Plans = map[string]*CompiledObjectPlan{}
		merged := g.childSets()
		for _, typeName := range c.schema.PossibleTypes(named.Name) {
			member := c.schema.Types[typeName]
			if member == nil || member.Kind != schema.TypeKindObject {
				return nil, compileErrorf("possible type %q of %q is not an object type", typeName, named.Name)
			}
			child, err := c.compileObjectPlan(member, merged)
			if err != nil {
				return nil, err
			}
			cf.Plans[typeName] = child
			cf.ChildAsync = cf.ChildAsync || child.DeepAsync
			cf.DeepAsync = cf.DeepAsync || child.DeepAsync
		}

	default:
		return nil, compileErrorf("field %q cannot return type %q of kind %s", first.Name, named.Name, named.Kind)
	}

	return cf, nil
}

func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(document.Operations) == 1 {
		return document.Operations[0]
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}
